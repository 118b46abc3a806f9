// Package capability defines what happens over a connection once bytes
// flow: on the server, complete lines are handed to a LineHandler; in
// connect mode, Relay shuttles stdin and stdout over the dialed stream.
package capability

import "github.com/breezestudio/goahead/internal/conn"

// LineHandler receives every complete line of a connection.  It runs
// on the event loop and must not block.
type LineHandler interface {
	HandleLine(c *conn.Conn, line string) error
}

// LineHandlerFunc adapts a function to [LineHandler].
type LineHandlerFunc func(c *conn.Conn, line string) error

func (fn LineHandlerFunc) HandleLine(c *conn.Conn, line string) error { return fn(c, line) }

// EOFHandler is implemented by line handlers that have work left when
// the peer ends the stream.  LineReader calls HandleEOF right before it
// releases the connection.
type EOFHandler interface {
	HandleEOF(c *conn.Conn) error
}

// Chain calls each handler in order and stops at the first error.
func Chain(handlers ...LineHandler) LineHandler {
	return chain(handlers)
}

type chain []LineHandler

func (ch chain) HandleLine(c *conn.Conn, line string) error {
	for _, h := range ch {
		if err := h.HandleLine(c, line); err != nil {
			return err
		}
	}
	return nil
}

func (ch chain) OnRelease(c *conn.Conn) {
	for _, h := range ch {
		if rh, ok := h.(conn.ReleaseHook); ok {
			rh.OnRelease(c)
		}
	}
}

func (ch chain) HandleEOF(c *conn.Conn) error {
	for _, h := range ch {
		if eh, ok := h.(EOFHandler); ok {
			if err := eh.HandleEOF(c); err != nil {
				return err
			}
		}
	}
	return nil
}
