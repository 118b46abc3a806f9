package capability

import (
	"github.com/valyala/bytebufferpool"

	"github.com/breezestudio/goahead/internal/conn"
)

// Echo sends every line back to the peer.  Lines are queued and
// written from the connection's next writable event.  One Echo serves
// one connection.
type Echo struct {
	queue *bytebufferpool.ByteBuffer
}

// NewEcho returns an empty Echo.
func NewEcho() *Echo { return &Echo{} }

// HandleLine queues line and asks for a writable event.
func (e *Echo) HandleLine(c *conn.Conn, line string) error {
	if e.queue == nil {
		e.queue = bytebufferpool.Get()
	}
	e.queue.WriteString(line) //nolint:errcheck
	e.queue.WriteByte('\n')   //nolint:errcheck
	c.SetWriter(e)
	c.RequestWrite()
	return nil
}

// OnWritable implements conn.WriteHandler.
func (e *Echo) OnWritable(c *conn.Conn) error {
	if e.queue == nil {
		return nil
	}
	buf := e.queue
	e.queue = nil
	defer bytebufferpool.Put(buf)

	if _, err := c.Write(buf.B); err != nil {
		return err
	}
	return c.Flush()
}

// HandleEOF writes whatever is still queued; the connection is about
// to be released and will see no more writable events.
func (e *Echo) HandleEOF(c *conn.Conn) error {
	return e.OnWritable(c)
}

// OnRelease returns a still-queued buffer to the pool.  It implements
// conn.ReleaseHook.
func (e *Echo) OnRelease(*conn.Conn) {
	if e.queue == nil {
		return
	}
	bytebufferpool.Put(e.queue)
	e.queue = nil
}

// Pending returns the number of queued bytes.
func (e *Echo) Pending() int {
	if e.queue == nil {
		return 0
	}
	return e.queue.Len()
}
