package capability

import (
	"fmt"

	"github.com/breezestudio/goahead/internal/conn"
)

// LineReader is the server's read path.  On every readable event it
// drains all complete lines and passes them to Handler.  The
// connection is released at end of stream, on a read error and when
// Handler fails.
type LineReader struct {
	Handler LineHandler
}

// NewLineReader returns a LineReader for h.
func NewLineReader(h LineHandler) *LineReader {
	return &LineReader{Handler: h}
}

// OnReadable implements conn.ReadHandler.
func (r *LineReader) OnReadable(c *conn.Conn) error {
	for c.Valid() {
		line, st, err := c.ReadLine()
		switch st {
		case conn.StatusOK:
			if err := r.Handler.HandleLine(c, line); err != nil {
				c.Release() //nolint:errcheck
				return fmt.Errorf("line handler: %w", err)
			}
		case conn.StatusWouldBlock:
			return nil
		case conn.StatusEOF:
			c.Logger().Verbose("peer closed the stream")
			if eh, ok := r.Handler.(EOFHandler); ok {
				if err := eh.HandleEOF(c); err != nil {
					c.Release() //nolint:errcheck
					return fmt.Errorf("eof handler: %w", err)
				}
			}
			return c.Release()
		default:
			c.Release() //nolint:errcheck
			return fmt.Errorf("read: %w", err)
		}
	}
	return nil
}

// OnRelease forwards to Handler when it holds resources of its own.
func (r *LineReader) OnRelease(c *conn.Conn) {
	if rh, ok := r.Handler.(conn.ReleaseHook); ok {
		rh.OnRelease(c)
	}
}
