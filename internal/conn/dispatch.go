package conn

import (
	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/socket"
)

// OnReadiness handles one readiness event.  Readable is handled before
// Writable and the two run independently: a read error does not keep
// the writer from running while the connection is still valid.  A
// released connection ignores every event.
func (c *Conn) OnReadiness(mask socket.Mask) error {
	if !c.Valid() {
		return nil
	}

	var rerr error
	if mask&socket.Readable != 0 {
		rerr = c.onReadable()
	}

	if mask&socket.Writable != 0 && c.writer != nil && c.Valid() {
		if werr := c.writer.OnWritable(c); werr != nil {
			return ncerr.Join(rerr, werr)
		}
	}
	return rerr
}

func (c *Conn) onReadable() error {
	c.idleTimer.Reset(c.idleTimeout)
	ok, err := c.establish()
	if err != nil || !ok || c.reader == nil {
		return err
	}
	return c.reader.OnReadable(c)
}
