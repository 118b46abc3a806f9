package conn

import (
	"fmt"

	ncerr "github.com/breezestudio/goahead/internal/errors"
)

// establish runs the handshake step for a readable event.  It reports
// true once a session is in place and the event should continue to the
// read path.  A failed handshake releases the connection and returns
// the error.
func (c *Conn) establish() (bool, error) {
	if c.session != nil {
		return true, nil
	}

	resuming := c.pending != nil
	s, err := c.acceptor.Accept(c.pending, c.sock, c.keys, resuming)
	if ncerr.Is(err, ncerr.ErrHandshakePending) {
		if s != nil {
			c.pending = s
		}
		c.logger.Debug("handshake in progress")
		return false, nil
	}
	if err != nil {
		c.handshakeDone(err)
		c.Release() //nolint:errcheck
		return false, err
	}

	c.pending = nil
	c.session = s
	c.handshakeDone(nil)
	c.logger.Verbose("established: %s", c.Describe())
	return true, nil
}

func (c *Conn) handshakeDone(err error) {
	c.hsTimer.Stop()
	c.metrics.HandshakeDone(err)
	if err != nil {
		c.logger.Verbose("handshake failed: %v", err)
	}
	if c.onHandshake != nil {
		c.onHandshake(err)
	}
}

func (c *Conn) handshakeExpired() {
	if !c.Valid() || c.Established() {
		return
	}
	err := fmt.Errorf("handshake with %s: %w", c.sock.RemoteAddr(), ncerr.ErrTimeout)
	c.handshakeDone(err)
	c.Release() //nolint:errcheck
}
