// Package conn is the per-connection layer of the server: it drives the
// secure handshake on first contact, frames decrypted bytes into lines
// and routes readiness events to the registered read and write
// handlers.
//
// A Conn is owned by the event loop.  Every method except Tag and ID
// must be called from the loop goroutine.
package conn

import (
	"fmt"
	"time"

	"github.com/thanhpk/randstr"

	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/linebuf"
	"github.com/breezestudio/goahead/internal/metrics"
	"github.com/breezestudio/goahead/internal/secure"
	"github.com/breezestudio/goahead/internal/socket"
	"github.com/breezestudio/goahead/util"
)

// ReadHandler consumes data once the session is established.  It runs
// for every readable event and is expected to drain what it can with
// ReadLine.
type ReadHandler interface {
	OnReadable(c *Conn) error
}

// ReadHandlerFunc adapts a function to [ReadHandler].
type ReadHandlerFunc func(c *Conn) error

func (fn ReadHandlerFunc) OnReadable(c *Conn) error { return fn(c) }

// WriteHandler is called on writable events.
type WriteHandler interface {
	OnWritable(c *Conn) error
}

// WriteHandlerFunc adapts a function to [WriteHandler].
type WriteHandlerFunc func(c *Conn) error

func (fn WriteHandlerFunc) OnWritable(c *Conn) error { return fn(c) }

// ReleaseHook is implemented by read or write handlers that hold
// resources of their own.  Release calls it on the read handler and on
// the write handler, however the connection ends; a handler set as
// both sees two calls.
type ReleaseHook interface {
	OnRelease(c *Conn)
}

// Options configures a Conn.
type Options struct {
	Acceptor secure.Acceptor // defaults to secure.Plain
	Keys     *secure.Keys

	Reader ReadHandler
	Writer WriteHandler

	// Loop runs the timeouts.  Without it no timeout is armed.
	Loop             *socket.Loop
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration

	Logger  *util.Logger
	Metrics *metrics.Collector

	// OnHandshake sees the outcome of every finished handshake,
	// including timeouts.
	OnHandshake func(err error)
	// OnRelease runs once, at the end of Release.
	OnRelease func(c *Conn)
}

// Conn is one accepted connection.
type Conn struct {
	sock *socket.Socket
	tag  string

	line    *linebuf.Buffer
	session secure.Session // established session
	pending secure.Session // partial session while the handshake runs
	one     [1]byte

	acceptor secure.Acceptor
	keys     *secure.Keys
	reader   ReadHandler
	writer   WriteHandler

	hsTimer     *socket.Timer
	idleTimer   *socket.Timer
	idleTimeout time.Duration

	logger  *util.Logger
	metrics *metrics.Collector

	onHandshake func(error)
	onRelease   func(*Conn)
	released    bool
}

// New wraps an accepted socket.  The handshake starts on the first
// readable event.
func New(sock *socket.Socket, opts Options) *Conn {
	c := &Conn{
		sock:        sock,
		tag:         randstr.String(8),
		line:        linebuf.New(),
		acceptor:    opts.Acceptor,
		keys:        opts.Keys,
		reader:      opts.Reader,
		writer:      opts.Writer,
		idleTimeout: opts.IdleTimeout,
		metrics:     opts.Metrics,
		onHandshake: opts.OnHandshake,
		onRelease:   opts.OnRelease,
	}
	if c.acceptor == nil {
		c.acceptor = secure.Plain{}
	}
	c.logger = opts.Logger.WithPrefix(fmt.Sprintf("conn %d %s", sock.ID(), c.tag))

	if opts.Loop != nil {
		if opts.HandshakeTimeout > 0 {
			c.hsTimer = opts.Loop.AfterFunc(opts.HandshakeTimeout, c.handshakeExpired)
		}
		if opts.IdleTimeout > 0 {
			c.idleTimer = opts.Loop.AfterFunc(opts.IdleTimeout, c.idleExpired)
		}
	}

	c.metrics.ConnectionOpened()
	c.logger.Verbose("accepted from %s", sock.RemoteAddr())
	return c
}

// ID returns the socket identifier.
func (c *Conn) ID() int { return c.sock.ID() }

// Tag returns the random trace tag printed with every log line.
func (c *Conn) Tag() string { return c.tag }

// Logger returns the connection's tagged logger.
func (c *Conn) Logger() *util.Logger { return c.logger }

// Valid reports whether the connection has not been released.
func (c *Conn) Valid() bool { return !c.released }

// Established reports whether the handshake has completed.
func (c *Conn) Established() bool { return c.session != nil }

// EOF reports whether the peer has ended the stream.
func (c *Conn) EOF() bool { return c.sock.EOF() }

// Buffered returns the length of the partial line held for the next
// ReadLine call.
func (c *Conn) Buffered() int { return c.line.Len() }

// SetReader replaces the read handler.
func (c *Conn) SetReader(h ReadHandler) { c.reader = h }

// SetWriter replaces the write handler; nil removes it.
func (c *Conn) SetWriter(h WriteHandler) { c.writer = h }

// Describe summarises the negotiated session for logs.
func (c *Conn) Describe() string {
	if d, ok := c.session.(secure.Describer); ok {
		return d.Describe()
	}
	if c.session == nil {
		return "not established"
	}
	return fmt.Sprintf("%T", c.session)
}

// Write encrypts p through the session.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	n, err := c.session.Write(p)
	c.metrics.BytesSent(int64(n))
	return n, err
}

// Flush pushes buffered session writes to the transport.
func (c *Conn) Flush() error {
	if err := c.usable(); err != nil {
		return err
	}
	return c.session.Flush()
}

// RequestWrite asks the loop for a writable event.
func (c *Conn) RequestWrite() {
	if c.Valid() {
		c.sock.Notify(socket.Writable)
	}
}

func (c *Conn) usable() error {
	if c.released {
		return ncerr.ErrConnClosed
	}
	if c.session == nil {
		return ncerr.ErrNotEstablished
	}
	return nil
}

// Release closes the session and the transport and returns the line
// storage to its pool.  Later calls do nothing.
func (c *Conn) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	c.hsTimer.Stop()
	c.idleTimer.Stop()

	var err error
	switch {
	case c.session != nil:
		err = c.session.Close()
	case c.pending != nil:
		err = c.pending.Close()
	}
	if cerr := c.sock.Close(); err == nil {
		err = cerr
	}
	c.session, c.pending = nil, nil
	c.line.Release()
	c.releaseHandlers()

	c.metrics.ConnectionClosed()
	c.logger.Verbose("released")
	if c.onRelease != nil {
		c.onRelease(c)
	}
	return err
}

func (c *Conn) releaseHandlers() {
	if h, ok := c.reader.(ReleaseHook); ok {
		h.OnRelease(c)
	}
	if h, ok := c.writer.(ReleaseHook); ok {
		h.OnRelease(c)
	}
}

func (c *Conn) idleExpired() {
	if !c.Valid() {
		return
	}
	c.logger.Verbose("idle for %s, closing", c.idleTimeout)
	c.Release() //nolint:errcheck
}
