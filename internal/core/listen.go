package core

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/breezestudio/goahead/internal/capability"
	"github.com/breezestudio/goahead/internal/conn"
	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/metrics"
	"github.com/breezestudio/goahead/internal/retry"
	"github.com/breezestudio/goahead/internal/secure"
	"github.com/breezestudio/goahead/internal/socket"
	"github.com/breezestudio/goahead/internal/transport"
	"github.com/breezestudio/goahead/util"
)

// ListenMode accepts connections, runs the secure handshake on each and
// feeds every complete line to a fresh handler.  All connections share
// one event loop; only the accept loop and the per-session pumps run
// on goroutines of their own.
type ListenMode struct {
	Network string // "tcp" or "kcp"
	Address string

	Acceptor secure.Acceptor // defaults to secure.Plain
	Keys     *secure.Keys    // closed when Run returns

	// NewHandler builds the line handler of one connection.  The
	// default prints every line to stdout.
	NewHandler func() capability.LineHandler

	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration

	// Breaker, when set, stops admitting connections after a run of
	// failed handshakes.
	Breaker *retry.CircuitBreaker
	// Backoff paces retries of temporary accept errors.
	Backoff *retry.Backoff

	Metrics         *metrics.Collector
	MetricsInterval time.Duration // 0 disables periodic snapshots
	Logger          *util.Logger

	// Ready, when set, receives the bound address once the listener is
	// up.  It must have room for one value.
	Ready chan<- net.Addr
}

func (m *ListenMode) newHandler() capability.LineHandler {
	if m.NewHandler != nil {
		return m.NewHandler()
	}
	return &capability.Print{W: os.Stdout}
}

// Run serves until ctx is cancelled or the listener fails.  On return
// every connection has been released and the key material closed.
func (m *ListenMode) Run(ctx context.Context) error {
	defer m.Keys.Close() //nolint:errcheck

	ln, err := transport.Listen(m.Network, m.Address)
	if err != nil {
		return ncerr.Wrap("listen", m.Address, err)
	}
	defer ln.Close()

	m.Logger.Info("listening on %s (%s)", ln.Addr(), m.Network)
	if m.Ready != nil {
		m.Ready <- ln.Addr()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	if m.MetricsInterval > 0 {
		go m.report(ctx)
	}

	loop := socket.NewLoop(m.Logger, 0)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx) //nolint:errcheck

	err = m.acceptLoop(ctx, ln, loop)

	m.releaseAll(loop)
	stopLoop()
	<-loop.Done()

	m.Logger.Info("stopped: %s", m.Metrics.JSON())
	return err
}

func (m *ListenMode) acceptLoop(ctx context.Context, ln net.Listener, loop *socket.Loop) error {
	bo := m.Backoff
	if bo == nil {
		bo = retry.AcceptBackoff()
	}

	id := 0
	for {
		var nc net.Conn
		err := bo.Do(ctx, func(int) error {
			c, err := ln.Accept()
			if err == nil {
				nc = c
				return nil
			}
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			werr := ncerr.Wrap("accept", ln.Addr().String(), err)
			if !werr.Retryable {
				return retry.Permanent(werr)
			}
			m.Logger.Warn("%v", werr)
			return werr
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		id++
		m.admit(loop, id, nc)
	}
}

// admit hands an accepted connection to the loop unless the breaker
// is open.
func (m *ListenMode) admit(loop *socket.Loop, id int, nc net.Conn) {
	if m.Breaker != nil {
		if err := m.Breaker.Allow(); err != nil {
			m.Metrics.ConnectionRejected()
			m.Logger.Verbose("refusing %s: %v", nc.RemoteAddr(), err)
			nc.Close()
			return
		}
	}

	sock := socket.New(id, nc)
	posted := loop.Post(func() {
		c := conn.New(sock, conn.Options{
			Acceptor:         m.Acceptor,
			Keys:             m.Keys,
			Reader:           capability.NewLineReader(m.newHandler()),
			Loop:             loop,
			HandshakeTimeout: m.HandshakeTimeout,
			IdleTimeout:      m.IdleTimeout,
			Logger:           m.Logger,
			Metrics:          m.Metrics,
			OnHandshake:      m.handshakeDone,
			OnRelease:        func(c *conn.Conn) { loop.Unregister(c.ID()) },
		})
		loop.Register(sock, c)
		sock.WatchReadable()
	})
	if !posted {
		sock.Close()
	}
}

func (m *ListenMode) handshakeDone(err error) {
	if m.Breaker != nil {
		m.Breaker.Record(err)
	}
	if err != nil {
		m.Logger.Verbose("%v", err)
	}
}

// releaseAll releases every registered connection on the loop and
// waits for it to finish.
func (m *ListenMode) releaseAll(loop *socket.Loop) {
	done := make(chan struct{})
	posted := loop.Post(func() {
		defer close(done)
		loop.Each(func(_ *socket.Socket, h socket.Handler) {
			if c, ok := h.(*conn.Conn); ok {
				c.Release() //nolint:errcheck
			}
		})
	})
	if posted {
		<-done
	}
}

func (m *ListenMode) report(ctx context.Context) {
	ticker := time.NewTicker(m.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Logger.Verbose("metrics: %s", m.Metrics.JSON())
		}
	}
}
