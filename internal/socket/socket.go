// Package socket provides the raw transport beneath the secure session
// layer and the single-goroutine event loop that delivers readiness
// notifications for it.
package socket

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
)

// Mask is a set of readiness conditions.
type Mask uint32

const (
	Readable Mask = 1 << iota
	Writable
)

func (m Mask) String() string {
	var parts []string
	if m&Readable != 0 {
		parts = append(parts, "readable")
	}
	if m&Writable != 0 {
		parts = append(parts, "writable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Socket wraps one accepted net.Conn.  Reads go through a bufio.Reader
// so first contact can be detected by peeking without consuming the
// peer's first bytes.
//
// EOF, Notify and Close are safe for concurrent use; Read must only be
// called by the single owner of the stream (the session pump).
type Socket struct {
	net.Conn

	id int
	r  *bufio.Reader

	eof     atomic.Bool
	closed  atomic.Bool
	pending atomic.Uint32 // readiness bits posted but not yet dispatched

	mu     sync.Mutex
	notify func(Mask)

	watch sync.Once
}

// New wraps c as socket id.
func New(id int, c net.Conn) *Socket {
	return &Socket{Conn: c, id: id, r: bufio.NewReader(c)}
}

// ID returns the socket's loop-wide identifier.
func (s *Socket) ID() int { return s.id }

// Read reads from the buffered stream.
func (s *Socket) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// EOF reports whether the peer has ended the stream.
func (s *Socket) EOF() bool { return s.eof.Load() }

// SetEOF records end-of-stream.  It is called by whoever owns the read
// side when the underlying stream returns io.EOF.
func (s *Socket) SetEOF() { s.eof.Store(true) }

// Notify posts a readiness event for this socket to its loop.  Bits
// that are already pending are not posted twice; the loop clears them
// right before dispatching.  Notify on an unregistered socket is a
// no-op.
func (s *Socket) Notify(m Mask) {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn == nil || s.closed.Load() {
		return
	}
	for {
		old := s.pending.Load()
		if Mask(old)&m == m {
			return
		}
		if s.pending.CompareAndSwap(old, old|uint32(m)) {
			break
		}
	}
	fn(m)
}

func (s *Socket) setNotify(fn func(Mask)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// takePending clears and returns the pending readiness bits.
func (s *Socket) takePending() Mask {
	return Mask(s.pending.Swap(0))
}

// WatchReadable waits in the background for the first byte (or the end
// of the stream) and then posts Readable.  Nothing is consumed.  Later
// calls are no-ops: once a session owns the stream it posts its own
// events.
func (s *Socket) WatchReadable() {
	s.watch.Do(func() {
		go func() {
			_, err := s.r.Peek(1)
			if errors.Is(err, io.EOF) {
				s.SetEOF()
			}
			s.Notify(Readable)
		}()
	})
}

// Close closes the underlying connection once.
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.setNotify(nil)
	return s.Conn.Close()
}

// Closed reports whether Close has been called.
func (s *Socket) Closed() bool { return s.closed.Load() }
