package conn

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/secure"
	"github.com/breezestudio/goahead/internal/socket"
)

// fakeSession serves queued bytes and then, optionally, an error.
type fakeSession struct {
	data    []byte
	err     error
	written bytes.Buffer
	flushes int
	closed  int
}

func (f *fakeSession) feed(s string) { f.data = append(f.data, s...) }

func (f *fakeSession) Read(p []byte) (int, error) {
	if len(f.data) > 0 {
		n := copy(p, f.data)
		f.data = f.data[n:]
		return n, nil
	}
	return 0, f.err
}

func (f *fakeSession) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakeSession) Flush() error                { f.flushes++; return nil }
func (f *fakeSession) Close() error                { f.closed++; return nil }

// acceptCall records one Accept invocation.
type acceptCall struct {
	existing secure.Session
	resuming bool
}

// scriptedAcceptor reports ErrHandshakePending `pending` times and then
// returns result and err.
type scriptedAcceptor struct {
	pending int
	partial secure.Session
	result  secure.Session
	err     error
	calls   []acceptCall
}

func (a *scriptedAcceptor) Accept(existing secure.Session, _ *socket.Socket, _ *secure.Keys, resuming bool) (secure.Session, error) {
	a.calls = append(a.calls, acceptCall{existing: existing, resuming: resuming})
	if len(a.calls) <= a.pending {
		return a.partial, ncerr.ErrHandshakePending
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func newSocket(t *testing.T, id int) (*socket.Socket, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	sock := socket.New(id, server)
	t.Cleanup(func() { sock.Close() })
	return sock, client
}

// established returns a connection whose handshake has already
// completed with s.
func established(t *testing.T, s *fakeSession) *Conn {
	t.Helper()
	sock, _ := newSocket(t, 1)
	c := New(sock, Options{Acceptor: &scriptedAcceptor{result: s}})
	require.NoError(t, c.OnReadiness(socket.Readable))
	require.True(t, c.Established())
	return c
}

func runLoop(t *testing.T, l *socket.Loop) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Run(ctx) //nolint:errcheck
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// onLoop runs fn on the loop goroutine and waits for it.
func onLoop(t *testing.T, l *socket.Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.Post(func() {
		defer close(done)
		fn()
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted function did not run")
	}
}
