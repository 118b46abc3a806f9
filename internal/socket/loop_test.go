package socket

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// runLoop starts l and returns a function that stops it and waits.
func runLoop(t *testing.T, l *Loop) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, l.Run(ctx))
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// onLoop runs fn on the loop goroutine and waits for it.
func onLoop(t *testing.T, l *Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.Post(func() {
		fn()
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted function did not run")
	}
}

func pipeSocket(t *testing.T, id int) *Socket {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s := New(id, server)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoop_DispatchesToHandler(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil, 0)
	stop := runLoop(t, l)
	defer stop()

	s := pipeSocket(t, 10)
	got := make(chan Mask, 4)
	onLoop(t, l, func() {
		l.Register(s, HandlerFunc(func(m Mask) error {
			got <- m
			return nil
		}))
	})
	require.Equal(t, 1, l.Len())

	s.Notify(Readable | Writable)
	select {
	case m := <-got:
		require.Equal(t, Readable|Writable, m)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestLoop_DropsUnknownAndUnregistered(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil, 0)
	stop := runLoop(t, l)
	defer stop()

	s := pipeSocket(t, 11)
	calls := 0
	onLoop(t, l, func() {
		l.Register(s, HandlerFunc(func(Mask) error {
			calls++
			return errors.New("logged, not fatal")
		}))
	})

	require.True(t, l.Notify(99, Readable)) // nobody registered as 99
	require.True(t, l.Notify(11, Readable))
	onLoop(t, l, func() { l.Unregister(11) })
	require.True(t, l.Notify(11, Readable))
	onLoop(t, l, func() {})

	onLoop(t, l, func() { require.Equal(t, 1, calls) })
	require.Zero(t, l.Len())
}

func TestLoop_SerializesPostedFunctions(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil, 4) // small backlog exercises the overflow path
	stop := runLoop(t, l)
	defer stop()

	const n = 100
	var seen []int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go l.Post(func() {
			seen = append(seen, i) // no lock: loop goroutine only
			wg.Done()
		})
	}
	wg.Wait()
	onLoop(t, l, func() { require.Len(t, seen, n) })
}

func TestLoop_OverflowKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := NewLoop(nil, 1)

	// Queued before Run, so all but the first event overflow.
	const n = 200
	var got []int
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		require.True(t, l.Post(func() {
			got = append(got, i)
			if i == n-1 {
				close(done)
			}
		}))
	}

	stop := runLoop(t, l)
	defer stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("overflowed events were not delivered")
	}

	// A late post still lands after everything queued before it.
	onLoop(t, l, func() { got = append(got, n) })
	require.Len(t, got, n+1)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestLoop_PostAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil, 0)
	stop := runLoop(t, l)
	stop()

	<-l.Done()
	require.False(t, l.Post(func() {}))
	require.False(t, l.Notify(1, Readable))
}

func TestLoop_Each(t *testing.T) {
	l := NewLoop(nil, 0)
	a, b := pipeSocket(t, 1), pipeSocket(t, 2)
	l.Register(a, HandlerFunc(func(Mask) error { return nil }))
	l.Register(b, HandlerFunc(func(Mask) error { return nil }))

	ids := map[int]bool{}
	l.Each(func(s *Socket, _ Handler) { ids[s.ID()] = true })
	require.Equal(t, map[int]bool{1: true, 2: true}, ids)
}

func TestTimer_FiresOnLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil, 0)
	stop := runLoop(t, l)
	defer stop()

	fired := make(chan struct{})
	var tm *Timer
	onLoop(t, l, func() {
		tm = l.AfterFunc(5*time.Millisecond, func() { close(fired) })
	})
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	onLoop(t, l, func() { require.False(t, tm.Stop(), "fired timer is not pending") })
}

func TestTimer_StopAndReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil, 0)
	stop := runLoop(t, l)
	defer stop()

	fired := make(chan string, 2)
	var stopped, reset *Timer
	onLoop(t, l, func() {
		stopped = l.AfterFunc(10*time.Millisecond, func() { fired <- "stopped" })
		reset = l.AfterFunc(10*time.Millisecond, func() { fired <- "reset" })
		require.True(t, stopped.Stop())
		reset.Reset(30 * time.Millisecond)
	})

	select {
	case name := <-fired:
		require.Equal(t, "reset", name)
	case <-time.After(2 * time.Second):
		t.Fatal("reset timer did not fire")
	}
	time.Sleep(30 * time.Millisecond)
	require.Len(t, fired, 0, "stopped timer fired")

	var nilTimer *Timer
	require.False(t, nilTimer.Stop())
	nilTimer.Reset(time.Second)
}
