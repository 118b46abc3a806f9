package socket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breezestudio/goahead/util"
)

// DefaultBacklog is the event queue depth of a Loop.
const DefaultBacklog = 1024

// Handler receives readiness notifications for one socket.  A returned
// error is logged by the loop; it never stops the loop.
type Handler interface {
	OnReadiness(mask Mask) error
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(mask Mask) error

func (fn HandlerFunc) OnReadiness(mask Mask) error { return fn(mask) }

type entry struct {
	sock    *Socket
	handler Handler
}

type event struct {
	id   int
	mask Mask
	fn   func()
}

// Loop delivers readiness events one at a time on a single goroutine.
// Handlers, posted functions and timer callbacks all run there, so the
// state they touch needs no locking.
type Loop struct {
	events chan event
	done   chan struct{}
	stop   sync.Once

	entries map[int]*entry // loop goroutine only
	count   atomic.Int64

	mu       sync.Mutex
	overflow []event // events waiting for room in the queue, oldest first
	draining bool

	logger *util.Logger
}

// NewLoop creates a loop with the given queue depth (DefaultBacklog
// when backlog ≤ 0).
func NewLoop(logger *util.Logger, backlog int) *Loop {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Loop{
		events:  make(chan event, backlog),
		done:    make(chan struct{}),
		entries: make(map[int]*entry),
		logger:  logger,
	}
}

// Register attaches h to sock.  Call it from the loop goroutine (from a
// posted function or a handler) or before Run starts.
func (l *Loop) Register(sock *Socket, h Handler) {
	id := sock.ID()
	if _, ok := l.entries[id]; !ok {
		l.count.Add(1)
	}
	l.entries[id] = &entry{sock: sock, handler: h}
	sock.setNotify(func(m Mask) { l.enqueue(event{id: id, mask: m}) })
}

// Unregister detaches the socket; queued events for it are dropped.
// Loop goroutine only.
func (l *Loop) Unregister(id int) {
	e, ok := l.entries[id]
	if !ok {
		return
	}
	e.sock.setNotify(nil)
	delete(l.entries, id)
	l.count.Add(-1)
}

// Len returns the number of registered sockets.
func (l *Loop) Len() int { return int(l.count.Load()) }

// Notify queues a readiness event for socket id.  Safe from any
// goroutine.  It reports false once the loop has stopped.
func (l *Loop) Notify(id int, mask Mask) bool {
	return l.enqueue(event{id: id, mask: mask})
}

// Post runs fn on the loop goroutine.  Safe from any goroutine.
func (l *Loop) Post(fn func()) bool {
	return l.enqueue(event{fn: fn})
}

// enqueue never blocks the caller: if the queue is full the event goes
// to an overflow list that one goroutine feeds into the queue.  While
// the list is non-empty new events join its tail, so events are
// dispatched in the order they were enqueued.  This keeps handlers that
// post to their own loop from deadlocking it.
func (l *Loop) enqueue(ev event) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.overflow) == 0 {
		select {
		case l.events <- ev:
			return true
		default:
		}
	}
	l.overflow = append(l.overflow, ev)
	if !l.draining {
		l.draining = true
		go l.drain()
	}
	return true
}

// drain moves overflowed events into the queue, oldest first.
func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.overflow) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		ev := l.overflow[0]
		l.mu.Unlock()

		select {
		case l.events <- ev:
		case <-l.done:
			l.mu.Lock()
			l.overflow = nil
			l.draining = false
			l.mu.Unlock()
			return
		}

		l.mu.Lock()
		l.overflow[0] = event{}
		l.overflow = l.overflow[1:]
		l.mu.Unlock()
	}
}

// Run dispatches events until ctx is cancelled.  Registered sockets are
// left in place; use Each afterwards to tear them down.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.events:
			l.dispatch(ev)
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Each calls fn for every registered socket.  Only call it from the
// loop goroutine or after Run has returned.
func (l *Loop) Each(fn func(sock *Socket, h Handler)) {
	for _, e := range l.entries {
		fn(e.sock, e.handler)
	}
}

func (l *Loop) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop: recovered panic: %v", r)
		}
	}()

	if ev.fn != nil {
		ev.fn()
		return
	}

	e, ok := l.entries[ev.id]
	if !ok {
		return
	}
	mask := ev.mask | e.sock.takePending()
	if err := e.handler.OnReadiness(mask); err != nil {
		l.logger.Verbose("socket %d (%s): %v", ev.id, mask, err)
	}
}

// ── timers ───────────────────────────────────────────────────────────

// Timer runs a callback on the loop goroutine after a delay.  Stop and
// Reset must be called from the loop goroutine; a callback that was
// already queued when Stop or Reset ran does not fire.
type Timer struct {
	loop    *Loop
	fn      func()
	t       *time.Timer
	gen     atomic.Uint64
	stopped atomic.Bool
}

// AfterFunc schedules fn to run on the loop goroutine after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{loop: l, fn: fn}
	tm.arm(d)
	return tm
}

func (tm *Timer) arm(d time.Duration) {
	g := tm.gen.Add(1)
	tm.t = time.AfterFunc(d, func() {
		tm.loop.Post(func() {
			if tm.stopped.Load() || tm.gen.Load() != g {
				return
			}
			tm.stopped.Store(true)
			tm.fn()
		})
	})
}

// Stop cancels the timer.  It reports whether the callback was still
// pending.  A nil Timer is valid.
func (tm *Timer) Stop() bool {
	if tm == nil {
		return false
	}
	tm.t.Stop()
	return !tm.stopped.Swap(true)
}

// Reset re-arms the timer for d from now.
func (tm *Timer) Reset(d time.Duration) {
	if tm == nil {
		return
	}
	tm.t.Stop()
	tm.stopped.Store(false)
	tm.arm(d)
}
