// Package retry holds the resilience helpers of the server: a backoff
// loop for transient accept errors and a circuit breaker that stops
// new handshakes while they keep failing.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// PermanentError wraps an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  Do returns the inner error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Backoff retries an operation with exponentially growing pauses.  The
// delays come from github.com/jpillora/backoff; the zero value uses
// the defaults below.
type Backoff struct {
	InitialDelay time.Duration // first pause (default 5ms)
	MaxDelay     time.Duration // cap (default 1s)
	Multiplier   float64       // growth factor (default 2)
	// MaxAttempts is the total number of tries including the first;
	// 0 retries until the context is cancelled.
	MaxAttempts int
	Jitter      bool
}

// AcceptBackoff is the schedule used after temporary accept errors.
func AcceptBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

func (b *Backoff) schedule() *backoff.Backoff {
	s := &backoff.Backoff{
		Min:    b.InitialDelay,
		Max:    b.MaxDelay,
		Factor: b.Multiplier,
		Jitter: b.Jitter,
	}
	if s.Min <= 0 {
		s.Min = 5 * time.Millisecond
	}
	if s.Max <= 0 {
		s.Max = time.Second
	}
	if s.Factor <= 0 {
		s.Factor = 2
	}
	return s
}

// Do calls fn until it succeeds, returns a permanent error, runs out of
// attempts or ctx is cancelled.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	sched := b.schedule()
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("max retries (%d) exceeded: %w", b.MaxAttempts, err)
		}

		t := time.NewTimer(sched.Duration())
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}
