// Package retry implements bounded exponential backoff.
package retry

import (
	"context"
	"time"
)

// Policy describes how a failing operation is retried. MaxAttempts counts
// retries after the first try, so MaxAttempts=2 means at most three calls.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy retries twice, doubling from one second, capped at 15 seconds.
var DefaultPolicy = Policy{
	MaxAttempts: 2,
	BaseDelay:   time.Second,
	MaxDelay:    15 * time.Second,
}

// Delay returns the wait before retry number attempt (0-based):
// min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Clock abstracts waiting so backoff can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer used by callers of Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Do runs op until it succeeds, shouldRetry rejects the error, the policy is
// exhausted, or ctx is done. onRetry, if set, is called before every wait.
func Do(ctx context.Context, p Policy, clock Clock, shouldRetry func(error) bool, onRetry func(attempt int, delay time.Duration, err error), op func(context.Context) error) error {
	if clock == nil {
		clock = RealClock
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxAttempts || (shouldRetry != nil && !shouldRetry(err)) {
			return err
		}
		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(delay):
		}
	}
}
