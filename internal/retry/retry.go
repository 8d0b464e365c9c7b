// Package retry runs an operation against a fixed backoff schedule.
package retry

import (
	"context"
	"time"
)

// Clock sleeps between attempts. Sleep returns early with ctx.Err() when
// the context is cancelled.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on wall-clock time.
type RealClock struct{}

// Sleep blocks for d or until ctx is done.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DefaultDelays is the summarizer backoff: three retries after the first
// attempt, waiting 1s, 2s and 4s.
var DefaultDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Policy describes how often and how long to wait between attempts. The
// number of attempts is len(Delays)+1.
type Policy struct {
	Delays []time.Duration
	Clock  Clock

	// OnRetry, when set, is called after a failed attempt that will be
	// retried. attempt is 1-based.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns a Policy using DefaultDelays and the real clock.
func DefaultPolicy() Policy {
	delays := make([]time.Duration, len(DefaultDelays))
	copy(delays, DefaultDelays)
	return Policy{Delays: delays, Clock: RealClock{}}
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	return len(p.Delays) + 1
}

// Do calls fn until it succeeds or the schedule is exhausted, returning the
// last error in that case. A cancelled context stops the loop during a
// backoff sleep.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	clock := p.Clock
	if clock == nil {
		clock = RealClock{}
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts(); attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt > len(p.Delays) {
			break
		}
		delay := p.Delays[attempt-1]
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := clock.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}
