// Package retry provides bounded fixed-interval polling.
//
// Waiters in this codebase never retry without a ceiling; a Policy makes the
// ceiling and interval explicit and the sleep injectable for tests.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Sleeper suspends the caller for the given duration, honoring ctx cancellation.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper sleeps with time.Timer and returns early on ctx cancellation.
func ContextSleeper(ctx context.Context, d time.Duration) error {
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

// NoSleep skips the interval entirely. Intended for tests.
func NoSleep(_ context.Context, _ time.Duration) error { return nil }

// Policy bounds a polling loop.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// ExhaustedError reports a poll that ran out of attempts before its
// predicate was satisfied.
type ExhaustedError struct {
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: predicate not satisfied after %d attempts", e.Attempts)
}

// Poll invokes fn up to p.MaxAttempts times, sleeping p.Interval between
// attempts. fn returns done=true to stop successfully; any error from fn
// aborts the loop immediately. Exhausting all attempts returns an
// *ExhaustedError carrying the attempt count.
func Poll(ctx context.Context, p Policy, sleep Sleeper, fn func(ctx context.Context) (done bool, err error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if sleep == nil {
		sleep = ContextSleeper
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: attempts}
}
