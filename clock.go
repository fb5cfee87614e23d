package certtheory

import (
	"context"
	"time"
)

// Clock provides deterministic time for the orchestrator.
type Clock interface {
	Now() time.Time
}

// RealClock uses time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// DeadlineSignal yields a channel that fires when the invocation must wrap
// up. The custom-resource protocol requires exactly one terminal response,
// so the orchestrator races its pipeline against this signal and reports a
// deadline failure rather than letting the runtime cut it off mid-flight.
type DeadlineSignal func(ctx context.Context) <-chan time.Time

// deadlineGrace is withheld from the context deadline so there is time to
// deliver the response after the signal fires.
const deadlineGrace = 3 * time.Second

// ContextDeadlineSignal derives the signal from ctx's deadline. Without a
// deadline it returns a channel that never fires.
func ContextDeadlineSignal(ctx context.Context) <-chan time.Time {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	remaining := time.Until(deadline) - deadlineGrace
	if remaining < 0 {
		remaining = 0
	}
	return time.After(remaining)
}
