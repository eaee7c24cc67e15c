package scheduler

import (
	"context"
	"time"
)

// RoundFunc is one unit of periodic work.
type RoundFunc func(ctx context.Context) error

// Clock abstracts time so loops can be driven by tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type CallbackHandler interface {
	// Runs fn back to back, never more often than once per interval
	Run(ctx context.Context, fn RoundFunc) error
	// Returns the number of completed iterations
	Iterations() int
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
