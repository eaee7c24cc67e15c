package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// IntervalLoop runs a function forever with a fixed minimum period between
// starts. An iteration that overruns the interval is followed immediately by
// the next one; missed periods are not caught up.
type IntervalLoop struct {
	Interval time.Duration
	Clock    Clock

	// OnError is called with every failed iteration, if set.
	OnError func(error)

	iterations atomic.Int64
}

var _ CallbackHandler = (*IntervalLoop)(nil)

func NewIntervalLoop(interval time.Duration) *IntervalLoop {
	return &IntervalLoop{Interval: interval, Clock: realClock{}}
}

// Run blocks until ctx is cancelled. Errors from fn never stop the loop; fn
// reports its own failures, so they are only logged here at debug level.
func (l *IntervalLoop) Run(ctx context.Context, fn RoundFunc) error {
	clock := l.Clock
	if clock == nil {
		clock = realClock{}
	}
	name := InferNameFromFunc(fn)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := clock.Now()
		err := fn(ctx)
		l.iterations.Add(1)
		elapsed := clock.Now().Sub(start)

		switch {
		case err == nil:
			log.Debug().Str("callback", name).Dur("elapsed", elapsed).Msg("Iteration finished")
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return ctx.Err()
		default:
			log.Debug().Err(err).Str("callback", name).Dur("elapsed", elapsed).Msg("Iteration failed")
			if l.OnError != nil {
				l.OnError(err)
			}
		}

		if remaining := l.Interval - elapsed; remaining > 0 {
			log.Info().Msgf("Sleeping for %s before next iteration", remaining.Round(time.Millisecond))
			if err := clock.Sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
}

func (l *IntervalLoop) Iterations() int {
	return int(l.iterations.Load())
}
