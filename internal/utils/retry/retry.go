// Package retry re-runs an operation immediately when it fails with one of a
// configured set of failure kinds.
package retry

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog/log"
)

// ErrExhausted wraps the last failure once every attempt has been used.
var ErrExhausted = errors.New("retry attempts exhausted")

// Any matches every non-nil error.
var Any error = anyKind{}

type anyKind struct{}

func (anyKind) Error() string { return "any error" }

type matcher interface {
	match(err error) bool
}

type typeKind[E error] struct{}

func (typeKind[E]) Error() string {
	var zero E
	return fmt.Sprintf("error of type %s", reflect.TypeOf(&zero).Elem())
}

func (typeKind[E]) match(err error) bool {
	var target E
	return errors.As(err, &target)
}

// Kind returns a failure kind matching any error in the chain assignable to E.
func Kind[E error]() error {
	return typeKind[E]{}
}

// Retrier holds the attempt budget and the retriable failure kinds.
type Retrier struct {
	maxAttempts int
	kinds       []error
}

// New builds a Retrier allowing maxAttempts total calls. Errors not matching
// one of kinds (by errors.Is, or Kind/Any) are returned after the first call.
func New(maxAttempts int, kinds ...error) Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Retrier{maxAttempts: maxAttempts, kinds: kinds}
}

// MaxAttempts returns the total number of calls allowed.
func (r Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Retriable reports whether err belongs to one of the configured kinds.
func (r Retrier) Retriable(err error) bool {
	if err == nil {
		return false
	}
	for _, kind := range r.kinds {
		if kind == Any {
			return true
		}
		if m, ok := kind.(matcher); ok {
			if m.match(err) {
				return true
			}
			continue
		}
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Wrap returns op guarded by r.
func Wrap[T any](r Retrier, op func() (T, error)) func() (T, error) {
	wrapped := WrapContext(r, func(context.Context) (T, error) { return op() })
	return func() (T, error) {
		return wrapped(context.Background())
	}
}

// WrapContext returns op guarded by r. Cancellation of ctx stops further
// attempts.
func WrapContext[T any](r Retrier, op func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		var lastErr error
		for attempt := 1; attempt <= r.maxAttempts; attempt++ {
			out, err := op(ctx)
			if err == nil {
				return out, nil
			}
			if !r.Retriable(err) {
				return zero, err
			}
			lastErr = err

			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, fmt.Errorf("%w: %w", ctxErr, lastErr)
			}
			if attempt < r.maxAttempts {
				log.Warn().
					Err(err).
					Int("attempt", attempt).
					Int("max_attempts", r.maxAttempts).
					Msg("operation failed, retrying")
			}
		}
		return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.maxAttempts, lastErr)
	}
}
