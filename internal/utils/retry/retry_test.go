package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

type statusError struct{ code int }

func (e *statusError) Error() string { return "status error" }

func TestWrapSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	op := Wrap(New(4, errFlaky), func() (string, error) {
		calls++
		if calls <= 2 {
			return "", errFlaky
		}
		return "ok", nil
	})

	out, err := op()
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestWrapExhaustsAttempts(t *testing.T) {
	calls := 0
	op := Wrap(New(4, errFlaky), func() (int, error) {
		calls++
		return 0, errFlaky
	})

	_, err := op()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 4, calls)
}

func TestWrapDoesNotRetryOtherKinds(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	op := Wrap(New(4, errFlaky), func() (int, error) {
		calls++
		return 0, boom
	})

	_, err := op()
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestAnyAndKindMatchers(t *testing.T) {
	wrapped := &statusError{code: 503}

	assert.True(t, New(2, Any).Retriable(errors.New("whatever")))
	assert.True(t, New(2, Kind[*statusError]()).Retriable(errors.Join(errors.New("ctx"), wrapped)))
	assert.False(t, New(2, Kind[*statusError]()).Retriable(errFlaky))
	assert.False(t, New(2, Any).Retriable(nil))
}

func TestWrapContextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := WrapContext(New(4, Any), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errFlaky
	})

	_, err := op(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestNewClampsAttempts(t *testing.T) {
	assert.Equal(t, 1, New(0).MaxAttempts())
}
