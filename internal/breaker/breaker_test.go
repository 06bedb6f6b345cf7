package breaker_test

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/breaker"
	"github.com/avstrong/hotelbooking/internal/logger"
)

var (
	errUpstream = errors.New("upstream down")
	errRejected = errors.New("amount rejected")
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := breaker.New(logger.Discard(), "test")

	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(cb, func() (string, error) { return "", errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	_, err := breaker.Execute(cb, func() (string, error) { return "ok", nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecuteReturnsTypedResult(t *testing.T) {
	t.Parallel()

	cb := breaker.New(logger.Discard(), "typed")

	out, err := breaker.Execute(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	t.Parallel()

	cb := breaker.New(logger.Discard(), "client", breaker.WithClientErrors(func(err error) bool {
		return errors.Is(err, errRejected)
	}))

	for i := 0; i < 5; i++ {
		_, err := breaker.Execute(cb, func() (string, error) { return "", errRejected })
		require.ErrorIs(t, err, errRejected)
	}

	out, err := breaker.Execute(cb, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
