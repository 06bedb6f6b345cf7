package breaker

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/avstrong/hotelbooking/internal/logger"
)

const (
	openTimeout         = 10 * time.Second
	consecutiveFailures = 2
)

type Option func(s *gobreaker.Settings)

// WithClientErrors keeps errors caused by the request itself, such as a
// rejected amount, from counting as failures of the upstream.
func WithClientErrors(isClientError func(err error) bool) Option {
	return func(s *gobreaker.Settings) {
		s.IsSuccessful = func(err error) bool {
			return err == nil || isClientError(err)
		}
	}
}

// New returns a breaker that opens after three consecutive failures and
// lets a single trial request through after openTimeout.
func New(l *logger.Logger, name string, opts ...Option) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{ //nolint:exhaustruct
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > consecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			l.LogInfo("Circuit breaker '%s' changed from '%s' to '%s'", name, from, to)
		},
	}

	for _, opt := range opts {
		opt(&settings)
	}

	return gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through cb and returns its typed result.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T

	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err //nolint:wrapcheck
	}

	out, ok := res.(T)
	if !ok {
		return zero, nil
	}

	return out, nil
}
