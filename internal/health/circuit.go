// Package health tracks per-target availability with circuit breakers so
// a failing upstream is shed quickly instead of absorbing every request's
// timeout.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"api-firewall/internal/config"
)

// Default breaker behavior when the health section is absent.
const (
	DefaultFailureThreshold = 5
	DefaultOpenSeconds      = 30
	DefaultHalfOpenProbes   = 3
)

// ErrCircuitOpen is returned when a target's circuit is open and requests
// to it are being rejected without an upstream attempt.
var ErrCircuitOpen = errors.New("health: circuit breaker is open")

// State is the breaker state.
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker wraps a gobreaker two-step breaker for one target.
type CircuitBreaker struct {
	cb   *gobreaker.TwoStepCircuitBreaker[struct{}]
	name string
}

// NewCircuitBreaker creates a breaker for the named target.
func NewCircuitBreaker(name string, cfg config.HealthConfig, logger *zerolog.Logger) *CircuitBreaker {
	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	openSeconds := cfg.OpenSeconds
	if openSeconds <= 0 {
		openSeconds = DefaultOpenSeconds
	}
	halfOpenProbes := cfg.HalfOpenProbes
	if halfOpenProbes <= 0 {
		halfOpenProbes = DefaultHalfOpenProbes
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(halfOpenProbes), //nolint:gosec // clamped positive above
		Timeout:     time.Duration(openSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold) //nolint:gosec // clamped positive above
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("target", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{
		cb:   gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		name: name,
	}
}

// Allow asks the breaker whether a request may proceed. On success the
// returned done callback must be invoked with the request's outcome.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current breaker state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Name returns the target name this breaker guards.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// ShouldCountAsFailure reports whether an upstream outcome degrades the
// target's health. Caller-side cancellation never does.
func ShouldCountAsFailure(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return statusCode >= 500 || statusCode == 429
}
