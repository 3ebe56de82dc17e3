package ai

import (
	"fmt"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps calls of one result type with the gobreaker state machine.
// A nil *CircuitBreaker passes calls straight through.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewCircuitBreaker creates a breaker named after the stage, or nil when disabled
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// modelBreakerConfig loosens the stage breaker for model info probes, which matter less
func modelBreakerConfig(cfg config.CircuitBreakerConfig) config.CircuitBreakerConfig {
	cfg.MinRequests = 5
	cfg.FailureThreshold = 0.8
	return cfg
}

// breakerName builds the breaker name for a stage and kind
func breakerName(kind, stage string) string {
	return fmt.Sprintf("AI-%s-%s", kind, stage)
}

// Execute runs fn under breaker protection
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if c == nil || c.cb == nil {
		return fn()
	}
	return c.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (c *CircuitBreaker[T]) GetStats() map[string]any {
	if c == nil || c.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    c.cb.Name(),
		"state":   c.cb.State().String(),
		"counts":  c.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the breaker is closed or absent
func (c *CircuitBreaker[T]) IsHealthy() bool {
	if c == nil || c.cb == nil {
		return true
	}
	return c.cb.State() == gobreaker.StateClosed
}

// isBreakerOpen reports whether err came from a rejecting breaker
func isBreakerOpen(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
