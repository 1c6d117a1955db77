package external

import (
	"errors"
	"time"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// errUpstreamStatus marks a non-2xx response so the breaker counts it as a failure
var errUpstreamStatus = errors.New("unexpected upstream status")

// newCircuitBreaker builds the breaker guarding one upstream service
func newCircuitBreaker(name string, config domain.CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MinRequests == 0 {
		config.MinRequests = 5
	}
	if config.FailureRatio <= 0 {
		config.FailureRatio = 0.6
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// isBreakerRejection reports whether the breaker refused the call without trying it
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
