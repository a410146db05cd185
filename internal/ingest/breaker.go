package ingest

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures the feed circuit breaker.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32        // half-open probes
	Timeout             time.Duration // open duration before half-open
	ConsecutiveFailures uint32
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// An empty payload is a healthy feed.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoRounds)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Feed circuit breaker state changed")
		},
	})
}
