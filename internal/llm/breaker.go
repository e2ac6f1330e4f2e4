package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings tunes the circuit breaker in front of a provider
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	HalfOpenMax  uint32
	Logger       *zap.Logger
}

// DefaultBreakerSettings trips after 5 calls with at least 60% failures
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  5,
		FailureRatio: 0.6,
		OpenTimeout:  30 * time.Second,
		HalfOpenMax:  1,
		Logger:       zap.NewNop(),
	}
}

// Breaker fails fast once the wrapped provider keeps failing. It never retries.
type Breaker struct {
	next Generator
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreaker wraps next in a circuit breaker
func NewBreaker(next Generator, s BreakerSettings) *Breaker {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: s.HalfOpenMax,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Name returns the wrapped provider name
func (b *Breaker) Name() string {
	return b.next.Name()
}

// Generate forwards to the wrapped provider unless the breaker is open
func (b *Breaker) Generate(ctx context.Context, parts []Part) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, parts)
	})
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
