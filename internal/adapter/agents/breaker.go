package agents

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"agenthub/internal/domain"
	"agenthub/internal/usecase/consult"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker wrapped around a strategy.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

type breakerResult struct {
	guidance        string
	confidence      float64
	recommendations []string
}

// WithBreaker wraps a strategy with circuit breaker protection. When the
// strategy fails repeatedly, the circuit opens and subsequent calls fail
// fast without reaching it, preventing retry storms against an agent
// that is already struggling.
func WithBreaker(name string, inner consult.Strategy, cfg BreakerConfig, logger *slog.Logger) consult.Strategy {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[breakerResult](gobreaker.Settings{
		Name:        "agent:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return func(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
		result, err := cb.Execute(func() (breakerResult, error) {
			guidance, confidence, recommendations, err := inner(ctx, req)
			return breakerResult{guidance, confidence, recommendations}, err
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return "", 0, nil, domain.NewDomainError("agents.WithBreaker", domain.ErrCircuitOpen, name)
			}
			return "", 0, nil, err
		}
		return result.guidance, result.confidence, result.recommendations, nil
	}
}
