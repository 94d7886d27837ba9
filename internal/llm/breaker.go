package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/lazypower/rapport/internal/config"
)

// Breaker wraps a Client with a circuit breaker. After MaxFailures
// consecutive provider errors, calls fail fast with gobreaker.ErrOpenState
// until OpenSeconds have elapsed. Breaker never retries.
type Breaker struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. A zero MaxFailures returns next unchanged.
func NewBreaker(next Client, cfg config.BreakerConfig, log zerolog.Logger) Client {
	if cfg.MaxFailures == 0 {
		return next
	}
	open := time.Duration(cfg.OpenSeconds) * time.Second
	if open <= 0 {
		open = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     open,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the provider's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Complete forwards to the wrapped client through the breaker.
func (b *Breaker) Complete(ctx context.Context, prompt string) (*Response, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Response), nil
}
