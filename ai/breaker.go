package ai

import (
	"context"

	"chat-aggregator/backend/pkg/resilience"
)

// guarded wraps a provider with a circuit breaker
type guarded struct {
	Provider
	breaker *resilience.CircuitBreaker
}

// Guarded decorates a provider so a vendor that keeps failing is
// short-circuited instead of hit on every turn. While the circuit is open
// calls fail immediately, which the turn pipeline renders as the usual
// unavailability notice.
func Guarded(p Provider, breaker *resilience.CircuitBreaker) Provider {
	return guarded{Provider: p, breaker: breaker}
}

func (g guarded) Complete(ctx context.Context, turns []Turn) (string, error) {
	var text string
	err := g.breaker.Execute(func() error {
		var callErr error
		text, callErr = g.Provider.Complete(ctx, turns)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
