package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_provider_completions_total",
		Help: "Completion calls by provider and outcome",
	}, []string{"provider", "outcome"})

	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_provider_completion_duration_seconds",
		Help:    "Completion call latency by provider",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

// instrumented wraps a provider with Prometheus metrics
type instrumented struct {
	Provider
}

// Instrumented decorates a provider so every completion call is counted and
// timed
func Instrumented(p Provider) Provider {
	return instrumented{Provider: p}
}

func (m instrumented) Complete(ctx context.Context, turns []Turn) (string, error) {
	start := time.Now()
	text, err := m.Provider.Complete(ctx, turns)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	completionsTotal.WithLabelValues(m.ID(), outcome).Inc()
	completionDuration.WithLabelValues(m.ID()).Observe(time.Since(start).Seconds())

	return text, err
}
