// Package metrics records credential resolution outcomes with Prometheus.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/dscreds/pkg/credentials"
)

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeAuth     = "auth_error"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// ResolveMetrics holds the resolution counter and latency histogram and
// the provider validation counter.
type ResolveMetrics struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	validateTotal   *prometheus.CounterVec
}

// NewResolveMetrics registers the resolution metrics with reg. A nil reg
// yields metrics that are recorded but never exported.
func NewResolveMetrics(reg prometheus.Registerer) *ResolveMetrics {
	factory := promauto.With(reg)
	return &ResolveMetrics{
		resolveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dscreds_resolve_total",
				Help: "Total number of credential resolutions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		resolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dscreds_resolve_duration_seconds",
				Help:    "Duration of credential resolutions in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"provider"},
		),
		validateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dscreds_validate_total",
				Help: "Total number of provider health checks by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
	}
}

// Record counts one resolution of provider that took d and ended with err.
func (m *ResolveMetrics) Record(provider string, d time.Duration, err error) {
	m.resolveTotal.WithLabelValues(provider, Outcome(err)).Inc()
	m.resolveDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordValidation counts one health check of provider that ended with err.
func (m *ResolveMetrics) RecordValidation(provider string, err error) {
	m.validateTotal.WithLabelValues(provider, Outcome(err)).Inc()
}

// ResolveTotal returns the resolution counter for testing.
func (m *ResolveMetrics) ResolveTotal() *prometheus.CounterVec {
	return m.resolveTotal
}

// ResolveDuration returns the latency histogram for testing.
func (m *ResolveMetrics) ResolveDuration() *prometheus.HistogramVec {
	return m.resolveDuration
}

// ValidateTotal returns the health check counter for testing.
func (m *ResolveMetrics) ValidateTotal() *prometheus.CounterVec {
	return m.validateTotal
}

// Wrap returns a provider that records every call made through p under
// the label provider.
func (m *ResolveMetrics) Wrap(provider string, p credentials.Provider) credentials.Provider {
	return &instrumented{name: provider, next: p, metrics: m}
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}

	var notFound *credentials.NotFoundError
	var authErr *credentials.AuthError
	switch {
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &authErr):
		return OutcomeAuth
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	}
	return OutcomeError
}

type instrumented struct {
	name    string
	next    credentials.Provider
	metrics *ResolveMetrics
}

func (i *instrumented) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	start := time.Now()
	set, err := i.next.Credentials(ctx, name)
	i.metrics.Record(i.name, time.Since(start), err)
	return set, err
}

// Validate forwards to the wrapped provider when it supports validation.
func (i *instrumented) Validate(ctx context.Context) error {
	if v, ok := i.next.(credentials.Validator); ok {
		return v.Validate(ctx)
	}
	return nil
}

// Unwrap returns the wrapped provider.
func (i *instrumented) Unwrap() credentials.Provider {
	return i.next
}
