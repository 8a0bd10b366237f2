package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes recorded by the factory
const (
	OutcomeReady       = "ready"
	OutcomeInitFailed  = "init_failed"
	OutcomeUnavailable = "unavailable"
	OutcomeSkipped     = "skipped"
)

// Metrics tracks provider acquisition outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewMetrics registers the provider collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "provider",
			Name:      "acquire_attempts_total",
			Help:      "Provider acquisition attempts by capability, variant and outcome.",
		}, []string{"capability", "provider", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "provider",
			Name:      "fallbacks_total",
			Help:      "Substitutions of a failed primary by its fallback variant.",
		}, []string{"capability", "from", "to"}),
	}

	if reg != nil {
		reg.MustRegister(m.attempts, m.fallbacks)
	}
	return m
}

// RecordAttempt counts one acquisition attempt
func (m *Metrics) RecordAttempt(capability Capability, provider, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(string(capability), provider, outcome).Inc()
}

// RecordFallback counts a primary being replaced by a fallback
func (m *Metrics) RecordFallback(capability Capability, from, to string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(string(capability), from, to).Inc()
}
