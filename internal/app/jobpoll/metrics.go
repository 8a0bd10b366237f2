package jobpoll

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job outcomes
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeTimedOut    = "timed_out"
	OutcomeCancelled   = "cancelled"
	OutcomeStatusError = "status_error"
)

// Metrics tracks job outcomes and durations. A nil *Metrics records nothing.
type Metrics struct {
	jobs     *prometheus.CounterVec
	duration prometheus.Histogram
	cleanups *prometheus.CounterVec
}

// NewMetrics registers the poller collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "jobpoll",
			Name:      "jobs_total",
			Help:      "Polled jobs by final outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clipscout",
			Subsystem: "jobpoll",
			Name:      "job_duration_seconds",
			Help:      "Time from submission to a terminal status.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "jobpoll",
			Name:      "cleanup_total",
			Help:      "Best-effort cleanup calls by resource and result.",
		}, []string{"resource", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs, m.duration, m.cleanups)
	}
	return m
}

func (m *Metrics) recordOutcome(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeFailed {
		m.duration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) recordCleanup(resource string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cleanups.WithLabelValues(resource, result).Inc()
}
