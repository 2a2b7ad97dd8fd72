package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Sessions created
	SessionsCreated prometheus.Counter

	// Pipeline stage latencies, including classifier round-trips
	StageLatency *prometheus.HistogramVec

	// External classifier call latencies by operation
	ClassifierLatency *prometheus.HistogramVec

	// Final session outcomes
	Outcomes *prometheus.CounterVec
}

// New creates a Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idproof_sessions_created_total",
			Help: "Total verification sessions created",
		}),

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idproof_session_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}), // stage: "document", "fields", "live_capture"

		ClassifierLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idproof_classifier_duration_seconds",
			Help:    "Duration of external classifier calls by operation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}), // operation: "extract", "verify"

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idproof_session_outcomes_total",
			Help: "Total terminal session outcomes",
		}, []string{"outcome"}), // outcome: "verified", "rejected", "failed"
	}
}

// IncrementCreated records a new session.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

// ObserveStageLatency records the duration of one pipeline stage.
func (m *Metrics) ObserveStageLatency(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveClassifierLatency records the duration of a classifier call.
func (m *Metrics) ObserveClassifierLatency(operation string, d time.Duration) {
	if m != nil {
		m.ClassifierLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncrementOutcome records a terminal session outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}
