package telemetry

import (
	"github.com/escalateai/api/internal/generation"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend attempts. It implements generation.Recorder.
type Metrics struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalateai",
			Subsystem: "generation",
			Name:      "attempts_total",
			Help:      "Backend attempts by role, model and outcome.",
		}, []string{"role", "model", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "escalateai",
			Subsystem: "generation",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of single backend attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"role", "model"}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.attemptDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordAttempt implements generation.Recorder
func (m *Metrics) RecordAttempt(a generation.Attempt) {
	m.attempts.WithLabelValues(string(a.Role), a.Model, string(a.Outcome)).Inc()
	m.attemptDuration.WithLabelValues(string(a.Role), a.Model).Observe(a.Duration.Seconds())
}
