package delivery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailure      = "failure"
)

// Metrics holds the delivery collectors.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the delivery collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alytica",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "alytica",
		Subsystem: "delivery",
		Name:      "attempt_duration_seconds",
		Help:      "Duration of a single delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	})

	if reg != nil {
		reg.MustRegister(attempts, duration)
	}

	return &Metrics{attempts: attempts, duration: duration}
}

// Attempts returns the attempts counter for the given outcome.
func (m *Metrics) Attempts(outcome string) prometheus.Counter {
	return m.attempts.WithLabelValues(outcome)
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}
