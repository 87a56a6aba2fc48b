package normalize

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors of the normalization pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	checks   *prometheus.CounterVec
	duration prometheus.Histogram
	stale    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vcschema",
			Subsystem: "normalize",
			Name:      "checks_total",
			Help:      "Normalization checks by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vcschema",
			Subsystem: "normalize",
			Name:      "check_duration_seconds",
			Help:      "Time spent normalizing one credential.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vcschema",
			Subsystem: "normalize",
			Name:      "stale_results_total",
			Help:      "Results discarded because a newer check had started.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.checks, m.duration, m.stale)
	}
	return m
}

func (m *Metrics) observe(s Status, d time.Duration) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(string(s)).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) staleResult() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
