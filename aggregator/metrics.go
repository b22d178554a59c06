package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the aggregator's own activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	sweeps   prometheus.Counter
	reported prometheus.Counter
	skipped  prometheus.Counter
	records  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bfilter", Subsystem: "aggregator", Name: "sweeps_total",
			Help: "Number of completed sweeps.",
		}),
		reported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bfilter", Subsystem: "aggregator", Name: "rows_reported_total",
			Help: "Number of page status rows handed to the sink.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bfilter", Subsystem: "aggregator", Name: "rows_skipped_total",
			Help: "Number of page status rows dropped for being below the minimum volume.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bfilter", Subsystem: "aggregator", Name: "records_total",
			Help: "Number of requests recorded.",
		}),
	}

	reg.MustRegister(m.sweeps, m.reported, m.skipped, m.records)

	return m
}

func (m *Metrics) recorded() {
	if m == nil {
		return
	}

	m.records.Inc()
}

func (m *Metrics) swept(reported, skipped int) {
	if m == nil {
		return
	}

	m.sweeps.Inc()
	m.reported.Add(float64(reported))
	m.skipped.Add(float64(skipped))
}
