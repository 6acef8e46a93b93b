package schedule

import "github.com/prometheus/client_golang/prometheus"

// metrics holds, and Scheduler.Registry() exposes, the gauges/histograms spec.md's
// ambient observability stack expects: queue depth (if a sync engine is
// wired), consolidation duration, and retained/archived counts, all
// labeled by horizon. Registered on a private registry so multiple
// Scheduler instances (e.g. in tests) never collide on the global
// default registry.
type metrics struct {
	registry *prometheus.Registry

	consolidationDuration *prometheus.HistogramVec
	retained              *prometheus.GaugeVec
	archived              *prometheus.GaugeVec
	queueDepth            prometheus.Gauge
}

func newMetrics(queueDepthFn func() int) *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		consolidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memengine",
			Subsystem: "consolidation",
			Name:      "duration_seconds",
			Help:      "Duration of a consolidation pass, by horizon.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"horizon"}),
		retained: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "memengine",
			Subsystem: "consolidation",
			Name:      "retained_total",
			Help:      "Memories scanned but not archived in the most recent pass, by horizon.",
		}, []string{"horizon"}),
		archived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "memengine",
			Subsystem: "consolidation",
			Name:      "archived_total",
			Help:      "Memories archived in the most recent pass, by horizon.",
		}, []string{"horizon"}),
	}
	reg.MustRegister(m.consolidationDuration, m.retained, m.archived)

	if queueDepthFn != nil {
		m.queueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "memengine",
			Subsystem: "sync",
			Name:      "queue_depth",
			Help:      "Current sync engine queue depth, sampled at scrape time.",
		}, func() float64 { return float64(queueDepthFn()) })
		reg.MustRegister(m.queueDepth)
	}
	return m
}

func (m *metrics) recordRun(horizon string, seconds float64, scanned, archived int) {
	m.consolidationDuration.WithLabelValues(horizon).Observe(seconds)
	m.retained.WithLabelValues(horizon).Set(float64(scanned - archived))
	m.archived.WithLabelValues(horizon).Set(float64(archived))
}

// Registry exposes the private prometheus registry so a caller can serve
// it over /metrics.
func (s *Scheduler) Registry() *prometheus.Registry { return s.metrics.registry }
