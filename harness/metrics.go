package harness

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver exports cycle timings as Prometheus metrics.
type MetricsObserver struct {
	compute  *prometheus.HistogramVec
	total    *prometheus.HistogramVec
	cycles   *prometheus.CounterVec
	headroom *prometheus.GaugeVec
}

// NewMetricsObserver creates the collectors and registers them on reg.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	buckets := prometheus.ExponentialBuckets(0.25, 2, 8)
	m := &MetricsObserver{
		compute: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightloop_cycle_compute_ms",
			Help:    "Measured transform time per cycle in milliseconds",
			Buckets: buckets,
		}, []string{"variant"}),
		total: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightloop_cycle_total_ms",
			Help:    "Composed cycle time in milliseconds",
			Buckets: buckets,
		}, []string{"variant"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightloop_cycles_total",
			Help: "Cycles run, by budget outcome",
		}, []string{"variant", "outcome"}),
		headroom: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flightloop_budget_headroom_ms",
			Help: "Budget minus total of the most recent cycle",
		}, []string{"variant"}),
	}

	for _, c := range []prometheus.Collector{m.compute, m.total, m.cycles, m.headroom} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *MetricsObserver) RunStarted(RunInfo) {}

func (m *MetricsObserver) CycleCompleted(rec CycleRecord) {
	v := rec.Variant.String()
	outcome := "miss"
	if rec.Met {
		outcome = "met"
	}
	m.compute.WithLabelValues(v).Observe(rec.ComputeMs)
	m.total.WithLabelValues(v).Observe(rec.TotalMs)
	m.cycles.WithLabelValues(v, outcome).Inc()
	m.headroom.WithLabelValues(v).Set(rec.HeadroomMs())
}

func (m *MetricsObserver) RunFinished(Summary) {}
