package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the planner service.
type Metrics struct {
	PlansTotal    *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	ReadDuration  *prometheus.HistogramVec
	SnapshotBlock prometheus.Gauge
}

// NewMetrics creates and registers the planner metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		PlansTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverswap",
			Name:      "plans_total",
			Help:      "Plans computed, labeled by action.",
		}, []string{"action"}),
		FailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverswap",
			Name:      "plan_failures_total",
			Help:      "Failed plans, labeled by action and error kind.",
		}, []string{"action", "kind"}),
		ReadDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coverswap",
			Name:      "chain_read_duration_seconds",
			Help:      "Latency of chain reads including retries, labeled by call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		SnapshotBlock: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "coverswap",
			Name:      "snapshot_block",
			Help:      "Block number of the most recent snapshot.",
		}),
	}
}
