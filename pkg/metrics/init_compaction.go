package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCompactionMetrics() {
	r.FlushesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "lsm_flushes_total",
			Help: "Total number of memtable flushes into level 0",
		},
	)

	r.FlushDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsm_flush_duration_seconds",
			Help:    "Memtable flush duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.CompactionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsm_compactions_total",
			Help: "Total number of level-to-level merges",
		},
		[]string{"src_level", "dst_level"},
	)

	r.CompactionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lsm_compaction_duration_seconds",
			Help:    "Level merge duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dst_level"},
	)

	r.CascadeDepth = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsm_cascade_depth",
			Help:    "Number of levels touched by a single make_room cascade",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 16},
		},
	)
}
