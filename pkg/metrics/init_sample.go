package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSampleMetrics() {
	r.SamplesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsm_samples_total",
			Help: "Total number of range_sample calls by mode",
		},
		[]string{"mode"},
	)

	r.SampleDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lsm_sample_duration_seconds",
			Help:    "range_sample call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	r.SampleRejectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsm_sample_rejections_total",
			Help: "Rejected sample candidates by reason",
		},
		[]string{"reason"},
	)
}
