package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLevelMetrics() {
	r.LevelRecordsTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsm_level_records_total",
			Help: "Record count per level",
		},
		[]string{"level"},
	)

	r.LevelTombstoneFraction = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsm_level_tombstone_fraction",
			Help: "tombstone_count/capacity per level",
		},
		[]string{"level"},
	)

	r.LevelRunCount = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsm_level_run_count",
			Help: "Number of SortedRuns per level",
		},
		[]string{"level"},
	)

	r.EngineHeight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lsm_height",
			Help: "Number of levels in the current version",
		},
	)

	r.VersionPinCount = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lsm_version_pin_count",
			Help: "Current version's outstanding reader pins",
		},
	)
}
