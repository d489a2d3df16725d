package metrics

import (
	"strconv"
	"time"
)

// RecordAppend records an append call's outcome and latency.
func (r *Registry) RecordAppend(status string, duration time.Duration) {
	r.AppendsTotal.WithLabelValues(status).Inc()
	r.AppendDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordFlush records a memtable flush into level 0.
func (r *Registry) RecordFlush(duration time.Duration) {
	r.FlushesTotal.Inc()
	r.FlushDuration.Observe(duration.Seconds())
}

// RecordCompaction records one level-to-level merge.
func (r *Registry) RecordCompaction(srcLevel, dstLevel int, duration time.Duration) {
	src := strconv.Itoa(srcLevel)
	dst := strconv.Itoa(dstLevel)
	r.CompactionsTotal.WithLabelValues(src, dst).Inc()
	r.CompactionDuration.WithLabelValues(dst).Observe(duration.Seconds())
}

// RecordCascadeDepth records how many levels a single make_room cascade
// touched.
func (r *Registry) RecordCascadeDepth(depth int) {
	r.CascadeDepth.Observe(float64(depth))
}

// UpdateLevelMetrics refreshes the per-level gauges for one level.
func (r *Registry) UpdateLevelMetrics(level, records, runs int, tombstoneFraction float64) {
	l := strconv.Itoa(level)
	r.LevelRecordsTotal.WithLabelValues(l).Set(float64(records))
	r.LevelRunCount.WithLabelValues(l).Set(float64(runs))
	r.LevelTombstoneFraction.WithLabelValues(l).Set(tombstoneFraction)
}

// UpdateEngineState refreshes the version-level gauges.
func (r *Registry) UpdateEngineState(height int, pinCount int64) {
	r.EngineHeight.Set(float64(height))
	r.VersionPinCount.Set(float64(pinCount))
}

// RecordSample records a range_sample call's mode and latency.
func (r *Registry) RecordSample(mode string, duration time.Duration) {
	r.SamplesTotal.WithLabelValues(mode).Inc()
	r.SampleDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordSampleRejection records a rejected sample candidate by reason
// ("tombstone", "bounds", or "deleted").
func (r *Registry) RecordSampleRejection(reason string) {
	r.SampleRejectionsTotal.WithLabelValues(reason).Inc()
}
