package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every Prometheus metric the engine exposes.
type Registry struct {
	// Append path
	AppendsTotal   *prometheus.CounterVec
	AppendDuration *prometheus.HistogramVec

	// Flush / compaction
	FlushesTotal       prometheus.Counter
	FlushDuration      prometheus.Histogram
	CompactionsTotal   *prometheus.CounterVec
	CompactionDuration *prometheus.HistogramVec
	CascadeDepth       prometheus.Histogram

	// Level / version state
	LevelRecordsTotal      *prometheus.GaugeVec
	LevelTombstoneFraction *prometheus.GaugeVec
	LevelRunCount          *prometheus.GaugeVec
	EngineHeight           prometheus.Gauge
	VersionPinCount        prometheus.Gauge

	// Sampling
	SamplesTotal          *prometheus.CounterVec
	SampleDuration        *prometheus.HistogramVec
	SampleRejectionsTotal *prometheus.CounterVec

	// Process-level
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry builds a fresh registry with every metric initialized,
// useful for tests that don't want to share the process-wide default.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.initAppendMetrics()
	r.initCompactionMetrics()
	r.initLevelMetrics()
	r.initSampleMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry, for
// wiring into an HTTP /metrics handler.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
