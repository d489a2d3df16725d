package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAppendIncrementsCounters(t *testing.T) {
	r := NewRegistry()
	r.RecordAppend("ok", 5*time.Millisecond)
	r.RecordAppend("ok", 2*time.Millisecond)
	r.RecordAppend("ts_full", time.Millisecond)

	if got := testutil.ToFloat64(r.AppendsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok appends = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.AppendsTotal.WithLabelValues("ts_full")); got != 1 {
		t.Errorf("ts_full appends = %v, want 1", got)
	}
}

func TestRecordFlushIncrementsCounter(t *testing.T) {
	r := NewRegistry()
	r.RecordFlush(10 * time.Millisecond)
	r.RecordFlush(20 * time.Millisecond)

	if got := testutil.ToFloat64(r.FlushesTotal); got != 2 {
		t.Errorf("flushes total = %v, want 2", got)
	}
}

func TestRecordCompactionLabelsBySrcAndDst(t *testing.T) {
	r := NewRegistry()
	r.RecordCompaction(0, 1, time.Millisecond)

	if got := testutil.ToFloat64(r.CompactionsTotal.WithLabelValues("0", "1")); got != 1 {
		t.Errorf("compactions(0,1) = %v, want 1", got)
	}
}

func TestUpdateLevelMetricsSetsGauges(t *testing.T) {
	r := NewRegistry()
	r.UpdateLevelMetrics(2, 500, 3, 0.15)

	if got := testutil.ToFloat64(r.LevelRecordsTotal.WithLabelValues("2")); got != 500 {
		t.Errorf("level 2 records = %v, want 500", got)
	}
	if got := testutil.ToFloat64(r.LevelRunCount.WithLabelValues("2")); got != 3 {
		t.Errorf("level 2 run count = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.LevelTombstoneFraction.WithLabelValues("2")); got != 0.15 {
		t.Errorf("level 2 tombstone fraction = %v, want 0.15", got)
	}
}

func TestUpdateEngineStateSetsGauges(t *testing.T) {
	r := NewRegistry()
	r.UpdateEngineState(4, 2)

	if got := testutil.ToFloat64(r.EngineHeight); got != 4 {
		t.Errorf("engine height = %v, want 4", got)
	}
	if got := testutil.ToFloat64(r.VersionPinCount); got != 2 {
		t.Errorf("version pin count = %v, want 2", got)
	}
}

func TestRecordSampleAndRejection(t *testing.T) {
	r := NewRegistry()
	r.RecordSample("wirs", 3*time.Millisecond)
	r.RecordSampleRejection("tombstone")
	r.RecordSampleRejection("tombstone")
	r.RecordSampleRejection("bounds")

	if got := testutil.ToFloat64(r.SamplesTotal.WithLabelValues("wirs")); got != 1 {
		t.Errorf("wirs samples = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.SampleRejectionsTotal.WithLabelValues("tombstone")); got != 2 {
		t.Errorf("tombstone rejections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.SampleRejectionsTotal.WithLabelValues("bounds")); got != 1 {
		t.Errorf("bounds rejections = %v, want 1", got)
	}
}

func TestDefaultRegistrySingleton(t *testing.T) {
	a := DefaultRegistry()
	b := DefaultRegistry()
	if a != b {
		t.Error("expected DefaultRegistry to return the same instance across calls")
	}
}
