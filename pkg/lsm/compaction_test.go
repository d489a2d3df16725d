package lsm

import (
	"testing"

	"github.com/lsmsample/lsmsample/pkg/logging"
)

func TestMergeMemtableCreatesL0Run(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 100
	c := NewCompactor(opts, logging.NewNopLogger())

	mt := NewMemTable(100, 100, 0.01)
	mt.Append(1, 1, 1.0, false)
	mt.Append(2, 2, 1.0, false)

	v0 := newVersion(nil)
	v1 := c.MergeMemtable(mt, v0)

	if v1.Height() != 1 {
		t.Fatalf("height = %d, want 1", v1.Height())
	}
	if v1.levels[0].RecordCount() != 2 {
		t.Errorf("L0 record count = %d, want 2", v1.levels[0].RecordCount())
	}
	if v0.Height() != 0 {
		t.Error("expected original version left untouched")
	}
}

func TestMergeMemtableCascadesWhenL0Full(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 2
	opts.ScaleFactor = 2
	opts.Policy = Leveling
	c := NewCompactor(opts, logging.NewNopLogger())

	v := newVersion(nil)
	for batch := 0; batch < 3; batch++ {
		mt := NewMemTable(2, 2, 0.01)
		mt.Append(int64(batch*2), int64(batch), 1.0, false)
		mt.Append(int64(batch*2+1), int64(batch), 1.0, false)
		v = c.MergeMemtable(mt, v)
	}

	if v.Height() < 1 {
		t.Fatal("expected at least one level after repeated merges")
	}

	total := 0
	for _, l := range v.levels {
		total += l.RecordCount()
	}
	if total != 6 {
		t.Errorf("total records across levels = %d, want 6", total)
	}
}

func TestEnforceTombstoneBoundOnLastLevelSelfMerges(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 10
	opts.TombstoneMaxFraction = 0.1
	opts.DeleteMode = DeleteTag
	c := NewCompactor(opts, logging.NewNopLogger())

	level := newLevel(0, 2, 2, Leveling) // capacity 4, so 1 tombstone / 4 exceeds tau=0.1
	run := buildSortedRun(buildTestRecords(
		[][2]int64{{1, 1}, {2, 2}, {3, 3}},
		map[int]bool{0: true},
	), opts)
	level.AppendRun(run)
	v := newVersion([]*Level{level})

	c.enforceTombstoneBound(v, 0)

	if v.levels[0].RunCount() != 1 {
		t.Errorf("expected self-merge to leave exactly one run, got %d", v.levels[0].RunCount())
	}
}

func TestMergeMemtableTagsExistingRecordInsteadOfCarryingTombstone(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 10
	opts.DeleteMode = DeleteTag
	c := NewCompactor(opts, logging.NewNopLogger())

	mt1 := NewMemTable(10, 10, 0.01)
	mt1.Append(5, 10, 1.0, false)
	v := c.MergeMemtable(mt1, newVersion(nil))

	mt2 := NewMemTable(10, 10, 0.01)
	mt2.Append(5, 10, 1.0, true)
	v = c.MergeMemtable(mt2, v)

	if v.levels[0].TombstoneCount() != 0 {
		t.Errorf("tombstone count = %d, want 0: tagging should drop the tombstone rather than carry it", v.levels[0].TombstoneCount())
	}
	run := v.levels[0].runs[0]
	if _, ok := run.Get(5); ok {
		t.Error("expected tagged record to no longer be visible via Get")
	}
}

func TestMergeMemtableKeepsTombstoneWhenNoExistingRecordToTag(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 10
	opts.DeleteMode = DeleteTag
	c := NewCompactor(opts, logging.NewNopLogger())

	mt := NewMemTable(10, 10, 0.01)
	mt.Append(7, 70, 1.0, true)
	v := c.MergeMemtable(mt, newVersion(nil))

	if v.levels[0].TombstoneCount() != 1 {
		t.Errorf("tombstone count = %d, want 1: nothing to tag yet, so the tombstone must survive", v.levels[0].TombstoneCount())
	}
}

func TestMakeRoomBoundedRespectsDepthBudget(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 1
	opts.ScaleFactor = 1000 // effectively unreachable capacity, forcing budget exhaustion
	c := NewCompactor(opts, logging.NewNopLogger())

	level0 := newLevel(0, 1, 1000, Leveling)
	run := buildSortedRun(buildTestRecords([][2]int64{{1, 1}}, nil), opts)
	level0.AppendRun(run)
	v := newVersion([]*Level{level0})

	// depthBudget of 0 must return immediately without panicking or
	// growing the stack.
	c.makeRoomBounded(v, 0, 0)
	if v.Height() != 1 {
		t.Errorf("expected no level growth with an exhausted depth budget, got height %d", v.Height())
	}
}
