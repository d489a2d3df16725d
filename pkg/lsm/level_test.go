package lsm

import "testing"

func TestNewLevelCapacityScalesWithDepth(t *testing.T) {
	l0 := newLevel(0, 100, 4, Leveling)
	l1 := newLevel(1, 100, 4, Leveling)
	if l0.capacity != 400 {
		t.Errorf("level 0 capacity = %d, want 400", l0.capacity)
	}
	if l1.capacity != 1600 {
		t.Errorf("level 1 capacity = %d, want 1600", l1.capacity)
	}
}

func TestLevelLevelingCanAcceptOnlyWhenEmpty(t *testing.T) {
	l := newLevel(0, 10, 2, Leveling)
	if !l.CanAccept(5) {
		t.Error("expected empty leveling level to accept")
	}

	opts := DefaultEngineOptions()
	run := buildSortedRun(buildTestRecords([][2]int64{{1, 1}}, nil), opts)
	l.AppendRun(run)

	if l.CanAccept(1) {
		t.Error("expected non-empty leveling level to reject further appends")
	}
}

func TestLevelTieringCanAcceptUpToScale(t *testing.T) {
	l := newLevel(0, 10, 2, Tiering)
	opts := DefaultEngineOptions()
	run := buildSortedRun(buildTestRecords([][2]int64{{1, 1}}, nil), opts)

	if !l.CanAccept(1) {
		t.Fatal("expected empty tiering level to accept")
	}
	l.AppendRun(run)
	if l.RunCount() != 1 {
		t.Fatalf("run count = %d, want 1", l.RunCount())
	}

	l.AppendRun(run)
	if l.RunCount() != 2 {
		t.Fatalf("run count = %d, want 2", l.RunCount())
	}
	if l.CanAccept(1) {
		t.Error("expected tiering level at scale capacity to reject further runs")
	}
}

func TestLevelCloneIsIndependent(t *testing.T) {
	l := newLevel(0, 10, 2, Tiering)
	opts := DefaultEngineOptions()
	run := buildSortedRun(buildTestRecords([][2]int64{{1, 1}}, nil), opts)
	l.AppendRun(run)

	clone := l.clone()
	clone.AppendRun(run)

	if l.RunCount() != 1 {
		t.Errorf("original run count = %d, want 1 (clone mutation leaked)", l.RunCount())
	}
	if clone.RunCount() != 2 {
		t.Errorf("clone run count = %d, want 2", clone.RunCount())
	}
}

func TestLevelTombstoneFraction(t *testing.T) {
	l := newLevel(0, 4, 2, Leveling) // capacity 8
	opts := DefaultEngineOptions()
	opts.DeleteMode = DeleteTag
	run := buildSortedRun(buildTestRecords([][2]int64{{1, 1}}, map[int]bool{0: true}), opts)
	l.AppendRun(run)

	frac := l.TombstoneFraction()
	if frac != 1.0/8.0 {
		t.Errorf("tombstone fraction = %v, want %v", frac, 1.0/8.0)
	}
}

func TestLevelClear(t *testing.T) {
	l := newLevel(0, 10, 2, Tiering)
	opts := DefaultEngineOptions()
	run := buildSortedRun(buildTestRecords([][2]int64{{1, 1}}, nil), opts)
	l.AppendRun(run)
	l.Clear()
	if l.RunCount() != 0 {
		t.Errorf("expected 0 runs after clear, got %d", l.RunCount())
	}
}
