package lsm

import "testing"

func TestSplineIndexWindowWithinErrorBound(t *testing.T) {
	keys := buildSortedKeys(1000)
	maxError := 8
	idx := buildSplineIndex(keys, maxError)

	for _, probe := range []int64{0, 1, 500, 999, 1998, 1999, 5000} {
		begin, end := idx.window(probe, len(keys))
		if begin < 0 || end > len(keys) || begin > end {
			t.Fatalf("window(%d) = [%d,%d) invalid for total %d", probe, begin, end, len(keys))
		}

		truth := len(keys)
		for i, k := range keys {
			if k >= probe {
				truth = i
				break
			}
		}
		if truth < len(keys) && (truth < begin || truth >= end) {
			t.Errorf("probe %d: true lower bound %d outside window [%d,%d)", probe, truth, begin, end)
		}
	}
}

func TestSplineIndexEmptyKeys(t *testing.T) {
	idx := buildSplineIndex(nil, 8)
	begin, end := idx.window(5, 0)
	if begin != 0 || end != 0 {
		t.Errorf("expected empty window for empty index, got [%d,%d)", begin, end)
	}
}

func TestSplineIndexSingleKey(t *testing.T) {
	idx := buildSplineIndex([]int64{42}, 8)
	begin, end := idx.window(42, 1)
	if begin != 0 || end != 1 {
		t.Errorf("expected [0,1) window for single-key index, got [%d,%d)", begin, end)
	}
}
