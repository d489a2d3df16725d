package lsm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestEngineInvariants checks the universal invariants every reachable
// state must satisfy, across randomly generated append sequences.
func TestEngineInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	// Invariant 1: level L's capacity is always B*S^(L+1).
	properties.Property("level capacity follows B*S^(L+1)", prop.ForAll(
		func(base int, scale int) bool {
			if base < 1 || scale < 2 {
				return true
			}
			l := newLevel(3, base, scale, Leveling)
			want := base
			for i := 0; i <= 3; i++ {
				want *= scale
			}
			return l.capacity == want
		},
		gen.IntRange(1, 1000),
		gen.IntRange(2, 8),
	))

	// Invariant 3: every SortedRun's records are key-sorted.
	properties.Property("sorted run keys are non-decreasing", prop.ForAll(
		func(keys []int64) bool {
			opts := DefaultEngineOptions()
			records := make([]Record, len(keys))
			for i, k := range keys {
				records[i] = Record{Key: k, Value: k, Weight: 1.0}
			}
			sortedRecs := append([]Record{}, records...)
			for i := 0; i < len(sortedRecs); i++ {
				for j := i + 1; j < len(sortedRecs); j++ {
					if sortedRecs[j].Key < sortedRecs[i].Key {
						sortedRecs[i], sortedRecs[j] = sortedRecs[j], sortedRecs[i]
					}
				}
			}
			sr := buildSortedRun(sortedRecs, opts)
			for i := 0; i < sr.RecordCount()-1; i++ {
				if sr.records[i].Key > sr.records[i+1].Key {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 1000)),
	))

	// Invariant 7: round trip — an appended (k,v) is immediately visible.
	properties.Property("round trip: append then get", prop.ForAll(
		func(key, value int64) bool {
			e := newPropertyTestEngine(t)
			defer e.Close()

			if err := e.Append(key, value, 1.0, false); err != nil {
				return true // capacity exhaustion is a valid outcome, not a violation
			}
			rec, ok := e.Get(key)
			return ok && rec.Key == key && rec.Value == value
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
	))

	// Invariant 5: delete visibility — a committed tombstone with no
	// later re-insert hides the key from both get and range_sample.
	properties.Property("delete visibility", prop.ForAll(
		func(key, value int64) bool {
			e := newPropertyTestEngine(t)
			defer e.Close()

			if err := e.Append(key, value, 1.0, false); err != nil {
				return true
			}
			if err := e.Append(key, value, 1.0, true); err != nil {
				return true
			}

			if _, ok := e.Get(key); ok {
				return false
			}
			out, err := e.RangeSample(key, key, 20)
			if err != nil {
				return true
			}
			for _, r := range out {
				if r.Key == key {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
	))

	// Invariant 4: every sample is within bounds and never a tombstone.
	properties.Property("sample within bounds", prop.ForAll(
		func(lower, width int64) bool {
			if width < 0 || width > 10000 {
				return true
			}
			upper := lower + width

			e := newPropertyTestEngine(t)
			defer e.Close()

			for i := lower; i <= upper && i < lower+50; i++ {
				e.Append(i, i, 1.0, false)
			}

			out, err := e.RangeSample(lower, upper, 10)
			if err != nil {
				return true
			}
			for _, r := range out {
				if r.Key < lower || r.Key > upper || r.IsTombstone() {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 10000),
		gen.Int64Range(0, 200),
	))

	properties.TestingRun(t)
}

func newPropertyTestEngine(t *testing.T) *Engine {
	opts := DefaultEngineOptions()
	opts.MemtableCap = 64
	opts.MemtableCount = 2
	return NewEngine(opts, nil, nil)
}
