package lsm

import "github.com/google/uuid"

// SortedRun is an immutable, key-sorted record array with auxiliary
// structures for range queries: a tombstone Bloom filter always, a
// lower/upper-bound locator (ISAM, spline, or plain binary search), and,
// for WIRS runs, a weighted alias table over the run's own records.
type SortedRun struct {
	ID uuid.UUID

	records []Record
	minKey  int64
	maxKey  int64

	tombstoneCount int

	filter *BloomFilter
	idx    runIndex
	alias  *AliasTable // present only when built under SampleWIRS

	deleteMode DeleteMode
}

// runIndex is the common interface the auxiliary-locator strategies (ISAM,
// spline, plain binary search) implement: a window guaranteed to contain
// the true lower-bound index.
type runIndex interface {
	window(key int64, total int) (begin, end int)
}

// binarySearchIndex is the trivial runIndex: the whole run is the window,
// used for runs too small to justify building ISAM or spline structures.
type binarySearchIndex struct{}

func (binarySearchIndex) window(_ int64, total int) (int, int) { return 0, total }

// buildIndex constructs the configured auxiliary locator over a run's
// sorted keys.
func buildIndex(keys []int64, opts EngineOptions) runIndex {
	if len(keys) < opts.IndexPageSize {
		return binarySearchIndex{}
	}
	switch opts.IndexKind {
	case IndexSpline:
		return buildSplineIndex(keys, opts.IndexMaxError)
	case IndexISAM:
		return buildISAMIndex(keys, opts.IndexPageSize)
	default:
		return binarySearchIndex{}
	}
}

// NewSortedRunFromMemTable streams a memtable's sorted output into a new
// immutable run, applying the configured delete mode and building the
// configured index plus (for WIRS) a weight alias.
func NewSortedRunFromMemTable(mt *MemTable, opts EngineOptions) *SortedRun {
	return buildSortedRun(mt.SortedOutput(), opts)
}

// NewSortedRunFromRuns merges N existing runs into one, via a k-way cursor
// merge ordered by (key, tombstone-flag-last), applying the same
// cancellation/tagging rule as the memtable constructor.
func NewSortedRunFromRuns(runs []*SortedRun, opts EngineOptions) *SortedRun {
	merged := mergeRuns(runs)
	return buildSortedRun(merged, opts)
}

// buildSortedRun is the shared streaming constructor used by both entry
// points: it walks already-ordered records, applies delete-mode handling,
// strips insertion-order bits from the header, tracks min/max key and
// tombstone count, feeds the tombstone filter and index builder, and
// (for WIRS) builds a normalized weight alias.
func buildSortedRun(sorted []Record, opts EngineOptions) *SortedRun {
	out := make([]Record, 0, len(sorted))
	var tsCount int

	for i := 0; i < len(sorted); i++ {
		r := sorted[i].withPersistentFlags()

		if opts.DeleteMode == DeleteCancel && r.IsTombstone() &&
			len(out) > 0 && out[len(out)-1].Key == r.Key && !out[len(out)-1].IsTombstone() {
			// Cancel the adjacent (record, tombstone) pair: drop both.
			out = out[:len(out)-1]
			continue
		}

		out = append(out, r)
		if r.IsTombstone() {
			tsCount++
		}
	}

	sr := &SortedRun{
		ID:             uuid.New(),
		records:        out,
		tombstoneCount: tsCount,
		deleteMode:     opts.DeleteMode,
	}
	if len(out) > 0 {
		sr.minKey = out[0].Key
		sr.maxKey = out[len(out)-1].Key
	}

	sr.filter = NewBloomFilterK(maxInt(tsCount, 1), opts.BloomFPR, opts.BloomK)
	for _, r := range out {
		if r.IsTombstone() {
			sr.filter.Insert(r.Key)
		}
	}

	keys := make([]int64, len(out))
	for i, r := range out {
		keys[i] = r.Key
	}
	sr.idx = buildIndex(keys, opts)

	if opts.SampleMode == SampleWIRS {
		weights := make([]float64, len(out))
		for i, r := range out {
			weights[i] = r.Weight
		}
		sr.alias = NewAliasTable(weights)
	}

	return sr
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// mergeRuns performs a linear-scan k-way merge of N sorted runs' records,
// ordered by (key, tombstone-flag-last). A heap would be O(N log k); a
// linear scan of the cursor heads is O(N*k) but simpler, and N stays small
// enough in practice that the difference doesn't matter.
func mergeRuns(runs []*SortedRun) []Record {
	cursors := make([]int, len(runs))
	total := 0
	for _, r := range runs {
		total += len(r.records)
	}

	out := make([]Record, 0, total)
	for {
		bestRun := -1
		for ri, r := range runs {
			if cursors[ri] >= len(r.records) {
				continue
			}
			if bestRun == -1 || recordLess(r.records[cursors[ri]], runs[bestRun].records[cursors[bestRun]]) {
				bestRun = ri
			}
		}
		if bestRun == -1 {
			break
		}
		out = append(out, runs[bestRun].records[cursors[bestRun]])
		cursors[bestRun]++
	}
	return out
}

// LowerBound returns the smallest index whose key is >= key, narrowing
// the search to the index's window before binary searching.
func (sr *SortedRun) LowerBound(key int64) int {
	begin, end := sr.idx.window(key, len(sr.records))
	lo, hi := begin, end
	for lo < hi {
		mid := (lo + hi) / 2
		if sr.records[mid].Key < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// UpperBound returns the smallest index whose key is > key.
func (sr *SortedRun) UpperBound(key int64) int {
	begin, end := sr.idx.window(key, len(sr.records))
	lo, hi := begin, end
	for lo < hi {
		mid := (lo + hi) / 2
		if sr.records[mid].Key <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Get performs a point lookup, returning the first non-deleted record
// matching key.
func (sr *SortedRun) Get(key int64) (Record, bool) {
	i := sr.LowerBound(key)
	for ; i < len(sr.records) && sr.records[i].Key == key; i++ {
		r := sr.records[i]
		if !r.IsTombstone() && !r.IsDeleted() {
			return r, true
		}
	}
	return Record{}, false
}

// HasTombstone reports whether a tombstone for (key, value) exists in this
// run, consulting the Bloom filter before scanning.
func (sr *SortedRun) HasTombstone(key, value int64) bool {
	if !sr.filter.Lookup(key) {
		return false
	}
	i := sr.LowerBound(key)
	for ; i < len(sr.records) && sr.records[i].Key == key; i++ {
		if sr.records[i].IsTombstone() && sr.records[i].Value == value {
			return true
		}
	}
	return false
}

// DeleteRecord sets the delete-tag bit on the first record matching
// (key, value), meaningful only under DeleteTag mode. Returns true iff a
// record was tagged. The write is best-effort/unsynchronized: the tag is
// an optimization, not a correctness hook, per the concurrency model.
func (sr *SortedRun) DeleteRecord(key, value int64) bool {
	i := sr.LowerBound(key)
	for ; i < len(sr.records) && sr.records[i].Key == key; i++ {
		if sr.records[i].Value == value && !sr.records[i].IsTombstone() {
			sr.records[i].setDeleted()
			return true
		}
	}
	return false
}

// RecordCount returns the number of records in this run.
func (sr *SortedRun) RecordCount() int { return len(sr.records) }

// TombstoneCount returns the number of tombstone records in this run.
func (sr *SortedRun) TombstoneCount() int { return sr.tombstoneCount }

// MinKey and MaxKey report the run's key bounds; valid only when
// RecordCount() > 0.
func (sr *SortedRun) MinKey() int64 { return sr.minKey }
func (sr *SortedRun) MaxKey() int64 { return sr.maxKey }

// sampleRangeDescriptor describes the portion of a run (or the memtable)
// that falls within a query's [lower, upper] bounds, plus the weight the
// SampleExecutor's descriptor-level alias should assign it.
type sampleRangeDescriptor struct {
	id          RunID
	run         *SortedRun // nil for a memtable descriptor
	memSnapshot []Record   // non-nil only for a memtable descriptor
	begin       int
	end         int // exclusive
	totalWeight float64
}

// MakeSampleRange returns a descriptor for the portion of this run lying
// within [lower, upper], or ok=false if the run's key range doesn't
// intersect the query at all.
func (sr *SortedRun) MakeSampleRange(lower, upper int64) (sampleRangeDescriptor, bool) {
	if sr.RecordCount() == 0 || upper < sr.minKey || lower > sr.maxKey {
		return sampleRangeDescriptor{}, false
	}
	begin := sr.LowerBound(lower)
	end := sr.UpperBound(upper)
	if begin >= end {
		return sampleRangeDescriptor{}, false
	}

	desc := sampleRangeDescriptor{run: sr, begin: begin, end: end}
	if sr.alias != nil {
		for i := begin; i < end; i++ {
			desc.totalWeight += sr.records[i].Weight
		}
	} else {
		desc.totalWeight = float64(end - begin)
	}
	return desc, true
}

// drawWithinRange draws one candidate record index from [begin, end) using
// either a uniform draw or the run's local alias, constrained (and
// rejection-resampled) to the descriptor's window.
func (sr *SortedRun) drawWithinRange(desc sampleRangeDescriptor, rng RNG) Record {
	if sr.alias == nil {
		i := desc.begin + int(rng.Uniform(uint64(desc.end-desc.begin)))
		return sr.records[i]
	}
	// The run's alias spans the whole run; rejection-resample draws that
	// fall outside this descriptor's window.
	for {
		i := sr.alias.Draw(rng)
		if i >= desc.begin && i < desc.end {
			return sr.records[i]
		}
	}
}
