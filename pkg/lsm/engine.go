package lsm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lsmsample/lsmsample/pkg/catalog"
	"github.com/lsmsample/lsmsample/pkg/logging"
	"github.com/lsmsample/lsmsample/pkg/metrics"
	"github.com/lsmsample/lsmsample/pkg/pagestore"
)

// Engine is the public facade: it owns the rotating memtable set, the
// current pinned Version, and the background Compactor goroutine that
// drains full memtables into the level stack.
type Engine struct {
	opts EngineOptions

	memtables []*MemTable
	active    atomic.Int64 // index into memtables

	versions *versionStack
	compactor *Compactor
	executor  *SampleExecutor

	mergeLock sync.Mutex
	flushChan chan struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewEngine constructs an Engine with the given options, starting its
// background flush worker.
func NewEngine(opts EngineOptions, logger logging.Logger, reg *metrics.Registry) *Engine {
	opts = opts.normalize()
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	memtables := make([]*MemTable, opts.MemtableCount)
	for i := range memtables {
		memtables[i] = NewMemTable(opts.MemtableCap, opts.MemtableTombstoneCap, opts.BloomFPR)
	}

	e := &Engine{
		opts:      opts,
		memtables: memtables,
		versions:  newVersionStack(newVersion(nil)),
		compactor: NewCompactor(opts, logger),
		executor:  NewSampleExecutor(opts),
		flushChan: make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		logger:    logger,
		metrics:   reg,
	}

	e.wg.Add(1)
	go e.flushWorker()

	return e
}

// Close stops the background flush worker and waits for it to return, so
// a merge the worker has already started finishes installing first.
// Memtables that have not been claimed for a merge are not flushed.
func (e *Engine) Close() {
	close(e.stopChan)
	e.wg.Wait()
}

// SetCatalog attaches a catalog.Store that every flush and level merge
// reports to. Pass nil to disable reporting.
func (e *Engine) SetCatalog(store *catalog.Store) {
	e.compactor.SetCatalog(store)
}

// SetPageStore attaches a pagestore.PageStore that every run the
// Compactor builds is written through. Pass nil to disable persistence.
func (e *Engine) SetPageStore(store pagestore.PageStore) {
	e.compactor.SetPageStore(store)
}

// PersistedRuns returns the RunManifest entries the Compactor has
// recorded so far, for a caller that wants to reload them with
// lsm.LoadRun after a restart.
func (e *Engine) PersistedRuns() []RunManifest {
	return e.compactor.Manifest()
}

func (e *Engine) activeMemtable() *MemTable {
	return e.memtables[int(e.active.Load())%len(e.memtables)]
}

// Append inserts (key, value, weight) with an optional tombstone flag. It
// retries against successive rotated memtables until one accepts the
// record, requesting a flush whenever the current one is full.
func (e *Engine) Append(key, value int64, weight float64, isTombstone bool) error {
	start := time.Now()
	for {
		mt := e.activeMemtable()
		err := mt.Append(key, value, weight, isTombstone)
		if err == nil {
			e.metrics.RecordAppend("ok", time.Since(start))
			if mt.IsFull() {
				e.triggerFlush()
			}
			return nil
		}
		if err == ErrTombstoneCapacityExhausted {
			e.metrics.RecordAppend("ts_full", time.Since(start))
			return err
		}

		// err == ErrCapacityExhausted: this memtable is full. Request a
		// flush and rotate to the next memtable, then retry. If every
		// memtable is currently full, spin in a short bounded wait until
		// the Compactor frees one up.
		e.triggerFlush()
		if !e.rotate() {
			time.Sleep(time.Millisecond)
		}
	}
}

// rotate advances the active memtable pointer to the next memtable, if
// that memtable isn't itself full, returning true on progress.
func (e *Engine) rotate() bool {
	cur := int(e.active.Load())
	next := (cur + 1) % len(e.memtables)
	if e.memtables[next].IsFull() {
		return false
	}
	e.active.CompareAndSwap(int64(cur), int64(next))
	return true
}

// triggerFlush asks the background worker to merge a full memtable; it is
// non-blocking and coalesces duplicate requests.
func (e *Engine) triggerFlush() {
	select {
	case e.flushChan <- struct{}{}:
	default:
	}
}

func (e *Engine) flushWorker() {
	defer e.wg.Done()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-e.flushChan:
			e.flushOne()
		case <-ticker.C:
			e.flushOne()
		case <-e.stopChan:
			return
		}
	}
}

// flushOne finds the first full, not-yet-merging memtable and runs the
// full merge_memtable algorithm, installing the resulting version.
func (e *Engine) flushOne() {
	var target *MemTable
	for _, mt := range e.memtables {
		if mt.IsFull() && !mt.IsMerging() {
			target = mt
			break
		}
	}
	if target == nil {
		return
	}
	if !target.markMerging() {
		return
	}

	e.mergeLock.Lock()
	defer e.mergeLock.Unlock()

	start := time.Now()
	old := e.versions.Current()
	next := e.compactor.MergeMemtable(target, old)
	prev := e.versions.install(next)

	e.metrics.RecordFlush(time.Since(start))
	e.reportLevelMetrics(next)

	// Wait for the superseded version's pins to drain before truncating
	// the memtable and reclaiming the old version's memory: a version is
	// safe to destroy only once its pin counter reaches zero.
	for prev != nil && prev.pinCount() > 0 {
		time.Sleep(time.Millisecond)
	}

	target.Truncate()
}

func (e *Engine) reportLevelMetrics(v *Version) {
	e.metrics.UpdateEngineState(v.Height(), v.pinCount())
	for i, level := range v.levels {
		e.metrics.UpdateLevelMetrics(i, level.RecordCount(), level.RunCount(), level.TombstoneFraction())
	}
}

// RangeSample draws k live records from [lower, upper].
func (e *Engine) RangeSample(lower, upper int64, k int) ([]Record, error) {
	start := time.Now()
	v := e.versions.Pin()
	defer e.versions.Unpin(v)

	snapshot := e.memtableSnapshot()
	out, err := e.executor.RangeSample(lower, upper, k, v, snapshot, e.opts.RNG)

	mode := "uniform"
	if e.opts.SampleMode == SampleWIRS {
		mode = "wirs"
	}
	e.metrics.RecordSample(mode, time.Since(start))
	return out, err
}

// memtableSnapshot collects every memtable's current record view, in
// memtable slot order, matching "a consistent view of the current memtable
// set (snapshot of record slice bounds)".
func (e *Engine) memtableSnapshot() []Record {
	var out []Record
	for _, mt := range e.memtables {
		out = append(out, mt.snapshot()...)
	}
	return out
}

// Get performs a point lookup: memtables first (newest rotation first),
// then each level from newest to oldest, returning the first non-tombstone
// match. A tombstone observed before any matching record yields "not
// found".
func (e *Engine) Get(key int64) (Record, bool) {
	v := e.versions.Pin()
	defer e.versions.Unpin(v)

	cur := int(e.active.Load())
	for i := 0; i < len(e.memtables); i++ {
		mt := e.memtables[(cur-i+len(e.memtables))%len(e.memtables)]
		if rec, tomb, found := getFromSnapshot(mt.snapshot(), key); found {
			if tomb {
				return Record{}, false
			}
			return rec, true
		}
	}

	for _, level := range v.levels {
		// Newest run first: AppendRun always appends to the end of
		// level.runs, so under Tiering a later-flushed tombstone run can
		// sit at a higher index than the live record it shadows. Checking
		// from the end matches SampleExecutor.isDeleted's "run index
		// strictly greater than rid.run_idx" rule.
		for i := len(level.runs) - 1; i >= 0; i-- {
			run := level.runs[i]
			if rec, ok := run.Get(key); ok {
				return rec, true
			}
			// A tombstone with no live match in this run still shadows
			// any older copy of the key in deeper levels.
			if run.filter.Lookup(key) {
				for j := run.LowerBound(key); j < run.RecordCount() && run.records[j].Key == key; j++ {
					if run.records[j].IsTombstone() {
						return Record{}, false
					}
				}
			}
		}
	}
	return Record{}, false
}

func getFromSnapshot(snapshot []Record, key int64) (Record, bool, bool) {
	for i := len(snapshot) - 1; i >= 0; i-- {
		r := snapshot[i]
		if r.Key != key {
			continue
		}
		if r.IsTombstone() {
			return Record{}, true, true
		}
		return r, false, true
	}
	return Record{}, false, false
}

// RecordCount reports the total live-or-not record count across the
// pinned version and the memtable set.
func (e *Engine) RecordCount() int {
	v := e.versions.Pin()
	defer e.versions.Unpin(v)

	n := 0
	for _, mt := range e.memtables {
		n += mt.RecordCount()
	}
	for _, level := range v.levels {
		n += level.RecordCount()
	}
	return n
}

// TombstoneCount reports the total tombstone count across the pinned
// version and the memtable set.
func (e *Engine) TombstoneCount() int {
	v := e.versions.Pin()
	defer e.versions.Unpin(v)

	n := 0
	for _, mt := range e.memtables {
		n += mt.TombstoneCount()
	}
	for _, level := range v.levels {
		n += level.TombstoneCount()
	}
	return n
}

// Height reports the number of levels in the current version.
func (e *Engine) Height() int {
	v := e.versions.Pin()
	defer e.versions.Unpin(v)
	return v.Height()
}

// MemoryUtilization reports the fraction of aggregate memtable capacity
// currently occupied.
func (e *Engine) MemoryUtilization() float64 {
	total := 0
	used := 0
	for _, mt := range e.memtables {
		total += mt.cap
		used += mt.RecordCount()
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}
