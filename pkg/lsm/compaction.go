package lsm

import (
	"context"
	"sync"
	"time"

	"github.com/lsmsample/lsmsample/pkg/catalog"
	"github.com/lsmsample/lsmsample/pkg/logging"
	"github.com/lsmsample/lsmsample/pkg/pagestore"
)

// Compactor owns the merge policy: it decides when level L0 needs room,
// cascades merges down the stack under the tombstone-fraction bound, and
// installs the resulting Version. Exactly one Compactor goroutine per
// Engine calls MergeMemtable; installs are further serialized by
// mergeLock so two concurrent flush requests can't race each other's
// clone-and-install.
type Compactor struct {
	opts    EngineOptions
	logger  logging.Logger
	catalog *catalog.Store // optional; nil unless SetCatalog was called

	pageStore  pagestore.PageStore // optional; nil unless SetPageStore was called
	manifestMu sync.Mutex
	manifest   []RunManifest
}

// NewCompactor builds a Compactor for the given engine configuration.
func NewCompactor(opts EngineOptions, logger logging.Logger) *Compactor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Compactor{opts: opts, logger: logger}
}

// SetCatalog attaches a catalog.Store the Compactor reports every flush
// and level merge to. Passing nil disables reporting, which is also the
// default: most engines run with no Postgres audit trail configured.
func (c *Compactor) SetCatalog(store *catalog.Store) {
	c.catalog = store
}

// SetPageStore attaches a PageStore every run the Compactor builds is
// written through. Passing nil disables persistence, which is also the
// default: the in-memory Version tree is otherwise the only copy of a
// run's records.
func (c *Compactor) SetPageStore(store pagestore.PageStore) {
	c.pageStore = store
}

// Manifest returns a snapshot of the RunManifest entries recorded so far,
// oldest first, for a caller that wants to reload persisted runs with
// LoadRun after a restart.
func (c *Compactor) Manifest() []RunManifest {
	c.manifestMu.Lock()
	defer c.manifestMu.Unlock()
	out := make([]RunManifest, len(c.manifest))
	copy(out, c.manifest)
	return out
}

// persistIfConfigured writes run through the configured PageStore, if
// any, best-effort: a failure is logged but never blocks compaction,
// since the PageStore is a durability export, not the system of record
// for an already-installed Version.
func (c *Compactor) persistIfConfigured(run *SortedRun, level int) {
	if c.pageStore == nil || run == nil {
		return
	}
	m, err := persistRun(run, c.pageStore)
	if err != nil {
		c.logger.Warn("failed to persist run to page store",
			logging.Int("level", level), logging.Error(err))
		return
	}
	m.Level = level
	c.manifestMu.Lock()
	c.manifest = append(c.manifest, m)
	c.manifestMu.Unlock()
}

// recordEvent best-effort logs a catalog event in the background so a
// slow or unreachable audit database never holds up compaction itself.
func (c *Compactor) recordEvent(kind string, src, dst int, recordsMoved int64, start time.Time) {
	if c.catalog == nil {
		return
	}
	event := catalog.Event{
		Kind:         kind,
		SrcLevel:     src,
		DstLevel:     dst,
		RecordsMoved: recordsMoved,
		Duration:     time.Since(start),
		OccurredAt:   time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.catalog.Record(ctx, event); err != nil {
			c.logger.Warn("failed to record catalog event", logging.Error(err))
		}
	}()
}

// MergeMemtable runs the full merge algorithm: clone the version, make
// room at L0 if needed (cascading merges under the tombstone bound),
// build a new run from the memtable and install it at L0, enforce the
// tombstone bound there too, then return the new version for atomic
// installation by the caller.
func (c *Compactor) MergeMemtable(mt *MemTable, v *Version) *Version {
	start := time.Now()
	next := v.clone()
	c.ensureLevel(next, 0)

	incoming := c.tagDeletes(next, mt.SortedOutput())
	if !next.levels[0].CanAccept(len(incoming)) {
		c.makeRoom(next, 0)
	}

	run := buildSortedRun(incoming, c.opts)
	c.ensureLevel(next, 0)
	next.levels[0].AppendRun(run)
	c.persistIfConfigured(run, 0)
	c.enforceTombstoneBound(next, 0)

	c.logger.Info("merged memtable",
		logging.Int("records", len(incoming)),
		logging.Int("height", next.Height()))
	c.recordEvent("flush", -1, 0, int64(len(incoming)), start)

	return next
}

// tagDeletes implements DeleteTag: rather than carrying a tombstone
// forward into the new run, it tags the live record it shadows on
// whatever already-flushed level holds it and drops the tombstone from
// the incoming batch, so a later Get or rejection check can rely on the
// delete-tag bit instead of a tombstone scan. Under DeleteCancel it is a
// no-op; a tombstone with no match yet on disk (the common case for a
// delete racing its own insert) is kept and falls back to the tombstone
// path.
func (c *Compactor) tagDeletes(v *Version, incoming []Record) []Record {
	if c.opts.DeleteMode != DeleteTag {
		return incoming
	}
	out := make([]Record, 0, len(incoming))
	for _, r := range incoming {
		if r.IsTombstone() && c.tagExisting(v, r.Key, r.Value) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// tagExisting scans the version's levels in the same newest-first order
// Engine.Get uses, tagging the first live (key, value) match it finds.
func (c *Compactor) tagExisting(v *Version, key, value int64) bool {
	for _, level := range v.levels {
		for _, run := range level.runs {
			if run.DeleteRecord(key, value) {
				return true
			}
		}
	}
	return false
}

// ensureLevel grows the version's level slice so index i exists.
func (c *Compactor) ensureLevel(v *Version, i int) {
	for len(v.levels) <= i {
		idx := len(v.levels)
		v.levels = append(v.levels, newLevel(idx, c.opts.MemtableCap, c.opts.ScaleFactor, c.opts.Policy))
	}
}

// makeRoom implements the cascade: find the first level i>=1 that can
// accept level i-1's data (growing the stack if none exists), merge
// levels i-1 down into i for j=i..1, and recurse into make_room(j, ...)
// whenever a merge leaves level j over the tombstone bound. The cascade
// depth is bounded to the stack height observed when the cascade starts,
// so a pathological tombstone burst can't recurse without bound.
func (c *Compactor) makeRoom(v *Version, at int) {
	maxDepth := v.Height()
	c.makeRoomBounded(v, at, maxDepth)
}

func (c *Compactor) makeRoomBounded(v *Version, at, depthBudget int) {
	if depthBudget <= 0 {
		c.logger.Warn("cascade depth budget exhausted",
			logging.Int("level", at))
		return
	}

	i := at + 1
	for {
		c.ensureLevel(v, i)
		if v.levels[i].CanAccept(v.levels[i-1].RecordCount()) {
			break
		}
		i++
		if i > 64 { // pathological guard; stack growth is otherwise unbounded
			break
		}
	}

	for j := i; j >= at+1; j-- {
		c.mergeLevelInto(v, j-1, j)
		if v.levels[j].TombstoneFraction() > c.opts.TombstoneMaxFraction {
			c.makeRoomBounded(v, j, depthBudget-1)
		}
	}
}

// mergeLevelInto merges the entirety of level src into level dst: under
// leveling the combined runs collapse into a single new run that replaces
// dst's run; under tiering the merged runs are appended as dst's next
// slot (or, if that would overflow dst's run-count limit, collapsed into
// one run first). src is cleared afterward.
func (c *Compactor) mergeLevelInto(v *Version, src, dst int) {
	start := time.Now()
	source := v.levels[src]
	if source.RunCount() == 0 {
		return
	}
	movedRecords := int64(source.RecordCount())
	destination := v.levels[dst]

	toMerge := append([]*SortedRun{}, destination.runs...)
	toMerge = append(toMerge, source.runs...)

	var merged *SortedRun
	switch destination.policy {
	case Tiering:
		if len(destination.runs)+1 > destination.scale {
			merged = NewSortedRunFromRuns(toMerge, c.opts)
			destination.runs = []*SortedRun{merged}
		} else {
			merged = NewSortedRunFromRuns(source.runs, c.opts)
			destination.runs = append(destination.runs, merged)
		}
	default:
		merged = NewSortedRunFromRuns(toMerge, c.opts)
		destination.runs = []*SortedRun{merged}
	}

	source.Clear()
	c.persistIfConfigured(merged, dst)
	c.logger.Info("merged level",
		logging.Int("src", src), logging.Int("dst", dst),
		logging.Int("dst_records", destination.RecordCount()))
	c.recordEvent("compaction", src, dst, movedRecords, start)
}

// enforceTombstoneBound acts on level i when its tombstone fraction exceeds
// tau. A level above the last is emptied into deeper levels through
// makeRoom. The last level has its runs merged into one: under DeleteCancel
// that merge drops adjacent record/tombstone pairs with equal keys, but
// tombstones with no such partner (and every tombstone under DeleteTag)
// are kept, so the last level's fraction can stay above tau.
func (c *Compactor) enforceTombstoneBound(v *Version, i int) {
	level := v.levels[i]
	if level.TombstoneFraction() <= c.opts.TombstoneMaxFraction {
		return
	}
	if i == len(v.levels)-1 {
		// Last level: self-merge its runs. Only cancellable pairs are
		// removed; unmatched tombstones are carried into the merged run.
		merged := NewSortedRunFromRuns(level.runs, c.opts)
		level.runs = []*SortedRun{merged}
		return
	}
	c.makeRoom(v, i)
}
