package lsm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// MemTable is the bounded, mostly-lock-free append buffer that sits ahead
// of every SortedRun. Appends reserve a slot via atomic fetch-add so many
// writers can append concurrently; only the merging flag and Truncate take
// the lock, and only the engine's flush path uses them.
type MemTable struct {
	cap      int
	tsCap    int
	records  []Record // fixed-size backing array, length == cap
	written  atomic.Int64
	count    atomic.Int64 // records actually written (release side of the barrier)
	tsCount  atomic.Int64
	tsFilter *BloomFilter

	mu       sync.RWMutex // guards merging/truncate lifecycle only
	merging  bool
}

// NewMemTable allocates a memtable with the given record and tombstone
// capacities, and a tombstone filter sized for tsCap at fpr.
func NewMemTable(cap, tsCap int, fpr float64) *MemTable {
	if cap <= 0 {
		cap = 1
	}
	if tsCap <= 0 {
		tsCap = 1
	}
	return &MemTable{
		cap:      cap,
		tsCap:    tsCap,
		records:  make([]Record, cap),
		tsFilter: NewBloomFilter(tsCap, fpr),
	}
}

// Append reserves a slot for (key, value, weight), optionally as a
// tombstone. It fails with ErrCapacityExhausted once the record count
// would exceed cap, or ErrTombstoneCapacityExhausted once a tombstone
// count would exceed ts_cap while room for plain records may remain.
func (mt *MemTable) Append(key, value int64, weight float64, isTombstone bool) error {
	if isTombstone {
		if mt.tsCount.Load() >= int64(mt.tsCap) {
			return ErrTombstoneCapacityExhausted
		}
	}

	slot := mt.written.Add(1) - 1
	if slot >= int64(mt.cap) {
		return ErrCapacityExhausted
	}

	rec := Record{
		Key:    key,
		Value:  value,
		Weight: weight,
		Header: newHeader(isTombstone, uint64(slot)),
	}
	// The record payload must be visible to any reader that subsequently
	// observes count() >= slot+1; storing into the slice before the
	// atomic count increment gives that release-acquire ordering.
	mt.records[slot] = rec

	if isTombstone {
		mt.tsFilter.Insert(key)
		mt.tsCount.Add(1)
	}
	mt.count.Add(1)
	return nil
}

// RecordCount returns the number of records successfully appended so far.
func (mt *MemTable) RecordCount() int { return int(mt.count.Load()) }

// TombstoneCount returns the number of tombstone records appended so far.
func (mt *MemTable) TombstoneCount() int { return int(mt.tsCount.Load()) }

// IsFull reports whether the memtable has reached its record capacity.
func (mt *MemTable) IsFull() bool { return mt.count.Load() >= int64(mt.cap) }

// CheckTombstone reports whether a tombstone for (key, value) exists in
// this memtable. The filter lookup short-circuits the common case where
// no such tombstone was ever inserted.
func (mt *MemTable) CheckTombstone(key, value int64) bool {
	if !mt.tsFilter.Lookup(key) {
		return false
	}
	n := mt.RecordCount()
	for i := 0; i < n; i++ {
		r := mt.records[i]
		if r.Key == key && r.Value == value && r.IsTombstone() {
			return true
		}
	}
	return false
}

// snapshot returns the live record slice as of the call, for use by both
// sorted_output and the SampleExecutor's memtable descriptor. Safe to call
// concurrently with Append; it only ever observes a prefix of records that
// have completed their release-acquire write.
func (mt *MemTable) snapshot() []Record {
	n := mt.RecordCount()
	return mt.records[:n]
}

// SortedOutput returns the memtable's records sorted by (key, insertion
// order), ready to stream into a SortedRun. Must be called exactly once
// per memtable lifetime, immediately before the memtable is merged away.
func (mt *MemTable) SortedOutput() []Record {
	snap := mt.snapshot()
	out := make([]Record, len(snap))
	copy(out, snap)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].InsertionIndex() < out[j].InsertionIndex()
	})
	return out
}

// markMerging marks the memtable as being merged away under its lifecycle
// lock, returning true iff this call won the race. Once merging, Append calls
// made by a writer that already reserved a slot are unaffected, but no new
// successful Append should be relied upon by the engine after this point;
// the engine's contract is to swap the active memtable pointer first.
func (mt *MemTable) markMerging() bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.merging {
		return false
	}
	mt.merging = true
	return true
}

// IsMerging reports whether the memtable has been claimed for flushing.
func (mt *MemTable) IsMerging() bool {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.merging
}

// Truncate resets the memtable to empty so it can be recycled into the
// rotation. The caller (the engine's flush path) must guarantee no reader still
// holds a pin on a version that references this memtable's snapshot.
func (mt *MemTable) Truncate() {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for i := range mt.records {
		mt.records[i] = Record{}
	}
	mt.written.Store(0)
	mt.count.Store(0)
	mt.tsCount.Store(0)
	mt.tsFilter.Clear()
	mt.merging = false
}
