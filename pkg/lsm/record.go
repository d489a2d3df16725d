package lsm

// Record is the fixed-width unit of storage: a 64-bit key, a 64-bit value,
// a sampling weight, and a packed header. Bit 0 of the header is the
// tombstone flag, bit 1 is the delete tag, and the remaining bits carry a
// monotonic insertion index assigned by the owning MemTable.
type Record struct {
	Key    int64
	Value  int64
	Weight float64
	Header uint64
}

const (
	headerTombstoneBit = uint64(1) << 0
	headerDeleteTagBit = uint64(1) << 1
	headerIndexShift   = 2
)

// newHeader packs a tombstone flag and an insertion index into a header.
func newHeader(isTombstone bool, index uint64) uint64 {
	h := index << headerIndexShift
	if isTombstone {
		h |= headerTombstoneBit
	}
	return h
}

// IsTombstone reports whether the record represents a deletion marker.
func (r Record) IsTombstone() bool {
	return r.Header&headerTombstoneBit != 0
}

// IsDeleted reports whether the delete-tag bit has been set on this record.
// The tag is an optimization only; readers must still consult tombstones.
func (r Record) IsDeleted() bool {
	return r.Header&headerDeleteTagBit != 0
}

// InsertionIndex returns the stable per-insert ordinal stored in the header.
func (r Record) InsertionIndex() uint64 {
	return r.Header >> headerIndexShift
}

// withTombstoneOnly strips the insertion index and the delete tag, keeping
// only the tombstone flag. SortedRun construction uses withPersistentFlags
// instead.
func (r Record) withTombstoneOnly() Record {
	r.Header = 0
	if r.IsTombstone() {
		r.Header = headerTombstoneBit
	}
	return r
}

func (r *Record) setDeleted() {
	r.Header |= headerDeleteTagBit
}

// withPersistentFlags strips the insertion index but keeps the tombstone
// and delete-tag bits, unlike withTombstoneOnly: a run rebuilt by a later
// merge must not forget a delete tag DeleteRecord set on one of its
// source runs.
func (r Record) withPersistentFlags() Record {
	r.Header &= headerTombstoneBit | headerDeleteTagBit
	return r
}

// recordLess orders records by (key, tombstone-flag-last): when keys tie, a
// plain record sorts before a tombstone so cancellation can see adjacent
// pairs during a merge.
func recordLess(a, b Record) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return !a.IsTombstone() && b.IsTombstone()
}

// RunID identifies a SortedRun's position for tombstone-visibility checks:
// its level index and its slot within that level. A negative LevelIdx marks
// a memtable-resident record, for which RunIdx carries no meaning.
type RunID struct {
	LevelIdx int
	RunIdx   int
}

// isMemtableRunID reports whether a RunID refers to the active memtable set
// rather than a persisted SortedRun.
func isMemtableRunID(id RunID) bool {
	return id.LevelIdx < 0
}
