package lsm

import "sync/atomic"

// Version is an immutable snapshot of the level stack: L0 newest, last
// level oldest. Readers pin a Version for the duration of a query so the
// Compactor can safely retire it once every pin has been released.
type Version struct {
	levels []*Level
	pins   atomic.Int64
}

// newVersion wraps a level slice as a fresh, unpinned Version.
func newVersion(levels []*Level) *Version {
	return &Version{levels: levels}
}

// clone deep-clones the level slice (but shares SortedRuns) so the
// Compactor can mutate the clone while readers keep querying the
// original.
func (v *Version) clone() *Version {
	levels := make([]*Level, len(v.levels))
	for i, l := range v.levels {
		levels[i] = l.clone()
	}
	return newVersion(levels)
}

// Height returns the number of levels in the stack.
func (v *Version) Height() int { return len(v.levels) }

// pin increments the version's pin counter. Pairs with exactly one unpin
// call; the core never relies on re-entrant pinning.
func (v *Version) pin() {
	if v.pins.Add(1) <= 0 {
		panic(ErrPinExhaustion)
	}
}

// unpin decrements the pin counter. Exactly one unpin must follow every
// successful pin.
func (v *Version) unpin() {
	v.pins.Add(-1)
}

// pinCount reports the current pin count, used by the Compactor to decide
// when a superseded version is safe to drop.
func (v *Version) pinCount() int64 {
	return v.pins.Load()
}

// versionStack is the engine's atomically-swapped pointer to the current
// Version plus the sequentially-consistent version_num readers use to
// detect a concurrent swap while pinning.
//
// The reference implementation's pin_version has an early-retry path that
// can pair one pin attempt with two unpin calls under a rare interleaving.
// The retry loop in Pin below instead only ever commits a pin after confirming the
// version pointer it incremented is still current, so a caller that
// receives a *Version from Pin() is guaranteed exactly one matching Unpin
// call is correct and sufficient.
type versionStack struct {
	current atomic.Pointer[Version]
	seq     atomic.Uint64
}

func newVersionStack(v *Version) *versionStack {
	vs := &versionStack{}
	vs.current.Store(v)
	vs.seq.Add(1)
	return vs
}

// Pin returns the current Version with its pin counter already
// incremented. The caller must call Unpin exactly once when done.
func (vs *versionStack) Pin() *Version {
	for {
		before := vs.seq.Load()
		v := vs.current.Load()
		v.pin()
		after := vs.seq.Load()
		if before == after {
			return v
		}
		// The version changed between load and pin; this pin was taken
		// against a version that may already be retiring. Undo it and
		// retry against the now-current version.
		v.unpin()
	}
}

// Unpin releases a pin obtained from Pin.
func (vs *versionStack) Unpin(v *Version) {
	v.unpin()
}

// install atomically swaps in a new Version and bumps the sequence
// counter so any Pin racing the swap is forced to retry.
func (vs *versionStack) install(v *Version) *Version {
	old := vs.current.Load()
	vs.current.Store(v)
	vs.seq.Add(1)
	return old
}

// Current returns the current Version without pinning it; callers that
// need isolation must use Pin.
func (vs *versionStack) Current() *Version {
	return vs.current.Load()
}
