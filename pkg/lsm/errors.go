package lsm

import "errors"

// Error kinds returned by the public API. These are conditions, not
// exceptional faults: callers are expected to branch on them with
// errors.Is.
var (
	// ErrCapacityExhausted is returned when an append fails because the
	// memtable is full and no rotation is yet available.
	ErrCapacityExhausted = errors.New("lsm: memtable capacity exhausted")

	// ErrTombstoneCapacityExhausted is returned when a tombstone append
	// would exceed the memtable's tombstone capacity, even though
	// non-tombstone appends may still succeed.
	ErrTombstoneCapacityExhausted = errors.New("lsm: tombstone capacity exhausted")

	// ErrInvalidRange is returned by range_sample when lower > upper.
	ErrInvalidRange = errors.New("lsm: invalid sample range")

	// ErrIO is returned when the page store reports failure during a
	// flush or persisted-run read.
	ErrIO = errors.New("lsm: page store I/O error")

	// ErrPinExhaustion guards against pin-counter overflow; it should
	// never occur in practice and indicates a leaked pin.
	ErrPinExhaustion = errors.New("lsm: version pin counter exhausted")

	// ErrIncompatibleFilters is returned when merging two Bloom filters
	// built with different parameters.
	ErrIncompatibleFilters = errors.New("lsm: incompatible bloom filters")
)
