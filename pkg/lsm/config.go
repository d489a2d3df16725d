package lsm

// Policy selects how a Level organizes its runs.
type Policy int

const (
	// Leveling keeps at most one run per level, replacing it on merge.
	Leveling Policy = iota
	// Tiering keeps up to ScaleFactor runs per level, appending on merge.
	Tiering
)

// DeleteMode selects how deletions are represented across a merge.
type DeleteMode int

const (
	// DeleteCancel drops adjacent (record, tombstone) pairs with an equal
	// key during a merge, rather than carrying the tombstone forward.
	DeleteCancel DeleteMode = iota
	// DeleteTag sets a delete-tag bit on the matching live record instead
	// of cancelling, so a sample can reject without scanning newer
	// levels, at the cost of heavier runs.
	DeleteTag
)

// SampleMode selects the sampling distribution.
type SampleMode int

const (
	// SampleUniform draws records uniformly from the queried range.
	SampleUniform SampleMode = iota
	// SampleWIRS draws records with probability proportional to weight.
	SampleWIRS
)

// IndexKind selects the auxiliary locator a SortedRun builds over its
// records.
type IndexKind int

const (
	// IndexISAM builds a classical multi-level fanout directory.
	IndexISAM IndexKind = iota
	// IndexSpline builds a learned piecewise-linear locator.
	IndexSpline
	// IndexNone performs a plain binary search with no auxiliary
	// structure; suitable for small runs where an index isn't worth it.
	IndexNone
)

// EngineOptions configures an Engine instance. Validation of these values
// (beyond the defaulting EngineOptions.normalize performs) lives in
// package validation, which package config applies when loading a file.
type EngineOptions struct {
	// MemtableCount is the number of rotating memtables (>= 2).
	MemtableCount int
	// MemtableCap is the maximum record count per memtable (B).
	MemtableCap int
	// MemtableTombstoneCap is the maximum tombstone count per memtable.
	MemtableTombstoneCap int

	// ScaleFactor (S) is the level growth ratio.
	ScaleFactor int
	// Policy selects leveling or tiering.
	Policy Policy

	// TombstoneMaxFraction (tau) triggers a cascade when exceeded.
	TombstoneMaxFraction float64

	// BloomFPR is the target false-positive rate for tombstone filters.
	BloomFPR float64
	// BloomK, if > 0, overrides the filter's derived hash count.
	BloomK int

	// SampleMode selects uniform or WIRS sampling.
	SampleMode SampleMode
	// DeleteMode selects cancellation or tagging.
	DeleteMode DeleteMode

	// IndexKind selects the SortedRun auxiliary locator.
	IndexKind IndexKind
	// IndexPageSize is the ISAM leaf page size (records per page).
	IndexPageSize int
	// IndexMaxError is the spline's maximum positional error bound.
	IndexMaxError int

	// RNG is the random source driving all sampling; if nil, the engine
	// builds a seeded MT19937.
	RNG RNG
	// Seed seeds the default RNG when RNG is nil.
	Seed uint64
}

// DefaultEngineOptions returns sane defaults for a small to medium
// workload.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		MemtableCount:         2,
		MemtableCap:           1000,
		MemtableTombstoneCap:  1000,
		ScaleFactor:           2,
		Policy:                Leveling,
		TombstoneMaxFraction:  0.2,
		BloomFPR:              0.01,
		BloomK:                0,
		SampleMode:            SampleUniform,
		DeleteMode:            DeleteCancel,
		IndexKind:             IndexISAM,
		IndexPageSize:         64,
		IndexMaxError:         32,
		Seed:                  0x5eed,
	}
}

// normalize fills in any zero-valued fields with defaults.
func (o EngineOptions) normalize() EngineOptions {
	d := DefaultEngineOptions()
	if o.MemtableCount < 2 {
		o.MemtableCount = d.MemtableCount
	}
	if o.MemtableCap <= 0 {
		o.MemtableCap = d.MemtableCap
	}
	if o.MemtableTombstoneCap <= 0 {
		o.MemtableTombstoneCap = d.MemtableTombstoneCap
	}
	if o.ScaleFactor < 2 {
		o.ScaleFactor = d.ScaleFactor
	}
	if o.TombstoneMaxFraction <= 0 || o.TombstoneMaxFraction > 1 {
		o.TombstoneMaxFraction = d.TombstoneMaxFraction
	}
	if o.BloomFPR <= 0 || o.BloomFPR >= 1 {
		o.BloomFPR = d.BloomFPR
	}
	if o.IndexPageSize <= 0 {
		o.IndexPageSize = d.IndexPageSize
	}
	if o.IndexMaxError <= 0 {
		o.IndexMaxError = d.IndexMaxError
	}
	if o.RNG == nil {
		if o.Seed == 0 {
			o.Seed = d.Seed
		}
		o.RNG = NewMT19937(o.Seed)
	}
	return o
}
