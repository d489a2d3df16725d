package lsm

// SampleExecutor implements the two-phase range-sample algorithm:
// build per-run sample-range descriptors, draw descriptors
// proportional to their weight via a cumulative alias, draw candidate
// records within each chosen descriptor, and reject tombstoned,
// out-of-range, or deleted candidates in successive passes until k
// records have been accepted. If no draw has been accepted yet and no
// record in any descriptor can be accepted, it returns an empty result.
type SampleExecutor struct {
	opts EngineOptions
}

// NewSampleExecutor builds a SampleExecutor for the given configuration.
func NewSampleExecutor(opts EngineOptions) *SampleExecutor {
	return &SampleExecutor{opts: opts}
}

// RangeSample draws k live records with keys in [lower, upper], pinning v
// and using memSnapshot as the consistent memtable-set view taken at the
// start of sampling.
func (se *SampleExecutor) RangeSample(lower, upper int64, k int, v *Version, memSnapshot []Record, rng RNG) ([]Record, error) {
	if lower > upper {
		return nil, ErrInvalidRange
	}
	if k <= 0 {
		return nil, nil
	}

	descriptors := se.buildDescriptors(lower, upper, v, memSnapshot)
	if len(descriptors) == 0 {
		return nil, nil
	}

	weights := make([]float64, len(descriptors))
	for i, d := range descriptors {
		if se.opts.SampleMode == SampleWIRS {
			weights[i] = d.totalWeight
		} else {
			weights[i] = float64(d.end - d.begin)
		}
	}
	descAlias := NewAliasTable(weights)

	out := make([]Record, 0, k)
	needed := k
	live := false // set once some descriptor record is known to be acceptable
	for needed > 0 {
		runSamples := make([]int, len(descriptors))
		for i := 0; i < needed; i++ {
			runSamples[descAlias.Draw(rng)]++
		}

		rejected := 0
		for di, n := range runSamples {
			if n == 0 {
				continue
			}
			desc := descriptors[di]
			for j := 0; j < n; j++ {
				rec, rid := se.drawCandidate(desc, rng)
				if se.reject(rec, rid, lower, upper, memSnapshot, v) {
					rejected++
					continue
				}
				out = append(out, rec)
			}
		}
		needed = rejected
		if needed == k && !live {
			for _, d := range descriptors {
				src := d.memSnapshot
				if d.run != nil {
					src = d.run.records
				}
				for i := d.begin; i < d.end && !live; i++ {
					live = !se.reject(src[i], d.id, lower, upper, memSnapshot, v)
				}
			}
			if !live {
				return out, nil
			}
		}
	}

	return out, nil
}

// buildDescriptors constructs one descriptor for the memtable snapshot (if
// it has any records in range) plus one per intersecting run across every
// level of v.
func (se *SampleExecutor) buildDescriptors(lower, upper int64, v *Version, memSnapshot []Record) []sampleRangeDescriptor {
	var out []sampleRangeDescriptor

	if memDesc, ok := se.memtableDescriptor(lower, upper, memSnapshot); ok {
		out = append(out, memDesc)
	}

	for li, level := range v.levels {
		for ri, run := range level.runs {
			desc, ok := run.MakeSampleRange(lower, upper)
			if !ok {
				continue
			}
			desc.id = RunID{LevelIdx: li, RunIdx: ri}
			out = append(out, desc)
		}
	}
	return out
}

// memtableDescriptor builds a single descriptor covering every in-range
// record of the memtable snapshot. The memtable is always scanned linearly
// since it carries no auxiliary index.
func (se *SampleExecutor) memtableDescriptor(lower, upper int64, snapshot []Record) (sampleRangeDescriptor, bool) {
	var inRange []Record
	total := 0.0
	for _, r := range snapshot {
		if r.Key >= lower && r.Key <= upper {
			inRange = append(inRange, r)
			total += r.Weight
		}
	}
	if len(inRange) == 0 {
		return sampleRangeDescriptor{}, false
	}
	weight := total
	if se.opts.SampleMode == SampleUniform {
		weight = float64(len(inRange))
	}
	return sampleRangeDescriptor{
		id:          RunID{LevelIdx: -1, RunIdx: 0},
		memSnapshot: inRange,
		begin:       0,
		end:         len(inRange),
		totalWeight: weight,
	}, true
}

// drawCandidate draws one candidate record (and its RunID) from within a
// descriptor's window.
func (se *SampleExecutor) drawCandidate(desc sampleRangeDescriptor, rng RNG) (Record, RunID) {
	if desc.memSnapshot != nil {
		if se.opts.SampleMode == SampleWIRS {
			// Walk cumulative weights so memtable draws follow weight.
			target := rng.Uniform01() * desc.totalWeight
			for _, r := range desc.memSnapshot {
				if target -= r.Weight; target < 0 {
					return r, desc.id
				}
			}
		}
		i := int(rng.Uniform(uint64(len(desc.memSnapshot))))
		return desc.memSnapshot[i], desc.id
	}
	return desc.run.drawWithinRange(desc, rng), desc.id
}

// reject reports whether a drawn candidate must be rejected: tombstone,
// out-of-bounds, or logically-deleted candidates are all rejected.
func (se *SampleExecutor) reject(rec Record, rid RunID, lower, upper int64, memSnapshot []Record, v *Version) bool {
	if rec.IsTombstone() {
		return true
	}
	if rec.Key < lower || rec.Key > upper {
		return true
	}
	return se.isDeleted(rec, rid, memSnapshot, v)
}

// isDeleted reports whether rec is shadowed by a tombstone: the
// memtable's own tombstone state always applies; for a run-resident
// record, any shallower level, or any newer run within the same level,
// may carry the matching tombstone.
func (se *SampleExecutor) isDeleted(rec Record, rid RunID, memSnapshot []Record, v *Version) bool {
	for _, m := range memSnapshot {
		if m.IsTombstone() && m.Key == rec.Key && m.Value == rec.Value {
			return true
		}
	}

	if isMemtableRunID(rid) {
		return false
	}

	for l := 0; l < rid.LevelIdx; l++ {
		for _, run := range v.levels[l].runs {
			if run.HasTombstone(rec.Key, rec.Value) {
				return true
			}
		}
	}

	level := v.levels[rid.LevelIdx]
	for ri := rid.RunIdx + 1; ri < len(level.runs); ri++ {
		if level.runs[ri].HasTombstone(rec.Key, rec.Value) {
			return true
		}
	}

	// A delete-tagged record is itself authoritative without consulting
	// any other level.
	return rec.IsDeleted()
}
