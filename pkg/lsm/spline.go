package lsm

// splineIndex is a learned-index locator: a piecewise-linear approximation
// from key to position, built by greedily adding knots only when the
// current linear segment's error would exceed maxError. lowerBound callers
// get back a [begin, end) window around the estimated position,
// narrowing binary search without an ISAM directory's page structure.
type splineIndex struct {
	maxError int
	knotKeys []int64
	knotPos  []int64
}

// buildSplineIndex builds a spline over sorted keys with the given
// maximum positional error bound.
func buildSplineIndex(keys []int64, maxError int) *splineIndex {
	if maxError < 1 {
		maxError = 1
	}
	s := &splineIndex{maxError: maxError}
	if len(keys) == 0 {
		return s
	}

	addKnot := func(i int) {
		s.knotKeys = append(s.knotKeys, keys[i])
		s.knotPos = append(s.knotPos, int64(i))
	}
	addKnot(0)

	last := 0
	for i := 1; i < len(keys); i++ {
		if !s.withinError(keys[last], int64(last), keys[i], int64(i), keys, last, i) {
			addKnot(i - 1)
			last = i - 1
		}
	}
	addKnot(len(keys) - 1)
	return s
}

// withinError reports whether every key in (startIdx, endIdx] would be
// estimated within maxError positions by the line through
// (startKey,startPos)-(endKey,endPos).
func (s *splineIndex) withinError(startKey int64, startPos int64, endKey int64, endPos int64, keys []int64, startIdx, endIdx int) bool {
	if endKey == startKey {
		return endIdx-startIdx <= s.maxError
	}
	slope := float64(endPos-startPos) / float64(endKey-startKey)
	for i := startIdx; i <= endIdx; i++ {
		est := float64(startPos) + slope*float64(keys[i]-startKey)
		diff := est - float64(i)
		if diff < 0 {
			diff = -diff
		}
		if diff > float64(s.maxError) {
			return false
		}
	}
	return true
}

// window returns the [begin, end) window (end exclusive) the spline
// estimates to contain key, bounded by maxError and clamped to [0, total).
func (s *splineIndex) window(key int64, total int) (int, int) {
	if total == 0 {
		return 0, 0
	}
	if len(s.knotKeys) == 0 {
		return 0, total
	}

	// Find the surrounding knot segment.
	seg := searchLastLE(s.knotKeys, key)
	if seg >= len(s.knotKeys)-1 {
		seg = len(s.knotKeys) - 2
		if seg < 0 {
			seg = 0
		}
	}

	var est int64
	if len(s.knotKeys) == 1 {
		est = s.knotPos[0]
	} else {
		k0, p0 := s.knotKeys[seg], s.knotPos[seg]
		k1, p1 := s.knotKeys[seg+1], s.knotPos[seg+1]
		if k1 == k0 {
			est = p0
		} else {
			est = p0 + int64(float64(p1-p0)*float64(key-k0)/float64(k1-k0))
		}
	}

	begin := int(est) - s.maxError
	end := int(est) + s.maxError + 1
	if begin < 0 {
		begin = 0
	}
	if end > total {
		end = total
	}
	return begin, end
}
