package lsm

// AliasTable is Vose's alias method: an O(1)-query, O(n)-build sampler for
// a discrete distribution. It backs both the SampleExecutor's descriptor
// alias and each WIRS SortedRun's per-record alias.
type AliasTable struct {
	prob  []float64 // probability of landing on the primary entry at i
	alias []int     // the alternate entry at i
	n     int
}

// NewAliasTable builds an alias table over weights. Weights need not be
// pre-normalized; NewAliasTable normalizes them internally. An empty
// weights slice yields a table whose Draw returns -1; a slice whose total
// weight is not positive is sampled uniformly.
func NewAliasTable(weights []float64) *AliasTable {
	n := len(weights)
	at := &AliasTable{
		prob:  make([]float64, n),
		alias: make([]int, n),
		n:     n,
	}
	if n == 0 {
		return at
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		// Degenerate: treat as uniform so the table still samples.
		for i := range at.prob {
			at.prob[i] = 1
			at.alias[i] = i
		}
		return at
	}

	scaled := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		scaled[i] = w / total * float64(n)
		if scaled[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		at.prob[s] = scaled[s]
		at.alias[s] = l

		scaled[l] = scaled[l] + scaled[s] - 1
		if scaled[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	for _, l := range large {
		at.prob[l] = 1
	}
	for _, s := range small {
		at.prob[s] = 1
	}

	return at
}

// Len returns the number of entries the table was built over.
func (at *AliasTable) Len() int { return at.n }

// Draw samples one index in [0, n) using the supplied RNG source.
func (at *AliasTable) Draw(rng RNG) int {
	if at.n == 0 {
		return -1
	}
	i := int(rng.Uniform(uint64(at.n)))
	if rng.Uniform01() < at.prob[i] {
		return i
	}
	return at.alias[i]
}
