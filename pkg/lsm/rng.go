package lsm

import "golang.org/x/exp/rand"

// RNG is the pluggable random source the engine consumes. The only two
// primitives the core sampling algorithms need are a bounded integer draw
// and a draw in [0,1); any Mersenne-Twister equivalent satisfies the
// uniformity these two operations require.
type RNG interface {
	// Uniform returns a value in [0,k). Behavior is undefined for k==0.
	Uniform(k uint64) uint64
	// Uniform01 returns a value in [0,1).
	Uniform01() float64
}

// mt19937 is a from-scratch 64-bit Mersenne Twister, used as the engine's
// default RNG.
type mt19937 struct {
	state [312]uint64
	index int
}

const (
	mtN          = 312
	mtM          = 156
	mtMatrixA    = 0xB5026F5AA96619E9
	mtUpperMask  = 0xFFFFFFFF80000000
	mtLowerMask  = 0x7FFFFFFF
)

// NewMT19937 seeds a new 64-bit Mersenne Twister.
func NewMT19937(seed uint64) *mt19937 {
	m := &mt19937{index: mtN}
	m.state[0] = seed
	for i := 1; i < mtN; i++ {
		m.state[i] = 6364136223846793005*(m.state[i-1]^(m.state[i-1]>>62)) + uint64(i)
	}
	return m
}

func (m *mt19937) generate() {
	for i := 0; i < mtN; i++ {
		x := (m.state[i] & mtUpperMask) | (m.state[(i+1)%mtN] & mtLowerMask)
		xA := x >> 1
		if x&1 != 0 {
			xA ^= mtMatrixA
		}
		m.state[i] = m.state[(i+mtM)%mtN] ^ xA
	}
	m.index = 0
}

func (m *mt19937) next() uint64 {
	if m.index >= mtN {
		m.generate()
	}
	x := m.state[m.index]
	m.index++

	x ^= (x >> 29) & 0x5555555555555555
	x ^= (x << 17) & 0x71D67FFFEDA60000
	x ^= (x << 37) & 0xFFF7EEE000000000
	x ^= x >> 43
	return x
}

// Uniform returns a value in [0,k) by reducing the generator's raw 64-bit
// output modulo k, redrawing values that fall in the last partial bucket.
func (m *mt19937) Uniform(k uint64) uint64 {
	if k == 0 {
		return 0
	}
	// Avoid modulo bias for the common case of small k by rejecting the
	// last partial bucket.
	limit := (^uint64(0)) - (^uint64(0))%k
	for {
		v := m.next()
		if v < limit || limit == 0 {
			return v % k
		}
	}
}

// Uniform01 returns a value in [0,1) using the top 53 bits, matching the
// standard double-precision Mersenne Twister construction.
func (m *mt19937) Uniform01() float64 {
	return float64(m.next()>>11) / float64(uint64(1)<<53)
}

// expRand adapts golang.org/x/exp/rand.Rand to the RNG interface, offered
// as an alternate source for callers who want the wider x/exp ecosystem
// (seeding utilities, other distributions) rather than the bundled
// generator.
type expRand struct {
	r *rand.Rand
}

// NewExpRand builds an RNG backed by golang.org/x/exp/rand.
func NewExpRand(seed uint64) *expRand {
	return &expRand{r: rand.New(rand.NewSource(seed))}
}

func (e *expRand) Uniform(k uint64) uint64 {
	if k == 0 {
		return 0
	}
	return uint64(e.r.Int63n(int64(k)))
}

func (e *expRand) Uniform01() float64 {
	return e.r.Float64()
}
