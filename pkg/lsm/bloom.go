package lsm

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"math"
)

// BloomFilter is a probabilistic set-membership structure used to test
// whether a key has a tombstone, without scanning the owning MemTable or
// SortedRun.
//   - False positives possible (may say a key exists when it doesn't).
//   - False negatives impossible (if it says a key doesn't exist, it
//     definitely doesn't).
type BloomFilter struct {
	bits      []bool
	size      int
	hashCount int
	salt      uint64
}

// NewBloomFilter creates a Bloom filter sized for expectedItems keys at the
// given target false-positive rate.
func NewBloomFilter(expectedItems int, falsePositiveRate float64) *BloomFilter {
	if expectedItems <= 0 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	// m = -(n * ln(p)) / (ln(2)^2); k = (m/n) * ln(2)
	size := int(math.Ceil(-float64(expectedItems) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)))
	hashCount := int(math.Ceil((float64(size) / float64(expectedItems)) * math.Ln2))

	const maxSize = 1_000_000_000 // 1 billion entries; bits is a []bool, so ~1 GB
	if size > maxSize {
		size = maxSize
	}
	if size < 1 {
		size = 1
	}
	if hashCount < 1 {
		hashCount = 1
	}
	if hashCount > 100 {
		hashCount = 100
	}

	return &BloomFilter{
		bits:      make([]bool, size),
		size:      size,
		hashCount: hashCount,
		salt:      randomSalt(),
	}
}

// NewBloomFilterK creates a Bloom filter with an explicit hash count,
// matching configuration option BF_K instead of deriving k from the target
// false-positive rate.
func NewBloomFilterK(expectedItems int, falsePositiveRate float64, k int) *BloomFilter {
	bf := NewBloomFilter(expectedItems, falsePositiveRate)
	if k > 0 {
		bf.hashCount = k
	}
	return bf
}

// randomSalt gives each filter instance an independent salt so that two
// filters built over the same keys do not collide on the same bit
// positions.
func randomSalt() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func keyBytes(key int64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return buf[:]
}

// Insert adds a key to the filter.
func (bf *BloomFilter) Insert(key int64) {
	kb := keyBytes(key)
	for i := 0; i < bf.hashCount; i++ {
		bf.bits[bf.hash(kb, i)] = true
	}
}

// Add is an alias for Insert, matching common Bloom filter APIs.
func (bf *BloomFilter) Add(key int64) { bf.Insert(key) }

// Lookup reports whether key may have been inserted. A false return is
// authoritative; a true return may be a false positive.
func (bf *BloomFilter) Lookup(key int64) bool {
	kb := keyBytes(key)
	for i := 0; i < bf.hashCount; i++ {
		if !bf.bits[bf.hash(kb, i)] {
			return false
		}
	}
	return true
}

// MayContain is an alias for Lookup.
func (bf *BloomFilter) MayContain(key int64) bool { return bf.Lookup(key) }

// hash computes the i-th probe position via double hashing:
// (h1 + i*h2) % size, salted per filter instance.
func (bf *BloomFilter) hash(key []byte, i int) int {
	var saltBuf [8]byte
	binary.LittleEndian.PutUint64(saltBuf[:], bf.salt)

	h1 := fnv.New64a()
	_, _ = h1.Write(key)
	_, _ = h1.Write(saltBuf[:])
	hash1 := h1.Sum64()

	h2 := fnv.New64a()
	_, _ = h2.Write(key)
	_, _ = h2.Write([]byte{0xFF})
	_, _ = h2.Write(saltBuf[:])
	hash2 := h2.Sum64()
	if hash2%2 == 0 {
		hash2++
	}

	combined := hash1 + uint64(i)*hash2
	return int(combined % uint64(bf.size))
}

// Size returns the filter size in bits.
func (bf *BloomFilter) Size() int { return bf.size }

// HashCount returns the configured number of hash probes (k).
func (bf *BloomFilter) HashCount() int { return bf.hashCount }

// Clear resets all bits, per the TombstoneFilter contract's clear().
func (bf *BloomFilter) Clear() {
	for i := range bf.bits {
		bf.bits[i] = false
	}
}

// Merge ORs another filter's bits into this one. Both filters must share
// size, hash count and salt.
func (bf *BloomFilter) Merge(other *BloomFilter) error {
	if bf.size != other.size || bf.hashCount != other.hashCount || bf.salt != other.salt {
		return ErrIncompatibleFilters
	}
	for i := range bf.bits {
		bf.bits[i] = bf.bits[i] || other.bits[i]
	}
	return nil
}

// MarshalBinary packs the filter's salt (8 bytes) followed by its bits
// 8-per-byte for persistence.
func (bf *BloomFilter) MarshalBinary() []byte {
	byteCount := (bf.size + 7) / 8
	data := make([]byte, 8+byteCount)
	binary.LittleEndian.PutUint64(data[:8], bf.salt)
	for i := 0; i < bf.size; i++ {
		if bf.bits[i] {
			data[8+i/8] |= 1 << (i % 8)
		}
	}
	return data
}

// UnmarshalBinary restores the salt and bits packed by MarshalBinary.
func (bf *BloomFilter) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return nil
	}
	bf.salt = binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	for i := 0; i < bf.size && i/8 < len(data); i++ {
		bf.bits[i] = (data[i/8] & (1 << (i % 8))) != 0
	}
	return nil
}
