// Package bucketer maps fingerprints to buckets and partitions.
//
// Both bucketers are pure functions of (hash, count) and hold no mutable
// state, so a single value is shared freely across goroutines.
package bucketer

import (
	"math"

	intbits "github.com/tamirms/pthash/internal/bits"
)

// 60% of the hash space (denseThreshold) maps onto the first 30% of the
// buckets.
const denseThreshold uint64 = (1 << 64) / 10 * 6

// NumBuckets returns ceil(c*n/log2(n)), or 1 when n < 2.
func NumBuckets(numKeys uint64, c float64) uint64 {
	if numKeys < 2 {
		return 1
	}
	b := math.Ceil(c * float64(numKeys) / math.Log2(float64(numKeys)))
	return max(uint64(b), 1)
}

// Skew splits the buckets into a small dense zone that receives most of
// the keys and a sparse zone for the rest. Buckets are numbered dense
// first, so the largest buckets have the smallest ids.
type Skew struct {
	numDense  uint64
	numSparse uint64
}

// NewSkew returns a skew bucketer over numBuckets buckets (at least 1).
func NewSkew(numBuckets uint64) Skew {
	numBuckets = max(numBuckets, 1)
	numDense := min((3*numBuckets+9)/10, numBuckets)
	return Skew{numDense: numDense, numSparse: numBuckets - numDense}
}

// Bucket returns the bucket of a 64-bit hash.
func (s Skew) Bucket(h uint64) uint64 {
	if h < denseThreshold || s.numSparse == 0 {
		return h % s.numDense
	}
	return s.numDense + intbits.FastRange64(intbits.Remix(h), s.numSparse)
}

// NumBuckets returns the total bucket count.
func (s Skew) NumBuckets() uint64 { return s.numDense + s.numSparse }

// NumDense returns the number of buckets in the dense zone.
func (s Skew) NumDense() uint64 { return s.numDense }

// Uniform spreads hashes evenly over n targets. It selects partitions.
type Uniform struct {
	n uint64
}

// NewUniform returns a uniform bucketer over n targets (at least 1).
func NewUniform(n uint64) Uniform {
	return Uniform{n: max(n, 1)}
}

// Bucket returns the target of a 64-bit hash.
func (u Uniform) Bucket(h uint64) uint64 {
	return intbits.FastRange64(h, u.n)
}

// NumBuckets returns the number of targets.
func (u Uniform) NumBuckets() uint64 { return u.n }
