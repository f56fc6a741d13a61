// Package search implements the greedy pilot search and the free-slot
// remap that turns a perfect hash function into a minimal one.
//
// A build runs in two steps. Map groups fingerprints by bucket with a
// counting sort and orders buckets largest first. Search then walks that
// order, trying pilots 0, 1, 2, ... for each bucket until every key of the
// bucket lands on a free table position.
package search

import (
	"fmt"
	"slices"

	pthasherrors "github.com/tamirms/pthash/errors"
	"github.com/tamirms/pthash/internal/bucketer"
	"github.com/tamirms/pthash/internal/fingerprint"
)

// Buckets holds fingerprints grouped by bucket. Only Second() is kept: the
// bucket id is implied by the position in the grouping.
type Buckets struct {
	starts  []uint64 // len numBuckets+1; bucket b owns seconds[starts[b]:starts[b+1]]
	seconds []uint64
	order   []uint64 // bucket ids, largest first, ties by ascending id
	maxSize int
}

// Map assigns every fingerprint to its bucket and orders the buckets for
// the search. Two keys of one bucket sharing Second() can never be
// separated by any pilot, so they are reported as ErrDuplicateFingerprint.
func Map(fps []fingerprint.Fingerprint, sk bucketer.Skew) (*Buckets, error) {
	numBuckets := sk.NumBuckets()
	b := &Buckets{
		starts:  make([]uint64, numBuckets+1),
		seconds: make([]uint64, len(fps)),
	}

	ids := make([]uint64, len(fps))
	for i, fp := range fps {
		id := sk.Bucket(fp.First())
		ids[i] = id
		b.starts[id+1]++
	}
	for i := uint64(0); i < numBuckets; i++ {
		b.starts[i+1] += b.starts[i]
	}

	cursor := slices.Clone(b.starts[:numBuckets])
	for i, fp := range fps {
		id := ids[i]
		b.seconds[cursor[id]] = fp.Second()
		cursor[id]++
	}

	for id := uint64(0); id < numBuckets; id++ {
		members := b.seconds[b.starts[id]:b.starts[id+1]]
		b.maxSize = max(b.maxSize, len(members))
		if len(members) < 2 {
			continue
		}
		slices.Sort(members)
		for j := 1; j < len(members); j++ {
			if members[j] == members[j-1] {
				return nil, fmt.Errorf("%w: bucket %d", pthasherrors.ErrDuplicateFingerprint, id)
			}
		}
	}

	b.order = countingSortBuckets(b.starts, b.maxSize)
	return b, nil
}

// countingSortBuckets orders bucket ids by size, largest first. Scanning ids
// in ascending order keeps equal-sized buckets in ascending id order.
func countingSortBuckets(starts []uint64, maxSize int) []uint64 {
	n := len(starts) - 1
	counts := make([]int, maxSize+1)
	for i := 0; i < n; i++ {
		counts[starts[i+1]-starts[i]]++
	}

	// Convert to positions (reverse order for largest first)
	positions := make([]int, maxSize+1)
	pos := 0
	for size := maxSize; size >= 0; size-- {
		positions[size] = pos
		pos += counts[size]
	}

	order := make([]uint64, n)
	for i := 0; i < n; i++ {
		size := starts[i+1] - starts[i]
		order[positions[size]] = uint64(i)
		positions[size]++
	}
	return order
}

// NumBuckets returns the number of buckets, empty ones included.
func (b *Buckets) NumBuckets() int { return len(b.starts) - 1 }

// NumKeys returns the number of grouped fingerprints.
func (b *Buckets) NumKeys() int { return len(b.seconds) }

// MaxSize returns the size of the largest bucket.
func (b *Buckets) MaxSize() int { return b.maxSize }

// Size returns the number of keys in bucket id.
func (b *Buckets) Size(id uint64) int {
	return int(b.starts[id+1] - b.starts[id])
}

// Order returns the bucket ids in search order.
func (b *Buckets) Order() []uint64 { return b.order }

// SizeHistogram returns the number of buckets of each size, indexed by size.
func (b *Buckets) SizeHistogram() []uint64 {
	hist := make([]uint64, b.maxSize+1)
	for i := 0; i < b.NumBuckets(); i++ {
		hist[b.starts[i+1]-b.starts[i]]++
	}
	return hist
}
