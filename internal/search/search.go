package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"

	pthasherrors "github.com/tamirms/pthash/errors"
)

const (
	// MaxPilot bounds the candidates tried per bucket. Reaching it means the
	// seed is pathological for this key set.
	MaxPilot = 1 << 22

	// ctxCheckInterval is the number of buckets placed between cancellation
	// checks.
	ctxCheckInterval = 1 << 12

	// smallBucket is the largest bucket checked for internal position
	// collisions by pairwise comparison.
	smallBucket = 16
)

// Result is the output of a successful search.
type Result struct {
	// Pilots holds one pilot per bucket id. Empty buckets get pilot 0.
	Pilots []uint64
	// Taken marks the occupied table positions.
	Taken *bitset.BitSet
	// MaxPilot is the largest pilot chosen.
	MaxPilot uint64
}

// searcher holds the reusable buffers of one search.
type searcher struct {
	taken     *bitset.BitSet
	tableSize uint64
	hashes    *PilotHashes
	folded    []uint64
	positions []uint64
	scratch   []uint64
}

// Search assigns a pilot to every bucket of b so that all keys land on
// distinct positions of a table of tableSize slots. It fails with
// ErrSearchExhausted when some bucket has no valid pilot below MaxPilot.
func Search(ctx context.Context, b *Buckets, tableSize uint64, hashes *PilotHashes) (*Result, error) {
	if uint64(b.NumKeys()) > tableSize {
		return nil, fmt.Errorf("search: %d keys do not fit %d slots", b.NumKeys(), tableSize)
	}
	s := &searcher{
		taken:     bitset.New(uint(tableSize)),
		tableSize: tableSize,
		hashes:    hashes,
		folded:    make([]uint64, b.maxSize),
		positions: make([]uint64, b.maxSize),
		scratch:   make([]uint64, b.maxSize),
	}
	res := &Result{
		Pilots: make([]uint64, b.NumBuckets()),
		Taken:  s.taken,
	}

	for i, id := range b.order {
		if i&(ctxCheckInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		members := b.seconds[b.starts[id]:b.starts[id+1]]
		if len(members) == 0 {
			// Buckets are ordered by size, so the rest are empty too.
			break
		}

		k := len(members)
		for j, second := range members {
			s.folded[j] = Fold(second)
		}
		pilot, ok := s.findPilot(s.folded[:k], s.positions[:k])
		if !ok {
			return nil, fmt.Errorf("%w: bucket %d of size %d has no pilot below %d",
				pthasherrors.ErrSearchExhausted, id, k, MaxPilot)
		}
		for _, pos := range s.positions[:k] {
			s.taken.Set(uint(pos))
		}
		res.Pilots[id] = pilot
		res.MaxPilot = max(res.MaxPilot, pilot)
	}
	return res, nil
}

// findPilot returns the first pilot placing every folded fingerprint on a
// free, pairwise distinct position. On success positions holds the chosen
// positions.
func (s *searcher) findPilot(folded, positions []uint64) (uint64, bool) {
	tableSize := s.tableSize
	taken := s.taken
	for pilot := uint64(0); pilot < MaxPilot; pilot++ {
		hp := s.hashes.Get(pilot)
		free := true
		for j, f := range folded {
			pos := Position(f, hp, tableSize)
			if taken.Test(uint(pos)) {
				free = false
				break
			}
			positions[j] = pos
		}
		if free && s.distinct(positions) {
			return pilot, true
		}
	}
	return 0, false
}

// distinct reports whether positions has no repeated value.
func (s *searcher) distinct(positions []uint64) bool {
	if len(positions) <= smallBucket {
		for i := 1; i < len(positions); i++ {
			for j := 0; j < i; j++ {
				if positions[i] == positions[j] {
					return false
				}
			}
		}
		return true
	}
	sorted := s.scratch[:len(positions)]
	copy(sorted, positions)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return false
		}
	}
	return true
}
