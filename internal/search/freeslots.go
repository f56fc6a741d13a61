package search

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// FreeSlots builds the remap for a minimal function. Entry i corresponds
// to table position numKeys+i. Each occupied position at or above numKeys
// is paired, in increasing order, with the next free position below
// numKeys. Entries for unoccupied positions repeat the previous value
// (starting at 0), which keeps the table non-decreasing so it can be stored
// as an Elias-Fano sequence; those entries are never read for a key of the
// set.
func FreeSlots(taken *bitset.BitSet, numKeys, tableSize uint64) []uint64 {
	if tableSize <= numKeys {
		return nil
	}
	out := make([]uint64, tableSize-numKeys)
	var last uint64
	var cursor uint
	for pos := numKeys; pos < tableSize; pos++ {
		if taken.Test(uint(pos)) {
			hole, ok := taken.NextClear(cursor)
			if !ok || uint64(hole) >= numKeys {
				// Exactly numKeys positions are taken, so every taken position
				// at or above numKeys leaves a hole below it.
				panic(fmt.Sprintf("search: no free slot below %d for position %d", numKeys, pos))
			}
			last = uint64(hole)
			cursor = hole + 1
		}
		out[pos-numKeys] = last
	}
	return out
}
