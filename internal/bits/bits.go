// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// FastRange64 is FastRange32 for 64-bit ranges.
func FastRange64(hash uint64, n uint64) uint64 {
	hi, _ := bits.Mul64(hash, n)
	return hi
}

// Remix is the SplitMix64 finalizer (Stafford variant 13). It is a
// bijection on uint64 and is used wherever a second, independent-looking
// view of an already mixed value is needed.
func Remix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Width returns the number of bits needed to represent v (0 for v == 0).
func Width(v uint64) int {
	return bits.Len64(v)
}

// SelectInWord returns the position of the k-th (0-based) set bit of w.
// The caller guarantees k < popcount(w).
func SelectInWord(w uint64, k int) int {
	// Skip whole bytes first, then finish bit by bit inside one byte.
	pos := 0
	for {
		c := bits.OnesCount8(uint8(w))
		if k < c {
			break
		}
		k -= c
		w >>= 8
		pos += 8
	}
	for {
		if w&1 != 0 {
			if k == 0 {
				return pos
			}
			k--
		}
		w >>= 1
		pos++
	}
}
