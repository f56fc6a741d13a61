// Package succinct implements the packed integer sequences the pilot
// encoders and the free-slot map are built on.
package succinct

import (
	"fmt"

	pthasherrors "github.com/tamirms/pthash/errors"
	intbits "github.com/tamirms/pthash/internal/bits"
	"github.com/tamirms/pthash/internal/encoding"
)

// CompactVector stores n unsigned integers of a fixed bit width packed
// back to back into 64-bit words, least significant bit first.
type CompactVector struct {
	words []uint64
	n     int
	width int
}

// NewCompactVector allocates a zeroed vector of n values of width bits.
func NewCompactVector(n, width int) *CompactVector {
	if width < 0 || width > 64 {
		panic(fmt.Sprintf("succinct: invalid compact vector width %d", width))
	}
	return &CompactVector{
		words: make([]uint64, numWords(n, width)),
		n:     n,
		width: width,
	}
}

// BuildCompactVector packs values using the smallest width that fits the
// largest one.
func BuildCompactVector(values []uint64) *CompactVector {
	var maxV uint64
	for _, v := range values {
		maxV = max(maxV, v)
	}
	cv := NewCompactVector(len(values), intbits.Width(maxV))
	for i, v := range values {
		cv.Set(i, v)
	}
	return cv
}

// maxLen bounds decoded lengths so corrupted prefixes cannot overflow the
// word-count arithmetic.
const maxLen = 1 << 40

func numWords(n, width int) int {
	return (n*width + 63) / 64
}

func widthMask(width int) uint64 {
	if width == 0 {
		return 0
	}
	return ^uint64(0) >> (64 - width)
}

// Set stores v at index i. Bits of v above the vector width are dropped.
func (cv *CompactVector) Set(i int, v uint64) {
	if cv.width == 0 {
		return
	}
	mask := widthMask(cv.width)
	v &= mask
	pos := i * cv.width
	w, shift := pos>>6, uint(pos&63)
	cv.words[w] = cv.words[w]&^(mask<<shift) | v<<shift
	if int(shift)+cv.width > 64 {
		spill := uint(64 - shift)
		cv.words[w+1] = cv.words[w+1]&^(mask>>spill) | v>>spill
	}
}

// Get returns the value at index i.
func (cv *CompactVector) Get(i int) uint64 {
	if cv.width == 0 {
		return 0
	}
	pos := i * cv.width
	w, shift := pos>>6, uint(pos&63)
	v := cv.words[w] >> shift
	if int(shift)+cv.width > 64 {
		v |= cv.words[w+1] << (64 - shift)
	}
	return v & widthMask(cv.width)
}

// Len returns the number of stored values.
func (cv *CompactVector) Len() int { return cv.n }

// Width returns the bit width of each value.
func (cv *CompactVector) Width() int { return cv.width }

// NumBits returns the persisted size in bits.
func (cv *CompactVector) NumBits() uint64 {
	// n, width and the word-count prefix
	return 8*(8+1+8) + 64*uint64(len(cv.words))
}

// Encode appends the vector to w.
func (cv *CompactVector) Encode(w *encoding.Writer) {
	w.Uint64(uint64(cv.n))
	w.Uint8(uint8(cv.width))
	w.Words(cv.words)
}

// DecodeCompactVector reads a vector written by Encode. Structural
// inconsistencies are reported as ErrCorrupted through r.
func DecodeCompactVector(r *encoding.Reader) *CompactVector {
	n := r.Uint64()
	width := int(r.Uint8())
	words := r.Words()
	if r.Err() != nil {
		return nil
	}
	if width > 64 || n > maxLen || numWords(int(n), width) != len(words) {
		r.Fail(fmt.Errorf("%w: compact vector n=%d width=%d words=%d",
			pthasherrors.ErrCorrupted, n, width, len(words)))
		return nil
	}
	return &CompactVector{words: words, n: int(n), width: width}
}
