package succinct

import (
	"fmt"
	"math/bits"

	pthasherrors "github.com/tamirms/pthash/errors"
	intbits "github.com/tamirms/pthash/internal/bits"
	"github.com/tamirms/pthash/internal/encoding"
)

const (
	// One select sample is kept for every sampleRate ones in the high bitmap.
	sampleShift = 8
	sampleRate  = 1 << sampleShift
)

// EliasFano stores a non-decreasing sequence of unsigned integers. Each
// value is split into l low bits, kept verbatim in a CompactVector, and the
// remaining high bits, kept as a unary-coded bitmap where value i sets bit
// (v_i >> l) + i.
type EliasFano struct {
	low      *CompactVector
	high     []uint64
	samples  []uint64
	n        int
	universe uint64
	l        int
}

// NewEliasFano encodes values, which must be non-decreasing.
func NewEliasFano(values []uint64) *EliasFano {
	n := len(values)
	ef := &EliasFano{n: n}
	if n == 0 {
		ef.low = NewCompactVector(0, 0)
		return ef
	}
	ef.universe = values[n-1]
	if q := ef.universe / uint64(n); q > 0 {
		ef.l = intbits.Width(q) - 1
	}

	ef.low = NewCompactVector(n, ef.l)
	highBits := uint64(n) + ef.universe>>ef.l + 1
	ef.high = make([]uint64, (highBits+63)/64)

	prev := values[0]
	for i, v := range values {
		if v < prev {
			panic(fmt.Sprintf("succinct: elias-fano input not sorted at %d: %d < %d", i, v, prev))
		}
		prev = v
		ef.low.Set(i, v)
		pos := v>>ef.l + uint64(i)
		ef.high[pos>>6] |= 1 << (pos & 63)
	}
	ef.buildSamples()
	return ef
}

func (ef *EliasFano) buildSamples() {
	ef.samples = make([]uint64, 0, (ef.n+sampleRate-1)/sampleRate)
	seen := 0
	for w, word := range ef.high {
		for word != 0 {
			if seen&(sampleRate-1) == 0 {
				ef.samples = append(ef.samples, uint64(w*64+bits.TrailingZeros64(word)))
			}
			seen++
			word &= word - 1
		}
	}
}

// select1 returns the position of the i-th set bit of the high bitmap.
func (ef *EliasFano) select1(i int) int {
	s := ef.samples[i>>sampleShift]
	k := i & (sampleRate - 1)
	w := int(s >> 6)
	word := ef.high[w] & (^uint64(0) << (s & 63))
	for {
		c := bits.OnesCount64(word)
		if k < c {
			return w*64 + intbits.SelectInWord(word, k)
		}
		k -= c
		w++
		word = ef.high[w]
	}
}

// nextOne returns the position of the first set bit strictly after pos.
func (ef *EliasFano) nextOne(pos int) int {
	pos++
	w := pos >> 6
	word := ef.high[w] & (^uint64(0) << (pos & 63))
	for word == 0 {
		w++
		word = ef.high[w]
	}
	return w*64 + bits.TrailingZeros64(word)
}

// Access returns the i-th value.
func (ef *EliasFano) Access(i int) uint64 {
	hi := uint64(ef.select1(i) - i)
	return hi<<ef.l | ef.low.Get(i)
}

// Pair returns the i-th and (i+1)-th values with a single select.
func (ef *EliasFano) Pair(i int) (uint64, uint64) {
	p := ef.select1(i)
	q := ef.nextOne(p)
	a := uint64(p-i)<<ef.l | ef.low.Get(i)
	b := uint64(q-i-1)<<ef.l | ef.low.Get(i+1)
	return a, b
}

// Len returns the number of stored values.
func (ef *EliasFano) Len() int { return ef.n }

// Universe returns the largest stored value.
func (ef *EliasFano) Universe() uint64 { return ef.universe }

// NumBits returns the persisted size in bits.
func (ef *EliasFano) NumBits() uint64 {
	return 8*(8+8+1) + ef.low.NumBits() + 64*uint64(1+len(ef.high))
}

// Encode appends the sequence to w. Select samples are rebuilt on decode
// rather than persisted.
func (ef *EliasFano) Encode(w *encoding.Writer) {
	w.Uint64(uint64(ef.n))
	w.Uint64(ef.universe)
	w.Uint8(uint8(ef.l))
	ef.low.Encode(w)
	w.Words(ef.high)
}

// DecodeEliasFano reads a sequence written by Encode. The high bitmap must
// contain exactly n ones and the low vector must match n and l, otherwise
// ErrCorrupted is recorded on r.
func DecodeEliasFano(r *encoding.Reader) *EliasFano {
	ef := &EliasFano{}
	n := r.Uint64()
	ef.universe = r.Uint64()
	ef.l = int(r.Uint8())
	ef.low = DecodeCompactVector(r)
	ef.high = r.Words()
	if r.Err() != nil {
		return nil
	}

	ones := 0
	for _, word := range ef.high {
		ones += bits.OnesCount64(word)
	}
	if uint64(ones) != n || uint64(ef.low.Len()) != n || ef.low.Width() != ef.l {
		r.Fail(fmt.Errorf("%w: elias-fano n=%d ones=%d low=%d/%d l=%d",
			pthasherrors.ErrCorrupted, n, ones, ef.low.Len(), ef.low.Width(), ef.l))
		return nil
	}
	ef.n = int(n)
	ef.buildSamples()
	return ef
}
