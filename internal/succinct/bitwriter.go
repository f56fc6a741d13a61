package succinct

// =============================================================================
// Bit Writer
// =============================================================================

// BitWriter appends variable-width fields to a word slice, least
// significant bit first.
type BitWriter struct {
	words   []uint64
	current uint64
	bitPos  int
}

func (bw *BitWriter) flushWord() {
	bw.words = append(bw.words, bw.current)
	bw.current = 0
	bw.bitPos = 0
}

// WriteBits appends the low n bits of v.
func (bw *BitWriter) WriteBits(v uint64, n int) {
	if n == 0 {
		return
	}
	v &= widthMask(n)

	if bw.bitPos+n <= 64 {
		bw.current |= v << bw.bitPos
		bw.bitPos += n
		if bw.bitPos == 64 {
			bw.flushWord()
		}
		return
	}

	bitsInCurrent := 64 - bw.bitPos
	bw.current |= (v & widthMask(bitsInCurrent)) << bw.bitPos
	bw.flushWord()

	bw.current = v >> bitsInCurrent
	bw.bitPos = n - bitsInCurrent
}

// BitsWritten returns the number of bits appended so far.
func (bw *BitWriter) BitsWritten() uint64 {
	return uint64(len(bw.words))*64 + uint64(bw.bitPos)
}

// Words flushes the partial word and returns the backing slice.
func (bw *BitWriter) Words() []uint64 {
	if bw.bitPos > 0 {
		bw.flushWord()
	}
	return bw.words
}

// ReadBits returns width bits of words starting at bit pos.
func ReadBits(words []uint64, pos uint64, width int) uint64 {
	if width == 0 {
		return 0
	}
	w, shift := pos>>6, pos&63
	v := words[w] >> shift
	if int(shift)+width > 64 {
		v |= words[w+1] << (64 - shift)
	}
	return v & widthMask(width)
}
