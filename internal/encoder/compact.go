package encoder

import (
	"fmt"

	pthasherrors "github.com/tamirms/pthash/errors"
	intbits "github.com/tamirms/pthash/internal/bits"
	"github.com/tamirms/pthash/internal/encoding"
	"github.com/tamirms/pthash/internal/succinct"
)

const (
	blockShift = 8
	blockSize  = 1 << blockShift
)

// partitionedCompact bit-packs pilots in blocks of blockSize, each block at
// the width of its own largest pilot.
type partitionedCompact struct {
	widths  *succinct.CompactVector
	offsets *succinct.CompactVector
	data    []uint64
	n       int
}

func newPartitionedCompact(pilots []uint64) *partitionedCompact {
	numBlocks := (len(pilots) + blockSize - 1) / blockSize
	widths := make([]uint64, numBlocks)
	offsets := make([]uint64, numBlocks)

	var bw succinct.BitWriter
	for b := range numBlocks {
		block := pilots[b*blockSize : min((b+1)*blockSize, len(pilots))]
		var maxP uint64
		for _, p := range block {
			maxP = max(maxP, p)
		}
		width := intbits.Width(maxP)
		widths[b] = uint64(width)
		offsets[b] = bw.BitsWritten()
		for _, p := range block {
			bw.WriteBits(p, width)
		}
	}
	return &partitionedCompact{
		widths:  succinct.BuildCompactVector(widths),
		offsets: succinct.BuildCompactVector(offsets),
		data:    bw.Words(),
		n:       len(pilots),
	}
}

func (pc *partitionedCompact) ID() ID { return PartitionedCompact }

func (pc *partitionedCompact) Access(i int) uint64 {
	b := i >> blockShift
	width := int(pc.widths.Get(b))
	pos := pc.offsets.Get(b) + uint64(i&(blockSize-1))*uint64(width)
	return succinct.ReadBits(pc.data, pos, width)
}

func (pc *partitionedCompact) Len() int { return pc.n }

func (pc *partitionedCompact) NumBits() uint64 {
	return 64 + pc.widths.NumBits() + pc.offsets.NumBits() + 64*uint64(1+len(pc.data))
}

func (pc *partitionedCompact) Encode(w *encoding.Writer) {
	w.Uint64(uint64(pc.n))
	pc.widths.Encode(w)
	pc.offsets.Encode(w)
	w.Words(pc.data)
}

func decodePartitionedCompact(r *encoding.Reader) *partitionedCompact {
	n := r.Uint64()
	widths := succinct.DecodeCompactVector(r)
	offsets := succinct.DecodeCompactVector(r)
	data := r.Words()
	if r.Err() != nil {
		return nil
	}
	numBlocks := (n + blockSize - 1) / blockSize
	if uint64(widths.Len()) != numBlocks || uint64(offsets.Len()) != numBlocks {
		r.Fail(fmt.Errorf("%w: partitioned-compact n=%d with %d widths, %d offsets",
			pthasherrors.ErrCorrupted, n, widths.Len(), offsets.Len()))
		return nil
	}
	dataBits := uint64(len(data)) * 64
	for b := 0; b < int(numBlocks); b++ {
		width := widths.Get(b)
		count := min(uint64(blockSize), n-uint64(b)*blockSize)
		if width > 64 || offsets.Get(b)+count*width > dataBits {
			r.Fail(fmt.Errorf("%w: partitioned-compact block %d overruns data",
				pthasherrors.ErrCorrupted, b))
			return nil
		}
	}
	return &partitionedCompact{widths: widths, offsets: offsets, data: data, n: int(n)}
}
