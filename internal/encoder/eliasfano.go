package encoder

import (
	"fmt"

	pthasherrors "github.com/tamirms/pthash/errors"
	"github.com/tamirms/pthash/internal/encoding"
	"github.com/tamirms/pthash/internal/succinct"
)

// eliasFano stores the prefix sums of the pilot sequence; pilot i is the
// difference of two consecutive sums.
type eliasFano struct {
	sums *succinct.EliasFano
}

func newEliasFano(pilots []uint64) *eliasFano {
	sums := make([]uint64, len(pilots)+1)
	for i, p := range pilots {
		sums[i+1] = sums[i] + p
	}
	return &eliasFano{sums: succinct.NewEliasFano(sums)}
}

func (ef *eliasFano) ID() ID { return EliasFano }

func (ef *eliasFano) Access(i int) uint64 {
	a, b := ef.sums.Pair(i)
	return b - a
}

func (ef *eliasFano) Len() int { return ef.sums.Len() - 1 }

func (ef *eliasFano) NumBits() uint64 { return ef.sums.NumBits() }

func (ef *eliasFano) Encode(w *encoding.Writer) { ef.sums.Encode(w) }

func decodeEliasFano(r *encoding.Reader) *eliasFano {
	sums := succinct.DecodeEliasFano(r)
	if sums == nil {
		return nil
	}
	if sums.Len() == 0 {
		r.Fail(fmt.Errorf("%w: elias-fano prefix sums are empty", pthasherrors.ErrCorrupted))
		return nil
	}
	return &eliasFano{sums: sums}
}
