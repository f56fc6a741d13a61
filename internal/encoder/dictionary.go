package encoder

import (
	"cmp"
	"fmt"
	"slices"

	pthasherrors "github.com/tamirms/pthash/errors"
	"github.com/tamirms/pthash/internal/encoding"
	"github.com/tamirms/pthash/internal/succinct"
)

// dictionary stores each distinct pilot once, ordered by descending
// frequency, and a rank per bucket pointing into it. Frequent pilots get
// small ranks, so the rank width tracks the number of distinct values
// rather than the largest pilot.
type dictionary struct {
	values *succinct.CompactVector
	ranks  *succinct.CompactVector
}

func newDictionary(pilots []uint64) dictionary {
	freq := make(map[uint64]int)
	for _, p := range pilots {
		freq[p]++
	}
	distinct := make([]uint64, 0, len(freq))
	for v := range freq {
		distinct = append(distinct, v)
	}
	slices.SortFunc(distinct, func(a, b uint64) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	rankOf := make(map[uint64]uint64, len(distinct))
	for r, v := range distinct {
		rankOf[v] = uint64(r)
	}
	ranks := make([]uint64, len(pilots))
	for i, p := range pilots {
		ranks[i] = rankOf[p]
	}
	return dictionary{
		values: succinct.BuildCompactVector(distinct),
		ranks:  succinct.BuildCompactVector(ranks),
	}
}

func (d *dictionary) access(i int) uint64 {
	return d.values.Get(int(d.ranks.Get(i)))
}

func (d *dictionary) numBits() uint64 {
	return d.values.NumBits() + d.ranks.NumBits()
}

func (d *dictionary) encode(w *encoding.Writer) {
	d.values.Encode(w)
	d.ranks.Encode(w)
}

func decodeDictionary(r *encoding.Reader) (dictionary, bool) {
	values := succinct.DecodeCompactVector(r)
	ranks := succinct.DecodeCompactVector(r)
	if r.Err() != nil {
		return dictionary{}, false
	}
	for i := 0; i < ranks.Len(); i++ {
		if rank := ranks.Get(i); rank >= uint64(values.Len()) {
			r.Fail(fmt.Errorf("%w: dictionary rank %d at %d, %d values",
				pthasherrors.ErrCorrupted, rank, i, values.Len()))
			return dictionary{}, false
		}
	}
	return dictionary{values: values, ranks: ranks}, true
}

// dictionaryDictionary keeps separate dictionaries for the dense and sparse
// bucket zones. Dense buckets are large and placed first, so their pilots
// follow a different distribution from the many small sparse buckets.
type dictionaryDictionary struct {
	front dictionary
	back  dictionary
	split int
}

func newDictionaryDictionary(pilots []uint64, split int) *dictionaryDictionary {
	split = min(max(split, 0), len(pilots))
	return &dictionaryDictionary{
		front: newDictionary(pilots[:split]),
		back:  newDictionary(pilots[split:]),
		split: split,
	}
}

func (dd *dictionaryDictionary) ID() ID { return DictionaryDictionary }

func (dd *dictionaryDictionary) Access(i int) uint64 {
	if i < dd.split {
		return dd.front.access(i)
	}
	return dd.back.access(i - dd.split)
}

func (dd *dictionaryDictionary) Len() int {
	return dd.split + dd.back.ranks.Len()
}

func (dd *dictionaryDictionary) NumBits() uint64 {
	return 64 + dd.front.numBits() + dd.back.numBits()
}

func (dd *dictionaryDictionary) Encode(w *encoding.Writer) {
	w.Uint64(uint64(dd.split))
	dd.front.encode(w)
	dd.back.encode(w)
}

func decodeDictionaryDictionary(r *encoding.Reader) *dictionaryDictionary {
	split := r.Uint64()
	front, ok := decodeDictionary(r)
	if !ok {
		return nil
	}
	back, ok := decodeDictionary(r)
	if !ok {
		return nil
	}
	if split != uint64(front.ranks.Len()) {
		r.Fail(fmt.Errorf("%w: dictionary split %d, front holds %d",
			pthasherrors.ErrCorrupted, split, front.ranks.Len()))
		return nil
	}
	return &dictionaryDictionary{front: front, back: back, split: int(split)}
}
