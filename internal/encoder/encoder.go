// Package encoder compresses the per-bucket pilot sequence produced by the
// search into one of three succinct representations.
//
// All encoders answer Access in constant time and reproduce the input
// exactly. The representation is chosen once at build time and persisted
// by its ID.
package encoder

import (
	"fmt"

	pthasherrors "github.com/tamirms/pthash/errors"
	"github.com/tamirms/pthash/internal/encoding"
)

// ID identifies an encoder in the persisted format. Values are stable.
type ID uint8

const (
	DictionaryDictionary ID = 1
	PartitionedCompact   ID = 2
	EliasFano            ID = 3
)

func (id ID) String() string {
	switch id {
	case DictionaryDictionary:
		return "dictionary-dictionary"
	case PartitionedCompact:
		return "partitioned-compact"
	case EliasFano:
		return "elias-fano"
	default:
		return fmt.Sprintf("encoder(%d)", uint8(id))
	}
}

// Valid reports whether id names a known encoder.
func (id ID) Valid() bool {
	return id >= DictionaryDictionary && id <= EliasFano
}

// Encoder is a read-only pilot sequence.
type Encoder interface {
	ID() ID
	// Access returns the pilot of bucket i.
	Access(i int) uint64
	// Len returns the number of buckets.
	Len() int
	// NumBits returns the persisted size in bits.
	NumBits() uint64
	// Encode appends the representation to w.
	Encode(w *encoding.Writer)
}

// New encodes pilots with the encoder named by id. split is the number of
// leading buckets in the bucketer's dense zone; only the dictionary encoder
// uses it.
func New(id ID, pilots []uint64, split int) (Encoder, error) {
	switch id {
	case DictionaryDictionary:
		return newDictionaryDictionary(pilots, split), nil
	case PartitionedCompact:
		return newPartitionedCompact(pilots), nil
	case EliasFano:
		return newEliasFano(pilots), nil
	default:
		return nil, fmt.Errorf("%w: %d", pthasherrors.ErrUnknownEncoder, uint8(id))
	}
}

// Decode reads an encoder written by Encode. numBuckets is the expected
// length; a mismatch is reported as ErrCorrupted.
func Decode(id ID, r *encoding.Reader, numBuckets int) (Encoder, error) {
	var enc Encoder
	switch id {
	case DictionaryDictionary:
		if dd := decodeDictionaryDictionary(r); dd != nil {
			enc = dd
		}
	case PartitionedCompact:
		if pc := decodePartitionedCompact(r); pc != nil {
			enc = pc
		}
	case EliasFano:
		if ef := decodeEliasFano(r); ef != nil {
			enc = ef
		}
	default:
		return nil, fmt.Errorf("%w: %d", pthasherrors.ErrUnknownEncoder, uint8(id))
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %s", pthasherrors.ErrCorrupted, id)
	}
	if enc.Len() != numBuckets {
		return nil, fmt.Errorf("%w: %s holds %d pilots, want %d",
			pthasherrors.ErrCorrupted, id, enc.Len(), numBuckets)
	}
	return enc, nil
}
