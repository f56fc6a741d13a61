package pthash

import (
	"github.com/tamirms/pthash/internal/encoder"
)

// EncoderID identifies the pilot encoding. It is stored in the serialized
// header and in every partition.
type EncoderID uint8

const (
	// EncoderDictionaryDictionary stores each distinct pilot once per zone
	// and a frequency-ordered rank per bucket. It compresses the skewed
	// pilot distribution best and decodes with two lookups. Default.
	EncoderDictionaryDictionary = EncoderID(encoder.DictionaryDictionary)

	// EncoderPartitionedCompact bit-packs pilots in blocks of 256, each at
	// its own width. Fastest and most predictable decode.
	EncoderPartitionedCompact = EncoderID(encoder.PartitionedCompact)

	// EncoderEliasFano stores pilot prefix sums as an Elias-Fano sequence.
	// Smallest when pilots cluster near zero; decode costs one select.
	EncoderEliasFano = EncoderID(encoder.EliasFano)
)

// String returns the encoder name.
func (id EncoderID) String() string {
	return encoder.ID(id).String()
}

// Valid reports whether id names a known encoder.
func (id EncoderID) Valid() bool {
	return encoder.ID(id).Valid()
}

// ParseEncoder returns the encoder for a name as printed by String.
func ParseEncoder(name string) (EncoderID, bool) {
	for _, id := range []EncoderID{EncoderDictionaryDictionary, EncoderPartitionedCompact, EncoderEliasFano} {
		if id.String() == name {
			return id, true
		}
	}
	return 0, false
}
