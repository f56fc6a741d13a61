package pthash

import (
	"github.com/tamirms/pthash/internal/bucketer"
	"github.com/tamirms/pthash/internal/search"
)

// Function is a built perfect hash function.
//
// Thread Safety:
// - Every method is safe for concurrent use
// - A Function is immutable once Build or Load returns it
type Function struct {
	seed    uint64
	minimal bool
	encoder EncoderID
	hasher  Hasher
	hashes  *search.PilotHashes

	parts    []*partition
	selector bucketer.Uniform
	// offsets[i] is the first position owned by partition i; offsets[p]
	// is the end of the range.
	offsets   []uint64
	numKeys   uint64
	tableSize uint64
}

func newFunction(seed uint64, minimal bool, enc EncoderID, hasher Hasher, hashes *search.PilotHashes, parts []*partition) *Function {
	f := &Function{
		seed:     seed,
		minimal:  minimal,
		encoder:  enc,
		hasher:   hasher,
		hashes:   hashes,
		parts:    parts,
		selector: bucketer.NewUniform(uint64(len(parts))),
		offsets:  make([]uint64, len(parts)+1),
	}
	for i, p := range parts {
		f.offsets[i+1] = f.offsets[i] + p.span(minimal)
		f.numKeys += p.numKeys
		f.tableSize += p.tableSize
	}
	return f
}

// Evaluate returns the position of key. For keys outside the build set the
// result is arbitrary but still below Range().
func (f *Function) Evaluate(key []byte) uint64 {
	return f.Position(f.hasher.Hash(key, f.seed))
}

// EvaluateUint64 evaluates the 8-byte little-endian form of v, as produced
// by Uint64Key.
func (f *Function) EvaluateUint64(v uint64) uint64 {
	var buf [8]byte
	return f.Evaluate(putUint64Key(buf[:], v))
}

// Position returns the position of a fingerprint computed with Hasher()
// and Seed().
func (f *Function) Position(fp Fingerprint) uint64 {
	if len(f.parts) == 1 {
		return f.parts[0].position(fp, f.hashes, f.minimal)
	}
	pid := f.selector.Bucket(fp.Mix())
	part := f.parts[pid]
	if part.numKeys == 0 {
		// No key of the set routes here.
		return 0
	}
	return f.offsets[pid] + part.position(fp, f.hashes, f.minimal)
}

// NumKeys returns the number of keys the function was built over.
func (f *Function) NumKeys() uint64 { return f.numKeys }

// TableSize returns the total table size over all partitions.
func (f *Function) TableSize() uint64 { return f.tableSize }

// Range returns the exclusive upper bound of Evaluate: NumKeys() when
// minimal, TableSize() otherwise.
func (f *Function) Range() uint64 { return f.offsets[len(f.parts)] }

// NumBits returns the size of the serialized function in bits.
func (f *Function) NumBits() uint64 {
	return 8 * uint64(f.encodedSize())
}

// Seed returns the hash seed.
func (f *Function) Seed() uint64 { return f.seed }

// Minimal reports whether positions lie in [0, NumKeys()).
func (f *Function) Minimal() bool { return f.minimal }

// NumPartitions returns the partition count.
func (f *Function) NumPartitions() int { return len(f.parts) }

// Encoder returns the pilot encoding.
func (f *Function) Encoder() EncoderID { return f.encoder }

// Hasher returns the key hasher.
func (f *Function) Hasher() Hasher { return f.hasher }
