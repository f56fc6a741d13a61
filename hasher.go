package pthash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	pthasherrors "github.com/tamirms/pthash/errors"
)

// HasherID identifies a hasher in the persisted format. Values are stable.
type HasherID uint8

const (
	HasherXXH3128    HasherID = 1
	HasherXXHash64   HasherID = 2
	HasherMurmur64   HasherID = 3
	HasherMurmur128  HasherID = 4
	HasherSipHash128 HasherID = 5

	// HasherCustom marks a user-supplied hasher. Loading such a function
	// requires WithLoadHasher.
	HasherCustom HasherID = 255
)

// String returns the hasher name.
func (id HasherID) String() string {
	switch id {
	case HasherXXH3128:
		return "xxh3-128"
	case HasherXXHash64:
		return "xxhash64"
	case HasherMurmur64:
		return "murmur3-64"
	case HasherMurmur128:
		return "murmur3-128"
	case HasherSipHash128:
		return "siphash-128"
	case HasherCustom:
		return "custom"
	default:
		return fmt.Sprintf("hasher(%d)", uint8(id))
	}
}

// Hasher turns a key and a seed into a fingerprint. Implementations must be
// deterministic and safe for concurrent use.
type Hasher interface {
	ID() HasherID
	Hash(key []byte, seed uint64) Fingerprint
}

// builtinHasher returns the built-in hasher for id.
func builtinHasher(id HasherID) (Hasher, error) {
	switch id {
	case HasherXXH3128:
		return XXH3128{}, nil
	case HasherXXHash64:
		return XXHash64{}, nil
	case HasherMurmur64:
		return Murmur64{}, nil
	case HasherMurmur128:
		return Murmur128{}, nil
	case HasherSipHash128:
		return SipHash128{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", pthasherrors.ErrUnknownHasher, id)
	}
}

// XXH3128 hashes keys with seeded xxHash3-128. It is the default.
type XXH3128 struct{}

func (XXH3128) ID() HasherID { return HasherXXH3128 }

func (XXH3128) Hash(key []byte, seed uint64) Fingerprint {
	h := xxh3.Hash128Seed(key, seed)
	return Fingerprint{Hi: h.Hi, Lo: h.Lo}
}

// XXHash64 hashes keys with seeded xxHash64.
type XXHash64 struct{}

func (XXHash64) ID() HasherID { return HasherXXHash64 }

func (XXHash64) Hash(key []byte, seed uint64) Fingerprint {
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(key)
	return fingerprintFrom64(d.Sum64())
}

// Murmur64 hashes keys with MurmurHash3 x64 and keeps the first 64 bits.
// The seed is folded to the 32 bits MurmurHash3 accepts.
type Murmur64 struct{}

func (Murmur64) ID() HasherID { return HasherMurmur64 }

func (Murmur64) Hash(key []byte, seed uint64) Fingerprint {
	return fingerprintFrom64(murmur3.Sum64WithSeed(key, foldSeed(seed)))
}

// Murmur128 hashes keys with MurmurHash3 x64 128.
type Murmur128 struct{}

func (Murmur128) ID() HasherID { return HasherMurmur128 }

func (Murmur128) Hash(key []byte, seed uint64) Fingerprint {
	h1, h2 := murmur3.Sum128WithSeed(key, foldSeed(seed))
	return Fingerprint{Hi: h1, Lo: h2}
}

// SipHash128 hashes keys with SipHash-2-4-128 keyed by (seed, ^seed). It is
// slower than the other hashers but resists adversarial key sets when the
// seed is secret.
type SipHash128 struct{}

func (SipHash128) ID() HasherID { return HasherSipHash128 }

func (SipHash128) Hash(key []byte, seed uint64) Fingerprint {
	hi, lo := siphash.Hash128(seed, ^seed, key)
	return Fingerprint{Hi: hi, Lo: lo}
}

func foldSeed(seed uint64) uint32 {
	return uint32(seed ^ seed>>32)
}

// ParseHasher returns the built-in hasher for a name as printed by
// HasherID.String.
func ParseHasher(name string) (Hasher, bool) {
	for _, id := range []HasherID{HasherXXH3128, HasherXXHash64, HasherMurmur64, HasherMurmur128, HasherSipHash128} {
		if id.String() == name {
			h, _ := builtinHasher(id)
			return h, true
		}
	}
	return nil, false
}
