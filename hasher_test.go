package pthash

import (
	"errors"
	"testing"

	pthasherrors "github.com/tamirms/pthash/errors"
)

var builtinHashers = []Hasher{XXH3128{}, XXHash64{}, Murmur64{}, Murmur128{}, SipHash128{}}

func TestHashersDeterministic(t *testing.T) {
	key := []byte("the quick brown fox")
	for _, h := range builtinHashers {
		t.Run(h.ID().String(), func(t *testing.T) {
			a := h.Hash(key, 12345)
			if b := h.Hash(key, 12345); a != b {
				t.Errorf("same key and seed hashed to %v and %v", a, b)
			}
			if c := h.Hash(key, 54321); c == a {
				t.Errorf("seed did not change the fingerprint %v", a)
			}
			if d := h.Hash([]byte("the quick brown fog"), 12345); d == a {
				t.Errorf("different keys share fingerprint %v", a)
			}
		})
	}
}

func TestHasher64BitWidening(t *testing.T) {
	for _, h := range []Hasher{XXHash64{}, Murmur64{}} {
		fp := h.Hash([]byte("key"), 7)
		if fp.Hi != fp.Lo {
			t.Errorf("%s: Hi=%#x Lo=%#x, want equal halves", h.ID(), fp.Hi, fp.Lo)
		}
	}
}

func TestBuildWithEachHasher(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 20_000, 12)
	for _, h := range builtinHashers {
		t.Run(h.ID().String(), func(t *testing.T) {
			f := quickBuild(t, keys, WithHasher(h), WithSeed(rng.Uint64()), WithPartitions(2))
			verifyPerfect(t, f, keys)
			if f.Hasher().ID() != h.ID() {
				t.Errorf("Hasher()=%s, want %s", f.Hasher().ID(), h.ID())
			}
		})
	}
}

func TestParseHasher(t *testing.T) {
	for _, h := range builtinHashers {
		got, ok := ParseHasher(h.ID().String())
		if !ok || got.ID() != h.ID() {
			t.Errorf("ParseHasher(%q) = %v, %v", h.ID(), got, ok)
		}
	}
	if _, ok := ParseHasher("md5"); ok {
		t.Error("ParseHasher accepted an unknown name")
	}
	if _, ok := ParseHasher(HasherCustom.String()); ok {
		t.Error("ParseHasher resolved the custom tag")
	}
}

func TestBuiltinHasherUnknown(t *testing.T) {
	for _, id := range []HasherID{0, 6, HasherCustom} {
		if _, err := builtinHasher(id); !errors.Is(err, pthasherrors.ErrUnknownHasher) {
			t.Errorf("builtinHasher(%d): got %v, want ErrUnknownHasher", id, err)
		}
	}
}

func TestParseEncoder(t *testing.T) {
	for _, id := range []EncoderID{EncoderDictionaryDictionary, EncoderPartitionedCompact, EncoderEliasFano} {
		got, ok := ParseEncoder(id.String())
		if !ok || got != id {
			t.Errorf("ParseEncoder(%q) = %d, %v", id, got, ok)
		}
	}
	if _, ok := ParseEncoder("huffman"); ok {
		t.Error("ParseEncoder accepted an unknown name")
	}
}

func TestUint64Key(t *testing.T) {
	got := Uint64Key(0x0102030405060708)
	want := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	if string(got) != string(want) {
		t.Errorf("Uint64Key = %v, want %v", got, want)
	}
}
