package encoding

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	pthasherrors "github.com/tamirms/pthash/errors"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// TestStreamRoundTrip writes a mix of fields and reads them back in order.
func TestStreamRoundTrip(t *testing.T) {
	rng := newTestRNG(t)

	words := make([]uint64, 37)
	for i := range words {
		words[i] = rng.Uint64()
	}
	blob := []byte("pilot blob")

	w := NewWriter(nil)
	w.Uint8(0xAB)
	w.Uint32(0xDEADBEEF)
	w.Uint64(0x0102030405060708)
	w.Words(words)
	w.Blob(blob)
	w.Words(nil)

	wantLen := 1 + 4 + 8 + 8 + 37*8 + 8 + len(blob) + 8
	if w.Len() != wantLen {
		t.Fatalf("Len() = %d, want %d", w.Len(), wantLen)
	}

	r := NewReader(w.Bytes())
	if got := r.Uint8(); got != 0xAB {
		t.Errorf("Uint8 = 0x%X, want 0xAB", got)
	}
	if got := r.Uint32(); got != 0xDEADBEEF {
		t.Errorf("Uint32 = 0x%X, want 0xDEADBEEF", got)
	}
	if got := r.Uint64(); got != 0x0102030405060708 {
		t.Errorf("Uint64 = 0x%X, want 0x0102030405060708", got)
	}
	if diff := cmp.Diff(words, r.Words()); diff != "" {
		t.Errorf("Words mismatch (-want +got):\n%s", diff)
	}
	if got := string(r.Blob()); got != string(blob) {
		t.Errorf("Blob = %q, want %q", got, blob)
	}
	if got := r.Words(); len(got) != 0 {
		t.Errorf("empty Words returned %d entries", len(got))
	}
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
}

// TestLittleEndianLayout pins the byte order of the persisted fields.
func TestLittleEndianLayout(t *testing.T) {
	w := NewWriter(nil)
	w.Uint32(0x04030201)
	w.Uint64(0x0C0B0A0908070605)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if diff := cmp.Diff(want, w.Bytes()); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

// TestReaderTruncation verifies every read reports ErrTruncated on short input
// and that the error is sticky.
func TestReaderTruncation(t *testing.T) {
	w := NewWriter(nil)
	w.Words([]uint64{1, 2, 3})
	full := w.Bytes()

	for cut := 0; cut < len(full); cut++ {
		r := NewReader(full[:cut])
		r.Words()
		if !errors.Is(r.Err(), pthasherrors.ErrTruncated) {
			t.Fatalf("cut=%d: err = %v, want ErrTruncated", cut, r.Err())
		}
		// Subsequent reads must not clear or replace the error.
		_ = r.Uint64()
		if !errors.Is(r.Err(), pthasherrors.ErrTruncated) {
			t.Fatalf("cut=%d: error not sticky: %v", cut, r.Err())
		}
	}
}

// TestReaderHugeLengthPrefix guards against allocating from a corrupted prefix.
func TestReaderHugeLengthPrefix(t *testing.T) {
	w := NewWriter(nil)
	w.Uint64(1 << 62)
	r := NewReader(w.Bytes())
	if words := r.Words(); words != nil {
		t.Errorf("Words returned %d entries from a corrupted prefix", len(words))
	}
	if !errors.Is(r.Err(), pthasherrors.ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", r.Err())
	}

	r = NewReader(w.Bytes())
	if b := r.Blob(); b != nil {
		t.Errorf("Blob returned %d bytes from a corrupted prefix", len(b))
	}
	if !errors.Is(r.Err(), pthasherrors.ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", r.Err())
	}
}

func TestReaderFail(t *testing.T) {
	r := NewReader([]byte{1})
	r.Fail(pthasherrors.ErrCorrupted)
	r.Fail(pthasherrors.ErrTruncated)
	if !errors.Is(r.Err(), pthasherrors.ErrCorrupted) {
		t.Errorf("err = %v, want the first recorded error", r.Err())
	}
	if got := r.Uint8(); got != 0 {
		t.Errorf("read after failure returned %d, want 0", got)
	}
}
