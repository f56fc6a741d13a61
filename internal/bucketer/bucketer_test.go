package bucketer

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"testing"
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

func TestNumBuckets(t *testing.T) {
	tests := []struct {
		n    uint64
		c    float64
		want uint64
	}{
		{0, 4.5, 1},
		{1, 4.5, 1},
		{2, 4.5, 9},      // 4.5*2/1
		{3, 4.5, 9},      // ceil(13.5/1.585) = ceil(8.52)
		{1024, 4.5, 461},   // ceil(4608/10) = ceil(460.8)
	}
	for _, tt := range tests {
		if got := NumBuckets(tt.n, tt.c); got != tt.want {
			t.Errorf("NumBuckets(%d, %v) = %d, want %d", tt.n, tt.c, got, tt.want)
		}
	}
}

func TestSkewRange(t *testing.T) {
	rng := newTestRNG(t)
	for _, nb := range []uint64{1, 2, 3, 10, 1000, 123457} {
		s := NewSkew(nb)
		if s.NumBuckets() != nb {
			t.Fatalf("NumBuckets() = %d, want %d", s.NumBuckets(), nb)
		}
		if s.NumDense() == 0 || s.NumDense() > nb {
			t.Fatalf("nb=%d: NumDense() = %d", nb, s.NumDense())
		}
		for _, h := range []uint64{0, denseThreshold - 1, denseThreshold, math.MaxUint64} {
			if b := s.Bucket(h); b >= nb {
				t.Fatalf("nb=%d: Bucket(0x%X) = %d out of range", nb, h, b)
			}
		}
		for i := 0; i < 10000; i++ {
			if b := s.Bucket(rng.Uint64()); b >= nb {
				t.Fatalf("nb=%d: bucket %d out of range", nb, b)
			}
		}
	}
}

// TestSkewDistribution checks that about 60% of keys land in the dense 30%
// of buckets.
func TestSkewDistribution(t *testing.T) {
	rng := newTestRNG(t)
	const nb = 10000
	const samples = 1000000
	s := NewSkew(nb)
	if s.NumDense() != 3000 {
		t.Fatalf("NumDense() = %d, want 3000", s.NumDense())
	}

	dense := 0
	for i := 0; i < samples; i++ {
		if s.Bucket(rng.Uint64()) < s.NumDense() {
			dense++
		}
	}
	share := float64(dense) / samples
	if math.Abs(share-0.6) > 0.01 {
		t.Errorf("dense share = %.4f, want 0.60 ± 0.01", share)
	}
}

func TestSkewDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	a, b := NewSkew(777), NewSkew(777)
	for i := 0; i < 1000; i++ {
		h := rng.Uint64()
		if a.Bucket(h) != b.Bucket(h) {
			t.Fatalf("Bucket(0x%X) differs between equal bucketers", h)
		}
	}
}

func TestUniform(t *testing.T) {
	rng := newTestRNG(t)
	const n = 16
	u := NewUniform(n)
	counts := make([]int, n)
	for i := 0; i < 160000; i++ {
		b := u.Bucket(rng.Uint64())
		if b >= n {
			t.Fatalf("bucket %d out of range", b)
		}
		counts[b]++
	}
	for i, c := range counts {
		if c < 9000 || c > 11000 {
			t.Errorf("partition %d received %d of 160000 hashes", i, c)
		}
	}
	if NewUniform(0).NumBuckets() != 1 {
		t.Error("NewUniform(0) should clamp to one target")
	}
}
