package pthash

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Fixed seeds for deterministic test RNG. Each test derives its own
// stream from these and its name.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG generator seeded from the test name, so every
// test sees the same keys on every run.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := 0; j < tail; j++ {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateRandomKeys creates n pseudo-random keys of keySize bytes. With
// keySize >= 16 the keys are distinct for any practical n.
func generateRandomKeys(rng *rand.Rand, n, keySize int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = make([]byte, keySize)
		fillFromRNG(rng, keys[i])
	}
	return keys
}

// quickBuild builds a function over keys and fails the test on error.
func quickBuild(t testing.TB, keys [][]byte, opts ...BuildOption) *Function {
	t.Helper()
	f, _, err := Build(t.Context(), keys, opts...)
	if err != nil {
		t.Fatalf("Build(%d keys): %v", len(keys), err)
	}
	return f
}

// verifyPerfect checks that f maps keys injectively into its range, and
// onto [0, n) when minimal.
func verifyPerfect(t *testing.T, f *Function, keys [][]byte) {
	t.Helper()
	if err := Check(keys, f); err != nil {
		t.Fatalf("Check: %v", err)
	}
	limit := f.TableSize()
	if f.Minimal() {
		limit = uint64(len(keys))
	}
	for i, key := range keys {
		if pos := f.Evaluate(key); pos >= limit {
			t.Fatalf("key %d: position %d >= %d", i, pos, limit)
		}
	}
}

// positionsOf evaluates every key.
func positionsOf(f *Function, keys [][]byte) []uint64 {
	out := make([]uint64, len(keys))
	for i, key := range keys {
		out[i] = f.Evaluate(key)
	}
	return out
}
