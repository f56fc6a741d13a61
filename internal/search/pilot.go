package search

import (
	intbits "github.com/tamirms/pthash/internal/bits"
)

// pilotHashC is the multiplier applied to pilot^seed before finalization.
const pilotHashC = 0x517cc1b727220a95

// numPrecomputed pilot hashes are cached per seed. Nearly every bucket
// settles on a pilot below this bound.
const numPrecomputed = 4096

// PilotHash returns the odd multiplier for pilot under seed. The SplitMix64
// finalizer makes consecutive pilots behave as independent trials; forcing
// the low bit keeps the multiplication a bijection mod 2^64.
func PilotHash(pilot, seed uint64) uint64 {
	return intbits.Remix(pilotHashC*(pilot^seed)) | 1
}

// Fold precomputes h ^ (h >> 32). Fold is a bijection, so distinct
// fingerprints never fold to the same value.
func Fold(h uint64) uint64 {
	return h ^ (h >> 32)
}

// Position maps a folded fingerprint and a pilot hash into [0, tableSize).
func Position(folded, pilotHash, tableSize uint64) uint64 {
	return intbits.FastRange64(folded*pilotHash, tableSize)
}

// PilotHashes caches PilotHash for the first numPrecomputed pilots of one
// seed. It is read-only after construction.
type PilotHashes struct {
	seed   uint64
	hashes [numPrecomputed]uint64
}

// NewPilotHashes precomputes pilot hashes for seed.
func NewPilotHashes(seed uint64) *PilotHashes {
	ph := &PilotHashes{seed: seed}
	for p := range ph.hashes {
		ph.hashes[p] = PilotHash(uint64(p), seed)
	}
	return ph
}

// Get returns PilotHash(pilot, seed), from the cache when possible.
func (ph *PilotHashes) Get(pilot uint64) uint64 {
	if pilot < numPrecomputed {
		return ph.hashes[pilot]
	}
	return PilotHash(pilot, ph.seed)
}

// Seed returns the seed the hashes were computed for.
func (ph *PilotHashes) Seed() uint64 { return ph.seed }
