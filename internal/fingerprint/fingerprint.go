// Package fingerprint defines the hashed form of a key shared by the build
// and query paths.
package fingerprint

import intbits "github.com/tamirms/pthash/internal/bits"

// Fingerprint is the 128-bit hash of a key under a seed. 64-bit hashers
// store the same value in both halves.
type Fingerprint struct {
	Hi uint64
	Lo uint64
}

// From64 widens a 64-bit hash.
func From64(h uint64) Fingerprint {
	return Fingerprint{Hi: h, Lo: h}
}

// First selects the bucket.
func (f Fingerprint) First() uint64 { return f.Hi }

// Second selects the position within the table once a pilot is known.
func (f Fingerprint) Second() uint64 { return f.Lo }

// Mix selects the partition. Hi is multiplied before the xor so that 64-bit
// fingerprints (Hi == Lo) do not cancel out.
func (f Fingerprint) Mix() uint64 {
	return intbits.Remix(f.Hi*0x9e3779b97f4a7c15 ^ f.Lo)
}
