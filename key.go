package pthash

import (
	"encoding/binary"

	"github.com/tamirms/pthash/internal/fingerprint"
)

// Fingerprint is the 128-bit hash of a key. First() selects the bucket,
// Second() the table position and Mix() the partition.
type Fingerprint = fingerprint.Fingerprint

// fingerprintFrom64 widens a 64-bit hash by storing it in both halves.
func fingerprintFrom64(h uint64) Fingerprint {
	return fingerprint.From64(h)
}

// Uint64Key returns the byte form used to hash a numeric key: 8 bytes,
// little-endian. Build and query must use the same form.
func Uint64Key(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, 8), v)
}

// putUint64Key writes the byte form of v into dst, which must hold 8 bytes.
func putUint64Key(dst []byte, v uint64) []byte {
	binary.LittleEndian.PutUint64(dst, v)
	return dst[:8]
}
