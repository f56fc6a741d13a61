// Package errors defines all exported error sentinels for the pthash library.
//
// This is the single source of truth for error values. Both the top-level
// pthash package and internal algorithm packages import from here,
// ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Build errors
var (
	ErrEmptyKeySet          = errors.New("pthash: cannot build a function over zero keys")
	ErrInvalidConfiguration = errors.New("pthash: invalid build configuration")
	ErrSeedsExhausted       = errors.New("pthash: all seed attempts failed")
	ErrBuildFailed          = errors.New("pthash: build failed")
)

// Search errors. Both are tied to the current seed: a single-partition build
// retries with a fresh seed, a partitioned build fails.
var (
	ErrSearchExhausted      = errors.New("pthash: pilot search exceeded its bound - retry with a different seed")
	ErrDuplicateFingerprint = errors.New("pthash: two keys in one bucket share a fingerprint - retry with a different seed")
)

// Serialization errors
var (
	ErrInvalidMagic   = errors.New("pthash: invalid magic number")
	ErrInvalidVersion = errors.New("pthash: unsupported version")
	ErrUnknownEncoder = errors.New("pthash: unknown pilot encoder")
	ErrUnknownHasher  = errors.New("pthash: unknown hasher")
	ErrChecksumFailed = errors.New("pthash: checksum verification failed")
	ErrTruncated      = errors.New("pthash: data is truncated")
	ErrCorrupted      = errors.New("pthash: data is corrupted")
)

// Verification errors
var (
	ErrTableTooSmall      = errors.New("pthash: table size is smaller than the key count")
	ErrPositionOutOfRange = errors.New("pthash: position outside the table")
	ErrNotMinimal         = errors.New("pthash: position outside [0, n) for a minimal function")
	ErrDuplicatePosition  = errors.New("pthash: two keys share a position")
)
