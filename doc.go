// Package pthash builds minimal perfect hash functions with the PTHash
// algorithm: keys are grouped into skewed buckets, and each bucket gets the
// smallest pilot that places all of its keys on free table slots.
//
// # Basic Usage
//
// Building a function:
//
//	f, timings, err := pthash.Build(ctx, keys,
//	    pthash.WithAlpha(0.94),
//	    pthash.WithThreads(0),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("%.2f bits/key in %s", float64(f.NumBits())/float64(f.NumKeys()), timings.Total())
//
// Querying:
//
//	pos := f.Evaluate([]byte("mykey")) // in [0, f.NumKeys())
//
// Saving and loading:
//
//	if err := f.SaveFile("keys.pthash"); err != nil {
//	    log.Fatal(err)
//	}
//	g, err := pthash.Open("keys.pthash")
//
// Keys outside the build set map to arbitrary positions inside the range.
// Callers that need membership must check it separately.
//
// # Package Structure
//
//   - Public API: builder.go (Build), function.go (Evaluate), verify.go (Check)
//   - Configuration: builder_options.go (BuildOption, LoadOption, With* functions)
//   - Hashing: hasher.go (Hasher, built-in hashers), key.go (Fingerprint, Uint64Key)
//   - Partitions: builder_parallel.go (hashing and concurrent builds), partition.go
//   - External memory: spill.go, spill_*.go (OS-specific file hints)
//   - Serialization: header.go (header, footer), serialize.go, load.go
//   - Algorithms: internal/bucketer, internal/search, internal/encoder
//   - Succinct structures: internal/succinct, internal/encoding, internal/bits
package pthash
