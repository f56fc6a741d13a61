package pthash

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	pthasherrors "github.com/tamirms/pthash/errors"
	"github.com/tamirms/pthash/internal/bucketer"
	"github.com/tamirms/pthash/internal/search"
)

// maxSeedAttempts bounds the seeds tried by a single-partition build whose
// seed was not fixed with WithSeed.
const maxSeedAttempts = 10

// BuildTimings reports the wall-clock duration of each build phase. For
// partitioned builds, the per-partition phases are summed over partitions.
type BuildTimings struct {
	// Partitioning covers hashing and grouping keys by partition.
	Partitioning time.Duration
	// MappingOrdering covers bucket assignment and ordering. For a single
	// partition it also includes hashing.
	MappingOrdering time.Duration
	// Searching covers the pilot search.
	Searching time.Duration
	// Encoding covers pilot encoding and the free-slot map.
	Encoding time.Duration
}

// Total returns the sum of all phases.
func (t BuildTimings) Total() time.Duration {
	return t.Partitioning + t.MappingOrdering + t.Searching + t.Encoding
}

func (t *BuildTimings) add(o BuildTimings) {
	t.Partitioning += o.Partitioning
	t.MappingOrdering += o.MappingOrdering
	t.Searching += o.Searching
	t.Encoding += o.Encoding
}

// Build constructs a perfect hash function over keys, which must be
// distinct. The function maps every key to a distinct position in
// [0, NumKeys()) when minimal (the default), or in [0, TableSize())
// otherwise.
//
// A single-partition build without WithSeed draws random seeds and retries
// up to 10 times when the search fails; the final error then matches both
// ErrSeedsExhausted and the last failure. Partitioned builds and builds with
// a fixed seed are attempted once.
//
// Usage:
//
//	f, timings, err := pthash.Build(ctx, keys, pthash.WithAlpha(0.94))
//	if err != nil { return err }
//	pos := f.Evaluate([]byte("key"))
func Build(ctx context.Context, keys [][]byte, opts ...BuildOption) (*Function, BuildTimings, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(len(keys)); err != nil {
		return nil, BuildTimings{}, err
	}
	if cfg.threads == 0 {
		cfg.threads = runtime.NumCPU()
	}

	b := &builder{
		cfg:  cfg,
		keys: keys,
		log:  newBuildLogger(cfg),
	}

	if cfg.seedSet || cfg.partitions > 1 {
		seed := cfg.seed
		if !cfg.seedSet {
			seed = rand.Uint64()
		}
		b.log.logAttempt(ctx, 1, seed, nil)
		f, timings, err := b.attempt(ctx, seed)
		if err != nil {
			b.log.logAttempt(ctx, 1, seed, err)
			return nil, timings, fmt.Errorf("%w: %w", pthasherrors.ErrBuildFailed, err)
		}
		return f, timings, nil
	}

	var lastErr error
	var total BuildTimings
	for attempt := 1; attempt <= maxSeedAttempts; attempt++ {
		seed := rand.Uint64()
		b.log.logAttempt(ctx, attempt, seed, nil)
		f, timings, err := b.attempt(ctx, seed)
		total.add(timings)
		if err == nil {
			return f, timings, nil
		}
		b.log.logAttempt(ctx, attempt, seed, err)
		if !retryable(err) {
			return nil, total, fmt.Errorf("%w: %w", pthasherrors.ErrBuildFailed, err)
		}
		lastErr = err
	}
	return nil, total, errors.Join(pthasherrors.ErrSeedsExhausted, lastErr)
}

// retryable reports whether a fresh seed may fix err.
func retryable(err error) bool {
	return errors.Is(err, pthasherrors.ErrSearchExhausted) ||
		errors.Is(err, pthasherrors.ErrDuplicateFingerprint)
}

// builder carries the state shared by every attempt of one Build call.
type builder struct {
	cfg  *buildConfig
	keys [][]byte
	log  *buildLogger
}

// attempt runs the whole pipeline with one seed.
func (b *builder) attempt(ctx context.Context, seed uint64) (*Function, BuildTimings, error) {
	var timings BuildTimings
	cfg := b.cfg

	// Hashing
	start := time.Now()
	src, err := b.hashKeys(ctx, seed)
	if err != nil {
		return nil, timings, err
	}
	defer func() {
		if cerr := src.close(); cerr != nil {
			b.log.WarnContext(ctx, "release fingerprint source", "error", cerr)
		}
	}()
	hashing := time.Since(start)
	if cfg.partitions > 1 {
		timings.Partitioning = hashing
		b.log.logPhase(ctx, "partitioning", hashing)
	} else {
		timings.MappingOrdering = hashing
	}

	hashes := search.NewPilotHashes(seed)
	parts, partTimings, err := b.buildPartitions(ctx, src, hashes)
	timings.add(partTimings)
	if err != nil {
		return nil, timings, err
	}

	f := newFunction(seed, cfg.minimal, cfg.encoder, cfg.hasher, hashes, parts)
	b.log.InfoContext(ctx, "build completed",
		"num_keys", f.NumKeys(),
		"table_size", f.TableSize(),
		"partitions", f.NumPartitions(),
		"bits_per_key", float64(f.NumBits())/float64(f.NumKeys()),
		"total", timings.Total(),
	)
	return f, timings, nil
}

// partitionParams are the per-partition inputs derived from the config.
type partitionParams struct {
	alpha      float64
	c          float64
	numBuckets uint64 // 0 derives the count from c
	minimal    bool
	encoder    EncoderID
}

func (b *builder) partitionParams(numKeys uint64) partitionParams {
	p := partitionParams{
		alpha:   b.cfg.alpha,
		c:       b.cfg.c,
		minimal: b.cfg.minimal,
		encoder: b.cfg.encoder,
	}
	if b.cfg.numBuckets > 0 {
		// Split the override in proportion to the partition's share of keys.
		total := uint64(len(b.keys))
		p.numBuckets = max(1, (b.cfg.numBuckets*numKeys+total-1)/total)
	}
	return p
}

// tableSizeFor returns max(n, ceil(n/alpha)).
func tableSizeFor(numKeys uint64, alpha float64) uint64 {
	ts := uint64(float64(numKeys) / alpha)
	if float64(ts)*alpha < float64(numKeys) {
		ts++
	}
	return max(ts, numKeys)
}

// numBucketsFor returns the bucket count of a partition.
func numBucketsFor(numKeys uint64, p partitionParams) uint64 {
	if p.numBuckets > 0 {
		return p.numBuckets
	}
	return bucketer.NumBuckets(numKeys, p.c)
}
