package pthash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/pthash/internal/bucketer"
	"github.com/tamirms/pthash/internal/encoder"
	"github.com/tamirms/pthash/internal/search"
	"github.com/tamirms/pthash/internal/succinct"
)

const (
	// minHashChunk is the smallest number of keys hashed by one goroutine.
	minHashChunk = 1 << 14

	// chunksPerThread oversubscribes hashing chunks to even out stragglers.
	chunksPerThread = 4

	// bytesPerFingerprint is the in-memory and spilled size of one key.
	bytesPerFingerprint = 16
)

// fingerprintSource yields the fingerprints of one partition at a time.
type fingerprintSource interface {
	numPartitions() int
	// partition returns the fingerprints of partition i in key order. The
	// slice is valid until release(i).
	partition(i int) ([]Fingerprint, error)
	release(i int)
	close() error
}

// memorySource keeps every fingerprint in one slice grouped by partition.
type memorySource struct {
	fps    []Fingerprint
	starts []uint64 // len numPartitions+1
}

func (m *memorySource) numPartitions() int { return len(m.starts) - 1 }

func (m *memorySource) partition(i int) ([]Fingerprint, error) {
	return m.fps[m.starts[i]:m.starts[i+1]], nil
}

func (m *memorySource) release(int) {}

func (m *memorySource) close() error {
	m.fps = nil
	return nil
}

// hashChunk is a contiguous run of keys hashed by one goroutine.
type hashChunk struct {
	lo, hi int
	// next holds, per partition, the next destination index of this chunk.
	next []uint64
}

// hashKeys hashes every key under seed and groups the fingerprints by
// partition, spilling to disk when the configured RAM budget is exceeded.
// Within a partition fingerprints keep key order, independent of the
// thread count.
func (b *builder) hashKeys(ctx context.Context, seed uint64) (fingerprintSource, error) {
	n := len(b.keys)
	p := b.cfg.partitions
	selector := bucketer.NewUniform(uint64(p))
	chunks := b.splitChunks()

	// Counting pass: per-chunk partition histograms.
	if p > 1 {
		err := b.forEachChunk(ctx, chunks, func(c *hashChunk) error {
			c.next = make([]uint64, p)
			for _, key := range b.keys[c.lo:c.hi] {
				c.next[selector.Bucket(b.cfg.hasher.Hash(key, seed).Mix())]++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		for i := range chunks {
			chunks[i].next = []uint64{uint64(chunks[i].hi - chunks[i].lo)}
		}
	}

	// Turn counts into destination indexes: partitions back to back, and
	// within a partition chunks in key order.
	starts := make([]uint64, p+1)
	for pid := 0; pid < p; pid++ {
		cursor := starts[pid]
		for i := range chunks {
			count := chunks[i].next[pid]
			chunks[i].next[pid] = cursor
			cursor += count
		}
		starts[pid+1] = cursor
	}

	var put func(idx uint64, fp Fingerprint)
	var src fingerprintSource
	if b.cfg.tempDir != "" && uint64(n)*bytesPerFingerprint > b.cfg.ram {
		spill, err := newSpillBuffer(b.cfg.tempDir, starts)
		if err != nil {
			return nil, fmt.Errorf("spill fingerprints: %w", err)
		}
		b.log.InfoContext(ctx, "spilling fingerprints to disk",
			"dir", b.cfg.tempDir,
			"bytes", uint64(n)*bytesPerFingerprint,
			"ram", b.cfg.ram,
		)
		put, src = spill.put, spill
	} else {
		mem := &memorySource{fps: make([]Fingerprint, n), starts: starts}
		put = func(idx uint64, fp Fingerprint) { mem.fps[idx] = fp }
		src = mem
	}

	// Scatter pass.
	err := b.forEachChunk(ctx, chunks, func(c *hashChunk) error {
		for _, key := range b.keys[c.lo:c.hi] {
			fp := b.cfg.hasher.Hash(key, seed)
			pid := 0
			if p > 1 {
				pid = int(selector.Bucket(fp.Mix()))
			}
			put(c.next[pid], fp)
			c.next[pid]++
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(err, src.close())
	}
	if spill, ok := src.(*spillBuffer); ok {
		spill.prepareForRead()
	}
	return src, nil
}

// splitChunks divides the keys into contiguous runs for hashing.
func (b *builder) splitChunks() []hashChunk {
	n := len(b.keys)
	size := max(minHashChunk, (n+b.cfg.threads*chunksPerThread-1)/(b.cfg.threads*chunksPerThread))
	chunks := make([]hashChunk, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		chunks = append(chunks, hashChunk{lo: lo, hi: min(lo+size, n)})
	}
	return chunks
}

// forEachChunk runs fn over every chunk on at most threads goroutines.
func (b *builder) forEachChunk(ctx context.Context, chunks []hashChunk, fn func(*hashChunk) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.threads)
	for i := range chunks {
		c := &chunks[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(c)
		})
	}
	return g.Wait()
}

// buildPartitions builds every partition of src concurrently. The first
// failure cancels the remaining partitions and fails the build.
func (b *builder) buildPartitions(ctx context.Context, src fingerprintSource, hashes *search.PilotHashes) ([]*partition, BuildTimings, error) {
	numParts := src.numPartitions()
	parts := make([]*partition, numParts)

	var mu sync.Mutex
	var timings BuildTimings

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.threads)
	for i := 0; i < numParts; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fps, err := src.partition(i)
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			defer src.release(i)

			log := b.log
			if numParts > 1 {
				log = log.withPartition(i)
			}
			part, t, err := buildPartition(gctx, fps, b.partitionParams(uint64(len(fps))), hashes, log)
			mu.Lock()
			timings.add(t)
			mu.Unlock()
			if err != nil {
				if numParts > 1 {
					return fmt.Errorf("partition %d: %w", i, err)
				}
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, timings, err
	}
	return parts, timings, nil
}

// buildPartition runs bucket mapping, pilot search and encoding over the
// fingerprints of one partition.
func buildPartition(ctx context.Context, fps []Fingerprint, p partitionParams, hashes *search.PilotHashes, log *buildLogger) (*partition, BuildTimings, error) {
	var timings BuildTimings
	numKeys := uint64(len(fps))
	tableSize := tableSizeFor(numKeys, p.alpha)
	sk := bucketer.NewSkew(numBucketsFor(numKeys, p))
	log.logGeometry(ctx, numKeys, tableSize, sk.NumBuckets())

	// Mapping + ordering
	start := time.Now()
	buckets, err := search.Map(fps, sk)
	timings.MappingOrdering = time.Since(start)
	if err != nil {
		return nil, timings, err
	}
	log.logPhase(ctx, "mapping+ordering", timings.MappingOrdering)
	log.logBucketSizes(ctx, buckets.SizeHistogram())

	// Searching
	start = time.Now()
	res, err := search.Search(ctx, buckets, tableSize, hashes)
	timings.Searching = time.Since(start)
	if err != nil {
		return nil, timings, err
	}
	log.logPhase(ctx, "searching", timings.Searching)
	log.DebugContext(ctx, "pilots found", "max_pilot", res.MaxPilot)

	// Encoding
	start = time.Now()
	enc, err := encoder.New(encoder.ID(p.encoder), res.Pilots, int(sk.NumDense()))
	if err != nil {
		return nil, timings, err
	}
	part := &partition{
		numKeys:   numKeys,
		tableSize: tableSize,
		bucketer:  sk,
		pilots:    enc,
	}
	if p.minimal && tableSize > numKeys {
		part.freeSlots = succinct.NewEliasFano(search.FreeSlots(res.Taken, numKeys, tableSize))
	}
	timings.Encoding = time.Since(start)
	log.logPhase(ctx, "encoding", timings.Encoding)
	return part, timings, nil
}
