package pthash

import (
	"fmt"
	"log/slog"

	pthasherrors "github.com/tamirms/pthash/errors"
)

const (
	// DefaultC is the default bucket-density constant.
	DefaultC = 4.5
	// DefaultAlpha is the default load factor.
	DefaultAlpha = 0.98
	// DefaultRAM is the default in-memory budget for fingerprints.
	DefaultRAM = 8 << 30

	// maxAutoSeedPartitions is the largest partition count accepted without
	// an explicit seed. Partitioned builds are not retried, so a random seed
	// over this many independent searches is left to the caller.
	maxAutoSeedPartitions = 1 << 16
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	c          float64
	alpha      float64
	numBuckets uint64 // 0 derives the count from c
	partitions int
	threads    int
	seed       uint64
	seedSet    bool
	ram        uint64
	tempDir    string
	minimal    bool
	encoder    EncoderID
	hasher     Hasher
	logger     *slog.Logger
	verbose    bool
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		c:          DefaultC,
		alpha:      DefaultAlpha,
		partitions: 1,
		threads:    1,
		ram:        DefaultRAM,
		minimal:    true,
		encoder:    EncoderDictionaryDictionary,
		hasher:     XXH3128{},
	}
}

// validate checks the configuration before any work begins.
func (c *buildConfig) validate(numKeys int) error {
	switch {
	case numKeys == 0:
		return pthasherrors.ErrEmptyKeySet
	case !(c.alpha > 0 && c.alpha <= 1):
		return fmt.Errorf("%w: alpha %v outside (0, 1]", pthasherrors.ErrInvalidConfiguration, c.alpha)
	case !(c.c > 0):
		return fmt.Errorf("%w: c %v must be positive", pthasherrors.ErrInvalidConfiguration, c.c)
	case c.partitions < 1:
		return fmt.Errorf("%w: %d partitions", pthasherrors.ErrInvalidConfiguration, c.partitions)
	case c.partitions > numKeys:
		return fmt.Errorf("%w: %d partitions for %d keys", pthasherrors.ErrInvalidConfiguration, c.partitions, numKeys)
	case c.threads < 0:
		return fmt.Errorf("%w: %d threads", pthasherrors.ErrInvalidConfiguration, c.threads)
	case c.hasher == nil:
		return fmt.Errorf("%w: nil hasher", pthasherrors.ErrInvalidConfiguration)
	case !c.encoder.Valid():
		return fmt.Errorf("%w: %w: %d", pthasherrors.ErrInvalidConfiguration, pthasherrors.ErrUnknownEncoder, uint8(c.encoder))
	case !c.seedSet && c.partitions > maxAutoSeedPartitions:
		return fmt.Errorf("%w: %d partitions require an explicit seed", pthasherrors.ErrInvalidConfiguration, c.partitions)
	}
	return nil
}

// WithAlpha sets the load factor n/table_size, in (0, 1].
func WithAlpha(alpha float64) BuildOption {
	return func(c *buildConfig) {
		c.alpha = alpha
	}
}

// WithC sets the bucket-density constant. The bucket count is
// ceil(c*n/log2(n)); larger values search faster but encode more pilots.
func WithC(v float64) BuildOption {
	return func(c *buildConfig) {
		c.c = v
	}
}

// WithNumBuckets overrides the bucket count derived from c. In a
// partitioned build the count is split across partitions in proportion to
// their key counts.
func WithNumBuckets(n uint64) BuildOption {
	return func(c *buildConfig) {
		c.numBuckets = n
	}
}

// WithPartitions splits the key set into p independently built partitions.
func WithPartitions(p int) BuildOption {
	return func(c *buildConfig) {
		c.partitions = p
	}
}

// WithThreads sets the number of goroutines used for hashing and for
// building partitions. 0 means one per CPU.
func WithThreads(n int) BuildOption {
	return func(c *buildConfig) {
		c.threads = n
	}
}

// WithSeed fixes the hash seed. Without it a random seed is drawn, and a
// single-partition build retries with fresh seeds on failure.
func WithSeed(seed uint64) BuildOption {
	return func(c *buildConfig) {
		c.seed = seed
		c.seedSet = true
	}
}

// WithRAM sets the memory budget for fingerprints. Builds whose
// fingerprints exceed it spill to WithTempDir when that is set.
func WithRAM(bytes uint64) BuildOption {
	return func(c *buildConfig) {
		c.ram = bytes
	}
}

// WithTempDir enables the external-memory path. The directory must exist
// and be on a local filesystem.
func WithTempDir(dir string) BuildOption {
	return func(c *buildConfig) {
		c.tempDir = dir
	}
}

// WithMinimal selects a minimal function (range [0, n)) or a non-minimal
// one (range [0, table_size)). Default true.
func WithMinimal(minimal bool) BuildOption {
	return func(c *buildConfig) {
		c.minimal = minimal
	}
}

// WithEncoder selects the pilot encoding.
func WithEncoder(id EncoderID) BuildOption {
	return func(c *buildConfig) {
		c.encoder = id
	}
}

// WithHasher selects the key hasher. Default XXH3128.
func WithHasher(h Hasher) BuildOption {
	return func(c *buildConfig) {
		c.hasher = h
	}
}

// WithLogger routes build logs to l.
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = l
	}
}

// WithVerbose logs build progress to stderr at debug level unless a logger
// is set with WithLogger.
func WithVerbose(v bool) BuildOption {
	return func(c *buildConfig) {
		c.verbose = v
	}
}

// LoadOption is a functional option for Load, UnmarshalBinary and Open.
type LoadOption func(*loadConfig)

type loadConfig struct {
	hasher Hasher
}

// WithLoadHasher supplies the hasher for functions built with a custom
// hasher. It must match the one used at build time.
func WithLoadHasher(h Hasher) LoadOption {
	return func(c *loadConfig) {
		c.hasher = h
	}
}
