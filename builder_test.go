package pthash

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"

	pthasherrors "github.com/tamirms/pthash/errors"
)

func TestBuildConfigValidation(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 100, 16)

	tests := []struct {
		name string
		keys [][]byte
		opts []BuildOption
		want error
	}{
		{"NoKeys", nil, nil, pthasherrors.ErrEmptyKeySet},
		{"AlphaZero", keys, []BuildOption{WithAlpha(0)}, pthasherrors.ErrInvalidConfiguration},
		{"AlphaAboveOne", keys, []BuildOption{WithAlpha(1.01)}, pthasherrors.ErrInvalidConfiguration},
		{"AlphaNaN", keys, []BuildOption{WithAlpha(math.NaN())}, pthasherrors.ErrInvalidConfiguration},
		{"CZero", keys, []BuildOption{WithC(0)}, pthasherrors.ErrInvalidConfiguration},
		{"CNegative", keys, []BuildOption{WithC(-1)}, pthasherrors.ErrInvalidConfiguration},
		{"ZeroPartitions", keys, []BuildOption{WithPartitions(0)}, pthasherrors.ErrInvalidConfiguration},
		{"MorePartitionsThanKeys", keys, []BuildOption{WithPartitions(101), WithSeed(1)}, pthasherrors.ErrInvalidConfiguration},
		{"NegativeThreads", keys, []BuildOption{WithThreads(-1)}, pthasherrors.ErrInvalidConfiguration},
		{"NilHasher", keys, []BuildOption{WithHasher(nil)}, pthasherrors.ErrInvalidConfiguration},
		{"UnknownEncoder", keys, []BuildOption{WithEncoder(42)}, pthasherrors.ErrUnknownEncoder},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, _, err := Build(t.Context(), tc.keys, tc.opts...)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if f != nil {
				t.Error("failed build returned a function")
			}
		})
	}
}

func TestManyPartitionsRequireSeed(t *testing.T) {
	const numKeys = 1 << 20
	cfg := defaultBuildConfig()
	WithPartitions(maxAutoSeedPartitions + 1)(cfg)
	if err := cfg.validate(numKeys); !errors.Is(err, pthasherrors.ErrInvalidConfiguration) {
		t.Fatalf("unseeded: got %v, want ErrInvalidConfiguration", err)
	}
	WithSeed(1)(cfg)
	if err := cfg.validate(numKeys); err != nil {
		t.Fatalf("seeded: %v", err)
	}
}

func TestDuplicateKeys(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 1000, 16)
	keys = append(keys, bytes.Clone(keys[17]))

	t.Run("RetriedSeeds", func(t *testing.T) {
		_, _, err := Build(t.Context(), keys)
		if !errors.Is(err, pthasherrors.ErrSeedsExhausted) {
			t.Errorf("got %v, want ErrSeedsExhausted", err)
		}
		if !errors.Is(err, pthasherrors.ErrDuplicateFingerprint) {
			t.Errorf("got %v, want the last attempt's ErrDuplicateFingerprint", err)
		}
	})

	t.Run("FixedSeed", func(t *testing.T) {
		_, _, err := Build(t.Context(), keys, WithSeed(1))
		if !errors.Is(err, pthasherrors.ErrBuildFailed) || !errors.Is(err, pthasherrors.ErrDuplicateFingerprint) {
			t.Errorf("got %v, want ErrBuildFailed wrapping ErrDuplicateFingerprint", err)
		}
		if errors.Is(err, pthasherrors.ErrSeedsExhausted) {
			t.Errorf("a fixed seed must not be retried: %v", err)
		}
	})

	t.Run("Partitioned", func(t *testing.T) {
		_, _, err := Build(t.Context(), keys, WithPartitions(4))
		if !errors.Is(err, pthasherrors.ErrBuildFailed) || !errors.Is(err, pthasherrors.ErrDuplicateFingerprint) {
			t.Errorf("got %v, want ErrBuildFailed wrapping ErrDuplicateFingerprint", err)
		}
	})
}

func TestRetryableErrors(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{pthasherrors.ErrSearchExhausted, true},
		{pthasherrors.ErrDuplicateFingerprint, true},
		{errors.Join(errors.New("partition 3"), pthasherrors.ErrSearchExhausted), true},
		{context.Canceled, false},
		{os.ErrPermission, false},
	}
	for _, tc := range tests {
		if got := retryable(tc.err); got != tc.want {
			t.Errorf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBuildCancelled(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 50_000, 16)

	for _, tc := range []struct {
		name string
		opts []BuildOption
	}{
		{"Single", nil},
		{"SingleSeeded", []BuildOption{WithSeed(1)}},
		{"Partitioned", []BuildOption{WithPartitions(4), WithThreads(4)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			cancel()
			f, _, err := Build(ctx, keys, tc.opts...)
			if !errors.Is(err, context.Canceled) {
				t.Errorf("got %v, want context.Canceled", err)
			}
			if f != nil {
				t.Error("cancelled build returned a function")
			}
		})
	}
}

func TestBuildTimings(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 40_000, 16)

	_, single, err := Build(t.Context(), keys, WithSeed(4))
	if err != nil {
		t.Fatal(err)
	}
	if single.Partitioning != 0 || single.MappingOrdering <= 0 || single.Searching <= 0 {
		t.Errorf("single-partition timings %+v", single)
	}

	_, parted, err := Build(t.Context(), keys, WithSeed(4), WithPartitions(4))
	if err != nil {
		t.Fatal(err)
	}
	if parted.Partitioning <= 0 || parted.Searching <= 0 {
		t.Errorf("partitioned timings %+v", parted)
	}
	if got, want := parted.Total(), parted.Partitioning+parted.MappingOrdering+parted.Searching+parted.Encoding; got != want {
		t.Errorf("Total()=%s, sum=%s", got, want)
	}
}

func TestBuildLogging(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 5000, 16)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quickBuild(t, keys, WithLogger(logger), WithPartitions(2), WithSeed(8))

	out := buf.String()
	for _, want := range []string{
		"build attempt started",
		"geometry",
		"phase=searching",
		"bucket sizes",
		"partition=1",
		"build completed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q", want)
		}
	}
}

func TestSpillMatchesMemory(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 40_000, 16)
	seed := rng.Uint64()

	for _, tc := range []struct {
		name string
		opts []BuildOption
	}{
		{"Single", nil},
		{"Partitioned", []BuildOption{WithPartitions(5), WithThreads(3)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			mem := quickBuild(t, keys, append(tc.opts, WithSeed(seed))...)
			disk := quickBuild(t, keys, append(tc.opts, WithSeed(seed), WithTempDir(dir), WithRAM(1024), WithLogger(logger))...)

			if !strings.Contains(buf.String(), "spilling fingerprints to disk") {
				t.Error("build did not take the spill path")
			}
			a, _ := mem.MarshalBinary()
			b, _ := disk.MarshalBinary()
			if !bytes.Equal(a, b) {
				t.Error("spilled build differs from in-memory build")
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("temp dir holds %d leftover files", len(entries))
			}
		})
	}
}

func TestSpillUnderBudgetStaysInMemory(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 1000, 16)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	quickBuild(t, keys, WithTempDir(t.TempDir()), WithLogger(logger), WithSeed(2))
	if strings.Contains(buf.String(), "spilling") {
		t.Error("build spilled despite fitting the RAM budget")
	}
}

func TestSpillBadDir(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 1000, 16)
	_, _, err := Build(t.Context(), keys, WithTempDir("/nonexistent/pthash"), WithRAM(1), WithSeed(1))
	if err == nil {
		t.Fatal("expected an error for a missing temp dir")
	}
	if !errors.Is(err, pthasherrors.ErrBuildFailed) {
		t.Errorf("got %v, want ErrBuildFailed", err)
	}
}

func TestTableSizeFor(t *testing.T) {
	tests := []struct {
		n     uint64
		alpha float64
		want  uint64
	}{
		{1, 1, 1},
		{1, 0.98, 2},
		{3, 0.94, 4},
		{100, 1, 100},
		{100, 0.98, 103},
		{1000, 0.5, 2000},
	}
	for _, tc := range tests {
		if got := tableSizeFor(tc.n, tc.alpha); got != tc.want {
			t.Errorf("tableSizeFor(%d, %v) = %d, want %d", tc.n, tc.alpha, got, tc.want)
		}
	}
}
