package pthash

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// buildLogger wraps slog.Logger with the field names used across a build.
type buildLogger struct {
	*slog.Logger
}

// newBuildLogger returns the configured logger, a stderr debug logger when
// verbose, or one that discards everything.
func newBuildLogger(c *buildConfig) *buildLogger {
	switch {
	case c.logger != nil:
		return &buildLogger{Logger: c.logger}
	case c.verbose:
		return &buildLogger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))}
	default:
		return &buildLogger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	}
}

// withPartition tags records with a partition index.
func (l *buildLogger) withPartition(p int) *buildLogger {
	return &buildLogger{Logger: l.Logger.With("partition", p)}
}

func (l *buildLogger) logAttempt(ctx context.Context, attempt int, seed uint64, err error) {
	if err != nil {
		l.WarnContext(ctx, "build attempt failed",
			"attempt", attempt,
			"seed", seed,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "build attempt started",
		"attempt", attempt,
		"seed", seed,
	)
}

func (l *buildLogger) logGeometry(ctx context.Context, numKeys, tableSize, numBuckets uint64) {
	l.DebugContext(ctx, "geometry",
		"num_keys", numKeys,
		"table_size", tableSize,
		"num_buckets", numBuckets,
	)
}

func (l *buildLogger) logPhase(ctx context.Context, phase string, d time.Duration) {
	l.DebugContext(ctx, "phase completed",
		"phase", phase,
		"duration", d,
	)
}

func (l *buildLogger) logBucketSizes(ctx context.Context, hist []uint64) {
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := make([]any, 0, 2*len(hist))
	for size, count := range hist {
		if count > 0 {
			attrs = append(attrs, slog.Uint64("size_"+strconv.Itoa(size), count))
		}
	}
	l.DebugContext(ctx, "bucket sizes", attrs...)
}
