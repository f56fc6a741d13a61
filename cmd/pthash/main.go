// Pthash builds a minimal perfect hash function over random keys or the
// lines of a file, verifies it, and reports size, build phases and query
// throughput.
//
// Usage:
//
//	go run ./cmd/pthash --keys 10000000 --alpha 0.94 --threads 8
//	go run ./cmd/pthash --input keys.txt --partitions 16 --seed 42 --output keys.pthash
//	go run ./cmd/pthash --profile build.jsonc --keys 1000000000 --temp-dir /mnt/scratch
//
// A profile is a JSON object, comments allowed, with any of the fields
// alpha, c, partitions, threads, seed, ram, temp_dir, minimal, encoder and
// hasher. Flags given explicitly override the profile.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/c2h5oh/datasize"
	flag "github.com/spf13/pflag"

	"github.com/tamirms/pthash"
)

type options struct {
	keys       int
	input      string
	alpha      float64
	c          float64
	partitions int
	threads    int
	seed       uint64
	seedSet    bool
	ram        string
	tempDir    string
	minimal    bool
	encoder    string
	hasher     string
	output     string
	queries    int
	profile    string
	cpuprofile string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("pthash", flag.ContinueOnError)
	fs.IntVar(&o.keys, "keys", 1_000_000, "number of random keys (ignored with --input)")
	fs.StringVar(&o.input, "input", "", "newline-delimited key file")
	fs.Float64Var(&o.alpha, "alpha", pthash.DefaultAlpha, "load factor in (0, 1]")
	fs.Float64Var(&o.c, "c", pthash.DefaultC, "bucket-density constant")
	fs.IntVar(&o.partitions, "partitions", 1, "number of partitions")
	fs.IntVar(&o.threads, "threads", 1, "build goroutines (0 = one per CPU)")
	fs.Uint64Var(&o.seed, "seed", 0, "hash seed (random when unset)")
	fs.StringVar(&o.ram, "ram", "8GB", "fingerprint memory budget before spilling")
	fs.StringVar(&o.tempDir, "temp-dir", "", "directory for spilled fingerprints")
	fs.BoolVar(&o.minimal, "minimal", true, "build a minimal function")
	fs.StringVar(&o.encoder, "encoder", pthash.EncoderDictionaryDictionary.String(), "pilot encoder: dictionary-dictionary, partitioned-compact or elias-fano")
	fs.StringVar(&o.hasher, "hasher", pthash.HasherXXH3128.String(), "key hasher")
	fs.StringVarP(&o.output, "output", "o", "", "save the function to this file")
	fs.IntVar(&o.queries, "queries", 1_000_000, "number of timed queries")
	fs.StringVar(&o.profile, "profile", "", "build profile (JSON with comments)")
	fs.StringVar(&o.cpuprofile, "cpuprofile", "", "write a CPU profile of the build to file")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log build progress")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.seedSet = fs.Changed("seed")

	if o.profile != "" {
		p, err := loadProfile(o.profile)
		if err != nil {
			return nil, err
		}
		p.applyTo(o, fs.Changed)
	}
	return o, nil
}

func (o *options) buildOptions() ([]pthash.BuildOption, error) {
	ram, err := datasize.ParseString(o.ram)
	if err != nil {
		return nil, fmt.Errorf("--ram %q: %w", o.ram, err)
	}
	enc, ok := pthash.ParseEncoder(o.encoder)
	if !ok {
		return nil, fmt.Errorf("unknown encoder %q", o.encoder)
	}
	hasher, ok := pthash.ParseHasher(o.hasher)
	if !ok {
		return nil, fmt.Errorf("unknown hasher %q", o.hasher)
	}
	opts := []pthash.BuildOption{
		pthash.WithAlpha(o.alpha),
		pthash.WithC(o.c),
		pthash.WithPartitions(o.partitions),
		pthash.WithThreads(o.threads),
		pthash.WithRAM(ram.Bytes()),
		pthash.WithTempDir(o.tempDir),
		pthash.WithMinimal(o.minimal),
		pthash.WithEncoder(enc),
		pthash.WithHasher(hasher),
		pthash.WithVerbose(o.verbose),
	}
	if o.seedSet {
		opts = append(opts, pthash.WithSeed(o.seed))
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	opts, err := o.buildOptions()
	if err != nil {
		return err
	}

	keys, err := loadKeys(o)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "keys: %d\n", len(keys))

	if o.cpuprofile != "" {
		f, err := os.Create(o.cpuprofile)
		if err != nil {
			return fmt.Errorf("create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
	}
	start := time.Now()
	f, timings, err := pthash.Build(ctx, keys, opts...)
	elapsed := time.Since(start)
	if o.cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if err != nil {
		return err
	}

	n := float64(f.NumKeys())
	fmt.Fprintf(out, "seed:            %d\n", f.Seed())
	fmt.Fprintf(out, "table size:      %d (alpha %.4f)\n", f.TableSize(), n/float64(f.TableSize()))
	fmt.Fprintf(out, "partitions:      %d\n", f.NumPartitions())
	fmt.Fprintf(out, "encoder:         %s\n", f.Encoder())
	fmt.Fprintf(out, "size:            %s (%.3f bits/key)\n",
		datasize.ByteSize(f.NumBits()/8).HumanReadable(), float64(f.NumBits())/n)
	fmt.Fprintf(out, "partitioning:    %s\n", timings.Partitioning)
	fmt.Fprintf(out, "mapping+ordering:%s\n", timings.MappingOrdering)
	fmt.Fprintf(out, "searching:       %s\n", timings.Searching)
	fmt.Fprintf(out, "encoding:        %s\n", timings.Encoding)
	fmt.Fprintf(out, "build:           %s (%.2f M keys/sec)\n", elapsed, n/elapsed.Seconds()/1e6)

	if err := pthash.Check(keys, f); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	fmt.Fprintln(out, "verification:    ok")

	if o.queries > 0 {
		order := mrand.Perm(len(keys))
		var sink uint64
		qstart := time.Now()
		for i := 0; i < o.queries; i++ {
			sink ^= f.Evaluate(keys[order[i%len(order)]])
		}
		qdur := time.Since(qstart)
		runtime.KeepAlive(sink)
		fmt.Fprintf(out, "query:           %.1f ns/key\n", float64(qdur.Nanoseconds())/float64(o.queries))
	}

	if o.output != "" {
		if err := f.SaveFile(o.output); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved:           %s\n", o.output)
	}
	return nil
}

func loadKeys(o *options) ([][]byte, error) {
	if o.input == "" {
		if o.keys <= 0 {
			return nil, errors.New("--keys must be positive")
		}
		keys := make([][]byte, o.keys)
		buf := make([]byte, 16*o.keys)
		_, _ = rand.Read(buf) // crypto/rand.Read never fails on supported platforms
		for i := range keys {
			keys[i] = buf[i*16 : (i+1)*16 : (i+1)*16]
		}
		return keys, nil
	}

	file, err := os.Open(o.input)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer file.Close()
	var keys [][]byte
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		keys = append(keys, append([]byte(nil), sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return keys, nil
}
