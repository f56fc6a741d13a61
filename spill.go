package pthash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

// spillBuffer holds fingerprints in a memory-mapped temp file, one region
// per partition, so that only the partitions being built are resident.
// Entries are 16 bytes: Hi then Lo, little-endian.
type spillBuffer struct {
	file   *os.File
	path   string // empty for anonymous O_TMPFILE files
	data   mmap.MMap
	starts []uint64 // partition i owns entries [starts[i], starts[i+1])
}

// newSpillBuffer creates and maps a temp file in dir sized for starts.
func newSpillBuffer(dir string, starts []uint64) (*spillBuffer, error) {
	total := starts[len(starts)-1]
	if total > math.MaxInt64/bytesPerFingerprint {
		return nil, fmt.Errorf("spill file size overflow: %d fingerprints", total)
	}
	size := int64(total) * bytesPerFingerprint

	s := &spillBuffer{starts: starts}
	if err := s.createTempFile(dir); err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	// Reserve disk blocks up front so a full disk fails here and not with
	// SIGBUS while writing through the mapping.
	if err := preallocate(s.file, size); err != nil {
		return nil, errors.Join(fmt.Errorf("pre-allocate temp file: %w", err), s.close())
	}

	data, err := mmap.MapRegion(s.file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("mmap temp file: %w", err), s.close())
	}
	s.data = data
	adviseRandom(s.data)
	prefault(s.data)
	return s, nil
}

// createTempFile prefers an anonymous O_TMPFILE file, which the kernel
// deletes on close, and falls back to a named temp file.
func (s *spillBuffer) createTempFile(dir string) error {
	if f, err := openAnonymousTemp(dir); err == nil {
		s.file = f
		return nil
	}
	f, err := os.CreateTemp(dir, "pthash-*.tmp")
	if err != nil {
		return err
	}
	s.file = f
	s.path = f.Name()
	return nil
}

// put stores fp at entry idx. Distinct indexes may be written concurrently.
func (s *spillBuffer) put(idx uint64, fp Fingerprint) {
	off := idx * bytesPerFingerprint
	binary.LittleEndian.PutUint64(s.data[off:], fp.Hi)
	binary.LittleEndian.PutUint64(s.data[off+8:], fp.Lo)
}

// prepareForRead switches the mapping from scattered writes to a
// sequential read-back.
func (s *spillBuffer) prepareForRead() {
	adviseSequential(s.file, s.data)
}

func (s *spillBuffer) numPartitions() int { return len(s.starts) - 1 }

func (s *spillBuffer) region(i int) []byte {
	return s.data[s.starts[i]*bytesPerFingerprint : s.starts[i+1]*bytesPerFingerprint]
}

// partition decodes partition i into memory.
func (s *spillBuffer) partition(i int) ([]Fingerprint, error) {
	if s.data == nil {
		return nil, errors.New("spill buffer is closed")
	}
	region := s.region(i)
	fps := make([]Fingerprint, len(region)/bytesPerFingerprint)
	for j := range fps {
		fps[j] = Fingerprint{
			Hi: binary.LittleEndian.Uint64(region[j*bytesPerFingerprint:]),
			Lo: binary.LittleEndian.Uint64(region[j*bytesPerFingerprint+8:]),
		}
	}
	return fps, nil
}

// release drops the pages of partition i once it has been built.
func (s *spillBuffer) release(i int) {
	if s.data != nil {
		dropPages(s.region(i))
	}
}

// close releases all temp file resources. Idempotent.
func (s *spillBuffer) close() error {
	var errs []error

	// Unmap first (required before close on some platforms)
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("munmap: %w", err))
		}
		s.data = nil
	}

	// O_TMPFILE files are deleted here
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close temp file: %w", err))
		}
		s.file = nil
	}

	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		s.path = ""
	}
	return errors.Join(errs...)
}
