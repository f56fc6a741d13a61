//go:build linux

package pthash

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+). Older kernels
// return EINVAL, which is ignored.
const madvPopulateWrite = 23

// openAnonymousTemp creates an unnamed file in dir with O_TMPFILE.
func openAnonymousTemp(dir string) (*os.File, error) {
	fd, err := unix.Open(dir, unix.O_RDWR|unix.O_TMPFILE, 0o600)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), ""), nil
}

// preallocate reserves size bytes with fallocate and sets the file size.
func preallocate(f *os.File, size int64) error {
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		// Not every filesystem supports fallocate; truncate still sizes the file.
		return unix.Ftruncate(int(f.Fd()), size)
	}
	return unix.Ftruncate(int(f.Fd()), size)
}

func prefault(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, madvPopulateWrite)
	}
}

func adviseRandom(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_RANDOM)
	}
}

func adviseSequential(f *os.File, data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	}
	_ = unix.Fadvise(int(f.Fd()), 0, int64(len(data)), unix.FADV_SEQUENTIAL)
}

func dropPages(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_DONTNEED)
	}
}
