//go:build darwin

package pthash

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func openAnonymousTemp(string) (*os.File, error) {
	return nil, errors.New("O_TMPFILE is not supported")
}

// preallocate reserves size bytes with F_PREALLOCATE and sets the file size.
func preallocate(f *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	if err := unix.FcntlFstore(f.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		return unix.Ftruncate(int(f.Fd()), size)
	}
	return unix.Ftruncate(int(f.Fd()), size)
}

func prefault([]byte) {}

func adviseRandom(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_RANDOM)
	}
}

func adviseSequential(_ *os.File, data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	}
}

func dropPages(data []byte) {
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_DONTNEED)
	}
}
