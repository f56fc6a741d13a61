//go:build !linux && !darwin

package pthash

import (
	"errors"
	"os"
)

func openAnonymousTemp(string) (*os.File, error) {
	return nil, errors.New("O_TMPFILE is not supported")
}

// preallocate sets the file size. Disk blocks may not be reserved.
func preallocate(f *os.File, size int64) error {
	return f.Truncate(size)
}

func prefault([]byte) {}

func adviseRandom([]byte) {}

func adviseSequential(*os.File, []byte) {}

func dropPages([]byte) {}
