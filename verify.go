package pthash

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	pthasherrors "github.com/tamirms/pthash/errors"
)

// Check evaluates f on every key and confirms the result is a perfect hash
// of keys: positions are distinct and below TableSize(), and below
// len(keys) when f is minimal. It returns the first violation found.
func Check(keys [][]byte, f *Function) error {
	n := uint64(len(keys))
	if f.TableSize() < n {
		return fmt.Errorf("%w: table size %d, %d keys", pthasherrors.ErrTableTooSmall, f.TableSize(), n)
	}

	seen := roaring64.New()
	for i, key := range keys {
		pos := f.Evaluate(key)
		if pos >= f.TableSize() {
			return fmt.Errorf("%w: key %d at %d, table size %d", pthasherrors.ErrPositionOutOfRange, i, pos, f.TableSize())
		}
		if f.Minimal() && pos >= n {
			return fmt.Errorf("%w: key %d at %d, %d keys", pthasherrors.ErrNotMinimal, i, pos, n)
		}
		if !seen.CheckedAdd(pos) {
			return fmt.Errorf("%w: key %d at %d", pthasherrors.ErrDuplicatePosition, i, pos)
		}
	}
	return nil
}
