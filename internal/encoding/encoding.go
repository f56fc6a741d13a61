// Package encoding provides the little-endian stream primitives used to
// persist pilot encodings, free-slot maps and the file header.
//
// Writer appends fields to a growing byte slice. Reader walks a byte slice
// and records the first short read in a sticky error, so callers can decode
// a whole structure and check Err once at the end.
package encoding

import (
	"encoding/binary"
	"fmt"

	pthasherrors "github.com/tamirms/pthash/errors"
)

// Writer appends little-endian fields to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer that appends to dst.
func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst}
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// Words writes a length prefix followed by each word.
func (w *Writer) Words(words []uint64) {
	w.Uint64(uint64(len(words)))
	for _, v := range words {
		w.Uint64(v)
	}
}

// Blob writes a length prefix followed by the raw bytes.
func (w *Writer) Blob(b []byte) {
	w.Uint64(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes accumulated so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reader decodes little-endian fields from a byte slice.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over b. The slice is not copied; Blob returns
// subslices of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// take returns the next n bytes, or nil after recording ErrTruncated.
func (r *Reader) take(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)-r.off) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			pthasherrors.ErrTruncated, n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Words reads a length-prefixed word slice written by Writer.Words.
// The result is a fresh copy.
func (r *Reader) Words() []uint64 {
	n := r.Uint64()
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)-r.off)/8 {
		r.err = fmt.Errorf("%w: word count %d exceeds remaining %d bytes",
			pthasherrors.ErrTruncated, n, len(r.buf)-r.off)
		return nil
	}
	b := r.take(n * 8)
	words := make([]uint64, n)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return words
}

// Blob reads a length-prefixed byte slice written by Writer.Blob.
func (r *Reader) Blob() []byte {
	n := r.Uint64()
	return r.take(n)
}

// Fail records err unless an earlier error is already recorded. Decoders use
// it to report semantic corruption through the same sticky error.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}
