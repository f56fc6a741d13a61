package pthash

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"

	"github.com/tamirms/pthash/internal/encoding"
)

// Serialized layout (little-endian):
//
//	[Header 48B]
//	[Partition record] x NumPartitions
//	[Offsets: count + (NumPartitions+1)x8B]   only when NumPartitions > 1
//	[Footer 16B]
//
// Partition record:
//
//	encoder     uint8
//	num_keys    uint64
//	table_size  uint64
//	num_buckets uint64
//	pilots      uint64 length + encoder bytes
//	free_slots  uint64 length + elias-fano bytes   minimal functions only

// MarshalBinary returns the serialized function.
func (f *Function) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(nil)
}

// AppendBinary appends the serialized function to dst.
func (f *Function) AppendBinary(dst []byte) ([]byte, error) {
	start := len(dst)
	w := encoding.NewWriter(append(dst, make([]byte, headerSize)...))
	for _, p := range f.parts {
		p.encode(w, f.minimal)
	}
	if len(f.parts) > 1 {
		w.Words(f.offsets)
	}
	buf := w.Bytes()

	h := header{
		Magic:         magic,
		Version:       version,
		Encoder:       f.encoder,
		Hasher:        f.hasher.ID(),
		NumPartitions: uint32(len(f.parts)),
		NumKeys:       f.numKeys,
		TableSize:     f.tableSize,
		Seed:          f.seed,
		Size:          uint64(len(buf)-start) + footerSize,
	}
	if f.minimal {
		h.Flags |= flagMinimal
	}
	h.encodeTo(buf[start : start+headerSize])

	ft := footer{Checksum: xxhash.Sum64(buf[start:])}
	buf = append(buf, make([]byte, footerSize)...)
	ft.encodeTo(buf[len(buf)-footerSize:])
	return buf, nil
}

// encodedSize returns the length of the serialized function.
func (f *Function) encodedSize() int {
	size := headerSize + footerSize
	if len(f.parts) > 1 {
		size += 8 * (len(f.offsets) + 1)
	}
	for _, p := range f.parts {
		size += p.encodedSize(f.minimal)
	}
	return size
}

// WriteTo writes the serialized function to w.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	data, err := f.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// SaveFile writes the serialized function to path. The file is replaced
// atomically: readers see either the old content or the new one.
func (f *Function) SaveFile(path string) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save function: %w", err)
	}
	return nil
}

func (p *partition) encode(w *encoding.Writer, minimal bool) {
	w.Uint8(uint8(p.pilots.ID()))
	w.Uint64(p.numKeys)
	w.Uint64(p.tableSize)
	w.Uint64(p.bucketer.NumBuckets())

	pw := encoding.NewWriter(nil)
	p.pilots.Encode(pw)
	w.Blob(pw.Bytes())

	if minimal {
		fw := encoding.NewWriter(nil)
		if p.freeSlots != nil {
			p.freeSlots.Encode(fw)
		}
		w.Blob(fw.Bytes())
	}
}

func (p *partition) encodedSize(minimal bool) int {
	// tag, three counts and the pilot length prefix
	size := 1 + 3*8 + 8
	pw := encoding.NewWriter(nil)
	p.pilots.Encode(pw)
	size += pw.Len()
	if minimal {
		size += 8
		if p.freeSlots != nil {
			fw := encoding.NewWriter(nil)
			p.freeSlots.Encode(fw)
			size += fw.Len()
		}
	}
	return size
}
