package pthash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	pthasherrors "github.com/tamirms/pthash/errors"
	"github.com/tamirms/pthash/internal/bucketer"
	"github.com/tamirms/pthash/internal/encoder"
	"github.com/tamirms/pthash/internal/encoding"
	"github.com/tamirms/pthash/internal/search"
	"github.com/tamirms/pthash/internal/succinct"
)

// maxNumBuckets bounds the bucket count read from a partition record.
const maxNumBuckets = 1 << 40

// Load reads one serialized function from r. Bytes after the function are
// left unread.
func Load(r io.Reader, opts ...LoadOption) (*Function, error) {
	var hbuf [headerSize]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: reading header: %w", pthasherrors.ErrTruncated, err)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := decodeHeader(hbuf[:])
	if err != nil {
		return nil, err
	}

	// Grow with the data actually read rather than trusting h.Size for the
	// allocation.
	var buf bytes.Buffer
	buf.Write(hbuf[:])
	if _, err := io.CopyN(&buf, r, int64(h.Size-headerSize)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: stream ends at %d of %d bytes", pthasherrors.ErrTruncated, buf.Len(), h.Size)
		}
		return nil, fmt.Errorf("read function: %w", err)
	}
	return Unmarshal(buf.Bytes(), opts...)
}

// Unmarshal decodes a function serialized by MarshalBinary. The result does
// not reference data.
func Unmarshal(data []byte, opts ...LoadOption) (*Function, error) {
	cfg := &loadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	switch {
	case uint64(len(data)) < h.Size:
		return nil, fmt.Errorf("%w: have %d of %d bytes", pthasherrors.ErrTruncated, len(data), h.Size)
	case uint64(len(data)) > h.Size:
		return nil, fmt.Errorf("%w: %d trailing bytes", pthasherrors.ErrCorrupted, uint64(len(data))-h.Size)
	}
	hasher, err := cfg.resolveHasher(h.Hasher)
	if err != nil {
		return nil, err
	}

	ft, err := decodeFooter(data[len(data)-footerSize:])
	if err != nil {
		return nil, err
	}
	if xxhash.Sum64(data[:len(data)-footerSize]) != ft.Checksum {
		return nil, pthasherrors.ErrChecksumFailed
	}

	minimal := h.minimal()
	r := encoding.NewReader(data[headerSize : len(data)-footerSize])
	parts := make([]*partition, h.NumPartitions)
	for i := range parts {
		p, err := decodePartition(r, h.Encoder, minimal)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
		parts[i] = p
	}
	var offsets []uint64
	if len(parts) > 1 {
		offsets = r.Words()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d unread bytes before footer", pthasherrors.ErrCorrupted, r.Remaining())
	}

	f := newFunction(h.Seed, minimal, h.Encoder, hasher, search.NewPilotHashes(h.Seed), parts)
	if f.numKeys != h.NumKeys || f.tableSize != h.TableSize {
		return nil, fmt.Errorf("%w: partitions hold %d keys over %d slots, header says %d over %d",
			pthasherrors.ErrCorrupted, f.numKeys, f.tableSize, h.NumKeys, h.TableSize)
	}
	if offsets != nil && !slices.Equal(offsets, f.offsets) {
		return nil, fmt.Errorf("%w: partition offsets disagree with partition sizes", pthasherrors.ErrCorrupted)
	}
	return f, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Functions built
// with a custom hasher must be loaded with Unmarshal and WithLoadHasher.
func (f *Function) UnmarshalBinary(data []byte) error {
	g, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*f = *g
	return nil
}

// Open loads a function from a file written by SaveFile. The file is
// memory-mapped while decoding and unmapped before Open returns.
func Open(path string, opts ...LoadOption) (*Function, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open function file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat function file: %w", err)
	}
	if stat.Size() < headerSize+footerSize {
		return nil, fmt.Errorf("%w: file holds %d bytes", pthasherrors.ErrTruncated, stat.Size())
	}

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap function file: %w", err)
	}
	f, err := Unmarshal(mm, opts...)
	if uerr := mm.Unmap(); uerr != nil {
		return nil, errors.Join(err, fmt.Errorf("unmap function file: %w", uerr))
	}
	return f, err
}

// resolveHasher returns the hasher for a stored tag.
func (c *loadConfig) resolveHasher(id HasherID) (Hasher, error) {
	if c.hasher != nil {
		if c.hasher.ID() != id {
			return nil, fmt.Errorf("%w: stored %s, supplied %s", pthasherrors.ErrUnknownHasher, id, c.hasher.ID())
		}
		return c.hasher, nil
	}
	if id == HasherCustom {
		return nil, fmt.Errorf("%w: custom hasher requires WithLoadHasher", pthasherrors.ErrUnknownHasher)
	}
	return builtinHasher(id)
}

func decodePartition(r *encoding.Reader, enc EncoderID, minimal bool) (*partition, error) {
	id := encoder.ID(r.Uint8())
	numKeys := r.Uint64()
	tableSize := r.Uint64()
	numBuckets := r.Uint64()
	pilotBlob := r.Blob()
	var freeBlob []byte
	if minimal {
		freeBlob = r.Blob()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch {
	case !id.Valid():
		return nil, fmt.Errorf("%w: %d", pthasherrors.ErrUnknownEncoder, uint8(id))
	case EncoderID(id) != enc:
		return nil, fmt.Errorf("%w: partition encoder %s, function encoder %s", pthasherrors.ErrCorrupted, id, enc)
	case tableSize < numKeys || (numKeys == 0 && tableSize != 0):
		return nil, fmt.Errorf("%w: %d keys over %d slots", pthasherrors.ErrCorrupted, numKeys, tableSize)
	case numBuckets == 0 || numBuckets > maxNumBuckets:
		return nil, fmt.Errorf("%w: %d buckets", pthasherrors.ErrCorrupted, numBuckets)
	}

	pr := encoding.NewReader(pilotBlob)
	pilots, err := encoder.Decode(id, pr, int(numBuckets))
	if err != nil {
		return nil, err
	}
	if pr.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after pilots", pthasherrors.ErrCorrupted, pr.Remaining())
	}

	p := &partition{
		numKeys:   numKeys,
		tableSize: tableSize,
		bucketer:  bucketer.NewSkew(numBuckets),
		pilots:    pilots,
	}
	if !minimal || tableSize == numKeys {
		if len(freeBlob) != 0 {
			return nil, fmt.Errorf("%w: unexpected free-slot map", pthasherrors.ErrCorrupted)
		}
		return p, nil
	}

	fr := encoding.NewReader(freeBlob)
	free := succinct.DecodeEliasFano(fr)
	if err := fr.Err(); err != nil {
		return nil, fmt.Errorf("free slots: %w", err)
	}
	if fr.Remaining() != 0 || uint64(free.Len()) != tableSize-numKeys || free.Access(free.Len()-1) >= numKeys {
		return nil, fmt.Errorf("%w: free-slot map does not cover [%d, %d)", pthasherrors.ErrCorrupted, numKeys, tableSize)
	}
	p.freeSlots = free
	return p, nil
}
