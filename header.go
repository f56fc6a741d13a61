package pthash

import (
	"encoding/binary"
	"fmt"

	pthasherrors "github.com/tamirms/pthash/errors"
)

const (
	// magic number for serialized functions
	// "PTHS" in little-endian
	magic = uint32(0x53485450)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (48 bytes)
	headerSize = 48

	// footerSize is the exact size of the serialized footer (16 bytes)
	footerSize = 16

	// maxSize bounds the stream size read from a header.
	maxSize = 1 << 50

	// flagMinimal marks a minimal function.
	flagMinimal = uint8(1 << 0)
)

// header is the 48-byte preamble of a serialized function.
//
// Layout:
//
//	Offset  Size  Field          Type
//	0       4     Magic          0x53485450 ("PTHS")
//	4       2     Version        0x0001
//	6       1     Flags          uint8 (bit 0: minimal)
//	7       1     Encoder        uint8 (EncoderID)
//	8       1     Hasher         uint8 (HasherID)
//	9       3     Reserved       [3]byte (zero)
//	12      4     NumPartitions  uint32_le
//	16      8     NumKeys        uint64_le
//	24      8     TableSize      uint64_le (sum over partitions)
//	32      8     Seed           uint64_le
//	40      8     Size           uint64_le (whole stream, header and footer included)
//
// The header is followed by one record per partition, the partition
// offsets when NumPartitions > 1, and the footer.
type header struct {
	Magic         uint32
	Version       uint16
	Flags         uint8
	Encoder       EncoderID
	Hasher        HasherID
	NumPartitions uint32
	NumKeys       uint64
	TableSize     uint64
	Seed          uint64
	Size          uint64
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = h.Flags
	buf[7] = uint8(h.Encoder)
	buf[8] = uint8(h.Hasher)
	clear(buf[9:12])
	binary.LittleEndian.PutUint32(buf[12:16], h.NumPartitions)
	binary.LittleEndian.PutUint64(buf[16:24], h.NumKeys)
	binary.LittleEndian.PutUint64(buf[24:32], h.TableSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.Seed)
	binary.LittleEndian.PutUint64(buf[40:48], h.Size)
}

// decodeHeader parses a 48-byte header. The hasher tag is resolved by the
// caller, which knows about WithLoadHasher.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", pthasherrors.ErrTruncated, headerSize, len(buf))
	}

	h := &header{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		Version:       binary.LittleEndian.Uint16(buf[4:6]),
		Flags:         buf[6],
		Encoder:       EncoderID(buf[7]),
		Hasher:        HasherID(buf[8]),
		NumPartitions: binary.LittleEndian.Uint32(buf[12:16]),
		NumKeys:       binary.LittleEndian.Uint64(buf[16:24]),
		TableSize:     binary.LittleEndian.Uint64(buf[24:32]),
		Seed:          binary.LittleEndian.Uint64(buf[32:40]),
		Size:          binary.LittleEndian.Uint64(buf[40:48]),
	}

	if h.Magic != magic {
		return nil, pthasherrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: %d", pthasherrors.ErrInvalidVersion, h.Version)
	}
	if !h.Encoder.Valid() {
		return nil, fmt.Errorf("%w: %d", pthasherrors.ErrUnknownEncoder, uint8(h.Encoder))
	}
	if h.Flags&^flagMinimal != 0 {
		return nil, fmt.Errorf("%w: flags %#x", pthasherrors.ErrCorrupted, h.Flags)
	}
	if h.NumPartitions == 0 || uint64(h.NumPartitions) > h.NumKeys || h.TableSize < h.NumKeys {
		return nil, fmt.Errorf("%w: %d partitions, %d keys, table size %d",
			pthasherrors.ErrCorrupted, h.NumPartitions, h.NumKeys, h.TableSize)
	}
	if h.Size < headerSize+footerSize || h.Size > maxSize {
		return nil, fmt.Errorf("%w: stream size %d", pthasherrors.ErrCorrupted, h.Size)
	}

	return h, nil
}

func (h *header) minimal() bool {
	return h.Flags&flagMinimal != 0
}

// footer is the 16-byte trailer of a serialized function.
//
// Layout:
//
//	Offset  Size  Field     Type
//	0       8     Checksum  uint64_le (xxHash64 of every preceding byte)
//	8       8     Reserved  [8]byte (zero)
type footer struct {
	Checksum uint64
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.Checksum)
	clear(buf[8:16])
}

// decodeFooter parses a 16-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, pthasherrors.ErrTruncated
	}
	return &footer{Checksum: binary.LittleEndian.Uint64(buf[0:8])}, nil
}
