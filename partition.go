package pthash

import (
	"github.com/tamirms/pthash/internal/bucketer"
	"github.com/tamirms/pthash/internal/encoder"
	"github.com/tamirms/pthash/internal/search"
	"github.com/tamirms/pthash/internal/succinct"
)

// partition is a complete single function over the keys routed to it.
type partition struct {
	numKeys   uint64
	tableSize uint64
	bucketer  bucketer.Skew
	pilots    encoder.Encoder
	// freeSlots maps occupied positions in [numKeys, tableSize) to the
	// holes below numKeys. nil when the partition is non-minimal or has no
	// slack.
	freeSlots *succinct.EliasFano
}

// position returns the partition-local position of fp.
func (p *partition) position(fp Fingerprint, hashes *search.PilotHashes, minimal bool) uint64 {
	bucket := p.bucketer.Bucket(fp.First())
	pilot := p.pilots.Access(int(bucket))
	pos := search.Position(search.Fold(fp.Second()), hashes.Get(pilot), p.tableSize)
	if minimal && pos >= p.numKeys {
		return p.freeSlots.Access(int(pos - p.numKeys))
	}
	return pos
}

// span is the size of the partition's slice of the global range.
func (p *partition) span(minimal bool) uint64 {
	if minimal {
		return p.numKeys
	}
	return p.tableSize
}
