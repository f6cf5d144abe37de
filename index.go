package clna

import (
	"fmt"

	"github.com/davidvella/clna/recordio"
)

// BlockIndex accumulates the byte offsets at which each clone's alignment
// block begins, plus one end-of-data sentinel. Offsets are monotonically
// non-decreasing; two equal consecutive boundaries denote a clone with zero
// alignments. The index encodes as successive deltas in uvarint form,
// exploiting monotonicity to stay compact for archives with many clones.
type BlockIndex struct {
	boundaries []int64
}

func NewBlockIndex() *BlockIndex {
	return &BlockIndex{}
}

// AddBoundary appends the next block boundary. The caller guarantees
// offsets arrive in non-decreasing order.
func (ix *BlockIndex) AddBoundary(offset int64) {
	ix.boundaries = append(ix.boundaries, offset)
}

// Len returns the number of boundaries recorded so far.
func (ix *BlockIndex) Len() int {
	return len(ix.boundaries)
}

// EncodeTo writes the boundaries as delta-encoded uvarints and returns the
// number of bytes written.
func (ix *BlockIndex) EncodeTo(bw recordio.BinaryWriter) (int64, error) {
	var total int64
	prev := int64(0)

	for _, b := range ix.boundaries {
		if b < prev {
			return total, fmt.Errorf("clna: block index boundaries must be non-decreasing (%d after %d)", b, prev)
		}
		n, err := bw.WriteUvarint(uint64(b - prev))
		if err != nil {
			return total, fmt.Errorf("clna: failed to encode block index: %w", err)
		}
		total += n
		prev = b
	}

	return total, nil
}

// decodeBoundaries reads count delta-encoded boundaries back into absolute
// offsets.
func decodeBoundaries(br recordio.BinaryReader, count int) ([]int64, error) {
	boundaries := make([]int64, count)
	prev := int64(0)

	for i := range boundaries {
		delta, err := br.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("clna: failed to decode block index: %w", err)
		}
		prev += int64(delta)
		boundaries[i] = prev
	}

	return boundaries, nil
}
