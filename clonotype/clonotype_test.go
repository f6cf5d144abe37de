package clonotype_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/davidvella/clna/clonotype"
	"github.com/davidvella/clna/recordio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCloneSet() *clonotype.CloneSet {
	return &clonotype.CloneSet{
		AssemblingFeatures: []clonotype.AssemblingFeature{
			{Name: "CDR3", From: 107, To: 117},
		},
		FeatureMap: []clonotype.FeatureAlignment{
			{GeneType: 'V', Feature: clonotype.AssemblingFeature{Name: "VRegion", From: 0, To: 107}},
			{GeneType: 'J', Feature: clonotype.AssemblingFeature{Name: "JRegion", From: 117, To: 140}},
		},
		Genes: []clonotype.GeneReference{
			{Name: "TRBV9", Chains: "TRB", Sequence: []byte("TGTGCCAGC")},
			{Name: "TRBJ2-1", Chains: "TRB", Sequence: []byte("TTTGG")},
		},
		Clones: []clonotype.Clone{
			{Count: 150.5, Sequence: []byte("TGTGCCAGCAGTTTTGG"), VGene: 0, JGene: 1},
			{Count: 3, Sequence: []byte("TGTGCCTTTGG"), VGene: 0, JGene: 1},
			{Count: 1, Sequence: []byte("TGTTTTGG"), VGene: -1, JGene: 1},
		},
	}
}

func TestCloneSetRoundTrip(t *testing.T) {
	set := newTestCloneSet()

	var buf bytes.Buffer
	n, err := clonotype.WriteCloneSet(recordio.NewBinaryWriter(&buf), set)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := clonotype.ReadCloneSet(recordio.NewBinaryReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, set, got)
	assert.Equal(t, 3, got.Size())
}

func TestReadCloneSetRejectsNegativeCount(t *testing.T) {
	var buf bytes.Buffer
	_, err := recordio.NewBinaryWriter(&buf).WriteInt32(-1)
	require.NoError(t, err)

	_, err = clonotype.ReadCloneSet(recordio.NewBinaryReader(&buf))
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid feature count -1")
}

func TestAlignmentRoundTrip(t *testing.T) {
	in := clonotype.Alignment{
		ReadID:      42,
		CloneIndex:  7,
		MappingType: clonotype.MappingTypeMapped,
		Sequence:    []byte("ACGT"),
	}

	var buf bytes.Buffer
	n, err := clonotype.WriteAlignment(recordio.NewBinaryWriter(&buf), in)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := clonotype.ReadAlignment(recordio.NewBinaryReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestReadAlignmentCleanEOF(t *testing.T) {
	_, err := clonotype.ReadAlignment(recordio.NewBinaryReader(bytes.NewReader(nil)))
	assert.Equal(t, io.EOF, err)
}

func TestCompareOrdersByCloneIndexThenMappingType(t *testing.T) {
	a := clonotype.Alignment{CloneIndex: 1, MappingType: clonotype.MappingTypeMapped}
	b := clonotype.Alignment{CloneIndex: 2, MappingType: clonotype.MappingTypeCore}
	c := clonotype.Alignment{CloneIndex: 2, MappingType: clonotype.MappingTypeMapped}

	assert.True(t, clonotype.Less(a, b))
	assert.True(t, clonotype.Less(b, c))
	assert.False(t, clonotype.Less(c, b))
	assert.Zero(t, clonotype.Compare(c, c))

	// Fields other than clone index and mapping type must not influence order.
	d := c
	d.ReadID = 99
	d.Sequence = []byte("ACGT")
	assert.Zero(t, clonotype.Compare(c, d))
}

func TestPlaceholder(t *testing.T) {
	p := clonotype.NewPlaceholder(5)
	assert.True(t, p.IsPlaceholder())
	assert.Equal(t, int32(5), p.CloneIndex)

	real := clonotype.Alignment{CloneIndex: 5, MappingType: clonotype.MappingTypeCore}
	assert.False(t, real.IsPlaceholder())

	// A placeholder sorts ahead of any real alignment of the same clone.
	assert.True(t, clonotype.Less(p, real))
}
