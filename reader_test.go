package clna_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidvella/clna"
	"github.com/davidvella/clna/clonotype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRoundTrip(t *testing.T) {
	set := newTestCloneSet(3)

	// Clone 0 has 4 alignments, clone 1 has none, clone 2 has 6. The
	// empty clone is represented by a placeholder so the index stays
	// gap free.
	var alignments []clonotype.Alignment
	for i := 0; i < 4; i++ {
		alignments = append(alignments, clonotype.Alignment{
			ReadID:      int64(100 + i),
			CloneIndex:  0,
			MappingType: clonotype.MappingTypeCore,
			Sequence:    []byte("ACGT"),
		})
	}
	alignments = append(alignments, clonotype.NewPlaceholder(1))
	for i := 0; i < 6; i++ {
		alignments = append(alignments, clonotype.Alignment{
			ReadID:      int64(200 + i),
			CloneIndex:  2,
			MappingType: clonotype.MappingTypeClustered,
			Sequence:    []byte("TTAA"),
		})
	}

	path := buildArchive(t, set, alignments)

	r, err := clna.OpenReader(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	require.Equal(t, 3, r.NumberOfClones())
	require.Equal(t, set.Size(), len(r.CloneSet().Clones))
	assert.Equal(t, set.Clones[0].Count, r.CloneSet().Clones[0].Count)
	assert.Equal(t, set.Genes, r.CloneSet().Genes)

	boundaries := r.BlockBoundaries()
	require.Len(t, boundaries, 4)
	assert.Equal(t, boundaries[1], boundaries[2],
		"empty clone block has zero width")

	wantReads := map[int]map[int64]bool{
		0: {100: true, 101: true, 102: true, 103: true},
		1: {},
		2: {200: true, 201: true, 202: true, 203: true, 204: true, 205: true},
	}
	for i := 0; i < 3; i++ {
		seq, err := r.Alignments(i)
		require.NoError(t, err)

		got := map[int64]bool{}
		for a := range seq {
			assert.Equal(t, int32(i), a.CloneIndex)
			got[a.ReadID] = true
		}
		assert.Equal(t, wantReads[i], got, "clone %d", i)

		n, err := r.AlignmentCount(i)
		require.NoError(t, err)
		assert.Equal(t, int64(len(wantReads[i])), n)
	}

	total, err := r.TotalAlignments()
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	assert.NoError(t, r.Verify(context.Background()))
}

func TestUnsortedInputIsSortedOnWrite(t *testing.T) {
	set := newTestCloneSet(2)

	// Deliberately shuffled clone indices and mapping types.
	alignments := []clonotype.Alignment{
		{ReadID: 5, CloneIndex: 1, MappingType: clonotype.MappingTypeMapped},
		{ReadID: 1, CloneIndex: 0, MappingType: clonotype.MappingTypeClustered},
		{ReadID: 4, CloneIndex: 1, MappingType: clonotype.MappingTypeCore},
		{ReadID: 2, CloneIndex: 0, MappingType: clonotype.MappingTypeCore},
		{ReadID: 3, CloneIndex: 1, MappingType: clonotype.MappingTypeClustered},
	}

	path := buildArchive(t, set, alignments)

	r, err := clna.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 2; i++ {
		seq, err := r.Alignments(i)
		require.NoError(t, err)

		prev := byte(0)
		for a := range seq {
			assert.Equal(t, int32(i), a.CloneIndex)
			assert.GreaterOrEqual(t, a.MappingType, prev,
				"mapping types must not decrease within a block")
			prev = a.MappingType
		}
	}

	require.NoError(t, r.Verify(context.Background()))
}

func TestEmptyCloneSet(t *testing.T) {
	path := buildArchive(t, newTestCloneSet(0), nil)

	r, err := clna.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 0, r.NumberOfClones())
	require.Len(t, r.BlockBoundaries(), 1)

	total, err := r.TotalAlignments()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAlignmentsOutOfRange(t *testing.T) {
	path := buildArchive(t, newTestCloneSet(1), []clonotype.Alignment{
		{ReadID: 1, CloneIndex: 0, MappingType: clonotype.MappingTypeCore},
	})

	r, err := clna.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Alignments(-1)
	assert.ErrorIs(t, err, clna.ErrCloneIndexOutOfRange)

	_, err = r.Alignments(1)
	assert.ErrorIs(t, err, clna.ErrCloneIndexOutOfRange)

	_, err = r.AlignmentCount(1)
	assert.ErrorIs(t, err, clna.ErrCloneIndexOutOfRange)
}

func TestOpenReaderRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := clna.OpenReader(filepath.Join(dir, "absent.clna"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("too short", func(t *testing.T) {
		path := filepath.Join(dir, "short.clna")
		require.NoError(t, os.WriteFile(path, []byte("CLNA"), 0o644))

		_, err := clna.OpenReader(path)
		assert.ErrorIs(t, err, clna.ErrCorruptArchive)
	})

	t.Run("bad magic", func(t *testing.T) {
		path := filepath.Join(dir, "magic.clna")
		raw := make([]byte, 64)
		copy(raw, "NOT.AN.ARCHIVE")
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		_, err := clna.OpenReader(path)
		assert.ErrorIs(t, err, clna.ErrCorruptArchive)
	})

	t.Run("negative section count", func(t *testing.T) {
		// Magic, then a clone section starting with count -1, then an
		// index byte and a footer pointing at it. Passes the size,
		// magic and footer checks; the clone section must be rejected
		// without panicking.
		var raw []byte
		raw = append(raw, clna.Magic...)
		raw = binary.LittleEndian.AppendUint32(raw, uint32(0xFFFFFFFF))
		raw = append(raw, 0x00)
		raw = binary.LittleEndian.AppendUint64(raw, uint64(len(clna.Magic)+4))
		path := filepath.Join(dir, "negcount.clna")
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		_, err := clna.OpenReader(path)
		assert.ErrorIs(t, err, clna.ErrCorruptArchive)
	})

	t.Run("footer out of bounds", func(t *testing.T) {
		good := buildArchive(t, newTestCloneSet(1), []clonotype.Alignment{
			{ReadID: 1, CloneIndex: 0, MappingType: clonotype.MappingTypeCore},
		})
		raw, err := os.ReadFile(good)
		require.NoError(t, err)

		// Point the footer past the end of the file.
		for i := len(raw) - 8; i < len(raw); i++ {
			raw[i] = 0xFF
		}
		path := filepath.Join(dir, "footer.clna")
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		_, err = clna.OpenReader(path)
		assert.ErrorIs(t, err, clna.ErrCorruptArchive)
	})

	t.Run("truncated", func(t *testing.T) {
		good := buildArchive(t, newTestCloneSet(2), []clonotype.Alignment{
			{ReadID: 1, CloneIndex: 0, MappingType: clonotype.MappingTypeCore},
			{ReadID: 2, CloneIndex: 1, MappingType: clonotype.MappingTypeCore},
		})
		raw, err := os.ReadFile(good)
		require.NoError(t, err)

		path := filepath.Join(dir, "trunc.clna")
		require.NoError(t, os.WriteFile(path, raw[:len(raw)/2], 0o644))

		_, err = clna.OpenReader(path)
		assert.Error(t, err)
	})
}
