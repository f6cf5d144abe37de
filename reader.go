package clna

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/davidvella/clna/clonotype"
	"github.com/davidvella/clna/recordio"
)

// Reader provides random access to a finalized archive: the clone section
// is decoded eagerly, alignment blocks are read on demand through the block
// index.
type Reader struct {
	file       *os.File
	size       int64
	set        *clonotype.CloneSet
	boundaries []int64 // numberOfClones+1 entries, last is end-of-data
	indexStart int64
}

// OpenReader opens an archive, verifies the magic, locates the index via
// the footer and decodes the clone section and block index. A file without
// a valid footer is not an archive.
func OpenReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clna: failed to open archive: %w", err)
	}

	r, err := loadReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func loadReader(file *os.File) (*Reader, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("clna: failed to stat archive: %w", err)
	}
	size := info.Size()

	if size < magicLen+recordio.Int64Size {
		return nil, fmt.Errorf("%w: file too small", ErrCorruptArchive)
	}

	magic := make([]byte, magicLen)
	if _, err := file.ReadAt(magic, 0); err != nil {
		return nil, fmt.Errorf("clna: failed to read magic: %w", err)
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptArchive)
	}

	// The last 8 bytes always hold the index offset, independent of
	// payload size.
	footer := recordio.NewBinaryReader(io.NewSectionReader(file, size-recordio.Int64Size, recordio.Int64Size))
	indexStart, err := footer.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("clna: failed to read footer: %w", err)
	}
	if indexStart < magicLen || indexStart > size-recordio.Int64Size {
		return nil, fmt.Errorf("%w: index offset %d out of bounds", ErrCorruptArchive, indexStart)
	}

	cloneSection := recordio.NewBinaryReader(bufio.NewReader(
		io.NewSectionReader(file, magicLen, indexStart-magicLen)))
	set, err := clonotype.ReadCloneSet(cloneSection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	indexSection := recordio.NewBinaryReader(bufio.NewReader(
		io.NewSectionReader(file, indexStart, size-recordio.Int64Size-indexStart)))
	boundaries, err := decodeBoundaries(indexSection, set.Size()+1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	if len(boundaries) > 0 && boundaries[len(boundaries)-1] > indexStart {
		return nil, fmt.Errorf("%w: block boundary beyond index section", ErrCorruptArchive)
	}

	return &Reader{
		file:       file,
		size:       size,
		set:        set,
		boundaries: boundaries,
		indexStart: indexStart,
	}, nil
}

// CloneSet returns the decoded clone section.
func (r *Reader) CloneSet() *clonotype.CloneSet {
	return r.set
}

// NumberOfClones returns the number of clones in the archive.
func (r *Reader) NumberOfClones() int {
	return r.set.Size()
}

// BlockBoundaries returns a copy of the decoded block index: one byte
// offset per clone block start plus the end-of-data sentinel.
func (r *Reader) BlockBoundaries() []int64 {
	out := make([]int64, len(r.boundaries))
	copy(out, r.boundaries)
	return out
}

// Alignments iterates the alignment block of one clone. Records arrive in
// mapping-type order. Use Verify to check block integrity explicitly.
func (r *Reader) Alignments(cloneIndex int) (iter.Seq[clonotype.Alignment], error) {
	if cloneIndex < 0 || cloneIndex >= r.set.Size() {
		return nil, fmt.Errorf("%w: clone index %d, archive has %d clones",
			ErrCloneIndexOutOfRange, cloneIndex, r.set.Size())
	}

	return func(yield func(clonotype.Alignment) bool) {
		_ = r.scanBlock(cloneIndex, func(a clonotype.Alignment) error {
			if !yield(a) {
				return errStopScan
			}
			return nil
		})
	}, nil
}

// AlignmentCount returns the number of alignments stored for one clone.
func (r *Reader) AlignmentCount(cloneIndex int) (int64, error) {
	if cloneIndex < 0 || cloneIndex >= r.set.Size() {
		return 0, fmt.Errorf("%w: clone index %d, archive has %d clones",
			ErrCloneIndexOutOfRange, cloneIndex, r.set.Size())
	}

	var count int64
	if err := r.scanBlock(cloneIndex, func(clonotype.Alignment) error {
		count++
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}

// TotalAlignments returns the number of alignments stored across all
// blocks.
func (r *Reader) TotalAlignments() (int64, error) {
	var total int64
	for i := range r.set.Clones {
		n, err := r.AlignmentCount(i)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Verify scans every alignment block concurrently and checks that each
// record carries its block's clone index and that records within a block
// are ordered by mapping type.
func (r *Reader) Verify(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range r.set.Clones {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var prev clonotype.Alignment
			first := true
			return r.scanBlock(i, func(a clonotype.Alignment) error {
				if a.CloneIndex != int32(i) {
					return fmt.Errorf("%w: block %d holds alignment for clone %d",
						ErrCorruptArchive, i, a.CloneIndex)
				}
				if a.IsPlaceholder() {
					return fmt.Errorf("%w: block %d holds a placeholder alignment", ErrCorruptArchive, i)
				}
				if !first && a.MappingType < prev.MappingType {
					return fmt.Errorf("%w: block %d not ordered by mapping type", ErrCorruptArchive, i)
				}
				prev, first = a, false
				return nil
			})
		})
	}

	return g.Wait()
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// errStopScan aborts a scan early without reporting an error to the caller.
var errStopScan = errors.New("clna: scan stopped")

// scanBlock decodes every alignment in the byte range
// [boundaries[i], boundaries[i+1]) and passes it to fn.
func (r *Reader) scanBlock(cloneIndex int, fn func(clonotype.Alignment) error) error {
	start := r.boundaries[cloneIndex]
	length := r.boundaries[cloneIndex+1] - start

	br := recordio.NewBinaryReader(bufio.NewReader(io.NewSectionReader(r.file, start, length)))
	for {
		a, err := clonotype.ReadAlignment(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		if err := fn(a); err != nil {
			if errors.Is(err, errStopScan) {
				return nil
			}
			return err
		}
	}
}
