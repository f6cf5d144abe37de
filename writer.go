package clna

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/davidvella/clna/clonotype"
	"github.com/davidvella/clna/recordio"
	"github.com/davidvella/clna/sorter"
)

// Magic identifies the archive format and version. It is the first thing
// in every archive file.
const Magic = "CLNA.ARCHIVE.1"

const (
	magicLen        = int64(len(Magic))
	writeBufferSize = 128 * 1024

	// External-sort chunk bounds: large inputs are capped to bound peak
	// memory, small inputs get a floor to avoid pathological over-chunking.
	minSortChunk = 16384
	maxSortChunk = 1048576
)

type phase int

const (
	phaseCreated phase = iota
	phaseClonesWritten
	phaseSorted
	phaseFinalized
)

func (p phase) String() string {
	switch p {
	case phaseCreated:
		return "created"
	case phaseClonesWritten:
		return "clones-written"
	case phaseSorted:
		return "sorted"
	case phaseFinalized:
		return "finalized"
	}
	return "unknown"
}

var alignmentCodec = sorter.Codec[clonotype.Alignment]{
	Encode: clonotype.WriteAlignment,
	Decode: clonotype.ReadAlignment,
}

// Writer builds one archive in a single forward pass over three mandatory
// phases: WriteClones, SortAlignments, WriteAlignmentsAndIndex. Phase
// methods must be called in that order, each exactly once; out-of-order
// calls fail with ErrInvalidState.
//
// Phase methods are serialized by an internal mutex. Progress and
// IsFinished are safe to call from a concurrent observer goroutine while a
// phase is running.
type Writer struct {
	mu sync.Mutex

	path      string
	spillPath string
	file      *os.File
	lock      *flock.Flock
	buf       *bufio.Writer
	cw        *recordio.CountingWriter
	bw        recordio.BinaryWriter

	phase          phase
	numberOfClones int32
	sorted         *sorter.Cursor[clonotype.Alignment]
	closed         bool

	written  atomic.Int64
	total    atomic.Int64
	finished atomic.Bool
}

// NewWriter creates the destination file, locks it against concurrent
// writers and writes the format magic. The spill file used by the
// alignment sort lives next to the destination and is removed when the
// sort result is consumed or the writer is closed.
func NewWriter(path string) (*Writer, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("clna: failed to acquire archive lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	// The lock file itself stays behind after release: unlinking it
	// could race a second writer that already holds an flock on the
	// same inode, letting a third writer lock a fresh file.
	release := func() {
		lock.Unlock()
	}

	file, err := os.Create(path)
	if err != nil {
		release()
		return nil, fmt.Errorf("clna: failed to create archive: %w", err)
	}

	buf := bufio.NewWriterSize(file, writeBufferSize)
	cw := recordio.NewCountingWriter(buf)

	if _, err := cw.Write([]byte(Magic)); err != nil {
		file.Close()
		release()
		return nil, fmt.Errorf("clna: failed to write magic: %w", err)
	}

	return &Writer{
		path:      path,
		spillPath: path + ".unsorted",
		file:      file,
		lock:      lock,
		buf:       buf,
		cw:        cw,
		bw:        recordio.NewBinaryWriter(cw),
		phase:     phaseCreated,
	}, nil
}

// WriteClones writes the clone section: assembling features, the
// feature-alignment map, the gene reference table, the clone count and each
// clone in enumeration order. That order is the clone index assignment used
// by every alignment that follows. May be called exactly once.
func (w *Writer) WriteClones(set *clonotype.CloneSet) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != phaseCreated {
		return fmt.Errorf("%w: clones already written (phase %s)", ErrInvalidState, w.phase)
	}
	if set == nil {
		return errors.New("clna: clone set cannot be nil")
	}

	if _, err := clonotype.WriteCloneSet(w.bw, set); err != nil {
		return err
	}

	w.numberOfClones = int32(set.Size())
	w.phase = phaseClonesWritten

	log.Debug().Int("clones", set.Size()).Msg("clone section written")
	return nil
}

// SortAlignments hands the unordered alignment stream to the external
// sorter, ordering by clone index then mapping type. totalCount is the
// number of real alignments in the stream, placeholders excluded; it sizes
// the sort chunks and drives progress reporting. The input is consumed
// before SortAlignments returns; the sorted result is not read until
// WriteAlignmentsAndIndex.
func (w *Writer) SortAlignments(alignments iter.Seq[clonotype.Alignment], totalCount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != phaseClonesWritten {
		return fmt.Errorf("%w: write clones before sorting alignments (phase %s)", ErrInvalidState, w.phase)
	}

	chunkSize := min(max(totalCount/8, minSortChunk), maxSortChunk)

	cursor, err := sorter.Sort(alignments, clonotype.Less, alignmentCodec, int(chunkSize), w.spillPath)
	if err != nil {
		return fmt.Errorf("clna: failed to sort alignments: %w", err)
	}

	w.sorted = cursor
	w.total.Store(totalCount)
	w.phase = phaseSorted

	log.Debug().
		Int64("alignments", totalCount).
		Int64("chunkSize", chunkSize).
		Msg("alignment stream sorted")
	return nil
}

// WriteAlignmentsAndIndex drains the sorted stream once, writing one
// contiguous block per clone index while recording each block's start
// offset, then writes the delta-encoded block index and the footer holding
// its offset. Placeholder alignments register a block boundary but are not
// stored, so clones without alignments yield empty blocks.
//
// A skipped clone index is a gap error; a clone index beyond the clone
// count is an out-of-range error. Both leave the destination incomplete and
// unusable.
func (w *Writer) WriteAlignmentsAndIndex() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != phaseSorted {
		return fmt.Errorf("%w: sort alignments before writing the index (phase %s)", ErrInvalidState, w.phase)
	}

	index := NewBlockIndex()
	next := int32(0) // clone index whose block boundary is recorded next

	for rec := range w.sorted.All() {
		if rec.CloneIndex < 0 || rec.CloneIndex >= w.numberOfClones {
			return fmt.Errorf("%w: clone index %d, archive has %d clones",
				ErrCloneIndexOutOfRange, rec.CloneIndex, w.numberOfClones)
		}

		switch rec.CloneIndex {
		case next:
			index.AddBoundary(w.cw.BytesWritten())
			next++
		case next - 1:
			// Continuing the current block.
		default:
			return fmt.Errorf("%w number %d", ErrCloneGap, next)
		}

		if !rec.IsPlaceholder() {
			if _, err := clonotype.WriteAlignment(w.bw, rec); err != nil {
				return fmt.Errorf("clna: failed to write alignment: %w", err)
			}
			w.written.Add(1)
		}
	}
	if err := w.sorted.Err(); err != nil {
		return err
	}
	if next != w.numberOfClones {
		return fmt.Errorf("%w number %d", ErrCloneGap, next)
	}

	// End-of-data sentinel for the last block.
	index.AddBoundary(w.cw.BytesWritten())

	indexStart := w.cw.BytesWritten()
	if _, err := index.EncodeTo(w.bw); err != nil {
		return err
	}
	if _, err := w.bw.WriteInt64(indexStart); err != nil {
		return fmt.Errorf("clna: failed to write footer: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("clna: failed to flush archive: %w", err)
	}

	if err := w.sorted.Close(); err != nil {
		return fmt.Errorf("clna: failed to remove spill file: %w", err)
	}
	w.sorted = nil

	w.finished.Store(true)
	w.phase = phaseFinalized

	log.Debug().
		Int64("alignments", w.written.Load()).
		Int64("indexOffset", indexStart).
		Msg("archive finalized")
	return nil
}

// Progress returns the fraction of alignments written so far, reaching 1.0
// once finalization completes. It never blocks and may be called from
// another goroutine while a phase is running.
func (w *Writer) Progress() float64 {
	total := w.total.Load()
	if total <= 0 {
		if w.finished.Load() {
			return 1
		}
		return 0
	}
	return float64(w.written.Load()) / float64(total)
}

// IsFinished reports whether WriteAlignmentsAndIndex completed successfully.
func (w *Writer) IsFinished() bool {
	return w.finished.Load()
}

// Close releases the destination file, the writer lock and, after a failed
// run, the spill file. It is safe to call more than once and must be called
// even when an earlier phase failed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if w.sorted != nil {
		errs = append(errs, w.sorted.Close())
		w.sorted = nil
	}
	errs = append(errs, w.buf.Flush())
	errs = append(errs, w.file.Close())
	errs = append(errs, w.lock.Unlock())

	return errors.Join(errs...)
}
