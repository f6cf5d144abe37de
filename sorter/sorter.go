package sorter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/davidvella/clna/recordio"
	"github.com/google/btree"
)

var ErrInvalidChunkSize = errors.New("sorter: chunk size must be greater than 0")

const (
	spillWriteBufferSize  = 256 * 1024
	segmentReadBufferSize = 64 * 1024
)

// Codec serializes records of type E for the spill file. The encoding is
// private to one sort: segments are written and read back within the same
// process, so no versioning or magic is required.
type Codec[E any] struct {
	Encode func(recordio.BinaryWriter, E) (int64, error)
	Decode func(recordio.BinaryReader) (E, error)
}

// item pairs a record with its insertion sequence number. The sequence
// number breaks comparator ties so equal records survive the btree.
type item[E any] struct {
	value E
	seq   uint64
}

// segment locates one sorted chunk inside the spill file.
type segment struct {
	offset  int64
	length  int64
	records int
}

// Sort reorders input under less, bounding memory to chunkSize records.
// Full chunks are flushed as sorted segments to a spill file at spillPath;
// the returned cursor merges the segments with the final in-memory chunk.
// If the input never exceeds one chunk, no spill file is created.
//
// Sort consumes the input fully before returning. The caller owns the input
// sequence; the cursor owns the spill file until Close.
func Sort[E any](input iter.Seq[E], less func(E, E) bool, codec Codec[E], chunkSize int, spillPath string) (*Cursor[E], error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}

	chunk := btree.NewG[item[E]](2, func(a, b item[E]) bool {
		if less(a.value, b.value) {
			return true
		}
		if less(b.value, a.value) {
			return false
		}
		return a.seq < b.seq
	})

	var (
		file     *os.File
		buf      *bufio.Writer
		cw       *recordio.CountingWriter
		segments []segment
		seq      uint64
	)

	fail := func(err error) (*Cursor[E], error) {
		if file != nil {
			file.Close()
			os.Remove(spillPath)
		}
		return nil, err
	}

	spill := func() error {
		if file == nil {
			f, err := os.OpenFile(spillPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
			if err != nil {
				return fmt.Errorf("sorter: failed to create spill file: %w", err)
			}
			file = f
			buf = bufio.NewWriterSize(file, spillWriteBufferSize)
			cw = recordio.NewCountingWriter(buf)
		}

		bw := recordio.NewBinaryWriter(cw)
		start := cw.BytesWritten()

		var encodeErr error
		chunk.Ascend(func(it item[E]) bool {
			if _, err := codec.Encode(bw, it.value); err != nil {
				encodeErr = err
				return false
			}
			return true
		})
		if encodeErr != nil {
			return fmt.Errorf("sorter: failed to spill chunk: %w", encodeErr)
		}

		segments = append(segments, segment{
			offset:  start,
			length:  cw.BytesWritten() - start,
			records: chunk.Len(),
		})
		chunk.Clear(false)
		return nil
	}

	for e := range input {
		chunk.ReplaceOrInsert(item[E]{value: e, seq: seq})
		seq++

		if chunk.Len() >= chunkSize {
			if err := spill(); err != nil {
				return fail(err)
			}
		}
	}

	if buf != nil {
		if err := buf.Flush(); err != nil {
			return fail(fmt.Errorf("sorter: failed to flush spill file: %w", err))
		}
	}

	// The final partial chunk is served from memory.
	last := make([]E, 0, chunk.Len())
	chunk.Ascend(func(it item[E]) bool {
		last = append(last, it.value)
		return true
	})

	return &Cursor[E]{
		file:     file,
		path:     spillPath,
		segments: segments,
		last:     last,
		less:     less,
		codec:    codec,
	}, nil
}

// Cursor is the ordered result of a Sort. It lazily merges the on-disk
// segments with the final in-memory chunk; Close releases and removes the
// spill file.
type Cursor[E any] struct {
	file     *os.File
	path     string
	segments []segment
	last     []E
	less     func(E, E) bool
	codec    Codec[E]
	err      error
	closed   bool
}

// All returns the merged, totally ordered sequence. If a segment read
// fails, iteration stops and Err reports the failure.
func (c *Cursor[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		sources := make([]func() (E, bool), 0, len(c.segments)+1)
		for _, seg := range c.segments {
			sources = append(sources, c.segmentSource(seg))
		}
		sources = append(sources, sliceSource(c.last))

		tree := newMergeTree(sources, c.less)
		for v := range tree.all() {
			if c.err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Err returns the first read or decode error encountered while iterating.
func (c *Cursor[E]) Err() error {
	return c.err
}

// Close closes and removes the spill file. It is safe to call more than
// once and after a failed iteration.
func (c *Cursor[E]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.file == nil {
		return nil
	}

	err := c.file.Close()
	if rmErr := os.Remove(c.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func (c *Cursor[E]) segmentSource(seg segment) func() (E, bool) {
	section := io.NewSectionReader(c.file, seg.offset, seg.length)
	br := recordio.NewBinaryReader(bufio.NewReaderSize(section, segmentReadBufferSize))
	remaining := seg.records

	return func() (E, bool) {
		var zero E
		if remaining == 0 {
			return zero, false
		}
		v, err := c.codec.Decode(br)
		if err != nil {
			if c.err == nil {
				c.err = fmt.Errorf("sorter: failed to read spill segment: %w", err)
			}
			return zero, false
		}
		remaining--
		return v, true
	}
}

func sliceSource[E any](values []E) func() (E, bool) {
	i := 0
	return func() (E, bool) {
		var zero E
		if i >= len(values) {
			return zero, false
		}
		v := values[i]
		i++
		return v, true
	}
}
