package clna

import "errors"

// Errors returned by archive operations. Invalid-state and integrity errors
// are fatal to the writer instance: the destination is left incomplete and
// must not be treated as an archive.
var (
	// ErrInvalidState reports a phase method called out of order.
	ErrInvalidState = errors.New("clna: operation called out of phase")

	// ErrCloneGap reports a clone index with neither alignments nor a
	// placeholder in the sorted stream.
	ErrCloneGap = errors.New("clna: no alignments for clone")

	// ErrCloneIndexOutOfRange reports an alignment referencing a clone
	// index beyond the written clone section.
	ErrCloneIndexOutOfRange = errors.New("clna: alignment clone index out of range")

	// ErrLocked reports a destination already held by another writer.
	ErrLocked = errors.New("clna: archive is locked by another writer")

	// ErrCorruptArchive reports a file that is not a complete archive.
	ErrCorruptArchive = errors.New("clna: corrupted or incomplete archive")
)
