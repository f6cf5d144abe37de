// Package clna implements a single-file indexed archive for clonotype
// alignment data. An archive stores a set of clone definitions followed by
// all alignment records grouped contiguously by owning clone, so that every
// clone's alignments can be read back with one seek and one sequential
// scan, without touching the rest of the file.
//
// Alignments arrive in arbitrary order and may not fit in memory; the
// writer reorders them with a chunked external sort that spills to a
// companion temp file, and still emits the archive in a single forward
// pass: block start offsets are recorded while writing and published as a
// delta-encoded index near the end of the file.
//
// Writing happens in three mandatory phases:
//
//	w, err := clna.NewWriter("run.clna")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.WriteClones(cloneSet); err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.SortAlignments(alignments, totalCount); err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.WriteAlignmentsAndIndex(); err != nil {
//	    log.Fatal(err)
//	}
//
// Reading:
//
//	r, err := clna.OpenReader("run.clna")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	seq, err := r.Alignments(cloneIndex)
//	for a := range seq {
//	    // alignments of one clone, ordered by mapping type
//	}
//
// File format:
//   - Magic (14 bytes): format name and version
//   - Clone section: assembling features, feature-alignment map, gene
//     reference table, clone count, then each clone in enumeration order
//     (that order is the clone index assignment)
//   - Alignment section: records grouped contiguously by ascending clone
//     index, ordered within a group by ascending mapping type
//   - Index section: numberOfClones+1 block boundaries, delta-encoded as
//     uvarints: block starts for every clone plus one end-of-data sentinel
//   - Footer (8 bytes): the index section offset, always the last 8 bytes
//     of the file
//
// Clones with zero alignments are represented by a placeholder record in
// the input stream (clonotype.NewPlaceholder); the writer records their
// block boundary without storing the placeholder, producing an empty block.
// A clone index missing from the stream entirely is a gap error and aborts
// the write: an archive without a footer is not a valid archive.
package clna
