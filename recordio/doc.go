// Package recordio provides the binary primitives shared by the archive
// format and its spill files: little-endian fixed-width integers, unsigned
// varints, length-prefixed strings and byte slices, and a byte-counting
// writer used to track absolute stream offsets.
//
// Basic usage:
//
//	var buf bytes.Buffer
//	cw := recordio.NewCountingWriter(&buf)
//	bw := recordio.NewBinaryWriter(cw)
//
//	if _, err := bw.WriteInt32(42); err != nil {
//	    log.Fatal(err)
//	}
//	offset := cw.BytesWritten() // 4
//
//	br := recordio.NewBinaryReader(&buf)
//	v, err := br.ReadInt32()
package recordio
