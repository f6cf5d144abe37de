package recordio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

var (
	Uint8Size  = int64(binary.Size(uint8(0)))
	Int32Size  = int64(binary.Size(int32(0)))
	Int64Size  = int64(binary.Size(int64(0)))
	Uint64Size = int64(binary.Size(uint64(0)))
)

// CountingWriter wraps an io.Writer and tracks the number of bytes accepted
// by Write. When layered directly above the destination buffer, the count is
// the absolute offset of the next byte in the output stream.
type CountingWriter struct {
	w io.Writer
	n int64
}

func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// BytesWritten returns the total number of bytes written so far.
func (cw *CountingWriter) BytesWritten() int64 {
	return cw.n
}

// BinaryWriter handles writing binary data with error handling. All
// fixed-width values are little-endian; varints use the encoding/binary
// unsigned varint wire format.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

func (bw BinaryWriter) WriteUint8(b byte) (int64, error) {
	if _, err := bw.w.Write([]byte{b}); err != nil {
		return 0, err
	}
	return Uint8Size, nil
}

func (bw BinaryWriter) WriteInt32(i int32) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return Int32Size, nil
}

func (bw BinaryWriter) WriteInt64(i int64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return Int64Size, nil
}

func (bw BinaryWriter) WriteFloat64(f float64) (int64, error) {
	return bw.WriteInt64(int64(math.Float64bits(f)))
}

// WriteUvarint writes v using the variable-length unsigned integer encoding.
func (bw BinaryWriter) WriteUvarint(v uint64) (int64, error) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	written, err := bw.w.Write(buf[:n])
	if err != nil {
		return int64(written), fmt.Errorf("error writing uvarint: %w", err)
	}
	return int64(written), nil
}

func (bw BinaryWriter) WriteString(s string) (int64, error) {
	// Write string length (uint64)
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(s))); err != nil {
		return 0, fmt.Errorf("error writing string length: %w", err)
	}

	// Write string content
	n, err := bw.w.Write([]byte(s))
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing string content: %w", err)
	}

	// Return total bytes written (length field + string content)
	return Uint64Size + int64(n), nil
}

func (bw BinaryWriter) WriteBytes(b []byte) (int64, error) {
	// Write bytes length (uint64)
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return 0, fmt.Errorf("error writing bytes length: %w", err)
	}

	// Write bytes content
	n, err := bw.w.Write(b)
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing bytes content: %w", err)
	}

	// Return total bytes written (length field + bytes content)
	return Uint64Size + int64(n), nil
}

// BinaryReader handles reading binary data with error handling.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

func (br BinaryReader) ReadUint8() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (br BinaryReader) ReadInt32() (int32, error) {
	var value int32
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadInt64() (int64, error) {
	var value int64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadFloat64() (float64, error) {
	v, err := br.ReadInt64()
	return math.Float64frombits(uint64(v)), err
}

// ReadUvarint reads a variable-length unsigned integer written by
// WriteUvarint.
func (br BinaryReader) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(byteReader{br.r})
}

// maxVariableLen bounds the declared length of strings and byte slices so
// a corrupt length prefix fails decoding instead of attempting a huge
// allocation.
const maxVariableLen = 1 << 30

func (br BinaryReader) ReadString() (string, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("error reading string length: %w", err)
	}
	if length > maxVariableLen {
		return "", fmt.Errorf("recordio: string length %d exceeds maximum %d", length, maxVariableLen)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return "", fmt.Errorf("error reading string content: %w", err)
	}
	return string(b), nil
}

func (br BinaryReader) ReadBytes() ([]byte, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("error reading bytes length: %w", err)
	}
	if length > maxVariableLen {
		return nil, fmt.Errorf("recordio: bytes length %d exceeds maximum %d", length, maxVariableLen)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, fmt.Errorf("error reading bytes content: %w", err)
	}
	return b, nil
}

// byteReader adapts an io.Reader to io.ByteReader for varint decoding
// without requiring the underlying reader to implement it.
type byteReader struct {
	r io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
