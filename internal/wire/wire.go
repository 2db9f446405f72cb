// Package wire provides the little-endian primitives used by the directive
// stream and the footer: fixed-width integers, NUL-terminated strings and
// length-prefixed byte blocks.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShortBuffer is returned when a read runs past the end of the data.
	ErrShortBuffer = errors.New("wire: short buffer")

	// ErrUnterminated is returned when a string has no NUL terminator.
	ErrUnterminated = errors.New("wire: unterminated string")

	// ErrEmbeddedNUL is returned when a string to be written contains NUL.
	ErrEmbeddedNUL = errors.New("wire: string contains NUL")

	// ErrTooLarge is returned when a byte block does not fit a u32 length.
	ErrTooLarge = errors.New("wire: block exceeds 4GiB")
)

// Writer appends encoded fields to an in-memory buffer.
// The zero value is ready to use.
type Writer struct {
	buf bytes.Buffer
}

// Uint32 appends v as 4 little-endian bytes.
func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// CString appends s followed by a NUL byte.
func (w *Writer) CString(s string) error {
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		return fmt.Errorf("%w at offset %d: %q", ErrEmbeddedNUL, i, s)
	}
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
	return nil
}

// Block appends a u32 length followed by p.
func (w *Writer) Block(p []byte) error {
	if uint64(len(p)) > math.MaxUint32 {
		return ErrTooLarge
	}
	w.Uint32(uint32(len(p))) //nolint:gosec // checked above
	w.buf.Write(p)
	return nil
}

// Raw appends p verbatim.
func (w *Writer) Raw(p []byte) {
	w.buf.Write(p)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the written bytes. The slice aliases the internal buffer
// and is valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader decodes fields from a byte slice with bounds checks.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the unread bytes.
func (r *Reader) Remaining() []byte {
	return r.data[r.off:]
}

// Uint32 reads a little-endian u32.
func (r *Reader) Uint32() (uint32, error) {
	if len(r.data)-r.off < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes at offset %d", ErrShortBuffer, r.off)
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// CString reads a NUL-terminated string.
func (r *Reader) CString() (string, error) {
	i := bytes.IndexByte(r.data[r.off:], 0)
	if i < 0 {
		return "", fmt.Errorf("%w at offset %d", ErrUnterminated, r.off)
	}
	s := string(r.data[r.off : r.off+i])
	r.off += i + 1
	return s, nil
}

// Block reads a u32 length followed by that many bytes. The returned slice
// aliases the reader's data.
func (r *Reader) Block() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(len(r.data)-r.off) < uint64(n) {
		return nil, fmt.Errorf("%w: block of %d bytes at offset %d", ErrShortBuffer, n, r.off)
	}
	p := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return p, nil
}
