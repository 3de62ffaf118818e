// Package bytecursor reads and writes big-endian values over a byte buffer
// with explicit bounds checks.
package bytecursor

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned when fewer bytes remain than a read requires.
var ErrOutOfBounds = errors.New("read out of bounds")

// BoundsError describes a short read.
type BoundsError struct {
	Offset int
	Want   int
	Have   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("need %d bytes at offset 0x%X, have %d", e.Want, e.Offset, e.Have)
}

func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// Reader is a forward-only cursor over a borrowed buffer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.pos }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return &BoundsError{Offset: r.pos, Want: n, Have: r.Remaining()}
	}
	return nil
}

func (r *Reader) ReadU8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) ReadU32BE() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadBytes returns the next n bytes without copying them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n : r.pos+n], nil
}

// Rest returns everything not yet consumed.
func (r *Reader) Rest() []byte {
	return r.buf[r.pos:]
}

// Writer appends big-endian values to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) WriteU8(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) WriteU32BE(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Bytes() []byte { return w.buf }
