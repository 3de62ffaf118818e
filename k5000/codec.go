package k5000

import (
	"github.com/pkg/errors"

	"k5ktool/internal/bytecursor"
)

// decoder reads fields in wire order and keeps the first error it hits, so
// the per-section decode functions read like the layout tables.
type decoder struct {
	r    *bytecursor.Reader
	base int
	err  error
}

func newDecoder(buf []byte, base int) *decoder {
	return &decoder{r: bytecursor.NewReader(buf), base: base}
}

func (d *decoder) offset() int { return d.base + d.r.Offset() }

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	off := d.offset()
	b, err := d.r.ReadU8()
	if err != nil {
		d.err = errors.Wrapf(ErrTruncatedPatch, "at offset 0x%X: %v", off, err)
	}
	return b
}

// bias reads a bias-64 signed value.
func (d *decoder) bias() int8 {
	return int8(int(d.u8()) - 64)
}

// curve reads a velocity curve stored as value-1.
func (d *decoder) curve(field string) uint8 {
	return d.enum(field, numVelocityCurves) + 1
}

func (d *decoder) enum(field string, count int) uint8 {
	off := d.offset()
	b := d.u8()
	if d.err == nil && int(b) >= count {
		d.err = &EnumError{Field: field, Offset: off, Value: b}
	}
	return b
}

func (d *decoder) flag(field string) bool {
	return d.enum(field, 2) == 1
}

func (d *decoder) bytes(dst []byte) {
	if d.err != nil {
		return
	}
	off := d.offset()
	b, err := d.r.ReadBytes(len(dst))
	if err != nil {
		d.err = errors.Wrapf(ErrTruncatedPatch, "at offset 0x%X: %v", off, err)
		return
	}
	copy(dst, b)
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

const (
	maxDataByte       = 0x7F
	numVelocityCurves = 12
)

// encoder writes fields in wire order and keeps the first value that does
// not fit a 7-bit data byte. Offsets count from the start of the output.
type encoder struct {
	w   *bytecursor.Writer
	err error
}

func newEncoder(capacity int) *encoder {
	return &encoder{w: bytecursor.NewWriter(capacity)}
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) check(field string, v, lo, hi int) {
	if v < lo || v > hi {
		e.fail(errors.Wrapf(ErrInvalidPatch, "%s: value %d at offset 0x%X outside %d..%d", field, v, e.w.Len(), lo, hi))
	}
}

// u8 writes a raw data byte, 0..127.
func (e *encoder) u8(field string, b byte) {
	e.check(field, int(b), 0, maxDataByte)
	e.w.WriteU8(b & maxDataByte)
}

// bias writes a signed value as value+64.
func (e *encoder) bias(field string, v int8) {
	e.check(field, int(v), -64, 63)
	e.w.WriteU8(byte(int(v)+64) & maxDataByte)
}

// curve writes a velocity curve 1..12 as value-1.
func (e *encoder) curve(field string, v uint8) {
	e.check(field, int(v), 1, numVelocityCurves)
	e.w.WriteU8((v - 1) & maxDataByte)
}

func (e *encoder) enum(field string, v uint8, count int) {
	e.check(field, int(v), 0, count-1)
	e.w.WriteU8(v & maxDataByte)
}

func (e *encoder) flag(v bool) {
	if v {
		e.w.WriteU8(1)
		return
	}
	e.w.WriteU8(0)
}

// bytes writes a table of raw data bytes.
func (e *encoder) bytes(field string, b []byte) {
	for i, v := range b {
		if v > maxDataByte {
			e.fail(errors.Wrapf(ErrInvalidPatch, "%s[%d]: value %d at offset 0x%X outside 0..%d", field, i, v, e.w.Len()+i, maxDataByte))
			break
		}
	}
	e.w.WriteBytes(b)
}

func (e *encoder) result() []byte { return e.w.Bytes() }
