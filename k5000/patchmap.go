package k5000

import (
	"bytes"

	"github.com/dgryski/go-bitstream"
	"github.com/pkg/errors"
)

const (
	// PatchMapSize is the encoded size of a tone map.
	PatchMapSize = 19
	NumPatches   = 128

	bitsPerMapByte = 7
)

// PatchMap records which of the 128 patches a block dump carries.
//
// On the wire every byte holds 7 patches with bit 7 always zero. Patch i is
// bit i%7 of byte i/7, so patch 0 is the lowest bit of the first byte. The
// 5 bits past patch 127 in the last byte are zero.
type PatchMap struct {
	included [NumPatches]bool
}

// NewPatchMap returns a map with the given patches set.
func NewPatchMap(patches ...int) (PatchMap, error) {
	var m PatchMap
	for _, p := range patches {
		if err := m.Set(p); err != nil {
			return PatchMap{}, err
		}
	}
	return m, nil
}

func (m *PatchMap) Set(patch int) error {
	if patch < 0 || patch >= NumPatches {
		return errors.Errorf("patch %d outside 0..%d", patch, NumPatches-1)
	}
	m.included[patch] = true
	return nil
}

func (m PatchMap) Has(patch int) bool {
	return patch >= 0 && patch < NumPatches && m.included[patch]
}

// Patches lists the included patches in ascending order.
func (m PatchMap) Patches() []int {
	var out []int
	for i, ok := range m.included {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func (m PatchMap) Count() int {
	n := 0
	for _, ok := range m.included {
		if ok {
			n++
		}
	}
	return n
}

// ParsePatchMap decodes a 19-byte tone map.
func ParsePatchMap(data []byte) (PatchMap, error) {
	if len(data) < PatchMapSize {
		return PatchMap{}, errors.Wrapf(ErrTruncatedPatch, "tone map needs %d bytes, have %d", PatchMapSize, len(data))
	}

	var m PatchMap
	r := bitstream.NewReader(bytes.NewReader(data[:PatchMapSize]))
	for i := 0; i < PatchMapSize; i++ {
		stuffing, err := r.ReadBit()
		if err != nil {
			return PatchMap{}, errors.WithStack(err)
		}
		if stuffing != bitstream.Zero {
			return PatchMap{}, &EnumError{Field: "tone map", Offset: i, Value: data[i]}
		}
		// remaining 7 bits arrive most significant first
		for b := bitsPerMapByte - 1; b >= 0; b-- {
			bit, err := r.ReadBit()
			if err != nil {
				return PatchMap{}, errors.WithStack(err)
			}
			patch := i*bitsPerMapByte + b
			if bit == bitstream.Zero {
				continue
			}
			if patch >= NumPatches {
				return PatchMap{}, &EnumError{Field: "tone map", Offset: i, Value: data[i]}
			}
			m.included[patch] = true
		}
	}
	return m, nil
}

// Bytes encodes the map into PatchMapSize bytes.
func (m PatchMap) Bytes() []byte {
	var buf bytes.Buffer
	w := bitstream.NewWriter(&buf)
	for i := 0; i < PatchMapSize; i++ {
		w.WriteBit(bitstream.Zero)
		for b := bitsPerMapByte - 1; b >= 0; b-- {
			w.WriteBit(bitstream.Bit(m.Has(i*bitsPerMapByte + b)))
		}
	}
	// 19 whole bytes were written, nothing is pending
	w.Flush(bitstream.Zero)
	return buf.Bytes()
}
