package bank

import (
	"sort"

	"github.com/pkg/errors"

	"k5ktool/internal/bytecursor"
)

const (
	NumPatches = 128
	NumSources = 6

	// PointerTableSize is the 128 entries of tone pointer + 6 source pointers.
	PointerTableSize = NumPatches * (1 + NumSources) * 4
	// HeaderSize adds the trailing high-water-mark pointer.
	HeaderSize = PointerTableSize + 4
	// PoolSize is the size of the data pool that follows the pointers.
	PoolSize = 0x20000
	// FileSize is the size of a complete bank file.
	FileSize = HeaderSize + PoolSize
)

// PointerTableEntry is one slot of the pointer table. A zero tone pointer
// marks an unused slot; a zero source pointer marks a source without kit.
type PointerTableEntry struct {
	Slot           int                `json:"slot"`
	TonePointer    uint32             `json:"tone_pointer"`
	SourcePointers [NumSources]uint32 `json:"source_pointers"`
}

func (e PointerTableEntry) Used() bool {
	return e.TonePointer != 0
}

// PointerTable is the raw table as stored in the file.
type PointerTable struct {
	Entries       [NumPatches]PointerTableEntry
	HighWaterMark uint32
}

// ParsePointerTable reads the pointer table and the high-water mark from the
// start of buf.
func ParsePointerTable(buf []byte) (PointerTable, error) {
	var t PointerTable
	if len(buf) < HeaderSize {
		return t, errors.Wrapf(ErrTruncatedBuffer, "pointer table needs %d bytes, have %d", HeaderSize, len(buf))
	}

	r := bytecursor.NewReader(buf)
	var err error
	read := func() uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = r.ReadU32BE()
		return v
	}

	for i := range t.Entries {
		e := &t.Entries[i]
		e.Slot = i
		e.TonePointer = read()
		for j := range e.SourcePointers {
			e.SourcePointers[j] = read()
		}
	}
	t.HighWaterMark = read()
	if err != nil {
		return PointerTable{}, errors.Wrapf(ErrTruncatedBuffer, "%v", err)
	}
	return t, nil
}

// NormalizedEntry is a used entry with pool-relative pointers. Additive keeps
// which sources had a non-zero pointer before adjustment.
type NormalizedEntry struct {
	PointerTableEntry
	Additive [NumSources]bool `json:"additive"`
}

func (e NormalizedEntry) AdditiveCount() int {
	n := 0
	for _, a := range e.Additive {
		if a {
			n++
		}
	}
	return n
}

// NormalizedTable holds the used entries sorted by pool offset.
type NormalizedTable struct {
	Base          uint32
	Entries       []NormalizedEntry
	HighWaterMark uint32
}

// Normalize subtracts the base offset from every non-zero pointer and sorts
// the used entries by tone pointer. The base is the smallest of the non-zero
// tone pointers and the high-water mark.
func (t PointerTable) Normalize() (NormalizedTable, error) {
	base := t.HighWaterMark
	for _, e := range t.Entries {
		if e.Used() && e.TonePointer < base {
			base = e.TonePointer
		}
	}

	n := NormalizedTable{Base: base, HighWaterMark: t.HighWaterMark - base}
	for _, e := range t.Entries {
		if !e.Used() {
			continue
		}
		ne := NormalizedEntry{PointerTableEntry: e}
		ne.TonePointer -= base
		for j, p := range e.SourcePointers {
			if p == 0 {
				continue
			}
			if p < base {
				return NormalizedTable{}, errors.Wrapf(ErrCorruptPointerTable, "slot %d source %d pointer 0x%X below base 0x%X", e.Slot, j+1, p, base)
			}
			ne.Additive[j] = true
			ne.SourcePointers[j] = p - base
		}
		n.Entries = append(n.Entries, ne)
	}

	sort.SliceStable(n.Entries, func(i, j int) bool {
		return n.Entries[i].TonePointer < n.Entries[j].TonePointer
	})
	return n, nil
}
