// Package bank reads K5000 bank files: a pointer table, a high-water mark
// and a data pool holding the single patches of one bank.
package bank

import (
	"fmt"

	"github.com/pkg/errors"

	"k5ktool/k5000"
)

// Bank is a parsed bank file. Pool is the data pool as stored; every offset
// in Patches is relative to it.
type Bank struct {
	Pool          []byte        `json:"-"`
	Base          uint32        `json:"base"`
	HighWaterMark uint32        `json:"high_water_mark"`
	Patches       []PatchRecord `json:"patches"`
}

// Parse reads the pointer table, normalizes it and resolves every used slot.
func Parse(buf []byte) (*Bank, error) {
	table, err := ParsePointerTable(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) < FileSize {
		return nil, errors.Wrapf(ErrTruncatedBuffer, "bank file needs %d bytes, have %d", FileSize, len(buf))
	}

	norm, err := table.Normalize()
	if err != nil {
		return nil, err
	}
	if norm.HighWaterMark > PoolSize {
		return nil, errors.Wrapf(ErrCorruptPointerTable, "high-water mark 0x%X past the pool", norm.HighWaterMark)
	}

	pool := buf[HeaderSize:FileSize]
	records, err := Resolve(pool, norm.Entries, norm.HighWaterMark)
	if err != nil {
		return nil, err
	}
	return &Bank{
		Pool:          pool,
		Base:          norm.Base,
		HighWaterMark: norm.HighWaterMark,
		Patches:       records,
	}, nil
}

// BySlot returns the record stored in slot (0-based).
func (b *Bank) BySlot(slot int) (PatchRecord, bool) {
	for _, r := range b.Patches {
		if r.Slot == slot {
			return r, true
		}
	}
	return PatchRecord{}, false
}

// UsedBytes is the pool space taken by records and their padding.
func (b *Bank) UsedBytes() int {
	return int(b.HighWaterMark)
}

func (b *Bank) FreeBytes() int {
	return PoolSize - b.UsedBytes()
}

// RecordBytes returns the record exactly as stored in the pool, kits
// included, padding excluded.
func (b *Bank) RecordBytes(r PatchRecord) []byte {
	return b.Pool[r.PoolOffset:r.End():r.End()]
}

// SinglePatch rebuilds the wire form of r and decodes it. The common block
// and the source blocks are read at the tone pointer; every kit is read at
// its kit pointer.
func (b *Bank) SinglePatch(r PatchRecord) (k5000.SinglePatch, error) {
	payload, err := b.wirePayload(r)
	if err != nil {
		return k5000.SinglePatch{}, err
	}
	p, err := k5000.DecodeSinglePatch(payload)
	if err != nil {
		return k5000.SinglePatch{}, errors.Wrapf(err, "slot %s", SlotName(r.Slot))
	}
	return p, nil
}

func (b *Bank) wirePayload(r PatchRecord) ([]byte, error) {
	off := int(r.PoolOffset)
	blocks := k5000.CommonSize + r.SourceCount*k5000.SourceSize
	if off+blocks > len(b.Pool) {
		return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d: record at 0x%X past the pool", r.Slot, off)
	}

	out := make([]byte, 0, r.ByteSize)
	out = append(out, b.Pool[off:off+k5000.CommonSize]...)
	for i := 0; i < r.SourceCount; i++ {
		src := b.Pool[off+k5000.CommonSize+i*k5000.SourceSize:][:k5000.SourceSize]
		wave, ok := k5000.SourceWave(src)
		if ok && k5000.IsAdditive(wave) != r.Additive[i] {
			return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d source %d: wave %d disagrees with the kit pointer", r.Slot, i+1, wave)
		}
		out = append(out, src...)
		if !r.Additive[i] {
			continue
		}
		kit := int(r.KitOffsets[i])
		if kit+k5000.AdditiveKitSize > len(b.Pool) {
			return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d source %d: kit at 0x%X past the pool", r.Slot, i+1, kit)
		}
		out = append(out, b.Pool[kit:kit+k5000.AdditiveKitSize]...)
	}
	return out, nil
}

// BlockDump encodes every used slot as one AllBlockDump payload (F0/F7
// not included).
func (b *Bank) BlockDump(channel byte, id k5000.BankID) ([]byte, error) {
	patches := make([]k5000.NumberedPatch, 0, len(b.Patches))
	for _, r := range b.Patches {
		p, err := b.SinglePatch(r)
		if err != nil {
			return nil, err
		}
		patches = append(patches, k5000.NumberedPatch{Number: r.Slot, Patch: p})
	}
	h := k5000.NewHeader(channel, k5000.AllBlockDump, k5000.KindSingle, id)
	return k5000.EncodeBlockDump(h, patches)
}

// SlotName formats a 0-based slot the way the synth shows it, A001..A128.
func SlotName(slot int) string {
	return fmt.Sprintf("A%03d", slot+1)
}
