package bank

import (
	"sort"

	"github.com/pkg/errors"

	"k5ktool/k5000"
)

var (
	ErrTruncatedBuffer     = errors.New("truncated bank buffer")
	ErrCorruptPointerTable = errors.New("corrupt pointer table")
)

// PatchRecord locates one patch inside the data pool.
type PatchRecord struct {
	Slot        int                `json:"slot"`
	PoolOffset  uint32             `json:"pool_offset"`
	SourceCount int                `json:"source_count"`
	Additive    [NumSources]bool   `json:"additive"`
	KitOffsets  [NumSources]uint32 `json:"kit_offsets"`
	ByteSize    uint32             `json:"byte_size"`
	Padding     uint32             `json:"padding"`
	Name        string             `json:"name"`
}

// AdditiveCount is the number of sources with a kit pointer.
func (r PatchRecord) AdditiveCount() int {
	n := 0
	for _, a := range r.Additive[:r.SourceCount] {
		if a {
			n++
		}
	}
	return n
}

// End is the pool offset just past the record.
func (r PatchRecord) End() uint32 {
	return r.PoolOffset + r.ByteSize
}

// Resolve derives size and padding of every record from the pool contents.
// entries must be sorted by pool offset, as Normalize returns them.
func Resolve(pool []byte, entries []NormalizedEntry, highWaterMark uint32) ([]PatchRecord, error) {
	records := make([]PatchRecord, 0, len(entries))

	for i, e := range entries {
		off := e.TonePointer
		if uint64(off)+k5000.CommonSize > uint64(len(pool)) {
			return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d: tone pointer 0x%X outside the pool", e.Slot, off)
		}

		count := int(pool[off+k5000.SourceCountOffset])
		if count < k5000.MinSources || count > k5000.MaxSources {
			return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d: source count %d at pool offset 0x%X", e.Slot, count, off+k5000.SourceCountOffset)
		}

		rec := PatchRecord{
			Slot:        e.Slot,
			PoolOffset:  off,
			SourceCount: count,
			Additive:    e.Additive,
			KitOffsets:  e.SourcePointers,
			Name:        k5000.DecodeName(pool[off+k5000.NameOffset : off+k5000.NameOffset+k5000.NameLength]),
		}
		// additivity comes from the pointer table, all six pointers count
		rec.ByteSize = uint32(k5000.SinglePatchSize(count, e.AdditiveCount()))
		if err := checkKits(rec); err != nil {
			return nil, err
		}

		next := highWaterMark
		if i+1 < len(entries) {
			next = entries[i+1].TonePointer
		}
		if uint64(rec.End()) > uint64(next) {
			return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d: record 0x%X..0x%X overlaps the next record at 0x%X", e.Slot, off, rec.End(), next)
		}
		if rec.End() > uint32(len(pool)) {
			return nil, errors.Wrapf(ErrCorruptPointerTable, "slot %d: record ends at 0x%X past the pool", e.Slot, rec.End())
		}
		rec.Padding = next - rec.End()

		records = append(records, rec)
	}
	return records, nil
}

// checkKits makes sure every kit lies in the kit area of its own record,
// between the last source block and the record end, without overlapping
// another kit.
func checkKits(rec PatchRecord) error {
	lo := rec.PoolOffset + uint32(k5000.CommonSize+rec.SourceCount*k5000.SourceSize)
	var kits []uint32
	for i, add := range rec.Additive {
		if !add {
			continue
		}
		kit := rec.KitOffsets[i]
		if kit < lo || uint64(kit)+k5000.AdditiveKitSize > uint64(rec.End()) {
			return errors.Wrapf(ErrCorruptPointerTable, "slot %d source %d: kit at 0x%X outside the record's kit area 0x%X..0x%X", rec.Slot, i+1, kit, lo, rec.End())
		}
		kits = append(kits, kit)
	}
	sort.Slice(kits, func(i, j int) bool { return kits[i] < kits[j] })
	for i := 1; i < len(kits); i++ {
		if kits[i]-kits[i-1] < k5000.AdditiveKitSize {
			return errors.Wrapf(ErrCorruptPointerTable, "slot %d: kits at 0x%X and 0x%X overlap", rec.Slot, kits[i-1], kits[i])
		}
	}
	return nil
}
