package k5000

import (
	"github.com/pkg/errors"
)

// SinglePatch is one decoded single (tone) patch.
type SinglePatch struct {
	Common  SingleCommon `json:"common"`
	Sources []Source     `json:"sources"`
}

// AdditiveCount is the number of sources carrying a kit.
func (p *SinglePatch) AdditiveCount() int {
	n := 0
	for i := range p.Sources {
		if p.Sources[i].IsAdditive() {
			n++
		}
	}
	return n
}

// EncodedSize is the wire size of the patch, checksum included.
func (p *SinglePatch) EncodedSize() int {
	n := CommonSize
	for i := range p.Sources {
		n += p.Sources[i].EncodedSize()
	}
	return n
}

// SinglePatchSize is the wire size of a patch with the given number of
// sources, additive of them carrying a kit.
func SinglePatchSize(sources, additive int) int {
	return CommonSize + sources*SourceSize + additive*AdditiveKitSize
}

type decodeOptions struct {
	verifyChecksums bool
	expected        int
}

// DecodeOption tunes DecodeSinglePatch and ParseMessage.
type DecodeOption func(*decodeOptions)

// VerifyChecksums makes decode fail with ErrChecksum when a stored checksum
// does not match the data.
func VerifyChecksums() DecodeOption {
	return func(o *decodeOptions) { o.verifyChecksums = true }
}

// WithExpectedCount makes a block dump fail with ErrToneMapMismatch unless
// it carries exactly n patches.
func WithExpectedCount(n int) DecodeOption {
	return func(o *decodeOptions) { o.expected = n }
}

func collectOptions(opts []DecodeOption) decodeOptions {
	o := decodeOptions{expected: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PeekSinglePatchLength works out the wire length of the patch at the start
// of payload without decoding it. Only the source count and each source's
// wave bytes are inspected.
func PeekSinglePatchLength(payload []byte) (int, error) {
	if len(payload) < CommonSize {
		return 0, errors.Wrapf(ErrTruncatedPatch, "common block needs %d bytes, have %d", CommonSize, len(payload))
	}
	count := payload[SourceCountOffset]
	if count < MinSources || count > MaxSources {
		return 0, &EnumError{Field: "source count", Offset: SourceCountOffset, Value: count}
	}

	n := CommonSize
	for i := 0; i < int(count); i++ {
		if len(payload) < n+SourceSize {
			return 0, errors.Wrapf(ErrTruncatedPatch, "source %d at offset 0x%X needs %d bytes, have %d", i+1, n, SourceSize, len(payload)-n)
		}
		wave, ok := JoinWave(payload[n+waveMSBOffset], payload[n+waveLSBOffset])
		if !ok {
			return 0, &EnumError{Field: "wave number", Offset: n + waveMSBOffset, Value: payload[n+waveMSBOffset]}
		}
		n += SourceSize
		if IsAdditive(wave) {
			n += AdditiveKitSize
		}
	}
	if len(payload) < n {
		return 0, errors.Wrapf(ErrTruncatedPatch, "patch needs %d bytes, have %d", n, len(payload))
	}
	return n, nil
}

// DecodeSinglePatch decodes a single patch wire payload: checksum, common
// block, then the sources. The payload must be exactly one patch long.
func DecodeSinglePatch(payload []byte, opts ...DecodeOption) (SinglePatch, error) {
	o := collectOptions(opts)

	n, err := PeekSinglePatchLength(payload)
	if err != nil {
		return SinglePatch{}, err
	}
	if len(payload) > n {
		return SinglePatch{}, errors.Wrapf(ErrInvalidPatch, "%d bytes after a %d-byte patch", len(payload)-n, n)
	}
	return decodeSinglePatch(payload, 0, o)
}

func decodeSinglePatch(payload []byte, base int, o decodeOptions) (SinglePatch, error) {
	d := newDecoder(payload, base)

	stored := d.u8()
	common, count := decodeCommon(d)
	if d.err != nil {
		return SinglePatch{}, d.err
	}

	p := SinglePatch{Common: common, Sources: make([]Source, 0, count)}
	// checksum covers the common block and the 86-byte source blocks
	sums := [][]byte{payload[1:CommonSize]}

	for i := 0; i < count; i++ {
		start := d.r.Offset()
		s := decodeSourceBlock(d)
		if d.err != nil {
			return SinglePatch{}, errors.Wrapf(d.err, "source %d", i+1)
		}
		sums = append(sums, payload[start:start+SourceSize])

		if s.IsAdditive() {
			kitOff := d.r.Offset()
			s.Additive = decodeAdditiveKit(d)
			if d.err != nil {
				return SinglePatch{}, errors.Wrapf(d.err, "source %d additive kit", i+1)
			}
			if o.verifyChecksums {
				want := Checksum(payload[kitOff+1 : kitOff+AdditiveKitSize])
				if s.Additive.Checksum != want {
					return SinglePatch{}, errors.Wrapf(ErrChecksum, "source %d kit: stored 0x%02X, computed 0x%02X", i+1, s.Additive.Checksum, want)
				}
			}
		}
		p.Sources = append(p.Sources, s)
	}

	if o.verifyChecksums {
		if want := Checksum(sums...); stored != want {
			return SinglePatch{}, errors.Wrapf(ErrChecksum, "patch: stored 0x%02X, computed 0x%02X", stored, want)
		}
	}
	return p, nil
}

// EncodeSinglePatch produces the wire payload of p with computed checksums.
func EncodeSinglePatch(p *SinglePatch) ([]byte, error) {
	if n := len(p.Sources); n < MinSources || n > MaxSources {
		return nil, errors.Wrapf(ErrInvalidPatch, "%d sources, want %d..%d", n, MinSources, MaxSources)
	}

	e := newEncoder(p.EncodedSize())
	e.u8("checksum", 0)
	if err := encodeCommon(e, &p.Common, len(p.Sources)); err != nil {
		return nil, err
	}

	var spans [][2]int
	for i := range p.Sources {
		s := &p.Sources[i]
		if s.IsAdditive() != (s.Additive != nil) {
			return nil, errors.Wrapf(ErrInvalidPatch, "source %d: wave %d does not match additive kit presence", i+1, s.DCO.WaveNumber)
		}
		start := e.w.Len()
		if err := encodeSourceBlock(e, s); err != nil {
			return nil, errors.Wrapf(err, "source %d", i+1)
		}
		spans = append(spans, [2]int{start, start + SourceSize})
		if s.Additive == nil {
			continue
		}
		kit, err := EncodeAdditiveKit(s.Additive)
		if err != nil {
			return nil, errors.Wrapf(err, "source %d", i+1)
		}
		e.bytes("additive kit", kit)
	}

	out := e.result()
	sums := [][]byte{out[1:CommonSize]}
	for _, sp := range spans {
		sums = append(sums, out[sp[0]:sp[1]])
	}
	out[0] = Checksum(sums...)
	return out, nil
}
