package k5000

import (
	"github.com/pkg/errors"
)

const (
	NumHarmonics      = 64
	NumFormantBands   = 128
	NumHarmonicCopies = 4
	NumMorfTimes      = 4

	additivePrefixSize   = 37
	harmonicEnvelopeSize = 8
	additiveReservedSize = 1

	// AdditiveKitSize is the wire size of one additive kit.
	AdditiveKitSize = additivePrefixSize +
		2*NumHarmonics +
		NumFormantBands +
		NumHarmonics*harmonicEnvelopeSize +
		additiveReservedSize
)

// The kit layout must add up to exactly 806 bytes.
var (
	_ [AdditiveKitSize - 806]struct{}
	_ [806 - AdditiveKitSize]struct{}
)

const loopFlag = 0x40

type HarmonicCopy struct {
	PatchNumber  uint8 `json:"patch"`
	SourceNumber uint8 `json:"source"`
}

type MorfEnvelope struct {
	Times [NumMorfTimes]uint8 `json:"times"`
	Loop  LoopType            `json:"loop"`
}

type HarmonicCommon struct {
	MorfEnabled      bool                            `json:"morf"`
	TotalGain        uint8                           `json:"total_gain"`
	Group            HarmonicGroup                   `json:"group"`
	KeyScalingToGain int8                            `json:"ks_to_gain"`
	VelocityCurve    uint8                           `json:"velocity_curve"`
	VelocityDepth    uint8                           `json:"velocity_depth"`
	Copies           [NumHarmonicCopies]HarmonicCopy `json:"copies"`
	Morf             MorfEnvelope                    `json:"morf_envelope"`
}

type FormantSegment struct {
	Rate  uint8 `json:"rate"`
	Level int8  `json:"level"`
}

type FormantEnvelope struct {
	Attack  FormantSegment `json:"attack"`
	Decay1  FormantSegment `json:"decay1"`
	Decay2  FormantSegment `json:"decay2"`
	Release FormantSegment `json:"release"`
}

type FormantLFOSettings struct {
	Speed uint8           `json:"speed"`
	Shape FormantLFOShape `json:"shape"`
	Depth uint8           `json:"depth"`
}

type FormantParameters struct {
	Bias                  int8               `json:"bias"`
	Source                FormantSource      `json:"source"`
	EnvelopeDepth         int8               `json:"envelope_depth"`
	Envelope              FormantEnvelope    `json:"envelope"`
	Loop                  LoopType           `json:"loop"`
	VelocitySensitivity   int8               `json:"vel_sens"`
	KeyScalingSensitivity int8               `json:"ks_sens"`
	LFO                   FormantLFOSettings `json:"lfo"`
}

type EnvelopeSegment struct {
	Rate  uint8 `json:"rate"`
	Level uint8 `json:"level"`
}

// HarmonicEnvelope is the 4-segment envelope of one harmonic. Segments 1 and
// 2 can be loop points; their level is limited to 0..63.
type HarmonicEnvelope struct {
	Segment0     EnvelopeSegment `json:"seg0"`
	Segment1     EnvelopeSegment `json:"seg1"`
	Segment1Loop bool            `json:"seg1_loop"`
	Segment2     EnvelopeSegment `json:"seg2"`
	Segment2Loop bool            `json:"seg2_loop"`
	Segment3     EnvelopeSegment `json:"seg3"`
}

// AdditiveKit is the wave kit carried by an additive source.
type AdditiveKit struct {
	// Checksum is the byte found on decode; encode always writes a fresh one.
	Checksum      uint8                          `json:"checksum"`
	Harmonics     HarmonicCommon                 `json:"harmonics"`
	Formant       FormantParameters              `json:"formant"`
	SoftLevels    [NumHarmonics]uint8            `json:"soft_levels"`
	LoudLevels    [NumHarmonics]uint8            `json:"loud_levels"`
	FormantFilter [NumFormantBands]uint8         `json:"formant_filter"`
	Envelopes     [NumHarmonics]HarmonicEnvelope `json:"envelopes"`
	Reserved      uint8                          `json:"reserved"`
}

// ComputeChecksum returns the checksum encode writes for this kit.
func (k *AdditiveKit) ComputeChecksum() (byte, error) {
	data, err := EncodeAdditiveKit(k)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// DecodeAdditiveKit decodes one kit. base is the offset of data inside the
// enclosing payload and is only used in error messages.
func DecodeAdditiveKit(data []byte, base int) (*AdditiveKit, error) {
	if len(data) < AdditiveKitSize {
		return nil, errors.Wrapf(ErrTruncatedPatch, "additive kit at offset 0x%X: have %d of %d bytes", base, len(data), AdditiveKitSize)
	}
	d := newDecoder(data[:AdditiveKitSize], base)
	k := decodeAdditiveKit(d)
	if d.err != nil {
		return nil, d.err
	}
	return k, nil
}

func decodeAdditiveKit(d *decoder) *AdditiveKit {
	k := &AdditiveKit{}
	k.Checksum = d.u8()

	h := &k.Harmonics
	h.MorfEnabled = d.flag("morf flag")
	h.TotalGain = d.u8()
	h.Group = HarmonicGroup(d.enum("harmonic group", len(harmonicGroupNames)))
	h.KeyScalingToGain = d.bias()
	h.VelocityCurve = d.curve("harmonic velocity curve")
	h.VelocityDepth = d.u8()
	for i := range h.Copies {
		h.Copies[i].PatchNumber = d.u8()
		h.Copies[i].SourceNumber = d.u8()
	}
	for i := range h.Morf.Times {
		h.Morf.Times[i] = d.u8()
	}
	h.Morf.Loop = LoopType(d.enum("morf loop", len(loopTypeNames)))

	f := &k.Formant
	f.Bias = d.bias()
	f.Source = FormantSource(d.enum("formant source", len(formantSourceNames)))
	f.EnvelopeDepth = d.bias()
	for _, seg := range []*FormantSegment{&f.Envelope.Attack, &f.Envelope.Decay1, &f.Envelope.Decay2, &f.Envelope.Release} {
		seg.Rate = d.u8()
		seg.Level = d.bias()
	}
	f.Loop = LoopType(d.enum("formant loop", len(loopTypeNames)))
	f.VelocitySensitivity = d.bias()
	f.KeyScalingSensitivity = d.bias()
	f.LFO.Speed = d.u8()
	f.LFO.Shape = FormantLFOShape(d.enum("formant lfo shape", len(formantLFOShapeNames)))
	f.LFO.Depth = d.u8()

	d.bytes(k.SoftLevels[:])
	d.bytes(k.LoudLevels[:])
	d.bytes(k.FormantFilter[:])

	for i := range k.Envelopes {
		env := &k.Envelopes[i]
		env.Segment0 = EnvelopeSegment{Rate: d.u8(), Level: d.u8()}
		env.Segment1.Rate = d.u8()
		env.Segment1.Level, env.Segment1Loop = decodeLoopLevel(d)
		env.Segment2.Rate = d.u8()
		env.Segment2.Level, env.Segment2Loop = decodeLoopLevel(d)
		env.Segment3 = EnvelopeSegment{Rate: d.u8(), Level: d.u8()}
	}

	k.Reserved = d.u8()
	return k
}

func decodeLoopLevel(d *decoder) (uint8, bool) {
	off := d.offset()
	b := d.u8()
	if d.err == nil && b&0x80 != 0 {
		d.fail(&EnumError{Field: "harmonic envelope level", Offset: off, Value: b})
	}
	return b & 0x3F, b&loopFlag != 0
}

// EncodeAdditiveKit encodes a kit with a freshly computed checksum.
func EncodeAdditiveKit(k *AdditiveKit) ([]byte, error) {
	e := newEncoder(AdditiveKitSize)
	e.u8("checksum", 0)

	h := k.Harmonics
	e.flag(h.MorfEnabled)
	e.u8("total gain", h.TotalGain)
	e.enum("harmonic group", byte(h.Group), len(harmonicGroupNames))
	e.bias("ks to gain", h.KeyScalingToGain)
	e.curve("harmonic velocity curve", h.VelocityCurve)
	e.u8("harmonic velocity depth", h.VelocityDepth)
	for _, c := range h.Copies {
		e.u8("copy patch", c.PatchNumber)
		e.u8("copy source", c.SourceNumber)
	}
	e.bytes("morf times", h.Morf.Times[:])
	e.enum("morf loop", byte(h.Morf.Loop), len(loopTypeNames))

	f := k.Formant
	e.bias("formant bias", f.Bias)
	e.enum("formant source", byte(f.Source), len(formantSourceNames))
	e.bias("formant env depth", f.EnvelopeDepth)
	for _, seg := range []FormantSegment{f.Envelope.Attack, f.Envelope.Decay1, f.Envelope.Decay2, f.Envelope.Release} {
		e.u8("formant env rate", seg.Rate)
		e.bias("formant env level", seg.Level)
	}
	e.enum("formant loop", byte(f.Loop), len(loopTypeNames))
	e.bias("formant vel sens", f.VelocitySensitivity)
	e.bias("formant ks sens", f.KeyScalingSensitivity)
	e.u8("formant lfo speed", f.LFO.Speed)
	e.enum("formant lfo shape", byte(f.LFO.Shape), len(formantLFOShapeNames))
	e.u8("formant lfo depth", f.LFO.Depth)

	e.bytes("soft levels", k.SoftLevels[:])
	e.bytes("loud levels", k.LoudLevels[:])
	e.bytes("formant filter", k.FormantFilter[:])

	for i, env := range k.Envelopes {
		if env.Segment1.Level > 0x3F || env.Segment2.Level > 0x3F {
			return nil, errors.Wrapf(ErrInvalidPatch, "harmonic %d envelope loop segment level exceeds 63", i+1)
		}
		e.u8("harmonic env rate", env.Segment0.Rate)
		e.u8("harmonic env level", env.Segment0.Level)
		e.u8("harmonic env rate", env.Segment1.Rate)
		e.u8("harmonic env level", loopLevel(env.Segment1.Level, env.Segment1Loop))
		e.u8("harmonic env rate", env.Segment2.Rate)
		e.u8("harmonic env level", loopLevel(env.Segment2.Level, env.Segment2Loop))
		e.u8("harmonic env rate", env.Segment3.Rate)
		e.u8("harmonic env level", env.Segment3.Level)
	}

	e.u8("reserved", k.Reserved)
	if e.err != nil {
		return nil, e.err
	}

	out := e.result()
	if len(out) != AdditiveKitSize {
		return nil, errors.Errorf("additive kit encoded to %d bytes, want %d", len(out), AdditiveKitSize)
	}
	out[0] = Checksum(out[1:])
	return out, nil
}

func loopLevel(level uint8, loop bool) byte {
	if loop {
		return level | loopFlag
	}
	return level
}
