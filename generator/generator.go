package generator

import (
	"strings"

	"github.com/pkg/errors"

	"k5ktool/k5000"
)

const (
	patchVolume  = 115
	sourceVolume = 120

	// velocity 68, the switch stores it in steps of four
	velocityThreshold = 17

	pcmRelease      = 15
	additiveRelease = 20
)

// Generate assembles a single patch from d. Additive sources take their
// harmonic levels, harmonic envelope and formant filter from ts; every other
// source gets the default PCM voicing. ts is only read.
func Generate(d *SinglePatchDescriptor, ts *TemplateSet) (k5000.SinglePatch, error) {
	if err := d.Validate(); err != nil {
		return k5000.SinglePatch{}, err
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = DefaultPatchName
	}
	p := k5000.SinglePatch{
		Common: k5000.SingleCommon{
			Name:      name,
			Volume:    patchVolume,
			Polyphony: k5000.Poly,
		},
		Sources: make([]k5000.Source, 0, len(d.Sources)),
	}

	for i, sd := range d.Sources {
		low, high, err := sd.zone()
		if err != nil {
			return k5000.SinglePatch{}, errors.Wrapf(err, "source %d", i+1)
		}
		s := defaultSource(sd.Wave)
		s.ZoneLow, s.ZoneHigh = low, high

		if sd.IsAdditive() {
			kit, err := buildKit(sd, ts)
			if err != nil {
				return k5000.SinglePatch{}, errors.Wrapf(err, "source %d", i+1)
			}
			s.Additive = kit
			s.DCA.Envelope.ReleaseTime = additiveRelease
			s.DCA.VelocitySensitivity.AttackTime = 20
			s.DCA.VelocitySensitivity.Decay1Time = 20
			s.DCA.VelocitySensitivity.ReleaseTime = 20
		}
		p.Sources = append(p.Sources, s)
	}
	return p, nil
}

func defaultSource(wave uint16) k5000.Source {
	return k5000.Source{
		ZoneHigh:       127,
		VelocitySwitch: k5000.VelocitySwitch{Kind: k5000.VelocitySwitchOff, Threshold: velocityThreshold},
		EffectPath:     1,
		Volume:         sourceVolume,
		BenderPitch:    2,
		BenderCutoff:   12,
		Pan:            k5000.PanNormal,
		DCO: k5000.DCO{
			WaveNumber: wave,
			Envelope:   k5000.PitchEnvelope{AttackTime: 4, DecayTime: 64},
		},
		DCF: k5000.DCF{
			Mode:          k5000.LowPass,
			VelocityCurve: 5,
			Level:         7,
			Cutoff:        55,
			EnvelopeDepth: 25,
			Envelope: k5000.FilterEnvelope{
				Decay1Time:  120,
				Decay1Level: 63,
				Decay2Time:  80,
				Decay2Level: 63,
				ReleaseTime: 20,
			},
			VelocityToEnvelope: 30,
		},
		DCA: k5000.DCA{
			VelocityCurve: 1,
			Envelope: k5000.AmplifierEnvelope{
				AttackTime:  1,
				Decay1Time:  94,
				Decay1Level: 127,
				Decay2Time:  80,
				Decay2Level: 63,
				ReleaseTime: pcmRelease,
			},
			VelocitySensitivity: k5000.VelocityEnvelope{Level: 20},
		},
		LFO: k5000.LFO{Waveform: k5000.LFOTriangle},
	}
}

func buildKit(sd SourceDescriptor, ts *TemplateSet) (*k5000.AdditiveKit, error) {
	var levels []uint8
	if sd.Waveform != "" {
		w, ok := ts.Waveforms[sd.Waveform]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownTemplateName, "waveform %q", sd.Waveform)
		}
		levels = HarmonicLevels(w, k5000.NumHarmonics, maxLevel)
	} else {
		var err error
		if levels, err = ts.levels(sd.HarmonicLevels); err != nil {
			return nil, err
		}
	}
	env, err := ts.envelope(sd.HarmonicEnvelope)
	if err != nil {
		return nil, err
	}
	bands, err := ts.formant(sd.FormantFilter)
	if err != nil {
		return nil, err
	}

	kit := &k5000.AdditiveKit{
		Harmonics: k5000.HarmonicCommon{
			TotalGain:     51,
			Group:         k5000.HarmonicGroupLow,
			VelocityCurve: 1,
		},
		Formant: k5000.FormantParameters{
			Source: k5000.FormantSourceEnvelope,
			LFO:    k5000.FormantLFOSettings{Shape: k5000.FormantLFOTriangle},
		},
	}
	copy(kit.SoftLevels[:], levels)
	copy(kit.LoudLevels[:], levels)
	copy(kit.FormantFilter[:], bands)
	for i := range kit.Envelopes {
		kit.Envelopes[i] = env
	}

	sum, err := kit.ComputeChecksum()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTemplate, "%v", err)
	}
	kit.Checksum = sum
	return kit, nil
}
