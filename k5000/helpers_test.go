package k5000

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
)

// locationOfDifference returns the first differing offset and a short hex
// excerpt around it, or a nil error when the buffers are equal.
func locationOfDifference(b1, b2 []byte) (int, error) {
	r1 := bytes.NewReader(b1)
	r2 := bytes.NewReader(b2)
	i := 0

	for {
		c1, err1 := r1.ReadByte()
		c2, err2 := r2.ReadByte()
		if c1 == c2 && err1 == err2 {
			if err1 == io.EOF {
				return 0, nil
			}
		} else {
			lo := max(0, i-5)
			hi1 := min(i+5, len(b1))
			hi2 := min(i+5, len(b2))
			return i, errors.Errorf("bytes 1: %x^%x | bytes 2: %x^%x", b1[lo:min(i, len(b1))], b1[min(i, len(b1)):hi1], b2[lo:min(i, len(b2))], b2[min(i, len(b2)):hi2])
		}
		i++
	}
}

func binaryExpectEqual(t *testing.T, expected, received []byte) {
	t.Helper()
	location, explanation := locationOfDifference(expected, received)
	if explanation != nil {
		t.Errorf("encoded bytes differ at offset %d: %v", location, explanation)
	}
}

func testPCMSource(wave uint16) Source {
	return Source{
		ZoneLow:        0,
		ZoneHigh:       127,
		VelocitySwitch: VelocitySwitch{Kind: VelocitySwitchLoud, Threshold: 17},
		EffectPath:     1,
		Volume:         120,
		BenderPitch:    2,
		BenderCutoff:   12,
		Pressure:       ControllerRouting{Target1: ModulationTarget{Destination: 3, Depth: -12}, Target2: ModulationTarget{Destination: 5, Depth: 31}},
		Wheel:          ControllerRouting{Target1: ModulationTarget{Destination: 1, Depth: 20}},
		Expression:     ControllerRouting{Target2: ModulationTarget{Destination: 7, Depth: -31}},
		Assign1:        AssignableRouting{Source: 4, Target: ModulationTarget{Destination: 2, Depth: 9}},
		Assign2:        AssignableRouting{Source: 6, Target: ModulationTarget{Destination: 8, Depth: -9}},
		KeyOnDelay:     3,
		Pan:            PanRandom,
		PanValue:       -20,
		DCO: DCO{
			WaveNumber:        wave,
			Coarse:            -24,
			Fine:              7,
			FixedKey:          0,
			KeyScalingToPitch: 2,
			Envelope: PitchEnvelope{
				StartLevel:               -5,
				AttackTime:               4,
				AttackLevel:              10,
				DecayTime:                64,
				TimeVelocitySensitivity:  -1,
				LevelVelocitySensitivity: 1,
			},
		},
		DCF: DCF{
			Bypass:                false,
			Mode:                  HighPass,
			VelocityCurve:         5,
			Resonance:             2,
			Level:                 7,
			Cutoff:                55,
			CutoffKeyScalingDepth: -3,
			CutoffVelocityDepth:   4,
			EnvelopeDepth:         25,
			Envelope:              FilterEnvelope{AttackTime: 0, Decay1Time: 120, Decay1Level: 63, Decay2Time: 80, Decay2Level: -63, ReleaseTime: 20},
			KeyScalingToAttack:    1,
			KeyScalingToDecay1:    -2,
			VelocityToEnvelope:    30,
			VelocityToAttack:      -4,
			VelocityToDecay1:      5,
		},
		DCA: DCA{
			VelocityCurve:       12,
			Envelope:            AmplifierEnvelope{AttackTime: 1, Decay1Time: 94, Decay1Level: 127, Decay2Time: 80, Decay2Level: 63, ReleaseTime: 15},
			KeyScaling:          KeyScalingEnvelope{Level: -10, AttackTime: 11, Decay1Time: -12, ReleaseTime: 13},
			VelocitySensitivity: VelocityEnvelope{Level: 20, AttackTime: -14, Decay1Time: 15, ReleaseTime: -16},
		},
		LFO: LFO{
			Waveform:      LFOSine,
			Speed:         50,
			DelayOnset:    10,
			FadeInTime:    20,
			FadeInToSpeed: 30,
			Vibrato:       LFOControl{Depth: 40, KeyScaling: -8},
			Growl:         LFOControl{Depth: 41, KeyScaling: 8},
			Tremolo:       LFOControl{Depth: 42, KeyScaling: 0},
		},
	}
}

func testKit() *AdditiveKit {
	k := &AdditiveKit{
		Harmonics: HarmonicCommon{
			MorfEnabled:      true,
			TotalGain:        51,
			Group:            HarmonicGroupHigh,
			KeyScalingToGain: -6,
			VelocityCurve:    3,
			VelocityDepth:    90,
			Copies:           [NumHarmonicCopies]HarmonicCopy{{1, 2}, {3, 4}, {5, 6}, {7, 1}},
			Morf:             MorfEnvelope{Times: [NumMorfTimes]uint8{10, 20, 30, 40}, Loop: Loop2},
		},
		Formant: FormantParameters{
			Bias:          -20,
			Source:        FormantSourceLFO,
			EnvelopeDepth: 33,
			Envelope: FormantEnvelope{
				Attack:  FormantSegment{Rate: 1, Level: 63},
				Decay1:  FormantSegment{Rate: 2, Level: -63},
				Decay2:  FormantSegment{Rate: 3, Level: 0},
				Release: FormantSegment{Rate: 4, Level: -1},
			},
			Loop:                  Loop1,
			VelocitySensitivity:   12,
			KeyScalingSensitivity: -12,
			LFO:                   FormantLFOSettings{Speed: 70, Shape: FormantLFORandom, Depth: 9},
		},
		Reserved: 0x11,
	}
	for i := 0; i < NumHarmonics; i++ {
		k.SoftLevels[i] = byte(127 - i)
		k.LoudLevels[i] = byte(i)
		k.Envelopes[i] = HarmonicEnvelope{
			Segment0:     EnvelopeSegment{Rate: byte(i), Level: 127},
			Segment1:     EnvelopeSegment{Rate: 64, Level: byte(i % 64)},
			Segment1Loop: i%2 == 0,
			Segment2:     EnvelopeSegment{Rate: 100, Level: 63},
			Segment2Loop: i%3 == 0,
			Segment3:     EnvelopeSegment{Rate: 5, Level: 0},
		}
	}
	for i := range k.FormantFilter {
		k.FormantFilter[i] = byte(i)
	}
	sum, err := k.ComputeChecksum()
	if err != nil {
		panic(fmt.Sprintf("kit checksum: %v", err))
	}
	k.Checksum = sum
	return k
}

// testPatch builds a patch with PCM sources and, when additive is set, an
// additive second source.
func testPatch(additive bool) SinglePatch {
	p := SinglePatch{
		Common: SingleCommon{
			EffectAlgorithm: 2,
			Reverb:          Reverb{Type: 9, DryWet: 40, Param1: 1, Param2: 2, Param3: 3, Param4: 4},
			GEQ:             [NumGEQBands]int8{-6, -4, -2, 0, 2, 4, 6},
			DrumMark:        false,
			Name:            "TestPtch",
			Volume:          115,
			Polyphony:       Solo2,
			SourceMutes:     [MaxSources]bool{false, true},
			AM:              1,
			EffectControls:  [NumEffectControls]EffectControl{{Source: 1, Destination: 2, Depth: -30}, {Source: 3, Destination: 4, Depth: 30}},
			Portamento:      true,
			PortamentoSpeed: 60,
			Macros: [NumMacros]MacroController{
				{Param1: 1, Param2: 2, Depth1: 10, Depth2: -10},
				{Param1: 3, Param2: 4, Depth1: 20, Depth2: -20},
			},
			Switches: [NumSwitches]uint8{1, 2, 3, 4},
		},
	}
	for i := range p.Common.Effects {
		p.Common.Effects[i] = Effect{Type: byte(11 + i), Depth: 50, Param1: 1, Param2: 2, Param3: 3, Param4: 4}
	}

	p.Sources = append(p.Sources, testPCMSource(412))
	if additive {
		s := testPCMSource(AdditiveWave)
		s.Additive = testKit()
		p.Sources = append(p.Sources, s)
	} else {
		p.Sources = append(p.Sources, testPCMSource(100))
	}
	return p
}
