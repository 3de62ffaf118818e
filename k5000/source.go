package k5000

import (
	"github.com/pkg/errors"
)

// SourceSize is the fixed part of a source record; an additive source is
// followed by an AdditiveKitSize kit.
const SourceSize = 86

// Offsets inside a source record.
const (
	waveMSBOffset = 28
	waveLSBOffset = 29
)

// SourceWave reads the wave number of a source block of at least
// SourceSize bytes.
func SourceWave(block []byte) (uint16, bool) {
	return JoinWave(block[waveMSBOffset], block[waveLSBOffset])
}

type VelocitySwitch struct {
	Kind      VelocitySwitchKind `json:"kind"`
	Threshold uint8              `json:"threshold"`
}

func (v VelocitySwitch) pack() byte {
	return byte(v.Kind)<<5 | v.Threshold&0x1F
}

type ModulationTarget struct {
	Destination uint8 `json:"destination"`
	Depth       int8  `json:"depth"`
}

// ControllerRouting sends one performance controller to two destinations.
type ControllerRouting struct {
	Target1 ModulationTarget `json:"target1"`
	Target2 ModulationTarget `json:"target2"`
}

type AssignableRouting struct {
	Source uint8            `json:"source"`
	Target ModulationTarget `json:"target"`
}

type PitchEnvelope struct {
	StartLevel               int8  `json:"start_level"`
	AttackTime               uint8 `json:"attack_time"`
	AttackLevel              int8  `json:"attack_level"`
	DecayTime                uint8 `json:"decay_time"`
	TimeVelocitySensitivity  int8  `json:"time_vel_sens"`
	LevelVelocitySensitivity int8  `json:"level_vel_sens"`
}

type DCO struct {
	WaveNumber        uint16            `json:"wave_number"`
	Coarse            int8              `json:"coarse"`
	Fine              int8              `json:"fine"`
	FixedKey          uint8             `json:"fixed_key"`
	KeyScalingToPitch KeyScalingToPitch `json:"ks_pitch"`
	Envelope          PitchEnvelope     `json:"envelope"`
}

type FilterEnvelope struct {
	AttackTime  uint8 `json:"attack_time"`
	Decay1Time  uint8 `json:"decay1_time"`
	Decay1Level int8  `json:"decay1_level"`
	Decay2Time  uint8 `json:"decay2_time"`
	Decay2Level int8  `json:"decay2_level"`
	ReleaseTime uint8 `json:"release_time"`
}

type DCF struct {
	Bypass                bool           `json:"bypass"`
	Mode                  FilterMode     `json:"mode"`
	VelocityCurve         uint8          `json:"velocity_curve"`
	Resonance             uint8          `json:"resonance"`
	Level                 uint8          `json:"level"`
	Cutoff                uint8          `json:"cutoff"`
	CutoffKeyScalingDepth int8           `json:"cutoff_ks_depth"`
	CutoffVelocityDepth   int8           `json:"cutoff_vel_depth"`
	EnvelopeDepth         int8           `json:"envelope_depth"`
	Envelope              FilterEnvelope `json:"envelope"`
	KeyScalingToAttack    int8           `json:"ks_to_attack"`
	KeyScalingToDecay1    int8           `json:"ks_to_decay1"`
	VelocityToEnvelope    int8           `json:"vel_to_envelope"`
	VelocityToAttack      int8           `json:"vel_to_attack"`
	VelocityToDecay1      int8           `json:"vel_to_decay1"`
}

type AmplifierEnvelope struct {
	AttackTime  uint8 `json:"attack_time"`
	Decay1Time  uint8 `json:"decay1_time"`
	Decay1Level uint8 `json:"decay1_level"`
	Decay2Time  uint8 `json:"decay2_time"`
	Decay2Level uint8 `json:"decay2_level"`
	ReleaseTime uint8 `json:"release_time"`
}

type KeyScalingEnvelope struct {
	Level       int8 `json:"level"`
	AttackTime  int8 `json:"attack_time"`
	Decay1Time  int8 `json:"decay1_time"`
	ReleaseTime int8 `json:"release_time"`
}

type VelocityEnvelope struct {
	Level       uint8 `json:"level"`
	AttackTime  int8  `json:"attack_time"`
	Decay1Time  int8  `json:"decay1_time"`
	ReleaseTime int8  `json:"release_time"`
}

type DCA struct {
	VelocityCurve       uint8              `json:"velocity_curve"`
	Envelope            AmplifierEnvelope  `json:"envelope"`
	KeyScaling          KeyScalingEnvelope `json:"ks"`
	VelocitySensitivity VelocityEnvelope   `json:"vel_sens"`
}

type LFOControl struct {
	Depth      uint8 `json:"depth"`
	KeyScaling int8  `json:"ks"`
}

type LFO struct {
	Waveform      LFOWaveform `json:"waveform"`
	Speed         uint8       `json:"speed"`
	DelayOnset    uint8       `json:"delay_onset"`
	FadeInTime    uint8       `json:"fade_in_time"`
	FadeInToSpeed uint8       `json:"fade_in_to_speed"`
	Vibrato       LFOControl  `json:"vibrato"`
	Growl         LFOControl  `json:"growl"`
	Tremolo       LFOControl  `json:"tremolo"`
}

type Source struct {
	ZoneLow        uint8             `json:"zone_low"`
	ZoneHigh       uint8             `json:"zone_high"`
	VelocitySwitch VelocitySwitch    `json:"velocity_switch"`
	EffectPath     uint8             `json:"effect_path"`
	Volume         uint8             `json:"volume"`
	BenderPitch    uint8             `json:"bender_pitch"`
	BenderCutoff   uint8             `json:"bender_cutoff"`
	Pressure       ControllerRouting `json:"pressure"`
	Wheel          ControllerRouting `json:"wheel"`
	Expression     ControllerRouting `json:"expression"`
	Assign1        AssignableRouting `json:"assign1"`
	Assign2        AssignableRouting `json:"assign2"`
	KeyOnDelay     uint8             `json:"key_on_delay"`
	Pan            PanKind           `json:"pan"`
	PanValue       int8              `json:"pan_value"`
	DCO            DCO               `json:"dco"`
	DCF            DCF               `json:"dcf"`
	DCA            DCA               `json:"dca"`
	LFO            LFO               `json:"lfo"`

	// Additive is set exactly when DCO.WaveNumber is AdditiveWave.
	Additive *AdditiveKit `json:"additive,omitempty"`
}

func (s *Source) IsAdditive() bool {
	return IsAdditive(s.DCO.WaveNumber)
}

// EncodedSize is the number of bytes the source occupies on the wire.
func (s *Source) EncodedSize() int {
	if s.IsAdditive() {
		return SourceSize + AdditiveKitSize
	}
	return SourceSize
}

func decodeControllerRouting(d *decoder) ControllerRouting {
	var c ControllerRouting
	c.Target1.Destination = d.u8()
	c.Target1.Depth = d.bias()
	c.Target2.Destination = d.u8()
	c.Target2.Depth = d.bias()
	return c
}

func decodeAssignable(d *decoder) AssignableRouting {
	var a AssignableRouting
	a.Source = d.u8()
	a.Target.Destination = d.u8()
	a.Target.Depth = d.bias()
	return a
}

func decodeLFOControl(d *decoder) LFOControl {
	return LFOControl{Depth: d.u8(), KeyScaling: d.bias()}
}

// decodeSourceBlock reads the fixed 86-byte part of a source. The caller
// decides from the wave number whether a kit follows.
func decodeSourceBlock(d *decoder) Source {
	var s Source

	s.ZoneLow = d.u8()
	s.ZoneHigh = d.u8()

	vsOff := d.offset()
	vs := d.u8()
	s.VelocitySwitch = VelocitySwitch{Kind: VelocitySwitchKind(vs >> 5), Threshold: vs & 0x1F}
	if d.err == nil && int(s.VelocitySwitch.Kind) >= len(velocitySwitchNames) {
		d.fail(&EnumError{Field: "velocity switch", Offset: vsOff, Value: vs})
	}

	s.EffectPath = d.u8()
	s.Volume = d.u8()
	s.BenderPitch = d.u8()
	s.BenderCutoff = d.u8()
	s.Pressure = decodeControllerRouting(d)
	s.Wheel = decodeControllerRouting(d)
	s.Expression = decodeControllerRouting(d)
	s.Assign1 = decodeAssignable(d)
	s.Assign2 = decodeAssignable(d)
	s.KeyOnDelay = d.u8()
	s.Pan = PanKind(d.enum("pan", len(panNames)))
	s.PanValue = d.bias()

	waveOff := d.offset()
	msb, lsb := d.u8(), d.u8()
	wave, ok := JoinWave(msb, lsb)
	if d.err == nil && !ok {
		d.fail(&EnumError{Field: "wave number", Offset: waveOff, Value: msb})
	}
	s.DCO.WaveNumber = wave
	s.DCO.Coarse = d.bias()
	s.DCO.Fine = d.bias()
	s.DCO.FixedKey = d.u8()
	s.DCO.KeyScalingToPitch = KeyScalingToPitch(d.enum("ks to pitch", len(ksPitchNames)))
	pe := &s.DCO.Envelope
	pe.StartLevel = d.bias()
	pe.AttackTime = d.u8()
	pe.AttackLevel = d.bias()
	pe.DecayTime = d.u8()
	pe.TimeVelocitySensitivity = d.bias()
	pe.LevelVelocitySensitivity = d.bias()

	f := &s.DCF
	f.Bypass = d.flag("filter bypass")
	f.Mode = FilterMode(d.enum("filter mode", len(filterModeNames)))
	f.VelocityCurve = d.curve("filter velocity curve")
	f.Resonance = d.u8()
	f.Level = d.u8()
	f.Cutoff = d.u8()
	f.CutoffKeyScalingDepth = d.bias()
	f.CutoffVelocityDepth = d.bias()
	f.EnvelopeDepth = d.bias()
	f.Envelope.AttackTime = d.u8()
	f.Envelope.Decay1Time = d.u8()
	f.Envelope.Decay1Level = d.bias()
	f.Envelope.Decay2Time = d.u8()
	f.Envelope.Decay2Level = d.bias()
	f.Envelope.ReleaseTime = d.u8()
	f.KeyScalingToAttack = d.bias()
	f.KeyScalingToDecay1 = d.bias()
	f.VelocityToEnvelope = d.bias()
	f.VelocityToAttack = d.bias()
	f.VelocityToDecay1 = d.bias()

	a := &s.DCA
	a.VelocityCurve = d.curve("amplifier velocity curve")
	a.Envelope.AttackTime = d.u8()
	a.Envelope.Decay1Time = d.u8()
	a.Envelope.Decay1Level = d.u8()
	a.Envelope.Decay2Time = d.u8()
	a.Envelope.Decay2Level = d.u8()
	a.Envelope.ReleaseTime = d.u8()
	a.KeyScaling.Level = d.bias()
	a.KeyScaling.AttackTime = d.bias()
	a.KeyScaling.Decay1Time = d.bias()
	a.KeyScaling.ReleaseTime = d.bias()
	a.VelocitySensitivity.Level = d.u8()
	a.VelocitySensitivity.AttackTime = d.bias()
	a.VelocitySensitivity.Decay1Time = d.bias()
	a.VelocitySensitivity.ReleaseTime = d.bias()

	l := &s.LFO
	l.Waveform = LFOWaveform(d.enum("lfo waveform", len(lfoWaveformNames)))
	l.Speed = d.u8()
	l.DelayOnset = d.u8()
	l.FadeInTime = d.u8()
	l.FadeInToSpeed = d.u8()
	l.Vibrato = decodeLFOControl(d)
	l.Growl = decodeLFOControl(d)
	l.Tremolo = decodeLFOControl(d)

	return s
}

func encodeControllerRouting(e *encoder, name string, c ControllerRouting) {
	e.u8(name+" destination 1", c.Target1.Destination)
	e.bias(name+" depth 1", c.Target1.Depth)
	e.u8(name+" destination 2", c.Target2.Destination)
	e.bias(name+" depth 2", c.Target2.Depth)
}

func encodeAssignable(e *encoder, name string, a AssignableRouting) {
	e.u8(name+" source", a.Source)
	e.u8(name+" destination", a.Target.Destination)
	e.bias(name+" depth", a.Target.Depth)
}

func encodeSourceBlock(e *encoder, s *Source) error {
	if s.DCO.WaveNumber > MaxWave {
		return errors.Wrapf(ErrInvalidPatch, "wave number %d exceeds 10 bits", s.DCO.WaveNumber)
	}
	if s.VelocitySwitch.Threshold > 0x1F {
		return errors.Wrapf(ErrInvalidPatch, "velocity switch threshold %d exceeds 5 bits", s.VelocitySwitch.Threshold)
	}
	if int(s.VelocitySwitch.Kind) >= len(velocitySwitchNames) {
		return errors.Wrapf(ErrInvalidPatch, "velocity switch kind %d out of range", s.VelocitySwitch.Kind)
	}

	e.u8("zone low", s.ZoneLow)
	e.u8("zone high", s.ZoneHigh)
	e.u8("velocity switch", s.VelocitySwitch.pack())
	e.u8("effect path", s.EffectPath)
	e.u8("volume", s.Volume)
	e.u8("bender pitch", s.BenderPitch)
	e.u8("bender cutoff", s.BenderCutoff)
	encodeControllerRouting(e, "pressure", s.Pressure)
	encodeControllerRouting(e, "wheel", s.Wheel)
	encodeControllerRouting(e, "expression", s.Expression)
	encodeAssignable(e, "assign 1", s.Assign1)
	encodeAssignable(e, "assign 2", s.Assign2)
	e.u8("key on delay", s.KeyOnDelay)
	e.enum("pan", byte(s.Pan), len(panNames))
	e.bias("pan value", s.PanValue)

	msb, lsb := SplitWave(s.DCO.WaveNumber)
	e.u8("wave msb", msb)
	e.u8("wave lsb", lsb)
	e.bias("coarse", s.DCO.Coarse)
	e.bias("fine", s.DCO.Fine)
	e.u8("fixed key", s.DCO.FixedKey)
	e.enum("ks to pitch", byte(s.DCO.KeyScalingToPitch), len(ksPitchNames))
	pe := s.DCO.Envelope
	e.bias("pitch start level", pe.StartLevel)
	e.u8("pitch attack time", pe.AttackTime)
	e.bias("pitch attack level", pe.AttackLevel)
	e.u8("pitch decay time", pe.DecayTime)
	e.bias("pitch time vel sens", pe.TimeVelocitySensitivity)
	e.bias("pitch level vel sens", pe.LevelVelocitySensitivity)

	f := s.DCF
	e.flag(f.Bypass)
	e.enum("filter mode", byte(f.Mode), len(filterModeNames))
	e.curve("filter velocity curve", f.VelocityCurve)
	e.u8("resonance", f.Resonance)
	e.u8("filter level", f.Level)
	e.u8("cutoff", f.Cutoff)
	e.bias("cutoff ks depth", f.CutoffKeyScalingDepth)
	e.bias("cutoff vel depth", f.CutoffVelocityDepth)
	e.bias("filter env depth", f.EnvelopeDepth)
	e.u8("filter attack time", f.Envelope.AttackTime)
	e.u8("filter decay 1 time", f.Envelope.Decay1Time)
	e.bias("filter decay 1 level", f.Envelope.Decay1Level)
	e.u8("filter decay 2 time", f.Envelope.Decay2Time)
	e.bias("filter decay 2 level", f.Envelope.Decay2Level)
	e.u8("filter release time", f.Envelope.ReleaseTime)
	e.bias("filter ks to attack", f.KeyScalingToAttack)
	e.bias("filter ks to decay 1", f.KeyScalingToDecay1)
	e.bias("filter vel to env", f.VelocityToEnvelope)
	e.bias("filter vel to attack", f.VelocityToAttack)
	e.bias("filter vel to decay 1", f.VelocityToDecay1)

	a := s.DCA
	e.curve("amplifier velocity curve", a.VelocityCurve)
	e.u8("amp attack time", a.Envelope.AttackTime)
	e.u8("amp decay 1 time", a.Envelope.Decay1Time)
	e.u8("amp decay 1 level", a.Envelope.Decay1Level)
	e.u8("amp decay 2 time", a.Envelope.Decay2Time)
	e.u8("amp decay 2 level", a.Envelope.Decay2Level)
	e.u8("amp release time", a.Envelope.ReleaseTime)
	e.bias("amp ks level", a.KeyScaling.Level)
	e.bias("amp ks attack", a.KeyScaling.AttackTime)
	e.bias("amp ks decay 1", a.KeyScaling.Decay1Time)
	e.bias("amp ks release", a.KeyScaling.ReleaseTime)
	e.u8("amp vel level", a.VelocitySensitivity.Level)
	e.bias("amp vel attack", a.VelocitySensitivity.AttackTime)
	e.bias("amp vel decay 1", a.VelocitySensitivity.Decay1Time)
	e.bias("amp vel release", a.VelocitySensitivity.ReleaseTime)

	l := s.LFO
	e.enum("lfo waveform", byte(l.Waveform), len(lfoWaveformNames))
	e.u8("lfo speed", l.Speed)
	e.u8("lfo delay onset", l.DelayOnset)
	e.u8("lfo fade in time", l.FadeInTime)
	e.u8("lfo fade in to speed", l.FadeInToSpeed)
	for _, c := range []LFOControl{l.Vibrato, l.Growl, l.Tremolo} {
		e.u8("lfo depth", c.Depth)
		e.bias("lfo ks", c.KeyScaling)
	}
	return e.err
}
