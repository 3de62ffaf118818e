package k5000

import "fmt"

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("unknown(%d)", v)
}

type ReverbType uint8

var reverbNames = []string{"Hall 1", "Hall 2", "Hall 3", "Room 1", "Room 2", "Room 3", "Plate 1", "Plate 2", "Plate 3", "Reverse", "Long Delay"}

func (r ReverbType) String() string { return enumName(reverbNames, uint8(r)) }

type Polyphony uint8

const (
	Poly Polyphony = iota
	Solo1
	Solo2
)

var polyphonyNames = []string{"Poly", "Solo 1", "Solo 2"}

func (p Polyphony) String() string { return enumName(polyphonyNames, uint8(p)) }

type VelocitySwitchKind uint8

const (
	VelocitySwitchOff VelocitySwitchKind = iota
	VelocitySwitchLoud
	VelocitySwitchSoft
)

var velocitySwitchNames = []string{"Off", "Loud", "Soft"}

func (k VelocitySwitchKind) String() string { return enumName(velocitySwitchNames, uint8(k)) }

type PanKind uint8

const (
	PanNormal PanKind = iota
	PanKeyScaling
	PanNegativeKeyScaling
	PanRandom
)

var panNames = []string{"Normal", "KS", "-KS", "Random"}

func (p PanKind) String() string { return enumName(panNames, uint8(p)) }

type KeyScalingToPitch uint8

var ksPitchNames = []string{"0 cent", "25 cent", "33 cent", "50 cent"}

func (k KeyScalingToPitch) String() string { return enumName(ksPitchNames, uint8(k)) }

type FilterMode uint8

const (
	LowPass FilterMode = iota
	HighPass
)

var filterModeNames = []string{"Low pass", "High pass"}

func (m FilterMode) String() string { return enumName(filterModeNames, uint8(m)) }

type LFOWaveform uint8

const (
	LFOTriangle LFOWaveform = iota
	LFOSquare
	LFOSawtooth
	LFOSine
	LFORandom
)

var lfoWaveformNames = []string{"Triangle", "Square", "Sawtooth", "Sine", "Random"}

func (w LFOWaveform) String() string { return enumName(lfoWaveformNames, uint8(w)) }

type HarmonicGroup uint8

const (
	HarmonicGroupLow HarmonicGroup = iota
	HarmonicGroupHigh
)

var harmonicGroupNames = []string{"Low", "High"}

func (g HarmonicGroup) String() string { return enumName(harmonicGroupNames, uint8(g)) }

type LoopType uint8

const (
	LoopOff LoopType = iota
	Loop1
	Loop2
)

var loopTypeNames = []string{"Off", "Loop 1", "Loop 2"}

func (l LoopType) String() string { return enumName(loopTypeNames, uint8(l)) }

type FormantSource uint8

const (
	FormantSourceEnvelope FormantSource = iota
	FormantSourceLFO
)

var formantSourceNames = []string{"Envelope", "LFO"}

func (s FormantSource) String() string { return enumName(formantSourceNames, uint8(s)) }

type FormantLFOShape uint8

const (
	FormantLFOTriangle FormantLFOShape = iota
	FormantLFOSawtooth
	FormantLFORandom
)

var formantLFOShapeNames = []string{"Triangle", "Sawtooth", "Random"}

func (s FormantLFOShape) String() string { return enumName(formantLFOShapeNames, uint8(s)) }

const (
	effectAlgorithmCount = 4
	reverbTypeCount      = 11
)
