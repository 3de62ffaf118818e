package k5000

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	// CommonSize is the common block including the leading checksum byte.
	CommonSize = 82

	NameLength        = 8
	NumEffects        = 4
	NumGEQBands       = 7
	NumEffectControls = 2
	NumMacros         = 4
	NumSwitches       = 4
	MinSources        = 2
	MaxSources        = 6
)

// Offsets inside a tone record, checksum byte included.
const (
	NameOffset        = 40
	SourceCountOffset = 51
)

type Reverb struct {
	Type   ReverbType `json:"type"`
	DryWet uint8      `json:"dry_wet"`
	Param1 uint8      `json:"param1"`
	Param2 uint8      `json:"param2"`
	Param3 uint8      `json:"param3"`
	Param4 uint8      `json:"param4"`
}

type Effect struct {
	Type   uint8 `json:"type"`
	Depth  uint8 `json:"depth"`
	Param1 uint8 `json:"param1"`
	Param2 uint8 `json:"param2"`
	Param3 uint8 `json:"param3"`
	Param4 uint8 `json:"param4"`
}

type EffectControl struct {
	Source      uint8 `json:"source"`
	Destination uint8 `json:"destination"`
	Depth       int8  `json:"depth"`
}

type MacroController struct {
	Param1 uint8 `json:"param1"`
	Param2 uint8 `json:"param2"`
	Depth1 int8  `json:"depth1"`
	Depth2 int8  `json:"depth2"`
}

// SingleCommon holds the common settings of a single patch. The checksum
// byte that precedes it on the wire is not part of the struct.
type SingleCommon struct {
	EffectAlgorithm uint8                            `json:"effect_algorithm"`
	Reverb          Reverb                           `json:"reverb"`
	Effects         [NumEffects]Effect               `json:"effects"`
	GEQ             [NumGEQBands]int8                `json:"geq"`
	DrumMark        bool                             `json:"drum_mark"`
	Name            string                           `json:"name"`
	Volume          uint8                            `json:"volume"`
	Polyphony       Polyphony                        `json:"polyphony"`
	Reserved        uint8                            `json:"reserved"`
	SourceMutes     [MaxSources]bool                 `json:"source_mutes"`
	AM              uint8                            `json:"am"`
	EffectControls  [NumEffectControls]EffectControl `json:"effect_controls"`
	Portamento      bool                             `json:"portamento"`
	PortamentoSpeed uint8                            `json:"portamento_speed"`
	Macros          [NumMacros]MacroController       `json:"macros"`
	// SW1, SW2, F.SW1, F.SW2
	Switches [NumSwitches]uint8 `json:"switches"`
}

// decodeCommon reads wire offsets 1..81 and returns the source count found
// at offset 51.
func decodeCommon(d *decoder) (SingleCommon, int) {
	var c SingleCommon

	c.EffectAlgorithm = d.enum("effect algorithm", effectAlgorithmCount)
	c.Reverb.Type = ReverbType(d.enum("reverb type", reverbTypeCount))
	c.Reverb.DryWet = d.u8()
	c.Reverb.Param1 = d.u8()
	c.Reverb.Param2 = d.u8()
	c.Reverb.Param3 = d.u8()
	c.Reverb.Param4 = d.u8()

	for i := range c.Effects {
		e := &c.Effects[i]
		e.Type = d.u8()
		e.Depth = d.u8()
		e.Param1 = d.u8()
		e.Param2 = d.u8()
		e.Param3 = d.u8()
		e.Param4 = d.u8()
	}

	for i := range c.GEQ {
		c.GEQ[i] = d.bias()
	}

	c.DrumMark = d.flag("drum mark")

	var name [NameLength]byte
	d.bytes(name[:])
	c.Name = decodeName(name[:])

	c.Volume = d.u8()
	c.Polyphony = Polyphony(d.enum("polyphony", len(polyphonyNames)))
	c.Reserved = d.u8()

	countOff := d.offset()
	count := int(d.u8())
	if d.err == nil && (count < MinSources || count > MaxSources) {
		d.fail(&EnumError{Field: "source count", Offset: countOff, Value: byte(count)})
	}

	muteOff := d.offset()
	mutes := d.u8()
	if d.err == nil && mutes&^0x3F != 0 {
		d.fail(&EnumError{Field: "source mutes", Offset: muteOff, Value: mutes})
	}
	for i := range c.SourceMutes {
		c.SourceMutes[i] = mutes&(1<<i) != 0
	}

	c.AM = d.u8()

	for i := range c.EffectControls {
		ec := &c.EffectControls[i]
		ec.Source = d.u8()
		ec.Destination = d.u8()
		ec.Depth = d.bias()
	}

	c.Portamento = d.flag("portamento")
	c.PortamentoSpeed = d.u8()

	for i := range c.Macros {
		m := &c.Macros[i]
		m.Param1 = d.u8()
		m.Param2 = d.u8()
		m.Depth1 = d.bias()
		m.Depth2 = d.bias()
	}

	for i := range c.Switches {
		c.Switches[i] = d.u8()
	}

	return c, count
}

func encodeCommon(e *encoder, c *SingleCommon, sourceCount int) error {
	name, err := encodeName(c.Name)
	if err != nil {
		return err
	}

	e.enum("effect algorithm", c.EffectAlgorithm, effectAlgorithmCount)
	e.enum("reverb type", byte(c.Reverb.Type), reverbTypeCount)
	e.u8("reverb dry/wet", c.Reverb.DryWet)
	e.u8("reverb param 1", c.Reverb.Param1)
	e.u8("reverb param 2", c.Reverb.Param2)
	e.u8("reverb param 3", c.Reverb.Param3)
	e.u8("reverb param 4", c.Reverb.Param4)

	for _, fx := range c.Effects {
		e.u8("effect type", fx.Type)
		e.u8("effect depth", fx.Depth)
		e.u8("effect param 1", fx.Param1)
		e.u8("effect param 2", fx.Param2)
		e.u8("effect param 3", fx.Param3)
		e.u8("effect param 4", fx.Param4)
	}

	for _, band := range c.GEQ {
		e.bias("geq band", band)
	}

	e.flag(c.DrumMark)
	e.bytes("name", name)
	e.u8("volume", c.Volume)
	e.enum("polyphony", byte(c.Polyphony), len(polyphonyNames))
	e.u8("reserved", c.Reserved)
	e.u8("source count", byte(sourceCount))

	var mutes byte
	for i, m := range c.SourceMutes {
		if m {
			mutes |= 1 << i
		}
	}
	e.u8("source mutes", mutes)

	e.u8("am", c.AM)

	for _, ec := range c.EffectControls {
		e.u8("effect control source", ec.Source)
		e.u8("effect control destination", ec.Destination)
		e.bias("effect control depth", ec.Depth)
	}

	e.flag(c.Portamento)
	e.u8("portamento speed", c.PortamentoSpeed)

	for _, m := range c.Macros {
		e.u8("macro param 1", m.Param1)
		e.u8("macro param 2", m.Param2)
		e.bias("macro depth 1", m.Depth1)
		e.bias("macro depth 2", m.Depth2)
	}

	for _, s := range c.Switches {
		e.u8("switch", s)
	}
	return e.err
}

// DecodeName turns the 8 raw name bytes into text. Trailing spaces, NULs and
// DEL are dropped; other bytes outside printable ASCII read as '?'.
func DecodeName(raw []byte) string {
	return decodeName(raw)
}

func decodeName(raw []byte) string {
	s := strings.TrimRight(string(raw), " \x00\x7f")
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return '?'
		}
		return r
	}, s)
}

func encodeName(name string) ([]byte, error) {
	if len(name) > NameLength {
		return nil, errors.Wrapf(ErrInvalidPatch, "name %q longer than %d characters", name, NameLength)
	}
	out := []byte(strings.Repeat(" ", NameLength))
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7E {
			return nil, errors.Wrapf(ErrInvalidPatch, "name %q has a non-ASCII character", name)
		}
		out[i] = name[i]
	}
	return out, nil
}
