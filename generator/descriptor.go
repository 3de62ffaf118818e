package generator

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"k5ktool/k5000"
)

// DefaultPatchName is used when a descriptor has no name.
const DefaultPatchName = "NewSound"

var ErrInvalidDescriptor = errors.New("invalid patch descriptor")

// SourceDescriptor selects the wave of one source. The template names are
// only used when Wave is the additive wave; a blank name means Init.
// Waveform computes the harmonic levels instead of looking them up, so it
// cannot be combined with HarmonicLevels.
type SourceDescriptor struct {
	Wave             uint16 `yaml:"wave" json:"wave" jsonschema:"maximum=1023,description=Wave number. 512 selects an additive source."`
	Waveform         string `yaml:"waveform,omitempty" json:"waveform,omitempty" jsonschema:"description=Waveform formula for the harmonic levels of an additive source"`
	HarmonicLevels   string `yaml:"harmonic_levels,omitempty" json:"harmonic_levels,omitempty" jsonschema:"description=Harmonic level template name"`
	HarmonicEnvelope string `yaml:"harmonic_envelope,omitempty" json:"harmonic_envelope,omitempty" jsonschema:"description=Harmonic envelope template name"`
	FormantFilter    string `yaml:"formant_filter,omitempty" json:"formant_filter,omitempty" jsonschema:"description=Formant filter template name"`
	ZoneLow          string `yaml:"zone_low,omitempty" json:"zone_low,omitempty" jsonschema:"description=Lowest key as a note name like C-1 or a key number"`
	ZoneHigh         string `yaml:"zone_high,omitempty" json:"zone_high,omitempty" jsonschema:"description=Highest key as a note name like G9 or a key number"`
}

// IsAdditive reports whether the source asks for an additive kit.
func (s SourceDescriptor) IsAdditive() bool {
	return k5000.IsAdditive(s.Wave)
}

// zone returns the key range, 0..127 for blank bounds.
func (s SourceDescriptor) zone() (low, high uint8, err error) {
	low, high = 0, 127
	if s.ZoneLow != "" {
		if low, err = ParseNote(s.ZoneLow); err != nil {
			return 0, 0, errors.Wrapf(ErrInvalidDescriptor, "zone low: %v", err)
		}
	}
	if s.ZoneHigh != "" {
		if high, err = ParseNote(s.ZoneHigh); err != nil {
			return 0, 0, errors.Wrapf(ErrInvalidDescriptor, "zone high: %v", err)
		}
	}
	if low > high {
		return 0, 0, errors.Wrapf(ErrInvalidDescriptor, "zone %s..%s is empty", NoteName(low), NoteName(high))
	}
	return low, high, nil
}

// SinglePatchDescriptor is the declarative input of Generate.
type SinglePatchDescriptor struct {
	Name    string             `yaml:"name" json:"name" jsonschema:"maxLength=8,description=Patch name in ASCII"`
	Sources []SourceDescriptor `yaml:"sources" json:"sources" jsonschema:"minItems=2,maxItems=6"`
}

// Validate checks the descriptor without looking at templates.
func (d *SinglePatchDescriptor) Validate() error {
	if n := len(d.Sources); n < k5000.MinSources || n > k5000.MaxSources {
		return errors.Wrapf(ErrInvalidDescriptor, "%d sources, want %d..%d", n, k5000.MinSources, k5000.MaxSources)
	}
	if len(d.Name) > k5000.NameLength {
		return errors.Wrapf(ErrInvalidDescriptor, "name %q longer than %d characters", d.Name, k5000.NameLength)
	}
	for i, s := range d.Sources {
		if s.Wave > k5000.MaxWave {
			return errors.Wrapf(ErrInvalidDescriptor, "source %d: wave %d above %d", i+1, s.Wave, k5000.MaxWave)
		}
		if s.Waveform != "" && s.HarmonicLevels != "" {
			return errors.Wrapf(ErrInvalidDescriptor, "source %d: waveform %q and harmonic levels %q both given", i+1, s.Waveform, s.HarmonicLevels)
		}
		if _, _, err := s.zone(); err != nil {
			return errors.Wrapf(err, "source %d", i+1)
		}
	}
	return nil
}

// ParseDescriptor decodes a descriptor from YAML, or JSON when the input
// starts with a brace.
func ParseDescriptor(data []byte) (*SinglePatchDescriptor, error) {
	d := &SinglePatchDescriptor{}
	var err error
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, d)
	} else {
		err = yaml.Unmarshal(data, d)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "%v", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDescriptor reads and validates a descriptor file.
func LoadDescriptor(path string) (*SinglePatchDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return d, nil
}
