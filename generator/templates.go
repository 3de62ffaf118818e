// Package generator builds single patches from a descriptor and a set of
// named harmonic level, harmonic envelope and formant filter templates.
package generator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"k5ktool/k5000"
)

// InitTemplate is used for every template name left blank.
const InitTemplate = "Init"

const (
	maxLevel        = 127
	maxEnvelopeRate = 127
	maxEnvelopeLvl  = 63
	numSegments     = 4
)

var (
	ErrUnknownTemplateName = errors.New("unknown template name")
	ErrInvalidTemplate     = errors.New("invalid template")
)

type EnvelopeSegment struct {
	Rate  uint8 `yaml:"rate" json:"rate"`
	Level uint8 `yaml:"level" json:"level"`
}

// EnvelopeTemplate is a harmonic envelope applied to all 64 harmonics.
type EnvelopeTemplate struct {
	Segments []EnvelopeSegment `yaml:"segments" json:"segments"`
	Loop1    bool              `yaml:"loop1,omitempty" json:"loop1,omitempty"`
	Loop2    bool              `yaml:"loop2,omitempty" json:"loop2,omitempty"`
}

func (t EnvelopeTemplate) envelope() k5000.HarmonicEnvelope {
	seg := func(i int) k5000.EnvelopeSegment {
		return k5000.EnvelopeSegment{Rate: t.Segments[i].Rate, Level: t.Segments[i].Level}
	}
	return k5000.HarmonicEnvelope{
		Segment0:     seg(0),
		Segment1:     seg(1),
		Segment1Loop: t.Loop1,
		Segment2:     seg(2),
		Segment2Loop: t.Loop2,
		Segment3:     seg(3),
	}
}

// TemplateSet holds the named tables the generator draws from. Level and
// formant tables must have exactly 64 and 128 entries.
type TemplateSet struct {
	HarmonicLevels    map[string][]uint8            `yaml:"harmonic_levels" json:"harmonic_levels"`
	HarmonicEnvelopes map[string]EnvelopeTemplate   `yaml:"harmonic_envelopes" json:"harmonic_envelopes"`
	FormantFilters    map[string][]uint8            `yaml:"formant_filters" json:"formant_filters"`
	Waveforms         map[string]WaveformParameters `yaml:"waveforms,omitempty" json:"waveforms,omitempty"`
}

// Validate checks every table length and value range.
func (ts *TemplateSet) Validate() error {
	for name, levels := range ts.HarmonicLevels {
		if err := checkTable(levels, k5000.NumHarmonics); err != nil {
			return errors.Wrapf(err, "harmonic levels %q", name)
		}
	}
	for name, bands := range ts.FormantFilters {
		if err := checkTable(bands, k5000.NumFormantBands); err != nil {
			return errors.Wrapf(err, "formant filter %q", name)
		}
	}
	for name, env := range ts.HarmonicEnvelopes {
		if len(env.Segments) != numSegments {
			return errors.Wrapf(ErrInvalidTemplate, "harmonic envelope %q has %d segments, want %d", name, len(env.Segments), numSegments)
		}
		for i, s := range env.Segments {
			if s.Rate > maxEnvelopeRate || s.Level > maxEnvelopeLvl {
				return errors.Wrapf(ErrInvalidTemplate, "harmonic envelope %q segment %d: rate %d level %d", name, i, s.Rate, s.Level)
			}
		}
	}
	return nil
}

func checkTable(values []uint8, want int) error {
	if len(values) != want {
		return errors.Wrapf(ErrInvalidTemplate, "%d entries, want %d", len(values), want)
	}
	for i, v := range values {
		if v > maxLevel {
			return errors.Wrapf(ErrInvalidTemplate, "entry %d is %d", i+1, v)
		}
	}
	return nil
}

// Merge copies every template of other into ts, replacing same-named ones.
func (ts *TemplateSet) Merge(other *TemplateSet) {
	if ts.HarmonicLevels == nil {
		ts.HarmonicLevels = map[string][]uint8{}
	}
	if ts.HarmonicEnvelopes == nil {
		ts.HarmonicEnvelopes = map[string]EnvelopeTemplate{}
	}
	if ts.FormantFilters == nil {
		ts.FormantFilters = map[string][]uint8{}
	}
	if ts.Waveforms == nil {
		ts.Waveforms = map[string]WaveformParameters{}
	}
	for k, v := range other.HarmonicLevels {
		ts.HarmonicLevels[k] = v
	}
	for k, v := range other.HarmonicEnvelopes {
		ts.HarmonicEnvelopes[k] = v
	}
	for k, v := range other.FormantFilters {
		ts.FormantFilters[k] = v
	}
	for k, v := range other.Waveforms {
		ts.Waveforms[k] = v
	}
}

func (ts *TemplateSet) levels(name string) ([]uint8, error) {
	name = templateName(name)
	levels, ok := ts.HarmonicLevels[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTemplateName, "harmonic levels %q", name)
	}
	if err := checkTable(levels, k5000.NumHarmonics); err != nil {
		return nil, errors.Wrapf(err, "harmonic levels %q", name)
	}
	return levels, nil
}

func (ts *TemplateSet) formant(name string) ([]uint8, error) {
	name = templateName(name)
	bands, ok := ts.FormantFilters[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTemplateName, "formant filter %q", name)
	}
	if err := checkTable(bands, k5000.NumFormantBands); err != nil {
		return nil, errors.Wrapf(err, "formant filter %q", name)
	}
	return bands, nil
}

func (ts *TemplateSet) envelope(name string) (k5000.HarmonicEnvelope, error) {
	name = templateName(name)
	env, ok := ts.HarmonicEnvelopes[name]
	if !ok {
		return k5000.HarmonicEnvelope{}, errors.Wrapf(ErrUnknownTemplateName, "harmonic envelope %q", name)
	}
	if len(env.Segments) != numSegments {
		return k5000.HarmonicEnvelope{}, errors.Wrapf(ErrInvalidTemplate, "harmonic envelope %q has %d segments, want %d", name, len(env.Segments), numSegments)
	}
	return env.envelope(), nil
}

func templateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return InitTemplate
	}
	return name
}

// LoadTemplates reads a template file. Files ending in .json are read as
// JSON, anything else as YAML.
func LoadTemplates(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ts := &TemplateSet{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, ts)
	} else {
		err = yaml.Unmarshal(data, ts)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTemplate, "%s: %v", path, err)
	}
	if err := ts.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return ts, nil
}

// DefaultTemplates returns the built-in set. Each call returns a fresh copy.
func DefaultTemplates() *TemplateSet {
	flat := make([]uint8, k5000.NumFormantBands)
	for i := range flat {
		flat[i] = maxLevel
	}
	initLevels := make([]uint8, k5000.NumHarmonics)
	initLevels[0] = maxLevel

	ts := &TemplateSet{
		HarmonicLevels: map[string][]uint8{
			InitTemplate: initLevels,
			"Saw soft":   HarmonicLevels(defaultWaveforms["Saw"], k5000.NumHarmonics, 99),
			"Triangle":   HarmonicLevels(defaultWaveforms["Triangle"], k5000.NumHarmonics, maxLevel),
			"Vibes":      vibesLevels(),
		},
		HarmonicEnvelopes: map[string]EnvelopeTemplate{
			InitTemplate: {Segments: []EnvelopeSegment{{127, 63}, {0, 63}, {0, 63}, {64, 0}}},
			"piano":      {Segments: []EnvelopeSegment{{125, 63}, {92, 63}, {49, 63}, {39, 49}}},
			"epiano":     {Segments: []EnvelopeSegment{{127, 63}, {81, 63}, {15, 63}, {0, 0}}},
			"pluck":      {Segments: []EnvelopeSegment{{127, 63}, {118, 63}, {79, 63}, {0, 0}}},
			"padFast":    {Segments: []EnvelopeSegment{{83, 63}, {63, 63}, {64, 63}, {52, 0}}},
			"padSlow":    {Segments: []EnvelopeSegment{{67, 63}, {63, 63}, {64, 63}, {0, 0}}},
		},
		FormantFilters: map[string][]uint8{
			InitTemplate: flat,
		},
		Waveforms: map[string]WaveformParameters{},
	}
	for name, w := range defaultWaveforms {
		ts.Waveforms[name] = w
	}
	return ts
}

// vibesLevels is a bar-percussion spectrum: strong partials at the 1st, 4th
// and 10th harmonics with little in between.
func vibesLevels() []uint8 {
	levels := make([]uint8, k5000.NumHarmonics)
	for h, v := range map[int]uint8{1: 127, 2: 60, 3: 48, 4: 112, 5: 40, 7: 36, 10: 96, 13: 30, 17: 72, 24: 40} {
		levels[h-1] = v
	}
	return levels
}
