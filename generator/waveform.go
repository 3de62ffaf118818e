package generator

import "math"

// WaveformParameters describe a harmonic spectrum with Leiter's formula:
//
//	a(n) = 1/n^A * sin(n*pi*XP)^B * cos(n*pi*XP)^C * sin(n*pi*YP)^D * cos(n*pi*YP)^E
type WaveformParameters struct {
	A  float64 `yaml:"a" json:"a"`
	B  float64 `yaml:"b" json:"b"`
	C  float64 `yaml:"c" json:"c"`
	XP float64 `yaml:"xp" json:"xp"`
	D  float64 `yaml:"d" json:"d"`
	E  float64 `yaml:"e" json:"e"`
	YP float64 `yaml:"yp" json:"yp"`
}

var defaultWaveforms = map[string]WaveformParameters{
	"Saw":           {A: 1},
	"Square":        {A: 1, B: 1, XP: 0.5},
	"Triangle":      {A: 2, B: 1, XP: 0.5},
	"Pulse20":       {A: 1, B: 1, XP: 0.2},
	"PluckedString": {A: 2, B: 1, XP: 0.2},
	"Brassy":        {A: 2, B: 2, XP: 0.1},
	"AnalogSquare":  {A: 3, B: 1, XP: 0.48, D: 2, YP: 0.035},
	"Oboe":          {A: 0.4, B: 1, XP: 0.12, E: 1, YP: 0.47},
	"Trombone":      {A: 2, B: 1, XP: 0.045, D: 1, E: 1, YP: 0.0625},
	"FrenchHorn":    {A: 2, B: 1, XP: 0.09, D: 1, YP: 0.13},
}

func (w WaveformParameters) amplitude(n int) float64 {
	fn := float64(n)
	x := fn * math.Pi * w.XP
	y := fn * math.Pi * w.YP
	m1 := 1 / math.Pow(fn, w.A)
	m2 := math.Pow(math.Sin(x), w.B) * math.Pow(math.Cos(x), w.C)
	m3 := math.Pow(math.Sin(y), w.D) * math.Pow(math.Cos(y), w.E)
	return m1 * m2 * m3
}

// level maps the amplitude of harmonic n to a level below top, 8 steps per
// neper. Silent harmonics get level 0.
func (w WaveformParameters) level(n, top int) uint8 {
	v := float64(top) + 8*math.Log(math.Abs(w.amplitude(n)))
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(top) {
		return uint8(top)
	}
	return uint8(math.Floor(v))
}

// HarmonicLevels computes count harmonic levels (harmonic 1 first) for w,
// the loudest at top.
func HarmonicLevels(w WaveformParameters, count, top int) []uint8 {
	levels := make([]uint8, count)
	for i := range levels {
		levels[i] = w.level(i+1, top)
	}
	return levels
}
