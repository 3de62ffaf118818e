package generator

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseNote converts a note name such as C4, F#2, Bb-1 or G9 to its MIDI
// key number. Plain numbers 0..127 are accepted as they are. C4 is 60.
func ParseNote(tok string) (uint8, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, errors.New("empty note")
	}

	if n, err := strconv.Atoi(t); err == nil {
		if n < 0 || n > 127 {
			return 0, errors.Errorf("key number out of range: %d", n)
		}
		return uint8(n), nil
	}

	if len(t) < 2 {
		return 0, errors.Errorf("note %q too short", t)
	}

	base := strings.ToUpper(string(t[0]))
	accidental := 0
	rest := t[1:]

	switch rest[0] {
	case '#':
		accidental = 1
		rest = rest[1:]
	case 'b', 'B':
		accidental = -1
		rest = rest[1:]
	}

	if rest == "" {
		return 0, errors.Errorf("note %q is missing the octave", t)
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, errors.Wrapf(err, "note %q: invalid octave", t)
	}

	var semitone int
	switch base {
	case "C":
		semitone = 0
	case "D":
		semitone = 2
	case "E":
		semitone = 4
	case "F":
		semitone = 5
	case "G":
		semitone = 7
	case "A":
		semitone = 9
	case "B":
		semitone = 11
	default:
		return 0, errors.Errorf("invalid note letter %q", base)
	}

	n := 12*(octave+1) + semitone + accidental
	if n < 0 || n > 127 {
		return 0, errors.Errorf("note %q out of MIDI range: %d", t, n)
	}
	return uint8(n), nil
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName is the inverse of ParseNote, using sharps.
func NoteName(key uint8) string {
	return noteNames[key%12] + strconv.Itoa(int(key)/12-1)
}
