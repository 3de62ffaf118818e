package k5000

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTruncatedPatch   = errors.New("truncated patch")
	ErrInvalidEnumValue = errors.New("invalid enum value")
	ErrToneMapMismatch  = errors.New("tone map mismatch")
	ErrNotKawai         = errors.New("not a Kawai SysEx message")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrInvalidPatch     = errors.New("invalid patch")
)

// EnumError reports a byte outside its field's valid range.
type EnumError struct {
	Field  string
	Offset int
	Value  byte
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%s: value %d (0x%02X) at offset 0x%X out of range", e.Field, e.Value, e.Value, e.Offset)
}

func (e *EnumError) Is(target error) bool {
	return target == ErrInvalidEnumValue
}
