package k5000

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	ManufacturerKawai byte = 0x40
	GroupSynth        byte = 0x00
	MachineK5000      byte = 0x0A

	handshakeHeaderSize = 5
	fixedHeaderSize     = 6
)

type Function byte

const (
	OneBlockDumpRequest Function = 0x00
	AllBlockDumpRequest Function = 0x01
	ParameterSend       Function = 0x10
	TrialParameterSend  Function = 0x11
	OneBlockDump        Function = 0x20
	AllBlockDump        Function = 0x21
	ProgramSend         Function = 0x34
	WriteComplete       Function = 0x40
	WriteError          Function = 0x41
	WriteErrorProtect   Function = 0x42
	WriteErrorNoCard    Function = 0x43
)

var functionNames = map[Function]string{
	OneBlockDumpRequest: "One Block Dump Request",
	AllBlockDumpRequest: "All Block Dump Request",
	ParameterSend:       "Parameter Send",
	TrialParameterSend:  "Trial Parameter Send",
	OneBlockDump:        "One Block Dump",
	AllBlockDump:        "All Block Dump",
	ProgramSend:         "Program Send",
	WriteComplete:       "Write Complete",
	WriteError:          "Write Error",
	WriteErrorProtect:   "Write Error (Protect)",
	WriteErrorNoCard:    "Write Error (No Card)",
}

func (f Function) String() string {
	if s, ok := functionNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Function(0x%02X)", byte(f))
}

type Cardinality int

const (
	// CardinalityNone marks functions without a patch body.
	CardinalityNone Cardinality = iota
	CardinalityOne
	CardinalityBlock
)

type PatchKind byte

const (
	KindSingle         PatchKind = 0x00
	KindDrumKit        PatchKind = 0x10
	KindDrumInstrument PatchKind = 0x11
	KindMulti          PatchKind = 0x20
)

func (k PatchKind) String() string {
	switch k {
	case KindSingle:
		return "Single"
	case KindDrumKit:
		return "Drum Kit"
	case KindDrumInstrument:
		return "Drum Instrument"
	case KindMulti:
		return "Multi"
	}
	return fmt.Sprintf("PatchKind(0x%02X)", byte(k))
}

type BankID byte

const (
	BankA BankID = 0x00
	BankB BankID = 0x01
	BankD BankID = 0x02
	BankE BankID = 0x03
	BankF BankID = 0x04
)

var bankLetters = []string{"A", "B", "D", "E", "F"}

func (b BankID) String() string {
	if int(b) < len(bankLetters) {
		return bankLetters[b]
	}
	return fmt.Sprintf("Bank(0x%02X)", byte(b))
}

// ParseBankID maps a bank letter to its SysEx identifier. There is no bank C.
func ParseBankID(bank string) (BankID, error) {
	if bank == "" {
		return 0, errors.New("bank must not be empty")
	}
	letter := strings.ToUpper(bank[:1])
	for i, l := range bankLetters {
		if l == letter {
			return BankID(i), nil
		}
	}
	return 0, errors.Errorf("bank must be one of A, B, D, E, F, got %q", bank)
}

// Header is the part of a K5000 SysEx payload that precedes the body.
type Header struct {
	// Channel is 1..16; the wire carries it 0-based.
	Channel     uint8     `json:"channel"`
	Function    Function  `json:"function"`
	Group       byte      `json:"group"`
	MachineID   byte      `json:"machine_id"`
	Kind        PatchKind `json:"kind"`
	Bank        BankID    `json:"bank"`
	PatchNumber uint8     `json:"patch_number"`
}

// NewHeader returns a K5000 header with the synth group and machine id set.
func NewHeader(channel uint8, fn Function, kind PatchKind, bank BankID) Header {
	return Header{
		Channel:   channel,
		Function:  fn,
		Group:     GroupSynth,
		MachineID: MachineK5000,
		Kind:      kind,
		Bank:      bank,
	}
}

func (h Header) Cardinality() Cardinality {
	switch h.Function {
	case OneBlockDumpRequest, OneBlockDump:
		return CardinalityOne
	case AllBlockDumpRequest, AllBlockDump:
		return CardinalityBlock
	}
	return CardinalityNone
}

// Write results carry no substatus bytes at all.
func (h Header) isHandshake() bool {
	return h.Function >= WriteComplete && h.Function <= WriteErrorNoCard
}

func (h Header) hasBank() bool {
	return !h.isHandshake() && h.Kind != KindDrumKit
}

// The drum kit is a single object: no bank byte, no patch number.
func (h Header) hasPatchNumber() bool {
	if h.isHandshake() || h.Kind == KindDrumKit {
		return false
	}
	return h.Function == OneBlockDumpRequest || h.Function == OneBlockDump
}

// Len is the encoded size of the header, manufacturer byte included.
func (h Header) Len() int {
	if h.isHandshake() {
		return handshakeHeaderSize
	}
	n := fixedHeaderSize
	if h.hasBank() {
		n++
	}
	if h.hasPatchNumber() {
		n++
	}
	return n
}

func (h Header) String() string {
	if h.isHandshake() {
		return fmt.Sprintf("%s, channel %d", h.Function, h.Channel)
	}
	s := fmt.Sprintf("%s, %s, channel %d", h.Function, h.Kind, h.Channel)
	if h.hasBank() {
		s += ", bank " + h.Bank.String()
	}
	if h.hasPatchNumber() {
		s += fmt.Sprintf(", patch %d", int(h.PatchNumber)+1)
	}
	return s
}

// ParseHeader reads a header from a payload whose F0/F7 bytes are stripped
// and returns it with its encoded length.
func ParseHeader(payload []byte) (Header, int, error) {
	if len(payload) < handshakeHeaderSize {
		return Header{}, 0, errors.Wrapf(ErrTruncatedPatch, "header needs %d bytes, have %d", handshakeHeaderSize, len(payload))
	}
	if payload[0] != ManufacturerKawai {
		return Header{}, 0, errors.Wrapf(ErrNotKawai, "manufacturer 0x%02X", payload[0])
	}
	if payload[1] > 0x0F {
		return Header{}, 0, &EnumError{Field: "channel", Offset: 1, Value: payload[1]}
	}

	h := Header{
		Channel:   payload[1] + 1,
		Function:  Function(payload[2]),
		Group:     payload[3],
		MachineID: payload[4],
	}
	if h.isHandshake() {
		return h, handshakeHeaderSize, nil
	}
	if len(payload) < fixedHeaderSize {
		return Header{}, 0, errors.Wrapf(ErrTruncatedPatch, "%s header needs %d bytes, have %d", h.Function, fixedHeaderSize, len(payload))
	}
	h.Kind = PatchKind(payload[5])

	n := h.Len()
	if len(payload) < n {
		return Header{}, 0, errors.Wrapf(ErrTruncatedPatch, "%s header needs %d bytes, have %d", h.Function, n, len(payload))
	}
	pos := fixedHeaderSize
	if h.hasBank() {
		h.Bank = BankID(payload[pos])
		pos++
	}
	if h.hasPatchNumber() {
		h.PatchNumber = payload[pos]
	}
	return h, n, nil
}

// validate checks the fields Bytes writes from user input.
func (h Header) validate() error {
	if h.Channel < 1 || h.Channel > 16 {
		return errors.Wrapf(ErrInvalidPatch, "channel %d outside 1..16", h.Channel)
	}
	if h.hasBank() && int(h.Bank) >= len(bankLetters) {
		return errors.Wrapf(ErrInvalidPatch, "bank id 0x%02X", byte(h.Bank))
	}
	return nil
}

// Bytes encodes the header, manufacturer byte first.
func (h Header) Bytes() []byte {
	out := make([]byte, 0, h.Len())
	out = append(out, ManufacturerKawai, h.Channel-1, byte(h.Function), h.Group, h.MachineID)
	if h.isHandshake() {
		return out
	}
	out = append(out, byte(h.Kind))
	if h.hasBank() {
		out = append(out, byte(h.Bank))
	}
	if h.hasPatchNumber() {
		out = append(out, h.PatchNumber)
	}
	return out
}
