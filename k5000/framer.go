package k5000

import (
	"github.com/pkg/errors"

	"k5ktool/internal/bytecursor"
)

// NumberedPatch is a single patch with its 0-based patch number.
type NumberedPatch struct {
	Number int         `json:"number"`
	Patch  SinglePatch `json:"patch"`
}

// Message is one parsed K5000 SysEx message.
type Message struct {
	Header  Header          `json:"header"`
	Map     *PatchMap       `json:"-"`
	Patches []NumberedPatch `json:"patches,omitempty"`
	// Body holds the undecoded body of kinds other than Single.
	Body []byte `json:"-"`
}

type frameState int

const (
	awaitingHeader frameState = iota
	headerParsed
	singleBody
	blockBody
	frameDone
)

type framer struct {
	state  frameState
	opts   decodeOptions
	r      *bytecursor.Reader
	msg    Message
	header int
}

// ParseMessage decodes a SysEx payload with the F0 and F7 bytes stripped.
func ParseMessage(payload []byte, opts ...DecodeOption) (*Message, error) {
	f := &framer{
		state: awaitingHeader,
		opts:  collectOptions(opts),
		r:     bytecursor.NewReader(payload),
	}
	for f.state != frameDone {
		if err := f.step(); err != nil {
			return nil, err
		}
	}
	return &f.msg, nil
}

func (f *framer) step() error {
	switch f.state {
	case awaitingHeader:
		h, n, err := ParseHeader(f.r.Rest())
		if err != nil {
			return err
		}
		if _, err := f.r.ReadBytes(n); err != nil {
			return errors.Wrapf(ErrTruncatedPatch, "header: %v", err)
		}
		f.msg.Header = h
		f.header = n
		f.state = headerParsed

	case headerParsed:
		h := f.msg.Header
		switch {
		case h.Function != OneBlockDump && h.Function != AllBlockDump:
			// requests and handshakes carry no patch data
			f.msg.Body = f.r.Rest()
			f.state = frameDone
		case h.Kind != KindSingle:
			f.msg.Body = f.r.Rest()
			f.state = frameDone
		case h.Cardinality() == CardinalityOne:
			f.state = singleBody
		default:
			f.state = blockBody
		}

	case singleBody:
		body := f.r.Rest()
		o := f.opts
		p, err := decodeBody(body, f.header, o)
		if err != nil {
			return err
		}
		if len(body) != p.EncodedSize() {
			return errors.Wrapf(ErrInvalidPatch, "%d bytes after the patch", len(body)-p.EncodedSize())
		}
		f.msg.Patches = []NumberedPatch{{Number: int(f.msg.Header.PatchNumber), Patch: p}}
		f.state = frameDone

	case blockBody:
		if err := f.readBlock(); err != nil {
			return err
		}
		f.state = frameDone
	}
	return nil
}

// decodeBody decodes the patch at the start of body, peeking its length
// first. base is the offset of body in the message.
func decodeBody(body []byte, base int, o decodeOptions) (SinglePatch, error) {
	n, err := PeekSinglePatchLength(body)
	if err != nil {
		return SinglePatch{}, errors.Wrapf(err, "at offset 0x%X", base)
	}
	return decodeSinglePatch(body[:n], base, o)
}

func (f *framer) readBlock() error {
	raw, err := f.r.ReadBytes(PatchMapSize)
	if err != nil {
		return errors.Wrapf(ErrTruncatedPatch, "tone map: %v", err)
	}
	m, err := ParsePatchMap(raw)
	if err != nil {
		return err
	}
	f.msg.Map = &m

	numbers := m.Patches()
	if f.opts.expected >= 0 && len(numbers) != f.opts.expected {
		return errors.Wrapf(ErrToneMapMismatch, "tone map lists %d patches, expected %d", len(numbers), f.opts.expected)
	}

	for _, number := range numbers {
		base := f.header + f.r.Offset()
		n, err := PeekSinglePatchLength(f.r.Rest())
		if err != nil {
			return errors.Wrapf(err, "patch %d at offset 0x%X", number+1, base)
		}
		data, err := f.r.ReadBytes(n)
		if err != nil {
			return errors.Wrapf(ErrTruncatedPatch, "patch %d: %v", number+1, err)
		}
		p, err := decodeSinglePatch(data, base, f.opts)
		if err != nil {
			return errors.Wrapf(err, "patch %d", number+1)
		}
		f.msg.Patches = append(f.msg.Patches, NumberedPatch{Number: number, Patch: p})
	}

	if rest := f.r.Remaining(); rest != 0 {
		return errors.Wrapf(ErrToneMapMismatch, "%d bytes left after the %d mapped patches", rest, len(numbers))
	}
	return nil
}

// EncodeOneDump builds the payload of a one-patch dump. The header's
// function is forced to OneBlockDump and its patch number to number.
func EncodeOneDump(h Header, number int, p *SinglePatch) ([]byte, error) {
	if number < 0 || number >= NumPatches {
		return nil, errors.Errorf("patch number %d outside 0..%d", number, NumPatches-1)
	}
	h.Function = OneBlockDump
	h.Kind = KindSingle
	h.PatchNumber = uint8(number)
	if err := h.validate(); err != nil {
		return nil, err
	}

	data, err := EncodeSinglePatch(p)
	if err != nil {
		return nil, err
	}
	return append(h.Bytes(), data...), nil
}

// EncodeBlockDump builds the payload of a block dump. Patches are written in
// ascending patch number order, which is the order the tone map implies.
func EncodeBlockDump(h Header, patches []NumberedPatch) ([]byte, error) {
	h.Function = AllBlockDump
	h.Kind = KindSingle
	if err := h.validate(); err != nil {
		return nil, err
	}

	var m PatchMap
	byNumber := make(map[int]*SinglePatch, len(patches))
	for i := range patches {
		np := &patches[i]
		if err := m.Set(np.Number); err != nil {
			return nil, err
		}
		if _, dup := byNumber[np.Number]; dup {
			return nil, errors.Errorf("patch %d given twice", np.Number+1)
		}
		byNumber[np.Number] = &np.Patch
	}

	out := append(h.Bytes(), m.Bytes()...)
	for _, number := range m.Patches() {
		data, err := EncodeSinglePatch(byNumber[number])
		if err != nil {
			return nil, errors.Wrapf(err, "patch %d", number+1)
		}
		out = append(out, data...)
	}
	return out, nil
}
