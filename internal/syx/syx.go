// Package syx splits .syx files into SysEx messages and wraps payloads
// back into complete messages.
package syx

import (
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

const (
	initiator  = 0xF0
	terminator = 0xF7
)

var ErrMalformed = errors.New("malformed SysEx data")

// Split returns every complete SysEx message in data, F0 and F7 included.
// Bytes between messages are ignored; an unterminated message is an error.
func Split(data []byte) ([]midi.Message, error) {
	var msgs []midi.Message
	start := -1
	for i, b := range data {
		switch {
		case b == initiator:
			if start >= 0 {
				return nil, errors.Wrapf(ErrMalformed, "message at 0x%X not terminated before 0x%X", start, i)
			}
			start = i
		case b == terminator && start >= 0:
			msgs = append(msgs, midi.Message(data[start:i+1]))
			start = -1
		}
	}
	if start >= 0 {
		return nil, errors.Wrapf(ErrMalformed, "message at 0x%X not terminated", start)
	}
	return msgs, nil
}

// Payloads splits data and strips F0/F7 from every message.
func Payloads(data []byte) ([][]byte, error) {
	msgs, err := Split(data)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(msgs))
	for i, m := range msgs {
		var payload []byte
		if !m.GetSysEx(&payload) {
			return nil, errors.Wrapf(ErrMalformed, "message %d is not SysEx", i+1)
		}
		out = append(out, payload)
	}
	return out, nil
}

// Wrap adds F0 and F7 around a payload.
func Wrap(payload []byte) []byte {
	return midi.SysEx(payload).Bytes()
}
