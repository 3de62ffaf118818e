package k5000

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestWaveSplitJoin(t *testing.T) {
	tests := []struct {
		wave     uint16
		msb, lsb byte
	}{
		{0, 0x00, 0x00},
		{127, 0x00, 0x7F},
		{128, 0x01, 0x00},
		{412, 0x03, 0x1C},
		{AdditiveWave, 0x04, 0x00},
		{MaxWave, 0x07, 0x7F},
	}

	for _, tt := range tests {
		msb, lsb := SplitWave(tt.wave)
		if msb != tt.msb || lsb != tt.lsb {
			t.Errorf("SplitWave(%d) = %02X %02X, want %02X %02X", tt.wave, msb, lsb, tt.msb, tt.lsb)
		}
		wave, ok := JoinWave(tt.msb, tt.lsb)
		if !ok || wave != tt.wave {
			t.Errorf("JoinWave(%02X, %02X) = %d, %v", tt.msb, tt.lsb, wave, ok)
		}
	}

	if _, ok := JoinWave(0x08, 0); ok {
		t.Error("msb with bit 3 set accepted")
	}
	if _, ok := JoinWave(0, 0x80); ok {
		t.Error("lsb with bit 7 set accepted")
	}
}

func TestPatchMapFirstPatch(t *testing.T) {
	m, err := NewPatchMap(0)
	if err != nil {
		t.Fatal(err)
	}
	data := m.Bytes()
	if len(data) != PatchMapSize {
		t.Fatalf("encoded %d bytes, want %d", len(data), PatchMapSize)
	}
	want := make([]byte, PatchMapSize)
	want[0] = 0x01
	binaryExpectEqual(t, want, data)

	back, err := ParsePatchMap(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := back.Patches(); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("decoded %v, want [0]", got)
	}
}

func TestPatchMapBitPositions(t *testing.T) {
	tests := []struct {
		patch int
		index int
		value byte
	}{
		{6, 0, 0x40},
		{7, 1, 0x01},
		{64, 9, 0x02},
		{127, 18, 0x02},
	}

	for _, tt := range tests {
		m, _ := NewPatchMap(tt.patch)
		data := m.Bytes()
		if data[tt.index] != tt.value {
			t.Errorf("patch %d: byte %d = 0x%02X, want 0x%02X", tt.patch, tt.index, data[tt.index], tt.value)
		}
	}
}

func TestPatchMapRoundTrip(t *testing.T) {
	sets := [][]int{
		nil,
		{0},
		{127},
		{0, 1, 2, 3, 4, 5, 6, 7},
		{3, 17, 64, 99, 126},
	}
	var all []int
	var evens []int
	for i := 0; i < NumPatches; i++ {
		all = append(all, i)
		if i%2 == 0 {
			evens = append(evens, i)
		}
	}
	sets = append(sets, all, evens)

	for _, set := range sets {
		m, err := NewPatchMap(set...)
		if err != nil {
			t.Fatal(err)
		}
		data := m.Bytes()
		for i, b := range data {
			if b&0x80 != 0 {
				t.Fatalf("byte %d has the stuffing bit set", i)
			}
		}
		back, err := ParsePatchMap(data)
		if err != nil {
			t.Fatalf("%v: %v", set, err)
		}
		if back.Count() != len(set) {
			t.Errorf("%v: count %d", set, back.Count())
		}
		if back != m {
			t.Errorf("%v: decoded map differs", set)
		}
		if !bytes.Equal(back.Bytes(), data) {
			t.Errorf("%v: re-encoded bytes differ", set)
		}
	}
}

func TestPatchMapRejects(t *testing.T) {
	data := make([]byte, PatchMapSize)
	data[4] = 0x80
	if _, err := ParsePatchMap(data); !errors.Is(err, ErrInvalidEnumValue) {
		t.Errorf("stuffing bit: expected ErrInvalidEnumValue, got %v", err)
	}

	data = make([]byte, PatchMapSize)
	data[18] = 0x04
	if _, err := ParsePatchMap(data); !errors.Is(err, ErrInvalidEnumValue) {
		t.Errorf("patch 128: expected ErrInvalidEnumValue, got %v", err)
	}

	if _, err := ParsePatchMap(data[:10]); !errors.Is(err, ErrTruncatedPatch) {
		t.Errorf("short map: expected ErrTruncatedPatch, got %v", err)
	}

	if _, err := NewPatchMap(128); err == nil {
		t.Error("patch 128 accepted")
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Header
		length  int
		card    Cardinality
	}{
		{
			name:    "one single",
			payload: []byte{0x40, 0x00, 0x20, 0x00, 0x0A, 0x00, 0x00, 0x05},
			want:    Header{Channel: 1, Function: OneBlockDump, MachineID: 0x0A, Kind: KindSingle, Bank: BankA, PatchNumber: 5},
			length:  8,
			card:    CardinalityOne,
		},
		{
			name:    "block single",
			payload: []byte{0x40, 0x03, 0x21, 0x00, 0x0A, 0x00, 0x03},
			want:    Header{Channel: 4, Function: AllBlockDump, MachineID: 0x0A, Kind: KindSingle, Bank: BankE},
			length:  7,
			card:    CardinalityBlock,
		},
		{
			name:    "one request",
			payload: []byte{0x40, 0x0F, 0x00, 0x00, 0x0A, 0x00, 0x04, 0x7F},
			want:    Header{Channel: 16, Function: OneBlockDumpRequest, MachineID: 0x0A, Kind: KindSingle, Bank: BankF, PatchNumber: 127},
			length:  8,
			card:    CardinalityOne,
		},
		{
			name:    "drum kit",
			payload: []byte{0x40, 0x00, 0x20, 0x00, 0x0A, 0x10, 0x55},
			want:    Header{Channel: 1, Function: OneBlockDump, MachineID: 0x0A, Kind: KindDrumKit},
			length:  6,
			card:    CardinalityOne,
		},
		{
			name:    "write complete",
			payload: []byte{0x40, 0x00, 0x40, 0x00, 0x0A},
			want:    Header{Channel: 1, Function: WriteComplete, MachineID: 0x0A},
			length:  5,
			card:    CardinalityNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, n, err := ParseHeader(tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			if h != tt.want {
				t.Errorf("got %+v, want %+v", h, tt.want)
			}
			if n != tt.length || h.Len() != tt.length {
				t.Errorf("length %d / %d, want %d", n, h.Len(), tt.length)
			}
			if h.Cardinality() != tt.card {
				t.Errorf("cardinality %d, want %d", h.Cardinality(), tt.card)
			}
			binaryExpectEqual(t, tt.payload[:tt.length], h.Bytes())
		})
	}
}

func TestParseHeaderErrors(t *testing.T) {
	if _, _, err := ParseHeader([]byte{0x41, 0, 0x20, 0, 0x0A, 0, 0, 0}); !errors.Is(err, ErrNotKawai) {
		t.Errorf("expected ErrNotKawai, got %v", err)
	}
	if _, _, err := ParseHeader([]byte{0x40, 0, 0x20, 0, 0x0A, 0, 0}); !errors.Is(err, ErrTruncatedPatch) {
		t.Errorf("expected ErrTruncatedPatch, got %v", err)
	}
	if _, _, err := ParseHeader([]byte{0x40, 0x10, 0x21, 0, 0x0A, 0, 0}); !errors.Is(err, ErrInvalidEnumValue) {
		t.Errorf("expected ErrInvalidEnumValue for channel, got %v", err)
	}
}

func TestParseBankID(t *testing.T) {
	for letter, want := range map[string]BankID{"A": BankA, "b": BankB, "D": BankD, "e": BankE, "F": BankF} {
		got, err := ParseBankID(letter)
		if err != nil || got != want {
			t.Errorf("ParseBankID(%q) = %v, %v", letter, got, err)
		}
		if got.String() != string(letter[0]&^0x20) {
			t.Errorf("%v.String() = %q", got, got.String())
		}
	}
	for _, bad := range []string{"", "C", "G"} {
		if _, err := ParseBankID(bad); err == nil {
			t.Errorf("ParseBankID(%q) accepted", bad)
		}
	}
}

func TestOneDumpMessage(t *testing.T) {
	p := testPatch(true)
	payload, err := EncodeOneDump(NewHeader(3, OneBlockDump, KindSingle, BankD), 41, &p)
	if err != nil {
		t.Fatal(err)
	}

	msg, err := ParseMessage(payload, VerifyChecksums())
	if err != nil {
		t.Fatalf("failed to parse message: %v", err)
	}
	if msg.Header.Bank != BankD || msg.Header.Channel != 3 || msg.Header.PatchNumber != 41 {
		t.Errorf("unexpected header %+v", msg.Header)
	}
	if len(msg.Patches) != 1 || msg.Patches[0].Number != 41 {
		t.Fatalf("unexpected patches %+v", msg.Patches)
	}
	if !reflect.DeepEqual(msg.Patches[0].Patch, p) {
		t.Error("decoded patch differs from the original")
	}

	if _, err := ParseMessage(append(payload, 0x00)); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("trailing byte: expected ErrInvalidPatch, got %v", err)
	}
	if _, err := ParseMessage(payload[:len(payload)-1]); !errors.Is(err, ErrTruncatedPatch) {
		t.Errorf("short body: expected ErrTruncatedPatch, got %v", err)
	}
}

func blockFixture(t *testing.T) ([]byte, []NumberedPatch) {
	t.Helper()
	pcm := testPatch(false)
	add := testPatch(true)
	add.Common.Name = "Additive"
	patches := []NumberedPatch{
		{Number: 127, Patch: pcm},
		{Number: 0, Patch: add},
		{Number: 9, Patch: pcm},
	}
	payload, err := EncodeBlockDump(NewHeader(1, AllBlockDump, KindSingle, BankA), patches)
	if err != nil {
		t.Fatal(err)
	}
	return payload, patches
}

func TestBlockDumpMessage(t *testing.T) {
	payload, patches := blockFixture(t)

	msg, err := ParseMessage(payload, WithExpectedCount(3), VerifyChecksums())
	if err != nil {
		t.Fatalf("failed to parse block: %v", err)
	}
	if msg.Header.Cardinality() != CardinalityBlock {
		t.Errorf("cardinality %d", msg.Header.Cardinality())
	}
	if got := msg.Map.Patches(); !reflect.DeepEqual(got, []int{0, 9, 127}) {
		t.Fatalf("tone map lists %v", got)
	}

	byNumber := map[int]SinglePatch{}
	for _, np := range patches {
		byNumber[np.Number] = np.Patch
	}
	for i, np := range msg.Patches {
		if np.Number != msg.Map.Patches()[i] {
			t.Errorf("patch %d out of order: %d", i, np.Number)
		}
		if !reflect.DeepEqual(np.Patch, byNumber[np.Number]) {
			t.Errorf("patch %d differs after the round trip", np.Number)
		}
	}
}

func TestBlockDumpErrors(t *testing.T) {
	payload, _ := blockFixture(t)

	if _, err := ParseMessage(payload, WithExpectedCount(2)); !errors.Is(err, ErrToneMapMismatch) {
		t.Errorf("expected ErrToneMapMismatch, got %v", err)
	}
	if _, err := ParseMessage(append(append([]byte(nil), payload...), make([]byte, 10)...)); !errors.Is(err, ErrToneMapMismatch) {
		t.Errorf("extra bytes: expected ErrToneMapMismatch, got %v", err)
	}
	if _, err := ParseMessage(payload[:len(payload)-100]); !errors.Is(err, ErrTruncatedPatch) {
		t.Errorf("short block: expected ErrTruncatedPatch, got %v", err)
	}
	if _, err := ParseMessage(payload[:7+10]); !errors.Is(err, ErrTruncatedPatch) {
		t.Errorf("short tone map: expected ErrTruncatedPatch, got %v", err)
	}

	dup := []NumberedPatch{{Number: 1, Patch: testPatch(false)}, {Number: 1, Patch: testPatch(false)}}
	if _, err := EncodeBlockDump(NewHeader(1, AllBlockDump, KindSingle, BankA), dup); err == nil {
		t.Error("duplicate patch numbers accepted")
	}
}

func TestRequestMessageHasNoPatches(t *testing.T) {
	h := NewHeader(1, OneBlockDumpRequest, KindSingle, BankA)
	h.PatchNumber = 12
	msg, err := ParseMessage(h.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Patches) != 0 || msg.Header.PatchNumber != 12 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestParseMessageTruncatedHeader(t *testing.T) {
	full := NewHeader(1, OneBlockDump, KindSingle, BankA).Bytes()
	for n := 0; n < len(full); n++ {
		if _, err := ParseMessage(full[:n]); !errors.Is(err, ErrTruncatedPatch) {
			t.Errorf("%d header bytes: expected ErrTruncatedPatch, got %v", n, err)
		}
	}
}

func TestEncodeRejectsBadHeader(t *testing.T) {
	p := testPatch(false)
	tests := []struct {
		name string
		h    Header
	}{
		{"channel 0", NewHeader(0, OneBlockDump, KindSingle, BankA)},
		{"channel 17", NewHeader(17, OneBlockDump, KindSingle, BankA)},
		{"unknown bank", NewHeader(1, OneBlockDump, KindSingle, BankID(0x7F))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeOneDump(tt.h, 0, &p); !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("one dump: expected ErrInvalidPatch, got %v", err)
			}
			if _, err := EncodeBlockDump(tt.h, []NumberedPatch{{Number: 0, Patch: p}}); !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("block dump: expected ErrInvalidPatch, got %v", err)
			}
		})
	}
}
