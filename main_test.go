package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"k5ktool/bank"
	"k5ktool/generator"
	"k5ktool/internal/syx"
	"k5ktool/k5000"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config should fall back to defaults: %v", err)
	}
	if !reflect.DeepEqual(cfg, defaultConfig()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	path := filepath.Join(dir, "k5ktool.yaml")
	if err := os.WriteFile(path, []byte("channel: 5\nbank: f\nstrict_checksums: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Channel != 5 || cfg.bankID() != k5000.BankF || !cfg.StrictChecksums || cfg.Jobs != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.decodeOptions()) != 1 {
		t.Errorf("strict checksums should add a decode option")
	}
	if h := cfg.header(k5000.OneBlockDump); h.Channel != 5 || h.Bank != k5000.BankF {
		t.Errorf("header %s", h)
	}

	for _, bad := range []string{"channel: 17\n", "bank: C\n", "jobs: 0\n", "channel: [\n"} {
		if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadConfig(path); err == nil {
			t.Errorf("config %q should be rejected", bad)
		}
	}
}

func TestOutputPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.OutputDir = "patches"
	if got := cfg.outputPath("a.syx"); got != filepath.Join("patches", "a.syx") {
		t.Errorf("relative path resolved to %q", got)
	}
	abs := filepath.Join(t.TempDir(), "a.syx")
	if got := cfg.outputPath(abs); got != abs {
		t.Errorf("absolute path changed to %q", got)
	}
}

func TestParseSlot(t *testing.T) {
	for in, want := range map[string]int{"1": 0, "128": 127, "A001": 0, "a064": 63} {
		got, err := parseSlot(in)
		if err != nil || got != want {
			t.Errorf("parseSlot(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"0", "129", "B001", "x"} {
		if _, err := parseSlot(in); err == nil {
			t.Errorf("parseSlot(%q) should fail", in)
		}
	}
}

func TestWriteAndLoadOneDump(t *testing.T) {
	cfg := defaultConfig()
	cfg.StrictChecksums = true

	d := &generator.SinglePatchDescriptor{
		Name: "Written",
		Sources: []generator.SourceDescriptor{
			{Wave: k5000.AdditiveWave, HarmonicLevels: "Triangle", HarmonicEnvelope: "padSlow"},
			{Wave: 200},
		},
	}
	p, err := generator.Generate(d, generator.DefaultTemplates())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.syx")
	if err := writeOneDump(cfg, path, 41, &p); err != nil {
		t.Fatal(err)
	}

	patches, err := loadPatches(cfg, path)
	if err != nil {
		t.Fatal(err)
	}
	np, err := selectPatch(patches, 41)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(np.Patch, p) {
		t.Errorf("patch read back differs from the one written")
	}
	if _, err := selectPatch(patches, 0); err == nil {
		t.Errorf("slot 1 should be empty")
	}

	raw := filepath.Join(t.TempDir(), "single.ka1")
	data, err := k5000.EncodeSinglePatch(&p)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(raw, data, 0o644); err != nil {
		t.Fatal(err)
	}
	patches, err = loadPatches(cfg, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 1 || patches[0].Patch.Common.Name != "Written" {
		t.Errorf("raw patch file gave %d patches", len(patches))
	}
}

func TestDescriptorSchema(t *testing.T) {
	schema, err := descriptorSchema()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"sources"`, `"harmonic_levels"`, `"wave"`} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema does not mention %s", want)
		}
	}
}

func TestFileSafe(t *testing.T) {
	for in, want := range map[string]string{"Pad 1": "Pad_1", "": "untitled", "A/B": "A_B"} {
		if got := fileSafe(in); got != want {
			t.Errorf("fileSafe(%q) = %q, want %q", in, got, want)
		}
	}
}

type bankSlot struct {
	slot  int
	patch k5000.SinglePatch
}

func generateTestPatch(t *testing.T, name string, additive bool) k5000.SinglePatch {
	t.Helper()
	d := &generator.SinglePatchDescriptor{
		Name:    name,
		Sources: []generator.SourceDescriptor{{Wave: 10}, {Wave: 300}},
	}
	if additive {
		d.Sources[1] = generator.SourceDescriptor{Wave: k5000.AdditiveWave, HarmonicLevels: "Vibes", HarmonicEnvelope: "pluck"}
	}
	p, err := generator.Generate(d, generator.DefaultTemplates())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// writeTestBank lays the patches out in order from pool offset 0, kits after
// the source blocks, with 16 pad bytes after every record.
func writeTestBank(t *testing.T, path string, slots []bankSlot) {
	t.Helper()
	const base = 0x10000
	buf := make([]byte, bank.FileSize)
	pool := buf[bank.HeaderSize:]
	pointer := func(slot, index int, v int) {
		binary.BigEndian.PutUint32(buf[(slot*(1+bank.NumSources)+index)*4:], uint32(base+v))
	}

	off := 0
	for _, bs := range slots {
		wire, err := k5000.EncodeSinglePatch(&bs.patch)
		if err != nil {
			t.Fatal(err)
		}
		pointer(bs.slot, 0, off)
		w := off + copy(pool[off:], wire[:k5000.CommonSize])
		pos := k5000.CommonSize
		var kits [][]byte
		var kitSources []int
		for i := range bs.patch.Sources {
			w += copy(pool[w:], wire[pos:pos+k5000.SourceSize])
			pos += k5000.SourceSize
			if bs.patch.Sources[i].IsAdditive() {
				kits = append(kits, wire[pos:pos+k5000.AdditiveKitSize])
				kitSources = append(kitSources, i)
				pos += k5000.AdditiveKitSize
			}
		}
		for j, kit := range kits {
			pointer(bs.slot, 1+kitSources[j], w)
			w += copy(pool[w:], kit)
		}
		off = w + 16
	}
	binary.BigEndian.PutUint32(buf[bank.PointerTableSize:], uint32(base+off))

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadBanksKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.bnk")
	second := filepath.Join(dir, "second.bnk")
	writeTestBank(t, first, []bankSlot{
		{0, generateTestPatch(t, "Alpha", true)},
		{5, generateTestPatch(t, "Beta", false)},
	})
	writeTestBank(t, second, []bankSlot{{2, generateTestPatch(t, "Gamma", false)}})

	cfg := defaultConfig()
	cfg.Jobs = 2
	banks, err := readBanks(cfg, []string{second, first, second})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"Gamma"}, {"Alpha", "Beta"}, {"Gamma"}}
	for i, b := range banks {
		var names []string
		for _, r := range b.Patches {
			names = append(names, r.Name)
		}
		if !reflect.DeepEqual(names, want[i]) {
			t.Errorf("bank %d: names %v, want %v", i, names, want[i])
		}
	}

	if _, err := readBanks(cfg, []string{first, filepath.Join(dir, "missing.bnk")}); err == nil {
		t.Error("missing bank file should fail")
	}
}

func TestConvertBank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "first.bnk")
	patches := map[int]k5000.SinglePatch{
		0: generateTestPatch(t, "Alpha", true),
		5: generateTestPatch(t, "Be ta", false),
	}
	writeTestBank(t, path, []bankSlot{{0, patches[0]}, {5, patches[5]}})

	cfg := defaultConfig()
	cfg.Channel = 3
	cfg.Bank = "D"
	b, err := readBank(path)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}
	n, err := convertBank(cfg, b, out, "first")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("converted %d patches, want 2", n)
	}

	files, err := filepath.Glob(filepath.Join(out, "*.ka1"))
	if err != nil {
		t.Fatal(err)
	}
	wantFiles := map[string]int{"first_A001_Alpha.ka1": 0, "first_A006_Be_ta.ka1": 5}
	if len(files) != len(wantFiles) {
		t.Fatalf("got files %v", files)
	}
	for _, f := range files {
		slot, ok := wantFiles[filepath.Base(f)]
		if !ok {
			t.Errorf("unexpected file %s", f)
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		p, err := k5000.DecodeSinglePatch(data, k5000.VerifyChecksums())
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if !reflect.DeepEqual(p, patches[slot]) {
			t.Errorf("%s differs from the patch in slot %d", f, slot+1)
		}
	}

	data, err := os.ReadFile(filepath.Join(out, "first.syx"))
	if err != nil {
		t.Fatal(err)
	}
	payloads, err := syx.Payloads(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 1 {
		t.Fatalf("block dump file holds %d messages", len(payloads))
	}
	msg, err := k5000.ParseMessage(payloads[0], k5000.WithExpectedCount(2), k5000.VerifyChecksums())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Header.Channel != 3 || msg.Header.Bank != k5000.BankD || msg.Header.Function != k5000.AllBlockDump {
		t.Errorf("unexpected header %s", msg.Header)
	}
	for _, np := range msg.Patches {
		if !reflect.DeepEqual(np.Patch, patches[np.Number]) {
			t.Errorf("block dump patch %d differs", np.Number+1)
		}
	}
}

func TestConvertBanks(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.bnk")
	second := filepath.Join(dir, "second.bnk")
	writeTestBank(t, first, []bankSlot{{0, generateTestPatch(t, "Alpha", true)}})
	writeTestBank(t, second, []bankSlot{{1, generateTestPatch(t, "Gamma", false)}})

	out := filepath.Join(dir, "out")
	convertBanks(defaultConfig(), []string{out, first, second})

	for _, name := range []string{"first.syx", "second.syx", "first_A001_Alpha.ka1", "second_A002_Gamma.ka1"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestWriteOneDumpRejectsBadPatch(t *testing.T) {
	p := generateTestPatch(t, "Bad", false)
	p.Common.Volume = 0xF7
	path := filepath.Join(t.TempDir(), "bad.syx")
	if err := writeOneDump(defaultConfig(), path, 0, &p); err == nil {
		t.Fatal("patch with volume 247 was written")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("no file should be written, stat gave %v", err)
	}
}
