package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"k5ktool/bank"
	"k5ktool/internal/syx"
	"k5ktool/k5000"
)

// parseSlot accepts 1..128 or the A001 form and returns the 0-based slot.
func parseSlot(s string) (int, error) {
	t := strings.TrimSpace(s)
	if len(t) == 4 && strings.EqualFold(t[:1], "A") {
		t = t[1:]
	}
	n, err := strconv.Atoi(t)
	if err != nil || n < 1 || n > bank.NumPatches {
		return 0, fmt.Errorf("slot must be in range 1–128 or A001–A128, got %q", s)
	}
	return n - 1, nil
}

// loadPatches decodes every single patch in a file. Bank files are
// recognized by size, .syx files by extension; anything else is read as a
// raw single patch payload with patch number 0.
func loadPatches(cfg Config, path string) ([]k5000.NumberedPatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch {
	case len(data) == bank.FileSize:
		b, err := bank.Parse(data)
		if err != nil {
			return nil, err
		}
		out := make([]k5000.NumberedPatch, 0, len(b.Patches))
		for _, r := range b.Patches {
			p, err := b.SinglePatch(r)
			if err != nil {
				return nil, err
			}
			out = append(out, k5000.NumberedPatch{Number: r.Slot, Patch: p})
		}
		return out, nil

	case strings.EqualFold(filepath.Ext(path), ".syx"):
		payloads, err := syx.Payloads(data)
		if err != nil {
			return nil, err
		}
		var out []k5000.NumberedPatch
		for i, payload := range payloads {
			dumpBytes(payload, fmt.Sprintf("%s message %d", path, i+1))
			msg, err := k5000.ParseMessage(payload, cfg.decodeOptions()...)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i+1, err)
			}
			out = append(out, msg.Patches...)
		}
		return out, nil

	default:
		p, err := k5000.DecodeSinglePatch(data, cfg.decodeOptions()...)
		if err != nil {
			return nil, err
		}
		return []k5000.NumberedPatch{{Number: 0, Patch: p}}, nil
	}
}

func selectPatch(patches []k5000.NumberedPatch, slot int) (k5000.NumberedPatch, error) {
	for _, np := range patches {
		if np.Number == slot {
			return np, nil
		}
	}
	return k5000.NumberedPatch{}, fmt.Errorf("no patch in slot %s", bank.SlotName(slot))
}

// writeOneDump wraps p in a one-patch dump and writes it as a .syx file.
func writeOneDump(cfg Config, path string, slot int, p *k5000.SinglePatch) error {
	payload, err := k5000.EncodeOneDump(cfg.header(k5000.OneBlockDump), slot, p)
	if err != nil {
		return err
	}
	dumpBytes(payload, path)
	return os.WriteFile(path, syx.Wrap(payload), 0o644)
}

func getPatch(cfg Config, args []string) {
	if len(args) < 1 {
		log.Fatalf("usage: get <file> [slot]")
	}
	patches, err := loadPatches(cfg, args[0])
	if err != nil {
		log.Fatalf("failed to read %s: %v", args[0], err)
	}

	var out any = patches
	if len(args) > 1 {
		slot, err := parseSlot(args[1])
		if err != nil {
			log.Fatal(err)
		}
		np, err := selectPatch(patches, slot)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("Patch name", np.Patch.Common.Name)
		out = &np.Patch
	}

	asJson, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal patch to JSON: %v", err)
	}

	fmt.Println(string(asJson))
}

func setPatch(cfg Config, args []string) {
	if len(args) < 1 {
		log.Fatalf("usage: set <out.syx> [slot] < patch.json")
	}
	slot := 0
	if len(args) > 1 {
		var err error
		if slot, err = parseSlot(args[1]); err != nil {
			log.Fatal(err)
		}
	}

	patch := &k5000.SinglePatch{}

	asJson, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("failed to read patch JSON from stdin: %v", err)
	}

	if err := json.Unmarshal(asJson, patch); err != nil {
		log.Fatalf("failed to unmarshal patch JSON: %v", err)
	}

	out := cfg.outputPath(args[0])
	if err := writeOneDump(cfg, out, slot, patch); err != nil {
		log.Fatalf("failed to write patch: %v", err)
	}
	log.Printf("Wrote %q to %s, bank %s, slot %s.\n", patch.Common.Name, out, cfg.bankID(), bank.SlotName(slot))
}
