package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"k5ktool/bank"
	"k5ktool/generator"
	"k5ktool/internal/syx"
	"k5ktool/k5000"
)

const usage = `usage: k5ktool <command> [arguments]

  list <bank>...               list the patches of bank files
  dump <bank> <slot>           hex dump of one bank record
  get <file> [slot]            print patches as JSON
  set <out.syx> [slot]         write a patch read as JSON from stdin
  generate <descriptor> <out.syx> [slot]
  convert <outdir> <bank>...   split banks into .ka1 patch files and a block dump
  sysex <file.syx>             list the messages of a SysEx file
  mcp                          serve the tools over MCP on stdio`

func main() {
	cfg, err := loadConfig(configPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if len(os.Args) > 1 {
		args := os.Args[2:]
		switch os.Args[1] {
		case "list":
			listBanks(cfg, args)
			return
		case "dump":
			dumpRecord(args)
			return
		case "get":
			getPatch(cfg, args)
			return
		case "set":
			setPatch(cfg, args)
			return
		case "generate":
			generatePatch(cfg, args)
			return
		case "convert":
			convertBanks(cfg, args)
			return
		case "sysex":
			listSysEx(cfg, args)
			return

		case "mcp":
			runMCP(cfg)
			return

		default:
			log.Fatalf("unknown command %q\n%s", os.Args[1], usage)
		}
	}
	log.Println("exiting: no command specified")
	fmt.Fprintln(os.Stderr, usage)
}

func readBank(path string) (*bank.Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := bank.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// readBanks parses the files concurrently. Results keep argument order.
func readBanks(cfg Config, paths []string) ([]*bank.Bank, error) {
	banks := make([]*bank.Bank, len(paths))
	var g errgroup.Group
	g.SetLimit(cfg.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			b, err := readBank(path)
			if err != nil {
				return err
			}
			banks[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return banks, nil
}

func formatRecord(r bank.PatchRecord) string {
	var kits []string
	for i, add := range r.Additive[:r.SourceCount] {
		if add {
			kits = append(kits, fmt.Sprint(i+1))
		}
	}
	additive := "-"
	if len(kits) > 0 {
		additive = strings.Join(kits, ",")
	}
	return fmt.Sprintf("%s  %-8s  sources %d  ADD %-11s  offset 0x%05X  size %5d  padding %d",
		bank.SlotName(r.Slot), r.Name, r.SourceCount, additive, r.PoolOffset, r.ByteSize, r.Padding)
}

func listBanks(cfg Config, args []string) {
	if len(args) < 1 {
		log.Fatalf("usage: list <bank>...")
	}
	banks, err := readBanks(cfg, args)
	if err != nil {
		log.Fatalf("failed to read bank: %v", err)
	}
	for i, b := range banks {
		fmt.Printf("%s: %d patches, base 0x%08X, %d bytes used, %d free\n",
			args[i], len(b.Patches), b.Base, b.UsedBytes(), b.FreeBytes())
		for _, r := range b.Patches {
			fmt.Println(formatRecord(r))
		}
	}
}

func dumpRecord(args []string) {
	if len(args) < 2 {
		log.Fatalf("usage: dump <bank> <slot>")
	}
	b, err := readBank(args[0])
	if err != nil {
		log.Fatalf("failed to read bank: %v", err)
	}
	slot, err := parseSlot(args[1])
	if err != nil {
		log.Fatal(err)
	}
	r, ok := b.BySlot(slot)
	if !ok {
		log.Fatalf("slot %s is empty", bank.SlotName(slot))
	}
	fmt.Println(formatRecord(r))
	fmt.Print(hex.Dump(b.RecordBytes(r)))
}

func generatePatch(cfg Config, args []string) {
	if len(args) < 2 {
		log.Fatalf("usage: generate <descriptor> <out.syx> [slot]")
	}
	slot := 0
	if len(args) > 2 {
		var err error
		if slot, err = parseSlot(args[2]); err != nil {
			log.Fatal(err)
		}
	}

	d, err := generator.LoadDescriptor(args[0])
	if err != nil {
		log.Fatalf("failed to read descriptor: %v", err)
	}
	ts, err := cfg.templates()
	if err != nil {
		log.Fatalf("failed to load templates: %v", err)
	}
	p, err := generator.Generate(d, ts)
	if err != nil {
		log.Fatalf("failed to generate patch: %v", err)
	}
	out := cfg.outputPath(args[1])
	if err := writeOneDump(cfg, out, slot, &p); err != nil {
		log.Fatalf("failed to write patch: %v", err)
	}
	log.Printf("Generated %q with %d sources (%d additive) into %s.\n", p.Common.Name, len(p.Sources), p.AdditiveCount(), out)
}

func fileSafe(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, name)
}

// convertBank writes one .ka1 file per used slot and a block dump of the
// whole bank into dir.
func convertBank(cfg Config, b *bank.Bank, dir, stem string) (int, error) {
	for _, r := range b.Patches {
		p, err := b.SinglePatch(r)
		if err != nil {
			return 0, err
		}
		data, err := k5000.EncodeSinglePatch(&p)
		if err != nil {
			return 0, fmt.Errorf("slot %s: %w", bank.SlotName(r.Slot), err)
		}
		name := fmt.Sprintf("%s_%s_%s.ka1", stem, bank.SlotName(r.Slot), fileSafe(r.Name))
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return 0, err
		}
	}

	payload, err := b.BlockDump(uint8(cfg.Channel), cfg.bankID())
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".syx"), syx.Wrap(payload), 0o644); err != nil {
		return 0, err
	}
	return len(b.Patches), nil
}

func convertBanks(cfg Config, args []string) {
	if len(args) < 2 {
		log.Fatalf("usage: convert <outdir> <bank>...")
	}
	dir := args[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("failed to create %s: %v", dir, err)
	}

	paths := args[1:]
	counts := make([]int, len(paths))
	var g errgroup.Group
	g.SetLimit(cfg.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			b, err := readBank(path)
			if err != nil {
				return err
			}
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			n, err := convertBank(cfg, b, dir, stem)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("failed to convert: %v", err)
	}
	for i, path := range paths {
		log.Printf("Converted %d patches from %s into %s.\n", counts[i], path, dir)
	}
}

// listSysEx prints every message of a .syx file. A message that does not
// decode is reported and skipped.
func listSysEx(cfg Config, args []string) {
	if len(args) < 1 {
		log.Fatalf("usage: sysex <file.syx>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("failed to read %s: %v", args[0], err)
	}
	payloads, err := syx.Payloads(data)
	if err != nil {
		log.Fatalf("failed to split %s: %v", args[0], err)
	}

	for i, payload := range payloads {
		dumpBytes(payload, fmt.Sprintf("message %d", i+1))
		msg, err := k5000.ParseMessage(payload, cfg.decodeOptions()...)
		if err != nil {
			fmt.Printf("%d: %d bytes, skipped: %v\n", i+1, len(payload), err)
			continue
		}
		fmt.Printf("%d: %s\n", i+1, msg.Header)
		for _, np := range msg.Patches {
			fmt.Printf("   %s  %-8s  sources %d  ADD %d\n",
				bank.SlotName(np.Number), np.Patch.Common.Name, len(np.Patch.Sources), np.Patch.AdditiveCount())
		}
		if len(msg.Body) > 0 {
			fmt.Printf("   %d body bytes not decoded\n", len(msg.Body))
		}
	}
}
