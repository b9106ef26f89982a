package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"funcmap/internal/config"
	"funcmap/internal/disasm"
	"funcmap/internal/driver"
	"funcmap/internal/elfx"
	"funcmap/internal/registry"
	"funcmap/internal/session"
	"funcmap/internal/trace"
)

func cmdRecover(args []string) error {
	fs := flag.NewFlagSet("recover", flag.ExitOnError)
	bin := fs.String("bin", "", "path to an ARM64 ELF binary")
	outDir := fs.String("out", "", "output directory")
	cfgPath := fs.String("config", "", "TOML configuration")
	maxFuncs := fs.Int("max-funcs", 0, "cap on explored functions (0 = all)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bin == "" || *outDir == "" {
		return fmt.Errorf("--bin and --out are required")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			return err
		}
	}
	if *maxFuncs > 0 {
		cfg.Analysis.MaxFuncs = *maxFuncs
	}

	return recoverBinary(*bin, *outDir, cfg)
}

// recoverBinary runs the full pipeline for one binary: load, disassemble,
// explore, then write the trace, session snapshot, and textual dump.
func recoverBinary(bin, outDir string, cfg config.Config) error {
	ef, err := elfx.Open(bin)
	if err != nil {
		return err
	}
	defer ef.Close()

	code, base, err := ef.Text()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "code region: %d bytes at VA 0x%x\n", len(code), base)

	insts := disasm.Disassemble(code, disasm.Options{BaseAddr: base})

	// Entry seeds: function symbols when present, else the text base,
	// plus anything from the config.
	syms := ef.FuncSymbols()
	names := make(map[uint64]string, len(syms))
	var entries []uint64
	for _, s := range syms {
		entries = append(entries, s.Addr)
		names[s.Addr] = s.Name
	}
	if len(entries) == 0 {
		entries = append(entries, base)
	}
	extra, err := parseEntries(cfg.Analysis.Entries)
	if err != nil {
		return err
	}
	entries = append(entries, extra...)
	fmt.Fprintf(os.Stderr, "seeding %d entry points (%d from symbols)\n",
		len(entries), len(syms))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir out: %w", err)
	}

	// Explore, teeing every event into the trace file.
	reg := registry.New()
	tf, err := os.Create(filepath.Join(outDir, "events.jsonl"))
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	rec := trace.NewRecorder(reg, tf)
	driver.Explore(insts, entries, rec, driver.Options{MaxFuncs: cfg.Analysis.MaxFuncs})
	if err := tf.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}
	if rec.Err() != nil {
		return rec.Err()
	}

	// Attach symbol names to whatever exploration recovered.
	named := 0
	for _, f := range reg.Functions() {
		if name, ok := names[f.Entry()]; ok && name != "" {
			f.Name = name
			named++
		}
	}

	if err := session.Save(filepath.Join(outDir, "session.mp"), reg); err != nil {
		return err
	}
	dumpPath := filepath.Join(outDir, "functions.txt")
	if err := os.WriteFile(dumpPath, []byte(reg.DebugString()), 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	fmt.Fprintf(os.Stderr, "recovered %d functions (%d named), call graph: %d nodes, %d edges\n",
		reg.Len(), named, reg.CallGraph().NumNodes(), reg.CallGraph().NumEdges())
	return nil
}

// parseEntries parses hex entry addresses from the config.
func parseEntries(raw []string) ([]uint64, error) {
	var out []uint64
	for _, s := range raw {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad entry address %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
