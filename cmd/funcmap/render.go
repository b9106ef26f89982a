package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"funcmap/internal/config"
	"funcmap/internal/render"
	"funcmap/internal/session"
)

func cmdRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	sessionPath := fs.String("session", "", "session snapshot (session.mp)")
	outDir := fs.String("out", "", "output directory")
	cfgPath := fs.String("config", "", "TOML configuration")
	title := fs.String("title", "", "call graph title")
	svg := fs.Bool("svg", false, "also render SVGs via graphviz dot")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionPath == "" {
		return fmt.Errorf("--session is required")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			return err
		}
	}
	if *outDir == "" {
		*outDir = cfg.Render.Dir
	}
	if *title == "" {
		*title = cfg.Render.Title
	}
	if cfg.Render.SVG {
		*svg = true
	}

	reg, err := session.Load(*sessionPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir out: %w", err)
	}

	// One artifact per function, named by entry address.
	if err := reg.DebugDraw(&render.DOTRenderer{Dir: *outDir}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d function CFG DOTs to %s\n", reg.Len(), *outDir)

	dot := render.CallGraphDOT(reg, *title)
	cgPath := filepath.Join(*outDir, "callgraph.dot")
	if err := os.WriteFile(cgPath, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("write callgraph.dot: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", cgPath, len(dot))

	if *svg {
		entries, err := os.ReadDir(*outDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), ".dot") {
				continue
			}
			dotPath := filepath.Join(*outDir, e.Name())
			svgPath := strings.TrimSuffix(dotPath, ".dot") + ".svg"
			if err := runDot(dotPath, svgPath, "svg"); err != nil {
				fmt.Fprintf(os.Stderr, "warning: SVG failed for %s: %v\n", e.Name(), err)
			}
		}
	}
	return nil
}

// runDot invokes graphviz dot to produce the given format.
func runDot(dotPath, outPath, format string) error {
	cmd := exec.Command("dot", "-T"+format, "-o", outPath, dotPath)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
