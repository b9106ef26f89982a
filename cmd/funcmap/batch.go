package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"funcmap/internal/config"
)

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	dir := fs.String("dir", "", "directory of ARM64 ELF binaries")
	outDir := fs.String("out", "", "output directory (one subdirectory per binary)")
	cfgPath := fs.String("config", "", "TOML configuration")
	jobs := fs.Int("jobs", 0, "parallelism (0 = GOMAXPROCS)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" || *outDir == "" {
		return fmt.Errorf("--dir and --out are required")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			return err
		}
	}
	if *jobs <= 0 {
		*jobs = cfg.Analysis.Jobs
	}
	if *jobs <= 0 {
		*jobs = runtime.GOMAXPROCS(0)
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	var bins []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		bins = append(bins, filepath.Join(*dir, e.Name()))
	}
	if len(bins) == 0 {
		return fmt.Errorf("no files in %s", *dir)
	}
	fmt.Fprintf(os.Stderr, "analyzing %d binaries with %d workers\n", len(bins), *jobs)

	// One registry per binary: each worker owns its session exclusively,
	// so the single-writer model holds inside every analysis.
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(min(*jobs, len(bins)))
	for _, bin := range bins {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			name := sanitizeFilename(filepath.Base(bin))
			out := filepath.Join(*outDir, name)
			if err := recoverBinary(bin, out, cfg); err != nil {
				// Non-ELF and foreign-arch files are expected in a mixed
				// directory; report and move on.
				fmt.Fprintf(os.Stderr, "skip %s: %v\n", bin, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// sanitizeFilename makes a file name safe as a directory component.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
