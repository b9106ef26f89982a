package main

import (
	"flag"
	"fmt"
	"os"

	"funcmap/internal/registry"
	"funcmap/internal/session"
	"funcmap/internal/trace"
)

func cmdReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	tracePath := fs.String("trace", "", "recovery event trace (events.jsonl)")
	sessionOut := fs.String("session", "", "optional: save the rebuilt registry here")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tracePath == "" {
		return fmt.Errorf("--trace is required")
	}

	f, err := os.Open(*tracePath)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	events, err := trace.Read(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "read %d events\n", len(events))

	reg := registry.New()
	if err := trace.Apply(events, reg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "rebuilt %d functions, call graph: %d edges\n",
		reg.Len(), reg.CallGraph().NumEdges())

	if *sessionOut != "" {
		if err := session.Save(*sessionOut, reg); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *sessionOut)
	}

	fmt.Print(reg.DebugString())
	return nil
}
