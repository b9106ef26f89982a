package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "recover":
		err = cmdRecover(os.Args[2:])
	case "replay":
		err = cmdReplay(os.Args[2:])
	case "dump":
		err = cmdDump(os.Args[2:])
	case "render":
		err = cmdRender(os.Args[2:])
	case "batch":
		err = cmdBatch(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `funcmap — function-boundary and control-flow recovery for ARM64 binaries

Usage:
  funcmap recover --bin <path> --out <dir>      Recover functions from an ELF binary
  funcmap replay  --trace <file>                Rebuild a registry from an event trace
  funcmap dump    --session <file>              Print a saved session
  funcmap render  --session <file> --out <dir>  Per-function CFG DOTs + call graph DOT
  funcmap batch   --dir <dir> --out <dir>       Recover every binary in a directory

Flags:
  --bin <path>       Path to an ARM64 ELF binary
  --out <dir>        Output directory
  --session <file>   Session snapshot (session.mp)
  --trace <file>     Recovery event trace (events.jsonl)
  --config <file>    TOML configuration
  --max-funcs <n>    Cap on explored functions (0 = all)
  --jobs <n>         Batch parallelism (0 = GOMAXPROCS)
  --svg              Also render SVGs via graphviz dot
`)
}
