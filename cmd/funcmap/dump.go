package main

import (
	"flag"
	"fmt"

	"github.com/fatih/color"

	"funcmap/internal/session"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	addrColor   = color.New(color.FgYellow)
	labelColor  = color.New(color.FgGreen)
)

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	sessionPath := fs.String("session", "", "session snapshot (session.mp)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionPath == "" {
		return fmt.Errorf("--session is required")
	}

	reg, err := session.Load(*sessionPath)
	if err != nil {
		return err
	}

	for _, f := range reg.Functions() {
		if f.Name != "" {
			headerColor.Printf("Function %s ", f.Name)
		} else {
			headerColor.Print("Function ")
		}
		addrColor.Printf("[0x%08x]\n", f.Entry())

		labelColor.Print("  blocks:    ")
		fmt.Println(f.DebugString())

		if sites := f.CallSites(); len(sites) > 0 {
			labelColor.Print("  calls:     ")
			for i, site := range sites {
				target, _ := f.CallTarget(site)
				retn, _ := f.CallReturn(site)
				if i > 0 {
					fmt.Print(", ")
				}
				fmt.Printf("0x%x -> 0x%x (ret 0x%x)", site, target, retn)
			}
			fmt.Println()
		}
		if f.HasReturn() {
			labelColor.Print("  returns:   ")
			for i, rs := range f.Endpoints() {
				if i > 0 {
					fmt.Print(", ")
				}
				fmt.Printf("0x%x", rs)
			}
			fmt.Println()
		}
		regs, stack := f.Arguments()
		if len(regs) > 0 || len(stack) > 0 {
			labelColor.Print("  arguments: ")
			fmt.Printf("reg %v, stack %v\n", regs, stack)
		}
		if f.SPDelta() != 0 || f.BPOnStack() || f.RetAddrOnStack() {
			labelColor.Print("  frame:     ")
			fmt.Printf("sp delta %d, bp on stack %v, retaddr on stack %v\n",
				f.SPDelta(), f.BPOnStack(), f.RetAddrOnStack())
		}
	}

	fmt.Printf("\n%d functions, call graph: %d nodes, %d edges\n",
		reg.Len(), reg.CallGraph().NumNodes(), reg.CallGraph().NumEdges())
	return nil
}
