// Package registry is the mutable record of functions recovered from a
// binary under analysis. A control-flow-recovery driver feeds it discrete
// events (block, edge, call, return) as it explores disassembled code; each
// function accumulates an intra-procedural transition graph, call and
// return sites, and calling-convention metadata, while the registry keeps
// the inter-procedural call graph across functions.
//
// The registry is a passive ledger: it does not validate that addresses
// are legal or reachable, every mutator is total and idempotent, and
// absence is signaled with ok-bool lookups, never errors. One writer is
// assumed; a registry belongs to exactly one analysis session.
package registry

import (
	"fmt"
	"strings"

	"funcmap/internal/flow"
)

// CallSite pairs a call's target with the address the recovery driver
// expects control to resume at after the callee returns. The return
// address is inferred from calling convention, not ground truth.
type CallSite struct {
	Target uint64
	Return uint64
}

// Function is the per-function ledger. Its entry address is its identity
// and never changes; everything else accumulates as exploration proceeds.
type Function struct {
	entry uint64

	// Name is an optional display label with no identity role.
	Name string

	graph     *flow.Graph // blocks are the graph's node set
	retSites  map[uint64]struct{}
	retOrder  []uint64
	callSites map[uint64]CallSite
	siteOrder []uint64
	retToSite map[uint64]uint64 // hypothetical return addr -> call-site block

	argRegs  []int64
	argStack []int64

	// Frame metadata, set by a downstream variable-recovery pass and
	// stored passively. Last write wins.
	bpOnStack      bool
	retAddrOnStack bool
	spDelta        int64
}

// NewFunction creates an empty record for the given entry address.
func NewFunction(entry uint64) *Function {
	return &Function{
		entry:     entry,
		graph:     flow.NewGraph(),
		retSites:  make(map[uint64]struct{}),
		callSites: make(map[uint64]CallSite),
		retToSite: make(map[uint64]uint64),
	}
}

// Entry returns the function's entry address.
func (f *Function) Entry() uint64 { return f.entry }

// AddBlock registers a basic block as part of this function.
func (f *Function) AddBlock(addr uint64) {
	f.graph.AddNode(addr)
}

// TransitTo registers ordinary intra-function control flow from one block
// to another. Both endpoints become blocks of this function.
func (f *Function) TransitTo(from, to uint64) {
	f.graph.AddEdge(from, to, flow.Transition)
}

// ReturnFromCall registers control resuming at a block after a call made
// by this function returns.
func (f *Function) ReturnFromCall(firstBlock, to uint64) {
	f.graph.AddEdge(firstBlock, to, flow.ReturnFromCall)
}

// AddReturnSite registers a block ending in a return from this function.
func (f *Function) AddReturnSite(addr uint64) {
	if _, ok := f.retSites[addr]; ok {
		return
	}
	f.retSites[addr] = struct{}{}
	f.retOrder = append(f.retOrder, addr)
}

// AddCallSite registers a block that ends in a call, its target, and the
// hypothetical return address. A prior entry for the same call site is
// overwritten, and the reverse return-to-site index is updated in the
// same step so the two mappings never diverge.
func (f *Function) AddCallSite(site, target, retn uint64) {
	prev, existed := f.callSites[site]
	if existed {
		if prev.Target == target && prev.Return == retn {
			return
		}
		delete(f.retToSite, prev.Return)
	} else {
		f.siteOrder = append(f.siteOrder, site)
	}
	f.callSites[site] = CallSite{Target: target, Return: retn}
	f.retToSite[retn] = site
}

// CallTarget returns the target of the call made at the given call-site
// block, if known.
func (f *Function) CallTarget(site uint64) (uint64, bool) {
	cs, ok := f.callSites[site]
	return cs.Target, ok
}

// CallReturn returns the hypothetical return address of the call made at
// the given call-site block, if known.
func (f *Function) CallReturn(site uint64) (uint64, bool) {
	cs, ok := f.callSites[site]
	return cs.Return, ok
}

// CallSiteFor maps a hypothetical return address back to the call-site
// block that produced it.
func (f *Function) CallSiteFor(retn uint64) (uint64, bool) {
	site, ok := f.retToSite[retn]
	return site, ok
}

// CallSites returns every call-site block address in insertion order.
func (f *Function) CallSites() []uint64 {
	out := make([]uint64, len(f.siteOrder))
	copy(out, f.siteOrder)
	return out
}

// AddArgumentRegister records a register offset used to pass an argument.
// Duplicates are ignored; insertion order is preserved.
func (f *Function) AddArgumentRegister(offset int64) {
	for _, r := range f.argRegs {
		if r == offset {
			return
		}
	}
	f.argRegs = append(f.argRegs, offset)
}

// AddArgumentStackVariable records a stack offset used to pass an
// argument. Duplicates are ignored; insertion order is preserved.
func (f *Function) AddArgumentStackVariable(offset int64) {
	for _, s := range f.argStack {
		if s == offset {
			return
		}
	}
	f.argStack = append(f.argStack, offset)
}

// Arguments returns the recovered argument register offsets and stack
// offsets, each in insertion order.
func (f *Function) Arguments() (regs, stack []int64) {
	regs = make([]int64, len(f.argRegs))
	copy(regs, f.argRegs)
	stack = make([]int64, len(f.argStack))
	copy(stack, f.argStack)
	return regs, stack
}

// BPOnStack reports whether the base pointer is saved on the stack frame.
func (f *Function) BPOnStack() bool { return f.bpOnStack }

// SetBPOnStack records whether the base pointer is saved on the stack.
func (f *Function) SetBPOnStack(v bool) { f.bpOnStack = v }

// RetAddrOnStack reports whether the return address lives on the stack.
func (f *Function) RetAddrOnStack() bool { return f.retAddrOnStack }

// SetRetAddrOnStack records whether the return address lives on the stack.
func (f *Function) SetRetAddrOnStack(v bool) { f.retAddrOnStack = v }

// SPDelta returns the net stack-pointer adjustment across the function.
func (f *Function) SPDelta() int64 { return f.spDelta }

// SetSPDelta records the net stack-pointer adjustment.
func (f *Function) SetSPDelta(v int64) { f.spDelta = v }

// HasReturn reports whether any return site has been recorded.
func (f *Function) HasReturn() bool { return len(f.retSites) > 0 }

// Endpoints returns the return-site blocks in insertion order.
func (f *Function) Endpoints() []uint64 {
	out := make([]uint64, len(f.retOrder))
	copy(out, f.retOrder)
	return out
}

// BasicBlocks returns every block attributed to this function, in the
// order they were first seen. Blocks referenced only as edge endpoints
// are included.
func (f *Function) BasicBlocks() []uint64 {
	return f.graph.Nodes()
}

// Graph returns the transition graph. Callers must treat it as read-only;
// all mutation goes through the Function methods.
func (f *Function) Graph() *flow.Graph { return f.graph }

// String returns a one-look summary of the record.
func (f *Function) String() string {
	var b strings.Builder
	if f.Name == "" {
		fmt.Fprintf(&b, "Function [0x%08x]\n", f.entry)
	} else {
		fmt.Fprintf(&b, "Function %s [0x%08x]\n", f.Name, f.entry)
	}
	fmt.Fprintf(&b, "SP delta: %d\n", f.spDelta)
	fmt.Fprintf(&b, "Has return: %v\n", f.HasReturn())
	fmt.Fprintf(&b, "Arguments: reg: %v, stack: %v\n", f.argRegs, f.argStack)
	fmt.Fprintf(&b, "Blocks: %s", f.DebugString())
	return b.String()
}

// DebugString returns the block list as a bracketed address list.
func (f *Function) DebugString() string {
	nodes := f.graph.Nodes()
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = fmt.Sprintf("0x%08x", n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
