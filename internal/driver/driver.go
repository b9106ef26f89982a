// Package driver is the control-flow-recovery driver: it walks a decoded
// ARM64 code region by recursive descent and reports what it finds —
// blocks, intra-function transitions, calls, and returns — as events into
// a function registry. The driver decides exploration order; the registry
// is the passive ledger it writes to. Revisiting code is harmless because
// every registry mutation is idempotent.
package driver

import (
	"slices"

	"funcmap/internal/disasm"
)

// Sink receives recovery events. *registry.Registry is the canonical
// implementation; wrappers may record or filter the stream.
type Sink interface {
	AddBlock(fn, addr uint64)
	CallTo(fn, from, to, retn uint64)
	ReturnFrom(fn, from uint64)
	TransitTo(fn, from, to uint64)
	ReturnFromCall(fn, firstBlock, to uint64)
}

// Options controls exploration.
type Options struct {
	// MaxFuncs caps how many functions are explored; 0 = unlimited.
	MaxFuncs int
}

// Explore performs recursive-descent recovery over a code region.
// Exploration starts from the given entry addresses; every direct call
// target found inside the region seeds a further function. Addresses
// outside the region are recorded where the core model wants them (call
// targets) but never walked.
func Explore(insts []disasm.Inst, entries []uint64, sink Sink, opts Options) {
	if len(insts) == 0 {
		return
	}

	addrToIdx := make(map[uint64]int, len(insts))
	for i, inst := range insts {
		addrToIdx[inst.Addr] = i
	}

	e := &explorer{insts: insts, addrToIdx: addrToIdx, sink: sink}

	seen := make(map[uint64]bool)
	work := append([]uint64(nil), entries...)
	explored := 0
	for len(work) > 0 {
		entry := work[0]
		work = work[1:]
		if seen[entry] {
			continue
		}
		seen[entry] = true
		if opts.MaxFuncs > 0 && explored >= opts.MaxFuncs {
			break
		}
		if _, ok := addrToIdx[entry]; !ok {
			continue
		}
		explored++
		callees := e.exploreFunction(entry)
		work = append(work, callees...)
	}
}

type explorer struct {
	insts     []disasm.Inst
	addrToIdx map[uint64]int
	sink      Sink
}

// exploreFunction recovers one function in two passes: first find every
// block leader reachable from the entry, then partition
// code at leaders and emit one event batch per block. Returns the direct
// call targets found, as seeds for further functions.
func (e *explorer) exploreFunction(entry uint64) []uint64 {
	leaders := e.findLeaders(entry)

	sorted := make([]uint64, 0, len(leaders))
	for l := range leaders {
		sorted = append(sorted, l)
	}
	slices.Sort(sorted)

	var callees []uint64
	for _, leader := range sorted {
		callees = append(callees, e.emitBlock(entry, leader, leaders)...)
	}
	return callees
}

// findLeaders walks all paths from entry and collects block leader
// addresses: the entry itself, branch targets, and resumption points
// after calls and conditional branches.
func (e *explorer) findLeaders(entry uint64) map[uint64]struct{} {
	leaders := make(map[uint64]struct{})
	work := []uint64{entry}

	for len(work) > 0 {
		addr := work[0]
		work = work[1:]
		if _, ok := leaders[addr]; ok {
			continue
		}
		idx, ok := e.addrToIdx[addr]
		if !ok {
			continue
		}
		leaders[addr] = struct{}{}

		for i := idx; i < len(e.insts); i++ {
			inst := e.insts[i]

			if ci := disasm.DecodeCall(inst.Raw, inst.Addr); ci != nil {
				// Control resumes after the callee returns.
				work = append(work, inst.Addr+4)
				break
			}

			bi := disasm.DecodeBranch(inst.Raw, inst.Addr)
			if bi == nil {
				continue
			}
			if bi.IsRet {
				break
			}
			if _, in := e.addrToIdx[bi.Target]; in {
				work = append(work, bi.Target)
			}
			if bi.Cond {
				work = append(work, inst.Addr+4)
			}
			break
		}
	}
	return leaders
}

// emitBlock walks the block starting at leader and reports its events:
// transitions to successor blocks, call sites with hypothetical return
// addresses, and return sites. Returns direct call targets found.
func (e *explorer) emitBlock(entry, leader uint64, leaders map[uint64]struct{}) []uint64 {
	var callees []uint64

	e.sink.AddBlock(entry, leader)

	for i := e.addrToIdx[leader]; i < len(e.insts); i++ {
		inst := e.insts[i]

		// Fallthrough into the next block.
		if inst.Addr != leader {
			if _, isLeader := leaders[inst.Addr]; isLeader {
				e.sink.TransitTo(entry, leader, inst.Addr)
				return callees
			}
		}

		if ci := disasm.DecodeCall(inst.Raw, inst.Addr); ci != nil {
			retn := inst.Addr + 4
			if !ci.Indirect {
				e.sink.CallTo(entry, leader, ci.Target, retn)
				callees = append(callees, ci.Target)
			}
			// Resumption edge: the callee comes back to retn.
			e.sink.ReturnFromCall(entry, leader, retn)
			return callees
		}

		bi := disasm.DecodeBranch(inst.Raw, inst.Addr)
		if bi == nil {
			continue
		}
		if bi.IsRet {
			e.sink.ReturnFrom(entry, leader)
			return callees
		}
		if _, in := e.addrToIdx[bi.Target]; in {
			e.sink.TransitTo(entry, leader, bi.Target)
		}
		if bi.Cond {
			e.sink.TransitTo(entry, leader, inst.Addr+4)
		}
		return callees
	}
	return callees
}
