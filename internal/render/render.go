// Package render draws registry state as DOT via the lattice library.
// The registry supplies graph data only; everything presentational —
// lattice conversion, layout, file naming — stays here.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/zboralski/lattice"
	latrender "github.com/zboralski/lattice/render"

	"funcmap/internal/flow"
	"funcmap/internal/registry"
)

// label names a call-graph node: the function's display name when the
// registry has one, else a sub_<hexaddr> placeholder.
func label(reg *registry.Registry, addr uint64) string {
	if f, ok := reg.Lookup(addr); ok && f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("sub_%x", addr)
}

// CallGraphDOT renders the inter-procedural call graph as DOT.
func CallGraphDOT(reg *registry.Registry, title string) string {
	cg := reg.CallGraph()
	g := &lattice.Graph{}
	for _, n := range cg.Nodes() {
		g.Nodes = append(g.Nodes, label(reg, n))
	}
	for _, arc := range cg.Edges() {
		g.Edges = append(g.Edges, lattice.Edge{
			Caller: label(reg, arc.From),
			Callee: label(reg, arc.To),
		})
	}
	g.Dedup()
	return latrender.DOT(g, title)
}

// BuildFuncCFG converts one function's transition graph to a lattice
// FuncCFG. Blocks are ordered by address; return-from-call successors
// carry the "R" edge label so they stay distinguishable from branches.
func BuildFuncCFG(f *registry.Function) *lattice.FuncCFG {
	blocks := f.BasicBlocks()
	slices.Sort(blocks)

	idOf := make(map[uint64]int, len(blocks))
	for i, b := range blocks {
		idOf[b] = i
	}

	retSites := make(map[uint64]bool)
	for _, rs := range f.Endpoints() {
		retSites[rs] = true
	}

	name := f.Name
	if name == "" {
		name = fmt.Sprintf("sub_%x", f.Entry())
	}

	g := f.Graph()
	lcfg := &lattice.FuncCFG{Name: name}
	for i, addr := range blocks {
		lb := &lattice.BasicBlock{
			ID:    i,
			Start: i,
			End:   i + 1,
			Term:  retSites[addr],
		}
		succs := g.Successors(addr)
		slices.Sort(succs)
		for _, to := range succs {
			cond := ""
			if k, _ := g.Kind(addr, to); k == flow.ReturnFromCall {
				cond = "R"
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: idOf[to], Cond: cond})
		}
		if target, ok := f.CallTarget(addr); ok {
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: i,
				Callee: fmt.Sprintf("0x%x", target),
			})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// FuncCFGDOT renders one function's transition graph as DOT.
func FuncCFGDOT(f *registry.Function) string {
	lcfg := BuildFuncCFG(f)
	g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
	return latrender.DOTCFG(g, lcfg.Name)
}

// DOTRenderer writes one DOT file per function into Dir, named by entry
// address. It implements registry.Renderer.
type DOTRenderer struct {
	Dir string
}

// FuncFilename returns the deterministic artifact name for a function.
func FuncFilename(entry uint64) string {
	return fmt.Sprintf("function_0x%08x.dot", entry)
}

// RenderFunction writes the function's transition graph DOT to disk.
func (r *DOTRenderer) RenderFunction(f *registry.Function) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("render: mkdir: %w", err)
	}
	path := filepath.Join(r.Dir, FuncFilename(f.Entry()))
	dot := FuncCFGDOT(f)
	if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return nil
}
