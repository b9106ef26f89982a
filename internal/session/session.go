// Package session persists a whole analysis session to disk and restores
// it. The registry itself is in-memory state for one session; persistence
// lives here, outside the core, as msgpack snapshots written atomically
// (temp file + rename). Load rebuilds the registry through its public
// event operations, so a snapshot round-trips exactly.
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"funcmap/internal/flow"
	"funcmap/internal/registry"
)

// Increment when the payload format changes.
const schemaVersion uint16 = 1

// edgePayload is one typed transition-graph edge.
type edgePayload struct {
	From uint64
	To   uint64
	Kind int8
}

// callSitePayload is one call site of a function.
type callSitePayload struct {
	Site   uint64
	Target uint64
	Return uint64
}

// funcPayload snapshots one function record.
type funcPayload struct {
	Entry       uint64
	Name        string
	Blocks      []uint64
	Edges       []edgePayload
	ReturnSites []uint64
	CallSites   []callSitePayload
	ArgRegs     []int64
	ArgStack    []int64

	BPOnStack      bool
	RetAddrOnStack bool
	SPDelta        int64
}

// arcPayload is one call-graph edge.
type arcPayload struct {
	From uint64
	To   uint64
}

// payload is the full session snapshot.
type payload struct {
	Schema    uint16
	Functions []funcPayload
	CallGraph []arcPayload
}

// Save writes a snapshot of the registry to path.
func Save(path string, reg *registry.Registry) error {
	p := payload{Schema: schemaVersion}

	for _, f := range reg.Functions() {
		fp := funcPayload{
			Entry:          f.Entry(),
			Name:           f.Name,
			Blocks:         f.BasicBlocks(),
			ReturnSites:    f.Endpoints(),
			BPOnStack:      f.BPOnStack(),
			RetAddrOnStack: f.RetAddrOnStack(),
			SPDelta:        f.SPDelta(),
		}
		for _, e := range f.Graph().Edges() {
			fp.Edges = append(fp.Edges, edgePayload{From: e.From, To: e.To, Kind: int8(e.Kind)})
		}
		for _, site := range f.CallSites() {
			target, _ := f.CallTarget(site)
			retn, _ := f.CallReturn(site)
			fp.CallSites = append(fp.CallSites, callSitePayload{Site: site, Target: target, Return: retn})
		}
		fp.ArgRegs, fp.ArgStack = f.Arguments()
		p.Functions = append(p.Functions, fp)
	}

	for _, arc := range reg.CallGraph().Edges() {
		p.CallGraph = append(p.CallGraph, arcPayload{From: arc.From, To: arc.To})
	}

	data, err := msgpack.Marshal(&p)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

// Load reads a snapshot and rebuilds a registry from it.
func Load(path string) (*registry.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read: %w", err)
	}

	var p payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	if p.Schema != schemaVersion {
		return nil, fmt.Errorf("session: schema %d, want %d", p.Schema, schemaVersion)
	}

	reg := registry.New()
	for _, fp := range p.Functions {
		for _, b := range fp.Blocks {
			reg.AddBlock(fp.Entry, b)
		}
		for _, e := range fp.Edges {
			switch flow.EdgeKind(e.Kind) {
			case flow.ReturnFromCall:
				reg.ReturnFromCall(fp.Entry, e.From, e.To)
			default:
				reg.TransitTo(fp.Entry, e.From, e.To)
			}
		}
		for _, rs := range fp.ReturnSites {
			reg.ReturnFrom(fp.Entry, rs)
		}

		f, _ := reg.Lookup(fp.Entry)
		f.Name = fp.Name
		for _, cs := range fp.CallSites {
			f.AddCallSite(cs.Site, cs.Target, cs.Return)
		}
		for _, r := range fp.ArgRegs {
			f.AddArgumentRegister(r)
		}
		for _, s := range fp.ArgStack {
			f.AddArgumentStackVariable(s)
		}
		f.SetBPOnStack(fp.BPOnStack)
		f.SetRetAddrOnStack(fp.RetAddrOnStack)
		f.SetSPDelta(fp.SPDelta)
	}

	// Call-graph arcs are restored directly; CallTo would fabricate call
	// sites the original session never had.
	cg := reg.CallGraph()
	for _, arc := range p.CallGraph {
		cg.AddEdge(arc.From, arc.To)
	}
	return reg, nil
}
