package registry

import (
	"fmt"
	"strings"

	"funcmap/internal/flow"
)

// Registry is the address-keyed collection of function records for one
// analysis session, plus the inter-procedural call graph. Records are
// created lazily the first time any event names their entry address and
// live for the whole session. The registry owns every record; callers
// borrow reads and mutate only through the event methods below.
type Registry struct {
	byEntry   map[uint64]*Function
	order     []uint64
	callGraph *flow.Digraph
}

// New returns an empty registry. Each concurrent analysis gets its own;
// there is no ambient shared state.
func New() *Registry {
	return &Registry{
		byEntry:   make(map[uint64]*Function),
		callGraph: flow.NewDigraph(),
	}
}

// ensure is the single get-or-create point for records. On first creation
// the entry address is registered as the function's own first block.
func (r *Registry) ensure(entry uint64) *Function {
	if f, ok := r.byEntry[entry]; ok {
		return f
	}
	f := NewFunction(entry)
	f.AddBlock(entry)
	r.byEntry[entry] = f
	r.order = append(r.order, entry)
	return f
}

// CallTo records that the function at fn executes a call at block from,
// targeting to, with hypothetical return address retn. The call graph
// gains the edge fn → to; repeated calls to the same target collapse
// onto one edge.
func (r *Registry) CallTo(fn, from, to, retn uint64) {
	r.ensure(fn).AddCallSite(from, to, retn)
	r.callGraph.AddEdge(fn, to)
}

// AddBlock records that block addr belongs to function fn.
func (r *Registry) AddBlock(fn, addr uint64) {
	r.ensure(fn).AddBlock(addr)
}

// ReturnFrom records that block from ends in a return from function fn.
func (r *Registry) ReturnFrom(fn, from uint64) {
	r.ensure(fn).AddReturnSite(from)
}

// TransitTo records intra-function control flow from → to inside fn.
func (r *Registry) TransitTo(fn, from, to uint64) {
	r.ensure(fn).TransitTo(from, to)
}

// ReturnFromCall records control resuming at firstBlock inside fn after a
// callee returns, flowing to to.
func (r *Registry) ReturnFromCall(fn, firstBlock, to uint64) {
	r.ensure(fn).ReturnFromCall(firstBlock, to)
}

// Lookup returns the record for the given entry address if one exists.
// Unlike the event methods it never creates a record.
func (r *Registry) Lookup(entry uint64) (*Function, bool) {
	f, ok := r.byEntry[entry]
	return f, ok
}

// Functions returns every record in creation order.
func (r *Registry) Functions() []*Function {
	out := make([]*Function, len(r.order))
	for i, entry := range r.order {
		out[i] = r.byEntry[entry]
	}
	return out
}

// Len returns the number of recorded functions.
func (r *Registry) Len() int { return len(r.order) }

// CallGraph returns the inter-procedural call graph. Nodes are function
// entries and call targets. Callers must treat it as read-only.
func (r *Registry) CallGraph() *flow.Digraph { return r.callGraph }

// DebugString returns a textual dump of every function's block list.
func (r *Registry) DebugString() string {
	var b strings.Builder
	for _, entry := range r.order {
		fmt.Fprintf(&b, "Function 0x%08x\n%s\n", entry, r.byEntry[entry].DebugString())
	}
	return b.String()
}

// Renderer draws one function's transition graph. Rendering is a
// presentation concern; the registry supplies graph data only and depends
// on the collaborator abstractly.
type Renderer interface {
	RenderFunction(f *Function) error
}

// DebugDraw renders every function through the given collaborator,
// stopping at the first failure.
func (r *Registry) DebugDraw(rend Renderer) error {
	for _, entry := range r.order {
		if err := rend.RenderFunction(r.byEntry[entry]); err != nil {
			return fmt.Errorf("registry: render 0x%08x: %w", entry, err)
		}
	}
	return nil
}
