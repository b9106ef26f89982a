// Package flow provides the directed-graph containers funcmap builds its
// control-flow records on: a typed-edge graph for intra-procedural
// transitions and a simple digraph for the inter-procedural call graph.
// Nodes are addresses. All insertion operations are idempotent.
package flow

// EdgeKind tags an edge in a function's transition graph.
type EdgeKind int

const (
	// Transition is ordinary intra-function control flow
	// (fallthrough or branch).
	Transition EdgeKind = iota
	// ReturnFromCall marks control resuming in a function after a call
	// it made returns. Kept distinct so consumers can separate
	// "calls out and comes back" from ordinary branching.
	ReturnFromCall
)

func (k EdgeKind) String() string {
	switch k {
	case Transition:
		return "transition"
	case ReturnFromCall:
		return "return_from_call"
	}
	return "unknown"
}

// Edge is a typed edge between two block addresses.
type Edge struct {
	From uint64
	To   uint64
	Kind EdgeKind
}

// Graph is an adjacency-list digraph over addresses with typed edges.
// At most one edge exists per (from, to) pair; re-adding an edge with a
// different kind overwrites the kind (last write wins).
type Graph struct {
	order []uint64 // node insertion order
	nodes map[uint64]struct{}
	succs map[uint64]map[uint64]EdgeKind
	edges int
}

// NewGraph returns an empty typed-edge graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[uint64]struct{}),
		succs: make(map[uint64]map[uint64]EdgeKind),
	}
}

// AddNode inserts addr as a node. No-op if already present.
func (g *Graph) AddNode(addr uint64) {
	if _, ok := g.nodes[addr]; ok {
		return
	}
	g.nodes[addr] = struct{}{}
	g.order = append(g.order, addr)
}

// AddEdge inserts a typed edge from → to, adding both endpoints as nodes.
func (g *Graph) AddEdge(from, to uint64, kind EdgeKind) {
	g.AddNode(from)
	g.AddNode(to)
	m, ok := g.succs[from]
	if !ok {
		m = make(map[uint64]EdgeKind)
		g.succs[from] = m
	}
	if _, exists := m[to]; !exists {
		g.edges++
	}
	m[to] = kind
}

// HasNode reports whether addr is a node.
func (g *Graph) HasNode(addr uint64) bool {
	_, ok := g.nodes[addr]
	return ok
}

// HasEdge reports whether an edge from → to exists of any kind.
func (g *Graph) HasEdge(from, to uint64) bool {
	_, ok := g.succs[from][to]
	return ok
}

// Kind returns the kind of the from → to edge, if present.
func (g *Graph) Kind(from, to uint64) (EdgeKind, bool) {
	k, ok := g.succs[from][to]
	return k, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []uint64 {
	out := make([]uint64, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns all edges. Order follows node insertion order on the
// source endpoint; successor order within a node is unspecified.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, from := range g.order {
		for to, kind := range g.succs[from] {
			out = append(out, Edge{From: from, To: to, Kind: kind})
		}
	}
	return out
}

// Successors returns the targets of all out-edges of addr.
func (g *Graph) Successors(addr uint64) []uint64 {
	m := g.succs[addr]
	if len(m) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(m))
	for to := range m {
		out = append(out, to)
	}
	return out
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.order) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return g.edges }
