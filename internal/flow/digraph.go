package flow

// Arc is an untagged edge in a Digraph.
type Arc struct {
	From uint64
	To   uint64
}

// Digraph is a simple adjacency-list digraph over addresses, used for the
// inter-procedural call graph. It is not a multigraph: repeated insertion
// of the same arc is a no-op, so several call sites from one function to
// the same target collapse onto one edge.
type Digraph struct {
	order []uint64
	nodes map[uint64]struct{}
	succs map[uint64]map[uint64]struct{}
	arcs  int
}

// NewDigraph returns an empty simple digraph.
func NewDigraph() *Digraph {
	return &Digraph{
		nodes: make(map[uint64]struct{}),
		succs: make(map[uint64]map[uint64]struct{}),
	}
}

// AddNode inserts addr as a node. No-op if already present.
func (g *Digraph) AddNode(addr uint64) {
	if _, ok := g.nodes[addr]; ok {
		return
	}
	g.nodes[addr] = struct{}{}
	g.order = append(g.order, addr)
}

// AddEdge inserts the arc from → to, adding both endpoints as nodes.
func (g *Digraph) AddEdge(from, to uint64) {
	g.AddNode(from)
	g.AddNode(to)
	m, ok := g.succs[from]
	if !ok {
		m = make(map[uint64]struct{})
		g.succs[from] = m
	}
	if _, exists := m[to]; !exists {
		m[to] = struct{}{}
		g.arcs++
	}
}

// HasEdge reports whether the arc from → to exists.
func (g *Digraph) HasEdge(from, to uint64) bool {
	_, ok := g.succs[from][to]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Digraph) Nodes() []uint64 {
	out := make([]uint64, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns all arcs, grouped by source in node insertion order.
func (g *Digraph) Edges() []Arc {
	out := make([]Arc, 0, g.arcs)
	for _, from := range g.order {
		for to := range g.succs[from] {
			out = append(out, Arc{From: from, To: to})
		}
	}
	return out
}

// Successors returns the targets of all out-edges of addr.
func (g *Digraph) Successors(addr uint64) []uint64 {
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
func (g *Digraph) NumNodes() int { return len(g.order) }

// NumEdges returns the arc count.
func (g *Digraph) NumEdges() int { return g.arcs }
