package flow

import "testing"

func TestGraphAddEdgeIdempotent(t *testing.T) {
	g := NewGraph()
	g.AddEdge(0x1000, 0x1010, Transition)
	g.AddEdge(0x1000, 0x1010, Transition)

	if g.NumEdges() != 1 {
		t.Fatalf("edges = %d, want 1", g.NumEdges())
	}
	if g.NumNodes() != 2 {
		t.Fatalf("nodes = %d, want 2", g.NumNodes())
	}
	k, ok := g.Kind(0x1000, 0x1010)
	if !ok || k != Transition {
		t.Errorf("Kind = (%v, %v), want (Transition, true)", k, ok)
	}
}

func TestGraphEdgeKindLastWriteWins(t *testing.T) {
	g := NewGraph()
	g.AddEdge(0x1000, 0x1010, Transition)
	g.AddEdge(0x1000, 0x1010, ReturnFromCall)

	if g.NumEdges() != 1 {
		t.Fatalf("edges = %d, want 1", g.NumEdges())
	}
	k, _ := g.Kind(0x1000, 0x1010)
	if k != ReturnFromCall {
		t.Errorf("kind = %v, want ReturnFromCall", k)
	}
}

func TestGraphNodeInsertionOrder(t *testing.T) {
	g := NewGraph()
	g.AddNode(0x3000)
	g.AddEdge(0x1000, 0x2000, Transition)
	g.AddNode(0x1000) // already present via edge

	want := []uint64{0x3000, 0x1000, 0x2000}
	got := g.Nodes()
	if len(got) != len(want) {
		t.Fatalf("nodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("nodes[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestGraphSuccessors(t *testing.T) {
	g := NewGraph()
	g.AddEdge(0x1000, 0x1010, Transition)
	g.AddEdge(0x1000, 0x1020, ReturnFromCall)

	succs := g.Successors(0x1000)
	if len(succs) != 2 {
		t.Fatalf("successors = %v, want 2 entries", succs)
	}
	if g.Successors(0x1020) != nil {
		t.Error("leaf node should have no successors")
	}
}

func TestDigraphNoParallelEdges(t *testing.T) {
	g := NewDigraph()
	g.AddEdge(0x1000, 0x2000)
	g.AddEdge(0x1000, 0x2000)
	g.AddEdge(0x1000, 0x3000)

	if g.NumEdges() != 2 {
		t.Fatalf("edges = %d, want 2", g.NumEdges())
	}
	if !g.HasEdge(0x1000, 0x2000) {
		t.Error("missing edge 0x1000 -> 0x2000")
	}
	if g.HasEdge(0x2000, 0x1000) {
		t.Error("unexpected reverse edge")
	}
}

func TestEdgeKindString(t *testing.T) {
	if Transition.String() != "transition" {
		t.Errorf("Transition.String() = %q", Transition.String())
	}
	if ReturnFromCall.String() != "return_from_call" {
		t.Errorf("ReturnFromCall.String() = %q", ReturnFromCall.String())
	}
}
