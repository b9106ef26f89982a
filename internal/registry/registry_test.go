package registry

import (
	"errors"
	"strings"
	"testing"
)

func TestAutoVivification(t *testing.T) {
	events := []func(r *Registry){
		func(r *Registry) { r.CallTo(0x1000, 0x1010, 0x2000, 0x1014) },
		func(r *Registry) { r.ReturnFrom(0x1000, 0x1020) },
		func(r *Registry) { r.TransitTo(0x1000, 0x1000, 0x1010) },
		func(r *Registry) { r.ReturnFromCall(0x1000, 0x1014, 0x1018) },
	}
	for i, ev := range events {
		r := New()
		if _, ok := r.Lookup(0x1000); ok {
			t.Fatalf("event %d: lookup should fail before any event", i)
		}
		ev(r)
		f, ok := r.Lookup(0x1000)
		if !ok {
			t.Fatalf("event %d: lookup should succeed after event", i)
		}
		// Entry is always registered as the function's own first block.
		if blocks := f.BasicBlocks(); len(blocks) == 0 || blocks[0] != 0x1000 {
			t.Errorf("event %d: blocks = %#x, want entry first", i, blocks)
		}
	}
}

func TestLookupDoesNotCreate(t *testing.T) {
	r := New()
	if _, ok := r.Lookup(0x4000); ok {
		t.Fatal("lookup of unknown entry should report absent")
	}
	if r.Len() != 0 {
		t.Errorf("len = %d after lookup, want 0", r.Len())
	}
}

func TestCallToIdempotent(t *testing.T) {
	r := New()
	r.CallTo(0x1000, 0x1010, 0x2000, 0x1020)
	r.CallTo(0x1000, 0x1010, 0x2000, 0x1020)

	f, _ := r.Lookup(0x1000)
	if sites := f.CallSites(); len(sites) != 1 {
		t.Fatalf("call sites = %#x, want exactly one", sites)
	}
	if target, _ := f.CallTarget(0x1010); target != 0x2000 {
		t.Errorf("target = %#x, want 0x2000", target)
	}
	if retn, _ := f.CallReturn(0x1010); retn != 0x1020 {
		t.Errorf("return = %#x, want 0x1020", retn)
	}
}

func TestCallGraphCollapsesParallelEdges(t *testing.T) {
	r := New()
	r.CallTo(0x1000, 0x1010, 0x2000, 0x1020)
	r.CallTo(0x1000, 0x1040, 0x2000, 0x1044) // second site, same target

	cg := r.CallGraph()
	if !cg.HasEdge(0x1000, 0x2000) {
		t.Fatal("call graph missing edge 0x1000 -> 0x2000")
	}
	if cg.NumEdges() != 1 {
		t.Errorf("call graph edges = %d, want 1", cg.NumEdges())
	}
}

func TestEndToEndScenario(t *testing.T) {
	r := New()
	r.TransitTo(0x1000, 0x1000, 0x1010)
	r.CallTo(0x1000, 0x1010, 0x2000, 0x1020)
	r.ReturnFrom(0x1000, 0x1020)

	f, ok := r.Lookup(0x1000)
	if !ok {
		t.Fatal("function 0x1000 not recorded")
	}

	blocks := make(map[uint64]bool)
	for _, b := range f.BasicBlocks() {
		blocks[b] = true
	}
	if !blocks[0x1000] || !blocks[0x1010] {
		t.Errorf("blocks = %#x, want at least {0x1000, 0x1010}", f.BasicBlocks())
	}

	if target, ok := f.CallTarget(0x1010); !ok || target != 0x2000 {
		t.Errorf("call target = (%#x, %v), want (0x2000, true)", target, ok)
	}
	if retn, _ := f.CallReturn(0x1010); retn != 0x1020 {
		t.Errorf("call return = %#x, want 0x1020", retn)
	}
	if eps := f.Endpoints(); len(eps) != 1 || eps[0] != 0x1020 {
		t.Errorf("endpoints = %#x, want [0x1020]", eps)
	}
	if !f.HasReturn() {
		t.Error("HasReturn should be true")
	}
	if !r.CallGraph().HasEdge(0x1000, 0x2000) {
		t.Error("call graph missing edge 0x1000 -> 0x2000")
	}
}

func TestFunctionsInsertionOrder(t *testing.T) {
	r := New()
	r.TransitTo(0x3000, 0x3000, 0x3010)
	r.TransitTo(0x1000, 0x1000, 0x1010)
	r.TransitTo(0x3000, 0x3010, 0x3020) // revisit, no new record

	funcs := r.Functions()
	if len(funcs) != 2 {
		t.Fatalf("functions = %d, want 2", len(funcs))
	}
	if funcs[0].Entry() != 0x3000 || funcs[1].Entry() != 0x1000 {
		t.Errorf("order = [%#x %#x], want [0x3000 0x1000]",
			funcs[0].Entry(), funcs[1].Entry())
	}
}

func TestDebugString(t *testing.T) {
	r := New()
	r.TransitTo(0x1000, 0x1000, 0x1010)

	s := r.DebugString()
	if !strings.Contains(s, "Function 0x00001000") {
		t.Errorf("dump = %q, missing function header", s)
	}
	if !strings.Contains(s, "0x00001010") {
		t.Errorf("dump = %q, missing block 0x1010", s)
	}
}

type failingRenderer struct{ calls int }

func (fr *failingRenderer) RenderFunction(f *Function) error {
	fr.calls++
	if fr.calls == 2 {
		return errors.New("boom")
	}
	return nil
}

func TestDebugDrawStopsOnError(t *testing.T) {
	r := New()
	r.ReturnFrom(0x1000, 0x1020)
	r.ReturnFrom(0x2000, 0x2020)
	r.ReturnFrom(0x3000, 0x3020)

	fr := &failingRenderer{}
	err := r.DebugDraw(fr)
	if err == nil {
		t.Fatal("expected render error")
	}
	if fr.calls != 2 {
		t.Errorf("renderer called %d times, want 2", fr.calls)
	}
	if !strings.Contains(err.Error(), "0x00002000") {
		t.Errorf("error = %v, should name the failing entry", err)
	}
}
