package session

import (
	"path/filepath"
	"testing"

	"funcmap/internal/flow"
	"funcmap/internal/registry"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := registry.New()
	reg.TransitTo(0x1000, 0x1000, 0x1010)
	reg.CallTo(0x1000, 0x1010, 0x2000, 0x1020)
	reg.ReturnFromCall(0x1000, 0x1010, 0x1020)
	reg.ReturnFrom(0x1000, 0x1020)
	reg.ReturnFrom(0x2000, 0x2008)

	f, _ := reg.Lookup(0x1000)
	f.Name = "main"
	f.AddArgumentRegister(0)
	f.AddArgumentRegister(1)
	f.AddArgumentStackVariable(-16)
	f.SetBPOnStack(true)
	f.SetSPDelta(-32)

	path := filepath.Join(t.TempDir(), "session.mp")
	if err := Save(path, reg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got.DebugString() != reg.DebugString() {
		t.Errorf("block dump differs:\nsaved: %s\nloaded: %s",
			reg.DebugString(), got.DebugString())
	}

	gf, ok := got.Lookup(0x1000)
	if !ok {
		t.Fatal("function 0x1000 missing after load")
	}
	if gf.Name != "main" {
		t.Errorf("name = %q, want main", gf.Name)
	}
	if target, _ := gf.CallTarget(0x1010); target != 0x2000 {
		t.Errorf("call target = %#x, want 0x2000", target)
	}
	if site, ok := gf.CallSiteFor(0x1020); !ok || site != 0x1010 {
		t.Errorf("reverse index = (%#x, %v), want (0x1010, true)", site, ok)
	}
	if k, ok := gf.Graph().Kind(0x1010, 0x1020); !ok || k != flow.ReturnFromCall {
		t.Errorf("resume edge kind = (%v, %v), want ReturnFromCall", k, ok)
	}

	regs, stack := gf.Arguments()
	if len(regs) != 2 || regs[0] != 0 || regs[1] != 1 {
		t.Errorf("arg regs = %v, want [0 1]", regs)
	}
	if len(stack) != 1 || stack[0] != -16 {
		t.Errorf("arg stack = %v, want [-16]", stack)
	}
	if !gf.BPOnStack() || gf.SPDelta() != -32 {
		t.Error("frame metadata lost in round trip")
	}

	if !got.CallGraph().HasEdge(0x1000, 0x2000) {
		t.Error("call graph edge lost in round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.mp")); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
