package render

import (
	"os"
	"path/filepath"
	"testing"

	"funcmap/internal/registry"
)

func buildSample() *registry.Registry {
	reg := registry.New()
	reg.TransitTo(0x1000, 0x1000, 0x1010)
	reg.CallTo(0x1000, 0x1010, 0x2000, 0x1020)
	reg.ReturnFromCall(0x1000, 0x1010, 0x1020)
	reg.ReturnFrom(0x1000, 0x1020)
	reg.ReturnFrom(0x2000, 0x2000)
	return reg
}

func TestBuildFuncCFG(t *testing.T) {
	reg := buildSample()
	f, _ := reg.Lookup(0x1000)

	lcfg := BuildFuncCFG(f)
	if lcfg.Name != "sub_1000" {
		t.Errorf("name = %q, want sub_1000", lcfg.Name)
	}
	// Blocks 0x1000, 0x1010, 0x1020 sorted → IDs 0, 1, 2.
	if len(lcfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(lcfg.Blocks))
	}

	// Block 1 (0x1010) is the call site: one "R" successor to block 2.
	b1 := lcfg.Blocks[1]
	if len(b1.Succs) != 1 || b1.Succs[0].BlockID != 2 || b1.Succs[0].Cond != "R" {
		t.Errorf("call block succs = %+v, want [{2 R}]", b1.Succs)
	}
	if len(b1.Calls) != 1 || b1.Calls[0].Callee != "0x2000" {
		t.Errorf("call block calls = %+v, want callee 0x2000", b1.Calls)
	}

	// Block 2 (0x1020) is the return site.
	if !lcfg.Blocks[2].Term {
		t.Error("return-site block should be terminal")
	}
	if lcfg.Blocks[0].Term {
		t.Error("entry block should not be terminal")
	}
}

func TestBuildFuncCFGUsesName(t *testing.T) {
	reg := buildSample()
	f, _ := reg.Lookup(0x1000)
	f.Name = "main"
	if got := BuildFuncCFG(f).Name; got != "main" {
		t.Errorf("name = %q, want main", got)
	}
}

func TestFuncFilename(t *testing.T) {
	if got := FuncFilename(0x1000); got != "function_0x00001000.dot" {
		t.Errorf("filename = %q", got)
	}
}

func TestDOTRendererWritesPerFunctionFiles(t *testing.T) {
	reg := buildSample()
	dir := t.TempDir()
	if err := reg.DebugDraw(&DOTRenderer{Dir: dir}); err != nil {
		t.Fatal(err)
	}

	for _, entry := range []uint64{0x1000, 0x2000} {
		path := filepath.Join(dir, FuncFilename(entry))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("missing artifact for 0x%x: %v", entry, err)
		}
		if len(data) == 0 {
			t.Errorf("empty artifact for 0x%x", entry)
		}
	}
}

func TestCallGraphDOTNamesNodes(t *testing.T) {
	reg := buildSample()
	f, _ := reg.Lookup(0x1000)
	f.Name = "main"

	dot := CallGraphDOT(reg, "sample")
	if dot == "" {
		t.Fatal("empty DOT output")
	}
}
