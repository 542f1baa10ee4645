package callgraph

import (
	"slices"
	"testing"

	"borrowinfer/internal/hir"
	"borrowinfer/internal/types"
)

func names(g *Graph, ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.Func(id).Name
	}
	return out
}

// c <- b <- a; d <-> e <- f; g calls itself; h calls an extern name.
func testProgram() *hir.Program {
	in := types.NewInterner()
	unit := in.Builtins().Unit
	b := hir.NewBuilder(in, "m")

	c := b.Func("c", unit)
	c.Done()
	bb := b.Func("b", unit)
	bb.Expr(bb.Call(c.ID(), unit))
	bb.Expr(bb.Call(c.ID(), unit))
	bb.Done()
	a := b.Func("a", unit)
	a.Expr(a.Closure(in.RegisterFn(nil, unit), unit, nil, nil, func([]hir.Local) {
		a.Expr(a.Call(bb.ID(), unit))
	}))
	a.Done()

	d := b.Func("d", unit)
	e := b.Func("e", unit)
	d.Expr(d.Call(e.ID(), unit))
	d.Done()
	e.Expr(e.Call(d.ID(), unit))
	e.Done()
	f := b.Func("f", unit)
	f.Expr(f.Call(d.ID(), unit))
	f.Done()

	g := b.Func("g", unit)
	g.Expr(g.Call(g.ID(), unit))
	g.Done()
	h := b.Func("h", unit)
	h.Expr(h.CallExtern("print", unit, nil))
	h.Done()
	return b.Program()
}

func TestBuildEdges(t *testing.T) {
	g := Build(testProgram())
	if len(g.Funcs) != 8 {
		t.Fatalf("got %d nodes, want 8", len(g.Funcs))
	}
	b, _ := g.Node(2)
	if got := names(g, g.Callees[b]); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("b calls %v, want [c] once", got)
	}
	a, _ := g.Node(3)
	if got := names(g, g.Callees[a]); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("closure call not attributed to a: %v", got)
	}
	gn, _ := g.Node(7)
	if !g.Self[gn] || g.Indeg[gn] != 0 {
		t.Fatalf("self-recursion must not be an edge: self=%v indeg=%d", g.Self[gn], g.Indeg[gn])
	}
	hn, _ := g.Node(8)
	if len(g.Callees[hn]) != 0 {
		t.Fatalf("extern call became an edge")
	}
}

func TestToposortBatchesAndCycles(t *testing.T) {
	g := Build(testProgram())
	topo := Toposort(g)

	want := [][]string{{"c", "g", "h"}, {"b"}, {"a"}}
	if len(topo.Batches) != len(want) {
		t.Fatalf("got %d batches, want %d", len(topo.Batches), len(want))
	}
	for i, batch := range topo.Batches {
		if got := names(g, batch); !slices.Equal(got, want[i]) {
			t.Fatalf("batch %d = %v, want %v", i, got, want[i])
		}
	}
	if !topo.Cyclic {
		t.Fatalf("expected a cycle")
	}
	if got := names(g, topo.Cycles); !slices.Equal(got, []string{"d", "e", "f"}) {
		t.Fatalf("cycles = %v", got)
	}
	if len(topo.Components) != 2 {
		t.Fatalf("components = %v", topo.Components)
	}
	if got := names(g, topo.Components[0]); !slices.Equal(got, []string{"d", "e"}) {
		t.Fatalf("first component = %v, want [d e]", got)
	}
	if got := names(g, topo.Components[1]); !slices.Equal(got, []string{"f"}) {
		t.Fatalf("second component = %v, want [f]", got)
	}
}

func TestToposortIsDeterministic(t *testing.T) {
	first := Toposort(Build(testProgram()))
	for range 20 {
		again := Toposort(Build(testProgram()))
		if !slices.Equal(first.Order, again.Order) || !slices.Equal(first.Cycles, again.Cycles) {
			t.Fatalf("order changed between runs: %v vs %v", first.Order, again.Order)
		}
	}
}

func TestPending(t *testing.T) {
	g := Build(testProgram())
	d, _ := g.Node(4)
	e, _ := g.Node(5)
	pending := g.Pending(d, func(NodeID) bool { return false })
	if !slices.Equal(pending, []NodeID{e}) {
		t.Fatalf("pending = %v, want [e]", pending)
	}
	if got := g.Pending(d, func(NodeID) bool { return true }); len(got) != 0 {
		t.Fatalf("pending after completion = %v", got)
	}
}
