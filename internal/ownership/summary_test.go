package ownership

import (
	"testing"

	"borrowinfer/internal/hir"
)

func TestSummaryDrivesCallerArguments(t *testing.T) {
	f := newFixture(t)

	keep := f.b.Func("keep", f.bt.Unit)
	x := keep.Param("x", f.item, hir.OwnershipInfer)
	ys := keep.Param("ys", f.items, hir.OwnershipInfer)
	keep.Expr(keep.MethodExtern(keep.Var(ys), "push", f.bt.Unit, hir.OwnershipRefMut, nil, keep.Var(x)))
	keepFn := keep.Done()

	main := f.b.Func("main", f.bt.Unit)
	list := main.Let("list", f.items, f.make(main, f.items))
	n := main.Let("n", f.item, f.make(main, f.item))
	arg := main.Var(n)
	dst := main.Var(list)
	main.Expr(main.Call(keep.ID(), f.bt.Unit, arg, dst))
	main.Expr(f.look(main, main.Var(list)))
	mainFn := main.Done()

	kres := f.run(keepFn, nil)
	expectClean(t, kres)
	sum := kres.Summary
	px, _ := sum.Param(0)
	py, _ := sum.Param(1)
	if px.Class != Owned || !px.Escapes {
		t.Fatalf("x summary = %+v", px)
	}
	if py.Mode() != hir.OwnershipRefMut || !py.Mutated {
		t.Fatalf("ys summary = %+v", py)
	}

	mres := f.run(mainFn, Summaries(nil).With(sum))
	expectClean(t, mres)
	expectAction(t, arg, hir.ActionMove)
	expectAction(t, dst, hir.ActionBorrowMutable)
	if !mainFn.Body.Stmts[0].Data.(*hir.LetData).NeedsMut {
		t.Fatalf("list should need mut")
	}
	if !mres.Lookup("n").Escapes {
		t.Fatalf("n is stored by keep and must escape")
	}
}

func TestUnresolvedCalleeEscapes(t *testing.T) {
	f := newFixture(t)
	rec := f.b.Func("rec", f.bt.Unit)
	s := rec.Param("s", f.bt.String, hir.OwnershipInfer)
	first := rec.Var(s)
	rec.Expr(rec.Call(rec.ID(), f.bt.Unit, first))
	rec.Expr(f.look(rec, rec.Var(s)))
	fn := rec.Done()

	res := f.run(fn, nil)
	expectClean(t, res)
	if fn.Params[0].Ownership != hir.OwnershipOwn {
		t.Fatalf("s = %q, want own", fn.Params[0].Ownership)
	}
	expectAction(t, first, hir.ActionDuplicate)
	if res.Summary.Params[0].Class != Owned {
		t.Fatalf("summary = %+v", res.Summary.Params[0])
	}
	if res.Summary.Resolved {
		t.Fatalf("summary of a function with an unresolved callee is marked resolved")
	}
}

func TestSummariesWithIsCopyOnWrite(t *testing.T) {
	base := Summaries(nil).With(&Summary{Func: 2, Name: "b"})
	ext := base.With(&Summary{Func: 1, Name: "a"})
	if _, ok := base.Summary(1); ok {
		t.Fatalf("With mutated the receiver")
	}
	ids := ext.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids = %v", ids)
	}
}

func TestDeclaredSummaryFollowsDeclaration(t *testing.T) {
	fn := &hir.Func{
		ID:   7,
		Name: "ext",
		Params: []hir.Param{
			{Name: "a", Declared: hir.OwnershipRef},
			{Name: "b", Declared: hir.OwnershipRefMut},
			{Name: "c", Declared: hir.OwnershipOwn},
			{Name: "d"},
		},
		Flags: hir.FuncExtern,
	}
	sum := DeclaredSummary(fn)
	want := []struct {
		class   Class
		escapes bool
	}{
		{BorrowedShared, false},
		{BorrowedMutable, false},
		{Owned, false},
		{Owned, true},
	}
	for i, w := range want {
		ps, ok := sum.Param(i)
		if !ok || ps.Class != w.class || ps.Escapes != w.escapes {
			t.Fatalf("param %d = %+v, want class %s escapes %v", i, ps, w.class, w.escapes)
		}
	}
	if _, ok := sum.Param(-1); ok {
		t.Fatalf("free function has no receiver summary")
	}
}

func TestCallWithoutArgumentsTracksResolution(t *testing.T) {
	f := newFixture(t)
	callee := f.b.Func("setup", f.bt.Unit)
	callee.Done()
	build := func(name string) *hir.Func {
		fb := f.b.Func(name, f.bt.Unit)
		fb.Expr(fb.Call(callee.ID(), f.bt.Unit))
		return fb.Done()
	}

	res := f.run(build("pending"), nil)
	expectClean(t, res)
	if res.Summary.Resolved {
		t.Fatalf("call to setup without a summary left the caller resolved")
	}

	sums := Summaries(nil).With(&Summary{Func: callee.ID(), Name: "setup", Resolved: true})
	res = f.run(build("ready"), sums)
	expectClean(t, res)
	if !res.Summary.Resolved {
		t.Fatalf("caller of a summarised function is unresolved")
	}
}
