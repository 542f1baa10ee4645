package ownership

import (
	"testing"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/types"
)

func TestMutableCaptureConflictsWithRead(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("adder", f.bt.Unit)
	xs := fb.Let("xs", f.ints, f.make(fb, f.ints))
	closure := fb.Closure(f.fn, f.bt.Unit, []string{"v"}, []types.TypeID{f.bt.Int}, func(ps []hir.Local) {
		fb.Expr(fb.MethodExtern(fb.Var(xs), "push", f.bt.Unit, hir.OwnershipRefMut, nil, fb.Var(ps[0])))
	})
	add := fb.Let("add", f.fn, closure)
	read := fb.Var(xs)
	fb.Expr(f.look(fb, fb.MethodExtern(read, "len", f.bt.Int, hir.OwnershipRef, nil)))
	call := fb.Var(add)
	fb.Expr(fb.MethodExtern(call, "call", f.bt.Unit, hir.OwnershipRef, []hir.Ownership{hir.OwnershipOwn}, fb.Lit(f.bt.Int, "1")))
	fn := fb.Done()

	res := f.run(fn, nil)
	data := closure.Data.(*hir.ClosureData)
	if len(data.Captures) != 1 || data.Captures[0].Mode != hir.ActionBorrowMutable {
		t.Fatalf("captures = %+v", data.Captures)
	}
	got := diagsWith(res, diag.OwnConflict)
	if len(got) != 1 {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
	d := got[0]
	if d.Primary != read.Span || len(d.Notes) != 2 || d.Notes[0].Span != closure.Span || d.Notes[1].Span != call.Span {
		t.Fatalf("spans: %+v", d)
	}
	if !fn.Body.Stmts[0].Data.(*hir.LetData).NeedsMut {
		t.Fatalf("xs should need mut")
	}
}

func TestSharedCaptureWithoutConflict(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("reader", f.bt.Unit)
	xs := fb.Let("xs", f.ints, f.make(fb, f.ints))
	closure := fb.Closure(f.fn, f.bt.Int, nil, nil, func([]hir.Local) {
		fb.Return(fb.MethodExtern(fb.Var(xs), "len", f.bt.Int, hir.OwnershipRef, nil))
	})
	add := fb.Let("count", f.fn, closure)
	fb.Expr(f.look(fb, fb.Var(xs)))
	fb.Expr(fb.MethodExtern(fb.Var(add), "call", f.bt.Int, hir.OwnershipRef, nil))
	fn := fb.Done()

	res := f.run(fn, nil)
	expectClean(t, res)
	data := closure.Data.(*hir.ClosureData)
	if len(data.Captures) != 1 || data.Captures[0].Mode != hir.ActionBorrowShared {
		t.Fatalf("captures = %+v", data.Captures)
	}
	expectAction(t, closure, hir.ActionNoOp)
}

func TestEscapingClosureMovesCaptures(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("greeter", f.fn)
	name := fb.Param("name", f.bt.String, hir.OwnershipInfer)
	closure := fb.Closure(f.fn, f.bt.Unit, []string{"n"}, []types.TypeID{f.bt.Int}, func([]hir.Local) {
		fb.Expr(f.look(fb, fb.Var(name)))
	})
	fb.Return(closure)
	fn := fb.Done()

	res := f.run(fn, nil)
	expectClean(t, res)
	data := closure.Data.(*hir.ClosureData)
	if len(data.Captures) != 1 || data.Captures[0].Mode != hir.ActionMove {
		t.Fatalf("captures = %+v", data.Captures)
	}
	expectAction(t, closure, hir.ActionMove)
	if fn.Params[0].Ownership != hir.OwnershipOwn {
		t.Fatalf("name = %q, want own", fn.Params[0].Ownership)
	}
	if len(data.Params) != 1 || data.Params[0].Ownership != hir.OwnershipCopy {
		t.Fatalf("closure params = %+v", data.Params)
	}
}

func TestNestedClosureCapturesThroughFrames(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("nested", f.bt.Unit)
	xs := fb.Let("xs", f.ints, f.make(fb, f.ints))
	var inner *hir.Expr
	outer := fb.Closure(f.fn, f.bt.Unit, nil, nil, func([]hir.Local) {
		inner = fb.Closure(f.fn, f.bt.Unit, nil, nil, func([]hir.Local) {
			fb.Expr(fb.MethodExtern(fb.Var(xs), "clear", f.bt.Unit, hir.OwnershipRefMut, nil))
		})
		fb.Let("g", f.fn, inner)
	})
	fb.Let("h", f.fn, outer)
	fn := fb.Done()

	res := f.run(fn, nil)
	expectClean(t, res)
	for _, e := range []*hir.Expr{outer, inner} {
		caps := e.Data.(*hir.ClosureData).Captures
		if len(caps) != 1 || caps[0].Name != "xs" || caps[0].Mode != hir.ActionBorrowMutable {
			t.Fatalf("closure %d captures = %+v", e.ID, caps)
		}
	}
	captures := 0
	for _, b := range res.Bindings {
		if b.Kind == BindCapture {
			captures++
		}
	}
	if captures != 2 {
		t.Fatalf("capture bindings = %d, want 2", captures)
	}
}
