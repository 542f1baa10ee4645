package ownership

import (
	"strings"
	"testing"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
)

func TestUseAfterMove(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("twice", f.bt.Unit)
	h := fb.Let("h", f.item, f.make(fb, f.item))
	first := fb.Var(h)
	fb.Expr(f.take(fb, first))
	second := fb.Var(h)
	fb.Expr(f.take(fb, second))
	fn := fb.Done()

	res := f.run(fn, nil)
	got := diagsWith(res, diag.OwnUseAfterMove)
	if len(got) != 1 {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
	if got[0].Primary != second.Span || len(got[0].Notes) != 1 || got[0].Notes[0].Span != first.Span {
		t.Fatalf("spans: %+v", got[0])
	}
	if got[0].Code.Kind() != diag.KindOwnershipConflict || !res.Fatal() {
		t.Fatalf("use after move must be a fatal ownership conflict")
	}
}

func TestMoveInsideLoop(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("spin", f.bt.Unit)
	h := fb.Let("h", f.item, f.make(fb, f.item))
	fb.While(fb.Lit(f.bt.Bool, "true"), func() {
		fb.Expr(f.take(fb, fb.Var(h)))
	})
	fn := fb.Done()

	res := f.run(fn, nil)
	got := diagsWith(res, diag.OwnUseAfterMove)
	if len(got) != 1 || !strings.Contains(got[0].Message, "previous iteration") {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
}

func TestFinalUsesAcceptedByControlFlow(t *testing.T) {
	cases := []struct {
		name  string
		build func(f *fixture, fb *hir.FuncBuilder)
	}{
		{
			name: "exclusive arms",
			build: func(f *fixture, fb *hir.FuncBuilder) {
				h := fb.Let("h", f.item, f.make(fb, f.item))
				fb.If(fb.Lit(f.bt.Bool, "true"),
					func() { fb.Expr(f.take(fb, fb.Var(h))) },
					func() { fb.Expr(f.take(fb, fb.Var(h))) })
			},
		},
		{
			name: "reassignment starts a new value",
			build: func(f *fixture, fb *hir.FuncBuilder) {
				h := fb.Let("h", f.item, f.make(fb, f.item))
				fb.Expr(f.take(fb, fb.Var(h)))
				fb.Assign(fb.Var(h), f.make(fb, f.item))
				fb.Expr(f.take(fb, fb.Var(h)))
			},
		},
		{
			name: "early return",
			build: func(f *fixture, fb *hir.FuncBuilder) {
				h := fb.Let("h", f.item, f.make(fb, f.item))
				fb.If(fb.Lit(f.bt.Bool, "true"), func() {
					fb.Expr(f.take(fb, fb.Var(h)))
					fb.Return(nil)
				}, nil)
				fb.Expr(f.take(fb, fb.Var(h)))
			},
		},
		{
			name: "break out of loop declared inside",
			build: func(f *fixture, fb *hir.FuncBuilder) {
				fb.While(fb.Lit(f.bt.Bool, "true"), func() {
					h := fb.Let("h", f.item, f.make(fb, f.item))
					fb.Expr(f.take(fb, fb.Var(h)))
					fb.Break()
				})
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			fb := f.b.Func("flow", f.bt.Unit)
			tc.build(f, fb)
			fn := fb.Done()
			res := f.run(fn, nil)
			expectClean(t, res)
			for _, u := range res.Uses {
				if u.Consuming && u.Action != hir.ActionMove {
					t.Fatalf("use %d of %s: %s", u.Ord, res.Binding(u.Binding).Name, u.Action)
				}
			}
		})
	}
}

func TestMutationThroughSharedBorrow(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("append", f.bt.Unit)
	xs := fb.Param("xs", f.ints, hir.OwnershipRef)
	push := fb.Var(xs)
	fb.Expr(fb.MethodExtern(push, "push", f.bt.Unit, hir.OwnershipRefMut, nil, fb.Lit(f.bt.Int, "1")))
	fn := fb.Done()

	res := f.run(fn, nil)
	got := diagsWith(res, diag.OwnMutThroughShared)
	if len(got) != 1 || got[0].Primary != push.Span {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
	if !res.Fatal() {
		t.Fatalf("mutation through a shared borrow must be fatal")
	}
}

func TestEscapingBorrow(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("leak", f.item)
	x := fb.Param("x", f.item, hir.OwnershipRef)
	ret := fb.Var(x)
	fb.Return(ret)
	fn := fb.Done()

	res := f.run(fn, nil)
	got := diagsWith(res, diag.OwnEscapingBorrow)
	if len(got) != 1 || got[0].Primary != ret.Span {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
	if got[0].Code.Kind() != diag.KindEscapingBorrow {
		t.Fatalf("kind = %v", got[0].Code.Kind())
	}
}

func TestBorrowedCopyableEscapes(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("read", f.bt.String)
	s := fb.Param("s", f.bt.String, hir.OwnershipRef)
	p := fb.Param("p", f.point, hir.OwnershipRef)
	dup := fb.Var(s)
	deref := fb.Var(p)
	fb.Expr(f.take(fb, deref))
	fb.Return(dup)
	fn := fb.Done()

	res := f.run(fn, nil)
	expectClean(t, res)
	expectAction(t, dup, hir.ActionDuplicate)
	expectAction(t, deref, hir.ActionDereference)
}

func TestMoveElementOutOfLiveCollection(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("steal", f.bt.Unit)
	xs := fb.Let("xs", f.items, f.make(fb, f.items))
	elem := fb.Index(fb.Var(xs), fb.Lit(f.bt.Int, "0"), f.item)
	fb.Expr(f.take(fb, elem))
	later := fb.Var(xs)
	fb.Expr(f.look(fb, later))
	fn := fb.Done()

	res := f.run(fn, nil)
	got := diagsWith(res, diag.OwnConflict)
	if len(got) != 1 || got[0].Primary != elem.Span {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
	if len(got[0].Notes) != 1 || got[0].Notes[0].Span != later.Span {
		t.Fatalf("notes = %+v", got[0].Notes)
	}
}

func TestSharedLoanThenMutation(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("alias", f.bt.Unit)
	xs := fb.Let("xs", f.items, f.make(fb, f.items))
	first := fb.Let("first", f.item, fb.Index(fb.Var(xs), fb.Lit(f.bt.Int, "0"), f.item))
	push := fb.Var(xs)
	fb.Expr(fb.MethodExtern(push, "push", f.bt.Unit, hir.OwnershipRefMut, nil, f.make(fb, f.item)))
	fb.Expr(f.look(fb, fb.Var(first)))
	fn := fb.Done()

	res := f.run(fn, nil)
	got := diagsWith(res, diag.OwnConflict)
	if len(got) != 1 || got[0].Primary != push.Span || len(got[0].Notes) != 2 {
		t.Fatalf("diagnostics = %+v", res.Diags)
	}
	if res.Lookup("first").LoanKind != LoanShared {
		t.Fatalf("first should hold a shared loan")
	}
}
