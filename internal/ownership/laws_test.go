package ownership

import (
	"testing"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
)

func TestComparisonAgreementXOR(t *testing.T) {
	type side int
	const (
		owned side = iota
		borrowed
	)
	cases := []struct {
		left, right side
	}{
		{owned, owned},
		{owned, borrowed},
		{borrowed, owned},
		{borrowed, borrowed},
	}
	for _, tc := range cases {
		f := newFixture(t)
		fb := f.b.Func("cmp", f.bt.Bool)
		a := fb.Param("a", f.node, hir.OwnershipInfer)
		b := fb.Param("b", f.bt.String, hir.OwnershipInfer)
		c := fb.Param("c", f.bt.String, hir.OwnershipInfer)
		operand := func(s side, p hir.Local) *hir.Expr {
			if s == owned {
				return fb.Field(fb.Var(a), "name", f.bt.String)
			}
			return fb.Var(p)
		}
		l, r := operand(tc.left, b), operand(tc.right, c)
		fb.Return(fb.Binary(hir.OpEq, f.bt.Bool, l, r))
		fn := fb.Done()

		res := f.run(fn, nil)
		expectClean(t, res)
		derefs := 0
		for _, e := range hir.Exprs(fn) {
			if e.Own.Deref {
				derefs++
			}
		}
		want := 0
		if tc.left != tc.right {
			want = 1
		}
		if derefs != want {
			t.Fatalf("%v vs %v: %d derefs, want %d", tc.left, tc.right, derefs, want)
		}
		if want == 1 {
			marked := l
			if tc.right == borrowed {
				marked = r
			}
			if !marked.Own.Deref {
				t.Fatalf("%v vs %v: deref attached to the owned side", tc.left, tc.right)
			}
		}
	}
}

func TestAgreeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("update", f.bt.Bool)
	node := fb.Param("node", f.node, hir.OwnershipInfer)
	name := fb.Param("name", f.bt.String, hir.OwnershipRefMut)
	fb.Assign(fb.Var(name), fb.Field(fb.Var(node), "name", f.bt.String))
	fb.Return(fb.Binary(hir.OpNe, f.bt.Bool, fb.Var(name), fb.Field(fb.Var(node), "name", f.bt.String)))
	fn := fb.Done()

	res := f.run(fn, nil)
	once := f.dump()
	if n := Agree(res); n != 0 {
		t.Fatalf("second agreement marked %d expressions", n)
	}
	if twice := f.dump(); once != twice {
		t.Fatalf("agreement changed annotations:\n%s\n---\n%s", once, twice)
	}
	if res.Stats.Derefs == 0 {
		t.Fatalf("expected dereferences on the borrowed side")
	}
}

func TestReturnedBindingsAreOwned(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("relay", f.node)
	p := fb.Param("p", f.node, hir.OwnershipInfer)
	q := fb.Param("q", f.node, hir.OwnershipInfer)
	a := fb.Let("a", f.node, fb.Var(p))
	b := fb.Let("b", f.node, fb.Var(a))
	fb.If(fb.Lit(f.bt.Bool, "true"), func() { fb.Return(fb.Var(b)) }, nil)
	fb.Expr(f.look(fb, fb.Var(q)))
	fb.Return(fb.Var(q))
	fn := fb.Done()

	res := f.run(fn, nil)
	expectClean(t, res)
	for _, name := range []string{"p", "q", "a", "b"} {
		bd := res.Lookup(name)
		if !bd.Escapes || bd.Class != Owned {
			t.Fatalf("%s: escapes=%v class=%s", name, bd.Escapes, bd.Class)
		}
	}
	if fn.Params[0].Ownership != hir.OwnershipOwn {
		t.Fatalf("p = %q", fn.Params[0].Ownership)
	}
}

func TestCopyElementActions(t *testing.T) {
	t.Run("borrowed container duplicates", func(t *testing.T) {
		f := newFixture(t)
		fb := f.b.Func("first", f.bt.Unit)
		xs := fb.Param("xs", f.ints, hir.OwnershipInfer)
		elem := fb.Index(fb.Var(xs), fb.Lit(f.bt.Int, "0"), f.bt.Int)
		fb.Let("v", f.bt.Int, elem)
		fn := fb.Done()
		res := f.run(fn, nil)
		expectClean(t, res)
		expectAction(t, elem, hir.ActionDuplicate)
	})
	t.Run("owned container at final use moves", func(t *testing.T) {
		f := newFixture(t)
		fb := f.b.Func("first", f.bt.Unit)
		xs := fb.Let("xs", f.ints, f.make(fb, f.ints))
		elem := fb.Index(fb.Var(xs), fb.Lit(f.bt.Int, "0"), f.bt.Int)
		fb.Let("v", f.bt.Int, elem)
		fn := fb.Done()
		res := f.run(fn, nil)
		expectClean(t, res)
		expectAction(t, elem, hir.ActionMove)
	})
	t.Run("owned container used later duplicates", func(t *testing.T) {
		f := newFixture(t)
		fb := f.b.Func("first", f.bt.Unit)
		xs := fb.Let("xs", f.ints, f.make(fb, f.ints))
		elem := fb.Index(fb.Var(xs), fb.Lit(f.bt.Int, "0"), f.bt.Int)
		fb.Let("v", f.bt.Int, elem)
		fb.Expr(f.look(fb, fb.Var(xs)))
		fn := fb.Done()
		res := f.run(fn, nil)
		expectClean(t, res)
		expectAction(t, elem, hir.ActionDuplicate)
	})
}

func TestUnknownCapabilityWarnsOnce(t *testing.T) {
	f := newFixture(t)
	fb := f.b.Func("twice", f.bt.Unit)
	x := fb.Param("x", f.generic, hir.OwnershipInfer)
	first := fb.Var(x)
	fb.Expr(f.take(fb, first))
	second := fb.Var(x)
	fb.Expr(f.take(fb, second))
	fn := fb.Done()

	res := f.run(fn, nil)
	if res.Fatal() {
		t.Fatalf("unknown capability must not be fatal: %+v", res.Diags)
	}
	warns := diagsWith(res, diag.OwnUnknownCapability)
	if len(warns) != 1 || warns[0].Severity != diag.SevWarning {
		t.Fatalf("warnings = %+v", res.Diags)
	}
	expectAction(t, first, hir.ActionDuplicate)
	expectAction(t, second, hir.ActionMove)

	quiet := Infer(fn, f.registry(), nil, Options{Types: f.in, QuietUnknown: true})
	if len(quiet.Diags) != 0 {
		t.Fatalf("quiet run reported %d diagnostics", len(quiet.Diags))
	}
}
