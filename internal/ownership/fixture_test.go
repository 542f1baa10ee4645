package ownership

import (
	"bytes"
	"testing"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/types"
)

type fixture struct {
	t  *testing.T
	in *types.Interner
	b  *hir.Builder
	bt types.Builtins

	item    types.TypeID // no derives
	items   types.TypeID
	node    types.TypeID // { name: String, children: Vec<Item> }
	point   types.TypeID // Copy
	ints    types.TypeID
	strs    types.TypeID
	generic types.TypeID
	fn      types.TypeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	in := types.NewInterner()
	bt := in.Builtins()
	item := in.RegisterStruct("Item", []types.Field{{Name: "id", Type: bt.Int}}, false, false)
	items := in.Vec(item)
	return &fixture{
		t:  t,
		in: in,
		b:  hir.NewBuilder(in, "test"),
		bt: bt,

		item:  item,
		items: items,
		node: in.RegisterStruct("Node", []types.Field{
			{Name: "name", Type: bt.String},
			{Name: "children", Type: items},
		}, false, false),
		point:   in.RegisterStruct("Point", []types.Field{{Name: "x", Type: bt.Int}, {Name: "y", Type: bt.Int}}, true, true),
		ints:    in.Vec(bt.Int),
		strs:    in.Vec(bt.String),
		generic: in.RegisterNominal(types.KindGeneric, "T"),
		fn:      in.RegisterFn([]types.TypeID{bt.Int}, bt.Unit),
	}
}

func (f *fixture) registry() *capability.Registry {
	return capability.FromInterner(f.in).Freeze()
}

func (f *fixture) run(fn *hir.Func, sums SummaryLookup) *Result {
	f.t.Helper()
	return Infer(fn, f.registry(), sums, Options{Types: f.in})
}

// take consumes its argument; look borrows it.
func (f *fixture) take(fb *hir.FuncBuilder, e *hir.Expr) *hir.Expr {
	return fb.CallExtern("take", f.bt.Unit, []hir.Ownership{hir.OwnershipOwn}, e)
}

func (f *fixture) look(fb *hir.FuncBuilder, e *hir.Expr) *hir.Expr {
	return fb.CallExtern("look", f.bt.Unit, []hir.Ownership{hir.OwnershipRef}, e)
}

func (f *fixture) make(fb *hir.FuncBuilder, t types.TypeID) *hir.Expr {
	return fb.CallExtern("make", t, nil)
}

func (f *fixture) dump() string {
	f.t.Helper()
	var buf bytes.Buffer
	if err := hir.Dump(&buf, f.b.Program(), hir.DumpOptions{Annotations: true, Reasons: true}); err != nil {
		f.t.Fatalf("dump: %v", err)
	}
	return buf.String()
}

func diagsWith(res *Result, code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range res.Diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func expectClean(t *testing.T, res *Result) {
	t.Helper()
	for _, d := range res.Diags {
		t.Errorf("unexpected diagnostic %s: %s", d.Code.ID(), d.Message)
	}
}

func expectAction(t *testing.T, e *hir.Expr, want hir.Action) {
	t.Helper()
	if e.Own.Action != want {
		t.Fatalf("expr %d (%s): action %s, want %s (%s)", e.ID, e.Kind, e.Own.Action, want, e.Own.Reason)
	}
}
