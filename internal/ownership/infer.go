package ownership

import (
	"fmt"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/types"
)

// Options tunes a single inference run.
type Options struct {
	// Types labels types in diagnostics and resolves builtin method modes.
	Types *types.Interner
	// QuietUnknown suppresses warnings about types without a capability entry.
	QuietUnknown bool
	// MaxDiagnostics caps diagnostics kept per function; 0 keeps all.
	MaxDiagnostics int
}

// Stats counts what one or more inference runs decided.
type Stats struct {
	Funcs    int
	Actions  [hir.ActionCount]int
	Derefs   int
	Bindings int
	Escaping int
	// StackEligible counts owned bindings that never escape.
	StackEligible int
	// AutoMut counts bindings that need mut without declaring it.
	AutoMut   int
	Conflicts int
	Warnings  int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Funcs += o.Funcs
	for i := range s.Actions {
		s.Actions[i] += o.Actions[i]
	}
	s.Derefs += o.Derefs
	s.Bindings += o.Bindings
	s.Escaping += o.Escaping
	s.StackEligible += o.StackEligible
	s.AutoMut += o.AutoMut
	s.Conflicts += o.Conflicts
	s.Warnings += o.Warnings
}

// Result is everything inferred for one function.
type Result struct {
	Func     *hir.Func
	Bindings []*Binding
	Uses     []*UseSite
	Scopes   []Scope
	Summary  *Summary
	Diags    []diag.Diagnostic
	Stats    Stats

	reg           *capability.Registry
	useByExpr     map[*hir.Expr]*UseSite
	projByExpr    map[*hir.Expr]*projection
	bindingByExpr map[*hir.Expr]*Binding
}

// Binding returns the binding with the given id.
func (res *Result) Binding(id BindingID) *Binding {
	if !id.IsValid() || int(id) > len(res.Bindings) {
		return nil
	}
	return res.Bindings[id-1]
}

// Use returns the use site with the given id.
func (res *Result) Use(id UseID) *UseSite {
	if !id.IsValid() || int(id) > len(res.Uses) {
		return nil
	}
	return res.Uses[id-1]
}

// Lookup returns the first non-capture binding named name.
func (res *Result) Lookup(name string) *Binding {
	for _, b := range res.Bindings {
		if b.Name == name && b.Kind != BindCapture {
			return b
		}
	}
	return nil
}

// UseOf returns the use site recorded for a VarRef expression.
func (res *Result) UseOf(e *hir.Expr) *UseSite {
	return res.useByExpr[e]
}

// Fatal reports whether any diagnostic fails the function.
func (res *Result) Fatal() bool {
	for _, d := range res.Diags {
		if d.Fatal() {
			return true
		}
	}
	return false
}

// Infer runs ownership inference over fn and writes the decisions back into
// its HIR. Callee summaries come from sums; a callee without a summary is
// treated as if every argument escaped. Malformed HIR panics.
func Infer(fn *hir.Func, reg *capability.Registry, sums SummaryLookup, opts Options) *Result {
	if fn == nil {
		panic("ownership: nil function")
	}
	if reg == nil || !reg.Frozen() {
		panic(fmt.Sprintf("ownership: %s: capability registry is not frozen", fn.Name))
	}
	a := newAnalysis(fn, reg, sums, opts)
	a.bag = diag.NewBag(opts.MaxDiagnostics)
	a.rep = diag.NewDedupReporter(diag.BagReporter{Bag: a.bag, Func: fn.Name})

	a.collect()
	a.markFinal()
	a.propagateMut()
	a.analyzeEscapes()
	a.decideCaptures()
	a.propagateMut()
	a.classifyParams()
	a.resolve()
	a.checkLoans()
	a.emit()

	res := &Result{
		Func:          fn,
		Bindings:      a.bindings[1:],
		Uses:          a.uses[1:],
		Scopes:        a.scopes[1:],
		reg:           reg,
		useByExpr:     a.useByExpr,
		projByExpr:    a.projByExpr,
		bindingByExpr: a.bindingByExpr,
	}
	res.Summary = a.summary()
	res.Stats = a.stats()
	Agree(res)

	a.bag.Sort()
	res.Diags = a.bag.Items()
	for _, d := range res.Diags {
		switch {
		case d.Fatal():
			res.Stats.Conflicts++
		case d.Severity == diag.SevWarning:
			res.Stats.Warnings++
		}
	}
	return res
}

func (a *analysis) summary() *Summary {
	sum := &Summary{Func: a.fn.ID, Name: a.fn.Name, Resolved: !a.unresolved}
	for _, b := range a.bindings[1:] {
		switch b.Kind {
		case BindReceiver:
			ps := paramSummary(b)
			sum.Receiver = &ps
		case BindParam:
			sum.Params = append(sum.Params, paramSummary(b))
		}
	}
	return sum
}

func (a *analysis) stats() Stats {
	st := Stats{Funcs: 1}
	for _, u := range a.uses[1:] {
		if u.Context != Capture {
			st.Actions[u.Action]++
		}
	}
	for _, p := range a.projections {
		if p.consumed {
			st.Actions[p.action]++
		}
	}
	for _, b := range a.bindings[1:] {
		if b.Kind == BindCapture {
			continue
		}
		st.Bindings++
		if b.Escapes {
			st.Escaping++
		} else if b.Class == Owned {
			st.StackEligible++
		}
		if b.NeedsMut && !b.IsMut {
			st.AutoMut++
		}
	}
	return st
}
