package ownership

import "borrowinfer/internal/hir"

// emit writes the analysis back into the HIR. Previous annotations are
// cleared first so a function can be re-analysed in place.
func (a *analysis) emit() {
	hir.ClearAnnotations(a.fn)

	for _, u := range a.uses[1:] {
		if u.Context == Capture {
			continue
		}
		u.Expr.Own = hir.Annotation{Action: u.Action, Deref: u.Deref, Reason: u.Reason}
	}
	for _, p := range a.projections {
		p.expr.Own = hir.Annotation{Action: p.action, Reason: p.reason}
	}
	for _, ci := range a.closures {
		caps := make([]hir.Capture, 0, len(ci.captures))
		moves := false
		for _, c := range ci.captures {
			outer := a.bindings[c.outer]
			mode := c.mode
			if mode == hir.ActionMove {
				// a duplicated or dereferenced capture is still taken by value
				mode = a.uses[c.use].Action
				moves = true
			}
			caps = append(caps, hir.Capture{Name: outer.Name, Local: outer.Local, Mode: mode})
		}
		ci.data.Captures = caps
		if moves {
			ci.expr.Own = hir.Annotation{Action: hir.ActionMove, Reason: "captures by value"}
		} else {
			ci.expr.Own = hir.Annotation{Action: hir.ActionNoOp, Reason: "captures by reference"}
		}
	}

	for _, b := range a.bindings[1:] {
		triv, _, _ := a.capability(b.Type)
		needsMut := b.Class == Owned && (b.NeedsMut || b.Reassigned)
		switch b.Kind {
		case BindParam, BindReceiver, BindClosureParam:
			b.param.Ownership = b.Class.Ownership(triv)
			b.param.NeedsMut = needsMut
		case BindLet:
			b.letData.Ownership = b.Class.Ownership(triv)
			b.letData.NeedsMut = needsMut
		case BindLoopVar:
			b.forData.Iter = a.loops[b.forData].mode
			b.forData.NeedsMut = needsMut
		}
		b.NeedsMut = needsMut
	}
}
