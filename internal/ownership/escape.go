package ownership

import "borrowinfer/internal/hir"

// analyzeEscapes marks uses and bindings whose values leave the function:
// returned values, arguments of parameters that escape, values stored into
// parameters, and everything captured by an escaping closure. Escape flows
// backwards along stores until nothing changes.
func (a *analysis) analyzeEscapes() {
	for _, u := range a.uses[1:] {
		if u.sink != nil && u.sink.escape {
			a.escapeUse(u)
		}
		if u.param != nil && u.param.escapes && u.Consuming {
			a.escapeUse(u)
		}
	}
	for _, p := range a.projections {
		if p.sink != nil && p.sink.escape {
			a.escapeProjection(p)
		}
	}
	for _, ci := range a.closures {
		if ci.sink != nil && ci.sink.escape {
			ci.escapes = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, u := range a.uses[1:] {
			if u.Escapes || !u.flowsTo.IsValid() {
				continue
			}
			if dst := a.bindings[u.flowsTo]; dst.Escapes || (dst.escapeSink && u.sink != nil && u.sink.into) {
				a.escapeUse(u)
				changed = true
			}
		}
		for _, p := range a.projections {
			if p.escapes || p.sink == nil || !p.sink.binding.IsValid() {
				continue
			}
			if dst := a.bindings[p.sink.binding]; dst.Escapes || (dst.escapeSink && p.sink.into) {
				a.escapeProjection(p)
				changed = true
			}
		}
		for _, ci := range a.closures {
			if !ci.escapes && ci.sink != nil && ci.sink.binding.IsValid() && a.bindings[ci.sink.binding].Escapes {
				ci.escapes = true
				changed = true
			}
			if !ci.escapes {
				continue
			}
			for _, c := range ci.captures {
				if u := a.uses[c.use]; !u.Escapes {
					a.escapeUse(u)
					changed = true
				}
			}
		}
	}
}

func (a *analysis) escapeUse(u *UseSite) {
	u.Escapes = true
	b := a.bindings[u.Binding]
	if !b.Escapes {
		b.Escapes = true
		b.EscapeUse = u.ID
	}
}

func (a *analysis) escapeProjection(p *projection) {
	p.escapes = true
	if p.root.IsValid() {
		a.escapeUse(a.uses[p.root])
	}
}

// decideCaptures fixes the capture mode of every closure, innermost first.
// A closure that escapes, or consumes a captured value it cannot copy,
// takes the value; otherwise it borrows, mutably when the body mutates
// or reassigns.
func (a *analysis) decideCaptures() {
	for i := len(a.closures) - 1; i >= 0; i-- {
		ci := a.closures[i]
		for _, c := range ci.captures {
			inner := a.bindings[c.inner]
			outer := a.bindings[c.outer]
			u := a.uses[c.use]
			triv, _, _ := a.capability(inner.Type)

			switch {
			case ci.escapes || inner.Escapes || (inner.Consumed && !triv):
				c.mode = hir.ActionMove
				inner.setClass(Owned)
				u.Consuming = true
				outer.Consumed = true
			case inner.RequiresMut || inner.Reassigned:
				c.mode = hir.ActionBorrowMutable
				inner.setClass(BorrowedMutable)
				inner.LoanKind = LoanMut
				u.Mutating = true
				outer.RequiresMut = true
			default:
				c.mode = hir.ActionBorrowShared
				inner.setClass(BorrowedShared)
				inner.LoanKind = LoanShared
				u.BorrowOK = true
			}
			if ci.sink != nil && ci.sink.binding.IsValid() {
				u.flowsTo = ci.sink.binding
			}
		}
	}
}
