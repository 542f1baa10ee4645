package ownership

import (
	"fmt"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/source"
)

// borrowSpan points at where a borrowed binding got its borrow.
func (a *analysis) borrowSpan(b *Binding) source.Span {
	if b.Origin.IsValid() {
		return a.uses[b.Origin].Span
	}
	return b.Span
}

func (a *analysis) mutThroughShared(u *UseSite, b *Binding) {
	diag.ReportError(a.rep, diag.OwnMutThroughShared, u.Span,
		fmt.Sprintf("cannot mutate `%s` through a shared borrow", b.Name)).
		WithNote(a.borrowSpan(b), fmt.Sprintf("`%s` is a shared borrow from here", b.Name)).
		Emit()
}

func (a *analysis) escapingBorrow(u *UseSite, b *Binding) {
	code := diag.OwnConflict
	msg := fmt.Sprintf("cannot move `%s` out of a borrow; type %s cannot be duplicated", b.Name, a.typeLabel(b.Type))
	if u.Escapes {
		code = diag.OwnEscapingBorrow
		msg = fmt.Sprintf("borrowed value `%s` escapes, but type %s cannot be duplicated", b.Name, a.typeLabel(b.Type))
	}
	diag.ReportError(a.rep, code, u.Span, msg).
		WithNote(a.borrowSpan(b), "borrowed here").
		Emit()
}

func (a *analysis) escapingElement(p *projection, rb *Binding) {
	code := diag.OwnConflict
	msg := fmt.Sprintf("cannot move element of type %s out of borrowed `%s`", a.typeLabel(p.elem), rb.Name)
	if p.escapes {
		code = diag.OwnEscapingBorrow
		msg = fmt.Sprintf("element of borrowed `%s` escapes, but type %s cannot be duplicated", rb.Name, a.typeLabel(p.elem))
	}
	diag.ReportError(a.rep, code, p.expr.Span, msg).
		WithNote(a.borrowSpan(rb), "borrowed here").
		Emit()
}

func (a *analysis) moveOutOfLive(p *projection, root *UseSite, rb *Binding) {
	rep := diag.ReportError(a.rep, diag.OwnConflict, p.expr.Span,
		fmt.Sprintf("cannot move element of type %s out of `%s`, which is used later", a.typeLabel(p.elem), rb.Name))
	if next := a.nextReachable(rb, root); next != nil {
		rep = rep.WithNote(next.Span, "later used here")
	}
	rep.Emit()
}

func (a *analysis) useAfterMove(u *UseSite, b *Binding) {
	next := a.nextReachable(b, u)
	if next == nil {
		diag.ReportError(a.rep, diag.OwnUseAfterMove, u.Span,
			fmt.Sprintf("value `%s` of type %s moved in a previous iteration of the loop", b.Name, a.typeLabel(b.Type))).
			WithNote(b.Span, "declared here").
			Emit()
		return
	}
	diag.ReportError(a.rep, diag.OwnUseAfterMove, next.Span,
		fmt.Sprintf("use of moved value `%s`", b.Name)).
		WithNote(u.Span, fmt.Sprintf("value moved here; type %s cannot be duplicated", a.typeLabel(b.Type))).
		Emit()
}

// lastUse returns the latest use of b, or nil.
func (a *analysis) lastUse(b *Binding) *UseSite {
	var last *UseSite
	for _, id := range b.Uses {
		if u := a.uses[id]; last == nil || u.Ord > last.Ord {
			last = u
		}
	}
	return last
}

// checkLoans reports uses of a binding that collide with a borrow another
// binding holds on it. A loan lives from its origin to the holder's last
// use, to the end of the loop for loop variables, and to the last use of
// the closure for captures.
func (a *analysis) checkLoans() {
	for _, h := range a.bindings[1:] {
		if h.LoanKind == LoanNone || !h.Origin.IsValid() {
			continue
		}
		origin := a.uses[h.Origin]
		root := a.bindings[origin.Binding]
		end := max(h.LoanEnd, a.lastOrd(h))
		last := a.lastUse(h)
		if h.Kind == BindCapture && h.closure.sink != nil && h.closure.sink.binding.IsValid() {
			holder := a.bindings[h.closure.sink.binding]
			if hl := a.lastUse(holder); hl != nil && hl.Ord > end {
				end, last = hl.Ord, hl
			}
		}
		if end <= origin.Ord {
			continue
		}
		for _, id := range root.Uses {
			v := a.uses[id]
			if v == origin || v.Ord <= origin.Ord || v.Ord > end || v.Path.Exclusive(origin.Path) {
				continue
			}
			var msg string
			switch {
			case h.LoanKind == LoanMut:
				msg = fmt.Sprintf("cannot use `%s` while it is mutably borrowed by `%s`", root.Name, h.Name)
			case v.Mutating:
				msg = fmt.Sprintf("cannot mutate `%s` while it is borrowed by `%s`", root.Name, h.Name)
			case v.Action == hir.ActionMove:
				msg = fmt.Sprintf("cannot move `%s` while it is borrowed by `%s`", root.Name, h.Name)
			default:
				continue
			}
			rep := diag.ReportError(a.rep, diag.OwnConflict, v.Span, msg).
				WithNote(origin.Span, fmt.Sprintf("`%s` borrowed here", root.Name))
			if last != nil && last.Ord > v.Ord {
				rep = rep.WithNote(last.Span, "borrow later used here")
			}
			rep.Emit()
			break
		}
	}
}
