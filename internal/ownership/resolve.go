package ownership

import (
	"fmt"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

func (a *analysis) capability(t types.TypeID) (triv, dup, known bool) {
	if e, ok := a.reg.Lookup(t); ok {
		return e.TriviallyDuplicable, e.Duplicable || e.TriviallyDuplicable, true
	}
	// unknown: never copied implicitly, duplicated where ownership is unclear
	return false, true, false
}

// capabilityAt is capability plus a once-per-type warning for unknown types.
func (a *analysis) capabilityAt(t types.TypeID, at source.Span) (triv, dup, known bool) {
	triv, dup, known = a.capability(t)
	if !known && !a.opts.QuietUnknown && !a.warned[t] {
		a.warned[t] = true
		diag.ReportWarning(a.rep, diag.OwnUnknownCapability, at,
			fmt.Sprintf("no capability entry for type %s; values of it are duplicated conservatively", a.typeLabel(t))).Emit()
	}
	return triv, dup, known
}

func (a *analysis) typeLabel(t types.TypeID) string {
	if a.opts.Types == nil {
		return fmt.Sprintf("#%d", t)
	}
	return types.Label(a.opts.Types, t)
}

func declaredClass(o hir.Ownership) (Class, bool) {
	switch o {
	case hir.OwnershipRef:
		return BorrowedShared, true
	case hir.OwnershipRefMut:
		return BorrowedMutable, true
	case hir.OwnershipOwn, hir.OwnershipCopy:
		return Owned, true
	}
	return ClassUnset, false
}

// classifyParams fixes parameter classes from what the body does with them.
func (a *analysis) classifyParams() {
	for _, p := range a.projections {
		if !p.consumed || p.borrowOK || !p.root.IsValid() {
			continue
		}
		if _, dup, known := a.capability(p.elem); known && !dup {
			a.bindings[a.uses[p.root].Binding].Consumed = true
		}
	}
	for _, b := range a.bindings[1:] {
		switch b.Kind {
		case BindParam, BindReceiver:
			b.setClass(a.paramClass(b))
		case BindClosureParam:
			c, ok := declaredClass(b.Declared)
			if !ok {
				c = Owned
			}
			b.setClass(c)
		}
	}
}

func (a *analysis) paramClass(b *Binding) Class {
	if c, ok := declaredClass(b.Declared); ok {
		return c
	}
	triv, _, known := a.capability(b.Type)
	switch {
	case b.Escapes, b.Consumed, b.Reassigned:
		return Owned
	case b.RequiresMut:
		return BorrowedMutable
	case known && triv:
		return Owned
	}
	return BorrowedShared
}

func (a *analysis) classOf(b *Binding) Class {
	if b.classSet {
		return b.Class
	}
	switch b.Kind {
	case BindLet:
		a.classifyLet(b)
	case BindLoopVar:
		a.classifyLoopVar(b)
	default:
		panic(fmt.Sprintf("ownership: %s: %s %q used before classification", a.fn.Name, b.Kind, b.Name))
	}
	return b.Class
}

func loanOf(c Class) LoanKind {
	switch c {
	case BorrowedShared:
		return LoanShared
	case BorrowedMutable:
		return LoanMut
	}
	return LoanNone
}

// classifyLet derives a let's class from how its initializer was resolved.
func (a *analysis) classifyLet(b *Binding) {
	c := Owned
	switch {
	case b.initUse.IsValid():
		u := a.uses[b.initUse]
		a.resolveUse(u)
		root := a.bindings[u.Binding]
		switch u.Action {
		case hir.ActionBorrowShared:
			c = BorrowedShared
		case hir.ActionBorrowMutable:
			c = BorrowedMutable
		case hir.ActionNoOp:
			if root.Class.IsBorrowed() {
				c = root.Class
			}
		}
		if c.IsBorrowed() {
			b.Origin = u.ID
		}
	case b.initProj != nil:
		p := b.initProj
		a.resolveProjection(p)
		switch p.action {
		case hir.ActionBorrowShared:
			c = BorrowedShared
		case hir.ActionBorrowMutable:
			c = BorrowedMutable
		}
		if c.IsBorrowed() {
			b.Origin = p.root
		}
	}
	b.LoanKind = loanOf(c)
	b.setClass(c)
}

func (a *analysis) classifyLoopVar(b *Binding) {
	li := a.loops[b.forData]
	a.decideAuto(li)
	if li.source.IsValid() {
		a.resolveUse(a.uses[li.source])
	} else if li.proj != nil {
		a.resolveProjection(li.proj)
	}
	triv, _, _ := a.capability(b.Type)
	switch li.mode {
	case hir.IterConsume:
		b.setClass(Owned)
	case hir.IterBorrowMut:
		b.setClass(BorrowedMutable)
		b.LoanKind = LoanMut
	case hir.IterCopy:
		b.setClass(Owned)
		b.LoanKind = LoanShared
	default:
		if triv {
			li.mode = hir.IterCopy
			b.setClass(Owned)
		} else {
			li.mode = hir.IterBorrow
			b.setClass(BorrowedShared)
		}
		b.LoanKind = LoanShared
	}
}

// decideAuto picks the iteration mode of a loop left to the engine:
// mutable when the loop variable is mutated, by value when this is the
// iterable's final use and the iterable is owned, shared otherwise.
func (a *analysis) decideAuto(li *loopInfo) {
	if li.mode != hir.IterAuto {
		return
	}
	v := a.bindings[li.v]
	var src *UseSite
	if li.source.IsValid() {
		src = a.uses[li.source]
	} else if li.proj != nil && li.proj.root.IsValid() {
		src = a.uses[li.proj.root]
	}
	switch {
	case v.RequiresMut:
		li.mode = hir.IterBorrowMut
		if src != nil && !src.resolved {
			src.Mutating = true
		}
	case li.source.IsValid() && src.Final && !src.resolved && a.classOf(a.bindings[src.Binding]) == Owned:
		li.mode = hir.IterConsume
		src.Consuming, src.BorrowOK = true, false
	default:
		li.mode = hir.IterBorrow
	}
}

// resolve decides an action for every use and projection.
func (a *analysis) resolve() {
	for _, b := range a.bindings[1:] {
		a.classOf(b)
	}
	for _, u := range a.uses[1:] {
		a.resolveUse(u)
	}
	for _, p := range a.projections {
		a.resolveProjection(p)
	}
}

func (a *analysis) resolveUse(u *UseSite) {
	if u.resolved {
		return
	}
	if li, ok := a.loopSrc[u.ID]; ok {
		a.decideAuto(li)
	}
	b := a.bindings[u.Binding]
	c := a.classOf(b)
	if u.resolved {
		return
	}
	if u.proj != nil {
		a.resolveProjection(u.proj)
		if u.proj.action == hir.ActionMove {
			u.setAction(hir.ActionMove, "element moved out of final use")
			return
		}
	}
	triv, dup, _ := a.capabilityAt(b.Type, u.Span)

	switch {
	case u.Mutating:
		a.resolveMutation(u, b, c)
	case u.Consuming && (u.Escapes || !u.BorrowOK):
		a.resolveConsume(u, b, c, triv, dup)
	case u.Consuming:
		a.resolveStore(u, b, c, triv, dup)
	default:
		switch {
		case c.IsBorrowed():
			u.setAction(hir.ActionNoOp, "already a borrow")
		case triv:
			u.setAction(hir.ActionNoOp, "copy type")
		default:
			u.setAction(hir.ActionBorrowShared, "read")
		}
	}
}

func (a *analysis) resolveMutation(u *UseSite, b *Binding, c Class) {
	switch c {
	case BorrowedShared:
		a.mutThroughShared(u, b)
		u.setAction(hir.ActionNoOp, "mutation through shared borrow")
	case BorrowedMutable:
		u.setAction(hir.ActionNoOp, "already a mutable borrow")
	default:
		b.NeedsMut = true
		switch u.Context {
		case MutatingReceiver, CallArgument, LoopSource, Capture:
			u.setAction(hir.ActionBorrowMutable, "mutated by callee")
		default:
			u.setAction(hir.ActionNoOp, "mutated in place")
		}
	}
}

// resolveConsume handles uses that need an owned value.
func (a *analysis) resolveConsume(u *UseSite, b *Binding, c Class, triv, dup bool) {
	if c.IsBorrowed() {
		switch {
		case triv:
			u.setAction(hir.ActionDereference, "copied out of borrow")
		case dup:
			u.setAction(hir.ActionDuplicate, "owned value needed from borrow")
		default:
			a.escapingBorrow(u, b)
			u.setAction(hir.ActionNoOp, "borrow cannot be owned")
		}
		return
	}
	switch {
	case u.Final && u.Escapes:
		u.setAction(hir.ActionMove, "escapes")
	case u.Final:
		u.setAction(hir.ActionMove, "final use")
	case dup:
		u.setAction(hir.ActionDuplicate, "used later")
	default:
		a.useAfterMove(u, b)
		u.setAction(hir.ActionMove, "moved while still in use")
	}
}

// resolveStore handles initializers that accept a borrow.
func (a *analysis) resolveStore(u *UseSite, b *Binding, c Class, triv, dup bool) {
	if c.IsBorrowed() {
		if triv {
			u.setAction(hir.ActionDereference, "copied out of borrow")
		} else {
			u.setAction(hir.ActionNoOp, "reborrow")
		}
		return
	}
	switch {
	case u.Final:
		u.setAction(hir.ActionMove, "final use")
	case dup:
		u.setAction(hir.ActionDuplicate, "used later")
	case u.flowsTo.IsValid() && a.bindings[u.flowsTo].RequiresMut:
		b.NeedsMut = true
		u.setAction(hir.ActionBorrowMutable, "borrowed mutably by "+a.bindings[u.flowsTo].Name)
	default:
		name := "holder"
		if u.flowsTo.IsValid() {
			name = a.bindings[u.flowsTo].Name
		}
		u.setAction(hir.ActionBorrowShared, "borrowed by "+name)
	}
}

// resolveProjection decides the action of a field access or index whose
// value is consumed. Order matters: a borrowed root never gives up its
// elements, an owned root gives them up at its final use, and only then
// do copies and loans come in.
func (a *analysis) resolveProjection(p *projection) {
	if p.decided {
		return
	}
	p.decided = true
	var root *UseSite
	var rb *Binding
	if p.root.IsValid() {
		root = a.uses[p.root]
		rb = a.bindings[root.Binding]
		a.classOf(rb)
	}
	if !p.consumed {
		p.action, p.reason = hir.ActionNoOp, "place"
		return
	}
	triv, dup, _ := a.capabilityAt(p.elem, p.expr.Span)
	escaping := p.escapes || !p.borrowOK

	loan := func() {
		if p.holder.IsValid() && a.bindings[p.holder].RequiresMut && (rb == nil || rb.Class != BorrowedShared) {
			if rb != nil && rb.Class == Owned {
				rb.NeedsMut = true
			}
			p.action, p.reason = hir.ActionBorrowMutable, "element borrowed mutably"
			return
		}
		p.action, p.reason = hir.ActionBorrowShared, "element borrowed"
	}

	switch {
	case rb != nil && rb.Class.IsBorrowed() && triv:
		p.action, p.reason = hir.ActionDuplicate, "copied out of borrowed collection"
	case rb != nil && rb.Class.IsBorrowed():
		switch {
		case escaping && dup:
			p.action, p.reason = hir.ActionDuplicate, "owned element needed from borrowed collection"
		case escaping:
			a.escapingElement(p, rb)
			p.action, p.reason = hir.ActionNoOp, "element of borrow cannot be owned"
		default:
			loan()
		}
	case rb == nil || root.Final:
		p.action, p.reason = hir.ActionMove, "final use of owned collection"
	case dup:
		p.action, p.reason = hir.ActionDuplicate, "collection used later"
	case escaping:
		a.moveOutOfLive(p, root, rb)
		p.action, p.reason = hir.ActionNoOp, "element of live collection cannot be moved"
	default:
		loan()
	}
}
