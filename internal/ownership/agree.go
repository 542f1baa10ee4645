package ownership

import (
	"borrowinfer/internal/hir"
	"borrowinfer/internal/types"
)

type level uint8

const (
	levelOwned level = iota
	levelBorrowed
)

// Agree makes both sides of every comparison and assignment sit at the same
// indirection level by marking the borrowed side for dereference. Levels are
// read from resolved actions only, never from Deref, so running Agree again
// changes nothing. It returns the number of newly marked expressions.
func Agree(res *Result) int {
	if res == nil || res.Func == nil {
		return 0
	}
	n := 0
	pair := func(l, r *hir.Expr) {
		if l == nil || r == nil {
			return
		}
		ll, rl := res.level(l), res.level(r)
		switch {
		case ll == rl:
		case ll == levelBorrowed:
			n += res.markDeref(l)
		default:
			n += res.markDeref(r)
		}
	}
	hir.WalkFunc(res.Func, hir.Visitor{
		Stmt: func(s *hir.Stmt) {
			if data, ok := s.Data.(*hir.AssignData); ok {
				pair(data.Target, data.Value)
			}
		},
		Expr: func(e *hir.Expr) bool {
			if data, ok := e.Data.(hir.BinaryData); ok && data.Op.IsComparison() {
				pair(data.Left, data.Right)
			}
			return true
		},
	})
	res.Stats.Derefs += n
	return n
}

func (res *Result) level(e *hir.Expr) level {
	switch e.Kind {
	case hir.ExprVarRef:
		if u := res.useByExpr[e]; u != nil {
			switch u.Action {
			case hir.ActionBorrowShared, hir.ActionBorrowMutable:
				return levelBorrowed
			case hir.ActionNoOp:
				if res.Binding(u.Binding).Class.IsBorrowed() {
					return levelBorrowed
				}
			}
			return levelOwned
		}
		if b := res.bindingByExpr[e]; b != nil && b.Class.IsBorrowed() {
			return levelBorrowed
		}
	case hir.ExprFieldAccess, hir.ExprIndex:
		if p := res.projByExpr[e]; p != nil && p.action.IsBorrow() {
			return levelBorrowed
		}
	case hir.ExprCall, hir.ExprMethodCall:
		if entry, ok := res.reg.Lookup(e.Type); ok && entry.Kind == types.KindReference {
			return levelBorrowed
		}
	}
	return levelOwned
}

func (res *Result) markDeref(e *hir.Expr) int {
	if e.Own.Deref {
		return 0
	}
	e.Own.Deref = true
	if u := res.useByExpr[e]; u != nil {
		u.Deref = true
	}
	return 1
}
