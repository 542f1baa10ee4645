package ownership

import (
	"sort"

	"borrowinfer/internal/hir"
)

// ParamSummary is what callers need to know about one parameter.
type ParamSummary struct {
	Name     string
	Class    Class
	Escapes  bool
	Mutated  bool
	Consumed bool
}

// Mode is the demand a caller's argument must satisfy.
func (p ParamSummary) Mode() hir.Ownership {
	switch p.Class {
	case BorrowedShared:
		return hir.OwnershipRef
	case BorrowedMutable:
		return hir.OwnershipRefMut
	}
	return hir.OwnershipOwn
}

// Summary is the ownership signature of an analysed function.
type Summary struct {
	Func     hir.FuncID
	Name     string
	Receiver *ParamSummary
	Params   []ParamSummary
	// Resolved is false for functions analysed with unresolved callees of
	// their own call cycle.
	Resolved bool
}

// Param returns the summary of parameter i, or of the receiver for i == -1.
func (s *Summary) Param(i int) (ParamSummary, bool) {
	if s == nil {
		return ParamSummary{}, false
	}
	if i < 0 {
		if s.Receiver == nil {
			return ParamSummary{}, false
		}
		return *s.Receiver, true
	}
	if i >= len(s.Params) {
		return ParamSummary{}, false
	}
	return s.Params[i], true
}

// SummaryLookup gives read-only access to callee summaries.
type SummaryLookup interface {
	Summary(hir.FuncID) (*Summary, bool)
}

// Summaries is an immutable SummaryLookup snapshot.
type Summaries map[hir.FuncID]*Summary

// Summary implements SummaryLookup.
func (s Summaries) Summary(id hir.FuncID) (*Summary, bool) {
	sum, ok := s[id]
	return sum, ok
}

// With returns a new snapshot extended by add; s is left untouched.
func (s Summaries) With(add ...*Summary) Summaries {
	out := make(Summaries, len(s)+len(add))
	for id, sum := range s {
		out[id] = sum
	}
	for _, sum := range add {
		if sum != nil {
			out[sum.Func] = sum
		}
	}
	return out
}

// IDs returns the summarised function ids in ascending order.
func (s Summaries) IDs() []hir.FuncID {
	ids := make([]hir.FuncID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func paramSummary(b *Binding) ParamSummary {
	return ParamSummary{
		Name:     b.Name,
		Class:    b.Class,
		Escapes:  b.Escapes,
		Mutated:  b.RequiresMut,
		Consumed: b.Consumed,
	}
}

// DeclaredSummary builds the summary of a function without a body from what
// its declaration fixes. Parameters without a declared mode are owned and
// assumed to escape.
func DeclaredSummary(fn *hir.Func) *Summary {
	declared := func(p *hir.Param) ParamSummary {
		ps := ParamSummary{Name: p.Name}
		switch p.Declared {
		case hir.OwnershipRef:
			ps.Class = BorrowedShared
		case hir.OwnershipRefMut:
			ps.Class = BorrowedMutable
			ps.Mutated = true
		case hir.OwnershipOwn, hir.OwnershipCopy:
			ps.Class, ps.Consumed = Owned, true
		default:
			ps.Class, ps.Consumed, ps.Escapes = Owned, true, true
		}
		return ps
	}
	sum := &Summary{Func: fn.ID, Name: fn.Name, Resolved: true}
	if fn.Receiver != nil {
		recv := declared(fn.Receiver)
		sum.Receiver = &recv
	}
	for i := range fn.Params {
		sum.Params = append(sum.Params, declared(&fn.Params[i]))
	}
	return sum
}
