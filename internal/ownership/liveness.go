package ownership

import "borrowinfer/internal/hir"

// markFinal sets UseSite.Final: a use is final when no later use of the
// same binding is reachable from it and it does not repeat inside a loop
// the binding was declared outside of.
func (a *analysis) markFinal() {
	for _, b := range a.bindings[1:] {
		for _, id := range b.Uses {
			u := a.uses[id]
			u.Final = a.isFinal(b, u)
		}
	}
}

func (a *analysis) isFinal(b *Binding, u *UseSite) bool {
	if u.LoopDepth > b.loopDepth {
		return false
	}
	return a.nextReachable(b, u) == nil
}

// nextReachable returns the first use of b that may execute after u.
func (a *analysis) nextReachable(b *Binding, u *UseSite) *UseSite {
	for _, id := range b.Uses {
		v := a.uses[id]
		if v.Ord <= u.Ord {
			continue
		}
		if a.reachable(b, u, v) {
			return v
		}
	}
	return nil
}

func (a *analysis) reachable(b *Binding, u, v *UseSite) bool {
	if u.Path.Exclusive(v.Path) {
		return false
	}
	// u sits in an arm ending in return which v is not part of
	for _, el := range u.Path {
		if el.Arm != ArmLoop && a.terminating[el] && !v.Path.Contains(el) {
			return false
		}
	}
	// a reassignment on every path to v starts a new value
	for _, k := range a.kills[b.ID] {
		if k.ord > u.Ord && k.ord < v.Ord && v.Path.HasPrefix(k.path) {
			return false
		}
	}
	return true
}

// lastOrd is the ordinal of the latest use of b (its declaration if unused).
func (a *analysis) lastOrd(b *Binding) int {
	last := b.declOrd
	for _, id := range b.Uses {
		last = max(last, a.uses[id].Ord)
	}
	return last
}

// propagateMut pushes mutation requirements from derived bindings onto the
// bindings they were derived from, until nothing changes.
func (a *analysis) propagateMut() {
	for changed := true; changed; {
		changed = false
		for _, h := range a.bindings[1:] {
			if !h.RequiresMut {
				continue
			}
			origin := a.derivedFrom(h)
			if origin == nil {
				continue
			}
			if root := a.bindings[origin.Binding]; !root.RequiresMut {
				root.RequiresMut = true
				changed = true
			}
		}
	}
}

// derivedFrom returns the use a let or auto loop variable takes its value from.
func (a *analysis) derivedFrom(h *Binding) *UseSite {
	switch h.Kind {
	case BindLet:
		if h.initUse.IsValid() {
			return a.uses[h.initUse]
		}
		if h.initProj != nil && h.initProj.root.IsValid() {
			return a.uses[h.initProj.root]
		}
	case BindLoopVar:
		if h.forData.Mode == hir.IterAuto && h.Origin.IsValid() {
			return a.uses[h.Origin]
		}
	}
	return nil
}
