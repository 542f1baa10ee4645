package hir

// Ownership represents the ownership qualifier for a binding or parameter.
type Ownership uint8

const (
	// OwnershipInfer means nothing was declared; the engine decides.
	OwnershipInfer Ownership = iota
	// OwnershipOwn indicates owned value.
	OwnershipOwn
	// OwnershipRef indicates shared reference (&T).
	OwnershipRef
	// OwnershipRefMut indicates mutable reference (&mut T).
	OwnershipRefMut
	// OwnershipCopy indicates an owned value of a trivially duplicable type.
	OwnershipCopy
)

// String returns a human-readable representation of the ownership.
func (o Ownership) String() string {
	switch o {
	case OwnershipInfer:
		return ""
	case OwnershipOwn:
		return "own"
	case OwnershipRef:
		return "&"
	case OwnershipRefMut:
		return "&mut"
	case OwnershipCopy:
		return "copy"
	default:
		return "?"
	}
}

// ParseOwnership is the inverse of String; "" and "infer" map to OwnershipInfer.
func ParseOwnership(s string) (Ownership, bool) {
	switch s {
	case "", "infer":
		return OwnershipInfer, true
	case "own":
		return OwnershipOwn, true
	case "&", "ref":
		return OwnershipRef, true
	case "&mut", "refmut":
		return OwnershipRefMut, true
	case "copy":
		return OwnershipCopy, true
	}
	return OwnershipInfer, false
}

// IsBorrow reports reference qualifiers.
func (o Ownership) IsBorrow() bool {
	return o == OwnershipRef || o == OwnershipRefMut
}

// Action is the resolved ownership action at a use site.
type Action uint8

const (
	ActionNoOp Action = iota
	ActionMove
	ActionBorrowShared
	ActionBorrowMutable
	ActionDuplicate
	ActionDereference

	ActionCount
)

var actionNames = [...]string{
	ActionNoOp:          "noop",
	ActionMove:          "move",
	ActionBorrowShared:  "borrow",
	ActionBorrowMutable: "borrow_mut",
	ActionDuplicate:     "dup",
	ActionDereference:   "deref",
}

func (a Action) String() string {
	if a < ActionCount {
		return actionNames[a]
	}
	return "?"
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, bool) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), true
		}
	}
	return ActionNoOp, false
}

// IsBorrow reports the two borrowing actions.
func (a Action) IsBorrow() bool {
	return a == ActionBorrowShared || a == ActionBorrowMutable
}

// Annotation is the engine's decision attached to an expression.
// Deref is set only by the agreement pass and asks code generation to
// dereference the operand after applying Action.
type Annotation struct {
	Action Action
	Deref  bool
	Reason string
}

// IsZero reports an expression the engine did not annotate.
func (a Annotation) IsZero() bool {
	return a == Annotation{}
}

// IterMode describes how a for-loop walks its iterable.
type IterMode uint8

const (
	// IterAuto lets the engine choose.
	IterAuto IterMode = iota
	// IterBorrow iterates over shared references (xs.iter()).
	IterBorrow
	// IterBorrowMut iterates over mutable references (xs.iter_mut()).
	IterBorrowMut
	// IterConsume iterates by value, consuming the iterable.
	IterConsume
	// IterCopy iterates by value over a borrowed iterable of trivially duplicable elements.
	IterCopy
)

func (m IterMode) String() string {
	switch m {
	case IterAuto:
		return "auto"
	case IterBorrow:
		return "iter"
	case IterBorrowMut:
		return "iter_mut"
	case IterConsume:
		return "into_iter"
	case IterCopy:
		return "copied"
	default:
		return "?"
	}
}

// ParseIterMode is the inverse of IterMode.String.
func ParseIterMode(s string) (IterMode, bool) {
	for m := IterAuto; m <= IterCopy; m++ {
		if m.String() == s {
			return m, true
		}
	}
	if s == "" {
		return IterAuto, true
	}
	return IterAuto, false
}

// Capture records how a closure captured one outer binding.
type Capture struct {
	Name  string
	Local LocalID
	Mode  Action
}
