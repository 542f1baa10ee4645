package ownership

import (
	"fmt"

	"borrowinfer/internal/hir"
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// BindingID and UseID index Result.Bindings and Result.Uses (zero is sentinel).
type (
	BindingID uint32
	UseID     uint32
	ScopeID   uint32
)

func (id BindingID) IsValid() bool { return id != 0 }
func (id UseID) IsValid() bool     { return id != 0 }

// Class is the base classification of a binding.
type Class uint8

const (
	ClassUnset Class = iota
	Owned
	BorrowedShared
	BorrowedMutable
)

func (c Class) String() string {
	switch c {
	case Owned:
		return "owned"
	case BorrowedShared:
		return "borrowed"
	case BorrowedMutable:
		return "borrowed_mut"
	}
	return "unset"
}

// IsBorrowed reports both borrowed classes.
func (c Class) IsBorrowed() bool {
	return c == BorrowedShared || c == BorrowedMutable
}

// Ownership maps a class onto the HIR qualifier written by the emitter.
func (c Class) Ownership(trivial bool) hir.Ownership {
	switch c {
	case BorrowedShared:
		return hir.OwnershipRef
	case BorrowedMutable:
		return hir.OwnershipRefMut
	case Owned:
		if trivial {
			return hir.OwnershipCopy
		}
		return hir.OwnershipOwn
	}
	return hir.OwnershipInfer
}

// BindingKind tells where a binding was introduced.
type BindingKind uint8

const (
	BindParam BindingKind = iota
	BindReceiver
	BindLet
	BindLoopVar
	BindClosureParam
	// BindCapture is the view a closure body has of a captured outer binding.
	BindCapture
)

func (k BindingKind) String() string {
	switch k {
	case BindParam:
		return "param"
	case BindReceiver:
		return "receiver"
	case BindLet:
		return "let"
	case BindLoopVar:
		return "loop var"
	case BindClosureParam:
		return "closure param"
	case BindCapture:
		return "capture"
	}
	return "?"
}

// Context is the syntactic position of a use.
type Context uint8

const (
	PlainRead Context = iota
	ComparisonOperand
	CallArgument
	IndexTarget
	IndexSubject
	LoopSource
	FieldAccessRoot
	MutatingReceiver
	ReturnValue
	// StoreValue is a value stored into a literal, a let or an assignment.
	StoreValue
	// Capture is the capture of an outer binding by a closure.
	Capture
)

var contextNames = [...]string{
	PlainRead:         "PlainRead",
	ComparisonOperand: "ComparisonOperand",
	CallArgument:      "CallArgument",
	IndexTarget:       "IndexTarget",
	IndexSubject:      "IndexSubject",
	LoopSource:        "LoopSource",
	FieldAccessRoot:   "FieldAccessRoot",
	MutatingReceiver:  "MutatingReceiver",
	ReturnValue:       "ReturnValue",
	StoreValue:        "StoreValue",
	Capture:           "Capture",
}

func (c Context) String() string {
	if int(c) < len(contextNames) {
		return contextNames[c]
	}
	return fmt.Sprintf("Context(%d)", c)
}

// PathElem is one step of the structured control-flow position of a use:
// an arm of an if statement or the body of a loop.
type PathElem struct {
	Branch uint32
	Arm    uint8
}

// ArmLoop marks a loop body in a path.
const ArmLoop uint8 = 0xff

// Path is the list of enclosing arms and loops, outermost first.
type Path []PathElem

// Exclusive reports whether p and q sit in different arms of the same if.
func (p Path) Exclusive(q Path) bool {
	n := min(len(p), len(q))
	for i := 0; i < n; i++ {
		if p[i] == q[i] {
			continue
		}
		return p[i].Branch == q[i].Branch && p[i].Arm != ArmLoop && q[i].Arm != ArmLoop
	}
	return false
}

// HasPrefix reports whether prefix encloses p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Contains reports whether p runs through elem.
func (p Path) Contains(elem PathElem) bool {
	for _, e := range p {
		if e == elem {
			return true
		}
	}
	return false
}

// Scope is a lexical region of the function body.
type Scope struct {
	ID      ScopeID
	Parent  ScopeID
	Loop    bool
	Closure bool
}

// LoanKind is the kind of borrow a derived binding holds on its root.
type LoanKind uint8

const (
	LoanNone LoanKind = iota
	LoanShared
	LoanMut
)

func (k LoanKind) String() string {
	switch k {
	case LoanShared:
		return "shared"
	case LoanMut:
		return "mutable"
	}
	return "none"
}

// Binding is a named value introduced by a parameter, let, loop variable or
// closure. Class is written exactly once.
type Binding struct {
	ID    BindingID
	Name  string
	Local hir.LocalID
	Type  types.TypeID
	Kind  BindingKind
	Scope ScopeID
	Span  source.Span
	Uses  []UseID

	// Declared is the qualifier fixed by the source, if any.
	Declared hir.Ownership
	// IsMut is the source's own 'mut' marker.
	IsMut bool

	Class Class

	RequiresMut bool
	Reassigned  bool
	NeedsMut    bool
	Consumed    bool

	Escapes   bool
	EscapeUse UseID

	// Origin is the use this binding's value was derived from, LoanKind the
	// borrow it holds on Origin's binding while alive.
	Origin   UseID
	LoanKind LoanKind
	// LoanEnd extends the loan to at least this ordinal (loop bodies).
	LoanEnd int

	declOrd   int
	loopDepth int
	path      Path
	frame     int
	// escapeSink marks bindings whose storage outlives the function (parameters).
	escapeSink bool
	closure    *closureInfo
	forData    *hir.ForData
	letData    *hir.LetData
	param      *hir.Param
	initUse    UseID
	initProj   *projection
	classSet   bool
}

func (b *Binding) setClass(c Class) {
	if b.classSet {
		panic(fmt.Sprintf("ownership: binding %q classified twice (%s, then %s)", b.Name, b.Class, c))
	}
	b.Class = c
	b.classSet = true
}

// UseSite is one reference to a binding.
type UseSite struct {
	ID        UseID
	Binding   BindingID
	Expr      *hir.Expr
	Context   Context
	Ord       int
	Path      Path
	LoopDepth int
	Scope     ScopeID
	Span      source.Span

	Final     bool
	Mutating  bool
	Consuming bool
	// BorrowOK is set when the consumer accepts a borrow instead of an owned value.
	BorrowOK bool
	Escapes  bool

	Action hir.Action
	Deref  bool
	Reason string

	// flowsTo is the binding the used value is stored into, if any.
	flowsTo  BindingID
	sink     *sink
	proj     *projection
	param    *paramTarget
	capture  *closureInfo
	resolved bool
}

func (u *UseSite) setAction(a hir.Action, reason string) {
	if u.resolved {
		panic(fmt.Sprintf("ownership: use %d resolved twice", u.ID))
	}
	u.Action = a
	u.Reason = reason
	u.resolved = true
}

// projection is a field access or index expression whose value is read.
type projection struct {
	expr     *hir.Expr
	root     UseID // use of the root binding; zero when the root is a temporary
	elem     types.TypeID
	consumed bool
	borrowOK bool
	escapes  bool
	sink     *sink
	holder   BindingID
	decided  bool

	action hir.Action
	reason string
}

// sink is where a produced value ends up.
type sink struct {
	binding BindingID // stored into this binding
	into    bool      // stored into the binding's storage rather than rebinding it
	escape  bool      // leaves the function
	param   *paramTarget
}

// paramTarget records the callee parameter a value is passed to.
type paramTarget struct {
	callee  hir.FuncID
	index   int // -1 for receiver
	escapes bool
}

// closureInfo tracks one closure expression.
type closureInfo struct {
	expr     *hir.Expr
	data     *hir.ClosureData
	frame    int
	ord      int
	path     Path
	depth    int
	scope    ScopeID
	sink     *sink
	captures []*captureInfo
	escapes  bool
}

type captureInfo struct {
	outer BindingID
	inner BindingID
	use   UseID
	mode  hir.Action
}

// kill is a plain reassignment of a binding.
type kill struct {
	binding BindingID
	ord     int
	path    Path
}
