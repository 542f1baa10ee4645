package hir

import (
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	// ExprLiteral represents literals (int, float, bool, string, char).
	ExprLiteral ExprKind = iota
	// ExprVarRef represents a variable reference. Every VarRef is a use site.
	ExprVarRef
	// ExprUnary represents unary operators (-, !).
	ExprUnary
	// ExprBinary represents binary operators (+, -, ==, <, ...).
	ExprBinary
	// ExprCall represents a call of a free function.
	ExprCall
	// ExprMethodCall represents recv.method(args).
	ExprMethodCall
	// ExprFieldAccess represents field access (expr.field).
	ExprFieldAccess
	// ExprIndex represents indexing (expr[index]).
	ExprIndex
	// ExprStructLit represents struct literals (Type { field: value, ... }).
	ExprStructLit
	// ExprArrayLit represents array literals ([a, b, c]).
	ExprArrayLit
	// ExprTupleLit represents tuple literals ((a, b, c)).
	ExprTupleLit
	// ExprClosure represents |params| body.
	ExprClosure
)

var exprKindNames = [...]string{
	ExprLiteral:     "Literal",
	ExprVarRef:      "VarRef",
	ExprUnary:       "Unary",
	ExprBinary:      "Binary",
	ExprCall:        "Call",
	ExprMethodCall:  "MethodCall",
	ExprFieldAccess: "FieldAccess",
	ExprIndex:       "Index",
	ExprStructLit:   "StructLit",
	ExprArrayLit:    "ArrayLit",
	ExprTupleLit:    "TupleLit",
	ExprClosure:     "Closure",
}

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "Unknown"
}

// Expr represents an HIR expression with type information.
type Expr struct {
	ID   NodeID
	Kind ExprKind
	Type types.TypeID // Always filled by the type checker
	Span source.Span  // Source location for diagnostics
	Data ExprData     // Kind-specific payload
	Own  Annotation   // Written by the ownership engine
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
	LiteralString
	LiteralChar
	LiteralUnit
)

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Kind LiteralKind
	Text string // Raw literal text
}

func (LiteralData) exprData() {}

// VarRefData holds data for ExprVarRef.
type VarRefData struct {
	Name  string
	Local LocalID
}

func (VarRefData) exprData() {}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// UnaryData holds data for ExprUnary.
type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	OpNone BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpNames = [...]string{
	OpNone: "",
	OpAdd:  "+",
	OpSub:  "-",
	OpMul:  "*",
	OpDiv:  "/",
	OpRem:  "%",
	OpAnd:  "&&",
	OpOr:   "||",
	OpEq:   "==",
	OpNe:   "!=",
	OpLt:   "<",
	OpLe:   "<=",
	OpGt:   ">",
	OpGe:   ">=",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// ParseBinaryOp maps operator text back to BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, name := range binaryOpNames {
		if name == s {
			return BinaryOp(i), true
		}
	}
	return OpNone, false
}

// IsComparison reports operators whose operands must agree in reference level.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// BinaryData holds data for ExprBinary.
type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

// CallData holds data for ExprCall.
// Callee is set when the target is a function of the program; otherwise
// Name identifies an external function and ParamModes carries what its
// declaration fixed. A call with neither is unresolved.
type CallData struct {
	Callee     FuncID
	Name       string
	Args       []*Expr
	ParamModes []Ownership
}

func (CallData) exprData() {}

// MethodCallData holds data for ExprMethodCall.
type MethodCallData struct {
	Receiver        *Expr
	Method          string
	Callee          FuncID
	Args            []*Expr
	ReceiverMode    Ownership
	MutatesReceiver bool
	ParamModes      []Ownership
}

func (MethodCallData) exprData() {}

// FieldAccessData holds data for ExprFieldAccess.
type FieldAccessData struct {
	Object *Expr
	Field  string
}

func (FieldAccessData) exprData() {}

// IndexData holds data for ExprIndex.
type IndexData struct {
	Object *Expr
	Index  *Expr
}

func (IndexData) exprData() {}

// FieldInit is one field of a struct literal.
type FieldInit struct {
	Name  string
	Value *Expr
}

// StructLitData holds data for ExprStructLit.
type StructLitData struct {
	Name   string
	Fields []FieldInit
}

func (StructLitData) exprData() {}

// ArrayLitData holds data for ExprArrayLit.
type ArrayLitData struct {
	Elems []*Expr
}

func (ArrayLitData) exprData() {}

// TupleLitData holds data for ExprTupleLit.
type TupleLitData struct {
	Elems []*Expr
}

func (TupleLitData) exprData() {}

// ClosureData holds data for ExprClosure. Captures is written by the engine.
type ClosureData struct {
	Params   []Param
	Result   types.TypeID
	Body     *Block
	Captures []Capture
}

func (*ClosureData) exprData() {}
