package hir

import (
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	// StmtLet represents variable declaration (let x = ...).
	StmtLet StmtKind = iota
	// StmtExpr represents an expression statement.
	StmtExpr
	// StmtAssign represents assignment (lhs = rhs, lhs op= rhs).
	StmtAssign
	// StmtReturn represents return statement.
	StmtReturn
	// StmtBreak represents break statement.
	StmtBreak
	// StmtContinue represents continue statement.
	StmtContinue
	// StmtIf represents if/else statement.
	StmtIf
	// StmtWhile represents while loop.
	StmtWhile
	// StmtFor represents for-in loop.
	StmtFor
	// StmtBlock represents a nested block.
	StmtBlock
)

var stmtKindNames = [...]string{
	StmtLet:      "Let",
	StmtExpr:     "Expr",
	StmtAssign:   "Assign",
	StmtReturn:   "Return",
	StmtBreak:    "Break",
	StmtContinue: "Continue",
	StmtIf:       "If",
	StmtWhile:    "While",
	StmtFor:      "For",
	StmtBlock:    "Block",
}

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return "Unknown"
}

// Stmt represents an HIR statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData // Kind-specific payload
}

// StmtData is the interface for statement-specific data.
type StmtData interface {
	stmtData()
}

// LetData holds data for StmtLet.
type LetData struct {
	Name      string
	Local     LocalID
	Type      types.TypeID
	Value     *Expr // nil if none
	IsMut     bool  // declared 'let mut'
	Ownership Ownership
	NeedsMut  bool
}

func (*LetData) stmtData() {}

// ExprStmtData holds data for StmtExpr.
type ExprStmtData struct {
	Expr *Expr
}

func (*ExprStmtData) stmtData() {}

// AssignData holds data for StmtAssign. Op is OpNone for plain assignment.
type AssignData struct {
	Target *Expr
	Value  *Expr
	Op     BinaryOp
}

func (*AssignData) stmtData() {}

// ReturnData holds data for StmtReturn.
type ReturnData struct {
	Value *Expr // nil for bare return
}

func (*ReturnData) stmtData() {}

// BreakData holds data for StmtBreak.
type BreakData struct{}

func (*BreakData) stmtData() {}

// ContinueData holds data for StmtContinue.
type ContinueData struct{}

func (*ContinueData) stmtData() {}

// IfStmtData holds data for StmtIf.
type IfStmtData struct {
	Cond *Expr
	Then *Block
	Else *Block // nil if no else branch
}

func (*IfStmtData) stmtData() {}

// WhileData holds data for StmtWhile.
type WhileData struct {
	Cond *Expr
	Body *Block
}

func (*WhileData) stmtData() {}

// ForData holds data for StmtFor. Mode is what the source asked for,
// Iter is what the engine chose.
type ForData struct {
	VarName  string
	Local    LocalID
	VarType  types.TypeID
	Iterable *Expr
	Mode     IterMode
	Body     *Block
	Iter     IterMode
	NeedsMut bool
}

func (*ForData) stmtData() {}

// BlockStmtData holds data for StmtBlock.
type BlockStmtData struct {
	Block *Block
}

func (*BlockStmtData) stmtData() {}
