package hir

import (
	"borrowinfer/internal/source"
)

// Block represents a sequence of statements in HIR.
type Block struct {
	Stmts []Stmt
	Span  source.Span
}

// IsEmpty returns true if the block has no statements.
func (b *Block) IsEmpty() bool {
	return b == nil || len(b.Stmts) == 0
}

// LastStmt returns the last statement in the block, or nil if empty.
func (b *Block) LastStmt() *Stmt {
	if b.IsEmpty() {
		return nil
	}
	return &b.Stmts[len(b.Stmts)-1]
}

// Terminates reports whether control never falls off the end of the block:
// the last statement returns, or is an if whose both arms terminate.
func (b *Block) Terminates() bool {
	last := b.LastStmt()
	if last == nil {
		return false
	}
	switch last.Kind {
	case StmtReturn:
		return true
	case StmtIf:
		data, ok := last.Data.(*IfStmtData)
		return ok && data.Else != nil && data.Then.Terminates() && data.Else.Terminates()
	case StmtBlock:
		data, ok := last.Data.(*BlockStmtData)
		return ok && data.Block.Terminates()
	}
	return false
}
