package hir

import (
	"fmt"

	"fortio.org/safecast"
)

// Visitor receives every statement and expression of a body in pre-order.
// Returning false from Expr skips the children of that expression.
type Visitor struct {
	Stmt func(*Stmt)
	Expr func(*Expr) bool
}

// WalkFunc visits the body of fn including closure bodies.
func WalkFunc(fn *Func, v Visitor) {
	if fn == nil || fn.Body == nil {
		return
	}
	WalkBlock(fn.Body, v)
}

// WalkBlock visits every statement of b in order.
func WalkBlock(b *Block, v Visitor) {
	if b == nil {
		return
	}
	for i := range b.Stmts {
		walkStmt(&b.Stmts[i], v)
	}
}

func walkStmt(s *Stmt, v Visitor) {
	if v.Stmt != nil {
		v.Stmt(s)
	}
	switch data := s.Data.(type) {
	case *LetData:
		WalkExpr(data.Value, v)
	case *ExprStmtData:
		WalkExpr(data.Expr, v)
	case *AssignData:
		WalkExpr(data.Target, v)
		WalkExpr(data.Value, v)
	case *ReturnData:
		WalkExpr(data.Value, v)
	case *IfStmtData:
		WalkExpr(data.Cond, v)
		WalkBlock(data.Then, v)
		WalkBlock(data.Else, v)
	case *WhileData:
		WalkExpr(data.Cond, v)
		WalkBlock(data.Body, v)
	case *ForData:
		WalkExpr(data.Iterable, v)
		WalkBlock(data.Body, v)
	case *BlockStmtData:
		WalkBlock(data.Block, v)
	case *BreakData, *ContinueData:
	default:
		panic(fmt.Sprintf("hir: unexpected statement data %T for %s", s.Data, s.Kind))
	}
}

// WalkExpr visits e and its children in pre-order.
func WalkExpr(e *Expr, v Visitor) {
	if e == nil {
		return
	}
	if v.Expr != nil && !v.Expr(e) {
		return
	}
	for _, child := range Children(e) {
		WalkExpr(child, v)
	}
	if c, ok := e.Data.(*ClosureData); ok {
		WalkBlock(c.Body, v)
	}
}

// Children returns the direct sub-expressions of e in evaluation order.
// Closure bodies are not included.
func Children(e *Expr) []*Expr {
	switch data := e.Data.(type) {
	case LiteralData, VarRefData, *ClosureData:
		return nil
	case UnaryData:
		return []*Expr{data.Operand}
	case BinaryData:
		return []*Expr{data.Left, data.Right}
	case CallData:
		return data.Args
	case MethodCallData:
		return append([]*Expr{data.Receiver}, data.Args...)
	case FieldAccessData:
		return []*Expr{data.Object}
	case IndexData:
		return []*Expr{data.Object, data.Index}
	case StructLitData:
		out := make([]*Expr, len(data.Fields))
		for i, f := range data.Fields {
			out[i] = f.Value
		}
		return out
	case ArrayLitData:
		return data.Elems
	case TupleLitData:
		return data.Elems
	default:
		panic(fmt.Sprintf("hir: unexpected expression data %T for %s", e.Data, e.Kind))
	}
}

// Number assigns pre-order NodeIDs to every expression of fn and returns the count.
func Number(fn *Func) int {
	n := 0
	WalkFunc(fn, Visitor{Expr: func(e *Expr) bool {
		n++
		id, err := safecast.Conv[uint32](n)
		if err != nil {
			panic(fmt.Errorf("node id overflow: %w", err))
		}
		e.ID = NodeID(id)
		return true
	}})
	return n
}

// Exprs returns the expressions of fn indexed by NodeID-1.
func Exprs(fn *Func) []*Expr {
	var out []*Expr
	WalkFunc(fn, Visitor{Expr: func(e *Expr) bool {
		out = append(out, e)
		return true
	}})
	return out
}

// ClearAnnotations resets everything the engine writes.
func ClearAnnotations(fn *Func) {
	if fn == nil {
		return
	}
	if fn.Receiver != nil {
		fn.Receiver.Ownership, fn.Receiver.NeedsMut = OwnershipInfer, false
	}
	for i := range fn.Params {
		fn.Params[i].Ownership, fn.Params[i].NeedsMut = OwnershipInfer, false
	}
	WalkFunc(fn, Visitor{
		Stmt: func(s *Stmt) {
			switch data := s.Data.(type) {
			case *LetData:
				data.Ownership, data.NeedsMut = OwnershipInfer, false
			case *ForData:
				data.Iter, data.NeedsMut = IterAuto, false
			}
		},
		Expr: func(e *Expr) bool {
			e.Own = Annotation{}
			if c, ok := e.Data.(*ClosureData); ok {
				c.Captures = nil
				for i := range c.Params {
					c.Params[i].Ownership, c.Params[i].NeedsMut = OwnershipInfer, false
				}
			}
			return true
		},
	})
}
