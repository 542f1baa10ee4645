package hir

import (
	"fmt"
	"io"
	"strings"

	"borrowinfer/internal/types"
)

// DumpOptions configures HIR dumping.
type DumpOptions struct {
	// Annotations prints engine decisions after each annotated expression.
	Annotations bool
	// Reasons adds the resolver's reason to each annotation.
	Reasons bool
}

// Printer is used to dump HIR to text format.
type Printer struct {
	w        io.Writer
	interner *types.Interner
	indent   int
	opts     DumpOptions
	err      error
}

// NewPrinter creates a new HIR printer with the given options.
func NewPrinter(w io.Writer, interner *types.Interner, opts DumpOptions) *Printer {
	return &Printer{w: w, interner: interner, opts: opts}
}

// Dump writes every module of the program.
func Dump(w io.Writer, p *Program, opts DumpOptions) error {
	pr := NewPrinter(w, p.Types, opts)
	for _, m := range p.Modules {
		pr.PrintModule(m)
	}
	return pr.err
}

// PrintModule prints a complete module.
func (p *Printer) PrintModule(m *Module) {
	p.printf("module %s\n", m.Name)
	if m.Path != "" && m.Path != m.Name {
		p.printf("  path: %s\n", m.Path)
	}
	p.printf("\n")
	for _, f := range m.Funcs {
		p.PrintFunc(f)
		p.printf("\n")
	}
}

// PrintFunc prints a function.
func (p *Printer) PrintFunc(f *Func) {
	p.printf("%sfn %s(", f.Flags, f.Name)
	first := true
	if f.Receiver != nil {
		p.printParam(f.Receiver)
		first = false
	}
	for i := range f.Params {
		if !first {
			p.printf(", ")
		}
		p.printParam(&f.Params[i])
		first = false
	}
	p.printf(")")
	if f.Result.IsValid() {
		p.printf(" -> %s", p.typeStr(f.Result))
	}
	p.printf(" (id=%d)", f.ID)
	if f.Body == nil {
		p.printf("\n")
		return
	}
	p.printf(" {\n")
	p.indent++
	p.printBlock(f.Body)
	p.indent--
	p.printIndent()
	p.printf("}\n")
}

func (p *Printer) printParam(param *Param) {
	if param.NeedsMut {
		p.printf("mut ")
	}
	p.printf("%s: %s", param.Name, p.typeStr(param.Type))
	own := param.Ownership
	if own == OwnershipInfer {
		own = param.Declared
	}
	if own != OwnershipInfer {
		p.printf(" [%s]", own)
	}
}

func (p *Printer) printBlock(b *Block) {
	for i := range b.Stmts {
		p.printStmt(&b.Stmts[i])
	}
}

func (p *Printer) printNested(b *Block) {
	p.printf(" {\n")
	p.indent++
	p.printBlock(b)
	p.indent--
	p.printIndent()
	p.printf("}")
}

func (p *Printer) printStmt(s *Stmt) {
	p.printIndent()

	switch data := s.Data.(type) {
	case *LetData:
		if data.IsMut || data.NeedsMut {
			p.printf("let mut ")
		} else {
			p.printf("let ")
		}
		p.printf("%s: %s", data.Name, p.typeStr(data.Type))
		if data.Ownership != OwnershipInfer {
			p.printf(" [%s]", data.Ownership)
		}
		if data.Value != nil {
			p.printf(" = ")
			p.printExpr(data.Value)
		}

	case *ExprStmtData:
		p.printExpr(data.Expr)

	case *AssignData:
		p.printExpr(data.Target)
		p.printf(" %s= ", data.Op)
		p.printExpr(data.Value)

	case *ReturnData:
		p.printf("return")
		if data.Value != nil {
			p.printf(" ")
			p.printExpr(data.Value)
		}

	case *BreakData:
		p.printf("break")

	case *ContinueData:
		p.printf("continue")

	case *IfStmtData:
		p.printf("if ")
		p.printExpr(data.Cond)
		p.printNested(data.Then)
		if data.Else != nil {
			p.printf(" else")
			p.printNested(data.Else)
		}

	case *WhileData:
		p.printf("while ")
		p.printExpr(data.Cond)
		p.printNested(data.Body)

	case *ForData:
		p.printf("for ")
		if data.NeedsMut {
			p.printf("mut ")
		}
		p.printf("%s: %s in ", data.VarName, p.typeStr(data.VarType))
		p.printExpr(data.Iterable)
		mode := data.Iter
		if mode == IterAuto {
			mode = data.Mode
		}
		if mode != IterAuto {
			p.printf(".%s()", mode)
		}
		p.printNested(data.Body)

	case *BlockStmtData:
		p.printf("block")
		p.printNested(data.Block)

	default:
		p.printf("<%s>", s.Kind)
	}
	p.printf("\n")
}

func (p *Printer) printExpr(e *Expr) {
	if e == nil {
		p.printf("<nil>")
		return
	}
	if p.opts.Annotations && e.Own.Deref {
		p.printf("*")
	}

	switch data := e.Data.(type) {
	case LiteralData:
		if data.Kind == LiteralString {
			p.printf("%q", data.Text)
		} else {
			p.printf("%s", data.Text)
		}
	case VarRefData:
		p.printf("%s", data.Name)
	case UnaryData:
		if data.Op == UnaryNeg {
			p.printf("-")
		} else {
			p.printf("!")
		}
		p.printExpr(data.Operand)
	case BinaryData:
		p.printf("(")
		p.printExpr(data.Left)
		p.printf(" %s ", data.Op)
		p.printExpr(data.Right)
		p.printf(")")
	case CallData:
		if data.Callee.IsValid() {
			p.printf("fn#%d", data.Callee)
		} else {
			p.printf("%s", data.Name)
		}
		p.printArgs(data.Args)
	case MethodCallData:
		p.printExpr(data.Receiver)
		p.printf(".%s", data.Method)
		p.printArgs(data.Args)
	case FieldAccessData:
		p.printExpr(data.Object)
		p.printf(".%s", data.Field)
	case IndexData:
		p.printExpr(data.Object)
		p.printf("[")
		p.printExpr(data.Index)
		p.printf("]")
	case StructLitData:
		p.printf("%s { ", data.Name)
		for i, f := range data.Fields {
			if i > 0 {
				p.printf(", ")
			}
			p.printf("%s: ", f.Name)
			p.printExpr(f.Value)
		}
		p.printf(" }")
	case ArrayLitData:
		p.printf("[")
		p.printList(data.Elems)
		p.printf("]")
	case TupleLitData:
		p.printf("(")
		p.printList(data.Elems)
		p.printf(")")
	case *ClosureData:
		p.printf("|")
		for i := range data.Params {
			if i > 0 {
				p.printf(", ")
			}
			p.printParam(&data.Params[i])
		}
		p.printf("|")
		if len(data.Captures) > 0 {
			caps := make([]string, len(data.Captures))
			for i, c := range data.Captures {
				caps[i] = fmt.Sprintf("%s:%s", c.Name, c.Mode)
			}
			p.printf(" [%s]", strings.Join(caps, ", "))
		}
		p.printNested(data.Body)
	default:
		p.printf("<%s>", e.Kind)
	}

	if p.opts.Annotations && e.Own.Action != ActionNoOp {
		if p.opts.Reasons && e.Own.Reason != "" {
			p.printf("{%s: %s}", e.Own.Action, e.Own.Reason)
		} else {
			p.printf("{%s}", e.Own.Action)
		}
	}
}

func (p *Printer) printArgs(args []*Expr) {
	p.printf("(")
	p.printList(args)
	p.printf(")")
}

func (p *Printer) printList(list []*Expr) {
	for i, e := range list {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(e)
	}
}

func (p *Printer) typeStr(id types.TypeID) string {
	return types.Label(p.interner, id)
}

func (p *Printer) printIndent() {
	p.printf("%s", strings.Repeat("  ", p.indent))
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
