package hir

import (
	"fmt"

	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// Builder assembles a Program programmatically, mostly for tests. Spans are
// synthesised in increasing order unless set explicitly.
type Builder struct {
	Types *types.Interner
	Files *source.FileSet

	prog     *Program
	mod      *Module
	file     source.FileID
	pos      uint32
	nextFunc uint32
}

// Local is a handle to a declared binding.
type Local struct {
	ID   LocalID
	Name string
	Type types.TypeID
}

// NewBuilder starts a program with one module called name.
func NewBuilder(in *types.Interner, name string) *Builder {
	files := source.NewFileSet()
	b := &Builder{
		Types: in,
		Files: files,
		prog:  &Program{Name: name, Types: in, Files: files},
		file:  files.AddVirtual(name, nil),
	}
	b.Module(name, name)
	return b
}

// Module starts a new module; subsequent functions are added to it.
func (b *Builder) Module(name, path string) *Module {
	b.mod = &Module{Name: name, Path: path}
	b.prog.Modules = append(b.prog.Modules, b.mod)
	return b.mod
}

// Program returns the program built so far.
func (b *Builder) Program() *Program {
	return b.prog
}

// Span returns a fresh synthetic span.
func (b *Builder) Span() source.Span {
	sp := source.Span{File: b.file, Start: b.pos, End: b.pos + 1}
	b.pos += 2
	return sp
}

// Func declares a function in the current module. Its id is allocated
// immediately so other bodies can call it before it is filled in.
func (b *Builder) Func(name string, result types.TypeID) *FuncBuilder {
	b.nextFunc++
	fn := &Func{
		ID:     FuncID(b.nextFunc),
		Name:   name,
		Span:   b.Span(),
		Result: result,
		Body:   &Block{},
	}
	b.mod.Funcs = append(b.mod.Funcs, fn)
	return &FuncBuilder{b: b, fn: fn, blocks: []*Block{fn.Body}}
}

// FuncBuilder appends statements to the innermost open block of one function.
type FuncBuilder struct {
	b         *Builder
	fn        *Func
	blocks    []*Block
	nextLocal uint32
	// SpanOverride, when non-zero, is used for the next node instead of a synthetic span.
	SpanOverride source.Span
}

// ID returns the function id.
func (f *FuncBuilder) ID() FuncID { return f.fn.ID }

// Func returns the function being built.
func (f *FuncBuilder) Func() *Func { return f.fn }

// Done numbers the expressions and returns the function.
func (f *FuncBuilder) Done() *Func {
	Number(f.fn)
	return f.fn
}

func (f *FuncBuilder) span() source.Span {
	if f.SpanOverride != (source.Span{}) {
		sp := f.SpanOverride
		f.SpanOverride = source.Span{}
		return sp
	}
	return f.b.Span()
}

// NewLocal allocates a LocalID without declaring anything.
func (f *FuncBuilder) NewLocal(name string, t types.TypeID) Local {
	f.nextLocal++
	return Local{ID: LocalID(f.nextLocal), Name: name, Type: t}
}

// Param appends a parameter.
func (f *FuncBuilder) Param(name string, t types.TypeID, declared Ownership) Local {
	l := f.NewLocal(name, t)
	f.fn.Params = append(f.fn.Params, Param{Name: name, Local: l.ID, Type: t, Span: f.span(), Declared: declared})
	return l
}

// Receiver sets the method receiver.
func (f *FuncBuilder) Receiver(name string, t types.TypeID, declared Ownership) Local {
	l := f.NewLocal(name, t)
	f.fn.Receiver = &Param{Name: name, Local: l.ID, Type: t, Span: f.span(), Declared: declared}
	f.fn.Flags |= FuncMethod
	return l
}

// Expressions -----------------------------------------------------------------

func (f *FuncBuilder) expr(kind ExprKind, t types.TypeID, data ExprData) *Expr {
	return &Expr{Kind: kind, Type: t, Span: f.span(), Data: data}
}

// Var references a local.
func (f *FuncBuilder) Var(l Local) *Expr {
	return f.expr(ExprVarRef, l.Type, VarRefData{Name: l.Name, Local: l.ID})
}

// Lit builds a literal; the literal kind follows the type.
func (f *FuncBuilder) Lit(t types.TypeID, text string) *Expr {
	kind := LiteralInt
	if tt, ok := f.b.Types.Lookup(t); ok {
		switch tt.Kind {
		case types.KindFloat:
			kind = LiteralFloat
		case types.KindBool:
			kind = LiteralBool
		case types.KindString:
			kind = LiteralString
		case types.KindChar:
			kind = LiteralChar
		case types.KindUnit:
			kind = LiteralUnit
		}
	}
	return f.expr(ExprLiteral, t, LiteralData{Kind: kind, Text: text})
}

// Unary builds a unary expression.
func (f *FuncBuilder) Unary(op UnaryOp, t types.TypeID, x *Expr) *Expr {
	return f.expr(ExprUnary, t, UnaryData{Op: op, Operand: x})
}

// Binary builds a binary expression.
func (f *FuncBuilder) Binary(op BinaryOp, t types.TypeID, l, r *Expr) *Expr {
	return f.expr(ExprBinary, t, BinaryData{Op: op, Left: l, Right: r})
}

// Call calls a function of the program.
func (f *FuncBuilder) Call(callee FuncID, result types.TypeID, args ...*Expr) *Expr {
	return f.expr(ExprCall, result, CallData{Callee: callee, Args: args})
}

// CallExtern calls a function outside the program. Nil modes leave it unresolved.
func (f *FuncBuilder) CallExtern(name string, result types.TypeID, modes []Ownership, args ...*Expr) *Expr {
	return f.expr(ExprCall, result, CallData{Name: name, Args: args, ParamModes: modes})
}

// MethodCall calls a method of the program.
func (f *FuncBuilder) MethodCall(recv *Expr, callee FuncID, method string, result types.TypeID, args ...*Expr) *Expr {
	return f.expr(ExprMethodCall, result, MethodCallData{Receiver: recv, Callee: callee, Method: method, Args: args})
}

// MethodExtern calls a method outside the program with a declared receiver mode.
func (f *FuncBuilder) MethodExtern(recv *Expr, method string, result types.TypeID, mode Ownership, modes []Ownership, args ...*Expr) *Expr {
	return f.expr(ExprMethodCall, result, MethodCallData{
		Receiver:        recv,
		Method:          method,
		Args:            args,
		ReceiverMode:    mode,
		MutatesReceiver: mode == OwnershipRefMut,
		ParamModes:      modes,
	})
}

// Field builds obj.name.
func (f *FuncBuilder) Field(obj *Expr, name string, t types.TypeID) *Expr {
	return f.expr(ExprFieldAccess, t, FieldAccessData{Object: obj, Field: name})
}

// Index builds obj[idx].
func (f *FuncBuilder) Index(obj, idx *Expr, t types.TypeID) *Expr {
	return f.expr(ExprIndex, t, IndexData{Object: obj, Index: idx})
}

// StructLit builds Name { fields }.
func (f *FuncBuilder) StructLit(t types.TypeID, name string, fields ...FieldInit) *Expr {
	return f.expr(ExprStructLit, t, StructLitData{Name: name, Fields: fields})
}

// ArrayLit builds [elems].
func (f *FuncBuilder) ArrayLit(t types.TypeID, elems ...*Expr) *Expr {
	return f.expr(ExprArrayLit, t, ArrayLitData{Elems: elems})
}

// TupleLit builds (elems).
func (f *FuncBuilder) TupleLit(t types.TypeID, elems ...*Expr) *Expr {
	return f.expr(ExprTupleLit, t, TupleLitData{Elems: elems})
}

// Closure builds |params| { body }. Parameters get fresh locals of this function.
func (f *FuncBuilder) Closure(t, result types.TypeID, names []string, paramTypes []types.TypeID, body func(params []Local)) *Expr {
	if len(names) != len(paramTypes) {
		panic(fmt.Sprintf("hir: closure has %d names and %d types", len(names), len(paramTypes)))
	}
	data := &ClosureData{Result: result, Body: &Block{}}
	locals := make([]Local, len(names))
	for i, name := range names {
		locals[i] = f.NewLocal(name, paramTypes[i])
		data.Params = append(data.Params, Param{Name: name, Local: locals[i].ID, Type: paramTypes[i], Span: f.span()})
	}
	e := f.expr(ExprClosure, t, data)
	f.nested(data.Body, func() { body(locals) })
	return e
}

// Statements ------------------------------------------------------------------

func (f *FuncBuilder) push(kind StmtKind, data StmtData) {
	blk := f.blocks[len(f.blocks)-1]
	blk.Stmts = append(blk.Stmts, Stmt{Kind: kind, Span: f.span(), Data: data})
}

func (f *FuncBuilder) nested(blk *Block, body func()) {
	f.blocks = append(f.blocks, blk)
	defer func() { f.blocks = f.blocks[:len(f.blocks)-1] }()
	if body != nil {
		body()
	}
}

// Let declares an immutable binding.
func (f *FuncBuilder) Let(name string, t types.TypeID, init *Expr) Local {
	l := f.NewLocal(name, t)
	f.push(StmtLet, &LetData{Name: name, Local: l.ID, Type: t, Value: init})
	return l
}

// LetMut declares a binding the source marked mutable.
func (f *FuncBuilder) LetMut(name string, t types.TypeID, init *Expr) Local {
	l := f.NewLocal(name, t)
	f.push(StmtLet, &LetData{Name: name, Local: l.ID, Type: t, Value: init, IsMut: true})
	return l
}

// Expr appends an expression statement.
func (f *FuncBuilder) Expr(e *Expr) {
	f.push(StmtExpr, &ExprStmtData{Expr: e})
}

// Assign appends target = value.
func (f *FuncBuilder) Assign(target, value *Expr) {
	f.push(StmtAssign, &AssignData{Target: target, Value: value})
}

// AssignOp appends target op= value.
func (f *FuncBuilder) AssignOp(op BinaryOp, target, value *Expr) {
	f.push(StmtAssign, &AssignData{Target: target, Value: value, Op: op})
}

// Return appends return e; e may be nil.
func (f *FuncBuilder) Return(e *Expr) {
	f.push(StmtReturn, &ReturnData{Value: e})
}

// Break appends break.
func (f *FuncBuilder) Break() { f.push(StmtBreak, &BreakData{}) }

// Continue appends continue.
func (f *FuncBuilder) Continue() { f.push(StmtContinue, &ContinueData{}) }

// If appends an if statement; els may be nil for no else branch.
func (f *FuncBuilder) If(cond *Expr, then, els func()) {
	data := &IfStmtData{Cond: cond, Then: &Block{}}
	f.push(StmtIf, data)
	f.nested(data.Then, then)
	if els != nil {
		data.Else = &Block{}
		f.nested(data.Else, els)
	}
}

// While appends a while loop.
func (f *FuncBuilder) While(cond *Expr, body func()) {
	data := &WhileData{Cond: cond, Body: &Block{}}
	f.push(StmtWhile, data)
	f.nested(data.Body, body)
}

// For appends for name in iterable with the requested iteration mode.
func (f *FuncBuilder) For(name string, elem types.TypeID, mode IterMode, iterable *Expr, body func(v Local)) {
	v := f.NewLocal(name, elem)
	data := &ForData{VarName: name, Local: v.ID, VarType: elem, Iterable: iterable, Mode: mode, Body: &Block{}}
	f.push(StmtFor, data)
	f.nested(data.Body, func() { body(v) })
}

// Block appends a nested block.
func (f *FuncBuilder) Block(body func()) {
	data := &BlockStmtData{Block: &Block{}}
	f.push(StmtBlock, data)
	f.nested(data.Block, body)
}
