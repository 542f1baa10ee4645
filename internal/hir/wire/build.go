package wire

import (
	"errors"
	"fmt"
	"slices"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// ErrMalformed wraps every structural problem Build finds in a document.
var ErrMalformed = errors.New("malformed program")

// Build materialises p. Capability overrides from the document are applied
// first, then extra ones (typically from configuration); both match nominal
// types by name and silently skip names the program does not declare. The
// returned registry is frozen.
func Build(p *Program, extra ...Capability) (*hir.Program, *capability.Registry, error) {
	b := &builder{
		in:    types.NewInterner(),
		table: make(map[uint32]*Type, len(p.Types)),
		ids:   make(map[uint32]types.TypeID, len(p.Types)),
		busy:  make(map[uint32]bool),
		files: source.NewFileSet(),
	}
	b.file = b.addSource(p)
	b.types(p.Types)
	if b.err != nil {
		return nil, nil, b.err
	}

	prog := &hir.Program{Name: p.Name, Types: b.in, Files: b.files}
	b.funcs = make(map[uint32]bool)
	for _, m := range p.Modules {
		for _, fn := range m.Funcs {
			if fn.ID == 0 || b.funcs[fn.ID] {
				b.failf("function %q: missing or duplicate id %d", fn.Name, fn.ID)
			}
			b.funcs[fn.ID] = true
		}
	}
	for _, m := range p.Modules {
		mod := &hir.Module{Name: m.Name, Path: m.Path}
		if mod.Path == "" {
			mod.Path = m.Name
		}
		for i := range m.Funcs {
			mod.Funcs = append(mod.Funcs, b.fn(&m.Funcs[i]))
		}
		prog.Modules = append(prog.Modules, mod)
	}
	if b.err != nil {
		return nil, nil, b.err
	}

	caps := capability.NewBuilder(b.in)
	for _, c := range slices.Concat(p.Capabilities, extra) {
		caps.OverrideByName(c.Type, capability.Override{
			TriviallyDuplicable: c.Trivial,
			Duplicable:          c.Duplicable,
		})
	}
	caps.DeriveAll()
	return prog, caps.Freeze(), nil
}

type builder struct {
	in    *types.Interner
	table map[uint32]*Type
	ids   map[uint32]types.TypeID
	busy  map[uint32]bool
	files *source.FileSet
	file  source.FileID
	funcs map[uint32]bool

	// per function
	fnName string
	locals map[hir.LocalID]bool
	err    error
}

func (b *builder) failf(format string, args ...any) {
	if b.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if b.fnName != "" {
		msg = b.fnName + ": " + msg
	}
	b.err = fmt.Errorf("%w: %s", ErrMalformed, msg)
}

func (b *builder) addSource(p *Program) source.FileID {
	if p.Source == nil {
		return b.files.AddVirtual(p.Name, nil)
	}
	path := p.Source.Path
	if path == "" {
		path = p.Name
	}
	if p.Source.Text == "" {
		return b.files.AddVirtual(path, nil)
	}
	return b.files.Add(path, []byte(p.Source.Text), 0)
}

func (b *builder) span(s Span) source.Span {
	if s[1] < s[0] {
		b.failf("span [%d, %d) ends before it starts", s[0], s[1])
	}
	return source.Span{File: b.file, Start: s[0], End: s[1]}
}

// Types ----------------------------------------------------------------------

// types registers nominals first so that structural types and fields may
// refer to them in any order.
func (b *builder) types(table []Type) {
	for i := range table {
		t := &table[i]
		if t.ID == 0 || b.table[t.ID] != nil {
			b.failf("type %q: missing or duplicate id %d", t.Name, t.ID)
			return
		}
		b.table[t.ID] = t
		kind, ok := types.ParseKind(t.Kind)
		if !ok || kind == types.KindInvalid {
			b.failf("type %d: unknown kind %q", t.ID, t.Kind)
			return
		}
		if kind.IsNominal() {
			if t.Name == "" {
				b.failf("type %d: %s without a name", t.ID, kind)
				return
			}
			b.ids[t.ID] = b.in.RegisterNominal(kind, t.Name)
		}
	}
	for i := range table {
		t := &table[i]
		id, ok := b.ids[t.ID]
		if !ok {
			continue
		}
		b.in.SetFields(id, b.fields(t.Fields))
		if len(t.Variants) > 0 {
			variants := make([]types.Variant, len(t.Variants))
			for j, v := range t.Variants {
				variants[j] = types.Variant{Name: v.Name, Fields: b.fields(v.Fields)}
			}
			b.in.SetVariants(id, variants)
		}
		b.in.SetDerives(id, t.Copy, t.Clone)
	}
	for i := range table {
		b.typ(table[i].ID)
	}
}

func (b *builder) fields(fs []Field) []types.Field {
	if len(fs) == 0 {
		return nil
	}
	out := make([]types.Field, len(fs))
	for i, f := range fs {
		out[i] = types.Field{Name: f.Name, Type: b.typ(f.Type)}
	}
	return out
}

func (b *builder) typ(ref uint32) types.TypeID {
	if ref == 0 {
		return types.NoTypeID
	}
	if id, ok := b.ids[ref]; ok {
		return id
	}
	t := b.table[ref]
	if t == nil {
		b.failf("reference to unknown type %d", ref)
		return types.NoTypeID
	}
	if b.busy[ref] {
		b.failf("type %d contains itself without a nominal type in between", ref)
		return types.NoTypeID
	}
	b.busy[ref] = true
	defer delete(b.busy, ref)

	kind, _ := types.ParseKind(t.Kind)
	var id types.TypeID
	switch kind {
	case types.KindInt, types.KindUint, types.KindFloat:
		switch types.Width(t.Width) {
		case types.WidthAny, types.Width8, types.Width16, types.Width32, types.Width64:
		default:
			b.failf("type %d: bad width %d", ref, t.Width)
		}
		id = b.in.Intern(types.Type{Kind: kind, Width: types.Width(t.Width)})
	case types.KindUnit, types.KindBool, types.KindChar, types.KindString:
		id = b.in.Intern(types.Type{Kind: kind})
	case types.KindVec:
		id = b.in.Vec(b.required(ref, t.Elem))
	case types.KindMap:
		id = b.in.Map(b.required(ref, t.Key), b.required(ref, t.Elem))
	case types.KindReference:
		id = b.in.Ref(b.required(ref, t.Elem), t.Mutable)
	case types.KindTuple:
		elems := make([]types.TypeID, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = b.required(ref, e)
		}
		id = b.in.RegisterTuple(elems)
	case types.KindFn:
		params := make([]types.TypeID, len(t.Params))
		for i, e := range t.Params {
			params[i] = b.required(ref, e)
		}
		id = b.in.RegisterFn(params, b.typ(t.Result))
	default:
		b.failf("type %d: unexpected kind %s", ref, kind)
		return types.NoTypeID
	}
	b.ids[ref] = id
	return id
}

func (b *builder) required(owner, ref uint32) types.TypeID {
	if ref == 0 {
		b.failf("type %d: missing component type", owner)
		return types.NoTypeID
	}
	return b.typ(ref)
}

func (b *builder) bindingType(ref uint32, name string) types.TypeID {
	if ref == 0 {
		b.failf("binding %q has no type", name)
		return types.NoTypeID
	}
	return b.typ(ref)
}

// Functions ------------------------------------------------------------------

func (b *builder) fn(w *Func) *hir.Func {
	b.fnName = w.Name
	b.locals = make(map[hir.LocalID]bool)
	defer func() { b.fnName = "" }()

	fn := &hir.Func{
		ID:     hir.FuncID(w.ID),
		Name:   w.Name,
		Span:   b.span(w.Span),
		Result: b.typ(w.Result),
	}
	if w.Public {
		fn.Flags |= hir.FuncPublic
	}
	if w.Receiver != nil {
		recv := b.param(w.Receiver)
		fn.Receiver = &recv
		fn.Flags |= hir.FuncMethod
	}
	for i := range w.Params {
		fn.Params = append(fn.Params, b.param(&w.Params[i]))
	}
	if w.Body == nil {
		fn.Flags |= hir.FuncExtern
		return fn
	}
	fn.Body = b.block(w.Body)
	hir.Number(fn)
	return fn
}

func (b *builder) declare(local uint32, name string) hir.LocalID {
	id := hir.LocalID(local)
	if !id.IsValid() {
		b.failf("binding %q has no local id", name)
	}
	if b.locals[id] {
		b.failf("local %d (%q) declared twice", local, name)
	}
	b.locals[id] = true
	return id
}

func (b *builder) param(w *Param) hir.Param {
	declared, ok := hir.ParseOwnership(w.Declared)
	if !ok {
		b.failf("parameter %q: unknown ownership %q", w.Name, w.Declared)
	}
	return hir.Param{
		Name:     w.Name,
		Local:    b.declare(w.Local, w.Name),
		Type:     b.bindingType(w.Type, w.Name),
		Span:     b.span(w.Span),
		Declared: declared,
	}
}

func (b *builder) block(w *Block) *hir.Block {
	if w == nil {
		return &hir.Block{}
	}
	blk := &hir.Block{Span: b.span(w.Span), Stmts: make([]hir.Stmt, 0, len(w.Stmts))}
	for i := range w.Stmts {
		blk.Stmts = append(blk.Stmts, b.stmt(&w.Stmts[i]))
	}
	return blk
}

func (b *builder) optBlock(w *Block) *hir.Block {
	if w == nil {
		return nil
	}
	return b.block(w)
}

func (b *builder) stmt(w *Stmt) hir.Stmt {
	s := hir.Stmt{Span: b.span(w.Span)}
	switch w.Kind {
	case "let":
		s.Kind = hir.StmtLet
		value := b.optExpr(w.Value)
		s.Data = &hir.LetData{
			Name:  w.Name,
			Local: b.declare(w.Local, w.Name),
			Type:  b.bindingType(w.Type, w.Name),
			Value: value,
			IsMut: w.Mut,
		}
	case "expr":
		s.Kind = hir.StmtExpr
		s.Data = &hir.ExprStmtData{Expr: b.expr(w.Value)}
	case "assign":
		op := hir.OpNone
		if w.Op != "" {
			var ok bool
			if op, ok = hir.ParseBinaryOp(w.Op); !ok || op.IsComparison() {
				b.failf("bad compound assignment operator %q", w.Op)
			}
		}
		s.Kind = hir.StmtAssign
		s.Data = &hir.AssignData{Target: b.expr(w.Target), Value: b.expr(w.Value), Op: op}
	case "return":
		s.Kind = hir.StmtReturn
		s.Data = &hir.ReturnData{Value: b.optExpr(w.Value)}
	case "break":
		s.Kind = hir.StmtBreak
		s.Data = &hir.BreakData{}
	case "continue":
		s.Kind = hir.StmtContinue
		s.Data = &hir.ContinueData{}
	case "if":
		s.Kind = hir.StmtIf
		s.Data = &hir.IfStmtData{Cond: b.expr(w.Cond), Then: b.block(w.Then), Else: b.optBlock(w.Else)}
	case "while":
		s.Kind = hir.StmtWhile
		s.Data = &hir.WhileData{Cond: b.expr(w.Cond), Body: b.block(w.Body)}
	case "for":
		mode, ok := hir.ParseIterMode(w.Mode)
		if !ok {
			b.failf("for %q: unknown iteration mode %q", w.Name, w.Mode)
		}
		iter := b.expr(w.Iter)
		s.Kind = hir.StmtFor
		s.Data = &hir.ForData{
			VarName:  w.Name,
			Local:    b.declare(w.Local, w.Name),
			VarType:  b.bindingType(w.Type, w.Name),
			Iterable: iter,
			Mode:     mode,
			Body:     b.block(w.Body),
		}
	case "block":
		s.Kind = hir.StmtBlock
		s.Data = &hir.BlockStmtData{Block: b.block(w.Body)}
	default:
		b.failf("unknown statement kind %q", w.Kind)
		s.Kind = hir.StmtBlock
		s.Data = &hir.BlockStmtData{Block: &hir.Block{}}
	}
	return s
}

func (b *builder) optExpr(w *Expr) *hir.Expr {
	if w == nil {
		return nil
	}
	return b.expr(w)
}

var literalKinds = map[string]hir.LiteralKind{
	"int":    hir.LiteralInt,
	"float":  hir.LiteralFloat,
	"bool":   hir.LiteralBool,
	"string": hir.LiteralString,
	"char":   hir.LiteralChar,
	"unit":   hir.LiteralUnit,
}

func (b *builder) expr(w *Expr) *hir.Expr {
	if w == nil {
		b.failf("missing expression")
		return &hir.Expr{Kind: hir.ExprLiteral, Data: hir.LiteralData{Kind: hir.LiteralUnit}}
	}
	e := &hir.Expr{Type: b.typ(w.Type), Span: b.span(w.Span)}
	switch w.Kind {
	case "lit":
		kind, ok := literalKinds[w.Lit]
		if !ok {
			b.failf("unknown literal kind %q", w.Lit)
		}
		e.Kind, e.Data = hir.ExprLiteral, hir.LiteralData{Kind: kind, Text: w.Text}
	case "var":
		local := hir.LocalID(w.Local)
		if !b.locals[local] {
			b.failf("reference to undeclared local %d (%q)", w.Local, w.Name)
		}
		e.Kind, e.Data = hir.ExprVarRef, hir.VarRefData{Name: w.Name, Local: local}
	case "unary":
		var op hir.UnaryOp
		switch w.Op {
		case "-":
			op = hir.UnaryNeg
		case "!":
			op = hir.UnaryNot
		default:
			b.failf("unknown unary operator %q", w.Op)
		}
		e.Kind, e.Data = hir.ExprUnary, hir.UnaryData{Op: op, Operand: b.expr(w.X)}
	case "binary":
		op, ok := hir.ParseBinaryOp(w.Op)
		if !ok || op == hir.OpNone {
			b.failf("unknown binary operator %q", w.Op)
		}
		e.Kind, e.Data = hir.ExprBinary, hir.BinaryData{Op: op, Left: b.expr(w.X), Right: b.expr(w.Y)}
	case "call":
		if w.Callee != 0 && !b.funcs[w.Callee] {
			b.failf("call of unknown function %d", w.Callee)
		}
		e.Kind, e.Data = hir.ExprCall, hir.CallData{
			Callee:     hir.FuncID(w.Callee),
			Name:       w.Name,
			Args:       b.exprs(w.Args),
			ParamModes: b.modes(w.Modes),
		}
	case "method":
		if w.Callee != 0 && !b.funcs[w.Callee] {
			b.failf("call of unknown method %d", w.Callee)
		}
		recvMode, ok := hir.ParseOwnership(w.RecvMode)
		if !ok {
			b.failf("method %q: unknown receiver mode %q", w.Name, w.RecvMode)
		}
		e.Kind, e.Data = hir.ExprMethodCall, hir.MethodCallData{
			Receiver:        b.expr(w.X),
			Method:          w.Name,
			Callee:          hir.FuncID(w.Callee),
			Args:            b.exprs(w.Args),
			ReceiverMode:    recvMode,
			MutatesReceiver: w.Mutates,
			ParamModes:      b.modes(w.Modes),
		}
	case "field":
		e.Kind, e.Data = hir.ExprFieldAccess, hir.FieldAccessData{Object: b.expr(w.X), Field: w.Name}
	case "index":
		e.Kind, e.Data = hir.ExprIndex, hir.IndexData{Object: b.expr(w.X), Index: b.expr(w.Y)}
	case "struct":
		if len(w.Fields) != len(w.Args) {
			b.failf("struct literal %q has %d names and %d values", w.Name, len(w.Fields), len(w.Args))
			break
		}
		fields := make([]hir.FieldInit, len(w.Args))
		for i, a := range w.Args {
			fields[i] = hir.FieldInit{Name: w.Fields[i], Value: b.expr(a)}
		}
		e.Kind, e.Data = hir.ExprStructLit, hir.StructLitData{Name: w.Name, Fields: fields}
	case "array":
		e.Kind, e.Data = hir.ExprArrayLit, hir.ArrayLitData{Elems: b.exprs(w.Args)}
	case "tuple":
		e.Kind, e.Data = hir.ExprTupleLit, hir.TupleLitData{Elems: b.exprs(w.Args)}
	case "closure":
		c := &hir.ClosureData{Result: b.typ(w.Result)}
		for i := range w.Params {
			c.Params = append(c.Params, b.param(&w.Params[i]))
		}
		c.Body = b.block(w.Body)
		e.Kind, e.Data = hir.ExprClosure, c
	default:
		b.failf("unknown expression kind %q", w.Kind)
	}
	if e.Data == nil {
		e.Kind, e.Data = hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralUnit}
	}
	return e
}

func (b *builder) exprs(ws []*Expr) []*hir.Expr {
	if len(ws) == 0 {
		return nil
	}
	out := make([]*hir.Expr, len(ws))
	for i, w := range ws {
		out[i] = b.expr(w)
	}
	return out
}

func (b *builder) modes(ms []string) []hir.Ownership {
	if len(ms) == 0 {
		return nil
	}
	out := make([]hir.Ownership, len(ms))
	for i, m := range ms {
		o, ok := hir.ParseOwnership(m)
		if !ok {
			b.failf("unknown parameter mode %q", m)
		}
		out[i] = o
	}
	return out
}
