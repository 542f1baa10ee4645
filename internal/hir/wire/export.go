package wire

import (
	"borrowinfer/internal/hir"
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// Export converts an (annotated) program back to wire form. Type ids in the
// result are the interner's ids.
func Export(p *hir.Program) *Program {
	out := &Program{
		Version: FormatVersion,
		Name:    p.Name,
		Types:   ExportTypes(p.Types),
	}
	if f := firstFile(p); f != nil {
		out.Source = &Source{Path: f.Path, Text: string(f.Content)}
	}
	for _, m := range p.Modules {
		wm := Module{Name: m.Name, Path: m.Path, Funcs: make([]Func, 0, len(m.Funcs))}
		for _, fn := range m.Funcs {
			wm.Funcs = append(wm.Funcs, ExportFunc(fn))
		}
		out.Modules = append(out.Modules, wm)
	}
	return out
}

func firstFile(p *hir.Program) *source.File {
	if p.Files == nil || p.Files.Len() == 0 {
		return nil
	}
	for _, m := range p.Modules {
		for _, fn := range m.Funcs {
			if f := p.Files.Get(fn.Span.File); f != nil {
				return f
			}
		}
	}
	return nil
}

// ExportTypes dumps the interner as a type table.
func ExportTypes(in *types.Interner) []Type {
	if in == nil {
		return nil
	}
	out := make([]Type, 0, in.Len())
	in.Each(func(id types.TypeID, tt types.Type) {
		w := Type{
			ID:      uint32(id),
			Kind:    tt.Kind.String(),
			Width:   uint8(tt.Width),
			Elem:    uint32(tt.Elem),
			Key:     uint32(tt.Key),
			Mutable: tt.Mutable,
		}
		switch {
		case tt.Kind.IsNominal():
			if info, ok := in.NominalInfo(id); ok {
				w.Name, w.Copy, w.Clone = info.Name, info.Copy, info.Clone
				w.Fields = exportFields(info.Fields)
				for _, v := range info.Variants {
					w.Variants = append(w.Variants, Variant{Name: v.Name, Fields: exportFields(v.Fields)})
				}
			}
		case tt.Kind == types.KindTuple:
			if info, ok := in.TupleInfo(id); ok {
				w.Elems = typeRefs(info.Elems)
			}
		case tt.Kind == types.KindFn:
			if info, ok := in.FnInfo(id); ok {
				w.Params, w.Result = typeRefs(info.Params), uint32(info.Result)
			}
		}
		out = append(out, w)
	})
	return out
}

func exportFields(fs []types.Field) []Field {
	if len(fs) == 0 {
		return nil
	}
	out := make([]Field, len(fs))
	for i, f := range fs {
		out[i] = Field{Name: f.Name, Type: uint32(f.Type)}
	}
	return out
}

func typeRefs(ids []types.TypeID) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func exportSpan(sp source.Span) Span { return Span{sp.Start, sp.End} }

// ExportFunc converts one function together with whatever the engine wrote
// into it.
func ExportFunc(fn *hir.Func) Func {
	w := Func{
		ID:     uint32(fn.ID),
		Name:   fn.Name,
		Span:   exportSpan(fn.Span),
		Public: fn.Flags.HasFlag(hir.FuncPublic),
		Result: uint32(fn.Result),
	}
	if fn.Receiver != nil {
		recv := exportParam(fn.Receiver)
		w.Receiver = &recv
	}
	for i := range fn.Params {
		w.Params = append(w.Params, exportParam(&fn.Params[i]))
	}
	if fn.Body != nil {
		w.Body = exportBlock(fn.Body)
	}
	return w
}

func exportParam(p *hir.Param) Param {
	return Param{
		Name:      p.Name,
		Local:     uint32(p.Local),
		Type:      uint32(p.Type),
		Span:      exportSpan(p.Span),
		Declared:  p.Declared.String(),
		Ownership: p.Ownership.String(),
		NeedsMut:  p.NeedsMut,
	}
}

func exportBlock(b *hir.Block) *Block {
	if b == nil {
		return nil
	}
	w := &Block{Span: exportSpan(b.Span), Stmts: make([]Stmt, 0, len(b.Stmts))}
	for i := range b.Stmts {
		w.Stmts = append(w.Stmts, exportStmt(&b.Stmts[i]))
	}
	return w
}

func exportStmt(s *hir.Stmt) Stmt {
	w := Stmt{Span: exportSpan(s.Span)}
	switch data := s.Data.(type) {
	case *hir.LetData:
		w.Kind = "let"
		w.Name, w.Local, w.Type, w.Mut = data.Name, uint32(data.Local), uint32(data.Type), data.IsMut
		w.Value = exportExpr(data.Value)
		w.Ownership, w.NeedsMut = data.Ownership.String(), data.NeedsMut
	case *hir.ExprStmtData:
		w.Kind = "expr"
		w.Value = exportExpr(data.Expr)
	case *hir.AssignData:
		w.Kind = "assign"
		w.Target, w.Value, w.Op = exportExpr(data.Target), exportExpr(data.Value), data.Op.String()
	case *hir.ReturnData:
		w.Kind = "return"
		w.Value = exportExpr(data.Value)
	case *hir.BreakData:
		w.Kind = "break"
	case *hir.ContinueData:
		w.Kind = "continue"
	case *hir.IfStmtData:
		w.Kind = "if"
		w.Cond, w.Then, w.Else = exportExpr(data.Cond), exportBlock(data.Then), exportBlock(data.Else)
	case *hir.WhileData:
		w.Kind = "while"
		w.Cond, w.Body = exportExpr(data.Cond), exportBlock(data.Body)
	case *hir.ForData:
		w.Kind = "for"
		w.Name, w.Local, w.Type = data.VarName, uint32(data.Local), uint32(data.VarType)
		w.Iter, w.Body = exportExpr(data.Iterable), exportBlock(data.Body)
		w.Mode = data.Mode.String()
		if data.Iter != hir.IterAuto {
			w.Chosen = data.Iter.String()
		}
		w.NeedsMut = data.NeedsMut
	case *hir.BlockStmtData:
		w.Kind = "block"
		w.Body = exportBlock(data.Block)
	}
	return w
}

var literalNames = map[hir.LiteralKind]string{
	hir.LiteralInt:    "int",
	hir.LiteralFloat:  "float",
	hir.LiteralBool:   "bool",
	hir.LiteralString: "string",
	hir.LiteralChar:   "char",
	hir.LiteralUnit:   "unit",
}

func exportExpr(e *hir.Expr) *Expr {
	if e == nil {
		return nil
	}
	w := &Expr{Type: uint32(e.Type), Span: exportSpan(e.Span)}
	if !e.Own.IsZero() {
		w.Own = &Own{Action: e.Own.Action.String(), Deref: e.Own.Deref, Reason: e.Own.Reason}
	}
	switch data := e.Data.(type) {
	case hir.LiteralData:
		w.Kind, w.Lit, w.Text = "lit", literalNames[data.Kind], data.Text
	case hir.VarRefData:
		w.Kind, w.Name, w.Local = "var", data.Name, uint32(data.Local)
	case hir.UnaryData:
		w.Kind, w.X = "unary", exportExpr(data.Operand)
		w.Op = "-"
		if data.Op == hir.UnaryNot {
			w.Op = "!"
		}
	case hir.BinaryData:
		w.Kind, w.Op = "binary", data.Op.String()
		w.X, w.Y = exportExpr(data.Left), exportExpr(data.Right)
	case hir.CallData:
		w.Kind, w.Callee, w.Name = "call", uint32(data.Callee), data.Name
		w.Args, w.Modes = exportExprs(data.Args), exportModes(data.ParamModes)
	case hir.MethodCallData:
		w.Kind, w.X, w.Name, w.Callee = "method", exportExpr(data.Receiver), data.Method, uint32(data.Callee)
		w.RecvMode, w.Mutates = data.ReceiverMode.String(), data.MutatesReceiver
		w.Args, w.Modes = exportExprs(data.Args), exportModes(data.ParamModes)
	case hir.FieldAccessData:
		w.Kind, w.X, w.Name = "field", exportExpr(data.Object), data.Field
	case hir.IndexData:
		w.Kind, w.X, w.Y = "index", exportExpr(data.Object), exportExpr(data.Index)
	case hir.StructLitData:
		w.Kind, w.Name = "struct", data.Name
		for _, f := range data.Fields {
			w.Fields = append(w.Fields, f.Name)
			w.Args = append(w.Args, exportExpr(f.Value))
		}
	case hir.ArrayLitData:
		w.Kind, w.Args = "array", exportExprs(data.Elems)
	case hir.TupleLitData:
		w.Kind, w.Args = "tuple", exportExprs(data.Elems)
	case *hir.ClosureData:
		w.Kind, w.Result, w.Body = "closure", uint32(data.Result), exportBlock(data.Body)
		for i := range data.Params {
			w.Params = append(w.Params, exportParam(&data.Params[i]))
		}
		for _, c := range data.Captures {
			w.Captures = append(w.Captures, Capture{Name: c.Name, Local: uint32(c.Local), Mode: c.Mode.String()})
		}
	}
	return w
}

func exportExprs(es []*hir.Expr) []*Expr {
	if len(es) == 0 {
		return nil
	}
	out := make([]*Expr, len(es))
	for i, e := range es {
		out[i] = exportExpr(e)
	}
	return out
}

func exportModes(ms []hir.Ownership) []string {
	if len(ms) == 0 {
		return nil
	}
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.String()
		if out[i] == "" {
			out[i] = "infer"
		}
	}
	return out
}
