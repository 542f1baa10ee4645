package ownership

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// analysis holds the per-function state shared by all phases.
type analysis struct {
	fn   *hir.Func
	reg  *capability.Registry
	sums SummaryLookup
	opts Options

	bindings    []*Binding // index 0 unused
	uses        []*UseSite // index 0 unused
	scopes      []Scope    // index 0 unused
	projections []*projection
	closures    []*closureInfo
	kills       map[BindingID][]kill

	useByExpr     map[*hir.Expr]*UseSite
	projByExpr    map[*hir.Expr]*projection
	bindingByExpr map[*hir.Expr]*Binding
	loops         map[*hir.ForData]*loopInfo
	loopSrc       map[UseID]*loopInfo
	terminating   map[PathElem]bool
	loopEnd       map[PathElem]int

	// walk state
	byLocal    map[hir.LocalID]BindingID
	frames     []*frame
	ord        int
	path       Path
	nextBranch uint32
	loopDepth  int
	scope      ScopeID

	bag    *diag.Bag
	rep    diag.Reporter
	warned map[types.TypeID]bool
	// a call of a program function had no summary yet
	unresolved bool
}

type frame struct {
	closure  *closureInfo
	captures map[BindingID]BindingID
}

type loopInfo struct {
	data   *hir.ForData
	source UseID
	proj   *projection
	v      BindingID
	elem   PathElem
	mode   hir.IterMode
}

// demand describes how the parent expression uses a value.
type demand struct {
	ctx      Context
	consume  bool
	borrowOK bool
	mut      bool
	sink     *sink
	param    *paramTarget
}

func read(ctx Context) demand { return demand{ctx: ctx} }

// produced describes the value an expression evaluated to.
type produced struct {
	use     *UseSite
	proj    *projection
	closure *closureInfo
}

func newAnalysis(fn *hir.Func, reg *capability.Registry, sums SummaryLookup, opts Options) *analysis {
	if sums == nil {
		sums = Summaries(nil)
	}
	return &analysis{
		fn:            fn,
		reg:           reg,
		sums:          sums,
		opts:          opts,
		bindings:      []*Binding{nil},
		uses:          []*UseSite{nil},
		scopes:        []Scope{{}},
		kills:         make(map[BindingID][]kill),
		useByExpr:     make(map[*hir.Expr]*UseSite),
		projByExpr:    make(map[*hir.Expr]*projection),
		bindingByExpr: make(map[*hir.Expr]*Binding),
		loops:         make(map[*hir.ForData]*loopInfo),
		loopSrc:       make(map[UseID]*loopInfo),
		warned:        make(map[types.TypeID]bool),
		terminating:   make(map[PathElem]bool),
		loopEnd:       make(map[PathElem]int),
		byLocal:       make(map[hir.LocalID]BindingID),
		frames:        []*frame{{captures: make(map[BindingID]BindingID)}},
	}
}

func (a *analysis) binding(id BindingID) *Binding { return a.bindings[id] }
func (a *analysis) use(id UseID) *UseSite         { return a.uses[id] }

func (a *analysis) nextOrd() int {
	a.ord++
	return a.ord
}

func (a *analysis) pushScope(loop, closure bool) ScopeID {
	id := ScopeID(toU32(len(a.scopes), "scope"))
	a.scopes = append(a.scopes, Scope{ID: id, Parent: a.scope, Loop: loop, Closure: closure})
	a.scope = id
	return id
}

func (a *analysis) popScope() {
	a.scope = a.scopes[a.scope].Parent
}

func toU32(n int, what string) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s id overflow: %w", what, err))
	}
	return v
}

// collect walks the function body in program order and records bindings,
// use sites, projections, closures and reassignments.
func (a *analysis) collect() {
	fn := a.fn
	if fn.Receiver != nil {
		a.declareParam(fn.Receiver, BindReceiver)
	}
	for i := range fn.Params {
		a.declareParam(&fn.Params[i], BindParam)
	}
	if fn.Body == nil {
		return
	}
	a.pushScope(false, false)
	a.block(fn.Body)
	a.popScope()

	for _, b := range a.bindings[1:] {
		slices.SortStableFunc(b.Uses, func(x, y UseID) int {
			return a.uses[x].Ord - a.uses[y].Ord
		})
	}
}

func (a *analysis) newBinding(name string, local hir.LocalID, t types.TypeID, kind BindingKind, span source.Span) *Binding {
	b := &Binding{
		ID:        BindingID(toU32(len(a.bindings), "binding")),
		Name:      name,
		Local:     local,
		Type:      t,
		Kind:      kind,
		Scope:     a.scope,
		Span:      span,
		loopDepth: a.loopDepth,
		frame:     len(a.frames) - 1,
	}
	a.bindings = append(a.bindings, b)
	return b
}

// place registers b as visible from now on.
func (a *analysis) place(b *Binding) {
	if !b.Local.IsValid() {
		panic(fmt.Sprintf("ownership: %s: binding %q has no local id", a.fn.Name, b.Name))
	}
	b.declOrd = a.nextOrd()
	b.path = slices.Clone(a.path)
	b.loopDepth = a.loopDepth
	b.Scope = a.scope
	a.byLocal[b.Local] = b.ID
}

func (a *analysis) declareParam(p *hir.Param, kind BindingKind) *Binding {
	b := a.newBinding(p.Name, p.Local, p.Type, kind, p.Span)
	b.Declared = p.Declared
	b.param = p
	b.escapeSink = kind != BindClosureParam
	a.place(b)
	return b
}

// lookup resolves a local, creating capture bindings for every closure
// between the declaration and the current frame.
func (a *analysis) lookup(local hir.LocalID, name string) *Binding {
	id, ok := a.byLocal[local]
	if !ok {
		panic(fmt.Sprintf("ownership: %s: reference to unknown local %q (%d)", a.fn.Name, name, local))
	}
	b := a.bindings[id]
	for k := b.frame + 1; k < len(a.frames); k++ {
		b = a.captureIn(k, b)
	}
	return b
}

func (a *analysis) captureIn(k int, outer *Binding) *Binding {
	fr := a.frames[k]
	if inner, ok := fr.captures[outer.ID]; ok {
		return a.bindings[inner]
	}
	ci := fr.closure
	inner := &Binding{
		ID:        BindingID(toU32(len(a.bindings), "binding")),
		Name:      outer.Name,
		Local:     outer.Local,
		Type:      outer.Type,
		Kind:      BindCapture,
		Scope:     ci.scope,
		Span:      ci.expr.Span,
		declOrd:   ci.ord,
		loopDepth: ci.depth,
		path:      ci.path,
		frame:     k,
		closure:   ci,
	}
	a.bindings = append(a.bindings, inner)
	fr.captures[outer.ID] = inner.ID

	u := a.addUse(outer, ci.expr, demand{ctx: Capture, sink: ci.sink}, ci.ord, ci.path, ci.depth, ci.scope)
	u.capture = ci
	inner.Origin = u.ID
	ci.captures = append(ci.captures, &captureInfo{outer: outer.ID, inner: inner.ID, use: u.ID})
	return inner
}

func (a *analysis) addUse(b *Binding, e *hir.Expr, d demand, ord int, path Path, depth int, scope ScopeID) *UseSite {
	u := &UseSite{
		ID:        UseID(toU32(len(a.uses), "use")),
		Binding:   b.ID,
		Expr:      e,
		Context:   d.ctx,
		Ord:       ord,
		Path:      slices.Clone(path),
		LoopDepth: depth,
		Scope:     scope,
		Span:      e.Span,
		Mutating:  d.mut,
		Consuming: d.consume,
		BorrowOK:  d.borrowOK,
		sink:      d.sink,
		param:     d.param,
	}
	if d.sink != nil {
		u.flowsTo = d.sink.binding
	}
	a.uses = append(a.uses, u)
	b.Uses = append(b.Uses, u.ID)
	a.noteDemand(b, d)
	return u
}

// noteDemand records the direct requirements a use puts on its binding.
func (a *analysis) noteDemand(b *Binding, d demand) {
	if d.mut {
		b.RequiresMut = true
	}
	if d.consume && !d.borrowOK {
		b.Consumed = true
	}
}

// Statements ------------------------------------------------------------------

func (a *analysis) block(b *hir.Block) {
	if b == nil {
		return
	}
	for i := range b.Stmts {
		a.stmt(&b.Stmts[i])
	}
}

func (a *analysis) arm(branch uint32, arm uint8, b *hir.Block) {
	elem := PathElem{Branch: branch, Arm: arm}
	a.path = append(a.path, elem)
	a.pushScope(false, false)
	a.block(b)
	a.popScope()
	a.path = a.path[:len(a.path)-1]
	if b.Terminates() {
		a.terminating[elem] = true
	}
}

func (a *analysis) enterLoop() PathElem {
	elem := PathElem{Branch: a.nextBranch, Arm: ArmLoop}
	a.nextBranch++
	a.path = append(a.path, elem)
	a.loopDepth++
	a.pushScope(true, false)
	return elem
}

func (a *analysis) leaveLoop(elem PathElem) {
	a.popScope()
	a.loopDepth--
	a.path = a.path[:len(a.path)-1]
	a.loopEnd[elem] = a.nextOrd()
}

func (a *analysis) stmt(s *hir.Stmt) {
	switch data := s.Data.(type) {
	case *hir.LetData:
		a.let(s, data)

	case *hir.ExprStmtData:
		a.expr(data.Expr, read(PlainRead))

	case *hir.AssignData:
		a.assign(data)

	case *hir.ReturnData:
		if data.Value != nil {
			a.expr(data.Value, demand{ctx: ReturnValue, consume: true, sink: &sink{escape: true}})
		}

	case *hir.IfStmtData:
		a.expr(data.Cond, read(PlainRead))
		br := a.nextBranch
		a.nextBranch++
		a.arm(br, 0, data.Then)
		if data.Else != nil {
			a.arm(br, 1, data.Else)
		}

	case *hir.WhileData:
		elem := a.enterLoop()
		a.expr(data.Cond, read(PlainRead))
		a.block(data.Body)
		a.leaveLoop(elem)

	case *hir.ForData:
		a.forLoop(s, data)

	case *hir.BlockStmtData:
		a.pushScope(false, false)
		a.block(data.Block)
		a.popScope()

	case *hir.BreakData, *hir.ContinueData:

	case nil:
		panic(fmt.Sprintf("ownership: %s: %s statement without data", a.fn.Name, s.Kind))
	default:
		panic(fmt.Sprintf("ownership: %s: unexpected statement data %T", a.fn.Name, s.Data))
	}
}

func (a *analysis) let(s *hir.Stmt, data *hir.LetData) {
	b := a.newBinding(data.Name, data.Local, data.Type, BindLet, s.Span)
	b.IsMut = data.IsMut
	b.letData = data
	if data.Value != nil {
		res := a.expr(data.Value, demand{ctx: StoreValue, consume: true, borrowOK: true, sink: &sink{binding: b.ID}})
		switch {
		case res.use != nil:
			b.initUse = res.use.ID
		case res.proj != nil:
			b.initProj = res.proj
			res.proj.holder = b.ID
		case res.closure != nil:
			b.closure = res.closure
		}
	}
	a.place(b)
}

func (a *analysis) assign(data *hir.AssignData) {
	target := data.Target
	if target == nil || data.Value == nil {
		panic(fmt.Sprintf("ownership: %s: assignment without target or value", a.fn.Name))
	}
	compound := data.Op != hir.OpNone

	switch target.Kind {
	case hir.ExprVarRef:
		ref := varRef(target)
		b := a.lookup(ref.Local, ref.Name)
		a.bindingByExpr[target] = b
		if compound {
			a.expr(data.Value, read(PlainRead))
			a.expr(target, demand{ctx: PlainRead, mut: true})
			return
		}
		a.expr(data.Value, demand{ctx: StoreValue, consume: true, sink: &sink{binding: b.ID}})
		b.Reassigned = true
		a.kills[b.ID] = append(a.kills[b.ID], kill{binding: b.ID, ord: a.nextOrd(), path: slices.Clone(a.path)})

	case hir.ExprFieldAccess, hir.ExprIndex:
		if compound {
			a.expr(data.Value, read(PlainRead))
		} else {
			d := demand{ctx: StoreValue, consume: true}
			if root := a.rootBinding(target); root != nil {
				d.sink = &sink{binding: root.ID, into: true}
			}
			a.expr(data.Value, d)
		}
		a.expr(target, demand{ctx: PlainRead, mut: true})

	default:
		panic(fmt.Sprintf("ownership: %s: cannot assign to %s", a.fn.Name, target.Kind))
	}
}

// rootBinding finds the binding a place expression is rooted at without recording a use.
func (a *analysis) rootBinding(e *hir.Expr) *Binding {
	for e != nil {
		switch data := e.Data.(type) {
		case hir.VarRefData:
			return a.lookup(data.Local, data.Name)
		case hir.FieldAccessData:
			e = data.Object
		case hir.IndexData:
			e = data.Object
		default:
			return nil
		}
	}
	return nil
}

func (a *analysis) forLoop(s *hir.Stmt, data *hir.ForData) {
	li := &loopInfo{data: data, mode: data.Mode}
	a.loops[data] = li

	d := demand{ctx: LoopSource}
	switch data.Mode {
	case hir.IterBorrowMut:
		d.mut = true
	case hir.IterConsume:
		d.consume = true
	default:
		d.borrowOK = true
	}
	res := a.expr(data.Iterable, d)
	if res.use != nil {
		li.source = res.use.ID
		a.loopSrc[res.use.ID] = li
	}
	if li.proj = res.proj; li.proj != nil && li.proj.root.IsValid() {
		a.loopSrc[li.proj.root] = li
	}

	li.elem = a.enterLoop()
	v := a.newBinding(data.VarName, data.Local, data.VarType, BindLoopVar, s.Span)
	v.forData = data
	a.place(v)
	li.v = v.ID
	if res.use != nil {
		v.Origin = res.use.ID
	} else if res.proj != nil && res.proj.root.IsValid() {
		v.Origin = res.proj.root
	}
	a.block(data.Body)
	a.leaveLoop(li.elem)
	v.LoanEnd = a.loopEnd[li.elem]
}

// Expressions -----------------------------------------------------------------

func varRef(e *hir.Expr) hir.VarRefData {
	data, ok := e.Data.(hir.VarRefData)
	if !ok {
		panic(fmt.Sprintf("ownership: VarRef expression carries %T", e.Data))
	}
	return data
}

func (a *analysis) expr(e *hir.Expr, d demand) produced {
	if e == nil {
		return produced{}
	}
	if e.Data == nil {
		panic(fmt.Sprintf("ownership: %s: %s expression without data", a.fn.Name, e.Kind))
	}
	switch data := e.Data.(type) {
	case hir.LiteralData:
		return produced{}

	case hir.VarRefData:
		b := a.lookup(data.Local, data.Name)
		u := a.addUse(b, e, d, a.nextOrd(), a.path, a.loopDepth, a.scope)
		a.useByExpr[e] = u
		return produced{use: u}

	case hir.UnaryData:
		a.expr(data.Operand, read(PlainRead))

	case hir.BinaryData:
		ctx := PlainRead
		if data.Op.IsComparison() {
			ctx = ComparisonOperand
		}
		a.expr(data.Left, read(ctx))
		a.expr(data.Right, read(ctx))

	case hir.CallData:
		a.args(data.Callee, data.ParamModes, data.Args, nil)

	case hir.MethodCallData:
		a.methodCall(data)

	case hir.FieldAccessData, hir.IndexData:
		return produced{proj: a.projection(e, d)}

	case hir.StructLitData:
		for _, f := range data.Fields {
			a.expr(f.Value, a.elemDemand(d))
		}

	case hir.ArrayLitData:
		for _, el := range data.Elems {
			a.expr(el, a.elemDemand(d))
		}

	case hir.TupleLitData:
		for _, el := range data.Elems {
			a.expr(el, a.elemDemand(d))
		}

	case *hir.ClosureData:
		return produced{closure: a.closure(e, data, d)}

	default:
		panic(fmt.Sprintf("ownership: %s: unexpected expression data %T", a.fn.Name, e.Data))
	}
	return produced{}
}

// elemDemand is the demand on an element stored into a literal.
func (a *analysis) elemDemand(parent demand) demand {
	d := demand{ctx: StoreValue, consume: true}
	if parent.consume {
		d.sink = parent.sink
		d.param = parent.param
	}
	return d
}

func (a *analysis) projection(e *hir.Expr, d demand) *projection {
	p := &projection{
		expr:     e,
		elem:     e.Type,
		consumed: d.consume,
		borrowOK: d.borrowOK,
		sink:     d.sink,
	}
	a.projections = append(a.projections, p)
	a.projByExpr[e] = p

	var obj, index *hir.Expr
	ctx := FieldAccessRoot
	switch data := e.Data.(type) {
	case hir.FieldAccessData:
		obj = data.Object
	case hir.IndexData:
		obj, index = data.Object, data.Index
		ctx = IndexTarget
	}
	od := demand{ctx: ctx, mut: d.mut}
	if obj == nil {
		panic(fmt.Sprintf("ownership: %s: %s without object", a.fn.Name, e.Kind))
	}
	switch obj.Kind {
	case hir.ExprVarRef:
		res := a.expr(obj, od)
		res.use.proj = p
		if d.sink != nil {
			res.use.flowsTo = d.sink.binding
		}
		p.root = res.use.ID
	case hir.ExprFieldAccess, hir.ExprIndex:
		inner := a.projection(obj, od)
		p.root = inner.root
	default:
		a.expr(obj, read(PlainRead))
	}
	if index != nil {
		a.expr(index, read(IndexSubject))
	}
	return p
}

func (a *analysis) methodCall(data hir.MethodCallData) {
	mode, known := a.receiverMode(data)
	pt := &paramTarget{callee: data.Callee, index: -1}
	var d demand
	switch {
	case !known:
		pt.escapes = true
		d = demand{ctx: CallArgument, consume: true, sink: &sink{escape: true}, param: pt}
	case mode == hir.OwnershipRefMut:
		d = demand{ctx: MutatingReceiver, mut: true, param: pt}
	case mode == hir.OwnershipRef:
		d = demand{ctx: PlainRead, borrowOK: true, param: pt}
	default:
		d = demand{ctx: CallArgument, consume: true, param: pt}
		if ps, ok := a.summaryParam(data.Callee, -1); ok && ps.Escapes {
			pt.escapes = true
			d.sink = &sink{escape: true}
		}
	}
	a.expr(data.Receiver, d)

	var into *sink
	if known && mode == hir.OwnershipRefMut {
		if root := a.rootBinding(data.Receiver); root != nil {
			into = &sink{binding: root.ID, into: true}
		}
	}
	modes := data.ParamModes
	if !data.Callee.IsValid() && len(modes) == 0 {
		if bm, builtin := hir.BuiltinArgModes(a.opts.Types, data.Receiver.Type, data.Method, len(data.Args)); builtin {
			modes = bm
		}
	}
	a.args(data.Callee, modes, data.Args, into)
}

func (a *analysis) receiverMode(data hir.MethodCallData) (hir.Ownership, bool) {
	if data.Callee.IsValid() {
		if ps, ok := a.summaryParam(data.Callee, -1); ok {
			return ps.Mode(), true
		}
	}
	if data.MutatesReceiver {
		return hir.OwnershipRefMut, true
	}
	if data.ReceiverMode != hir.OwnershipInfer {
		return data.ReceiverMode, true
	}
	if !data.Callee.IsValid() {
		return hir.BuiltinMethodMode(a.opts.Types, data.Receiver.Type, data.Method)
	}
	return hir.OwnershipInfer, false
}

func (a *analysis) summaryParam(callee hir.FuncID, i int) (ParamSummary, bool) {
	if !callee.IsValid() {
		return ParamSummary{}, false
	}
	sum, ok := a.sums.Summary(callee)
	if !ok {
		a.unresolved = true
		return ParamSummary{}, false
	}
	return sum.Param(i)
}

// args walks call arguments against the callee's parameter modes. Arguments
// of callees without a summary or declaration may escape.
func (a *analysis) args(callee hir.FuncID, modes []hir.Ownership, args []*hir.Expr, into *sink) {
	if callee.IsValid() {
		if _, ok := a.sums.Summary(callee); !ok {
			a.unresolved = true
		}
	}
	for i, arg := range args {
		pt := &paramTarget{callee: callee, index: i}
		mode, escapes, known := hir.OwnershipInfer, false, false
		if ps, ok := a.summaryParam(callee, i); ok {
			mode, escapes, known = ps.Mode(), ps.Escapes, true
		} else if i < len(modes) && modes[i] != hir.OwnershipInfer {
			mode, known = modes[i], true
		}

		var d demand
		switch {
		case !known:
			pt.escapes = true
			d = demand{ctx: CallArgument, consume: true, sink: &sink{escape: true}, param: pt}
		case mode == hir.OwnershipRef:
			d = demand{ctx: CallArgument, borrowOK: true, param: pt}
		case mode == hir.OwnershipRefMut:
			d = demand{ctx: CallArgument, mut: true, param: pt}
		default:
			d = demand{ctx: CallArgument, consume: true, param: pt, sink: into}
			if escapes {
				pt.escapes = true
				d.sink = &sink{escape: true}
			}
		}
		a.expr(arg, d)
	}
}

func (a *analysis) closure(e *hir.Expr, data *hir.ClosureData, d demand) *closureInfo {
	ci := &closureInfo{
		expr:  e,
		data:  data,
		ord:   a.nextOrd(),
		path:  slices.Clone(a.path),
		depth: a.loopDepth,
		sink:  d.sink,
	}
	if d.param != nil && d.param.escapes {
		ci.escapes = true
	}
	a.closures = append(a.closures, ci)
	ci.scope = a.pushScope(false, true)
	ci.frame = len(a.frames)
	a.frames = append(a.frames, &frame{closure: ci, captures: make(map[BindingID]BindingID)})

	for i := range data.Params {
		b := a.newBinding(data.Params[i].Name, data.Params[i].Local, data.Params[i].Type, BindClosureParam, data.Params[i].Span)
		b.Declared = data.Params[i].Declared
		b.param = &data.Params[i]
		a.place(b)
	}
	a.block(data.Body)

	a.frames = a.frames[:len(a.frames)-1]
	a.popScope()
	return ci
}
