// Package wire is the serialisable form of a typed HIR program.
//
// The type checker writes a Program as JSON or msgpack; Build turns it into
// an hir.Program plus a frozen capability registry. Export goes the other
// way and carries the engine's annotations, which is how results leave the
// process.
package wire

// FormatVersion is written by Export; Decode accepts any 1.x document.
const FormatVersion = "1.0.0"

// Span is a [start, end) byte range in Program.Source.
type Span [2]uint32

// Program is the top-level document.
type Program struct {
	Version      string       `json:"version" msgpack:"version"`
	Name         string       `json:"name" msgpack:"name"`
	Source       *Source      `json:"source,omitempty" msgpack:"source,omitempty"`
	Types        []Type       `json:"types" msgpack:"types"`
	Capabilities []Capability `json:"capabilities,omitempty" msgpack:"capabilities,omitempty"`
	Modules      []Module     `json:"modules" msgpack:"modules"`
}

// Source optionally carries the text spans point into, for excerpts.
type Source struct {
	Path string `json:"path" msgpack:"path"`
	Text string `json:"text,omitempty" msgpack:"text,omitempty"`
}

// Type is one entry of the type table. ID is document-local and is what
// every other type reference in the document points at; 0 means "none".
type Type struct {
	ID       uint32    `json:"id" msgpack:"id"`
	Kind     string    `json:"kind" msgpack:"kind"`
	Name     string    `json:"name,omitempty" msgpack:"name,omitempty"`
	Width    uint8     `json:"width,omitempty" msgpack:"width,omitempty"`
	Elem     uint32    `json:"elem,omitempty" msgpack:"elem,omitempty"`
	Key      uint32    `json:"key,omitempty" msgpack:"key,omitempty"`
	Mutable  bool      `json:"mutable,omitempty" msgpack:"mutable,omitempty"`
	Fields   []Field   `json:"fields,omitempty" msgpack:"fields,omitempty"`
	Variants []Variant `json:"variants,omitempty" msgpack:"variants,omitempty"`
	Elems    []uint32  `json:"elems,omitempty" msgpack:"elems,omitempty"`
	Params   []uint32  `json:"params,omitempty" msgpack:"params,omitempty"`
	Result   uint32    `json:"result,omitempty" msgpack:"result,omitempty"`
	Copy     bool      `json:"copy,omitempty" msgpack:"copy,omitempty"`
	Clone    bool      `json:"clone,omitempty" msgpack:"clone,omitempty"`
}

type Field struct {
	Name string `json:"name" msgpack:"name"`
	Type uint32 `json:"type" msgpack:"type"`
}

type Variant struct {
	Name   string  `json:"name" msgpack:"name"`
	Fields []Field `json:"fields,omitempty" msgpack:"fields,omitempty"`
}

// Capability pins the duplicability of a nominal type by name.
type Capability struct {
	Type       string `json:"type" msgpack:"type"`
	Trivial    bool   `json:"trivial,omitempty" msgpack:"trivial,omitempty"`
	Duplicable bool   `json:"duplicable,omitempty" msgpack:"duplicable,omitempty"`
}

type Module struct {
	Name  string `json:"name" msgpack:"name"`
	Path  string `json:"path,omitempty" msgpack:"path,omitempty"`
	Funcs []Func `json:"funcs" msgpack:"funcs"`
}

// Func is a function or method. A nil Body declares an extern.
type Func struct {
	ID       uint32  `json:"id" msgpack:"id"`
	Name     string  `json:"name" msgpack:"name"`
	Span     Span    `json:"span" msgpack:"span"`
	Public   bool    `json:"public,omitempty" msgpack:"public,omitempty"`
	Receiver *Param  `json:"receiver,omitempty" msgpack:"receiver,omitempty"`
	Params   []Param `json:"params,omitempty" msgpack:"params,omitempty"`
	Result   uint32  `json:"result,omitempty" msgpack:"result,omitempty"`
	Body     *Block  `json:"body,omitempty" msgpack:"body,omitempty"`
}

// Param is also used for closure parameters. Ownership and NeedsMut are
// outputs.
type Param struct {
	Name      string `json:"name" msgpack:"name"`
	Local     uint32 `json:"local" msgpack:"local"`
	Type      uint32 `json:"type" msgpack:"type"`
	Span      Span   `json:"span" msgpack:"span"`
	Declared  string `json:"declared,omitempty" msgpack:"declared,omitempty"`
	Ownership string `json:"ownership,omitempty" msgpack:"ownership,omitempty"`
	NeedsMut  bool   `json:"needs_mut,omitempty" msgpack:"needs_mut,omitempty"`
}

type Block struct {
	Span  Span   `json:"span" msgpack:"span"`
	Stmts []Stmt `json:"stmts" msgpack:"stmts"`
}

// Stmt is a flattened statement; Kind selects the meaningful fields:
//
//	let      Name Local Type Mut Value
//	expr     Value
//	assign   Target Value Op
//	return   Value
//	if       Cond Then Else
//	while    Cond Body
//	for      Name Local Type Iter Mode Body
//	block    Body
//	break, continue
//
// Ownership, NeedsMut and Chosen are outputs.
type Stmt struct {
	Kind      string `json:"kind" msgpack:"kind"`
	Span      Span   `json:"span" msgpack:"span"`
	Name      string `json:"name,omitempty" msgpack:"name,omitempty"`
	Local     uint32 `json:"local,omitempty" msgpack:"local,omitempty"`
	Type      uint32 `json:"type,omitempty" msgpack:"type,omitempty"`
	Mut       bool   `json:"mut,omitempty" msgpack:"mut,omitempty"`
	Value     *Expr  `json:"value,omitempty" msgpack:"value,omitempty"`
	Target    *Expr  `json:"target,omitempty" msgpack:"target,omitempty"`
	Op        string `json:"op,omitempty" msgpack:"op,omitempty"`
	Cond      *Expr  `json:"cond,omitempty" msgpack:"cond,omitempty"`
	Then      *Block `json:"then,omitempty" msgpack:"then,omitempty"`
	Else      *Block `json:"else,omitempty" msgpack:"else,omitempty"`
	Body      *Block `json:"body,omitempty" msgpack:"body,omitempty"`
	Iter      *Expr  `json:"iter,omitempty" msgpack:"iter,omitempty"`
	Mode      string `json:"mode,omitempty" msgpack:"mode,omitempty"`
	Ownership string `json:"ownership,omitempty" msgpack:"ownership,omitempty"`
	NeedsMut  bool   `json:"needs_mut,omitempty" msgpack:"needs_mut,omitempty"`
	Chosen    string `json:"chosen,omitempty" msgpack:"chosen,omitempty"`
}

// Expr is a flattened expression; Kind selects the meaningful fields:
//
//	lit      Lit Text
//	var      Name Local
//	unary    Op X
//	binary   Op X Y
//	call     Callee | Name Modes; Args
//	method   X Name Callee RecvMode Mutates Modes Args
//	field    X Name
//	index    X Y
//	struct   Name Fields Args
//	array    Args
//	tuple    Args
//	closure  Params Result Body
//
// Own and Captures are outputs.
type Expr struct {
	Kind     string    `json:"kind" msgpack:"kind"`
	Type     uint32    `json:"type" msgpack:"type"`
	Span     Span      `json:"span" msgpack:"span"`
	Lit      string    `json:"lit,omitempty" msgpack:"lit,omitempty"`
	Text     string    `json:"text,omitempty" msgpack:"text,omitempty"`
	Name     string    `json:"name,omitempty" msgpack:"name,omitempty"`
	Local    uint32    `json:"local,omitempty" msgpack:"local,omitempty"`
	Op       string    `json:"op,omitempty" msgpack:"op,omitempty"`
	X        *Expr     `json:"x,omitempty" msgpack:"x,omitempty"`
	Y        *Expr     `json:"y,omitempty" msgpack:"y,omitempty"`
	Args     []*Expr   `json:"args,omitempty" msgpack:"args,omitempty"`
	Fields   []string  `json:"fields,omitempty" msgpack:"fields,omitempty"`
	Callee   uint32    `json:"callee,omitempty" msgpack:"callee,omitempty"`
	Modes    []string  `json:"modes,omitempty" msgpack:"modes,omitempty"`
	RecvMode string    `json:"recv_mode,omitempty" msgpack:"recv_mode,omitempty"`
	Mutates  bool      `json:"mutates,omitempty" msgpack:"mutates,omitempty"`
	Params   []Param   `json:"params,omitempty" msgpack:"params,omitempty"`
	Result   uint32    `json:"result,omitempty" msgpack:"result,omitempty"`
	Body     *Block    `json:"body,omitempty" msgpack:"body,omitempty"`
	Own      *Own      `json:"own,omitempty" msgpack:"own,omitempty"`
	Captures []Capture `json:"captures,omitempty" msgpack:"captures,omitempty"`
}

// Own is the engine's decision at one expression.
type Own struct {
	Action string `json:"action" msgpack:"action"`
	Deref  bool   `json:"deref,omitempty" msgpack:"deref,omitempty"`
	Reason string `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

type Capture struct {
	Name  string `json:"name" msgpack:"name"`
	Local uint32 `json:"local" msgpack:"local"`
	Mode  string `json:"mode" msgpack:"mode"`
}
