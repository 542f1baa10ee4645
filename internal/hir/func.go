package hir

import (
	"borrowinfer/internal/source"
	"borrowinfer/internal/types"
)

// FuncFlags represents function modifiers as a bitmask.
type FuncFlags uint32

const (
	// FuncPublic indicates a public function.
	FuncPublic FuncFlags = 1 << iota
	// FuncMethod indicates a function with a receiver.
	FuncMethod
	// FuncExtern indicates a declaration without a body.
	FuncExtern
)

// HasFlag returns true if the given flag is set.
func (f FuncFlags) HasFlag(flag FuncFlags) bool {
	return f&flag != 0
}

// String returns a human-readable representation of flags.
func (f FuncFlags) String() string {
	s := ""
	if f.HasFlag(FuncPublic) {
		s += "pub "
	}
	if f.HasFlag(FuncExtern) {
		s += "extern "
	}
	return s
}

// Param represents a function, method receiver or closure parameter.
// Declared is what the source fixed; Ownership and NeedsMut are written by
// the engine.
type Param struct {
	Name      string
	Local     LocalID
	Type      types.TypeID
	Span      source.Span
	Declared  Ownership
	Ownership Ownership
	NeedsMut  bool
}

// Func represents an HIR function.
type Func struct {
	ID       FuncID
	Name     string
	Span     source.Span
	Receiver *Param // nil for free functions
	Params   []Param
	Result   types.TypeID
	Body     *Block // nil for extern declarations
	Flags    FuncFlags
}

// IsMethod reports whether the function has a receiver.
func (f *Func) IsMethod() bool {
	return f.Receiver != nil
}

// Module represents an HIR module (corresponding to a source file).
type Module struct {
	Name  string
	Path  string
	Funcs []*Func
}

// Program is everything the type checker hands over in one invocation.
type Program struct {
	Name    string
	Types   *types.Interner
	Files   *source.FileSet
	Modules []*Module
}

// Funcs returns every function of the program in module order.
func (p *Program) Funcs() []*Func {
	var out []*Func
	for _, m := range p.Modules {
		out = append(out, m.Funcs...)
	}
	return out
}

// Func finds a function by id.
func (p *Program) Func(id FuncID) *Func {
	for _, m := range p.Modules {
		for _, f := range m.Funcs {
			if f.ID == id {
				return f
			}
		}
	}
	return nil
}
