// Package hir provides the typed, high-level IR the inference engine reads
// and annotates.
//
// Every expression carries the TypeID the type checker resolved for it and a
// source span. The engine writes its decisions back into the tree: an
// Annotation on each use-site expression, ownership on parameters and let
// bindings, the iteration mode of for-loops and the capture list of closures.
// Code generation consumes those fields literally.
package hir

// FuncID identifies a function within an HIR program.
type FuncID uint32

// LocalID identifies a local variable or parameter within a function.
type LocalID uint32

// NodeID numbers expressions of one function in pre-order.
type NodeID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoFuncID  FuncID  = 0
	NoLocalID LocalID = 0
	NoNodeID  NodeID  = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id FuncID) IsValid() bool  { return id != NoFuncID }
func (id LocalID) IsValid() bool { return id != NoLocalID }
func (id NodeID) IsValid() bool  { return id != NoNodeID }
