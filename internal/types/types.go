package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// IsValid reports whether id refers to an interned type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindUint
	KindFloat
	KindChar
	KindString
	KindStruct
	KindEnum
	KindTuple
	KindVec
	KindMap
	KindReference
	KindFn
	KindGeneric
	KindOpaque
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindUnit:      "unit",
	KindBool:      "bool",
	KindInt:       "int",
	KindUint:      "uint",
	KindFloat:     "float",
	KindChar:      "char",
	KindString:    "string",
	KindStruct:    "struct",
	KindEnum:      "enum",
	KindTuple:     "tuple",
	KindVec:       "vec",
	KindMap:       "map",
	KindReference: "reference",
	KindFn:        "fn",
	KindGeneric:   "generic",
	KindOpaque:    "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}

// IsPrimitive reports scalar kinds that live entirely in registers.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindUnit, KindBool, KindInt, KindUint, KindFloat, KindChar:
		return true
	}
	return false
}

// IsNominal reports kinds whose identity is their declared name.
func (k Kind) IsNominal() bool {
	switch k {
	case KindStruct, KindEnum, KindGeneric, KindOpaque:
		return true
	}
	return false
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // vec element, map value, referent
	Key     TypeID // map key
	Width   Width  // for numeric primitives
	Mutable bool   // for references
	Payload uint32 // slot in nominal/tuple/fn tables
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes a signed integer of the given width (WidthAny for "int").
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakeVec describes a growable sequence of elem.
func MakeVec(elem TypeID) Type {
	return Type{Kind: KindVec, Elem: elem}
}

// MakeMap describes a key/value table.
func MakeMap(key, value TypeID) Type {
	return Type{Kind: KindMap, Key: key, Elem: value}
}

// MakeReference describes &T or &mut T depending on the mutable flag.
func MakeReference(elem TypeID, mutable bool) Type {
	return Type{Kind: KindReference, Elem: elem, Mutable: mutable}
}
