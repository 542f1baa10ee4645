package hir

import "borrowinfer/internal/types"

// builtinMethod is the calling convention of a builtin collection method:
// how it takes the receiver and each argument.
type builtinMethod struct {
	recv Ownership
	args []Ownership
}

var (
	byValue = []Ownership{OwnershipOwn}
	byRef   = []Ownership{OwnershipRef}
)

// builtinMethods lists the collection methods every program can call
// without declaring them.
var builtinMethods = map[types.Kind]map[string]builtinMethod{
	types.KindVec: {
		"push":     {OwnershipRefMut, byValue},
		"pop":      {OwnershipRefMut, nil},
		"insert":   {OwnershipRefMut, []Ownership{OwnershipOwn, OwnershipOwn}},
		"remove":   {OwnershipRefMut, byValue},
		"clear":    {OwnershipRefMut, nil},
		"append":   {OwnershipRefMut, []Ownership{OwnershipRefMut}},
		"extend":   {OwnershipRefMut, byValue},
		"truncate": {OwnershipRefMut, byValue},
		"sort":     {OwnershipRefMut, nil},
		"len":      {OwnershipRef, nil},
		"is_empty": {OwnershipRef, nil},
		"contains": {OwnershipRef, byRef},
		"get":      {OwnershipRef, byValue},
		"first":    {OwnershipRef, nil},
		"last":     {OwnershipRef, nil},
	},
	types.KindMap: {
		"insert":       {OwnershipRefMut, []Ownership{OwnershipOwn, OwnershipOwn}},
		"remove":       {OwnershipRefMut, byRef},
		"clear":        {OwnershipRefMut, nil},
		"get":          {OwnershipRef, byRef},
		"contains_key": {OwnershipRef, byRef},
		"len":          {OwnershipRef, nil},
		"is_empty":     {OwnershipRef, nil},
	},
	types.KindString: {
		"push_str": {OwnershipRefMut, byRef},
		"push":     {OwnershipRefMut, byValue},
		"clear":    {OwnershipRefMut, nil},
		"len":      {OwnershipRef, nil},
		"is_empty": {OwnershipRef, nil},
		"contains": {OwnershipRef, byRef},
	},
}

func lookupBuiltin(in *types.Interner, recv types.TypeID, method string) (builtinMethod, bool) {
	tt, ok := in.Lookup(recv)
	if !ok {
		return builtinMethod{}, false
	}
	if tt.Kind == types.KindReference {
		if tt, ok = in.Lookup(tt.Elem); !ok {
			return builtinMethod{}, false
		}
	}
	m, ok := builtinMethods[tt.Kind][method]
	return m, ok
}

// BuiltinMethodMode returns the receiver mode of a builtin collection method.
func BuiltinMethodMode(in *types.Interner, recv types.TypeID, method string) (Ownership, bool) {
	m, ok := lookupBuiltin(in, recv, method)
	if !ok {
		return OwnershipInfer, false
	}
	return m.recv, true
}

// BuiltinArgModes returns the modes of n arguments passed to a builtin
// collection method. Lookups take their key by reference; arguments past
// the declared ones are taken by value.
func BuiltinArgModes(in *types.Interner, recv types.TypeID, method string, n int) ([]Ownership, bool) {
	m, ok := lookupBuiltin(in, recv, method)
	if !ok {
		return nil, false
	}
	modes := make([]Ownership, n)
	for i := range modes {
		modes[i] = OwnershipOwn
		if i < len(m.args) {
			modes[i] = m.args[i]
		}
	}
	return modes, true
}
