package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Unit   TypeID
	Bool   TypeID
	Int    TypeID
	Uint   TypeID
	Float  TypeID
	Char   TypeID
	String TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal types get a fresh id per registration.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	nominals []NominalInfo
	tuples   []TupleInfo
	fns      []FnInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // reserve 0 as invalid sentinel
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.Float = in.Intern(MakeFloat(WidthAny))
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Len returns the number of interned types including the sentinel.
func (in *Interner) Len() int {
	return len(in.types)
}

// Each visits every interned type in id order.
func (in *Interner) Each(fn func(TypeID, Type)) {
	for i := 1; i < len(in.types); i++ {
		fn(TypeID(i), in.types[i]) // #nosec G115 -- bounded by internRaw
	}
}

// Vec interns a vector of elem.
func (in *Interner) Vec(elem TypeID) TypeID { return in.Intern(MakeVec(elem)) }

// Map interns a map from key to value.
func (in *Interner) Map(key, value TypeID) TypeID { return in.Intern(MakeMap(key, value)) }

// Ref interns a reference to elem.
func (in *Interner) Ref(elem TypeID, mutable bool) TypeID {
	return in.Intern(MakeReference(elem, mutable))
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Key     TypeID
	Width   Width
	Mutable bool
	Payload uint32
}
