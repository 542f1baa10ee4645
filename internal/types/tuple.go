package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// TupleInfo stores the element types for a tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// FnInfo stores the signature of a function type.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// RegisterTuple creates or finds an existing tuple type with the given elements.
func (in *Interner) RegisterTuple(elems []TypeID) TypeID {
	for i := 1; i < len(in.tuples); i++ {
		if slices.Equal(in.tuples[i].Elems, elems) {
			return in.Intern(Type{Kind: KindTuple, Payload: uint32(i)}) // #nosec G115 -- bounded by appendTupleInfo
		}
	}
	slot := in.appendTupleInfo(TupleInfo{Elems: slices.Clone(elems)})
	return in.internRaw(Type{Kind: KindTuple, Payload: slot})
}

// TupleInfo returns the element types for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (*TupleInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple {
		return nil, false
	}
	if int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return &in.tuples[tt.Payload], true
}

// RegisterFn creates a function type.
func (in *Interner) RegisterFn(params []TypeID, result TypeID) TypeID {
	if in.fns == nil {
		in.fns = append(in.fns, FnInfo{})
	}
	in.fns = append(in.fns, FnInfo{Params: slices.Clone(params), Result: result})
	slot, err := safecast.Conv[uint32](len(in.fns) - 1)
	if err != nil {
		panic(fmt.Errorf("fn info overflow: %w", err))
	}
	return in.internRaw(Type{Kind: KindFn, Payload: slot})
}

// FnInfo returns the signature for a function TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

func (in *Interner) appendTupleInfo(info TupleInfo) uint32 {
	if in.tuples == nil {
		in.tuples = append(in.tuples, TupleInfo{})
	}
	in.tuples = append(in.tuples, info)
	slot, err := safecast.Conv[uint32](len(in.tuples) - 1)
	if err != nil {
		panic(fmt.Errorf("tuple info overflow: %w", err))
	}
	return slot
}
