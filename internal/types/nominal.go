package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Field describes a single named member of a struct or enum variant.
type Field struct {
	Name string
	Type TypeID
}

// Variant is one alternative of an enum.
type Variant struct {
	Name   string
	Fields []Field
}

// NominalInfo stores metadata for struct, enum, generic and opaque types.
// Copy and Clone mirror the declaration's derive list.
type NominalInfo struct {
	Name     string
	Fields   []Field
	Variants []Variant
	Copy     bool
	Clone    bool
}

// RegisterNominal allocates a nominal type slot and returns its TypeID.
func (in *Interner) RegisterNominal(kind Kind, name string) TypeID {
	if !kind.IsNominal() {
		panic(fmt.Sprintf("types: %s is not a nominal kind", kind))
	}
	slot := in.appendNominal(NominalInfo{Name: name})
	return in.internRaw(Type{Kind: kind, Payload: slot})
}

// RegisterStruct is a shortcut for a struct with fields set in one go.
func (in *Interner) RegisterStruct(name string, fields []Field, copyable, cloneable bool) TypeID {
	id := in.RegisterNominal(KindStruct, name)
	in.SetFields(id, fields)
	in.SetDerives(id, copyable, cloneable)
	return id
}

// SetFields stores the resolved field descriptors for the struct type.
func (in *Interner) SetFields(id TypeID, fields []Field) {
	if info := in.nominal(id); info != nil {
		info.Fields = slices.Clone(fields)
	}
}

// SetVariants stores enum alternatives.
func (in *Interner) SetVariants(id TypeID, variants []Variant) {
	info := in.nominal(id)
	if info == nil {
		return
	}
	info.Variants = make([]Variant, len(variants))
	for i, v := range variants {
		info.Variants[i] = Variant{Name: v.Name, Fields: slices.Clone(v.Fields)}
	}
}

// SetDerives records the copy/clone derives of a nominal type.
func (in *Interner) SetDerives(id TypeID, copyable, cloneable bool) {
	if info := in.nominal(id); info != nil {
		info.Copy = copyable
		info.Clone = cloneable
	}
}

// NominalInfo returns metadata for the provided nominal TypeID.
func (in *Interner) NominalInfo(id TypeID) (*NominalInfo, bool) {
	info := in.nominal(id)
	return info, info != nil
}

// FieldType resolves a struct field by name.
func (in *Interner) FieldType(id TypeID, name string) (TypeID, bool) {
	info := in.nominal(id)
	if info == nil {
		return NoTypeID, false
	}
	for _, f := range info.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return NoTypeID, false
}

func (in *Interner) nominal(id TypeID) *NominalInfo {
	tt, ok := in.Lookup(id)
	if !ok || !tt.Kind.IsNominal() {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
		return nil
	}
	return &in.nominals[tt.Payload]
}

func (in *Interner) appendNominal(info NominalInfo) uint32 {
	if in.nominals == nil {
		in.nominals = append(in.nominals, NominalInfo{}) // reserve 0
	}
	in.nominals = append(in.nominals, info)
	slot, err := safecast.Conv[uint32](len(in.nominals) - 1)
	if err != nil {
		panic(fmt.Errorf("nominal info overflow: %w", err))
	}
	return slot
}
