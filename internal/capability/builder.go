package capability

import (
	"fmt"
	"slices"
	"strconv"

	"borrowinfer/internal/types"
)

// Builder accumulates capability entries before they are frozen.
type Builder struct {
	types     *types.Interner
	entries   map[types.TypeID]Entry
	unknown   map[types.TypeID]struct{}
	visiting  map[types.TypeID]bool
	overrides map[types.TypeID]Override
	frozen    bool
}

// Override pins the capability of a type regardless of its derives.
type Override struct {
	TriviallyDuplicable bool
	Duplicable          bool
}

// NewBuilder creates an empty builder over the given interner.
func NewBuilder(in *types.Interner) *Builder {
	return &Builder{
		types:     in,
		entries:   make(map[types.TypeID]Entry),
		unknown:   make(map[types.TypeID]struct{}),
		visiting:  make(map[types.TypeID]bool),
		overrides: make(map[types.TypeID]Override),
	}
}

// FromInterner derives an entry for every interned type. Generic parameters
// and aggregates built from them stay unknown.
func FromInterner(in *types.Interner) *Builder {
	b := NewBuilder(in)
	b.DeriveAll()
	return b
}

// DeriveAll derives entries for every type currently interned.
func (b *Builder) DeriveAll() {
	b.mustOpen()
	b.types.Each(func(id types.TypeID, _ types.Type) {
		b.derive(id)
	})
}

// Override pins a type's capability. Trivially duplicable implies duplicable.
func (b *Builder) Override(id types.TypeID, o Override) {
	b.mustOpen()
	if o.TriviallyDuplicable {
		o.Duplicable = true
	}
	b.overrides[id] = o
	delete(b.unknown, id)
	if e, ok := b.entries[id]; ok {
		e.TriviallyDuplicable = o.TriviallyDuplicable
		e.Duplicable = o.Duplicable
		b.entries[id] = e
		return
	}
	// derive picks the override up and keeps fields and element types
	b.derive(id)
}

// OverrideByName pins every nominal type declared under name and reports
// how many types matched.
func (b *Builder) OverrideByName(name string, o Override) int {
	b.mustOpen()
	n := 0
	b.types.Each(func(id types.TypeID, tt types.Type) {
		if !tt.Kind.IsNominal() {
			return
		}
		if info, ok := b.types.NominalInfo(id); ok && info.Name == name {
			b.Override(id, o)
			n++
		}
	})
	return n
}

// Forget drops the entry for id so that lookups report an unknown capability.
func (b *Builder) Forget(id types.TypeID) {
	b.mustOpen()
	delete(b.entries, id)
	delete(b.overrides, id)
	b.unknown[id] = struct{}{}
}

// Freeze produces the immutable registry. The builder must not be used afterwards.
func (b *Builder) Freeze() *Registry {
	b.mustOpen()
	b.frozen = true
	entries := make(map[types.TypeID]Entry, len(b.entries))
	for id, e := range b.entries {
		e.Fields = slices.Clone(e.Fields)
		entries[id] = e
	}
	r := &Registry{entries: entries, frozen: true}
	r.fingerprint = fingerprint(entries)
	return r
}

func (b *Builder) mustOpen() {
	if b.frozen {
		panic("capability: builder used after Freeze")
	}
}

// derive computes the entry for id; ok is false when capability is unknown.
func (b *Builder) derive(id types.TypeID) (Entry, bool) {
	if e, ok := b.entries[id]; ok {
		return e, true
	}
	if _, ok := b.unknown[id]; ok {
		return Entry{}, false
	}
	tt, ok := b.types.Lookup(id)
	if !ok {
		return Entry{}, false
	}
	if b.visiting[id] {
		// рекурсивный тип через коллекцию: считаем дублируемым, но не тривиально
		return Entry{Type: id, Kind: tt.Kind, Duplicable: true}, true
	}
	b.visiting[id] = true
	defer delete(b.visiting, id)

	e := Entry{Type: id, Kind: tt.Kind}
	known := true
	switch tt.Kind {
	case types.KindUnit, types.KindBool, types.KindInt, types.KindUint, types.KindFloat, types.KindChar:
		e.TriviallyDuplicable, e.Duplicable = true, true
	case types.KindString:
		e.Duplicable = true
	case types.KindVec:
		e.Elem = tt.Elem
		elem, ok := b.derive(tt.Elem)
		known = ok
		e.Duplicable = elem.Duplicable
	case types.KindMap:
		e.Elem, e.Key = tt.Elem, tt.Key
		key, kok := b.derive(tt.Key)
		val, vok := b.derive(tt.Elem)
		known = kok && vok
		e.Duplicable = key.Duplicable && val.Duplicable
	case types.KindReference:
		// &T копируется, &mut T — нет
		e.TriviallyDuplicable = !tt.Mutable
		e.Duplicable = !tt.Mutable
	case types.KindTuple:
		e.Aggregate = true
		info, _ := b.types.TupleInfo(id)
		triv, dup := true, true
		if info != nil {
			for i, elemID := range info.Elems {
				e.Fields = append(e.Fields, types.Field{Name: strconv.Itoa(i), Type: elemID})
				fe, ok := b.derive(elemID)
				known = known && ok
				triv = triv && fe.TriviallyDuplicable
				dup = dup && fe.Duplicable
			}
		}
		e.TriviallyDuplicable, e.Duplicable = triv, dup
	case types.KindStruct, types.KindEnum, types.KindOpaque:
		info, _ := b.types.NominalInfo(id)
		if info == nil {
			known = false
			break
		}
		e.Aggregate = tt.Kind != types.KindOpaque
		triv, dup := info.Copy, info.Copy || info.Clone
		visit := func(f types.Field) {
			fe, ok := b.derive(f.Type)
			known = known && ok
			triv = triv && fe.TriviallyDuplicable
			dup = dup && fe.Duplicable
		}
		for _, f := range info.Fields {
			e.Fields = append(e.Fields, f)
			visit(f)
		}
		for _, v := range info.Variants {
			for _, f := range v.Fields {
				visit(f)
			}
		}
		e.TriviallyDuplicable, e.Duplicable = triv, dup
	case types.KindFn:
		// closures own their environment
	case types.KindGeneric:
		known = false
	default:
		panic(fmt.Sprintf("capability: unexpected kind %s", tt.Kind))
	}

	if o, ok := b.overrides[id]; ok {
		e.TriviallyDuplicable, e.Duplicable = o.TriviallyDuplicable, o.Duplicable
		known = true
	}
	if !known {
		b.unknown[id] = struct{}{}
		return Entry{}, false
	}
	b.entries[id] = e
	return e, true
}
