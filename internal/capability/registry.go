package capability

import (
	"crypto/sha256"
	"encoding/binary"
	"slices"

	"borrowinfer/internal/types"
)

// Registry is the frozen capability table. It has no mutating methods and
// is safe for concurrent readers.
type Registry struct {
	entries     map[types.TypeID]Entry
	fingerprint [32]byte
	frozen      bool
}

// Frozen reports whether the registry was produced by Builder.Freeze.
func (r *Registry) Frozen() bool {
	return r != nil && r.frozen
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id types.TypeID) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[id]
	return e, ok
}

// ElemOf returns the element type of an indexable collection.
func (r *Registry) ElemOf(id types.TypeID) (types.TypeID, bool) {
	e, ok := r.Lookup(id)
	if !ok || !e.Elem.IsValid() {
		return types.NoTypeID, false
	}
	return e.Elem, true
}

// FieldType returns the type of the named field of an aggregate.
func (r *Registry) FieldType(id types.TypeID, name string) (types.TypeID, bool) {
	e, ok := r.Lookup(id)
	if !ok {
		return types.NoTypeID, false
	}
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return types.NoTypeID, false
}

// Len returns the number of known entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Fingerprint is a content hash of all entries, stable across runs.
func (r *Registry) Fingerprint() [32]byte {
	if r == nil {
		return [32]byte{}
	}
	return r.fingerprint
}

func fingerprint(entries map[types.TypeID]Entry) [32]byte {
	ids := make([]types.TypeID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	h := sha256.New()
	var buf [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		h.Write(buf[:])
	}
	flag := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}
	for _, id := range ids {
		e := entries[id]
		put(uint32(id))
		put(uint32(e.Kind))
		put(flag(e.TriviallyDuplicable) | flag(e.Duplicable)<<1 | flag(e.Aggregate)<<2)
		put(uint32(e.Elem))
		put(uint32(e.Key))
		for _, f := range e.Fields {
			h.Write([]byte(f.Name))
			put(uint32(f.Type))
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
