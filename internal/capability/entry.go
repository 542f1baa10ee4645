package capability

import "borrowinfer/internal/types"

// Entry describes the duplication capability of one type.
type Entry struct {
	Type types.TypeID
	Kind types.Kind
	// TriviallyDuplicable types are copied implicitly at no cost.
	TriviallyDuplicable bool
	// Duplicable types may be copied with an explicit duplication call.
	Duplicable bool
	// Aggregate marks structs, tuples and enums.
	Aggregate bool
	// Elem is the element type of indexable collections (vec element, map value).
	Elem types.TypeID
	// Key is the key type of maps.
	Key    types.TypeID
	Fields []types.Field
}

// Indexable reports whether values of this type support element reads.
func (e Entry) Indexable() bool {
	return e.Elem.IsValid()
}
