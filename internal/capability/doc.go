// Package capability answers "how may values of this type be duplicated" for
// the inference engine.
//
// A Builder derives entries from the type interner (derive lists, field
// layout, collection element types) and accepts explicit overrides. Freeze
// turns it into an immutable Registry that is shared by every inference
// worker without locking. Capability is keyed by type identity only.
package capability
