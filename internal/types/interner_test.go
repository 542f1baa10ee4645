package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if !b.Unit.IsValid() || !b.Bool.IsValid() || !b.String.IsValid() {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
	if _, ok := in.Lookup(NoTypeID); ok {
		t.Fatalf("sentinel must not resolve")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().String
	if in.Vec(elem) != in.Vec(elem) {
		t.Fatalf("vec types should be deduplicated")
	}
	a := in.RegisterTuple([]TypeID{in.Builtins().Int, elem})
	b := in.RegisterTuple([]TypeID{in.Builtins().Int, elem})
	if a != b {
		t.Fatalf("tuple types should be deduplicated")
	}
}

func TestReferenceMutabilityAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int
	if in.Ref(elem, true) == in.Ref(elem, false) {
		t.Fatalf("mutable and immutable references must differ")
	}
}

func TestNominalTypesAreDistinct(t *testing.T) {
	in := NewInterner()
	a := in.RegisterStruct("Point", []Field{{Name: "x", Type: in.Builtins().Int}}, true, true)
	b := in.RegisterStruct("Point", nil, false, false)
	if a == b {
		t.Fatalf("each registration must produce a fresh nominal id")
	}
	ft, ok := in.FieldType(a, "x")
	if !ok || ft != in.Builtins().Int {
		t.Fatalf("field lookup failed: %v %v", ft, ok)
	}
	info, _ := in.NominalInfo(a)
	if !info.Copy || !info.Clone {
		t.Fatalf("derives not recorded: %+v", info)
	}
}

func TestLabel(t *testing.T) {
	in := NewInterner()
	node := in.RegisterStruct("Node", nil, false, true)
	cases := []struct {
		id   TypeID
		want string
	}{
		{in.Vec(node), "Vec<Node>"},
		{in.Ref(in.Builtins().String, false), "&string"},
		{in.Map(in.Builtins().String, in.Intern(MakeInt(Width64))), "Map<string, int64>"},
		{in.RegisterTuple([]TypeID{in.Builtins().Bool, node}), "(bool, Node)"},
	}
	for _, tc := range cases {
		if got := Label(in, tc.id); got != tc.want {
			t.Errorf("Label = %q, want %q", got, tc.want)
		}
	}
}
