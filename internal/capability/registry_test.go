package capability

import (
	"sync"
	"testing"

	"borrowinfer/internal/types"
)

func TestDeriveDefaults(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	node := in.RegisterStruct("Node", []types.Field{{Name: "name", Type: b.String}}, false, true)
	point := in.RegisterStruct("Point", []types.Field{{Name: "x", Type: b.Int}, {Name: "y", Type: b.Int}}, true, true)
	handle := in.RegisterNominal(types.KindOpaque, "Handle")
	param := in.RegisterNominal(types.KindGeneric, "T")
	nodes := in.Vec(node)
	ids := in.Vec(b.Int)
	generic := in.Vec(param)
	shared := in.Ref(node, false)
	excl := in.Ref(node, true)

	reg := FromInterner(in).Freeze()

	cases := []struct {
		name       string
		id         types.TypeID
		known      bool
		trivial    bool
		duplicable bool
		aggregate  bool
		indexable  bool
	}{
		{"int", b.Int, true, true, true, false, false},
		{"string", b.String, true, false, true, false, false},
		{"Node", node, true, false, true, true, false},
		{"Point", point, true, true, true, true, false},
		{"Handle", handle, true, false, false, false, false},
		{"T", param, false, false, false, false, false},
		{"Vec<Node>", nodes, true, false, true, false, true},
		{"Vec<int>", ids, true, false, true, false, true},
		{"Vec<T>", generic, false, false, false, false, false},
		{"&Node", shared, true, true, true, false, false},
		{"&mut Node", excl, true, false, false, false, false},
	}
	for _, tc := range cases {
		e, ok := reg.Lookup(tc.id)
		if ok != tc.known {
			t.Errorf("%s: known = %v, want %v", tc.name, ok, tc.known)
			continue
		}
		if !ok {
			continue
		}
		if e.TriviallyDuplicable != tc.trivial || e.Duplicable != tc.duplicable ||
			e.Aggregate != tc.aggregate || e.Indexable() != tc.indexable {
			t.Errorf("%s: got %+v", tc.name, e)
		}
	}

	if elem, ok := reg.ElemOf(nodes); !ok || elem != node {
		t.Fatalf("ElemOf(Vec<Node>) = %v, %v", elem, ok)
	}
	if ft, ok := reg.FieldType(point, "y"); !ok || ft != b.Int {
		t.Fatalf("FieldType(Point.y) = %v, %v", ft, ok)
	}
}

func TestCopyRequiresCopyFields(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	// declared copy, but holds a string
	named := in.RegisterStruct("Named", []types.Field{{Name: "s", Type: b.String}}, true, true)
	reg := FromInterner(in).Freeze()
	e, _ := reg.Lookup(named)
	if e.TriviallyDuplicable {
		t.Fatalf("struct with a string field must not be trivially duplicable")
	}
	if !e.Duplicable {
		t.Fatalf("struct with clonable fields should be duplicable")
	}
}

func TestRecursiveTypeTerminates(t *testing.T) {
	in := types.NewInterner()
	tree := in.RegisterNominal(types.KindStruct, "Tree")
	in.SetFields(tree, []types.Field{{Name: "children", Type: in.Vec(tree)}})
	in.SetDerives(tree, false, true)
	reg := FromInterner(in).Freeze()
	e, ok := reg.Lookup(tree)
	if !ok || !e.Duplicable || e.TriviallyDuplicable {
		t.Fatalf("unexpected entry %+v (ok=%v)", e, ok)
	}
}

func TestOverridesAndForget(t *testing.T) {
	in := types.NewInterner()
	id := in.RegisterNominal(types.KindOpaque, "FileHandle")
	param := in.RegisterNominal(types.KindGeneric, "K")
	bld := FromInterner(in)
	if n := bld.OverrideByName("FileHandle", Override{TriviallyDuplicable: true}); n != 1 {
		t.Fatalf("override matched %d types", n)
	}
	bld.Override(param, Override{Duplicable: true})
	bld.Forget(in.Builtins().Float)
	reg := bld.Freeze()

	if e, _ := reg.Lookup(id); !e.TriviallyDuplicable || !e.Duplicable {
		t.Fatalf("override not applied: %+v", e)
	}
	if e, ok := reg.Lookup(param); !ok || !e.Duplicable {
		t.Fatalf("generic override not applied: %+v", e)
	}
	if _, ok := reg.Lookup(in.Builtins().Float); ok {
		t.Fatalf("forgotten type still known")
	}
}

func TestBuilderPanicsAfterFreeze(t *testing.T) {
	bld := NewBuilder(types.NewInterner())
	bld.Freeze()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	bld.DeriveAll()
}

func TestFingerprintStableAndSensitive(t *testing.T) {
	mk := func(copyable bool) *Registry {
		in := types.NewInterner()
		in.RegisterStruct("P", []types.Field{{Name: "x", Type: in.Builtins().Int}}, copyable, true)
		return FromInterner(in).Freeze()
	}
	if mk(true).Fingerprint() != mk(true).Fingerprint() {
		t.Fatalf("fingerprint not deterministic")
	}
	if mk(true).Fingerprint() == mk(false).Fingerprint() {
		t.Fatalf("fingerprint ignores capability change")
	}
}

func TestConcurrentReaders(t *testing.T) {
	in := types.NewInterner()
	node := in.RegisterStruct("Node", nil, false, true)
	reg := FromInterner(in).Freeze()
	if !reg.Frozen() {
		t.Fatalf("registry not frozen")
	}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				if _, ok := reg.Lookup(node); !ok {
					t.Error("lookup failed")
					return
				}
			}
		}()
	}
	wg.Wait()
}
