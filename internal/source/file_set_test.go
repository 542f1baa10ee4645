package source

import "testing"

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.wj", []byte("let a = 1\nlet b = a\n\nuse(b)"))
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{4, LineCol{Line: 1, Col: 5}},
		{9, LineCol{Line: 1, Col: 10}},
		{10, LineCol{Line: 2, Col: 1}},
		{20, LineCol{Line: 3, Col: 1}},
		{21, LineCol{Line: 4, Col: 1}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, start, tt.want)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a.wj", []byte("first\nsecond\nthird")))
	for i, want := range []string{"first", "second", "third", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d: got %q, want %q", i+1, got, want)
		}
	}
	if got := f.GetLine(0); got != "" {
		t.Errorf("line 0: got %q", got)
	}
}

func TestNormalizeCRLFAndBOM(t *testing.T) {
	in := []byte{0xEF, 0xBB, 0xBF, 'a', '\r', '\n', 'b', '\r', 'c'}
	noBOM, hadBOM := removeBOM(in)
	if !hadBOM {
		t.Fatalf("expected BOM to be detected")
	}
	out, changed := normalizeCRLF(noBOM)
	if !changed {
		t.Fatalf("expected CRLF to be normalized")
	}
	if string(out) != "a\nb\rc" {
		t.Fatalf("unexpected content %q", out)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 12}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Fatalf("unexpected cover %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 1}); got != a {
		t.Fatalf("cross-file cover must keep the receiver, got %v", got)
	}
	if !a.Cover(b).Contains(a) {
		t.Fatalf("cover must contain the receiver")
	}
	if !b.Before(a) {
		t.Fatalf("expected %v before %v", b, a)
	}
}

func TestGetUnknownFile(t *testing.T) {
	fs := NewFileSet()
	if fs.Get(3) != nil {
		t.Fatalf("expected nil for unknown id")
	}
	start, _ := fs.Resolve(Span{File: 3, Start: 7, End: 9})
	if start.Line != 1 || start.Col != 8 {
		t.Fatalf("unexpected fallback position %+v", start)
	}
}
