package diag

import (
	"testing"

	"borrowinfer/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("testdata/sample.bi", []byte("a\nb\n"))

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     OwnUnknownCapability,
			Message:  "another",
			Primary:  source.Span{File: file, Start: 2, End: 3},
		},
		{
			Severity: SevError,
			Code:     OwnConflict,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: file, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: file, Start: 2, End: 3}, Msg: "note line"},
			},
		},
	}

	expected := "error OWN4001 testdata/sample.bi:1:1 first line second\n" +
		"note OWN4001 testdata/sample.bi:2:1 note line\n" +
		"warning OWN4003 testdata/sample.bi:2:1 another"

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestCodeKind(t *testing.T) {
	cases := []struct {
		code Code
		want Kind
	}{
		{OwnConflict, KindOwnershipConflict},
		{OwnUseAfterMove, KindOwnershipConflict},
		{OwnMutThroughShared, KindOwnershipConflict},
		{OwnEscapingBorrow, KindEscapingBorrow},
		{OwnUnknownCapability, KindUnknownCapability},
		{IOLoadFileError, KindOther},
	}
	for _, tc := range cases {
		if got := tc.code.Kind(); got != tc.want {
			t.Errorf("%s: kind = %s, want %s", tc.code.ID(), got, tc.want)
		}
	}
}

func TestBagLimitAndSort(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(NewError(OwnConflict, source.Span{Start: 10, End: 12}, "b")) {
		t.Fatalf("first add rejected")
	}
	bag.Add(New(SevWarning, OwnUnknownCapability, source.Span{Start: 1, End: 2}, "a"))
	if bag.Add(NewError(OwnConflict, source.Span{Start: 0, End: 1}, "c")) {
		t.Fatalf("add beyond limit accepted")
	}
	if bag.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", bag.Dropped())
	}
	bag.Sort()
	if got := bag.Items()[0].Message; got != "a" {
		t.Fatalf("first after sort = %q, want a", got)
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag, Func: "main"})
	b := ReportError(r, OwnConflict, source.Span{Start: 3, End: 4}, "conflict").
		WithNote(source.Span{Start: 0, End: 1}, "borrowed here")
	b.Emit()
	b.Emit()
	ReportError(r, OwnConflict, source.Span{Start: 3, End: 4}, "conflict").Emit()
	if bag.Len() != 1 {
		t.Fatalf("len = %d, want 1", bag.Len())
	}
	d := bag.Items()[0]
	if d.Func != "main" || len(d.Notes) != 1 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}
