package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	content := []byte("fn main() {\n    let b = a;\n    let c = a;\n}\n")
	fileID := fs.AddVirtual("/home/user/project/src/main.bi", content)

	bag := diag.NewBag(10)
	d := diag.NewError(diag.OwnUseAfterMove, source.Span{File: fileID, Start: 39, End: 40}, "use of moved value `a`").
		WithNote(source.Span{File: fileID, Start: 24, End: 25}, "value moved here")
	d.Func = "main"
	bag.Add(d)
	return bag, fs
}

func TestPrettyPathModes(t *testing.T) {
	bag, fs := sampleBag(t)
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/main.bi:3:13"},
		{"relative", PathModeRelative, "src/main.bi:3:13"},
		{"basename", PathModeBasename, "main.bi:3:13"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Fatalf("expected %q in output:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "ERROR OWN4004") {
				t.Fatalf("expected severity and code in output:\n%s", out)
			}
		})
	}
}

func TestPrettyExcerptAndNotes(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, ShowFunc: true})
	out := buf.String()
	for _, want := range []string{
		"(in main)",
		"3 |     let c = a;",
		"  |" + strings.Repeat(" ", 13) + "^",
		"note: ",
		"value moved here",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "OWN4004" || d.Kind != "OwnershipConflict" || d.Func != "main" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Location.File != "main.bi" || d.Location.StartLine != 3 || d.Location.StartCol != 13 {
		t.Fatalf("unexpected location %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 2 {
		t.Fatalf("unexpected notes %+v", d.Notes)
	}
}
