package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"borrowinfer/internal/config"
	"borrowinfer/internal/driver"
	"borrowinfer/internal/hir/wire"
)

const demoProgram = `{
  "version": "1.0.0",
  "name": "demo",
  "source": {"path": "demo.src", "text": "fn take(s: Str) {}\nfn main() { let s = mk(); take(s); }\n"},
  "types": [
    {"id": 1, "kind": "unit"},
    {"id": 2, "kind": "string"},
    {"id": 3, "kind": "struct", "name": "Str", "fields": [{"name": "raw", "type": 2}]}
  ],
  "modules": [{
    "name": "demo",
    "funcs": [
      {"id": 1, "name": "take", "span": [0, 18], "result": 1,
       "params": [{"name": "s", "local": 1, "type": 3, "span": [8, 14]}],
       "body": {"span": [16, 18], "stmts": []}},
      {"id": 2, "name": "main", "span": [19, 56], "result": 1,
       "body": {"span": [29, 56], "stmts": [
         {"kind": "let", "span": [31, 44], "name": "s", "local": 1, "type": 3,
          "value": {"kind": "call", "type": 3, "span": [39, 43], "name": "mk", "modes": []}},
         {"kind": "expr", "span": [45, 53],
          "value": {"kind": "call", "type": 1, "span": [45, 52], "callee": 1,
                    "args": [{"kind": "var", "type": 3, "span": [50, 51], "name": "s", "local": 1}]}}
       ]}}
    ]
  }]
}`

func writeProgram(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func testOptions() inferOptions {
	return inferOptions{format: "pretty", ui: progressOff, quiet: true, cfg: config.Default()}
}

func TestInferFileClean(t *testing.T) {
	path := writeProgram(t, "demo.json", demoProgram)
	opts := testOptions()
	opts.emit = "text"
	opts.stats = true

	var out, errOut bytes.Buffer
	failed, err := inferFile(context.Background(), &out, &errOut, path, opts)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if failed {
		t.Fatalf("clean program failed:\n%s", out.String())
	}
	text := out.String()
	for _, want := range []string{"main", "take", "Decision", "Functions 2"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output lacks %q:\n%s", want, text)
		}
	}
}

func TestInferFileLoadErrors(t *testing.T) {
	tests := []struct {
		name, file, body, code string
	}{
		{"syntax", "bad.json", "{", "IO5002"},
		{"version", "old.json", strings.Replace(demoProgram, `"1.0.0"`, `"2.0.0"`, 1), "IO5003"},
		{"malformed", "ghost.json", strings.Replace(demoProgram, `"callee": 1`, `"callee": 9`, 1), "IO5002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeProgram(t, tt.file, tt.body)
			var out, errOut bytes.Buffer
			failed, err := inferFile(context.Background(), &out, &errOut, path, testOptions())
			if err != nil {
				t.Fatalf("infer: %v", err)
			}
			if !failed || !strings.Contains(out.String(), tt.code) {
				t.Fatalf("failed=%v output:\n%s", failed, out.String())
			}
		})
	}

	var out bytes.Buffer
	opts := testOptions()
	opts.format = "short"
	failed, err := inferFile(context.Background(), &out, &out, filepath.Join(t.TempDir(), "missing.json"), opts)
	if err != nil || !failed || !strings.Contains(out.String(), "IO5001") {
		t.Fatalf("missing file: failed=%v err=%v output:\n%s", failed, err, out.String())
	}
}

func TestInferFileEmitRoundTrip(t *testing.T) {
	path := writeProgram(t, "demo.json", demoProgram)
	opts := testOptions()
	opts.emit = "mp"
	opts.out = filepath.Join(t.TempDir(), "demo.mp")

	var out bytes.Buffer
	if _, err := inferFile(context.Background(), &out, &out, path, opts); err != nil {
		t.Fatalf("infer: %v", err)
	}
	doc, err := wire.DecodeFile(opts.out)
	if err != nil {
		t.Fatalf("decode emitted program: %v", err)
	}
	if len(doc.Modules) != 1 || len(doc.Modules[0].Funcs) != 2 {
		t.Fatalf("emitted program = %+v", doc)
	}
}

func TestInferFileJSONWithCache(t *testing.T) {
	path := writeProgram(t, "demo.json", demoProgram)
	cache, err := driver.OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	opts := testOptions()
	opts.format = "json"
	opts.stats = true
	opts.cache = cache

	for run := range 2 {
		var out bytes.Buffer
		failed, err := inferFile(context.Background(), &out, &out, path, opts)
		if err != nil || failed {
			t.Fatalf("run %d: failed=%v err=%v", run, failed, err)
		}
		if !strings.Contains(out.String(), `"diagnostics"`) {
			t.Fatalf("run %d: no JSON diagnostics:\n%s", run, out.String())
		}
	}
}

func TestParseProgressMode(t *testing.T) {
	for in, want := range map[string]progressMode{"": progressAuto, "ON": progressOn, " off ": progressOff} {
		got, err := parseProgressMode(in)
		if err != nil || got != want {
			t.Fatalf("parseProgressMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseProgressMode("sometimes"); err == nil || !strings.Contains(err.Error(), "--ui") {
		t.Fatalf("invalid mode accepted: %v", err)
	}
}

func TestShowProgress(t *testing.T) {
	tests := []struct {
		name string
		opts inferOptions
		want bool
	}{
		{"forced on", inferOptions{ui: progressOn, quiet: true}, true},
		{"off", inferOptions{ui: progressOff}, false},
		{"auto quiet", inferOptions{ui: progressAuto, quiet: true}, false},
		{"auto emit to stdout", inferOptions{ui: progressAuto, emit: "text"}, false},
	}
	for _, tt := range tests {
		if got := tt.opts.showProgress(); got != tt.want {
			t.Fatalf("%s: showProgress = %v, want %v", tt.name, got, tt.want)
		}
	}
}
