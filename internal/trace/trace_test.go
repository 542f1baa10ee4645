package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelGatesScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFunc, false},
		{LevelDetail, ScopeFunc, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestRingWrapsInOrder(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopeFunc, Name: name})
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d events, want 3", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Fatalf("snap[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
}

func TestStartNestsUnderContextSpan(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	ctx := WithTracer(context.Background(), r)

	ctx, outer := Start(ctx, ScopePass, "batch:0")
	_, inner := Start(ctx, ScopeFunc, "infer:main")
	inner.End("")
	outer.End("")

	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("got %d events, want 4", len(snap))
	}
	if snap[1].Name != "infer:main" || snap[1].ParentID != outer.ID() {
		t.Fatalf("inner span parent = %d, want %d", snap[1].ParentID, outer.ID())
	}
}

func TestStartFuncTagsNestedEvents(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	ctx := WithTracer(context.Background(), r)

	ctx, fn := StartFunc(ctx, "main")
	Point(ctx, ScopeFunc, "unresolved", "helper")
	_, node := Start(ctx, ScopeNode, "expr:3")
	node.End("")
	fn.End("")

	snap := r.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("got %d events, want 5", len(snap))
	}
	if snap[0].Name != "infer:main" {
		t.Fatalf("function span = %q", snap[0].Name)
	}
	pt := snap[1]
	if pt.Kind != KindPoint || pt.ParentID != fn.ID() || pt.Extra["func"] != "main" {
		t.Fatalf("point = %+v", pt)
	}
	if end := snap[3]; end.Kind != KindSpanEnd || end.Extra["func"] != "main" {
		t.Fatalf("nested span end = %+v", end)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	span := Begin(tr, ScopePass, "callgraph", 0)
	span.WithExtra("funcs", "3").End("ok")
	Point(WithTracer(context.Background(), tr), ScopeFunc, "hidden", "")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if ev["kind"] != "end" || ev["detail"] != "ok" {
		t.Fatalf("unexpected end event: %v", ev)
	}
}

func TestNewRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, OutputPath: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopeDriver, "run", 0).End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !strings.Contains(string(data), `"name":"run"`) {
		t.Fatalf("trace file missing event:\n%s", data)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
