package ui

import (
	"strings"
	"testing"
	"time"

	"borrowinfer/internal/driver"
)

func TestProgressFollowsEvents(t *testing.T) {
	ch := make(chan driver.Event)
	m := NewProgressModel("demo", []Item{{ID: 1, Name: "leaf"}, {ID: 2, Name: "top"}}, ch).(*progressModel)

	m.Update(eventMsg{Func: 1, Status: driver.StatusRunning})
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("fraction = %v, want 0.25", got)
	}
	m.Update(eventMsg{Func: 1, Status: driver.StatusDone, Elapsed: time.Millisecond})
	m.Update(eventMsg{Func: 2, Status: driver.StatusRunning, Batch: 1})
	m.Update(eventMsg{Func: 99, Status: driver.StatusDone})
	if got := m.fraction(); got != 0.75 {
		t.Fatalf("fraction = %v, want 0.75", got)
	}
	if m.batch != 1 {
		t.Fatalf("batch = %d, want 1", m.batch)
	}
	view := m.View()
	for _, want := range []string{"leaf", "top", "done", "running", "batch 1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}

	m.Update(doneMsg{})
	if !m.done || !strings.Contains(m.View(), "done: demo") {
		t.Fatalf("model did not finish:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"very_long_function_name", 10, "very_lo..."},
		{"abcdef", 2, "ab"},
		{"日本語の関数名", 7, "日本..."},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
