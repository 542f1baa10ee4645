package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.out"),
		Mem:   filepath.Join(dir, "mem.out"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	s, err := Start(opts)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, path := range []string{opts.CPU, opts.Mem, opts.Trace} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s: %v", filepath.Base(path), err)
		}
	}
}

func TestStartFailsCleanly(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "missing", "cpu.out")
	if _, err := Start(Options{CPU: bad}); err == nil {
		t.Fatalf("expected an error for %s", bad)
	}
	// a failed start must not leave the CPU profiler running
	s, err := Start(Options{CPU: filepath.Join(t.TempDir(), "cpu.out")})
	if err != nil {
		t.Fatalf("start after failure: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if (Options{}).Enabled() {
		t.Fatalf("empty options report enabled")
	}
}
