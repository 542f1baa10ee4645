package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"borrowinfer/internal/trace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
[infer]
jobs = 3

[capabilities]
copy = ["Handle"]
nodup = ["Socket"]
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Fatalf("path = %q", cfg.Path)
	}
	if cfg.Infer.Jobs != 3 {
		t.Fatalf("jobs = %d, want 3", cfg.Infer.Jobs)
	}
	if cfg.Infer.MaxDiagnostics != Default().Infer.MaxDiagnostics || !cfg.Infer.WarnUnknown {
		t.Fatalf("unset keys lost their defaults: %+v", cfg.Infer)
	}
	caps := cfg.CapabilityOverrides()
	if len(caps) != 2 || caps[0].Type != "Handle" || !caps[0].Trivial || caps[1].Type != "Socket" || caps[1].Duplicable {
		t.Fatalf("overrides = %+v", caps)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.Path != "" || cfg.Trace.Level != "off" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"unknown key", "[infer]\nthreads = 2\n", "unknown keys: infer.threads"},
		{"negative jobs", "[infer]\njobs = -1\n", "infer.jobs"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "trace.level"},
		{"bad mode", "[trace]\nmode = \"disk\"\n", "trace.mode"},
		{"both copy and nodup", "[capabilities]\ncopy = [\"A\"]\nnodup = [\"A\"]\n", "both copy and nodup"},
		{"syntax", "[infer\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTraceConfig(t *testing.T) {
	cfg := Default()
	cfg.Trace.Level = "Detail"
	cfg.Trace.Mode = "both"
	cfg.Trace.MaxSizeMB = 5
	tc, err := cfg.TraceConfig()
	if err != nil {
		t.Fatalf("trace config: %v", err)
	}
	if tc.Level != trace.LevelDetail || tc.Mode != trace.ModeBoth || tc.MaxSizeMB != 5 || tc.RingSize != 4096 {
		t.Fatalf("trace config = %+v", tc)
	}
}
