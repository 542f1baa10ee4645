// Package config loads borrowinfer.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"borrowinfer/internal/hir/wire"
	"borrowinfer/internal/trace"
)

// FileName is the name of the configuration file looked up by Find.
const FileName = "borrowinfer.toml"

// Config mirrors borrowinfer.toml.
type Config struct {
	Infer        Infer        `toml:"infer"`
	Cache        Cache        `toml:"cache"`
	Trace        Trace        `toml:"trace"`
	Capabilities Capabilities `toml:"capabilities"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

type Infer struct {
	Jobs           int  `toml:"jobs"`
	MaxDiagnostics int  `toml:"max_diagnostics"`
	WarnUnknown    bool `toml:"warn_unknown"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type Trace struct {
	Level     string `toml:"level"`
	Mode      string `toml:"mode"`
	Output    string `toml:"output"`
	RingSize  int    `toml:"ring_size"`
	MaxSizeMB int    `toml:"max_size_mb"`
}

// Capabilities overrides what the type table derives: Copy names types
// that are trivially duplicable, NoDup names types that cannot be
// duplicated at all.
type Capabilities struct {
	Copy  []string `toml:"copy"`
	NoDup []string `toml:"nodup"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Infer: Infer{MaxDiagnostics: 100, WarnUnknown: true},
		Trace: Trace{Level: "off", Mode: "stream", Output: "stderr", RingSize: 4096},
	}
}

// Find walks up from startDir to locate borrowinfer.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path on top of Default. Keys the file does not set keep their
// default; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest borrowinfer.toml above startDir, or Default
// when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges and enum fields.
func (c *Config) Validate() error {
	if c.Infer.Jobs < 0 {
		return fmt.Errorf("infer.jobs must not be negative, got %d", c.Infer.Jobs)
	}
	if c.Infer.MaxDiagnostics < 0 {
		return fmt.Errorf("infer.max_diagnostics must not be negative, got %d", c.Infer.MaxDiagnostics)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("trace.level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("trace.mode: %w", err)
	}
	if c.Trace.RingSize < 0 || c.Trace.MaxSizeMB < 0 {
		return errors.New("trace.ring_size and trace.max_size_mb must not be negative")
	}
	for _, name := range c.Capabilities.Copy {
		if slices.Contains(c.Capabilities.NoDup, name) {
			return fmt.Errorf("capabilities: %q is both copy and nodup", name)
		}
	}
	return nil
}

// CapabilityOverrides turns the [capabilities] section into wire entries
// applied on top of the program's own.
func (c *Config) CapabilityOverrides() []wire.Capability {
	out := make([]wire.Capability, 0, len(c.Capabilities.Copy)+len(c.Capabilities.NoDup))
	for _, name := range c.Capabilities.Copy {
		out = append(out, wire.Capability{Type: name, Trivial: true, Duplicable: true})
	}
	for _, name := range c.Capabilities.NoDup {
		out = append(out, wire.Capability{Type: name})
	}
	return out
}

// TraceConfig builds the tracer configuration.
func (c *Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     trace.FormatAuto,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
		MaxSizeMB:  c.Trace.MaxSizeMB,
	}, nil
}
