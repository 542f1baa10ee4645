package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"borrowinfer/internal/config"
)

type configKey struct{}

func withConfig(ctx context.Context, cfg config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) config.Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(config.Config); ok {
			return cfg
		}
	}
	return config.Default()
}

// loadConfig reads --config or the nearest borrowinfer.toml, then applies
// the persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("max-diagnostics") {
		if cfg.Infer.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace") {
		if cfg.Trace.Output, err = flags.GetString("trace"); err != nil {
			return config.Config{}, err
		}
		if !flags.Changed("trace-level") && cfg.Trace.Level == "off" {
			cfg.Trace.Level = "phase"
		}
	}
	if flags.Changed("trace-level") {
		if cfg.Trace.Level, err = flags.GetString("trace-level"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace-mode") {
		if cfg.Trace.Mode, err = flags.GetString("trace-mode"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace-ring-size") {
		if cfg.Trace.RingSize, err = flags.GetInt("trace-ring-size"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace-max-size") {
		if cfg.Trace.MaxSizeMB, err = flags.GetInt("trace-max-size"); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func errInvalidFlag(name, value, want string) error {
	return fmt.Errorf("invalid --%s value %q (expected %s)", name, value, want)
}
