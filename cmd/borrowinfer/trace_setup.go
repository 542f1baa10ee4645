package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"borrowinfer/internal/trace"
)

// setupTracing builds the tracer from the resolved configuration and
// attaches it to the command context. It returns a cleanup function.
func setupTracing(cmd *cobra.Command) (func(), error) {
	cfg := configFrom(cmd.Context())
	tcfg, err := cfg.TraceConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid trace configuration: %w", err)
	}
	if tcfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
