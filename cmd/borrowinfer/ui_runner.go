package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/driver"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/ui"
)

type runOutcome struct {
	report *driver.Report
	err    error
}

// runWithUI runs the driver in the background and renders its events.
// Events are drained after the view quits so the driver never blocks.
func runWithUI(ctx context.Context, title string, prog *hir.Program, reg *capability.Registry, opts driver.Options) (*driver.Report, error) {
	funcs := prog.Funcs()
	items := make([]ui.Item, len(funcs))
	for i, fn := range funcs {
		items[i] = ui.Item{ID: fn.ID, Name: fn.Name}
	}

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan runOutcome, 1)
	go func() {
		opts.Observer = ui.Forward(events)
		rep, err := driver.Run(ctx, prog, reg, opts)
		outcomeCh <- runOutcome{report: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, items, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
