package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 150 * time.Millisecond

// watchAndInfer runs inferAll once and again after every change of one of
// paths, until ctx is cancelled. Directories are watched rather than the
// files so that atomic replace-by-rename is seen.
func watchAndInfer(ctx context.Context, out, errOut io.Writer, paths []string, opts inferOptions) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	run := func() error {
		if _, err := inferAll(ctx, out, errOut, paths, opts); err != nil {
			return err
		}
		if !opts.quiet {
			fmt.Fprintln(errOut, "watching for changes...")
		}
		return nil
	}
	if err := run(); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, wanted) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "watch: %v\n", err)
		case <-fire:
			fire = nil
			if err := run(); err != nil {
				return err
			}
		}
	}
}

func relevant(ev fsnotify.Event, wanted map[string]bool) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return wanted[abs]
}
