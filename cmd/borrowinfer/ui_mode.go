package main

import (
	"os"
	"strings"
)

// progressMode selects when infer shows the per-function progress view.
type progressMode string

const (
	progressAuto progressMode = "auto"
	progressOn   progressMode = "on"
	progressOff  progressMode = "off"
)

func parseProgressMode(value string) (progressMode, error) {
	switch m := progressMode(strings.TrimSpace(strings.ToLower(value))); m {
	case "":
		return progressAuto, nil
	case progressAuto, progressOn, progressOff:
		return m, nil
	}
	return "", errInvalidFlag("ui", value, "auto|on|off")
}

// showProgress reports whether the view can own the terminal. In auto mode
// it stays off when quiet or when the annotated program goes to stdout.
func (opts inferOptions) showProgress() bool {
	switch opts.ui {
	case progressOn:
		return true
	case progressOff:
		return false
	}
	if opts.quiet || (opts.emit != "" && opts.out == "") {
		return false
	}
	return isTerminal(os.Stdout)
}
