package diag

import (
	"borrowinfer/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	// Func names the function the finding belongs to; empty for program-level diagnostics.
	Func string
}

// Fatal reports whether the diagnostic fails the enclosing function.
func (d Diagnostic) Fatal() bool {
	return d.Severity >= SevError
}
