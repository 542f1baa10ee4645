// Package diag defines the diagnostic model shared by every inference phase.
//
// Diagnostic is the central record: severity, a compact numeric Code with a
// stable string form, a short message, the primary span and optional notes
// pointing at related sites (for example the other side of a conflict).
//
// Phases emit through a Reporter, usually via ReportBuilder:
//
//	diag.ReportError(r, diag.OwnConflict, use.Span, msg).
//		WithNote(other.Span, "borrowed here").
//		Emit()
//
// BagReporter collects into a Bag, which supports limits, sorting and
// deduplication. Rendering lives in internal/diagfmt.
package diag
