package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes с аналогичным форматом.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		start, _ := fs.Resolve(d.Primary)
		path := formatPath(fs.Get(d.Primary.File), opts.PathMode, opts.BaseDir)
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s",
			path, start.Line, start.Col,
			p.severity(d.Severity).Sprint(d.Severity.String()),
			p.bold.Sprint(d.Code.ID()),
			d.Message,
		)
		if opts.ShowFunc && d.Func != "" {
			fmt.Fprintf(w, " (in %s)", d.Func)
		}
		fmt.Fprintln(w)
		writeExcerpt(w, p, fs, d.Primary, opts.Context)

		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nstart, _ := fs.Resolve(n.Span)
			npath := formatPath(fs.Get(n.Span.File), opts.PathMode, opts.BaseDir)
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"), npath, nstart.Line, nstart.Col, n.Msg)
			writeExcerpt(w, p, fs, n.Span, 0)
		}
	}
	if dropped := bag.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "... %d more diagnostics suppressed by the limit\n", dropped)
	}
}

func writeExcerpt(w io.Writer, p palette, fs *source.FileSet, span source.Span, context int8) {
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(span)
	ctx := uint32(0)
	if context > 0 {
		ctx = uint32(context)
	}
	first := uint32(1)
	if start.Line > ctx {
		first = start.Line - ctx
	}
	last := start.Line + ctx
	width := len(fmt.Sprint(last))

	for ln := first; ln <= last; ln++ {
		text := f.GetLine(ln)
		if ln > start.Line && text == "" {
			break
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", width, ln), text)
		if ln != start.Line {
			continue
		}
		prefix := text
		if int(start.Col-1) <= len(text) {
			prefix = text[:start.Col-1]
		}
		marked := ""
		if end.Line == start.Line && end.Col > start.Col && int(end.Col-1) <= len(text) {
			marked = text[start.Col-1 : end.Col-1]
		}
		underline := "^"
		if n := runewidth.StringWidth(marked); n > 1 {
			underline += strings.Repeat("~", n-1)
		}
		pad := strings.Repeat(" ", runewidth.StringWidth(prefix))
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprintf("%*s |", width, ""), pad, p.caret.Sprint(underline))
	}
}
