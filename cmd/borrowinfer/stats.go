package main

import (
	"bytes"
	"io"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"borrowinfer/internal/driver"
	"borrowinfer/internal/hir"
)

// printStats renders the aggregated decision counts of a run.
func printStats(out io.Writer, rep *driver.Report) error {
	_, err := io.WriteString(out, renderStats(rep))
	return err
}

func renderStats(rep *driver.Report) string {
	p := message.NewPrinter(language.English)
	st := rep.Stats

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Decision", "Count"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for a := range hir.ActionCount {
		table.Append([]string{a.String(), p.Sprintf("%d", st.Actions[a])})
	}
	rows := []struct {
		name  string
		value int
	}{
		{"deref", st.Derefs},
		{"bindings", st.Bindings},
		{"escaping", st.Escaping},
		{"stack eligible", st.StackEligible},
		{"auto mut", st.AutoMut},
		{"conflicts", st.Conflicts},
		{"warnings", st.Warnings},
		{"cached", rep.CacheHits},
	}
	for _, r := range rows {
		table.Append([]string{r.name, p.Sprintf("%d", r.value)})
	}
	table.SetFooter([]string{p.Sprintf("Functions %d", st.Funcs), ""})
	table.Render()
	return buf.String()
}
