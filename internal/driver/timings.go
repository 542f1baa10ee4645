package driver

import (
	"encoding/json"
	"fmt"

	"borrowinfer/internal/diag"
	"borrowinfer/internal/observ"
	"borrowinfer/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Program string               `json:"program,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// TimingDiagnostic packs a timer report into an info diagnostic so that
// it travels with the other output (and the JSON renderer).
func TimingDiagnostic(program string, report observ.Report) diag.Diagnostic {
	payload := timingPayload{Kind: "infer", Program: program, TotalMS: report.TotalMS, Phases: report.Phases}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	if program != "" {
		msg = fmt.Sprintf("%s, %s", msg, program)
	}
	d := diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  msg,
		Primary:  source.Span{},
	}
	if data, err := json.Marshal(payload); err == nil {
		d.Notes = []diag.Note{{Span: source.Span{}, Msg: string(data)}}
	}
	return d
}
