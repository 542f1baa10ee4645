package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFoldedPhasesStayOutOfTotal(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("run")
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("infer", time.Millisecond)
		}()
	}
	wg.Wait()
	tm.End(idx, "8 funcs")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(rep.Phases))
	}
	infer := rep.Phases[1]
	if infer.Name != "infer" || infer.Count != 8 || infer.DurationMS != 8 {
		t.Fatalf("unexpected folded phase: %+v", infer)
	}
	if rep.TotalMS != rep.Phases[0].DurationMS {
		t.Fatalf("total %.3f includes folded phase (run %.3f)", rep.TotalMS, rep.Phases[0].DurationMS)
	}
	if s := tm.Summary(); !strings.Contains(s, "x8") || !strings.Contains(s, "// 8 funcs") {
		t.Fatalf("summary missing details:\n%s", s)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Add("y", time.Second)
	if rep := tm.Report(); len(rep.Phases) != 0 {
		t.Fatalf("nil timer reported phases")
	}
}
