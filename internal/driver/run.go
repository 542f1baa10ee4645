// Package driver runs ownership inference over a whole program: callees
// before callers, one errgroup per batch, with an optional disk cache.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"borrowinfer/internal/callgraph"
	"borrowinfer/internal/capability"
	"borrowinfer/internal/diag"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/observ"
	"borrowinfer/internal/ownership"
	"borrowinfer/internal/trace"
)

// ErrRegistryOpen is returned when Run gets a registry that was not frozen.
var ErrRegistryOpen = errors.New("capability registry is not frozen")

// Options configures Run.
type Options struct {
	// Jobs caps concurrent functions per batch; <= 0 uses GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps diagnostics per function and in the merged bag.
	MaxDiagnostics int
	QuietUnknown   bool
	Cache          *DiskCache
	Observer       Observer
	Timer          *observ.Timer
}

// FuncReport is the outcome for one function.
type FuncReport struct {
	Func    *hir.Func
	Status  Status
	Batch   int
	Key     Digest
	Summary *ownership.Summary
	Diags   []diag.Diagnostic
	Stats   ownership.Stats
	// Result is nil for externs and for functions replayed from the cache.
	Result *ownership.Result
}

// Fatal reports whether the function has a fatal diagnostic.
func (f *FuncReport) Fatal() bool {
	for _, d := range f.Diags {
		if d.Fatal() {
			return true
		}
	}
	return false
}

// Report is the outcome of Run.
type Report struct {
	Program   *hir.Program
	Funcs     []*FuncReport // FuncID order
	Bag       *diag.Bag
	Summaries ownership.Summaries
	Stats     ownership.Stats
	Schedule  *callgraph.Topo
	CacheHits int
}

// Failed reports whether any function has a fatal diagnostic.
func (r *Report) Failed() bool {
	for _, f := range r.Funcs {
		if f.Fatal() {
			return true
		}
	}
	return false
}

// Func finds the report of a function.
func (r *Report) Func(id hir.FuncID) *FuncReport {
	for _, f := range r.Funcs {
		if f.Func.ID == id {
			return f
		}
	}
	return nil
}

type run struct {
	opts  Options
	reg   *capability.Registry
	types ownership.Options
	graph *callgraph.Graph
	rep   *Report
	env   Digest
	jobs  int
	hits  atomic.Int64
}

// Run analyses every function of prog. Functions of one batch see the
// summaries of all earlier batches and nothing else; members of a call
// cycle see each other as unresolved. A function whose analysis panics
// gets a DrvInternal diagnostic and no summary, the others proceed.
// Cancellation is checked between functions; a cancelled run returns the
// partial report together with the context error.
func Run(ctx context.Context, prog *hir.Program, reg *capability.Registry, opts Options) (*Report, error) {
	if prog == nil {
		return nil, errors.New("driver: nil program")
	}
	if !reg.Frozen() {
		return nil, ErrRegistryOpen
	}
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "infer:"+prog.Name)
	defer span.End("")

	r := &run{
		opts: opts,
		reg:  reg,
		types: ownership.Options{
			Types:          prog.Types,
			QuietUnknown:   opts.QuietUnknown,
			MaxDiagnostics: opts.MaxDiagnostics,
		},
		jobs: opts.Jobs,
	}
	if r.jobs <= 0 {
		r.jobs = runtime.GOMAXPROCS(0)
	}

	idx := opts.Timer.Begin("callgraph")
	r.graph = callgraph.Build(prog)
	topo := callgraph.Toposort(r.graph)
	opts.Timer.End(idx, fmt.Sprintf("%d funcs, %d batches, %d in cycles", len(r.graph.Funcs), len(topo.Batches), len(topo.Cycles)))
	span.WithExtra("funcs", fmt.Sprint(len(r.graph.Funcs)))

	if opts.Cache != nil {
		env, err := Environment(prog.Types, reg, opts)
		if err != nil {
			return nil, err
		}
		r.env = env
	}

	r.rep = &Report{Program: prog, Schedule: topo, Funcs: make([]*FuncReport, len(r.graph.Funcs))}
	var externs []*ownership.Summary
	for i, fn := range r.graph.Funcs {
		fr := &FuncReport{Func: fn, Status: StatusQueued}
		if fn.Body == nil {
			fr.Status = StatusExtern
			fr.Summary = ownership.DeclaredSummary(fn)
			externs = append(externs, fr.Summary)
		}
		r.rep.Funcs[i] = fr
		opts.Observer.emit(Event{Func: fn.ID, Name: fn.Name, Status: fr.Status})
	}
	sums := ownership.Summaries(nil).With(externs...)

	schedule := slices.Concat(topo.Batches, topo.Components)
	idx = opts.Timer.Begin("infer")
	var runErr error
	for bi, batch := range schedule {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		next, err := r.batch(ctx, bi, batch, sums)
		if err != nil {
			runErr = err
			break
		}
		sums = next
	}
	r.rep.CacheHits = int(r.hits.Load())
	opts.Timer.End(idx, fmt.Sprintf("%d batches, %d cached", len(schedule), r.rep.CacheHits))

	r.rep.Summaries = sums
	r.rep.Bag = diag.NewBag(opts.MaxDiagnostics)
	for _, fr := range r.rep.Funcs {
		r.rep.Stats.Add(fr.Stats)
		for _, d := range fr.Diags {
			r.rep.Bag.Add(d)
		}
	}
	r.rep.Bag.Sort()
	r.rep.Bag.Dedup()
	if runErr != nil {
		return r.rep, fmt.Errorf("infer %s: %w", prog.Name, runErr)
	}
	return r.rep, nil
}

// batch analyses one wave concurrently against a fixed snapshot and
// returns the snapshot extended by the wave's summaries.
func (r *run) batch(ctx context.Context, bi int, batch []callgraph.NodeID, snapshot ownership.Summaries) (ownership.Summaries, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, fmt.Sprintf("batch:%d", bi))
	defer span.End(fmt.Sprintf("%d funcs", len(batch)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.jobs, max(len(batch), 1)))
	for _, n := range batch {
		fr := r.rep.Funcs[int(n)]
		fr.Batch = bi
		if fr.Status == StatusExtern {
			continue
		}
		g.Go(func() error {
			// Проверка отмены
			if err := gctx.Err(); err != nil {
				return err
			}
			r.analyse(gctx, n, fr, snapshot)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot, err
	}

	add := make([]*ownership.Summary, 0, len(batch))
	for _, n := range batch {
		if fr := r.rep.Funcs[int(n)]; fr.Status != StatusExtern && fr.Summary != nil {
			add = append(add, fr.Summary)
		}
	}
	return snapshot.With(add...), nil
}

func (r *run) analyse(ctx context.Context, n callgraph.NodeID, fr *FuncReport, snapshot ownership.Summaries) {
	fn := fr.Func
	ctx, span := trace.StartFunc(ctx, fn.Name)
	start := time.Now()
	r.opts.Observer.emit(Event{Func: fn.ID, Name: fn.Name, Status: StatusRunning, Batch: fr.Batch})

	finish := func(status Status) {
		fr.Status = status
		elapsed := time.Since(start)
		r.opts.Timer.Add("function", elapsed)
		span.WithExtra("status", status.String()).End("")
		r.opts.Observer.emit(Event{Func: fn.ID, Name: fn.Name, Status: status, Batch: fr.Batch, Elapsed: elapsed})
	}

	pending := r.graph.Pending(n, func(c callgraph.NodeID) bool {
		_, ok := snapshot.Summary(r.graph.Func(c).ID)
		return ok
	})
	if len(pending) > 0 {
		names := make([]string, len(pending))
		for i, c := range pending {
			names[i] = r.graph.Func(c).Name
		}
		trace.Point(ctx, trace.ScopeFunc, "unresolved", strings.Join(names, ","))
	}

	if r.opts.Cache != nil {
		if key, err := r.key(n, snapshot); err == nil {
			fr.Key = key
			var payload DiskPayload
			ok, err := r.opts.Cache.Get(key, &payload)
			if err != nil {
				trace.Point(ctx, trace.ScopeFunc, "cache-error", err.Error())
			}
			if ok && restoreFunc(fn, &payload) {
				fr.Summary, fr.Diags, fr.Stats = payload.Summary, payload.Diags, payload.Stats
				r.hits.Add(1)
				finish(StatusCached)
				return
			}
		}
	}

	res, err := r.infer(fn, snapshot)
	if err != nil {
		hir.ClearAnnotations(fn)
		d := diag.NewError(diag.DrvInternal, fn.Span, fmt.Sprintf("analysis of %s failed: %v", fn.Name, err))
		d.Func = fn.Name
		fr.Diags = []diag.Diagnostic{d}
		finish(StatusFailed)
		return
	}
	fr.Result, fr.Summary, fr.Diags, fr.Stats = res, res.Summary, res.Diags, res.Stats
	if r.opts.Cache != nil && !fr.Key.IsZero() {
		if err := r.opts.Cache.Put(fr.Key, snapshotFunc(fn, res)); err != nil {
			trace.Point(ctx, trace.ScopeFunc, "cache-error", err.Error())
		}
	}
	if res.Fatal() {
		finish(StatusFailed)
		return
	}
	finish(StatusDone)
}

// infer isolates panics of the engine, which signal malformed HIR, to the
// function that caused them.
func (r *run) infer(fn *hir.Func, snapshot ownership.Summaries) (res *ownership.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	return ownership.Infer(fn, r.reg, snapshot, r.types), nil
}

func (r *run) key(n callgraph.NodeID, snapshot ownership.Summaries) (Digest, error) {
	callees := r.graph.Callees[int(n)]
	deps := make([]*ownership.Summary, len(callees))
	for i, c := range callees {
		deps[i], _ = snapshot.Summary(r.graph.Func(c).ID)
	}
	return Fingerprint(r.graph.Func(n), r.env, deps)
}
