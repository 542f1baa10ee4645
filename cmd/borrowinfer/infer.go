package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"borrowinfer/internal/capability"
	"borrowinfer/internal/config"
	"borrowinfer/internal/diag"
	"borrowinfer/internal/diagfmt"
	"borrowinfer/internal/driver"
	"borrowinfer/internal/hir"
	"borrowinfer/internal/hir/wire"
	"borrowinfer/internal/observ"
	"borrowinfer/internal/source"
	"borrowinfer/internal/trace"
)

var inferCmd = &cobra.Command{
	Use:   "infer [flags] <program.json|program.mp>...",
	Short: "Infer ownership for typed HIR programs",
	Long:  `Decode typed HIR programs, infer move/borrow/copy decisions callee-first and report ownership diagnostics`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfer,
}

func init() {
	inferCmd.Flags().String("format", "pretty", "diagnostic output format (pretty|short|json)")
	inferCmd.Flags().String("emit", "", "emit the annotated program (text|json|mp)")
	inferCmd.Flags().String("out", "", "write --emit output to this file instead of stdout")
	inferCmd.Flags().Bool("stats", false, "print a table of inferred decisions")
	inferCmd.Flags().String("ui", "off", "progress view (auto|on|off)")
	inferCmd.Flags().Bool("watch", false, "re-run when an input file changes")
	inferCmd.Flags().Bool("cache", false, "reuse results from the on-disk cache")
	inferCmd.Flags().Int("jobs", 0, "max functions analysed in parallel (0 = config value or GOMAXPROCS)")
	inferCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	inferCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

type inferOptions struct {
	format    string
	emit      string
	out       string
	stats     bool
	ui        progressMode
	watch     bool
	withNotes bool
	fullPath  bool
	color     bool
	timings   bool
	quiet     bool

	cfg   config.Config
	cache *driver.DiskCache
}

// exitCodeError carries a process exit status without an error message.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func readInferOptions(cmd *cobra.Command) (inferOptions, error) {
	var opts inferOptions
	var err error
	flags := cmd.Flags()
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, errInvalidFlag("format", opts.format, "pretty|short|json")
	}
	if opts.emit, err = flags.GetString("emit"); err != nil {
		return opts, fmt.Errorf("failed to get emit flag: %w", err)
	}
	switch opts.emit {
	case "", "text", "json", "mp":
	default:
		return opts, errInvalidFlag("emit", opts.emit, "text|json|mp")
	}
	if opts.out, err = flags.GetString("out"); err != nil {
		return opts, fmt.Errorf("failed to get out flag: %w", err)
	}
	if opts.stats, err = flags.GetBool("stats"); err != nil {
		return opts, fmt.Errorf("failed to get stats flag: %w", err)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = parseProgressMode(uiValue); err != nil {
		return opts, err
	}
	if opts.watch, err = flags.GetBool("watch"); err != nil {
		return opts, fmt.Errorf("failed to get watch flag: %w", err)
	}
	if opts.withNotes, err = flags.GetBool("with-notes"); err != nil {
		return opts, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if opts.fullPath, err = flags.GetBool("fullpath"); err != nil {
		return opts, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.color, err = useColor(cmd, os.Stdout); err != nil {
		return opts, err
	}

	opts.cfg = configFrom(cmd.Context())
	if flags.Changed("jobs") {
		if opts.cfg.Infer.Jobs, err = flags.GetInt("jobs"); err != nil {
			return opts, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	useCache := opts.cfg.Cache.Enabled
	if flags.Changed("cache") {
		if useCache, err = flags.GetBool("cache"); err != nil {
			return opts, fmt.Errorf("failed to get cache flag: %w", err)
		}
	}
	if useCache {
		if opts.cfg.Cache.Dir != "" {
			opts.cache, err = driver.OpenDiskCacheAt(opts.cfg.Cache.Dir)
		} else {
			opts.cache, err = driver.OpenDiskCache("borrowinfer")
		}
		if err != nil {
			return opts, fmt.Errorf("failed to open cache: %w", err)
		}
	}
	return opts, nil
}

func runInfer(cmd *cobra.Command, args []string) error {
	opts, err := readInferOptions(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	if opts.watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchAndInfer(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
	}
	failed, err := inferAll(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
	if err != nil {
		return err
	}
	if failed {
		return exitCodeError{code: 1}
	}
	return nil
}

func inferAll(ctx context.Context, out, errOut io.Writer, paths []string, opts inferOptions) (bool, error) {
	failed := false
	for _, path := range paths {
		f, err := inferFile(ctx, out, errOut, path, opts)
		if err != nil {
			return failed, err
		}
		failed = failed || f
	}
	return failed, nil
}

// inferFile runs one document end to end. It reports whether the document
// produced a fatal diagnostic; the error is reserved for output failures
// and cancellation.
func inferFile(ctx context.Context, out, errOut io.Writer, path string, opts inferOptions) (bool, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, "file:"+path)
	defer span.End("")

	timer := observ.NewTimer()
	prog, reg, loadBag, fs := loadProgram(path, opts, timer)
	if loadBag != nil {
		return true, printDiagnostics(out, loadBag, fs, opts)
	}

	dopts := driver.Options{
		Jobs:           opts.cfg.Infer.Jobs,
		MaxDiagnostics: opts.cfg.Infer.MaxDiagnostics,
		QuietUnknown:   !opts.cfg.Infer.WarnUnknown,
		Cache:          opts.cache,
		Timer:          timer,
	}
	var rep *driver.Report
	var err error
	if opts.showProgress() {
		rep, err = runWithUI(ctx, path, prog, reg, dopts)
	} else {
		rep, err = driver.Run(ctx, prog, reg, dopts)
	}
	if err != nil {
		return true, err
	}

	if opts.timings {
		rep.Bag.Add(driver.TimingDiagnostic(prog.Name, timer.Report()))
	}
	if err := printDiagnostics(out, rep.Bag, prog.Files, opts); err != nil {
		return true, err
	}
	if opts.emit != "" {
		if err := emitProgram(out, prog, opts); err != nil {
			return true, err
		}
	}
	if opts.stats {
		if err := printStats(out, rep); err != nil {
			return true, err
		}
	}
	if opts.timings && !opts.quiet {
		fmt.Fprintf(errOut, "%s: %s\n", path, timer.Summary())
	}
	return rep.Failed(), nil
}

// loadProgram decodes and builds a document. Failures come back as a bag
// with a single fatal diagnostic located at the document itself.
func loadProgram(path string, opts inferOptions, timer *observ.Timer) (*hir.Program, *capability.Registry, *diag.Bag, *source.FileSet) {
	idx := timer.Begin("decode")
	doc, err := wire.DecodeFile(path)
	timer.End(idx, "")
	if err == nil {
		idx = timer.Begin("build")
		var prog *hir.Program
		var reg *capability.Registry
		prog, reg, err = wire.Build(doc, opts.cfg.CapabilityOverrides()...)
		timer.End(idx, "")
		if err == nil {
			return prog, reg, nil, nil
		}
	}

	code := diag.WireDecodeError
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		code = diag.IOLoadFileError
	case errors.Is(err, wire.ErrVersion):
		code = diag.WireVersion
	}
	fs := source.NewFileSet()
	file := fs.AddVirtual(path, nil)
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(code, source.Span{File: file}, strings.TrimPrefix(err.Error(), path+": ")))
	return nil, nil, bag, fs
}

func printDiagnostics(out io.Writer, bag *diag.Bag, fs *source.FileSet, opts inferOptions) error {
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	switch opts.format {
	case "json":
		return diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     opts.withNotes,
		})
	case "short":
		if text := diag.FormatShortDiagnostics(bag.Items(), fs, opts.withNotes); text != "" {
			_, err := fmt.Fprintln(out, text)
			return err
		}
		return nil
	default:
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{
			Color:     opts.color,
			Context:   1,
			PathMode:  pathMode,
			ShowNotes: opts.withNotes,
			ShowFunc:  true,
		})
		return nil
	}
}

func emitProgram(out io.Writer, prog *hir.Program, opts inferOptions) (err error) {
	w := out
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.out, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	switch opts.emit {
	case "text":
		return hir.Dump(w, prog, hir.DumpOptions{Annotations: true, Reasons: !opts.quiet})
	case "json":
		return wire.Encode(w, wire.Export(prog), wire.FormatJSON)
	case "mp":
		return wire.Encode(w, wire.Export(prog), wire.FormatMsgpack)
	}
	return nil
}
