// Package batch runs the renaming tool over every matched file of a
// directory, one file at a time, without letting a failed file stop the
// pass.
package batch

import (
	"context"
	"os"

	"pkgbatch/internal/config"
	"pkgbatch/internal/errors"
	"pkgbatch/internal/log"
	"pkgbatch/internal/scan"
	"pkgbatch/internal/ui"
	"pkgbatch/pkg/types"
)

// Notifier receives the diagnostics of a batch pass.
type Notifier interface {
	Matched(names []string)
	Renaming(name string)
	Failed(result types.RenameResult)
}

// Report is what a batch pass did.
type Report struct {
	Matched []string
	Results []types.RenameResult
}

// Failed returns the number of files whose invocation did not succeed.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Runner performs batch passes.
type Runner struct {
	scanner  *scan.Scanner
	invoker  Invoker
	notifier Notifier
	observer func(name string, result types.RenameResult)
	baseDir  string
	tool     string
}

// Option configures a Runner.
type Option func(*Runner)

// WithInvoker replaces the process-spawning invoker.
func WithInvoker(inv Invoker) Option {
	return func(r *Runner) { r.invoker = inv }
}

// WithNotifier replaces the stdout diagnostics.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithObserver registers fn to be called after every rename attempt.
func WithObserver(fn func(name string, result types.RenameResult)) Option {
	return func(r *Runner) { r.observer = fn }
}

// New creates a Runner from cfg. By default it spawns cfg.Batch.Tool and
// writes diagnostics to stdout.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	s, err := scan.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		scanner: s,
		baseDir: cfg.BaseDirectory(),
		tool:    cfg.Batch.Tool,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.invoker == nil {
		r.invoker = NewExecInvoker(r.tool)
	}
	if r.notifier == nil {
		r.notifier = ui.NewTextNotifier(os.Stdout, r.tool)
	}
	return r, nil
}

// Scanner returns the scanner used to enumerate files.
func (r *Runner) Scanner() *scan.Scanner {
	return r.scanner
}

// BaseDirectory returns the configured base directory.
func (r *Runner) BaseDirectory() string {
	return r.baseDir
}

// RenameOne invokes the tool for fileName in the configured base directory.
// It never fails: any launch failure or unsuccessful exit is reported
// through the notifier and recorded in the returned result.
func (r *Runner) RenameOne(ctx context.Context, fileName string) types.RenameResult {
	return r.renameIn(ctx, r.baseDir, fileName)
}

// Rename prints the "Renaming" line for fileName and then renames it like
// RenameOne.
func (r *Runner) Rename(ctx context.Context, fileName string) types.RenameResult {
	r.notifier.Renaming(fileName)
	return r.RenameOne(ctx, fileName)
}

func (r *Runner) renameIn(ctx context.Context, dir, fileName string) types.RenameResult {
	res := r.invoker.Invoke(ctx, dir, fileName)
	if r.observer != nil {
		r.observer(fileName, res)
	}
	if res.OK() {
		log.LogWithFields(log.F("file", fileName)).Debug("renamed")
		return res
	}
	r.notifier.Failed(res)
	log.LogWithFields(
		log.F("file", fileName),
		log.F("outcome", res.Outcome.String()),
		log.F("exit_code", res.ExitCode),
		log.F("error", res.Error),
	).Debug("rename attempt failed")
	return res
}

// RunBatch enumerates baseDirectory (the configured one when empty), prints
// the matched list, then renames each file in order. Only a failure to list
// the directory or a cancelled ctx is returned as an error. Cancellation
// stops the pass before the next file; the report covers the files
// attempted so far.
func (r *Runner) RunBatch(ctx context.Context, baseDirectory string) (Report, error) {
	if baseDirectory == "" {
		baseDirectory = r.baseDir
	}
	if err := ctx.Err(); err != nil {
		return Report{}, errors.Wrapf(err, "batch of %s interrupted", baseDirectory)
	}

	names, err := r.scanner.ListMatchingFiles(baseDirectory)
	if err != nil {
		return Report{}, err
	}

	report := Report{Matched: names, Results: make([]types.RenameResult, 0, len(names))}
	r.notifier.Matched(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			log.LogWithFields(
				log.F("directory", baseDirectory),
				log.F("remaining", len(names)-len(report.Results)),
			).Warn("batch interrupted")
			return report, errors.Wrapf(err, "batch of %s interrupted", baseDirectory)
		}
		r.notifier.Renaming(name)
		report.Results = append(report.Results, r.renameIn(ctx, baseDirectory, name))
	}

	log.LogWithFields(
		log.F("directory", baseDirectory),
		log.F("matched", len(names)),
		log.F("failed", report.Failed()),
	).Info("batch complete")
	return report, nil
}
