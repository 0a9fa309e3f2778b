// Package runner drives the clean action and the sweep over every target.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"cmake-clean/internal/config"
	"cmake-clean/internal/database"
	"cmake-clean/internal/metrics"
	"cmake-clean/internal/safety"
	"cmake-clean/internal/sweep"
)

// Cleaner runs the external clean action for a directory
type Cleaner interface {
	Run(ctx context.Context, dir string) (int, error)
}

// Summary collects what a run did
type Summary struct {
	RunID    string
	Results  []*sweep.Result
	MakeExit map[string]int
}

// Removals returns every removal of the run in order
func (s *Summary) Removals() []sweep.Removal {
	var out []sweep.Removal
	for _, r := range s.Results {
		out = append(out, r.Removals...)
	}
	return out
}

// Runner processes targets in argument order
type Runner struct {
	fs        afero.Fs
	rules     config.Rules
	cleaner   Cleaner
	history   *database.HistoryDB
	logger    logrus.FieldLogger
	dryRun    bool
	protected []string
}

type Option func(*Runner)

// WithFs overrides the filesystem swept, the OS filesystem by default
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithCleaner sets the clean action; nil skips it
func WithCleaner(c Cleaner) Option {
	return func(r *Runner) { r.cleaner = c }
}

// WithHistory records every removal in db
func WithHistory(db *database.HistoryDB) Option {
	return func(r *Runner) { r.history = db }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithDryRun reports removals without deleting and skips the clean action
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// WithProtected adds roots that must never be swept
func WithProtected(paths []string) Option {
	return func(r *Runner) { r.protected = append(r.protected, paths...) }
}

// New creates a Runner for rules
func New(rules config.Rules, opts ...Option) *Runner {
	metrics.Init()
	r := &Runner{
		fs:     afero.NewOsFs(),
		rules:  rules,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run cleans each target in turn. Targets are made absolute first, so
// "../build" and "." work and are recorded under one name. The first sweep
// error stops the run; the summary of the targets completed so far is
// returned with it.
func (r *Runner) Run(ctx context.Context, targets []string) (*Summary, error) {
	if len(targets) == 0 {
		targets = []string{"."}
	}

	summary := &Summary{
		RunID:    uuid.NewString(),
		MakeExit: make(map[string]int),
	}
	metrics.RecordRun()
	log := r.logger.WithField("run_id", summary.RunID)

	for _, arg := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := safety.ValidateRoot(arg, r.protected); err != nil {
			metrics.ErrorsTotal.Inc()
			r.recordError(summary.RunID, arg, err, log)
			return summary, err
		}
		// History rows, metric labels and make all see the absolute root
		target, err := safety.NormalizePath(arg)
		if err != nil {
			return summary, err
		}

		if r.cleaner != nil && !r.dryRun {
			code := r.clean(ctx, target, log)
			summary.MakeExit[target] = code
		}

		res, err := r.sweep(ctx, summary.RunID, target, log)
		if err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, res)
	}

	log.WithField("targets", len(targets)).Info("run complete")
	return summary, nil
}

// clean runs the clean action. Its outcome is observed, never acted on.
func (r *Runner) clean(ctx context.Context, dir string, log logrus.FieldLogger) int {
	code, err := r.cleaner.Run(ctx, dir)
	metrics.RecordMakeExit(dir, code)
	if err != nil {
		log.WithError(err).WithField("dir", dir).Warn("clean action could not be started")
		return code
	}
	log.WithFields(logrus.Fields{"dir": dir, "exit_code": code}).Debug("clean action finished")
	return code
}

func (r *Runner) sweep(ctx context.Context, runID, target string, log logrus.FieldLogger) (*sweep.Result, error) {
	start := time.Now()
	s := sweep.New(r.fs, r.rules,
		sweep.WithLogger(log),
		sweep.WithDryRun(r.dryRun),
	)

	res, err := s.Sweep(ctx, target)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			metrics.ErrorsTotal.Inc()
		}
		metrics.RecordTarget("error", time.Since(start))
		r.recordError(runID, target, err, log)
		return nil, fmt.Errorf("sweep %s: %w", target, err)
	}

	metrics.RecordTarget("ok", res.Duration)
	for _, rm := range res.Removals {
		metrics.RecordRemoval(string(rm.Kind), string(rm.Pass))
		if r.history == nil {
			continue
		}
		if err := r.history.RecordRemoval(runID, time.Now(), rm); err != nil {
			log.WithError(err).WithField("path", rm.Path).Warn("failed to record removal")
		}
	}
	return res, nil
}

func (r *Runner) recordError(runID, target string, cause error, log logrus.FieldLogger) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordError(runID, time.Now(), target, cause); err != nil {
		log.WithError(err).WithField("root", target).Warn("failed to record error")
	}
}
