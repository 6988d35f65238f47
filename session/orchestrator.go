// Package session runs the fixed interaction sequence against the
// measurement page:
//
//	open → selectSource → selectPort → startTest → awaitCompletion → extractResults → persist
//
// The first failing stage aborts the run. The browser is released exactly
// once on every exit path.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/bestip/browser"
	"github.com/use-agent/bestip/config"
	"github.com/use-agent/bestip/logbook"
	"github.com/use-agent/bestip/models"
	"github.com/use-agent/bestip/poller"
)

// Page locators.
const (
	SourceSelect = "#ip-source-select"
	PortSelect   = "#port-select"
	StartButton  = "#test-btn"
	ResultList   = "#ip-list"
)

// ErrNoResults is wrapped when the result body cannot be read.
var ErrNoResults = errors.New("session: result body unavailable")

// Snapshot is the single clock reading a run is based on. Now stamps the
// persisted record; Deadline is the latest the completion wait can end,
// counting a full action timeout for every check.
type Snapshot struct {
	Now      time.Time
	Deadline time.Time
}

// Result describes a finished run, successful or not.
type Result struct {
	Snapshot Snapshot

	// Skipped is true in local mode, where no browser was available and
	// every browser stage was skipped.
	Skipped bool

	// Completed lists the stages that finished, in order.
	Completed []models.Stage

	Bundle   *models.ResultBundle
	Decision models.RotationDecision
	Token    string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the clock used for the run snapshot.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithTokenFunc overrides the per-run token generator.
func WithTokenFunc(fn func() string) Option {
	return func(o *Orchestrator) { o.token = fn }
}

// Orchestrator owns the browser for the lifetime of one run.
type Orchestrator struct {
	drv     browser.Driver
	book    *logbook.Manager
	cfg     config.SessionConfig
	pollCfg config.PollerConfig

	now   func() time.Time
	token func() string
	sleep func(ctx context.Context, d time.Duration) error

	releaseOnce sync.Once
	releaseErr  error
}

// New takes ownership of drv. A nil drv selects local mode.
func New(drv browser.Driver, book *logbook.Manager, cfg config.SessionConfig, pollCfg config.PollerConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		drv:     drv,
		book:    book,
		cfg:     cfg,
		pollCfg: pollCfg,
		now:     time.Now,
		token:   logbook.NewRunToken,
		sleep:   poller.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Close releases the browser. Run calls it before returning; further calls
// return the first result.
func (o *Orchestrator) Close() error {
	o.releaseOnce.Do(func() {
		if o.drv != nil {
			o.releaseErr = o.drv.Close()
		}
	})
	return o.releaseErr
}

type step struct {
	stage models.Stage
	run   func(ctx context.Context, res *Result) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{models.StageOpen, o.open},
		{models.StageSelectSource, func(ctx context.Context, _ *Result) error {
			return o.ensureSelected(ctx, models.StageSelectSource, SourceSelect, o.cfg.Source)
		}},
		{models.StageSelectPort, func(ctx context.Context, _ *Result) error {
			return o.ensureSelected(ctx, models.StageSelectPort, PortSelect, o.cfg.Port)
		}},
		{models.StageStartTest, o.startTest},
		{models.StageAwaitCompletion, o.awaitCompletion},
		{models.StageExtractResults, o.extractResults},
		{models.StagePersist, o.persist},
	}
}

// Run executes every stage in order. The returned error is a
// *models.StageError naming the stage that aborted the run.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	defer func() {
		if err := o.Close(); err != nil {
			slog.Warn("browser release failed", "error", err)
		}
	}()

	now := o.now()
	res := &Result{
		Snapshot: Snapshot{
			Now:      now,
			Deadline: now.Add(o.waitBound()),
		},
		Skipped: o.drv == nil,
	}
	if res.Skipped {
		slog.Info("no browser available, running in local mode")
	}

	for _, s := range o.steps() {
		started := time.Now()
		if err := s.run(ctx, res); err != nil {
			slog.Error("stage failed", "stage", s.stage, "error", err)
			return res, err
		}
		res.Completed = append(res.Completed, s.stage)
		slog.Info("stage done", "stage", s.stage, "elapsed", time.Since(started).Round(time.Millisecond))
	}
	return res, nil
}

// waitBound is the worst-case duration of the completion wait. The wait
// itself is bounded by its check count, not by a timer.
func (o *Orchestrator) waitBound() time.Duration {
	return o.pollCfg.Budget() + time.Duration(o.pollCfg.MaxChecks)*o.cfg.ActionTimeout
}

// action bounds a single driver call.
func (o *Orchestrator) action(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.ActionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.ActionTimeout)
}

// stageError reports ErrCodeCanceled when the run's own context is done,
// so an action timeout keeps its stage-specific code.
func stageError(ctx context.Context, stage models.Stage, code, msg string, err error) *models.StageError {
	if ctx.Err() != nil {
		return models.NewStageError(stage, models.ErrCodeCanceled, msg, err)
	}
	return models.NewStageError(stage, code, msg, err)
}
