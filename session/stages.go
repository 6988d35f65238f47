package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/bestip/extract"
	"github.com/use-agent/bestip/models"
	"github.com/use-agent/bestip/poller"
)

// choosePlaceholder is still shown in the result list when the test never
// started; such a list is not a result.
const choosePlaceholder = "请选择端口和IP库"

func (o *Orchestrator) skip(stage models.Stage) {
	slog.Info("local mode, stage skipped", "stage", stage)
}

func (o *Orchestrator) open(ctx context.Context, _ *Result) error {
	if o.drv == nil {
		o.skip(models.StageOpen)
		return nil
	}

	slog.Info("opening target page", "url", o.cfg.TargetURL)
	actx, cancel := o.action(ctx)
	defer cancel()
	if err := o.drv.Navigate(actx, o.cfg.TargetURL); err != nil {
		return stageError(ctx, models.StageOpen, models.ErrCodeNavigation, "navigation to target URL failed", err)
	}

	// Fixed settle delay; the page gives no readiness signal for its widgets.
	if err := o.sleep(ctx, o.cfg.SettleDelay); err != nil {
		return stageError(ctx, models.StageOpen, models.ErrCodeCanceled, "interrupted while page settled", err)
	}
	return nil
}

// ensureSelected reads the current value of a <select> first and only
// changes it when it differs, so the page sees no redundant change event.
func (o *Orchestrator) ensureSelected(ctx context.Context, stage models.Stage, selector, want string) error {
	if o.drv == nil {
		o.skip(stage)
		return nil
	}

	actx, cancel := o.action(ctx)
	defer cancel()

	current, err := o.drv.Attribute(actx, selector, "value")
	if err != nil {
		return stageError(ctx, stage, models.ErrCodeSelect, fmt.Sprintf("read current value of %s", selector), err)
	}
	if current == want {
		slog.Info("option already selected", "stage", stage, "value", want)
		return nil
	}

	if err := o.drv.SelectOption(actx, selector, want); err != nil {
		return stageError(ctx, stage, models.ErrCodeSelect, fmt.Sprintf("select %q in %s", want, selector), err)
	}
	slog.Info("option selected", "stage", stage, "from", current, "to", want)
	return nil
}

func (o *Orchestrator) startTest(ctx context.Context, _ *Result) error {
	if o.drv == nil {
		o.skip(models.StageStartTest)
		return nil
	}

	actx, cancel := o.action(ctx)
	defer cancel()
	if err := o.drv.Click(actx, StartButton); err != nil {
		return stageError(ctx, models.StageStartTest, models.ErrCodeStart, "start button click failed", err)
	}
	return nil
}

// readResultList is the poller's view of the page.
func (o *Orchestrator) readResultList(ctx context.Context) (string, error) {
	actx, cancel := o.action(ctx)
	defer cancel()
	return o.drv.Text(actx, ResultList)
}

func (o *Orchestrator) awaitCompletion(ctx context.Context, res *Result) error {
	if o.drv == nil {
		o.skip(models.StageAwaitCompletion)
		return nil
	}

	// Slow or failing reads never shorten the wait: only the check count
	// ends it, so no timer is layered over the poller.
	p := poller.New(o.pollCfg, o.readResultList)
	slog.Info("awaiting test completion",
		"budget", p.Budget(),
		"latest", res.Snapshot.Deadline.Format("15:04:05"),
	)

	out := p.Await(ctx)
	if out.State != models.PollComplete {
		return stageError(ctx, models.StageAwaitCompletion, models.ErrCodePollTimeout,
			fmt.Sprintf("no result after %d checks", out.Checks), poller.ErrTimeout)
	}
	return nil
}

// extractResults reads the three result regions. Stats and progress
// degrade to sentinels; a missing body aborts the run.
func (o *Orchestrator) extractResults(ctx context.Context, res *Result) error {
	if o.drv == nil {
		o.skip(models.StageExtractResults)
		return nil
	}

	bundle := models.ResultBundle{
		Stats:    models.StatsUnavailable,
		Progress: models.ProgressUnavailable,
	}

	if doc, err := o.snapshotDocument(ctx); err != nil {
		slog.Warn("page snapshot unavailable, stats and progress degraded", "error", err)
	} else {
		if stats, ok := doc.Stats(); ok {
			bundle.Stats = stats
		} else {
			slog.Warn("stats region not found")
		}
		if progress, ok := doc.Progress(); ok {
			bundle.Progress = progress
		} else {
			slog.Warn("progress region not found")
		}
	}

	body, err := o.readResultList(ctx)
	if err != nil {
		return stageError(ctx, models.StageExtractResults, models.ErrCodeNoResults, "result list unreadable", fmt.Errorf("%w: %v", ErrNoResults, err))
	}
	if strings.TrimSpace(body) == "" || strings.Contains(body, choosePlaceholder) {
		return stageError(ctx, models.StageExtractResults, models.ErrCodeNoResults, "result list empty", ErrNoResults)
	}
	bundle.Body = body

	res.Bundle = &bundle
	slog.Info("results extracted", "bodyBytes", len(body), "stats", bundle.Stats, "progress", bundle.Progress)
	return nil
}

func (o *Orchestrator) snapshotDocument(ctx context.Context) (*extract.Document, error) {
	actx, cancel := o.action(ctx)
	defer cancel()
	raw, err := o.drv.HTML(actx)
	if err != nil {
		return nil, err
	}
	return extract.Parse(raw)
}

func (o *Orchestrator) persist(ctx context.Context, res *Result) error {
	if res.Bundle == nil {
		o.skip(models.StagePersist)
		return nil
	}

	res.Token = o.token()
	decision, err := o.book.Write(res.Snapshot.Now, *res.Bundle, res.Token)
	res.Decision = decision
	if err != nil {
		return stageError(ctx, models.StagePersist, models.ErrCodePersist, "write log record", err)
	}
	return nil
}
