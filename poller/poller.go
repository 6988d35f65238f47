// Package poller waits for the remote latency test to finish, judging
// completion only from the text of the results region.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/bestip/config"
	"github.com/use-agent/bestip/models"
)

// previewRunes bounds how much region text is logged per check.
const previewRunes = 200

// ErrTimeout is wrapped by callers that abort on an exhausted wait.
var ErrTimeout = errors.New("poller: completion wait exhausted")

// ReadFunc returns the current text of the results region.
type ReadFunc func(ctx context.Context) (string, error)

// Poller runs the bounded wait: one initial quiescence delay, then at most
// MaxChecks reads spaced Interval apart.
type Poller struct {
	cfg   config.PollerConfig
	read  ReadFunc
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Poller reading the region through read.
func New(cfg config.PollerConfig, read ReadFunc) *Poller {
	return &Poller{cfg: cfg, read: read, sleep: Sleep}
}

// Budget is the worst-case time Await can take, excluding read latency.
func (p *Poller) Budget() time.Duration {
	return p.cfg.Budget()
}

// Await blocks until the region holds a finished result or the check
// budget is spent. Read errors count as Loading for that check. A canceled
// context ends the wait early with PollTimeout.
func (p *Poller) Await(ctx context.Context) models.PollOutcome {
	slog.Info("waiting before first check", "delay", p.cfg.InitialDelay)
	if err := p.sleep(ctx, p.cfg.InitialDelay); err != nil {
		return models.PollOutcome{State: models.PollTimeout}
	}

	for check := 1; check <= p.cfg.MaxChecks; check++ {
		text, err := p.read(ctx)
		switch {
		case err != nil:
			slog.Debug("results region unreadable, still loading",
				"check", check, "error", err)
		case Classify(text) == models.PollComplete:
			slog.Info("results region complete", "check", check)
			return models.PollOutcome{State: models.PollComplete, Text: text, Checks: check}
		default:
			slog.Info("test still running",
				"check", check,
				"of", p.cfg.MaxChecks,
				"preview", preview(text),
			)
		}

		if check == p.cfg.MaxChecks {
			break
		}
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return models.PollOutcome{State: models.PollTimeout, Checks: check}
		}
	}

	slog.Warn("completion wait exhausted", "checks", p.cfg.MaxChecks)
	return models.PollOutcome{State: models.PollTimeout, Checks: p.cfg.MaxChecks}
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes]) + "..."
}
