// Package logbook persists result records into a single rolling text file.
//
// Whether a write appends or rotates (truncates and rewrites) is decided
// from the newest record header already in the file. File metadata such as
// mtime is never consulted, so the file stays correct when copied between
// machines. At most one writer is assumed.
package logbook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/use-agent/bestip/models"
)

const day = 24 * time.Hour

// Manager decides and performs writes to one log file.
type Manager struct {
	path            string
	rotateAfterDays int
	marker          string
	now             func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRotateAfterDays sets the record age, in whole days, that forces an
// overwrite. Values below 1 are ignored.
func WithRotateAfterDays(days int) Option {
	return func(m *Manager) {
		if days >= 1 {
			m.rotateAfterDays = days
		}
	}
}

// WithMarker sets the body substring the run token is inserted after.
func WithMarker(marker string) Option {
	return func(m *Manager) { m.marker = marker }
}

// WithClock overrides the clock used by Decide.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager for the file at path.
func New(path string, opts ...Option) *Manager {
	m := &Manager{
		path:            path,
		rotateAfterDays: 7,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the log file location.
func (m *Manager) Path() string { return m.path }

// Decide reports the rotation decision as of the Manager's clock.
func (m *Manager) Decide() models.RotationDecision {
	return m.DecideAt(m.now())
}

// DecideAt reports whether a record written at now would append or
// overwrite. Every failure to establish the age of the newest record
// resolves to an overwrite.
func (m *Manager) DecideAt(now time.Time) models.RotationDecision {
	overwrite := func(reason, last string) models.RotationDecision {
		return models.RotationDecision{Mode: models.ModeOverwrite, Reason: reason, LastRecord: last, AgeDays: -1}
	}

	content, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return overwrite(models.ReasonNoFile, "")
		}
		slog.Warn("log file unreadable, rotating", "path", m.path, "error", err)
		return overwrite(models.ReasonReadFailed, "")
	}

	headers := ScanHeaders(string(content))
	if len(headers) == 0 {
		return overwrite(models.ReasonUnparseable, "")
	}

	last := headers[len(headers)-1]
	at, err := ParseHeaderTime(last)
	if err != nil {
		slog.Warn("newest record timestamp invalid, rotating", "timestamp", last, "error", err)
		return overwrite(models.ReasonUnparseableTimestamp, last)
	}

	age := int(now.Sub(at) / day)
	if age >= m.rotateAfterDays {
		return models.RotationDecision{Mode: models.ModeOverwrite, Reason: models.ReasonStale, LastRecord: last, AgeDays: age}
	}
	return models.RotationDecision{Mode: models.ModeAppend, Reason: models.ReasonFresh, LastRecord: last, AgeDays: age}
}

// Write persists bundle as a record stamped now, appending or rotating as
// DecideAt(now) dictates, and returns the decision taken.
func (m *Manager) Write(now time.Time, bundle models.ResultBundle, token string) (models.RotationDecision, error) {
	if bundle.Body == "" {
		return models.RotationDecision{}, errors.New("logbook: refusing to write a record without a body")
	}

	decision := m.DecideAt(now)
	record := renderRecord(now, bundle, m.marker, token)

	var (
		flags   int
		payload string
	)
	switch decision.Mode {
	case models.ModeAppend:
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		payload = record
	default:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		payload = fileHeader(now, m.rotateAfterDays) + record
	}

	f, err := os.OpenFile(m.path, flags, 0o644)
	if err != nil {
		return decision, fmt.Errorf("logbook: open %s: %w", m.path, err)
	}
	if _, err := f.WriteString(payload); err != nil {
		_ = f.Close()
		return decision, fmt.Errorf("logbook: write %s: %w", m.path, err)
	}
	if err := f.Close(); err != nil {
		return decision, fmt.Errorf("logbook: close %s: %w", m.path, err)
	}

	slog.Info("record persisted",
		"path", m.path,
		"mode", decision.Mode.String(),
		"reason", decision.Reason,
		"token", token,
	)
	return decision, nil
}
