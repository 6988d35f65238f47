package models

import "fmt"

// Error codes used in stage failures and the process outcome.
const (
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeSelect       = "SELECT_FAILED"
	ErrCodeStart        = "START_FAILED"
	ErrCodePollTimeout  = "POLL_TIMEOUT"
	ErrCodeNoResults    = "NO_RESULTS"
	ErrCodePersist      = "PERSIST_FAILED"
	ErrCodeCanceled     = "CANCELED"
)

// StageError is the fatal error type carrying the failed stage and a code.
// It implements the error interface and supports error wrapping via Unwrap.
type StageError struct {
	Stage   Stage
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Code, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage Stage, code, message string, err error) *StageError {
	return &StageError{Stage: stage, Code: code, Message: message, Err: err}
}
