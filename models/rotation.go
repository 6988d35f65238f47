package models

// RotationMode selects how a record is written to the log file.
type RotationMode int

const (
	ModeOverwrite RotationMode = iota
	ModeAppend
)

func (m RotationMode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "overwrite"
}

// Reason codes for a RotationDecision.
const (
	ReasonNoFile               = "no-file"
	ReasonReadFailed           = "read-failed"
	ReasonUnparseable          = "unparseable"
	ReasonUnparseableTimestamp = "unparseable-timestamp"
	ReasonStale                = "stale"
	ReasonFresh                = "fresh"
)

// RotationDecision is derived only from the newest record header in the file.
type RotationDecision struct {
	Mode   RotationMode
	Reason string

	// LastRecord is the newest header timestamp as written, if any.
	LastRecord string

	// AgeDays is the whole-day age of LastRecord; -1 when unknown.
	AgeDays int
}
