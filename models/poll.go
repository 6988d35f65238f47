package models

// PollState is the tri-state classification of the results region.
type PollState int

const (
	PollLoading PollState = iota
	PollComplete
	PollTimeout
)

func (s PollState) String() string {
	switch s {
	case PollLoading:
		return "loading"
	case PollComplete:
		return "complete"
	case PollTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// PollOutcome is what the completion poller returns. Text is set only when
// State is PollComplete and is the region text exactly as read.
type PollOutcome struct {
	State  PollState
	Text   string
	Checks int
}
