package jobqueue

import "time"

// Outcome is the terminal classification of a job. The empty outcome
// marks a result record that is still accumulating output.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailure    Outcome = "failure"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeRejected   Outcome = "rejected"
	OutcomeIncomplete Outcome = "incomplete"
)

// IsTerminal reports whether the outcome ends the job lifecycle.
func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeSkipped, OutcomeRejected, OutcomeIncomplete:
		return true
	default:
		return false
	}
}

// Stream tags for captured output lines.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// JobDescriptor is a queued unit of work. It is owned by the coordinator
// until the worker claims it.
type JobDescriptor struct {
	ID          string    `json:"job_id"`
	OperationID string    `json:"operation_id"`
	Epoch       uint64    `json:"epoch,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// OutputLine is one captured line of command output with its stream tag.
type OutputLine struct {
	Stream string `json:"stream"`
	Text   string `json:"text"`
}

// ResultDescriptor is the worker's record of a job. While the command runs
// the record carries an empty outcome and a growing line list; the revision
// increments on every rewrite so tailers can detect new output without
// diffing. A record with a terminal outcome is immutable.
type ResultDescriptor struct {
	JobID       string       `json:"job_id"`
	OperationID string       `json:"operation_id"`
	Outcome     Outcome      `json:"outcome,omitempty"`
	ExitStatus  int          `json:"exit_status"`
	Lines       []OutputLine `json:"lines,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at,omitempty"`
	Revision    uint64       `json:"revision"`
}

// Final reports whether the record will never change again.
func (r *ResultDescriptor) Final() bool {
	return r != nil && r.Outcome.IsTerminal()
}
