package stream

import "time"

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventRunStart          EventType = "run-start"
	EventOperationStart    EventType = "operation-start"
	EventOutputLine        EventType = "output-line"
	EventOperationComplete EventType = "operation-complete"
	EventOperationSkipped  EventType = "operation-skipped"
	EventRunSummary        EventType = "run-summary"
	EventRunComplete       EventType = "run-complete"
	EventSuperseded        EventType = "superseded"
	EventWorkerStalled     EventType = "worker-stalled"
)

// Terminal reports whether the event ends a subscription.
func (t EventType) Terminal() bool {
	return t == EventRunComplete || t == EventSuperseded
}

// Summary aggregates per-outcome counts for a finished run.
type Summary struct {
	Total      int `json:"total"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Incomplete int `json:"incomplete"`
}

// Event is one entry in a run's event stream. Sequence numbers are
// assigned by the hub and are global across epochs so a Fetch cursor
// stays valid when runs supersede each other.
type Event struct {
	Sequence    uint64    `json:"seq"`
	Epoch       uint64    `json:"epoch"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"ts"`
	OperationID string    `json:"operation_id,omitempty"`
	Position    int       `json:"position,omitempty"`
	Total       int       `json:"total,omitempty"`
	Stream      string    `json:"stream,omitempty"`
	Text        string    `json:"text,omitempty"`
	Success     bool      `json:"success,omitempty"`
	ExitStatus  int       `json:"exit_status,omitempty"`
	Summary     *Summary  `json:"summary,omitempty"`
	Message     string    `json:"message,omitempty"`
}
