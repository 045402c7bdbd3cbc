package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldOperation is the standardized structured logging key for operation ids.
	FieldOperation = "operation"
	// FieldEpoch is the standardized structured logging key for run epochs.
	FieldEpoch = "epoch"
	// FieldScheduleID is the standardized structured logging key for schedule identifiers.
	FieldScheduleID = "schedule_id"
	// FieldOutcome is the standardized structured logging key for job outcomes.
	FieldOutcome = "outcome"
	// FieldEventType tags log records with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint points operators at the next diagnostic step.
	FieldErrorHint = "error_hint"
)
