package jobqueue

import "errors"

var (
	// ErrNotQueued indicates no pending job file exists for the id.
	ErrNotQueued = errors.New("jobqueue: job not queued")
	// ErrAlreadyClaimed indicates another process renamed the job file first.
	ErrAlreadyClaimed = errors.New("jobqueue: job already claimed")
	// ErrResultPending indicates the worker has not written a result yet.
	ErrResultPending = errors.New("jobqueue: result not available")
	// ErrResultFinal indicates a write against an already-terminal result.
	ErrResultFinal = errors.New("jobqueue: result is final")
)
