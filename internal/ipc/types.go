package ipc

import (
	"upkeep/internal/jobqueue"
	"upkeep/internal/ops"
	"upkeep/internal/runner"
	"upkeep/internal/schedule"
	"upkeep/internal/stream"
)

// Event mirrors the coordinator stream event DTO for IPC callers.
type Event = stream.Event

// RunStatus mirrors the coordinator run status DTO.
type RunStatus = runner.RunStatus

// Operation mirrors the registry catalog entry.
type Operation = ops.Definition

// Schedule mirrors the persisted schedule definition.
type Schedule = schedule.Definition

// JobResult mirrors the worker result record.
type JobResult = jobqueue.ResultDescriptor

// DaemonStatusRequest fetches daemon runtime information.
type DaemonStatusRequest struct{}

// DaemonStatusResponse reports daemon runtime information.
type DaemonStatusResponse struct {
	Running      bool      `json:"running"`
	PID          int       `json:"pid"`
	QueueDir     string    `json:"queue_dir"`
	LockFilePath string    `json:"lock_file_path"`
	PendingJobs  int       `json:"pending_jobs"`
	Run          RunStatus `json:"run"`
	HasRun       bool      `json:"has_run"`
}

// OperationsRequest lists the operation catalog.
type OperationsRequest struct{}

// OperationsResponse carries the full catalog grouped by registry order.
type OperationsResponse struct {
	Operations []Operation `json:"operations"`
	Categories []string    `json:"categories"`
}

// RunStartRequest starts a maintenance run over the named operations.
type RunStartRequest struct {
	Operations []string `json:"operations"`
}

// RunStartResponse reports the epoch assigned to the new run.
type RunStartResponse struct {
	Epoch uint64 `json:"epoch"`
}

// RunSkipRequest skips the currently executing operation of a run.
type RunSkipRequest struct {
	Epoch uint64 `json:"epoch"`
}

// RunSkipResponse acknowledges a skip request.
type RunSkipResponse struct {
	Skipped bool `json:"skipped"`
}

// RunCancelRequest cancels a run after the current operation finishes.
type RunCancelRequest struct {
	Epoch uint64 `json:"epoch"`
}

// RunCancelResponse acknowledges a cancel request.
type RunCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// RunStatusRequest fetches status for a specific run epoch.
// Epoch zero means the most recent run.
type RunStatusRequest struct {
	Epoch uint64 `json:"epoch"`
}

// RunStatusResponse carries run progress and summary counters.
type RunStatusResponse struct {
	Run RunStatus `json:"run"`
}

// StreamFetchRequest pulls buffered events for a run epoch.
type StreamFetchRequest struct {
	Epoch  uint64 `json:"epoch"`
	Since  uint64 `json:"since"`
	Limit  int    `json:"limit"`
	WaitMS int    `json:"wait_ms"`
}

// StreamFetchResponse carries fetched events and the next cursor.
type StreamFetchResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

// JobResultRequest fetches the result record for a job id.
type JobResultRequest struct {
	JobID string `json:"job_id"`
}

// JobResultResponse carries the current result revision.
type JobResultResponse struct {
	Result JobResult `json:"result"`
}

// ScheduleListRequest lists persisted schedules.
type ScheduleListRequest struct{}

// ScheduleListResponse carries schedules ordered by name.
type ScheduleListResponse struct {
	Schedules []Schedule `json:"schedules"`
}

// ScheduleGetRequest fetches a single schedule by id.
type ScheduleGetRequest struct {
	ID string `json:"id"`
}

// ScheduleGetResponse carries a single schedule.
type ScheduleGetResponse struct {
	Schedule Schedule `json:"schedule"`
}

// ScheduleCreateRequest persists a new schedule.
type ScheduleCreateRequest struct {
	Schedule Schedule `json:"schedule"`
	// Force persists the schedule even when conflicts are detected.
	Force bool `json:"force"`
}

// ScheduleCreateResponse carries the stored schedule and any conflict
// advisories against existing schedules.
type ScheduleCreateResponse struct {
	Schedule  Schedule `json:"schedule"`
	Conflicts []string `json:"conflicts"`
	Created   bool     `json:"created"`
}

// ScheduleUpdateRequest replaces an existing schedule definition.
type ScheduleUpdateRequest struct {
	Schedule Schedule `json:"schedule"`
	Force    bool     `json:"force"`
}

// ScheduleUpdateResponse carries the stored schedule and any conflict
// advisories.
type ScheduleUpdateResponse struct {
	Schedule  Schedule `json:"schedule"`
	Conflicts []string `json:"conflicts"`
	Updated   bool     `json:"updated"`
}

// ScheduleDeleteRequest removes a schedule by id.
type ScheduleDeleteRequest struct {
	ID string `json:"id"`
}

// ScheduleDeleteResponse acknowledges deletion.
type ScheduleDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ScheduleRunNowRequest fires a schedule immediately without shifting
// its recurrence.
type ScheduleRunNowRequest struct {
	ID string `json:"id"`
}

// ScheduleRunNowResponse reports the epoch of the fired run.
type ScheduleRunNowResponse struct {
	Epoch uint64 `json:"epoch"`
}

// LogTailRequest reads daemon log lines. A negative offset asks for
// the last Limit lines; Follow with WaitMS polls for new lines.
type LogTailRequest struct {
	Offset int64 `json:"offset"`
	Limit  int   `json:"limit"`
	Follow bool  `json:"follow"`
	WaitMS int   `json:"wait_ms"`
}

// LogTailResponse carries log lines and the next byte offset.
type LogTailResponse struct {
	Lines []string `json:"lines"`
	Next  int64    `json:"next"`
}

// TestNotificationRequest asks the daemon to send a test push alert.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether an alert went out.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}
