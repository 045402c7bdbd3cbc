// Package worker implements the privileged job executor. It claims one
// job at a time from the queue directory, validates the operation
// against the registry, runs the configured maintenance script, and
// flushes captured output to the job's result record incrementally. The
// worker keeps no state that is not on disk; a restart resumes from the
// queue after finalizing any interrupted claim as incomplete.
package worker
