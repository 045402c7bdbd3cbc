// Package daemon composes the coordinator-tier services and enforces
// single-instance execution via a lock file. The daemon owns the job
// queue store, the event hub, the run coordinator, and the schedule
// store; the privileged worker runs as a separate process and shares
// only the queue directory.
package daemon
