// Package jobqueue persists job and result records in a shared queue
// directory and is the only channel across the privilege boundary.
//
// Every record is a self-contained JSON file written via a temporary file
// and an atomic rename, so a reader never observes a half-written record.
// Job ids are zero-padded monotonic sequence numbers allocated from a
// sequence file; lexicographic filename order therefore equals submission
// order, independent of wall-clock skew.
//
// Record lifecycle on disk:
//
//	<id>.job.json    queued, owned by the coordinator
//	<id>.claim.json  claimed by the worker (atomic rename of the job file)
//	<id>.result.json written only by the worker; rewritten whole while
//	                 output accumulates, final once the outcome is terminal
//
// Malformed records are logged and skipped, never deleted, so they stay
// inspectable.
package jobqueue
