// Package runner orchestrates maintenance runs. A run executes a batch
// of operations strictly one at a time: each operation is enqueued for
// the privileged worker, its result is awaited and streamed, and only
// then is the next operation enqueued. Runs are identified by a
// monotonic epoch; starting a new run supersedes the previous one.
package runner
