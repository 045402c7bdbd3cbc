// Package ops defines the whitelist of maintenance operations the worker
// is allowed to execute.
//
// The registry is the trust boundary of the system: the worker validates
// every queued job against it and rejects anything it does not know,
// regardless of what the caller asked for. The table is package data and
// immutable after load; lookups never touch disk.
package ops
