// Package stream publishes run lifecycle events to in-process and IPC
// consumers. Events are scoped to a run epoch; at most one push
// subscriber is attached at a time, and attaching a newer epoch ends the
// previous subscription with a terminal superseded event. IPC clients
// long-poll the same buffer through Fetch.
package stream
