// Package logs reads the daemon log file back for the CLI.
//
// The daemon serves tail requests over its control socket so `upkeep
// logs` works without read access to the log directory. Reads are
// offset-based with bounded memory, support "last N lines" via a
// negative offset, and can poll briefly for new lines in follow mode.
package logs
