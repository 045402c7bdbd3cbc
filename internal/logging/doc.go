// Package logging builds slog loggers for upkeep processes and defines the
// standardized attribute vocabulary shared across packages.
//
// Two output formats are supported: "console" for interactive use and
// "json" for machine consumption. Field name constants keep structured
// output greppable across the coordinator, worker, and scheduler.
package logging
