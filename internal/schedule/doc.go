// Package schedule persists recurring maintenance schedules and fires
// them through the run coordinator. Schedules live in a small SQLite
// database; fire times are wall-clock local times recomputed after
// every fire and on every tick so disabled schedules stay current too.
package schedule
