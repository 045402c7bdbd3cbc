// Package notifications delivers run lifecycle alerts via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled, so the coordinator never needs to guard its notify calls.
package notifications
