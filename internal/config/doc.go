// Package config loads, normalizes, and validates upkeep configuration.
//
// Configuration lives in a single TOML file. Load applies defaults first,
// then file values, then normalization (path expansion, trimming, interval
// floors) and validation. All path fields on a loaded Config are absolute.
package config
