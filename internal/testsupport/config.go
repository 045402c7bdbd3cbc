package testsupport

import (
	"path/filepath"
	"testing"

	"upkeep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Polling intervals are zeroed so waits fall back to their fast defaults.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.QueueDir = filepath.Join(base, "jobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.SocketPath = filepath.Join(base, "upkeep.sock")
	cfg.Worker.PollInterval = 0
	cfg.Worker.RequireRoot = false
	cfg.Coordinator.ResultPollInterval = 0
	cfg.Scheduler.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaintainScript overrides the worker maintenance script path.
func WithMaintainScript(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Worker.MaintainScript = path
	}
}

// WithStopOnFailure sets the coordinator batch failure policy.
func WithStopOnFailure(stop bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Coordinator.StopOnFailure = stop
	}
}
