package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"upkeep/internal/config"
	"upkeep/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesProcessLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg, "upkeepd-test")
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("hello", logging.String(logging.FieldComponent, "test"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "upkeepd-test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("log file missing record: %s", data)
	}
}

func TestComponentLoggerTolerantOfNil(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "scheduler")
	// Must not panic.
	logger.Info("noop")
}
