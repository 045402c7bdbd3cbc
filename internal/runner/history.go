package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"upkeep/internal/fileutil"
)

const historyKeep = 5

// History persists recent per-operation durations so the CLI can show
// expected run times. Only the newest few samples per operation are
// kept.
type History struct {
	mu      sync.Mutex
	path    string
	seconds map[string][]float64
	loaded  bool
}

// NewHistory returns a history backed by operation_history.json in the
// given directory. The file is created on first record.
func NewHistory(stateDir string) *History {
	return &History{
		path:    filepath.Join(stateDir, "operation_history.json"),
		seconds: make(map[string][]float64),
	}
}

// Record appends a duration sample for the operation and flushes to disk.
func (h *History) Record(operationID string, elapsed time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.loadLocked(); err != nil {
		return err
	}

	samples := append(h.seconds[operationID], elapsed.Seconds())
	if len(samples) > historyKeep {
		samples = samples[len(samples)-historyKeep:]
	}
	h.seconds[operationID] = samples
	return h.saveLocked()
}

// Average returns the mean recorded duration for the operation. The
// boolean is false when no samples exist.
func (h *History) Average(operationID string) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.loadLocked(); err != nil {
		return 0, false
	}
	samples := h.seconds[operationID]
	if len(samples) == 0 {
		return 0, false
	}
	var total float64
	for _, s := range samples {
		total += s
	}
	return time.Duration(total / float64(len(samples)) * float64(time.Second)), true
}

func (h *History) loadLocked() error {
	if h.loaded {
		return nil
	}
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		h.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if err := json.Unmarshal(data, &h.seconds); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	if h.seconds == nil {
		h.seconds = make(map[string][]float64)
	}
	h.loaded = true
	return nil
}

func (h *History) saveLocked() error {
	data, err := json.MarshalIndent(h.seconds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := fileutil.WriteAtomic(h.path, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
