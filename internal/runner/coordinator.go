package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"upkeep/internal/config"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
	"upkeep/internal/notifications"
	"upkeep/internal/stream"
)

// State describes a run's lifecycle phase.
type State string

const (
	StateRunning   State = "running"
	StateCancelled State = "cancelled"
	StateCompleted State = "completed"
)

var (
	// ErrSuperseded indicates the epoch no longer identifies the current run.
	ErrSuperseded = errors.New("runner: run superseded")
	// ErrNoRun indicates no run has been started yet.
	ErrNoRun = errors.New("runner: no active run")
	// ErrNotRunning indicates the run already reached a terminal state.
	ErrNotRunning = errors.New("runner: run is not running")
	// ErrNoOperations indicates StartRun was called with an empty batch.
	ErrNoOperations = errors.New("runner: no operations requested")
)

// RunStatus is a point-in-time snapshot of a run.
type RunStatus struct {
	Epoch         uint64         `json:"epoch"`
	CorrelationID string         `json:"correlation_id"`
	Operations    []string       `json:"operations"`
	Index         int            `json:"index"`
	Current       string         `json:"current,omitempty"`
	State         State          `json:"state"`
	Summary       stream.Summary `json:"summary"`
	StartedAt     time.Time      `json:"started_at"`
}

type run struct {
	epoch         uint64
	correlationID string
	operations    []string
	index         int
	state         State
	summary       stream.Summary
	startedAt     time.Time
	cancelled     bool
	superseded    bool
	stop          context.CancelFunc
	skipCurrent   context.CancelFunc
	done          chan struct{}
}

// Coordinator drives runs against the job queue and publishes their
// lifecycle to the stream hub.
type Coordinator struct {
	store         *jobqueue.Store
	hub           *stream.Hub
	tailer        *stream.Tailer
	history       *History
	notifier      notifications.Service
	logger        *slog.Logger
	stopOnFailure bool

	mu      sync.Mutex
	epoch   uint64
	current *run
}

// NewCoordinator constructs a run coordinator.
func NewCoordinator(cfg *config.Config, store *jobqueue.Store, hub *stream.Hub, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	stall := time.Duration(cfg.Coordinator.StallTimeout) * time.Second
	return &Coordinator{
		store:         store,
		hub:           hub,
		tailer:        stream.NewTailer(store, hub, stall, logger),
		history:       NewHistory(cfg.Paths.StateDir),
		notifier:      notifications.NewService(cfg),
		logger:        logger.With(logging.String(logging.FieldComponent, "runner")),
		stopOnFailure: cfg.Coordinator.StopOnFailure,
	}
}

// Hub exposes the event hub for stream consumers.
func (c *Coordinator) Hub() *stream.Hub {
	return c.hub
}

// History exposes recorded operation durations.
func (c *Coordinator) History() *History {
	return c.history
}

// StartRun begins a new run over the operations and returns its epoch.
// Any run still in progress is superseded: its loop stops, its
// subscriber receives a terminal superseded event, and its in-flight
// operation is left to finish on the worker.
func (c *Coordinator) StartRun(operations []string) (uint64, error) {
	if len(operations) == 0 {
		return 0, ErrNoOperations
	}

	c.mu.Lock()
	if prior := c.current; prior != nil && prior.state == StateRunning {
		prior.superseded = true
		prior.state = StateCancelled
		prior.stop()
	}
	c.epoch++
	runCtx, stop := context.WithCancel(context.Background())
	r := &run{
		epoch:         c.epoch,
		correlationID: uuid.NewString(),
		operations:    append([]string(nil), operations...),
		state:         StateRunning,
		startedAt:     time.Now().UTC(),
		stop:          stop,
		done:          make(chan struct{}),
	}
	r.summary.Total = len(r.operations)
	c.current = r
	// Attaching the new epoch's push subscriber delivers the terminal
	// superseded event to the prior run's watcher and closes it.
	events := c.hub.Subscribe(r.epoch)
	c.mu.Unlock()

	c.logger.Info("run started",
		logging.Uint64(logging.FieldEpoch, r.epoch),
		logging.String("correlation_id", r.correlationID),
		logging.Int("operations", len(r.operations)))

	go c.runLoop(runCtx, r)
	go c.watchEvents(events)
	return r.epoch, nil
}

// SkipCurrent stops waiting on the run's in-flight operation and
// advances to the next one. The worker's command is not touched.
func (c *Coordinator) SkipCurrent(epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.lookupLocked(epoch)
	if err != nil {
		return err
	}
	if r.state != StateRunning {
		return ErrNotRunning
	}
	if r.skipCurrent != nil {
		r.skipCurrent()
	}
	return nil
}

// Cancel stops the run after its in-flight operation completes. Nothing
// already executing is interrupted.
func (c *Coordinator) Cancel(epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.lookupLocked(epoch)
	if err != nil {
		return err
	}
	if r.state != StateRunning {
		return ErrNotRunning
	}
	r.cancelled = true
	return nil
}

// Status reports the run's current snapshot. Stale epochs always get
// ErrSuperseded even if the run they identify never finished.
func (c *Coordinator) Status(epoch uint64) (RunStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.lookupLocked(epoch)
	if err != nil {
		return RunStatus{}, err
	}
	status := RunStatus{
		Epoch:         r.epoch,
		CorrelationID: r.correlationID,
		Operations:    append([]string(nil), r.operations...),
		Index:         r.index,
		State:         r.state,
		Summary:       r.summary,
		StartedAt:     r.startedAt,
	}
	if r.state == StateRunning && r.index < len(r.operations) {
		status.Current = r.operations[r.index]
	}
	return status, nil
}

// Current returns the newest run's status. The boolean is false when no
// run has been started.
func (c *Coordinator) Current() (RunStatus, bool) {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return RunStatus{}, false
	}
	status, err := c.Status(r.epoch)
	if err != nil {
		return RunStatus{}, false
	}
	return status, true
}

// Wait blocks until the run's loop has exited. Intended for tests and
// orderly shutdown.
func (c *Coordinator) Wait(epoch uint64) {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil || r.epoch != epoch {
		return
	}
	<-r.done
}

// Shutdown detaches the current run's push watcher. A run that reached
// its terminal event has already been detached; this covers stopping
// the daemon while a watcher is still attached.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r != nil {
		c.hub.Unsubscribe(r.epoch)
	}
}

func (c *Coordinator) lookupLocked(epoch uint64) (*run, error) {
	if c.current == nil {
		return nil, ErrNoRun
	}
	if epoch != c.current.epoch {
		return nil, ErrSuperseded
	}
	return c.current, nil
}

func (c *Coordinator) runLoop(ctx context.Context, r *run) {
	defer close(r.done)

	logger := c.logger.With(
		logging.Uint64(logging.FieldEpoch, r.epoch),
		logging.String("correlation_id", r.correlationID))

	c.hub.Publish(stream.Event{
		Epoch: r.epoch,
		Type:  stream.EventRunStart,
		Total: len(r.operations),
	})

	for i, operationID := range r.operations {
		c.mu.Lock()
		r.index = i
		stopped := r.cancelled || r.superseded
		c.mu.Unlock()
		if stopped || ctx.Err() != nil {
			break
		}

		c.hub.Publish(stream.Event{
			Epoch:       r.epoch,
			Type:        stream.EventOperationStart,
			OperationID: operationID,
			Position:    i + 1,
			Total:       len(r.operations),
		})

		job, err := c.store.Enqueue(jobqueue.JobDescriptor{
			OperationID: operationID,
			Epoch:       r.epoch,
		})
		if err != nil {
			logger.Error("enqueue operation",
				logging.String(logging.FieldOperation, operationID),
				logging.Error(err))
			c.record(r, jobqueue.OutcomeFailure)
			c.hub.Publish(stream.Event{
				Epoch:       r.epoch,
				Type:        stream.EventOperationComplete,
				OperationID: operationID,
				ExitStatus:  -1,
				Message:     err.Error(),
			})
			if c.stopOnFailure {
				break
			}
			continue
		}

		skipCtx, skip := context.WithCancel(ctx)
		c.mu.Lock()
		r.skipCurrent = skip
		c.mu.Unlock()

		opStarted := time.Now()
		result, err := c.tailer.Follow(skipCtx, r.epoch, job)
		skip()
		c.mu.Lock()
		r.skipCurrent = nil
		c.mu.Unlock()

		if err != nil {
			if ctx.Err() != nil {
				// run superseded; the worker finishes the command alone
				break
			}
			logger.Info("operation skipped",
				logging.String(logging.FieldOperation, operationID))
			c.record(r, jobqueue.OutcomeSkipped)
			c.hub.Publish(stream.Event{
				Epoch:       r.epoch,
				Type:        stream.EventOperationSkipped,
				OperationID: operationID,
			})
			continue
		}

		c.record(r, result.Outcome)
		success := result.Outcome == jobqueue.OutcomeSuccess
		c.hub.Publish(stream.Event{
			Epoch:       r.epoch,
			Type:        stream.EventOperationComplete,
			OperationID: operationID,
			Success:     success,
			ExitStatus:  result.ExitStatus,
			Message:     result.Error,
		})
		logger.Info("operation finished",
			logging.String(logging.FieldOperation, operationID),
			logging.String(logging.FieldOutcome, string(result.Outcome)),
			logging.Int("exit_status", result.ExitStatus))

		if success {
			if err := c.history.Record(operationID, time.Since(opStarted)); err != nil {
				logger.Warn("record operation duration", logging.Error(err))
			}
		}
		if !success && c.stopOnFailure {
			logger.Warn("stopping run on first failure")
			break
		}
	}

	c.mu.Lock()
	superseded := r.superseded
	if r.state == StateRunning {
		if r.cancelled {
			r.state = StateCancelled
		} else {
			r.state = StateCompleted
		}
	}
	summary := r.summary
	c.mu.Unlock()

	if superseded {
		return
	}

	c.hub.Publish(stream.Event{
		Epoch:   r.epoch,
		Type:    stream.EventRunSummary,
		Summary: &summary,
	})
	c.hub.Publish(stream.Event{
		Epoch: r.epoch,
		Type:  stream.EventRunComplete,
	})
	logger.Info("run finished",
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("incomplete", summary.Incomplete))
}

// watchEvents drives push notifications from the run's event feed. The
// hub closes the channel on the run's terminal event, so exactly one
// watcher lives per epoch and a superseded run's watcher exits without
// sending a completion notice.
func (c *Coordinator) watchEvents(events <-chan stream.Event) {
	var startedAt time.Time
	var summary stream.Summary
	for evt := range events {
		switch evt.Type {
		case stream.EventRunStart:
			startedAt = evt.Timestamp
			if err := c.notifier.NotifyRunStarted(context.Background(), evt.Total); err != nil {
				c.logger.Warn("notify run started", logging.Error(err))
			}
		case stream.EventOperationComplete:
			if evt.Success {
				continue
			}
			if err := c.notifier.NotifyOperationFailed(context.Background(), evt.OperationID, evt.ExitStatus); err != nil {
				c.logger.Warn("notify operation failed", logging.Error(err))
			}
		case stream.EventWorkerStalled:
			if err := c.notifier.NotifyWorkerStalled(context.Background(), evt.OperationID); err != nil {
				c.logger.Warn("notify worker stalled", logging.Error(err))
			}
		case stream.EventRunSummary:
			if evt.Summary != nil {
				summary = *evt.Summary
			}
		case stream.EventRunComplete:
			if err := c.notifier.NotifyRunCompleted(context.Background(), summary, evt.Timestamp.Sub(startedAt)); err != nil {
				c.logger.Warn("notify run completed", logging.Error(err))
			}
		}
	}
}

func (c *Coordinator) record(r *run, outcome jobqueue.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch outcome {
	case jobqueue.OutcomeSuccess:
		r.summary.Succeeded++
	case jobqueue.OutcomeSkipped:
		r.summary.Skipped++
	case jobqueue.OutcomeIncomplete:
		r.summary.Incomplete++
	default:
		r.summary.Failed++
	}
}
