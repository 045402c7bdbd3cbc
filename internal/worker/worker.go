package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"upkeep/internal/config"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
	"upkeep/internal/ops"
)

// ErrPrivilegesRequired indicates the worker was started without root
// privileges while the configuration demands them.
var ErrPrivilegesRequired = errors.New("worker: root privileges required")

// Worker polls the queue directory and executes claimed jobs one at a
// time.
type Worker struct {
	store         *jobqueue.Store
	registry      *ops.Registry
	runner        Runner
	logger        *slog.Logger
	pollInterval  time.Duration
	flushInterval time.Duration
	requireRoot   bool
}

// New constructs a worker. A nil runner defaults to the script runner
// for the configured maintenance script.
func New(cfg *config.Config, store *jobqueue.Store, registry *ops.Registry, runner Runner, logger *slog.Logger) *Worker {
	if runner == nil {
		runner = &ScriptRunner{Script: cfg.Worker.MaintainScript}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.Worker.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	flushInterval := time.Duration(cfg.Worker.OutputFlushInterval) * time.Second
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	return &Worker{
		store:         store,
		registry:      registry,
		runner:        runner,
		logger:        logger.With(logging.String(logging.FieldComponent, "worker")),
		pollInterval:  pollInterval,
		flushInterval: flushInterval,
		requireRoot:   cfg.Worker.RequireRoot,
	}
}

// Run recovers interrupted claims, then polls for jobs until the context
// ends. Jobs execute strictly one at a time.
func (w *Worker) Run(ctx context.Context) error {
	if w.requireRoot && unix.Geteuid() != 0 {
		return ErrPrivilegesRequired
	}

	recovered, err := w.store.RecoverIncomplete()
	if err != nil {
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if len(recovered) > 0 {
		w.logger.Warn("finalized interrupted jobs from previous run",
			logging.Int("count", len(recovered)))
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drainQueue(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drainQueue claims and executes pending jobs until the queue is empty
// or the context ends.
func (w *Worker) drainQueue(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := w.store.Poll()
		if errors.Is(err, jobqueue.ErrNotQueued) {
			return
		}
		if err != nil {
			w.logger.Error("poll queue", logging.Error(err))
			return
		}
		claimed, err := w.store.Claim(job.ID)
		if errors.Is(err, jobqueue.ErrAlreadyClaimed) || errors.Is(err, jobqueue.ErrNotQueued) {
			continue
		}
		if err != nil {
			w.logger.Error("claim job",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			return
		}
		w.execute(claimed)
	}
}

// execute runs one claimed job through validation and execution and
// always leaves a terminal result record behind.
func (w *Worker) execute(job jobqueue.JobDescriptor) {
	logger := w.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldOperation, job.OperationID))

	rw := newResultWriter(w.store, job)

	def, err := w.registry.Lookup(job.OperationID)
	if err != nil {
		logger.Error("rejected unknown operation", logging.Error(err))
		if err := rw.finalize(jobqueue.OutcomeRejected, -1, fmt.Sprintf("operation not allowed: %s", job.OperationID)); err != nil {
			logger.Error("write rejection result", logging.Error(err))
		}
		w.removeClaim(job.ID, logger)
		return
	}

	logger.Info("executing operation",
		logging.String("category", def.Category),
		logging.Bool("destructive", def.Safety == ops.SafetyDestructive))

	if err := rw.start(); err != nil {
		logger.Error("write initial result", logging.Error(err))
		w.removeClaim(job.ID, logger)
		return
	}

	flushCtx, stopFlush := context.WithCancel(context.Background())
	var flushDone sync.WaitGroup
	flushDone.Add(1)
	go func() {
		defer flushDone.Done()
		ticker := time.NewTicker(w.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-flushCtx.Done():
				return
			case <-ticker.C:
				if err := rw.flush(); err != nil {
					logger.Error("flush output", logging.Error(err))
				}
			}
		}
	}()

	started := time.Now()
	// The runner context is detached from the worker's: shutdown must
	// never kill a privileged command mid-flight. Cancellation only
	// stops further claims, and Run drains this job before returning.
	exitStatus, runErr := w.runner.Run(context.Background(), def, rw.appendLine)
	stopFlush()
	flushDone.Wait()

	elapsed := time.Since(started)
	if def.ExpectedDuration > 0 && elapsed > def.ExpectedDuration {
		logger.Warn("operation overran expected duration",
			logging.Duration("elapsed", elapsed),
			logging.Duration("expected", def.ExpectedDuration))
	}

	switch {
	case runErr != nil:
		logger.Error("operation failed to run", logging.Error(runErr))
		if err := rw.finalize(jobqueue.OutcomeFailure, exitStatus, runErr.Error()); err != nil {
			logger.Error("write failure result", logging.Error(err))
		}
	case exitStatus == 0:
		logger.Info("operation succeeded", logging.Duration("elapsed", elapsed))
		if err := rw.finalize(jobqueue.OutcomeSuccess, 0, ""); err != nil {
			logger.Error("write success result", logging.Error(err))
		}
	default:
		logger.Warn("operation failed",
			logging.Int("exit_status", exitStatus),
			logging.Duration("elapsed", elapsed))
		if err := rw.finalize(jobqueue.OutcomeFailure, exitStatus, ""); err != nil {
			logger.Error("write failure result", logging.Error(err))
		}
	}
	w.removeClaim(job.ID, logger)
}

func (w *Worker) removeClaim(jobID string, logger *slog.Logger) {
	if err := w.store.RemoveClaim(jobID); err != nil {
		logger.Error("remove claim", logging.Error(err))
	}
}

// resultWriter accumulates output lines and rewrites the result record
// whole on every flush. All writes bump the revision so tailers observe
// growth.
type resultWriter struct {
	store *jobqueue.Store

	mu     sync.Mutex
	result jobqueue.ResultDescriptor
	dirty  bool
	final  bool
}

func newResultWriter(store *jobqueue.Store, job jobqueue.JobDescriptor) *resultWriter {
	return &resultWriter{
		store: store,
		result: jobqueue.ResultDescriptor{
			JobID:       job.ID,
			OperationID: job.OperationID,
			StartedAt:   time.Now().UTC(),
		},
	}
}

// start writes the first revision so tailers see the job executing.
func (rw *resultWriter) start() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.writeLocked()
}

func (rw *resultWriter) appendLine(streamTag, text string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.final {
		return
	}
	rw.result.Lines = append(rw.result.Lines, jobqueue.OutputLine{Stream: streamTag, Text: text})
	rw.dirty = true
}

func (rw *resultWriter) flush() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.dirty || rw.final {
		return nil
	}
	return rw.writeLocked()
}

func (rw *resultWriter) finalize(outcome jobqueue.Outcome, exitStatus int, errMsg string) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.final {
		return jobqueue.ErrResultFinal
	}
	rw.result.Outcome = outcome
	rw.result.ExitStatus = exitStatus
	rw.result.Error = errMsg
	rw.result.CompletedAt = time.Now().UTC()
	rw.final = true
	return rw.writeLocked()
}

func (rw *resultWriter) writeLocked() error {
	rw.result.Revision++
	if err := rw.store.WriteResult(rw.result); err != nil {
		rw.result.Revision--
		return err
	}
	rw.dirty = false
	return nil
}
