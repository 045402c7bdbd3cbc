package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
)

// Tailer follows a job's result record and republishes its growth as
// output-line events. The worker rewrites the record whole on every
// flush, so the tailer tracks how many lines it has already emitted and
// publishes only the suffix.
type Tailer struct {
	store        *jobqueue.Store
	hub          *Hub
	stallTimeout time.Duration
	logger       *slog.Logger
}

// NewTailer constructs a result tailer. A stallTimeout of zero disables
// the worker-stalled advisory.
func NewTailer(store *jobqueue.Store, hub *Hub, stallTimeout time.Duration, logger *slog.Logger) *Tailer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tailer{
		store:        store,
		hub:          hub,
		stallTimeout: stallTimeout,
		logger:       logger.With(logging.String(logging.FieldComponent, "stream")),
	}
}

// Follow blocks until the job's result reaches a terminal outcome,
// publishing an output-line event for every new captured line. When no
// revision growth is observed within the stall timeout a worker-stalled
// advisory is published and waiting continues; the worker is never
// interrupted. Cancelling the context abandons the wait without
// touching the job.
func (t *Tailer) Follow(ctx context.Context, epoch uint64, job jobqueue.JobDescriptor) (jobqueue.ResultDescriptor, error) {
	var (
		lastRevision uint64
		linesSent    int
		stalled      bool
	)

	for {
		waitCtx := ctx
		cancel := func() {}
		if t.stallTimeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, t.stallTimeout)
		}
		result, err := t.store.AwaitResult(waitCtx, job.ID, lastRevision)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				if !stalled {
					stalled = true
					t.hub.Publish(Event{
						Epoch:       epoch,
						Type:        EventWorkerStalled,
						OperationID: job.OperationID,
						Message:     "no worker progress within stall timeout",
					})
					t.logger.Warn("worker stalled",
						logging.String(logging.FieldJobID, job.ID),
						logging.String(logging.FieldOperation, job.OperationID))
				}
				continue
			}
			return jobqueue.ResultDescriptor{}, err
		}

		stalled = false
		lastRevision = result.Revision
		for ; linesSent < len(result.Lines); linesSent++ {
			line := result.Lines[linesSent]
			t.hub.Publish(Event{
				Epoch:       epoch,
				Type:        EventOutputLine,
				OperationID: job.OperationID,
				Stream:      line.Stream,
				Text:        line.Text,
			})
		}

		if result.Final() {
			return result, nil
		}
	}
}
