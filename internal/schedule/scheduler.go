package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/logging"
)

// RunStarter starts a maintenance run; the scheduler fires schedules
// through it exactly like an interactive caller would.
type RunStarter interface {
	StartRun(operations []string) (uint64, error)
}

// Scheduler fires due schedules on a fixed tick.
type Scheduler struct {
	store   *Store
	starter RunStarter
	logger  *slog.Logger
	tick    time.Duration
}

// NewScheduler constructs a scheduler over the store and coordinator.
func NewScheduler(cfg *config.Config, store *Store, starter RunStarter, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	tick := time.Duration(cfg.Scheduler.TickInterval) * time.Second
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		store:   store,
		starter: starter,
		logger:  logger.With(logging.String(logging.FieldComponent, "scheduler")),
		tick:    tick,
	}
}

// Run ticks until the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.OnTick(ctx, now); err != nil {
				s.logger.Error("scheduler tick", logging.Error(err))
			}
		}
	}
}

// OnTick fires every enabled schedule whose next fire time has arrived
// and recomputes stale next fire times, including on disabled schedules
// so re-enabling one never fires a backlog. Schedules due on the same
// tick coalesce into a single run, since starting a second run would
// immediately supersede the first.
func (s *Scheduler) OnTick(ctx context.Context, now time.Time) error {
	defs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}

	type dueSchedule struct {
		def  Definition
		next time.Time
	}
	var due []dueSchedule
	var operations []string
	seen := make(map[string]bool)

	for _, def := range defs {
		if def.NextFire.IsZero() || def.NextFire.After(now) {
			continue
		}
		next, err := NextFire(def, now)
		if err != nil {
			s.logger.Error("compute next fire",
				logging.String(logging.FieldScheduleID, def.ID),
				logging.Error(err))
			continue
		}

		if !def.Enabled {
			if err := s.store.SetNextFire(ctx, def.ID, next); err != nil {
				s.logger.Error("advance disabled schedule",
					logging.String(logging.FieldScheduleID, def.ID),
					logging.Error(err))
			}
			continue
		}

		due = append(due, dueSchedule{def: def, next: next})
		for _, op := range def.Operations {
			if !seen[op] {
				seen[op] = true
				operations = append(operations, op)
			}
		}
	}
	if len(due) == 0 {
		return nil
	}

	epoch, err := s.starter.StartRun(operations)
	if err != nil {
		return fmt.Errorf("fire %d due schedules: %w", len(due), err)
	}
	for _, d := range due {
		s.logger.Info("schedule fired",
			logging.String(logging.FieldScheduleID, d.def.ID),
			logging.String("name", d.def.Name),
			logging.Uint64(logging.FieldEpoch, epoch))
		if err := s.store.MarkFired(ctx, d.def.ID, now, d.next); err != nil {
			s.logger.Error("mark schedule fired",
				logging.String(logging.FieldScheduleID, d.def.ID),
				logging.Error(err))
		}
	}
	return nil
}

// RunNow fires a schedule immediately without touching its recurrence.
func (s *Scheduler) RunNow(ctx context.Context, id string) (uint64, error) {
	def, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	epoch, err := s.starter.StartRun(def.Operations)
	if err != nil {
		return 0, fmt.Errorf("start run for schedule %s: %w", def.Name, err)
	}
	s.logger.Info("schedule run on demand",
		logging.String(logging.FieldScheduleID, def.ID),
		logging.String("name", def.Name),
		logging.Uint64(logging.FieldEpoch, epoch))
	return epoch, nil
}
