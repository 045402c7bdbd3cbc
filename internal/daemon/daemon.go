package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"upkeep/internal/config"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
	"upkeep/internal/ops"
	"upkeep/internal/runner"
	"upkeep/internal/schedule"
	"upkeep/internal/stream"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *jobqueue.Store
	schedules   *schedule.Store
	registry    *ops.Registry
	hub         *stream.Hub
	coordinator *runner.Coordinator
	scheduler   *schedule.Scheduler

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	tickDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDir     string
	LockFilePath string
	PendingJobs  int
	Run          runner.RunStatus
	HasRun       bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, err := jobqueue.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open job queue: %w", err)
	}
	schedules, err := schedule.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open schedule store: %w", err)
	}

	hub := stream.NewHub(cfg.Coordinator.EventBufferSize)
	coordinator := runner.NewCoordinator(cfg, store, hub, logger)

	d := &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		schedules:   schedules,
		registry:    ops.NewRegistry(),
		hub:         hub,
		coordinator: coordinator,
		lockPath:    filepath.Join(cfg.Paths.LogDir, "upkeepd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	if cfg.Scheduler.Enabled {
		d.scheduler = schedule.NewScheduler(cfg, schedules, coordinator, logger)
	}
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler when enabled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another upkeep daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.scheduler != nil {
		d.tickDone = make(chan struct{})
		go func() {
			defer close(d.tickDone)
			d.scheduler.Run(d.ctx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("upkeep daemon started",
		logging.String("lock", d.lockPath),
		logging.String("queue_dir", d.cfg.Paths.QueueDir),
		logging.Bool("scheduler", d.scheduler != nil))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.tickDone != nil {
		<-d.tickDone
		d.tickDone = nil
	}
	if status, ok := d.coordinator.Current(); ok && status.State == runner.StateRunning {
		if err := d.coordinator.Cancel(status.Epoch); err == nil {
			d.coordinator.Wait(status.Epoch)
		}
	}
	d.coordinator.Shutdown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("upkeep daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.schedules != nil {
		return d.schedules.Close()
	}
	return nil
}

// Coordinator exposes the run coordinator for control surfaces.
func (d *Daemon) Coordinator() *runner.Coordinator { return d.coordinator }

// Hub exposes the event hub for streaming consumers.
func (d *Daemon) Hub() *stream.Hub { return d.hub }

// Registry exposes the operation registry.
func (d *Daemon) Registry() *ops.Registry { return d.registry }

// Store exposes the job queue store.
func (d *Daemon) Store() *jobqueue.Store { return d.store }

// Schedules exposes the schedule store.
func (d *Daemon) Schedules() *schedule.Store { return d.schedules }

// Scheduler returns the recurring-run scheduler, nil when disabled.
func (d *Daemon) Scheduler() *schedule.Scheduler { return d.scheduler }

// Status reports current daemon runtime information.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDir:     d.cfg.Paths.QueueDir,
		LockFilePath: d.lockPath,
	}
	if pending, err := d.store.PendingJobs(); err == nil {
		status.PendingJobs = len(pending)
	}
	if run, ok := d.coordinator.Current(); ok {
		status.Run = run
		status.HasRun = true
	}
	return status
}
