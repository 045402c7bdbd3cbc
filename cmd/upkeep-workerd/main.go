// Command upkeep-workerd is the privileged worker daemon. It claims
// jobs from the queue directory, executes the maintenance script, and
// writes result records. It holds no IPC surface; the queue directory
// is its only interface.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"upkeep/internal/config"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
	"upkeep/internal/ops"
	"upkeep/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg, "upkeep-workerd")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "upkeep-workerd.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		logger.Error("acquire worker lock", logging.Error(err))
		return
	}
	if !ok {
		logger.Error("another worker instance is already running",
			logging.String("lock", lockPath))
		return
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := jobqueue.Open(cfg, logger)
	if err != nil {
		logger.Error("open job queue", logging.Error(err))
		return
	}

	w := worker.New(cfg, store, ops.NewRegistry(), nil, logger)
	logger.Info("upkeep worker started",
		logging.String("queue_dir", cfg.Paths.QueueDir),
		logging.String("script", cfg.Worker.MaintainScript))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker run", logging.Error(err))
		return
	}
	logger.Info("upkeep worker stopped")
}
