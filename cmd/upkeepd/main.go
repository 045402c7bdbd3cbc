// Command upkeepd is the unprivileged coordinator daemon: it owns the
// run coordinator, the event stream, the scheduler, and the IPC control
// socket. The privileged worker runs separately as upkeep-workerd.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"upkeep/internal/config"
	"upkeep/internal/daemon"
	"upkeep/internal/ipc"
	"upkeep/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	socketPath := flag.String("socket", "", "override IPC socket path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *socketPath != "" {
		cfg.Paths.SocketPath = *socketPath
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg, "upkeepd")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg, d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("upkeepd shutting down")
}
