package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeCoordinator()
	c.normalizeScheduler()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.QueueDir) == "" {
		c.Paths.QueueDir = defaultQueueDir
	}
	if c.Paths.QueueDir, err = expandPath(c.Paths.QueueDir); err != nil {
		return fmt.Errorf("paths.queue_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorker() {
	c.Worker.MaintainScript = strings.TrimSpace(c.Worker.MaintainScript)
	if c.Worker.MaintainScript == "" {
		c.Worker.MaintainScript = defaultMaintainScript
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = defaultWorkerPollInterval
	}
	if c.Worker.OutputFlushInterval <= 0 {
		c.Worker.OutputFlushInterval = defaultOutputFlushInterval
	}
}

func (c *Config) normalizeCoordinator() {
	if c.Coordinator.ResultPollInterval <= 0 {
		c.Coordinator.ResultPollInterval = defaultResultPollInterval
	}
	if c.Coordinator.StallTimeout <= 0 {
		c.Coordinator.StallTimeout = defaultStallTimeout
	}
	if c.Coordinator.EventBufferSize <= 0 {
		c.Coordinator.EventBufferSize = defaultEventBufferSize
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.TickInterval <= 0 {
		c.Scheduler.TickInterval = defaultSchedulerTick
	}
	if c.Scheduler.FireWindowTolerance < 0 {
		c.Scheduler.FireWindowTolerance = defaultFireWindowTolerance
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
