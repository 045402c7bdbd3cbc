package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateCoordinator(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.QueueDir == "" {
		return errors.New("paths.queue_dir must be set")
	}
	if c.Paths.SocketPath == "" {
		return errors.New("paths.socket_path must be set")
	}
	if c.Paths.QueueDir == c.Paths.LogDir {
		return errors.New("paths.queue_dir and paths.log_dir must differ")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.MaintainScript == "" {
		return errors.New("worker.maintain_script must be set")
	}
	if c.Worker.PollInterval > 60 {
		return fmt.Errorf("worker.poll_interval %d exceeds 60 seconds; jobs would sit unclaimed", c.Worker.PollInterval)
	}
	return nil
}

func (c *Config) validateCoordinator() error {
	if c.Coordinator.StallTimeout < c.Coordinator.ResultPollInterval {
		return errors.New("coordinator.stall_timeout must be at least coordinator.result_poll_interval")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.TickInterval > 3600 {
		return fmt.Errorf("scheduler.tick_interval %d exceeds one hour; schedules would fire late", c.Scheduler.TickInterval)
	}
	return nil
}
