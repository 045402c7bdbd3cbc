package config

const (
	defaultQueueDir            = "/var/local/upkeep-jobs"
	defaultLogDir              = "~/.local/share/upkeep/logs"
	defaultStateDir            = "~/.local/share/upkeep/state"
	defaultSocketPath          = "~/.local/share/upkeep/upkeepd.sock"
	defaultMaintainScript      = "/usr/local/lib/upkeep/upkeep.sh"
	defaultWorkerPollInterval  = 2
	defaultOutputFlushInterval = 1
	defaultResultPollInterval  = 1
	defaultStallTimeout        = 120
	defaultEventBufferSize     = 4096
	defaultSchedulerTick       = 60
	defaultFireWindowTolerance = 5
	defaultNtfyTimeout         = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			QueueDir:   defaultQueueDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
			SocketPath: defaultSocketPath,
		},
		Worker: Worker{
			MaintainScript:      defaultMaintainScript,
			PollInterval:        defaultWorkerPollInterval,
			OutputFlushInterval: defaultOutputFlushInterval,
			RequireRoot:         true,
		},
		Coordinator: Coordinator{
			ResultPollInterval: defaultResultPollInterval,
			StallTimeout:       defaultStallTimeout,
			StopOnFailure:      false,
			EventBufferSize:    defaultEventBufferSize,
		},
		Scheduler: Scheduler{
			Enabled:             true,
			TickInterval:        defaultSchedulerTick,
			FireWindowTolerance: defaultFireWindowTolerance,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
