package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"upkeep/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			written, err := config.CreateSample(target)
			if err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", written)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit the file to point maintain_script at your maintenance script.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Configuration file: %s\n", path)
			} else {
				fmt.Fprintln(out, "No configuration file found; showing defaults")
			}

			rows := [][]string{
				{"queue_dir", cfg.Paths.QueueDir},
				{"log_dir", cfg.Paths.LogDir},
				{"state_dir", cfg.Paths.StateDir},
				{"socket_path", cfg.Paths.SocketPath},
				{"maintain_script", cfg.Worker.MaintainScript},
				{"poll_interval", fmt.Sprintf("%ds", cfg.Worker.PollInterval)},
				{"require_root", yesNo(cfg.Worker.RequireRoot)},
				{"result_poll_interval", fmt.Sprintf("%ds", cfg.Coordinator.ResultPollInterval)},
				{"stall_timeout", fmt.Sprintf("%ds", cfg.Coordinator.StallTimeout)},
				{"stop_on_failure", yesNo(cfg.Coordinator.StopOnFailure)},
				{"event_buffer_size", fmt.Sprintf("%d", cfg.Coordinator.EventBufferSize)},
				{"scheduler.enabled", yesNo(cfg.Scheduler.Enabled)},
				{"scheduler.tick_interval", fmt.Sprintf("%ds", cfg.Scheduler.TickInterval)},
				{"scheduler.fire_window_tolerance", fmt.Sprintf("%dm", cfg.Scheduler.FireWindowTolerance)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, nil))

			if _, err := os.Stat(cfg.Worker.MaintainScript); err != nil {
				fmt.Fprintf(out, "warning: maintain_script not found at %s\n", cfg.Worker.MaintainScript)
			}
			return nil
		},
	}
}
