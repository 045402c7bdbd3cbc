package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"upkeep/internal/daemonctl"
	"upkeep/internal/ipc"
	"upkeep/internal/runner"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and run status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			reachable, _, err := daemonctl.ProcessInfo(ctx.socketPath())
			if err != nil || !reachable {
				fmt.Fprintln(out, paint(ansiYellow, "Daemon: not running", colorize))
				if err != nil {
					fmt.Fprintf(out, "  %v\n", err)
				}
				return nil
			}

			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.DaemonStatus()
				if err != nil {
					return err
				}

				fmt.Fprintln(out, paint(ansiGreen, "Daemon: running", colorize))
				fmt.Fprintln(out, renderTable(
					[]string{"Field", "Value"},
					[][]string{
						{"PID", fmt.Sprintf("%d", status.PID)},
						{"Queue dir", status.QueueDir},
						{"Lock file", status.LockFilePath},
						{"Pending jobs", fmt.Sprintf("%d", status.PendingJobs)},
					},
					nil,
				))

				if !status.HasRun {
					fmt.Fprintln(out, "No maintenance run yet")
					return nil
				}
				renderRunStatus(cmd, status.Run, colorize)
				return nil
			})
		},
	}
}

func renderRunStatus(cmd *cobra.Command, run ipc.RunStatus, colorize bool) {
	out := cmd.OutOrStdout()

	state := string(run.State)
	color := ansiBlue
	switch run.State {
	case runner.StateCompleted:
		color = ansiGreen
	case runner.StateCancelled:
		color = ansiYellow
	}
	fmt.Fprintln(out, paint(color, fmt.Sprintf("Run %d: %s", run.Epoch, state), colorize))

	rows := [][]string{
		{"Correlation", run.CorrelationID},
		{"Started", run.StartedAt.Format("2006-01-02 15:04:05")},
		{"Progress", fmt.Sprintf("%d/%d", run.Index, len(run.Operations))},
	}
	if run.Current != "" {
		rows = append(rows, []string{"Current", run.Current})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	if run.State != runner.StateRunning {
		fmt.Fprintln(out, renderSummary(run.Summary, colorize))
	}
}
