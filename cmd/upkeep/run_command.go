package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"upkeep/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "run <operation>...",
		Short: "Start a maintenance run and stream its progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				started, err := client.RunStart(args)
				if err != nil {
					return fmt.Errorf("start run: %w", err)
				}
				if detach {
					fmt.Fprintf(cmd.OutOrStdout(), "Run started (epoch %d)\n", started.Epoch)
					return nil
				}
				return streamRun(cmd.Context(), cmd, client, started.Epoch)
			})
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "Start the run without streaming output")
	return cmd
}

// streamRun long-polls the daemon for run events until a terminal event
// arrives or the command context is cancelled. Cancelling the stream
// does not cancel the run.
func streamRun(ctx context.Context, cmd *cobra.Command, client *ipc.Client, epoch uint64) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	var since uint64
	for {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(out, "Detached from run; it continues in the daemon")
			return nil
		}
		resp, err := client.StreamFetch(ipc.StreamFetchRequest{
			Epoch:  epoch,
			Since:  since,
			WaitMS: 1000,
		})
		if err != nil {
			return fmt.Errorf("stream run: %w", err)
		}
		since = resp.Next
		for _, ev := range resp.Events {
			renderEvent(out, ev, colorize)
			if ev.Type.Terminal() {
				return nil
			}
		}
	}
}
