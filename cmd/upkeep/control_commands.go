package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"upkeep/internal/ipc"
)

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the currently executing operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.RunStatus(0)
				if err != nil {
					return err
				}
				if _, err := client.RunSkip(status.Run.Epoch); err != nil {
					return err
				}
				if status.Run.Current != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipping %s\n", status.Run.Current)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Skip requested")
				}
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active run after its current operation finishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.RunStatus(0)
				if err != nil {
					return err
				}
				if _, err := client.RunCancel(status.Run.Epoch); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cancel requested; the current operation will finish first")
				return nil
			})
		},
	}
}
