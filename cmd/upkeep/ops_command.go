package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"upkeep/internal/ipc"
)

func newOpsCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List the whitelisted maintenance operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Operations()
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(resp.Operations))
				for _, op := range resp.Operations {
					if category != "" && op.Category != category {
						continue
					}
					rows = append(rows, []string{
						op.ID,
						op.Name,
						op.Category,
						string(op.Safety),
						yesNo(op.RequiresElevation),
						op.ExpectedDuration.String(),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No operations match")
					return nil
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Category", "Safety", "Elevated", "Expected"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only show operations in this category")
	return cmd
}
