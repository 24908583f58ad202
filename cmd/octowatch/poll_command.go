package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"octowatch/internal/api"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one background poll of the default printer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *api.Client) error {
				outcome, err := client.Poll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Poll outcome: %s\n", outcome)
				return nil
			})
		},
	}
}
