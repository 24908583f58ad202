package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"octowatch/internal/logging"
	"octowatch/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()

			tail, offset, err := logs.LastLines(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new lines")
	return cmd
}
