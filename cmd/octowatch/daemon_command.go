package main

import (
	"github.com/spf13/cobra"

	"octowatch/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	var logLevel string
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the octowatch daemon in the foreground",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := daemonrun.Options{
				LogLevel:   logLevel,
				Diagnostic: diagnostic,
			}
			if ctx.configExists {
				opts.ConfigPath = ctx.configPath
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Mirror DEBUG logs as JSON into log_dir/debug")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")
	return cmd
}
