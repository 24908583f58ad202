package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "octowatch",
		Short:         "OctoPrint job watcher and notifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newDaemonCommand(ctx))
	rootCmd.AddCommand(newDaemonLifecycleCommands(ctx)...)
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPrintersCommand(ctx))
	rootCmd.AddCommand(newPollCommand(ctx))
	rootCmd.AddCommand(newPushCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
