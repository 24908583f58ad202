package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"octowatch/internal/api"
	"octowatch/internal/config"
	"octowatch/internal/daemonctl"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 10 * time.Second
)

func newDaemonLifecycleCommands(ctx *commandContext) []*cobra.Command {
	var diagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, client, err := ctx.lifecycleClient()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, ctx.launchOptions(diagnostic), startWaitTimeout)
			if err != nil {
				return err
			}
			printStartResult(cmd, cfg, result)
			return nil
		},
	}
	startCmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Mirror DEBUG logs as JSON into log_dir/debug")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, client, err := ctx.lifecycleClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.Stop(cmd.Context(), client, cfg.Paths.StateDir, stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			printStopResult(cmd, result)
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the background daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, client, err := ctx.lifecycleClient()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.Restart(cmd.Context(), client, cfg.Paths.StateDir, exe, ctx.launchOptions(false), stopGracePeriod, startWaitTimeout)
			if err != nil {
				return err
			}
			if result.WasRunning {
				printStopResult(cmd, result.Stop)
			}
			printStartResult(cmd, cfg, result.Start)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd}
}

func (c *commandContext) lifecycleClient() (*config.Config, *api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := api.NewClient(cfg.APIBaseURL(), cfg.Paths.APIToken)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func (c *commandContext) launchOptions(diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic}
	if c.configExists {
		opts.ConfigPath = c.configPath
	}
	return opts
}

func printStartResult(cmd *cobra.Command, cfg *config.Config, result daemonctl.StartResult) {
	out := cmd.OutOrStdout()
	switch result.State {
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
	default:
		fmt.Fprintf(out, "Daemon started (pid %d), API on %s\n", result.PID, cfg.Paths.APIBind)
	}
}

func printStopResult(cmd *cobra.Command, result daemonctl.StopResult) {
	out := cmd.OutOrStdout()
	if result.ForcedKill {
		fmt.Fprintf(out, "Daemon did not exit in time; killed pid %d\n", result.PID)
		return
	}
	fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
}
