package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"octowatch/internal/octoprint"
	"octowatch/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, disk space and printer reachability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var results []preflight.Result
			if offline {
				results = preflight.RunLocal(cfg)
			} else {
				client := octoprint.NewClient(time.Duration(cfg.Poll.RequestTimeout) * time.Second)
				results = preflight.RunAll(cmd.Context(), cfg, client)
			}

			if asJSON {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				fmt.Fprintf(out, "Config: %s\n", fallback(ctx.configPath, "(defaults)"))
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip printer reachability checks")
	return cmd
}
