package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"octowatch/internal/api"
	"octowatch/internal/printers"
)

func newPrintersCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var local bool
	cmd := &cobra.Command{
		Use:   "printers",
		Short: "List registered printers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if local {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				return renderPrinters(cmd, api.FromPrinters(printers.FromConfig(cfg.Printers)), asJSON)
			}
			return ctx.withClient(func(client *api.Client) error {
				list, err := client.Printers(cmd.Context())
				if err != nil {
					return err
				}
				return renderPrinters(cmd, list, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "Read printers from the config file instead of the daemon")
	return cmd
}

func renderPrinters(cmd *cobra.Command, list []api.PrinterInfo, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, api.PrintersResponse{Printers: list})
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No printers configured")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{p.Name, p.ID, p.URL, yesNo(p.PushCapable), yesNo(p.Default)})
	}
	writeTable(out, []string{"Name", "ID", "URL", "Push", "Default"}, rows, nil)
	return nil
}
