package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"octowatch/internal/api"
)

type statusOutput struct {
	Daemon  api.DaemonStatus  `json:"daemon"`
	Records []api.StateRecord `json:"records"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and tracked printer state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				records, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, statusOutput{Daemon: status, Records: records})
				}
				renderStatus(cmd, status, records)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, status api.DaemonStatus, records []api.StateRecord) {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runKind := statusOK
	if !status.Running {
		runKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Running", runKind, fmt.Sprintf("%s (pid %d)", yesNo(status.Running), status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, fallback(status.StartedAt, "-"), colorize))
	fmt.Fprintln(out, renderStatusLine("Printers", statusInfo, strconv.Itoa(status.Printers), colorize))
	fmt.Fprintln(out, renderStatusLine("Live stream", statusInfo, yesNo(status.StreamEnabled), colorize))

	pollKind := statusInfo
	switch status.LastOutcome {
	case "newData":
		pollKind = statusOK
	case "failed":
		pollKind = statusWarn
	}
	pollMessage := "never"
	if status.LastPoll != "" {
		pollMessage = fmt.Sprintf("%s (%s)", status.LastPoll, status.LastOutcome)
	}
	fmt.Fprintln(out, renderStatusLine("Last poll", pollKind, pollMessage, colorize))
	fmt.Fprintln(out, renderStatusLine("Journal", statusInfo, fallback(status.JournalPath, "-"), colorize))
	fmt.Fprintln(out)

	if len(records) == 0 {
		fmt.Fprintln(out, "No printer state recorded yet")
		return
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Key, rec.Status, formatCompletion(rec.Completion), fallback(rec.UpdatedAt, "-")})
	}
	writeTable(out, []string{"Printer", "Status", "Completion", "Updated"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}
