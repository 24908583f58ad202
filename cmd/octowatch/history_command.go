package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"octowatch/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON  bool
		printer string
		kind    string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent notifications and companion updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var filterKind journal.Kind
			switch strings.ToLower(strings.TrimSpace(kind)) {
			case "":
			case string(journal.KindNotify):
				filterKind = journal.KindNotify
			case string(journal.KindCompanion):
				filterKind = journal.KindCompanion
			default:
				return fmt.Errorf("unknown kind %q (use notify or companion)", kind)
			}

			j, err := journal.Open(cmd.Context(), cfg.Paths.StateDir)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), journal.Query{
				Printer: strings.TrimSpace(printer),
				Kind:    filterKind,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			renderHistory(cmd, entries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&printer, "printer", "", "Only show entries for this printer")
	cmd.Flags().StringVar(&kind, "kind", "", "Only show notify or companion entries")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	return cmd
}

func renderHistory(cmd *cobra.Command, entries []journal.Entry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No dispatch history")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		delivered := yesNo(e.Delivered)
		if e.Detail != "" {
			delivered += " (" + e.Detail + ")"
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Printer,
			string(e.Kind),
			fallback(e.Status, "-"),
			formatCompletion(e.Completion),
			fallback(e.Source, "-"),
			yesNo(e.Attachment),
			delivered,
		})
	}
	writeTable(out, []string{"Time", "Printer", "Kind", "Status", "Completion", "Source", "Image", "Delivered"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
}
