package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"octowatch/internal/api"
)

type pushFlags struct {
	printer    string
	state      string
	completion string
	mediaURL   string
	test       bool
	file       string
}

func newPushCommand(ctx *commandContext) *cobra.Command {
	var flags pushFlags
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Deliver a push payload to the daemon",
		Long: "Deliver a push payload to the daemon as the OctoPod plugin would.\n" +
			"Build it from flags, or pass --file with a JSON object (- reads stdin).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := buildPushPayload(flags, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				outcome, err := client.Push(cmd.Context(), payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Push outcome: %s\n", outcome)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flags.printer, "printer", "", "Printer identity URL (printer_id)")
	cmd.Flags().StringVar(&flags.state, "state", "", "Printer state, e.g. Printing or Operational")
	cmd.Flags().StringVar(&flags.completion, "completion", "", "Job completion percentage")
	cmd.Flags().StringVar(&flags.mediaURL, "media-url", "", "Snapshot URL to attach")
	cmd.Flags().BoolVar(&flags.test, "test", false, "Mark the payload as a test push")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Read the JSON payload from a file")
	return cmd
}

func buildPushPayload(flags pushFlags, stdin io.Reader) (map[string]any, error) {
	if path := strings.TrimSpace(flags.file); path != "" {
		var reader io.Reader = stdin
		if path != "-" {
			file, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open payload: %w", err)
			}
			defer file.Close()
			reader = file
		}
		var payload map[string]any
		if err := json.NewDecoder(reader).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return payload, nil
	}

	printer := strings.TrimSpace(flags.printer)
	if printer == "" {
		return nil, errors.New("--printer is required unless --file is used")
	}
	payload := map[string]any{"printer_id": printer}
	if state := strings.TrimSpace(flags.state); state != "" {
		payload["printer_state"] = state
	}
	if value := strings.TrimSpace(flags.completion); value != "" {
		completion, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse --completion: %w", err)
		}
		payload["progress_completion"] = completion
	}
	if media := strings.TrimSpace(flags.mediaURL); media != "" {
		payload["media_url"] = media
	}
	if flags.test {
		payload["test"] = true
	}
	return payload, nil
}
