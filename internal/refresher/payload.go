package refresher

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// PushPayload is the body the OctoPod plugin posts when a job changes state.
type PushPayload struct {
	PrinterID          string   `mapstructure:"printer_id" json:"printer_id"`
	PrinterState       string   `mapstructure:"printer_state" json:"printer_state"`
	ProgressCompletion *float64 `mapstructure:"progress_completion" json:"progress_completion,omitempty"`
	MediaURL           string   `mapstructure:"media_url" json:"media_url,omitempty"`
	Test               bool     `mapstructure:"test" json:"test,omitempty"`
}

// DecodePushPayload decodes a loosely typed JSON object. Keys may use dashes or
// underscores, and numbers or booleans may arrive as strings.
func DecodePushPayload(raw map[string]any) (PushPayload, error) {
	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		normalized[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")] = value
	}

	var payload PushPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &payload,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return PushPayload{}, fmt.Errorf("build payload decoder: %w", err)
	}
	if err := decoder.Decode(normalized); err != nil {
		return PushPayload{}, fmt.Errorf("decode push payload: %w", err)
	}
	payload.PrinterID = strings.TrimSpace(payload.PrinterID)
	payload.MediaURL = strings.TrimSpace(payload.MediaURL)
	return payload, nil
}
