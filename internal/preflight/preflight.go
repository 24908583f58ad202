package preflight

import (
	"context"

	"octowatch/internal/config"
	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
)

// minFreeBytes is the free space below which the state directory check fails.
const minFreeBytes = 64 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunLocal checks directories and disk space without touching the network.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Attachments directory", cfg.Paths.AttachmentsDir),
		CheckFreeSpace("State volume", cfg.Paths.StateDir, minFreeBytes),
	}
}

// RunAll executes the local checks plus a reachability check per printer.
func RunAll(ctx context.Context, cfg *config.Config, fetcher octoprint.JobFetcher) []Result {
	results := RunLocal(cfg)
	if cfg == nil {
		return results
	}
	if len(cfg.Printers) == 0 {
		results = append(results, Result{Name: "Printers", Detail: "none configured"})
	}
	for _, p := range printers.FromConfig(cfg.Printers) {
		results = append(results, CheckPrinter(ctx, fetcher, p))
	}
	if _, ok := cfg.DefaultPrinter(); !ok && len(cfg.Printers) > 1 {
		results = append(results, Result{Name: "Default printer", Detail: "none flagged; stream and poll are idle"})
	}
	return results
}
