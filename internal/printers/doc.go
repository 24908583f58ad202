// Package printers holds the set of configured OctoPrint servers.
//
// The Registry resolves push identities (the printer's identity URL, or its
// display name for older payloads) and knows which printer is the default.
// Watch keeps the registry in sync with config.toml while the daemon runs.
package printers
