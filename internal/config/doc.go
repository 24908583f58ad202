// Package config loads, normalizes, and validates octowatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OCTOWATCH_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// CLI need: state and log directories, the printer list, notification and
// companion transports, and poll cadence.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
