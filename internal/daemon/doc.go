// Package daemon coordinates the long-running octowatch process.
//
// It wires the printer registry, the refresher entry points, the dispatcher
// journal and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. Background work owned here is the fallback poll
// loop, the live stream supervisor for the default printer, the config watcher
// that reloads printers, and periodic retention of attachments and journal rows.
//
// Keep orchestration logic here: reconcile decisions live in the reconcile
// package and delivery lives in notifications, while the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
