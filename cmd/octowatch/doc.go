// Command octowatch runs the OctoPrint watcher daemon and talks to it.
//
// `octowatch daemon` runs in the foreground while start, stop and restart
// manage a detached instance. status, printers, poll, push and test-notify
// call the daemon HTTP API. history reads the dispatch journal directly, logs
// tails the daemon log, and doctor runs local and per-printer preflight checks.
package main
