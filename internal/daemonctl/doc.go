// Package daemonctl starts, stops and restarts a detached octowatch daemon.
//
// Liveness is probed through the daemon HTTP API; termination escalates from
// SIGTERM to SIGKILL after a grace period and then clears the pid and lock
// files the daemon left in state_dir.
package daemonctl
