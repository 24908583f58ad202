// Package logs reads and follows the daemon log for `octowatch logs`.
//
// LastLines returns the tail of a file with bounded memory. Follow then
// streams appended lines through hpcloud/tail and reopens the file when the
// octowatch.log pointer moves to a new run's log.
package logs
