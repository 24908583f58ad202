// Package preflight provides readiness checks for the filesystem paths and
// OctoPrint servers octowatch depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunLocal at startup and refuses to start when a state
//     directory is unusable.
//   - The CLI "octowatch doctor" command calls RunAll, which also contacts
//     every configured printer.
package preflight
