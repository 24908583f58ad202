// Package api defines the wire-format types served by the daemon HTTP API and
// the client the CLI uses to call it.
//
// # Key Types
//
// OutcomeResponse: result of a push or poll request ("newData", "noData",
// "failed").
//
// StateRecord/StateResponse: State Store snapshot, one record per key.
//
// PrinterInfo/PrintersResponse: registry listing without credentials.
//
// DaemonStatus: lifecycle, poll and store counters.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the push payload the OctoPod plugin
// sends. Timestamps use RFC3339 with milliseconds. Completion is a nullable
// number so "unknown" and 0 stay distinct.
package api
