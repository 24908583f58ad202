// Package journal records every dispatched action in a SQLite database.
//
// The journal is diagnostic history only; the reconcile state lives in memory
// and is never rebuilt from it. Schema changes ship as embedded migrations.
package journal
