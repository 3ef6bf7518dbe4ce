// Package history persists a ledger of orchestrated jobs in SQLite.
//
// The Store implements orchestrator.Observer: every queued, started, and
// finished event is written as it happens, keyed by the job correlation ID so
// rows from separate runs never collide even though job IDs restart at one.
// The ledger is informational; a failed write is logged and never fails the
// job it describes.
package history
