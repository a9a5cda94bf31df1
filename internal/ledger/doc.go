// Package ledger persists per-episode processing state in SQLite.
//
// The Store records each discovered episode with its lifecycle status and
// each batch run with its outcome counts. Rows are bookkeeping for the
// status command and run summaries; the pipeline decides what to process
// from artifact presence on disk, so losing the database never causes
// duplicate work beyond one re-scan.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package ledger
