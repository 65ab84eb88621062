// Package scanner implements the resumable incremental scan pipeline.
//
// A scan walks the discoverer's deterministic path sequence, skips files
// unchanged since the last run, fingerprints the rest with a bounded
// worker pool, and persists records in batches. Each batch commit also
// persists the session counters and resume cursor atomically, so a crash
// replays at most one batch, and upsert-by-path makes that replay
// idempotent. The scan session row in the database is the single source
// of truth for the lifecycle; cancellation is observed cooperatively at
// every batch boundary.
package scanner
