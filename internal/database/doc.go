// Package database provides SQLite-backed storage for media records, scan
// sessions, and duplicate groups.
//
// Media records are upserted by their unique file path, which makes batch
// replay after a crash idempotent. Batch writes run inside explicit
// transactions via BeginBatch/EndBatch; everything else uses short
// independent statements.
package database
