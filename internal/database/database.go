package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photo-dedup/internal/logging"
	"photo-dedup/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all durable state: media records, scan sessions, and
// duplicate groups.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	txStart time.Time // transaction start time for metrics
}

// New opens (creating if necessary) the SQLite database at dbPath and
// applies the schema. dbPath must be the full path to the database file and
// its parent directory must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode and busy_timeout prevent "database is locked" errors when
	// a clustering read overlaps a scan of a different folder.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- One row per unique file path
	CREATE TABLE IF NOT EXISTS media_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		folder_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		file_hash TEXT NOT NULL,
		modified_time INTEGER NOT NULL,
		date_taken INTEGER,
		year INTEGER,
		month INTEGER,
		day INTEGER,
		phash TEXT,
		dhash TEXT,
		ahash TEXT,
		is_organized INTEGER NOT NULL DEFAULT 0,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		duplicate_group_id INTEGER,
		scanned_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_media_folder_path ON media_files(folder_path);
	CREATE INDEX IF NOT EXISTS idx_media_phash ON media_files(phash);
	CREATE INDEX IF NOT EXISTS idx_media_group ON media_files(duplicate_group_id);
	CREATE INDEX IF NOT EXISTS idx_media_date ON media_files(year, month, day);

	-- One row per scan attempt; resume bookkeeping lives here
	CREATE TABLE IF NOT EXISTS scan_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_path TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'in_progress',
		total_files INTEGER NOT NULL DEFAULT 0,
		processed_files INTEGER NOT NULL DEFAULT 0,
		failed_files INTEGER NOT NULL DEFAULT 0,
		last_processed_file TEXT,
		error_message TEXT,
		started_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_folder ON scan_sessions(folder_path);
	CREATE INDEX IF NOT EXISTS idx_sessions_state ON scan_sessions(state);

	-- One row per duplicate cluster, keyed by the anchor's perceptual hash
	CREATE TABLE IF NOT EXISTS duplicate_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_hash TEXT NOT NULL,
		file_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_groups_hash ON duplicate_groups(group_hash);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a transaction for batch operations.
// The caller is responsible for calling EndBatch when done.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	// Background context: transaction lifetime is managed by EndBatch, not
	// a timeout. A deferred cancel here would kill the transaction as soon
	// as this function returned.
	tx, err := d.db.BeginTx(context.Background(), nil)
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	d.txStart = txStart
	return tx, nil
}

// EndBatch commits the transaction, or rolls it back if err is non-nil.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(pingCtx)
}

// Stats summarizes the store for health reporting.
type Stats struct {
	TotalFiles    int `json:"totalFiles"`
	TotalGroups   int `json:"totalGroups"`
	TotalSessions int `json:"totalSessions"`
}

// GetStats returns record, group, and session counts.
func (d *Database) GetStats(ctx context.Context) (Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	var s Stats
	err := d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM media_files WHERE is_deleted = 0),
			(SELECT COUNT(*) FROM duplicate_groups),
			(SELECT COUNT(*) FROM scan_sessions)`,
	).Scan(&s.TotalFiles, &s.TotalGroups, &s.TotalSessions)
	recordQuery("get_stats", start, err)
	return s, err
}

// UpdateDBMetrics updates database connection metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// nullTime converts a nullable unix-seconds column to a *time.Time.
func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

// nullInt converts a nullable integer column to an *int.
func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
