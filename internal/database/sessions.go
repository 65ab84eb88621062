package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a scan session id does not exist.
var ErrSessionNotFound = errors.New("scan session not found")

const sessionColumns = `id, folder_path, state, total_files, processed_files,
	failed_files, last_processed_file, error_message, started_at, completed_at`

func scanSession(scan func(dest ...interface{}) error) (*ScanSession, error) {
	var s ScanSession
	var lastFile, errMsg sql.NullString
	var startedAt int64
	var completedAt sql.NullInt64

	err := scan(
		&s.ID, &s.FolderPath, &s.State, &s.TotalFiles, &s.ProcessedFiles,
		&s.FailedFiles, &lastFile, &errMsg, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	s.LastProcessedFile = lastFile.String
	s.ErrorMessage = errMsg.String
	s.StartedAt = time.Unix(startedAt, 0)
	s.CompletedAt = nullTime(completedAt)
	return &s, nil
}

// GetSession retrieves a scan session by id.
func (d *Database) GetSession(ctx context.Context, id int64) (*ScanSession, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_session", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM scan_sessions WHERE id = ?", sessionColumns), id)

	s, scanErr := scanSession(row.Scan)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		err = scanErr
		return nil, scanErr
	}
	return s, nil
}

// GetActiveSessionForFolder returns the non-terminal (in_progress or
// interrupted) session for a folder, or (nil, nil) when there is none.
// At most one such session exists per folder at a time.
func (d *Database) GetActiveSessionForFolder(ctx context.Context, folderPath string) (*ScanSession, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_active_session", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM scan_sessions
		WHERE folder_path = ? AND state IN (?, ?)
		ORDER BY id DESC LIMIT 1`, sessionColumns),
		folderPath, ScanStateInProgress, ScanStateInterrupted)

	s, scanErr := scanSession(row.Scan)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, nil
		}
		err = scanErr
		return nil, scanErr
	}
	return s, nil
}

// CreateSession inserts a fresh in_progress session for a folder.
func (d *Database) CreateSession(ctx context.Context, folderPath string, totalFiles int) (*ScanSession, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, execErr := d.db.ExecContext(ctx, `
		INSERT INTO scan_sessions (folder_path, state, total_files)
		VALUES (?, ?, ?)`, folderPath, ScanStateInProgress, totalFiles)
	if execErr != nil {
		err = execErr
		return nil, fmt.Errorf("failed to create scan session: %w", execErr)
	}

	id, idErr := res.LastInsertId()
	if idErr != nil {
		err = idErr
		return nil, idErr
	}

	return &ScanSession{
		ID:         id,
		FolderPath: folderPath,
		State:      ScanStateInProgress,
		TotalFiles: totalFiles,
		StartedAt:  time.Now(),
	}, nil
}

// UpdateSessionProgress persists counters and the resume cursor within a
// batch transaction, so records and bookkeeping commit atomically.
func (d *Database) UpdateSessionProgress(tx *sql.Tx, id int64, processed, failed int, lastFile string) error {
	_, err := tx.ExecContext(context.Background(), `
		UPDATE scan_sessions
		SET processed_files = ?, failed_files = ?, last_processed_file = ?
		WHERE id = ?`, processed, failed, nullIfEmpty(lastFile), id)
	return err
}

// SetSessionTotal updates the discovered-file estimate of a session.
func (d *Database) SetSessionTotal(ctx context.Context, id int64, total int) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_session_total", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx,
		"UPDATE scan_sessions SET total_files = ? WHERE id = ?", total, id)
	return err
}

// SetSessionState transitions a session to a new state, recording the error
// message if any and stamping completed_at for terminal states.
func (d *Database) SetSessionState(ctx context.Context, id int64, state ScanState, errorMessage string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_session_state", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if state.IsTerminal() {
		_, err = d.db.ExecContext(ctx, `
			UPDATE scan_sessions
			SET state = ?, error_message = ?, completed_at = strftime('%s', 'now')
			WHERE id = ?`, state, nullIfEmpty(errorMessage), id)
	} else {
		_, err = d.db.ExecContext(ctx, `
			UPDATE scan_sessions
			SET state = ?, error_message = ?
			WHERE id = ?`, state, nullIfEmpty(errorMessage), id)
	}
	return err
}

// GetSessionState reads just the state column. The scan loop polls this at
// batch boundaries to honor cancellation promptly.
func (d *Database) GetSessionState(ctx context.Context, id int64) (ScanState, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_session_state", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var state ScanState
	err = d.db.QueryRowContext(ctx,
		"SELECT state FROM scan_sessions WHERE id = ?", id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	return state, err
}

// ListSessions returns all scan sessions, newest first.
func (d *Database) ListSessions(ctx context.Context) ([]ScanSession, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_sessions", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, queryErr := d.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM scan_sessions ORDER BY id DESC", sessionColumns))
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("sessions query failed: %w", queryErr)
	}
	defer rows.Close()

	var sessions []ScanSession
	for rows.Next() {
		s, scanErr := scanSession(rows.Scan)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("session scan failed: %w", scanErr)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// MarkOrphanedSessionsInterrupted flips every in_progress session to
// interrupted. Called once at startup: a session still in_progress at that
// point belonged to a process that died, and interrupted sessions are
// resumable through the normal start path.
func (d *Database) MarkOrphanedSessionsInterrupted(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_orphaned_sessions", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	res, execErr := d.db.ExecContext(ctx,
		"UPDATE scan_sessions SET state = ? WHERE state = ?",
		ScanStateInterrupted, ScanStateInProgress)
	if execErr != nil {
		err = execErr
		return 0, execErr
	}
	return res.RowsAffected()
}
