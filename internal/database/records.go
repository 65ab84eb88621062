package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// recordColumns is the column list shared by every media_files SELECT.
const recordColumns = `id, file_path, filename, folder_path, file_size, file_hash,
	modified_time, date_taken, year, month, day, phash, dhash, ahash,
	is_organized, is_favorite, is_deleted, duplicate_group_id, scanned_at, updated_at`

// scanRecord scans one media_files row into a MediaRecord.
func scanRecord(scan func(dest ...interface{}) error) (*MediaRecord, error) {
	var rec MediaRecord
	var modTime, scannedAt, updatedAt int64
	var dateTaken, year, month, day, groupID sql.NullInt64
	var phash, dhash, ahash sql.NullString

	err := scan(
		&rec.ID, &rec.FilePath, &rec.Filename, &rec.FolderPath,
		&rec.FileSize, &rec.FileHash, &modTime,
		&dateTaken, &year, &month, &day,
		&phash, &dhash, &ahash,
		&rec.IsOrganized, &rec.IsFavorite, &rec.IsDeleted,
		&groupID, &scannedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// modified_time holds nanoseconds so change detection can compare
	// exactly against os.Stat
	rec.ModifiedTime = time.Unix(0, modTime)
	rec.ScannedAt = time.Unix(scannedAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	rec.DateTaken = nullTime(dateTaken)
	rec.Year = nullInt(year)
	rec.Month = nullInt(month)
	rec.Day = nullInt(day)
	rec.PHash = phash.String
	rec.DHash = dhash.String
	rec.AHash = ahash.String
	if groupID.Valid {
		rec.DuplicateGroupID = &groupID.Int64
	}

	return &rec, nil
}

// UpsertRecord inserts or updates a media record by its unique path within
// a batch transaction. On update the original scanned_at is preserved and
// the organized/favorite/deleted flags and group assignment are left alone.
func (d *Database) UpsertRecord(tx *sql.Tx, rec *MediaRecord) error {
	query := `
	INSERT INTO media_files (file_path, filename, folder_path, file_size, file_hash,
		modified_time, date_taken, year, month, day, phash, dhash, ahash, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
	ON CONFLICT(file_path) DO UPDATE SET
		filename = excluded.filename,
		folder_path = excluded.folder_path,
		file_size = excluded.file_size,
		file_hash = excluded.file_hash,
		modified_time = excluded.modified_time,
		date_taken = excluded.date_taken,
		year = excluded.year,
		month = excluded.month,
		day = excluded.day,
		phash = excluded.phash,
		dhash = excluded.dhash,
		ahash = excluded.ahash,
		updated_at = strftime('%s', 'now')
	`

	var dateTaken, year, month, day interface{}
	if rec.DateTaken != nil {
		dateTaken = rec.DateTaken.Unix()
	}
	if rec.Year != nil {
		year = *rec.Year
	}
	if rec.Month != nil {
		month = *rec.Month
	}
	if rec.Day != nil {
		day = *rec.Day
	}

	_, err := tx.ExecContext(context.Background(), query,
		rec.FilePath, rec.Filename, rec.FolderPath,
		rec.FileSize, rec.FileHash, rec.ModifiedTime.UnixNano(),
		dateTaken, year, month, day,
		nullIfEmpty(rec.PHash), nullIfEmpty(rec.DHash), nullIfEmpty(rec.AHash),
	)
	return err
}

// GetRecordByPath retrieves a single record by path. Returns (nil, nil)
// when no record exists for the path.
func (d *Database) GetRecordByPath(ctx context.Context, path string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_record_by_path", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM media_files WHERE file_path = ?", recordColumns), path)

	rec, scanErr := scanRecord(row.Scan)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, nil
		}
		err = scanErr
		return nil, scanErr
	}
	return rec, nil
}

// ListFingerprinted returns all non-deleted records carrying a perceptual
// hash, optionally restricted to a folder prefix, in stored (insertion)
// order. The clusterer depends on this order being stable: it determines
// which record anchors each group.
func (d *Database) ListFingerprinted(ctx context.Context, folderPrefix string) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_fingerprinted", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM media_files
		WHERE phash IS NOT NULL AND phash != '' AND is_deleted = 0`, recordColumns)
	args := []interface{}{}

	if folderPrefix != "" {
		query += ` AND folder_path LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(folderPrefix)+"%")
	}

	query += ` ORDER BY id`

	rows, queryErr := d.db.QueryContext(ctx, query, args...)
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("fingerprint query failed: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// GetRecordsByIDs retrieves records by id, including deleted ones. Missing
// ids are silently absent from the result.
func (d *Database) GetRecordsByIDs(ctx context.Context, ids []int64) ([]MediaRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("get_records_by_ids", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf("SELECT %s FROM media_files WHERE id IN (%s) ORDER BY id",
		recordColumns, placeholders)

	rows, queryErr := d.db.QueryContext(ctx, query, args...)
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("records by ids query failed: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// GetGroupMembers returns the live (non-deleted) members of a duplicate group.
func (d *Database) GetGroupMembers(ctx context.Context, groupID int64) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_group_members", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM media_files
		WHERE duplicate_group_id = ? AND is_deleted = 0 ORDER BY id`, recordColumns)

	rows, queryErr := d.db.QueryContext(ctx, query, groupID)
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("group members query failed: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// AssignDuplicateGroup points every given record at a duplicate group.
func (d *Database) AssignDuplicateGroup(ctx context.Context, ids []int64, groupID int64) error {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("assign_duplicate_group", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := []interface{}{groupID}
	for _, id := range ids {
		args = append(args, id)
	}

	_, err = d.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE media_files SET duplicate_group_id = ?, updated_at = strftime('%%s', 'now') WHERE id IN (%s)",
		placeholders), args...)
	return err
}

// MarkRecordDeleted flags a record deleted and stores the location it was
// moved to. The path keeps tracking the file after the move so the record
// never points at a stale location.
func (d *Database) MarkRecordDeleted(ctx context.Context, id int64, newPath, newFolder string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_record_deleted", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx, `
		UPDATE media_files
		SET is_deleted = 1, file_path = ?, folder_path = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, newPath, newFolder, id)
	return err
}

// MarkRecordFavorite flags a record as a favorite. The file itself is not
// touched here; the caller creates the favorites symlink.
func (d *Database) MarkRecordFavorite(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_record_favorite", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx, `
		UPDATE media_files
		SET is_favorite = 1, updated_at = strftime('%s', 'now')
		WHERE id = ?`, id)
	return err
}

// MarkRecordOrganized updates a record's location after the organizer moved
// the file into its date folder.
func (d *Database) MarkRecordOrganized(ctx context.Context, id int64, newPath, newFolder string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_record_organized", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx, `
		UPDATE media_files
		SET is_organized = 1, file_path = ?, folder_path = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, newPath, newFolder, id)
	return err
}

// MediaQuery narrows a media listing. Zero-valued fields are not applied.
type MediaQuery struct {
	FolderPrefix string
	Year         int
	Month        int
	Day          int
	Limit        int
}

// QueryMedia returns non-deleted records matching the query, newest
// capture date first.
func (d *Database) QueryMedia(ctx context.Context, q MediaQuery) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("query_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	query := fmt.Sprintf("SELECT %s FROM media_files WHERE is_deleted = 0", recordColumns)
	args := []interface{}{}

	if q.FolderPrefix != "" {
		query += ` AND folder_path LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(q.FolderPrefix)+"%")
	}
	if q.Year != 0 {
		query += " AND year = ?"
		args = append(args, q.Year)
	}
	if q.Month != 0 {
		query += " AND month = ?"
		args = append(args, q.Month)
	}
	if q.Day != 0 {
		query += " AND day = ?"
		args = append(args, q.Day)
	}

	query += " ORDER BY date_taken DESC"

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, queryErr := d.db.QueryContext(ctx, query, args...)
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("media query failed: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListUnorganized returns non-deleted records under the folder prefix that
// the organizer has not yet placed into a date folder.
func (d *Database) ListUnorganized(ctx context.Context, folderPrefix string) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_unorganized", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM media_files
		WHERE is_deleted = 0 AND is_organized = 0 AND folder_path LIKE ? ESCAPE '\'
		ORDER BY id`, recordColumns)

	rows, queryErr := d.db.QueryContext(ctx, query, escapeLike(folderPrefix)+"%")
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("unorganized query failed: %w", queryErr)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// collectRecords drains a result set of media_files rows.
func collectRecords(rows *sql.Rows) ([]MediaRecord, error) {
	var records []MediaRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("record scan failed: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// nullIfEmpty maps "" to NULL so missing hashes are stored as NULL rather
// than empty strings.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
