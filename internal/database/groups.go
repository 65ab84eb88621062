package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrGroupNotFound is returned when a duplicate group id does not exist.
var ErrGroupNotFound = errors.New("duplicate group not found")

const groupColumns = `id, group_hash, file_count, status, created_at, updated_at`

func scanGroup(scan func(dest ...interface{}) error) (*DuplicateGroup, error) {
	var g DuplicateGroup
	var createdAt, updatedAt int64

	err := scan(&g.ID, &g.GroupHash, &g.FileCount, &g.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	g.CreatedAt = time.Unix(createdAt, 0)
	g.UpdatedAt = time.Unix(updatedAt, 0)
	return &g, nil
}

// GetGroupByHash looks up a duplicate group by its representative hash.
// Returns (nil, nil) when no group exists for the hash.
func (d *Database) GetGroupByHash(ctx context.Context, groupHash string) (*DuplicateGroup, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_group_by_hash", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM duplicate_groups WHERE group_hash = ? ORDER BY id LIMIT 1", groupColumns),
		groupHash)

	g, scanErr := scanGroup(row.Scan)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, nil
		}
		err = scanErr
		return nil, scanErr
	}
	return g, nil
}

// GetGroup retrieves a duplicate group by id.
func (d *Database) GetGroup(ctx context.Context, id int64) (*DuplicateGroup, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_group", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM duplicate_groups WHERE id = ?", groupColumns), id)

	g, scanErr := scanGroup(row.Scan)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		err = scanErr
		return nil, scanErr
	}
	return g, nil
}

// CreateGroup inserts a pending duplicate group keyed by the anchor hash.
func (d *Database) CreateGroup(ctx context.Context, groupHash string, fileCount int) (*DuplicateGroup, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_group", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, execErr := d.db.ExecContext(ctx, `
		INSERT INTO duplicate_groups (group_hash, file_count, status)
		VALUES (?, ?, ?)`, groupHash, fileCount, GroupStatusPending)
	if execErr != nil {
		err = execErr
		return nil, fmt.Errorf("failed to create duplicate group: %w", execErr)
	}

	id, idErr := res.LastInsertId()
	if idErr != nil {
		err = idErr
		return nil, idErr
	}

	now := time.Now()
	return &DuplicateGroup{
		ID:        id,
		GroupHash: groupHash,
		FileCount: fileCount,
		Status:    GroupStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateGroupCount refreshes the member count of an existing group after a
// clustering rerun.
func (d *Database) UpdateGroupCount(ctx context.Context, id int64, fileCount int) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_group_count", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx, `
		UPDATE duplicate_groups
		SET file_count = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, fileCount, id)
	return err
}

// SetGroupStatus transitions a group's review status.
func (d *Database) SetGroupStatus(ctx context.Context, id int64, status GroupStatus) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_group_status", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx, `
		UPDATE duplicate_groups
		SET status = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, status, id)
	return err
}

// ListGroups returns stored duplicate groups, optionally filtered by status.
func (d *Database) ListGroups(ctx context.Context, status GroupStatus) ([]DuplicateGroup, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_groups", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	query := fmt.Sprintf("SELECT %s FROM duplicate_groups", groupColumns)
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id"

	rows, queryErr := d.db.QueryContext(ctx, query, args...)
	if queryErr != nil {
		err = queryErr
		return nil, fmt.Errorf("groups query failed: %w", queryErr)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		g, scanErr := scanGroup(rows.Scan)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("group scan failed: %w", scanErr)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}
