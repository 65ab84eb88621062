package duplicates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"photo-dedup/internal/database"
	"photo-dedup/internal/logging"
	"photo-dedup/internal/metrics"
)

// Action is a per-file review decision for a duplicate group.
type Action string

const (
	// ActionKeep marks files as reviewed with no filesystem effect.
	ActionKeep Action = "keep"
	// ActionDelete moves files into a .trash sibling folder.
	ActionDelete Action = "delete"
	// ActionFavorite symlinks files into the favorites folder.
	ActionFavorite Action = "favorite"
	// ActionDecideLater defers the decision; the group stays pending.
	ActionDecideLater Action = "decide_later"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionKeep, ActionDelete, ActionFavorite, ActionDecideLater:
		return true
	}
	return false
}

// ActionRequest applies one action to a set of files from duplicate groups.
type ActionRequest struct {
	Action     Action  `json:"action"`
	FileIDs    []int64 `json:"fileIds"`
	KeepFileID int64   `json:"keepFileId,omitempty"`
}

// ActionResult summarizes an action application. Success is true iff no
// per-file error occurred; AffectedCount still counts the files that
// succeeded.
type ActionResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	AffectedCount int      `json:"affectedCount"`
	Errors        []string `json:"errors,omitempty"`
}

// Actor applies duplicate actions to files and records.
type Actor struct {
	db *database.Database
	// favoritesDir, when set, overrides the per-file derived favorites
	// location.
	favoritesDir string
}

// NewActor creates an Actor. favoritesDir may be empty; favorites then go
// into a "favorites" folder next to each file's parent folder.
func NewActor(db *database.Database, favoritesDir string) *Actor {
	return &Actor{db: db, favoritesDir: favoritesDir}
}

// Apply processes every requested file independently. A failure on one
// file is recorded and the rest still proceed; the batch never aborts.
// Afterwards every group touched by the request has its status updated:
// decide_later keeps it pending, everything else resolves it.
func (a *Actor) Apply(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}

	records, err := a.db.GetRecordsByIDs(ctx, req.FileIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load files: %w", err)
	}
	if len(records) == 0 {
		return &ActionResult{Success: false, Message: "no files found"}, nil
	}

	result := &ActionResult{}
	groupIDs := map[int64]bool{}

	for i := range records {
		rec := &records[i]
		if rec.DuplicateGroupID != nil {
			groupIDs[*rec.DuplicateGroupID] = true
		}

		affected, err := a.applyToFile(ctx, req, rec)
		if err != nil {
			metrics.DuplicateActionsTotal.WithLabelValues(string(req.Action), "error").Inc()
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.Filename, err))
			continue
		}
		if affected {
			metrics.DuplicateActionsTotal.WithLabelValues(string(req.Action), "ok").Inc()
			result.AffectedCount++
		}
	}

	newStatus := database.GroupStatusResolved
	if req.Action == ActionDecideLater {
		newStatus = database.GroupStatusPending
	}
	for groupID := range groupIDs {
		if err := a.db.SetGroupStatus(ctx, groupID, newStatus); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("group %d: %v", groupID, err))
		}
	}

	result.Success = len(result.Errors) == 0
	if result.Success {
		result.Message = "action applied successfully"
	} else {
		result.Message = fmt.Sprintf("%d error(s) occurred", len(result.Errors))
	}
	return result, nil
}

// applyToFile handles one record; affected is false only for files skipped
// on purpose (the kept file of a delete).
func (a *Actor) applyToFile(ctx context.Context, req ActionRequest, rec *database.MediaRecord) (affected bool, err error) {
	switch req.Action {
	case ActionKeep, ActionDecideLater:
		return true, nil

	case ActionDelete:
		if req.KeepFileID != 0 && rec.ID == req.KeepFileID {
			return false, nil
		}
		return true, a.moveToTrash(ctx, rec)

	case ActionFavorite:
		return true, a.linkFavorite(ctx, rec)
	}
	return false, fmt.Errorf("unknown action %q", req.Action)
}

// moveToTrash relocates the file into a .trash folder next to it and marks
// the record deleted with its new location. Records are never physically
// erased from the store.
func (a *Actor) moveToTrash(ctx context.Context, rec *database.MediaRecord) error {
	trashFolder := filepath.Join(filepath.Dir(rec.FilePath), ".trash")
	if err := os.MkdirAll(trashFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create trash folder: %w", err)
	}

	destPath := filepath.Join(trashFolder, rec.Filename)
	if _, err := os.Lstat(destPath); err == nil {
		destPath = filepath.Join(trashFolder, collisionName(rec.Filename, rec.ID))
	}

	if _, err := os.Lstat(rec.FilePath); err == nil {
		if err := os.Rename(rec.FilePath, destPath); err != nil {
			return fmt.Errorf("failed to move to trash: %w", err)
		}
	}

	if err := a.db.MarkRecordDeleted(ctx, rec.ID, destPath, trashFolder); err != nil {
		return fmt.Errorf("failed to mark deleted: %w", err)
	}

	logging.Debug("Moved %s to %s", rec.FilePath, destPath)
	return nil
}

// linkFavorite creates a symbolic reference to the file in the favorites
// folder. The original is neither moved nor copied.
func (a *Actor) linkFavorite(ctx context.Context, rec *database.MediaRecord) error {
	favFolder := a.favoritesDir
	if favFolder == "" {
		parent := filepath.Dir(rec.FolderPath)
		if parent == "." || parent == string(filepath.Separator) {
			parent = rec.FolderPath
		}
		favFolder = filepath.Join(parent, "favorites")
	}

	if err := os.MkdirAll(favFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create favorites folder: %w", err)
	}

	linkPath := filepath.Join(favFolder, rec.Filename)
	if _, err := os.Lstat(linkPath); err == nil {
		linkPath = filepath.Join(favFolder, collisionName(rec.Filename, rec.ID))
	}

	if _, err := os.Lstat(rec.FilePath); err == nil {
		if _, err := os.Lstat(linkPath); os.IsNotExist(err) {
			if err := os.Symlink(rec.FilePath, linkPath); err != nil {
				return fmt.Errorf("failed to create favorite link: %w", err)
			}
		}
	}

	if err := a.db.MarkRecordFavorite(ctx, rec.ID); err != nil {
		return fmt.Errorf("failed to mark favorite: %w", err)
	}

	logging.Debug("Linked favorite %s -> %s", linkPath, rec.FilePath)
	return nil
}

// collisionName appends the record id to the filename stem, preserving the
// extension.
func collisionName(filename string, id int64) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%d%s", stem, id, ext)
}
