package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"photo-dedup/internal/database"
	"photo-dedup/internal/logging"
)

// monthFolders maps month numbers to sortable, human-readable folder names.
var monthFolders = [13]string{
	"", "01-January", "02-February", "03-March", "04-April",
	"05-May", "06-June", "07-July", "08-August",
	"09-September", "10-October", "11-November", "12-December",
}

// PreviewItem is one planned move from a dry run or preview.
type PreviewItem struct {
	SourcePath      string     `json:"sourcePath"`
	DestinationPath string     `json:"destinationPath"`
	DateTaken       *time.Time `json:"dateTaken,omitempty"`
}

// Result summarizes an organize pass. Success is true iff no per-file
// error occurred; files that failed are counted as skipped.
type Result struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	FilesMoved   int           `json:"filesMoved"`
	FilesSkipped int           `json:"filesSkipped"`
	Preview      []PreviewItem `json:"preview,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
}

// Organizer moves records into a date-based folder hierarchy under their
// library root.
type Organizer struct {
	db *database.Database
}

// New creates an Organizer over the given store.
func New(db *database.Database) *Organizer {
	return &Organizer{db: db}
}

// destinationPath builds the YEAR/MM-Month target for a file under base.
func destinationPath(base string, taken time.Time, filename string) string {
	return filepath.Join(base,
		fmt.Sprintf("%d", taken.Year()),
		monthFolders[int(taken.Month())],
		filename)
}

// Preview returns the moves an organize pass over folderPath would make,
// without touching the filesystem. Files with no capture date, and files
// already at their destination, are omitted.
func (o *Organizer) Preview(ctx context.Context, folderPath string) ([]PreviewItem, error) {
	records, err := o.db.ListUnorganized(ctx, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load unorganized files: %w", err)
	}

	items := []PreviewItem{}
	for i := range records {
		rec := &records[i]
		if rec.DateTaken == nil {
			continue
		}
		dest := destinationPath(folderPath, *rec.DateTaken, rec.Filename)
		if dest == rec.FilePath {
			continue
		}
		items = append(items, PreviewItem{
			SourcePath:      rec.FilePath,
			DestinationPath: dest,
			DateTaken:       rec.DateTaken,
		})
	}
	return items, nil
}

// Organize moves every non-deleted, non-organized record under folderPath
// into YEAR/MM-Month subfolders. Filename collisions at the destination get
// a _N counter suffix. Files already in place are just marked organized.
// With dryRun set, nothing moves and the planned changes come back as a
// preview. Per-file failures are collected and never abort the pass.
func (o *Organizer) Organize(ctx context.Context, folderPath string, dryRun bool) (*Result, error) {
	if info, err := os.Stat(folderPath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("folder not found: %s", folderPath)
	}

	records, err := o.db.ListUnorganized(ctx, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load unorganized files: %w", err)
	}

	if dryRun {
		items, err := o.Preview(ctx, folderPath)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success:      true,
			Message:      fmt.Sprintf("Dry run: %d files would be moved", len(items)),
			FilesSkipped: len(records) - len(items),
			Preview:      items,
		}, nil
	}

	result := &Result{}
	for i := range records {
		rec := &records[i]
		if rec.DateTaken == nil {
			result.FilesSkipped++
			continue
		}

		if err := o.moveFile(ctx, folderPath, rec, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("error moving %s: %v", rec.Filename, err))
			result.FilesSkipped++
		}
	}

	result.Success = len(result.Errors) == 0
	if result.Success {
		result.Message = fmt.Sprintf("Organized %d files into date folders", result.FilesMoved)
	} else {
		result.Message = fmt.Sprintf("%d error(s) occurred", len(result.Errors))
	}
	logging.Info("Organize pass over %s: moved=%d skipped=%d errors=%d",
		folderPath, result.FilesMoved, result.FilesSkipped, len(result.Errors))
	return result, nil
}

func (o *Organizer) moveFile(ctx context.Context, base string, rec *database.MediaRecord, result *Result) error {
	dest := destinationPath(base, *rec.DateTaken, rec.Filename)

	// Already where it belongs; just record that.
	if dest == rec.FilePath {
		if err := o.db.MarkRecordOrganized(ctx, rec.ID, rec.FilePath, rec.FolderPath); err != nil {
			return err
		}
		result.FilesSkipped++
		return nil
	}

	destFolder := filepath.Dir(dest)
	if err := os.MkdirAll(destFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", destFolder, err)
	}

	dest = resolveCollision(dest)

	if _, err := os.Stat(rec.FilePath); err != nil {
		return fmt.Errorf("file not found: %s", rec.FilePath)
	}
	if err := os.Rename(rec.FilePath, dest); err != nil {
		return fmt.Errorf("move failed: %w", err)
	}

	if err := o.db.MarkRecordOrganized(ctx, rec.ID, dest, destFolder); err != nil {
		return err
	}
	result.FilesMoved++

	// A favorite's symlink still points at the old location; re-point it.
	if rec.IsFavorite {
		if err := o.repointFavorite(base, rec.Filename, dest); err != nil {
			logging.Warn("Failed to update favorite link for %s: %v", rec.Filename, err)
		}
	}
	return nil
}

// resolveCollision appends _N to the filename stem until the path is free.
func resolveCollision(dest string) string {
	if _, err := os.Lstat(dest); os.IsNotExist(err) {
		return dest
	}
	dir := filepath.Dir(dest)
	ext := filepath.Ext(dest)
	stem := filepath.Base(dest)
	stem = stem[:len(stem)-len(ext)]
	for counter := 1; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func (o *Organizer) repointFavorite(base, filename, dest string) error {
	favFolder := filepath.Join(base, "favorites")
	if err := os.MkdirAll(favFolder, 0o755); err != nil {
		return err
	}
	linkPath := filepath.Join(favFolder, filename)
	if info, err := os.Lstat(linkPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(linkPath); err != nil {
			return err
		}
	}
	if _, err := os.Lstat(linkPath); os.IsNotExist(err) {
		return os.Symlink(dest, linkPath)
	}
	return nil
}
