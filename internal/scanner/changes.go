package scanner

import (
	"context"
	"fmt"
	"io/fs"
)

// needsProcessing implements change detection. A file whose stored size and
// modification time both exactly match the on-disk values is unchanged
// since the last scan and is skipped without re-extracting. Any other case
// (no record yet, or either value differs) requires processing. isNew
// reports whether no record exists, so the scanner can count first-time
// files.
func (s *Scanner) needsProcessing(ctx context.Context, path string, info fs.FileInfo) (needs, isNew bool, err error) {
	rec, err := s.db.GetRecordByPath(ctx, path)
	if err != nil {
		return false, false, fmt.Errorf("change lookup failed for %s: %w", path, err)
	}
	if rec == nil {
		return true, true, nil
	}
	if rec.FileSize == info.Size() && rec.ModifiedTime.Equal(info.ModTime()) {
		return false, false, nil
	}
	return true, false, nil
}
