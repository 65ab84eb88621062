package discover

import (
	"io/fs"
	"path/filepath"
	"strings"

	"photo-dedup/internal/logging"
	"photo-dedup/internal/mediatypes"
)

// Visitor is called for every candidate image file, in traversal order.
// Returning fs.SkipAll stops the walk early without error.
type Visitor func(path string, info fs.FileInfo) error

// ErrorHandler is called for paths that could not be read. The walk
// continues afterwards.
type ErrorHandler func(path string, err error)

// Walk visits every candidate image file under root in a deterministic
// order: filepath.WalkDir's lexical traversal. Re-invoking Walk with the
// same root and recursion flag over an unchanged filesystem yields the
// exact same sequence, which is what makes resume cursors meaningful.
//
// Hidden entries (dot-prefixed) are skipped entirely; this keeps .trash
// folders produced by duplicate actions out of subsequent scans. Candidate
// filtering follows mediatypes.IsScanCandidate. Unreadable paths are
// reported through onError and skipped.
func Walk(root string, recursive bool, visit Visitor, onError ErrorHandler) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			if onError != nil {
				onError(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !mediatypes.IsScanCandidate(ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error stating file %s: %v", path, err)
			if onError != nil {
				onError(path, err)
			}
			return nil
		}

		return visit(path, info)
	})

	// WalkDir already swallows the visitor's fs.SkipAll early-stop signal
	return err
}

// Count runs the same traversal and returns the number of candidate files.
// Used only for progress estimates.
func Count(root string, recursive bool) (int, error) {
	count := 0
	err := Walk(root, recursive, func(string, fs.FileInfo) error {
		count++
		return nil
	}, nil)
	return count, err
}
