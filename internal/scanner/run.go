package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"photo-dedup/internal/database"
	"photo-dedup/internal/discover"
	"photo-dedup/internal/fingerprint"
	"photo-dedup/internal/logging"
	"photo-dedup/internal/metrics"
)

// workItem is one file queued for extraction within a batch.
type workItem struct {
	path  string
	info  fs.FileInfo
	isNew bool
	fp    *fingerprint.Fingerprint
	err   error
}

// scanState is the in-flight bookkeeping of one scan loop. The durable
// counterpart lives in the scan_sessions row and is only updated at batch
// boundaries.
type scanState struct {
	processed int
	failed    int
	skipped   int
	newFiles  int

	cursor   string
	skipping bool

	lastYielded string
	sinceFlush  int
	pending     []workItem
}

// run is the scan loop: discovery → change detection → extraction →
// batched upserts, with the resume cursor advancing only when a batch
// commits.
func (s *Scanner) run(ctx context.Context, session *database.ScanSession, recursive bool) {
	metrics.ScansRunning.Inc()
	defer metrics.ScansRunning.Dec()

	start := time.Now()

	total, err := discover.Count(session.FolderPath, recursive)
	if err != nil {
		s.fail(session.ID, fmt.Errorf("discovery failed: %w", err))
		return
	}
	if err := s.db.SetSessionTotal(ctx, session.ID, total); err != nil {
		s.fail(session.ID, fmt.Errorf("failed to store file count: %w", err))
		return
	}
	logging.Info("Scan %d: %d candidate files under %s", session.ID, total, session.FolderPath)

	st := &scanState{
		processed: session.ProcessedFiles,
		failed:    session.FailedFiles,
		cursor:    session.LastProcessedFile,
		skipping:  session.LastProcessedFile != "",
	}

	stopped := false

	walkErr := discover.Walk(session.FolderPath, recursive, func(path string, info fs.FileInfo) error {
		// Resume: silently skip every path up to and including the cursor.
		// The discovery order is stable, so this lands exactly where the
		// previous attempt left off.
		if st.skipping {
			if path == st.cursor {
				st.skipping = false
			}
			return nil
		}

		st.lastYielded = path
		st.sinceFlush++

		needs, isNew, err := s.needsProcessing(ctx, path, info)
		if err != nil {
			return err
		}
		if needs {
			st.pending = append(st.pending, workItem{path: path, info: info, isNew: isNew})
		} else {
			st.processed++
			st.skipped++
			metrics.ScanFilesSkipped.Inc()
		}

		if st.sinceFlush >= s.batchSize {
			stop, err := s.flush(ctx, session.ID, st)
			if err != nil {
				return err
			}
			if stop {
				stopped = true
				return fs.SkipAll
			}
		}
		return nil
	}, func(path string, err error) {
		st.failed++
		metrics.ScanFilesFailed.Inc()
	})

	if walkErr != nil {
		s.fail(session.ID, walkErr)
		return
	}
	if stopped {
		return
	}

	if st.skipping {
		logging.Warn("Scan %d: resume cursor %q never seen; folder contents changed since interruption",
			session.ID, st.cursor)
	}

	// final partial batch
	stop, err := s.flush(ctx, session.ID, st)
	if err != nil {
		s.fail(session.ID, err)
		return
	}
	if stop {
		return
	}

	if err := s.db.SetSessionState(ctx, session.ID, database.ScanStateCompleted, ""); err != nil {
		logging.Error("Scan %d: failed to mark completed: %v", session.ID, err)
		return
	}

	metrics.ScansCompletedTotal.WithLabelValues("completed").Inc()
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	logging.Info("Scan %d complete: %d processed (%d new, %d skipped), %d failed in %v",
		session.ID, st.processed, st.newFiles, st.skipped, st.failed, time.Since(start).Round(time.Millisecond))
}

// flush commits the pending batch: extract fingerprints in parallel, then
// upsert the records and persist session counters plus the resume cursor
// in one transaction. It is also the cooperative cancellation checkpoint;
// stop is true when the session must not continue.
func (s *Scanner) flush(ctx context.Context, sessionID int64, st *scanState) (stop bool, err error) {
	state, err := s.db.GetSessionState(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("cancellation check failed: %w", err)
	}
	if state == database.ScanStateCancelled {
		logging.Info("Scan %d: cancellation observed at batch boundary", sessionID)
		metrics.ScansCompletedTotal.WithLabelValues("cancelled").Inc()
		return true, nil
	}

	select {
	case <-ctx.Done():
		// process shutdown; leave the session resumable
		if err := s.db.SetSessionState(context.Background(), sessionID, database.ScanStateInterrupted, ""); err != nil {
			logging.Error("Scan %d: failed to mark interrupted: %v", sessionID, err)
		}
		logging.Info("Scan %d: interrupted by shutdown", sessionID)
		return true, nil
	default:
	}

	if st.sinceFlush == 0 {
		return false, nil
	}

	s.extractBatch(st.pending)

	tx, err := s.db.BeginBatch()
	if err != nil {
		return false, fmt.Errorf("failed to begin batch: %w", err)
	}

	var batchErr error
	for i := range st.pending {
		item := &st.pending[i]
		if item.err != nil {
			st.failed++
			metrics.ScanFilesFailed.Inc()
			metrics.ExtractionErrors.Inc()
			logging.Warn("Scan %d: extraction failed for %s: %v", sessionID, item.path, item.err)
			continue
		}

		if err := s.db.UpsertRecord(tx, buildRecord(item)); err != nil {
			batchErr = fmt.Errorf("upsert failed for %s: %w", item.path, err)
			break
		}
		st.processed++
		if item.isNew {
			st.newFiles++
		}
		metrics.ScanFilesProcessed.Inc()
	}

	if batchErr == nil {
		batchErr = s.db.UpdateSessionProgress(tx, sessionID, st.processed, st.failed, st.lastYielded)
	}
	if err := s.db.EndBatch(tx, batchErr); err != nil {
		return false, err
	}

	st.pending = st.pending[:0]
	st.sinceFlush = 0
	return false, nil
}

// extractBatch fingerprints the batch with a bounded worker pool.
// Extraction failures are kept per-item; they never abort the batch.
func (s *Scanner) extractBatch(items []workItem) {
	if len(items) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.workerCount)

	for i := range items {
		item := &items[i]
		g.Go(func() error {
			start := time.Now()
			item.fp, item.err = s.extractor.Extract(item.path)
			metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
			return nil
		})
	}

	// errors stay on the items
	_ = g.Wait()
}

// buildRecord assembles the MediaRecord for a successfully extracted file.
// Files without an EXIF capture date fall back to the modification time so
// every record has a usable date for queries and organizing.
func buildRecord(item *workItem) *database.MediaRecord {
	taken := item.fp.DateTaken
	if taken == nil {
		mt := item.info.ModTime()
		taken = &mt
	}
	year, month, day := taken.Date()
	monthN := int(month)

	return &database.MediaRecord{
		FilePath:     item.path,
		Filename:     filepath.Base(item.path),
		FolderPath:   filepath.Dir(item.path),
		FileSize:     item.info.Size(),
		FileHash:     item.fp.ContentHash,
		ModifiedTime: item.info.ModTime(),
		DateTaken:    taken,
		Year:         &year,
		Month:        &monthN,
		Day:          &day,
		PHash:        item.fp.PHash,
		DHash:        item.fp.DHash,
		AHash:        item.fp.AHash,
	}
}

// fail transitions a session to failed with the cause recorded. Batches
// committed before the failure remain valid.
func (s *Scanner) fail(sessionID int64, cause error) {
	logging.Error("Scan %d failed: %v", sessionID, cause)
	if err := s.db.SetSessionState(context.Background(), sessionID, database.ScanStateFailed, cause.Error()); err != nil {
		logging.Error("Scan %d: failed to record failure: %v", sessionID, err)
	}
	metrics.ScansCompletedTotal.WithLabelValues("failed").Inc()
}
