package scanner

import (
	"context"
	"fmt"
	"os"
	"sync"

	"photo-dedup/internal/database"
	"photo-dedup/internal/fingerprint"
	"photo-dedup/internal/logging"
	"photo-dedup/internal/metrics"
	"photo-dedup/internal/workers"
)

const (
	// DefaultBatchSize is the number of processed files per commit. The
	// resume cursor only advances at these boundaries, so it also bounds
	// how much work can be replayed after a crash.
	DefaultBatchSize = 100

	// maxWorkers caps the extraction pool regardless of CPU count.
	maxWorkers = 8
)

// Scanner drives incremental scans: discovery, change detection,
// fingerprint extraction, and batched persistence, with the scan session
// record as the single source of truth for what is running.
type Scanner struct {
	db          *database.Database
	extractor   fingerprint.Extractor
	batchSize   int
	workerCount int

	// mu serializes session admission so two concurrent start requests
	// for the same folder cannot both create a session. Scan state itself
	// lives in the database, never here.
	mu sync.Mutex
	wg sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a Scanner. batchSize <= 0 selects DefaultBatchSize.
func New(db *database.Database, extractor fingerprint.Extractor, batchSize int) *Scanner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scanner{
		db:          db,
		extractor:   extractor,
		batchSize:   batchSize,
		workerCount: workers.ForCPU(maxWorkers),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// StartOptions controls a scan start request.
type StartOptions struct {
	FolderPath string
	Recursive  bool
	// Restart cancels any active session for the folder and starts fresh
	// instead of resuming it.
	Restart bool
}

// StartScan starts, resumes, or observes a scan for a folder:
//
//   - no active session: a new one is created and a scan launches.
//   - active in_progress session, no restart: it is returned unchanged.
//   - interrupted session, no restart: it flips back to in_progress and
//     the scan resumes from its cursor.
//   - restart requested: the active session is cancelled and a fresh one
//     starts from the beginning.
func (s *Scanner) StartScan(ctx context.Context, opts StartOptions) (*database.ScanSession, error) {
	info, err := os.Stat(opts.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("folder not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a folder: %s", opts.FolderPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.db.GetActiveSessionForFolder(ctx, opts.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	if existing != nil && !opts.Restart {
		if existing.State == database.ScanStateInProgress {
			logging.Info("Scan already active for %s (session %d)", opts.FolderPath, existing.ID)
			return existing, nil
		}

		// interrupted → resume from the stored cursor
		if err := s.db.SetSessionState(ctx, existing.ID, database.ScanStateInProgress, ""); err != nil {
			return nil, fmt.Errorf("failed to resume session %d: %w", existing.ID, err)
		}
		existing.State = database.ScanStateInProgress
		logging.Info("Resuming interrupted scan %d for %s from %q",
			existing.ID, opts.FolderPath, existing.LastProcessedFile)
		s.launch(existing, opts.Recursive)
		return existing, nil
	}

	if existing != nil {
		if err := s.db.SetSessionState(ctx, existing.ID, database.ScanStateCancelled, "superseded by restart"); err != nil {
			return nil, fmt.Errorf("failed to cancel session %d for restart: %w", existing.ID, err)
		}
		logging.Info("Cancelled session %d of %s for restart", existing.ID, opts.FolderPath)
		metrics.ScansCompletedTotal.WithLabelValues("cancelled").Inc()
	}

	session, err := s.db.CreateSession(ctx, opts.FolderPath, 0)
	if err != nil {
		return nil, err
	}
	logging.Info("Starting scan %d over %s (recursive=%v)", session.ID, opts.FolderPath, opts.Recursive)
	s.launch(session, opts.Recursive)
	return session, nil
}

// launch runs the scan loop in the background.
func (s *Scanner) launch(session *database.ScanSession, recursive bool) {
	metrics.ScansStartedTotal.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(s.baseCtx, session, recursive)
	}()
}

// Cancel requests cancellation of a session. On an in_progress or
// interrupted session it transitions to cancelled; the running loop
// observes this at its next batch boundary and stops. On any other state
// it is a no-op that reports the current state.
func (s *Scanner) Cancel(ctx context.Context, sessionID int64) (*database.ScanSession, error) {
	session, err := s.db.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case database.ScanStateInProgress, database.ScanStateInterrupted:
		wasInterrupted := session.State == database.ScanStateInterrupted
		if err := s.db.SetSessionState(ctx, sessionID, database.ScanStateCancelled, ""); err != nil {
			return nil, fmt.Errorf("failed to cancel session %d: %w", sessionID, err)
		}
		session.State = database.ScanStateCancelled
		logging.Info("Scan %d cancelled", sessionID)
		if wasInterrupted {
			// no loop is running to observe this one
			metrics.ScansCompletedTotal.WithLabelValues("cancelled").Inc()
		}
	default:
		logging.Debug("Cancel on session %d is a no-op in state %s", sessionID, session.State)
	}

	return session, nil
}

// Status returns the current snapshot of a session.
func (s *Scanner) Status(ctx context.Context, sessionID int64) (*database.ScanSession, error) {
	return s.db.GetSession(ctx, sessionID)
}

// RecoverOrphans marks sessions left in_progress by a dead process as
// interrupted so they become explicitly resumable. Called once at startup
// before any scan is admitted.
func (s *Scanner) RecoverOrphans(ctx context.Context) (int64, error) {
	n, err := s.db.MarkOrphanedSessionsInterrupted(ctx)
	if err != nil {
		return 0, fmt.Errorf("orphan recovery failed: %w", err)
	}
	if n > 0 {
		logging.Warn("Marked %d orphaned scan session(s) as interrupted", n)
	}
	return n, nil
}

// Shutdown stops all running scans and waits for them to persist their
// state. Each loop observes the cancellation at its next batch boundary
// and marks its session interrupted.
func (s *Scanner) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
