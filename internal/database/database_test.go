package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// newTestDB opens a fresh database in a temp directory.
func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return d
}

// insertRecord commits one record through the batch path, the same way the
// scanner does.
func insertRecord(t *testing.T, d *Database, rec *MediaRecord) *MediaRecord {
	t.Helper()
	tx, err := d.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	if err := d.UpsertRecord(tx, rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}
	if err := d.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch failed: %v", err)
	}

	stored, err := d.GetRecordByPath(context.Background(), rec.FilePath)
	if err != nil {
		t.Fatalf("GetRecordByPath failed: %v", err)
	}
	if stored == nil {
		t.Fatalf("record %s not found after upsert", rec.FilePath)
	}
	return stored
}

func testRecord(path string) *MediaRecord {
	year, month, day := 2023, 5, 14
	taken := time.Date(year, time.Month(month), day, 10, 30, 0, 0, time.UTC)
	return &MediaRecord{
		FilePath:     path,
		Filename:     filepath.Base(path),
		FolderPath:   filepath.Dir(path),
		FileSize:     1234,
		FileHash:     "d41d8cd98f00b204e9800998ecf8427e",
		ModifiedTime: time.Unix(0, 1700000000123456789),
		DateTaken:    &taken,
		Year:         &year,
		Month:        &month,
		Day:          &day,
		PHash:        "deadbeefcafe1234",
		DHash:        "0123456789abcdef",
		AHash:        "fedcba9876543210",
	}
}

func TestGetRecordByPathMissing(t *testing.T) {
	d := newTestDB(t)

	rec, err := d.GetRecordByPath(context.Background(), "/nope/missing.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for missing path, got %+v", rec)
	}
}

func TestUpsertRecordRoundTrip(t *testing.T) {
	d := newTestDB(t)

	want := testRecord("/photos/a.jpg")
	got := insertRecord(t, d, want)

	if got.ID == 0 {
		t.Error("expected non-zero id after insert")
	}
	if got.FilePath != want.FilePath || got.Filename != want.Filename {
		t.Errorf("path fields mismatch: %+v", got)
	}
	if got.FileSize != want.FileSize || got.FileHash != want.FileHash {
		t.Errorf("content fields mismatch: %+v", got)
	}
	if !got.ModifiedTime.Equal(want.ModifiedTime) {
		t.Errorf("modified time lost precision: got %v want %v", got.ModifiedTime, want.ModifiedTime)
	}
	if got.PHash != want.PHash {
		t.Errorf("phash = %q, want %q", got.PHash, want.PHash)
	}
	if got.Year == nil || *got.Year != 2023 {
		t.Errorf("year not stored: %+v", got.Year)
	}
}

func TestUpsertRecordUpdatePreservesFlags(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	first := insertRecord(t, d, testRecord("/photos/a.jpg"))
	if err := d.MarkRecordFavorite(ctx, first.ID); err != nil {
		t.Fatalf("MarkRecordFavorite failed: %v", err)
	}

	// Re-scan the same path with new content, as a replayed batch would
	updated := testRecord("/photos/a.jpg")
	updated.FileSize = 9999
	second := insertRecord(t, d, updated)

	if second.ID != first.ID {
		t.Errorf("upsert created a new row: id %d then %d", first.ID, second.ID)
	}
	if second.FileSize != 9999 {
		t.Errorf("file size not updated: %d", second.FileSize)
	}
	if !second.IsFavorite {
		t.Error("favorite flag lost on upsert")
	}
	if !second.ScannedAt.Equal(first.ScannedAt) {
		t.Error("scanned_at changed on upsert")
	}
}

func TestListFingerprinted(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	a := insertRecord(t, d, testRecord("/photos/a.jpg"))
	insertRecord(t, d, testRecord("/photos/b.jpg"))

	noHash := testRecord("/photos/c.jpg")
	noHash.PHash = ""
	insertRecord(t, d, noHash)

	deleted := insertRecord(t, d, testRecord("/photos/d.jpg"))
	if err := d.MarkRecordDeleted(ctx, deleted.ID, "/photos/.trash/d.jpg", "/photos/.trash"); err != nil {
		t.Fatal(err)
	}

	other := testRecord("/elsewhere/e.jpg")
	insertRecord(t, d, other)

	records, err := d.ListFingerprinted(ctx, "/photos")
	if err != nil {
		t.Fatalf("ListFingerprinted failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 fingerprinted records, got %d", len(records))
	}
	if records[0].ID != a.ID {
		t.Error("expected stored (insertion) order")
	}

	all, err := d.ListFingerprinted(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records with no prefix, got %d", len(all))
	}
}

func TestMarkRecordDeleted(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	rec := insertRecord(t, d, testRecord("/photos/a.jpg"))
	if err := d.MarkRecordDeleted(ctx, rec.ID, "/photos/.trash/a.jpg", "/photos/.trash"); err != nil {
		t.Fatalf("MarkRecordDeleted failed: %v", err)
	}

	stored, err := d.GetRecordByPath(ctx, "/photos/.trash/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("record not reachable at its trash path")
	}
	if !stored.IsDeleted {
		t.Error("deleted flag not set")
	}
	if stored.FolderPath != "/photos/.trash" {
		t.Errorf("folder path = %q", stored.FolderPath)
	}
}

func TestSessionLifecycle(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	s, err := d.CreateSession(ctx, "/photos", 10)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if s.State != ScanStateInProgress {
		t.Errorf("new session state = %s", s.State)
	}

	active, err := d.GetActiveSessionForFolder(ctx, "/photos")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != s.ID {
		t.Fatal("expected the new session to be active for its folder")
	}

	if err := d.SetSessionState(ctx, s.ID, ScanStateCompleted, ""); err != nil {
		t.Fatalf("SetSessionState failed: %v", err)
	}

	done, err := d.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.State != ScanStateCompleted {
		t.Errorf("state = %s, want completed", done.State)
	}
	if done.CompletedAt == nil {
		t.Error("terminal state did not stamp completed_at")
	}

	active, err = d.GetActiveSessionForFolder(ctx, "/photos")
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Error("completed session still reported active")
	}
}

func TestSessionProgressAndCursor(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	s, err := d.CreateSession(ctx, "/photos", 100)
	if err != nil {
		t.Fatal(err)
	}

	tx, err := d.BeginBatch()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateSessionProgress(tx, s.ID, 40, 2, "/photos/m.jpg"); err != nil {
		t.Fatalf("UpdateSessionProgress failed: %v", err)
	}
	if err := d.EndBatch(tx, nil); err != nil {
		t.Fatal(err)
	}

	stored, err := d.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ProcessedFiles != 40 || stored.FailedFiles != 2 {
		t.Errorf("counters = %d/%d", stored.ProcessedFiles, stored.FailedFiles)
	}
	if stored.LastProcessedFile != "/photos/m.jpg" {
		t.Errorf("cursor = %q", stored.LastProcessedFile)
	}
	if pct := stored.ProgressPercent(); pct != 40 {
		t.Errorf("progress = %v, want 40", pct)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	d := newTestDB(t)

	if _, err := d.GetSession(context.Background(), 12345); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMarkOrphanedSessionsInterrupted(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	running, err := d.CreateSession(ctx, "/photos", 10)
	if err != nil {
		t.Fatal(err)
	}
	finished, err := d.CreateSession(ctx, "/other", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetSessionState(ctx, finished.ID, ScanStateCompleted, ""); err != nil {
		t.Fatal(err)
	}

	n, err := d.MarkOrphanedSessionsInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkOrphanedSessionsInterrupted failed: %v", err)
	}
	if n != 1 {
		t.Errorf("recovered %d sessions, want 1", n)
	}

	stored, err := d.GetSession(ctx, running.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.State != ScanStateInterrupted {
		t.Errorf("orphan state = %s, want interrupted", stored.State)
	}
}

func TestGroupLifecycle(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	missing, err := d.GetGroupByHash(ctx, "deadbeefcafe1234")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown group hash")
	}

	g, err := d.CreateGroup(ctx, "deadbeefcafe1234", 3)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.Status != GroupStatusPending {
		t.Errorf("new group status = %s", g.Status)
	}

	byHash, err := d.GetGroupByHash(ctx, "deadbeefcafe1234")
	if err != nil {
		t.Fatal(err)
	}
	if byHash == nil || byHash.ID != g.ID {
		t.Fatal("group not found by hash")
	}

	if err := d.SetGroupStatus(ctx, g.ID, GroupStatusResolved); err != nil {
		t.Fatal(err)
	}

	pending, err := d.ListGroups(ctx, GroupStatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending groups, got %d", len(pending))
	}

	resolved, err := d.ListGroups(ctx, GroupStatusResolved)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 {
		t.Errorf("expected 1 resolved group, got %d", len(resolved))
	}
}

func TestAssignDuplicateGroupAndMembers(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	a := insertRecord(t, d, testRecord("/photos/a.jpg"))
	b := insertRecord(t, d, testRecord("/photos/b.jpg"))
	insertRecord(t, d, testRecord("/photos/c.jpg"))

	g, err := d.CreateGroup(ctx, a.PHash, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AssignDuplicateGroup(ctx, []int64{a.ID, b.ID}, g.ID); err != nil {
		t.Fatalf("AssignDuplicateGroup failed: %v", err)
	}

	members, err := d.GetGroupMembers(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Deleted members drop out of the live view
	if err := d.MarkRecordDeleted(ctx, b.ID, "/photos/.trash/b.jpg", "/photos/.trash"); err != nil {
		t.Fatal(err)
	}
	members, err = d.GetGroupMembers(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Errorf("expected 1 live member after delete, got %d", len(members))
	}
}

func TestQueryMedia(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	insertRecord(t, d, testRecord("/photos/a.jpg"))

	old := testRecord("/photos/old.jpg")
	year, month, day := 2019, 12, 31
	taken := time.Date(year, time.Month(month), day, 8, 0, 0, 0, time.UTC)
	old.DateTaken, old.Year, old.Month, old.Day = &taken, &year, &month, &day
	insertRecord(t, d, old)

	byYear, err := d.QueryMedia(ctx, MediaQuery{Year: 2023})
	if err != nil {
		t.Fatal(err)
	}
	if len(byYear) != 1 || byYear[0].FilePath != "/photos/a.jpg" {
		t.Errorf("year filter returned %d records", len(byYear))
	}

	all, err := d.QueryMedia(ctx, MediaQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	// Newest capture date first
	if all[0].FilePath != "/photos/a.jpg" {
		t.Errorf("expected newest first, got %s", all[0].FilePath)
	}

	limited, err := d.QueryMedia(ctx, MediaQuery{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit not applied: got %d", len(limited))
	}
}

func TestGetStats(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	insertRecord(t, d, testRecord("/photos/a.jpg"))
	if _, err := d.CreateSession(ctx, "/photos", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateGroup(ctx, "deadbeefcafe1234", 2); err != nil {
		t.Fatal(err)
	}

	stats, err := d.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalFiles != 1 || stats.TotalGroups != 1 || stats.TotalSessions != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
