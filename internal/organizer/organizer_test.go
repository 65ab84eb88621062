package organizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photo-dedup/internal/database"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	d, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
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

// addPhoto writes a file and its record with the given capture date.
// A nil taken leaves the record without a date.
func addPhoto(t *testing.T, d *database.Database, dir, name string, taken *time.Time) *database.MediaRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &database.MediaRecord{
		FilePath:     path,
		Filename:     name,
		FolderPath:   dir,
		FileSize:     int64(len(name)),
		FileHash:     "d41d8cd98f00b204e9800998ecf8427e",
		ModifiedTime: time.Unix(0, 1700000000000000000),
		DateTaken:    taken,
	}
	if taken != nil {
		y, m, day := taken.Year(), int(taken.Month()), taken.Day()
		rec.Year, rec.Month, rec.Day = &y, &m, &day
	}

	tx, err := d.BeginBatch()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertRecord(tx, rec); err != nil {
		t.Fatal(err)
	}
	if err := d.EndBatch(tx, nil); err != nil {
		t.Fatal(err)
	}

	stored, err := d.GetRecordByPath(context.Background(), path)
	if err != nil || stored == nil {
		t.Fatalf("record not stored: %v", err)
	}
	return stored
}

func may2023() *time.Time {
	taken := time.Date(2023, time.May, 14, 10, 0, 0, 0, time.UTC)
	return &taken
}

func TestDestinationPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		taken time.Time
		want  string
	}{
		{"may", time.Date(2023, time.May, 14, 0, 0, 0, 0, time.UTC), "/lib/2023/05-May/p.jpg"},
		{"january", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), "/lib/2020/01-January/p.jpg"},
		{"december", time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC), "/lib/1999/12-December/p.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := destinationPath("/lib", tt.taken, "p.jpg"); got != tt.want {
				t.Errorf("destinationPath = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOrganizeMovesByDate(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	addPhoto(t, d, dir, "vacation.jpg", may2023())

	result, err := New(d).Organize(ctx, dir, false)
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	if !result.Success || result.FilesMoved != 1 {
		t.Fatalf("result = %+v", result)
	}

	dest := filepath.Join(dir, "2023", "05-May", "vacation.jpg")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("file not at destination: %v", err)
	}

	stored, err := d.GetRecordByPath(ctx, dest)
	if err != nil || stored == nil {
		t.Fatalf("record not found at new path: %v", err)
	}
	if !stored.IsOrganized {
		t.Error("record not marked organized")
	}
	if stored.FolderPath != filepath.Join(dir, "2023", "05-May") {
		t.Errorf("folder path = %s", stored.FolderPath)
	}
}

func TestOrganizeSkipsUndatedFiles(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	rec := addPhoto(t, d, dir, "nodate.jpg", nil)

	result, err := New(d).Organize(ctx, dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesMoved != 0 || result.FilesSkipped != 1 {
		t.Errorf("result = %+v", result)
	}
	if _, err := os.Stat(rec.FilePath); err != nil {
		t.Errorf("undated file was moved: %v", err)
	}
}

func TestOrganizeDryRun(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	rec := addPhoto(t, d, dir, "vacation.jpg", may2023())

	result, err := New(d).Organize(ctx, dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.FilesMoved != 0 {
		t.Fatalf("dry run moved files: %+v", result)
	}
	if len(result.Preview) != 1 {
		t.Fatalf("expected 1 preview item, got %d", len(result.Preview))
	}
	want := filepath.Join(dir, "2023", "05-May", "vacation.jpg")
	if result.Preview[0].DestinationPath != want {
		t.Errorf("preview destination = %s, want %s", result.Preview[0].DestinationPath, want)
	}

	// File untouched
	if _, err := os.Stat(rec.FilePath); err != nil {
		t.Errorf("dry run disturbed the file: %v", err)
	}
}

func TestOrganizeCollisionCounter(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	addPhoto(t, d, dir, "p.jpg", may2023())

	// Destination already holds an unrelated file with the same name
	destDir := filepath.Join(dir, "2023", "05-May")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(destDir, "p.jpg"), []byte("other"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(d).Organize(ctx, dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.FilesMoved != 1 {
		t.Fatalf("result = %+v", result)
	}

	if _, err := os.Stat(filepath.Join(destDir, "p_1.jpg")); err != nil {
		t.Errorf("expected collision suffix p_1.jpg: %v", err)
	}
}

func TestOrganizeIdempotent(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	addPhoto(t, d, dir, "vacation.jpg", may2023())

	o := New(d)
	if _, err := o.Organize(ctx, dir, false); err != nil {
		t.Fatal(err)
	}

	// Second pass finds nothing unorganized
	result, err := o.Organize(ctx, dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesMoved != 0 {
		t.Errorf("second pass moved %d files", result.FilesMoved)
	}
}

func TestOrganizeRepointsFavoriteSymlink(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	rec := addPhoto(t, d, dir, "best.jpg", may2023())
	if err := d.MarkRecordFavorite(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}

	// Existing favorites link points at the pre-organize location
	favDir := filepath.Join(dir, "favorites")
	if err := os.MkdirAll(favDir, 0o755); err != nil {
		t.Fatal(err)
	}
	linkPath := filepath.Join(favDir, "best.jpg")
	if err := os.Symlink(rec.FilePath, linkPath); err != nil {
		t.Fatal(err)
	}

	if _, err := New(d).Organize(ctx, dir, false); err != nil {
		t.Fatal(err)
	}

	target, err := os.Readlink(linkPath)
	if err != nil {
		t.Fatalf("favorites link missing after organize: %v", err)
	}
	want := filepath.Join(dir, "2023", "05-May", "best.jpg")
	if target != want {
		t.Errorf("link target = %s, want %s", target, want)
	}
}

func TestOrganizeMissingFolder(t *testing.T) {
	d := newTestDB(t)

	if _, err := New(d).Organize(context.Background(), "/definitely/not/there", false); err == nil {
		t.Error("expected error for missing folder")
	}
}
