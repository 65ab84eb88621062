package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// buildTree creates a small library layout for walk tests.
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := []string{
		"b.jpg",
		"a.png",
		"notes.txt",
		"clip.mp4",
		"sub/c.jpeg",
		"sub/deep/d.webp",
		"sub/skip.pdf",
		".trash/deleted.jpg",
		".hidden.jpg",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func collect(t *testing.T, root string, recursive bool) []string {
	t.Helper()
	var got []string
	err := Walk(root, recursive, func(path string, _ fs.FileInfo) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, rel)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	return got
}

func TestWalkRecursive(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	got := collect(t, root, true)
	want := []string{
		"a.png",
		"b.jpg",
		filepath.Join("sub", "c.jpeg"),
		filepath.Join("sub", "deep", "d.webp"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk order = %v, want %v", got, want)
	}
}

func TestWalkNonRecursive(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	got := collect(t, root, false)
	want := []string{"a.png", "b.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk order = %v, want %v", got, want)
	}
}

func TestWalkDeterministic(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	first := collect(t, root, true)
	second := collect(t, root, true)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Walk is not deterministic: %v vs %v", first, second)
	}
}

func TestWalkSkipsHiddenEntries(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	for _, path := range collect(t, root, true) {
		for _, part := range strings.Split(path, string(filepath.Separator)) {
			if len(part) > 0 && part[0] == '.' {
				t.Errorf("Walk yielded hidden path element in %s", path)
			}
		}
	}
}

func TestWalkEarlyStop(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	seen := 0
	err := Walk(root, true, func(string, fs.FileInfo) error {
		seen++
		return fs.SkipAll
	}, nil)
	if err != nil {
		t.Fatalf("Walk returned error on early stop: %v", err)
	}
	if seen != 1 {
		t.Errorf("Expected walk to stop after 1 file, saw %d", seen)
	}
}

func TestWalkVisitorError(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	boom := errors.New("boom")
	err := Walk(root, true, func(string, fs.FileInfo) error {
		return boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Errorf("Expected visitor error to propagate, got %v", err)
	}
}

func TestCount(t *testing.T) {
	t.Parallel()
	root := buildTree(t)

	tests := []struct {
		name      string
		recursive bool
		want      int
	}{
		{"recursive", true, 4},
		{"top level only", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Count(root, tt.recursive)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Count = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWalkMissingRoot(t *testing.T) {
	t.Parallel()

	called := false
	err := Walk(filepath.Join(t.TempDir(), "missing"), true, func(string, fs.FileInfo) error {
		t.Error("visitor should not be called for missing root")
		return nil
	}, func(string, error) {
		called = true
	})
	if err != nil {
		t.Fatalf("Walk should report missing root via onError, got %v", err)
	}
	if !called {
		t.Error("Expected onError to be called for missing root")
	}
}
