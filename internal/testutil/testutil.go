// Package testutil provides shared test helpers for setting up repositories and catalogs.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/dailynote/internal/index"
	"github.com/starford/dailynote/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRepo creates a temporary repository directory holding README.md with
// the given content, and a storage.FS rooted at it.
func TestRepo(t *testing.T, readme string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write("README.md", []byte(readme)); err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock returns a clock that starts at start and advances by step on every call.
func Clock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}
