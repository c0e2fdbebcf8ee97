package index

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog", "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&count); err != nil {
		t.Fatalf("entries table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	row := EntryRow{
		ID:         "2024-01-02_03-04-05",
		Path:       "archive/2024-01-02_03-04-05.md",
		Title:      "Morning",
		Checksum:   "abc123",
		Tags:       []string{"go"},
		ArchivedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := db.UpsertEntry(row, "morning pages"); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	cs, err := db.GetChecksum(row.Path)
	if err != nil || cs != "abc123" {
		t.Fatalf("GetChecksum = %q, %v", cs, err)
	}
	got, err := db.GetEntry(row.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Title != "Morning" || len(got.Tags) != 1 || got.Tags[0] != "go" {
		t.Errorf("entry = %+v", got)
	}
	if !got.ArchivedAt.Equal(row.ArchivedAt) {
		t.Errorf("archived_at = %v, want %v", got.ArchivedAt, row.ArchivedAt)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetEntry("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestDeleteEntry(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEntry(EntryRow{ID: "x", Path: "archive/x.md", Checksum: "x", ArchivedAt: time.Now()}, "body")
	if err := db.DeleteEntry("archive/x.md"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if cs, _ := db.GetChecksum("archive/x.md"); cs != "" {
		t.Errorf("deleted entry still has checksum %q", cs)
	}
}

func TestListEntries_NewestFirstAndTagFilter(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertEntry(EntryRow{ID: "2024-01-01_00-00-00", Path: "archive/2024-01-01_00-00-00.md", Tags: []string{"work"}, ArchivedAt: now}, "a")
	_ = db.UpsertEntry(EntryRow{ID: "2024-01-03_00-00-00", Path: "archive/2024-01-03_00-00-00.md", Tags: []string{"home"}, ArchivedAt: now}, "c")
	_ = db.UpsertEntry(EntryRow{ID: "2024-01-02_00-00-00", Path: "archive/2024-01-02_00-00-00.md", Tags: []string{"work"}, ArchivedAt: now}, "b")

	rows, total, err := db.ListEntries(10, 0, "")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total = %d, rows = %d", total, len(rows))
	}
	if rows[0].ID != "2024-01-03_00-00-00" || rows[2].ID != "2024-01-01_00-00-00" {
		t.Errorf("order = %s, %s, %s", rows[0].ID, rows[1].ID, rows[2].ID)
	}

	rows, total, err = db.ListEntries(1, 0, "work")
	if err != nil {
		t.Fatalf("ListEntries(tag): %v", err)
	}
	if total != 2 || len(rows) != 1 || rows[0].ID != "2024-01-02_00-00-00" {
		t.Errorf("tag filter: total = %d, rows = %+v", total, rows)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEntry(EntryRow{ID: "s", Path: "archive/s.md", Title: "Search Me", Checksum: "1", ArchivedAt: time.Now()}, "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "archive/s.md" || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for archive/s.md", results)
	}
}

func TestSync_AddsAndRemoves(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("archive/2024-05-01_08-00-00.md", []byte("# Standup\n#team notes"))
	_ = store.Write("archive/2024-05-02_08-00-00.md", []byte("second day"))
	_ = db.UpsertEntry(EntryRow{ID: "stale", Path: "archive/stale.md", Checksum: "s", ArchivedAt: time.Now()}, "gone")

	if err := Sync(db, store, "archive", quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	sums, _ := db.AllChecksums()
	if len(sums) != 2 {
		t.Fatalf("indexed = %d, want 2", len(sums))
	}
	if _, ok := sums["archive/stale.md"]; ok {
		t.Error("stale entry not removed")
	}
	e, err := db.GetEntry("2024-05-01_08-00-00")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if e.Title != "Standup" || len(e.Tags) != 1 || e.Tags[0] != "team" {
		t.Errorf("entry = %+v", e)
	}
	want := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	if !e.ArchivedAt.Equal(want) {
		t.Errorf("archived_at = %v, want %v", e.ArchivedAt, want)
	}
}
