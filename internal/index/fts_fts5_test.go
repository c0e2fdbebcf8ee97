//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries_fts`).Scan(&count); err != nil {
		t.Fatalf("entries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := EntryRow{ID: "fts", Path: "archive/fts.md", Title: "FTS Entry", Checksum: "f1", Tags: []string{"search"}, ArchivedAt: time.Now()}
	if err := db.UpsertEntry(row, "The archive provides powerful full-text search capabilities."); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "archive/fts.md" || results[0].ID != "fts" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEntry(EntryRow{ID: "gone", Path: "archive/gone.md", Checksum: "g", ArchivedAt: time.Now()}, "vanishing content")
	_ = db.DeleteEntry("archive/gone.md")

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Error("deleted entry still in FTS index")
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertEntry(EntryRow{ID: "evo", Path: "archive/evo.md", Title: "Old", Checksum: "1", ArchivedAt: now}, "original text")
	_ = db.UpsertEntry(EntryRow{ID: "evo", Path: "archive/evo.md", Title: "New", Checksum: "2", ArchivedAt: now}, "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
