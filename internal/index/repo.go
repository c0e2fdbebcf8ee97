package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/dailynote/internal/apperr"
)

// EntryRow represents a row in the entries table.
type EntryRow struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	Tags       []string  `json:"tags"`
	Links      []string  `json:"links,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertEntry inserts or replaces an entry and its FTS row within a transaction.
func (db *DB) UpsertEntry(e EntryRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(e.Tags))
	linksJSON, _ := json.Marshal(nonNil(e.Links))

	_, err = tx.Exec(`
		INSERT INTO entries (id, path, title, checksum, tags, links, body, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id          = excluded.id,
			title       = excluded.title,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			links       = excluded.links,
			body        = excluded.body,
			archived_at = excluded.archived_at
	`, e.ID, e.Path, e.Title, e.Checksum, string(tagsJSON), string(linksJSON), body, e.ArchivedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, e.Path, e.Title, body, e.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteEntry removes an entry and its FTS row.
func (db *DB) DeleteEntry(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete entry: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for an entry path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entries WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetEntry returns the catalog row for an entry identifier.
func (db *DB) GetEntry(id string) (*EntryRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, path, title, checksum, tags, links, archived_at
		FROM entries WHERE id = ?
		ORDER BY path LIMIT 1
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns entries newest first, optionally filtered by tag, along
// with the total number of matching rows.
func (db *DB) ListEntries(limit, offset int, tag string) ([]EntryRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(entries.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count entries: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, path, title, checksum, tags, links, archived_at
		FROM entries `+where+`
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list entries: %w", err)
	}
	defer rows.Close()

	var out []EntryRow
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every indexed entry.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*EntryRow, error) {
	var (
		e                EntryRow
		tagsRaw, linkRaw string
	)
	if err := s.Scan(&e.ID, &e.Path, &e.Title, &e.Checksum, &tagsRaw, &linkRaw, &e.ArchivedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tagsRaw), &e.Tags)
	_ = json.Unmarshal([]byte(linkRaw), &e.Links)
	e.Tags = nonNil(e.Tags)
	return &e, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
