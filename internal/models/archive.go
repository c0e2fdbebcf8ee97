// Package models defines the domain types for dailynote.
package models

import "time"

// ArchiveEntry is one archived snapshot of the Today section. It is written
// once and never modified.
type ArchiveEntry struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"` // relative to the repository root, forward slashes
	Body       string    `json:"body"`
	Checksum   string    `json:"checksum"`
	ArchivedAt time.Time `json:"archived_at"`
}

// ArchiveLink is a single index line in the Archive section.
type ArchiveLink struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// EntryMetadata is a lightweight representation returned by list operations.
type EntryMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
