// Package archive moves the Today section into timestamped archive entries
// and maintains the Archive section's link index.
package archive

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/checksum"
	"github.com/starford/dailynote/internal/document"
	"github.com/starford/dailynote/internal/models"
	"github.com/starford/dailynote/internal/storage"
)

// IDLayout formats entry identifiers. Fixed width, so lexicographic order is
// chronological order.
const IDLayout = "2006-01-02_15-04-05"

// Clock returns the current time.
type Clock func() time.Time

// TodayBody returns the trimmed text between the Today heading and the end
// of its section. An empty result means there is nothing to archive.
func TodayBody(doc *document.Document) string {
	s, err := doc.Find(document.SectionToday)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(doc.Body(s), "\n"))
}

// ParseEntryID returns the timestamp encoded in an identifier.
func ParseEntryID(id string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(IDLayout, id, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("archive: invalid entry id %q: %w", id, err)
	}
	return t, nil
}

// EntryPath returns the repository-relative file path for id.
func EntryPath(dir, id string) string {
	return path.Join(dir, id+".md")
}

// Archiver persists Today bodies as standalone files under dir.
type Archiver struct {
	store storage.Provider
	dir   string
	clock Clock
}

// NewArchiver creates an Archiver writing into dir (relative to the store
// root). A nil clock uses time.Now.
func NewArchiver(store storage.Provider, dir string, clock Clock) *Archiver {
	if clock == nil {
		clock = time.Now
	}
	return &Archiver{store: store, dir: path.Clean(dir), clock: clock}
}

// Dir returns the archive directory relative to the repository root.
func (a *Archiver) Dir() string {
	return a.dir
}

// Prepare builds the entry for body without touching disk.
func (a *Archiver) Prepare(body string) models.ArchiveEntry {
	now := a.clock().Truncate(time.Second)
	id := now.Format(IDLayout)
	return models.ArchiveEntry{
		ID:         id,
		Path:       EntryPath(a.dir, id),
		Body:       body,
		Checksum:   checksum.Sum([]byte(body)),
		ArchivedAt: now,
	}
}

// Persist writes the entry body verbatim. An entry whose identifier is
// already taken fails instead of overwriting the earlier snapshot.
func (a *Archiver) Persist(entry models.ArchiveEntry) error {
	if err := a.store.Create(entry.Path, []byte(entry.Body)); err != nil {
		return fmt.Errorf("%w: %s: %w", apperr.ErrArchiveWrite, entry.Path, err)
	}
	return nil
}

// Discard removes a persisted entry whose document update did not land.
func (a *Archiver) Discard(entry models.ArchiveEntry) error {
	if err := a.store.Remove(entry.Path); err != nil {
		return fmt.Errorf("%w: remove %s: %w", apperr.ErrArchiveWrite, entry.Path, err)
	}
	return nil
}

// Archive prepares and persists an entry for body in one step.
func (a *Archiver) Archive(body string) (models.ArchiveEntry, error) {
	entry := a.Prepare(body)
	if err := a.Persist(entry); err != nil {
		return models.ArchiveEntry{}, err
	}
	return entry, nil
}
