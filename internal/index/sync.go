package index

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/dailynote/internal/checksum"
	"github.com/starford/dailynote/internal/parser"
	"github.com/starford/dailynote/internal/storage"
)

// idLayout mirrors archive.IDLayout; index cannot import archive without a cycle.
const idLayout = "2006-01-02_15-04-05"

// Sync walks the archive directory and brings the catalog up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the catalog
func Sync(db EntryIndex, store storage.Provider, dir string, logger *slog.Logger) error {
	metas, err := store.List(dir)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteEntry(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses an archived body and upserts it. The archive time comes
// from the timestamp identifier in the file name, falling back to modTime.
func IndexFile(db EntryIndex, p string, data []byte, modTime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	id := strings.TrimSuffix(path.Base(p), ".md")
	archivedAt := modTime
	if ts, err := time.ParseInLocation(idLayout, id, time.Local); err == nil {
		archivedAt = ts
	}
	return db.UpsertEntry(EntryRow{
		ID:         id,
		Path:       p,
		Title:      res.Title,
		Checksum:   checksum.Sum(data),
		Tags:       res.Tags,
		Links:      res.Links,
		ArchivedAt: archivedAt,
	}, string(data))
}
