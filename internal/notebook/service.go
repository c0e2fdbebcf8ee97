// Package notebook coordinates the document, the archive directory, and the
// optional entry catalog. It owns the single write-back of the document.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/archive"
	"github.com/starford/dailynote/internal/checksum"
	"github.com/starford/dailynote/internal/document"
	"github.com/starford/dailynote/internal/index"
	"github.com/starford/dailynote/internal/models"
	"github.com/starford/dailynote/internal/storage"
)

var errNoCatalog = errors.New("notebook: no catalog configured")

// UpdateResult describes one successful document update.
type UpdateResult struct {
	DocumentPath string
	// Entry is nil when the Today section was empty and nothing was archived.
	Entry    *models.ArchiveEntry
	Checksum string
}

// Service coordinates storage, archive, and catalog operations.
type Service struct {
	store    storage.Provider
	archiver *archive.Archiver
	db       index.EntryIndex // may be nil
	docPath  string
	logger   *slog.Logger
}

// NewService creates a notebook service for the document at docPath. db may
// be nil when no catalog is kept.
func NewService(store storage.Provider, archiver *archive.Archiver, db index.EntryIndex, docPath string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, archiver: archiver, db: db, docPath: docPath, logger: logger}
}

// UpdateToday archives the current Today body (if any), links it from the
// Archive section, and replaces Today with content. All edits happen in
// memory; the archive entry and then the document are written only after
// the new document validates.
func (s *Service) UpdateToday(_ context.Context, content string) (*UpdateResult, error) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	doc = doc.NormalizeLineEndings()

	var entry *models.ArchiveEntry
	if body := archive.TodayBody(doc); body != "" {
		e := s.archiver.Prepare(body)
		entry = &e
		doc = archive.EnsureArchiveSection(doc)
		if doc, err = archive.InsertLink(doc, e); err != nil {
			return nil, err
		}
	}

	lines := append([]string{""}, document.SplitLines(content)...)
	lines = append(lines, "")
	if doc, err = doc.ReplaceBody(document.SectionToday, lines); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("new content breaks the document layout: %w", err)
	}
	// A heading or an unclosed fence in content would move the section bounds.
	if archive.TodayBody(doc) != content {
		return nil, fmt.Errorf("%w: new content changes the section layout", apperr.ErrMalformedDocument)
	}

	if entry != nil {
		if err := s.archiver.Persist(*entry); err != nil {
			return nil, err
		}
		s.logger.Info("archived today's content",
			slog.String("id", entry.ID),
			slog.String("path", entry.Path))
	}

	rendered := []byte(doc.Render())
	if err := s.store.Write(s.docPath, rendered); err != nil {
		// The old body is still in Today, so the entry must go or the next
		// run archives it twice.
		if entry != nil {
			if rmErr := s.archiver.Discard(*entry); rmErr != nil {
				s.logger.Error("orphaned archive entry",
					slog.String("path", entry.Path),
					slog.String("error", rmErr.Error()))
			}
		}
		return nil, fmt.Errorf("notebook: write document: %w", err)
	}
	s.logger.Info("document updated",
		slog.String("path", s.docPath),
		slog.String("checksum", checksum.Short(rendered)))

	if entry != nil {
		s.indexEntry(*entry)
	}

	return &UpdateResult{DocumentPath: s.docPath, Entry: entry, Checksum: checksum.Sum(rendered)}, nil
}

// Today returns the current Today body.
func (s *Service) Today(_ context.Context) (string, error) {
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	return archive.TodayBody(doc), nil
}

// Links returns the Archive section's links, most recent first.
func (s *Service) Links(_ context.Context) ([]models.ArchiveLink, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return archive.Links(doc), nil
}

// ReadEntry returns the archived body for an identifier.
func (s *Service) ReadEntry(_ context.Context, id string) (string, error) {
	if _, err := archive.ParseEntryID(id, nil); err != nil {
		return "", err
	}
	data, err := s.store.Read(archive.EntryPath(s.archiver.Dir(), id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// ListArchive returns catalog rows newest first.
func (s *Service) ListArchive(_ context.Context, limit, offset int, tag string) ([]index.EntryRow, int, error) {
	if s.db == nil {
		return nil, 0, errNoCatalog
	}
	return s.db.ListEntries(limit, offset, tag)
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, errNoCatalog
	}
	return s.db.Search(query, limit)
}

// Reindex brings the catalog in line with the archive directory.
func (s *Service) Reindex(_ context.Context) error {
	if s.db == nil {
		return errNoCatalog
	}
	return index.Sync(s.db, s.store, s.archiver.Dir(), s.logger)
}

func (s *Service) load() (*document.Document, error) {
	data, err := s.store.Read(s.docPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, s.docPath)
		}
		return nil, err
	}
	doc, err := document.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.docPath, err)
	}
	return doc, nil
}

// indexEntry keeps the catalog current. Failures are only logged; Reindex
// rebuilds the catalog from disk.
func (s *Service) indexEntry(e models.ArchiveEntry) {
	if s.db == nil {
		return
	}
	if err := index.IndexFile(s.db, e.Path, []byte(e.Body), e.ArchivedAt); err != nil {
		s.logger.Warn("catalog update failed",
			slog.String("path", e.Path),
			slog.String("error", err.Error()))
	}
}
