package archive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/dailynote/internal/document"
	"github.com/starford/dailynote/internal/models"
)

var linkRe = regexp.MustCompile(`^- \[([^\]]+)\]\(([^)]+)\)\s*$`)

// FormatLink renders the Archive section line for an entry.
func FormatLink(entry models.ArchiveEntry) string {
	return fmt.Sprintf("- [%s](%s)", entry.ID, entry.Path)
}

// ParseLink recognizes an Archive section link line.
func ParseLink(line string) (models.ArchiveLink, bool) {
	m := linkRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return models.ArchiveLink{}, false
	}
	return models.ArchiveLink{ID: m[1], Path: m[2]}, true
}

// EnsureArchiveSection appends an Archive heading with an empty body when the
// document has none.
func EnsureArchiveSection(doc *document.Document) *document.Document {
	if doc.Has(document.SectionArchive) {
		return doc
	}
	if n := len(doc.Lines); n > 0 && strings.TrimSpace(doc.Lines[n-1]) != "" {
		return doc.Append("", document.ArchiveHeading)
	}
	return doc.Append(document.ArchiveHeading)
}

// InsertLink adds the entry's link as the first line after the Archive
// heading, so the index reads most-recent-first.
func InsertLink(doc *document.Document, entry models.ArchiveEntry) (*document.Document, error) {
	s, err := doc.Find(document.SectionArchive)
	if err != nil {
		return nil, err
	}
	at := s.BodyStart()
	return doc.Replace(at, at, []string{FormatLink(entry)}), nil
}

// Links lists the Archive section's link lines in document order.
func Links(doc *document.Document) []models.ArchiveLink {
	s, err := doc.Find(document.SectionArchive)
	if err != nil {
		return nil
	}
	var out []models.ArchiveLink
	for _, line := range doc.Body(s) {
		if l, ok := ParseLink(line); ok {
			out = append(out, l)
		}
	}
	return out
}
