// Package document models a heading-delimited text file as an ordered line
// sequence with computed Today/Archive sections.
package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/dailynote/internal/apperr"
)

// Recognized heading lines.
const (
	TodayHeading   = "# Today's Content"
	ArchiveHeading = "# Archive"
)

var fenceRe = regexp.MustCompile("^[ \t]{0,3}(```|~~~)")

// ErrSectionNotFound is returned by Find when the named heading is absent.
var ErrSectionNotFound = errors.New("section not found")

// SectionName identifies a logical span of the document.
type SectionName int

const (
	// SectionOther is the preamble before the Today heading.
	SectionOther SectionName = iota
	SectionToday
	SectionArchive
)

func (n SectionName) String() string {
	switch n {
	case SectionToday:
		return "today"
	case SectionArchive:
		return "archive"
	default:
		return "other"
	}
}

// Section is a half-open line range [Start, End). For Today and Archive,
// Start is the heading line itself.
type Section struct {
	Name  SectionName
	Start int
	End   int
}

// BodyStart returns the first line after the heading.
func (s Section) BodyStart() int {
	if s.Name == SectionOther {
		return s.Start
	}
	return s.Start + 1
}

// Document is the full text file as lines, without the final newline.
type Document struct {
	Lines []string
}

// Parse splits text into lines and checks the section layout.
func Parse(text string) (*Document, error) {
	text = strings.TrimSuffix(text, "\n")
	doc := &Document{Lines: strings.Split(text, "\n")}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Render joins the lines with a single trailing newline.
func (d *Document) Render() string {
	return strings.Join(d.Lines, "\n") + "\n"
}

// Validate checks that exactly one Today heading exists, at most one Archive
// heading exists, and Today comes first.
func (d *Document) Validate() error {
	today, archive := -1, -1
	for i, name := range d.headings() {
		switch name {
		case SectionToday:
			if today >= 0 {
				return fmt.Errorf("%w: duplicate %q heading at line %d", apperr.ErrMalformedDocument, TodayHeading, i+1)
			}
			today = i
		case SectionArchive:
			if archive >= 0 {
				return fmt.Errorf("%w: duplicate %q heading at line %d", apperr.ErrMalformedDocument, ArchiveHeading, i+1)
			}
			archive = i
		}
	}
	if today < 0 {
		return fmt.Errorf("%w: missing %q heading", apperr.ErrMalformedDocument, TodayHeading)
	}
	if archive >= 0 && archive < today {
		return fmt.Errorf("%w: %q must follow %q", apperr.ErrMalformedDocument, ArchiveHeading, TodayHeading)
	}
	return nil
}

// headings maps line index to recognized heading kind, skipping fenced code.
func (d *Document) headings() map[int]SectionName {
	out := make(map[int]SectionName, 2)
	inFence := false
	var fence string
	for i, line := range d.Lines {
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			switch {
			case !inFence:
				inFence, fence = true, m[1]
			case m[1] == fence:
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}
		if name, ok := classify(line); ok {
			out[i] = name
		}
	}
	return out
}

// classify reports whether line is exactly one of the recognized headings.
// Only a CRLF line terminator is tolerated.
func classify(line string) (SectionName, bool) {
	switch strings.TrimSuffix(line, "\r") {
	case TodayHeading:
		return SectionToday, true
	case ArchiveHeading:
		return SectionArchive, true
	}
	return SectionOther, false
}

// Sections computes the current section views in document order.
func (d *Document) Sections() []Section {
	hs := d.headings()
	starts := make([]int, 0, len(hs))
	for i := range d.Lines {
		if _, ok := hs[i]; ok {
			starts = append(starts, i)
		}
	}
	var out []Section
	if len(starts) == 0 || starts[0] > 0 {
		end := len(d.Lines)
		if len(starts) > 0 {
			end = starts[0]
		}
		out = append(out, Section{Name: SectionOther, Start: 0, End: end})
	}
	for k, start := range starts {
		end := len(d.Lines)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		out = append(out, Section{Name: hs[start], Start: start, End: end})
	}
	return out
}

// Find returns the section with the given name.
func (d *Document) Find(name SectionName) (Section, error) {
	for _, s := range d.Sections() {
		if s.Name == name {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, name)
}

// Has reports whether the named section exists.
func (d *Document) Has(name SectionName) bool {
	_, err := d.Find(name)
	return err == nil
}

// Body returns the lines after the section heading.
func (d *Document) Body(s Section) []string {
	return d.Lines[s.BodyStart():s.End]
}

// Replace returns a new document with lines [start, end) substituted.
// The receiver is not modified.
func (d *Document) Replace(start, end int, lines []string) *Document {
	out := make([]string, 0, len(d.Lines)-(end-start)+len(lines))
	out = append(out, d.Lines[:start]...)
	out = append(out, lines...)
	out = append(out, d.Lines[end:]...)
	return &Document{Lines: out}
}

// ReplaceBody substitutes everything after the named heading up to the next
// recognized heading.
func (d *Document) ReplaceBody(name SectionName, lines []string) (*Document, error) {
	s, err := d.Find(name)
	if err != nil {
		return nil, err
	}
	return d.Replace(s.BodyStart(), s.End, lines), nil
}

// NormalizeLineEndings returns a new document with any trailing carriage
// return stripped from every line, so Render writes LF throughout.
func (d *Document) NormalizeLineEndings() *Document {
	out := make([]string, len(d.Lines))
	for i, line := range d.Lines {
		out[i] = strings.TrimSuffix(line, "\r")
	}
	return &Document{Lines: out}
}

// Append returns a new document with lines added at the end.
func (d *Document) Append(lines ...string) *Document {
	return d.Replace(len(d.Lines), len(d.Lines), lines)
}

// SplitLines breaks free text into document lines.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
