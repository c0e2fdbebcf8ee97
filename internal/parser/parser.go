// Package parser summarizes archived Markdown bodies: title, tags, and the
// links they reference.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxTitleLen = 80

var (
	mdLinkRe   = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	headingRe  = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
)

// Result holds the output of parsing an archive body.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Links       []string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, links, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractLinks(body),
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// A "---" thematic break followed by prose is common in daily notes.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractLinks returns deduplicated Markdown link and wikilink targets in
// order of first appearance.
func extractLinks(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(target string) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}

	for _, m := range mdLinkRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		target := m[1]
		// [[Target|Alias]] → Target.
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		add(target)
	}
	return out
}

// extractTags collects #tags from body and from a frontmatter "tags" list.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if raw, ok := fm["tags"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title", then the first heading, then
// the first non-empty line, shortened to maxTitleLen runes.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	first := ""
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			return shorten(m[1])
		}
		if first == "" {
			first = trimmed
		}
	}
	return shorten(first)
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= maxTitleLen {
		return s
	}
	return string(r[:maxTitleLen-1]) + "…"
}
