// Package docs extracts review markers and anchored sections from markdown documents.
package docs

import (
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/alignmap/internal/model"
)

var (
	frontmatterRe   = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---`)
	reviewCommentRe = regexp.MustCompile(`<!--\s*last_reviewed:\s*(\S+(?:[ T]\d{2}:\d{2}:\d{2}\S*)?)\s*-->`)
	headingRe       = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
)

// Section is the heading and body found at an anchor
type Section struct {
	Anchor  string `json:"anchor"`
	Title   string `json:"title"`
	Level   int    `json:"level"`
	Content string `json:"content"`
	// Lines is the 1-based range the section spans in the document
	Lines model.LineRange `json:"-"`
}

// LastReviewed returns the document's review timestamp from YAML
// frontmatter or a <!-- last_reviewed: ... --> marker.
func LastReviewed(content string) (*time.Time, error) {
	if m := frontmatterRe.FindStringSubmatch(content); m != nil {
		var fm map[string]interface{}
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil {
			if v, ok := fm["last_reviewed"]; ok && v != nil {
				return reviewedValue(v)
			}
		}
	}

	if m := reviewCommentRe.FindStringSubmatch(content); m != nil {
		t, err := model.ParseTimestamp(m[1])
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, nil
}

func reviewedValue(v interface{}) (*time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		t := val.UTC()
		return &t, nil
	case string:
		t, err := model.ParseTimestamp(val)
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		t, err := model.ParseTimestamp(strings.TrimSpace(toString(val)))
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
}

func toString(v interface{}) string {
	out, _ := yaml.Marshal(v)
	return string(out)
}

// anchorPattern turns "3-rich-problem-objects" into a pattern where each
// dash may be a dash, a space or nothing
func anchorPattern(anchor string) *regexp.Regexp {
	anchor = strings.TrimPrefix(anchor, "#")
	parts := strings.Split(anchor, "-")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `[- ]?`))
}

// normalizeHeading lowers a heading the way anchor slugs are usually built
func normalizeHeading(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r == ' ' || r == '-':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r > 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type heading struct {
	line  int
	level int
	title string
}

func headings(lines []string) []heading {
	var out []heading
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			out = append(out, heading{line: i, level: len(m[1]), title: m[2]})
		}
	}
	return out
}

// FindSection locates the first heading matching anchor. The section runs
// until the next heading of the same or a higher level.
func FindSection(content, anchor string) (*Section, bool) {
	if strings.TrimSpace(strings.TrimPrefix(anchor, "#")) == "" {
		return nil, false
	}
	lines := strings.Split(content, "\n")
	hs := headings(lines)
	re := anchorPattern(anchor)

	for i, h := range hs {
		if !re.MatchString(h.title) && !re.MatchString(normalizeHeading(h.title)) {
			continue
		}
		end := len(lines)
		for _, next := range hs[i+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}
		body := strings.TrimSpace(strings.Join(lines[h.line:end], "\n"))
		lastLine := end
		for lastLine > h.line+1 && strings.TrimSpace(lines[lastLine-1]) == "" {
			lastLine--
		}
		return &Section{
			Anchor:  strings.TrimPrefix(anchor, "#"),
			Title:   h.title,
			Level:   h.level,
			Content: body,
			Lines:   model.LineRange{Start: h.line + 1, End: max(lastLine, h.line+1)},
		}, true
	}
	return nil, false
}

// HasAnchor reports whether a heading matches anchor
func HasAnchor(content, anchor string) bool {
	_, ok := FindSection(content, anchor)
	return ok
}

// Headings lists every heading as a section, in document order
func Headings(content string) []Section {
	lines := strings.Split(content, "\n")
	hs := headings(lines)
	out := make([]Section, 0, len(hs))
	for i, h := range hs {
		end := len(lines)
		for _, next := range hs[i+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}
		out = append(out, Section{
			Title: h.title,
			Level: h.level,
			Lines: model.LineRange{Start: h.line + 1, End: max(end, h.line+1)},
		})
	}
	return out
}
