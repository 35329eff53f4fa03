// Package trace assembles the review context of mapped code: the blocks at a
// location, their aligned documents and the document hierarchy above them.
package trace

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/model"
)

var (
	// ErrUnmappedFile is returned when the traced file has no mapping
	ErrUnmappedFile = errors.New("file not in alignment map")

	// ErrUnmappedLine is returned when no block contains the traced line
	ErrUnmappedLine = errors.New("line not in any mapped block")
)

// Level is a document's place in the hierarchy walk
type Level string

const (
	LevelIdentity  Level = "identity"
	LevelDesign    Level = "design"
	LevelTechnical Level = "technical"
)

var levelOrder = map[Level]int{LevelIdentity: 0, LevelDesign: 1, LevelTechnical: 2}

// LevelOf guesses a document's level from its name
func LevelOf(path string) Level {
	upper := strings.ToUpper(path)
	switch {
	case strings.Contains(upper, "IDENTITY"):
		return LevelIdentity
	case strings.Contains(upper, "DESIGN"), strings.Contains(upper, "PRINCIPLES"):
		return LevelDesign
	}
	return LevelTechnical
}

// BlockInfo describes one traced block
type BlockInfo struct {
	Name        string     `json:"name"`
	ID          string     `json:"id,omitempty"`
	Lines       string     `json:"lines"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Comment     string     `json:"last_update_comment,omitempty"`
	AlignedWith []string   `json:"aligned_with"`
}

// DocInfo describes one aligned document reference
type DocInfo struct {
	Path          string     `json:"path"`
	Anchor        string     `json:"anchor,omitempty"`
	Exists        bool       `json:"exists"`
	LastReviewed  *time.Time `json:"last_reviewed,omitempty"`
	Section       string     `json:"section_content,omitempty"`
	RequiresHuman bool       `json:"requires_human"`
}

// Staleness compares one block against one aligned document
type Staleness struct {
	Block         string     `json:"block"`
	Document      string     `json:"document"`
	BlockUpdated  *time.Time `json:"block_updated,omitempty"`
	DocReviewed   *time.Time `json:"doc_reviewed,omitempty"`
	Stale         bool       `json:"stale"`
	RequiresHuman bool       `json:"requires_human"`
}

// HierarchyEntry is one document reached by the upward walk
type HierarchyEntry struct {
	Document      string `json:"document"`
	Level         Level  `json:"level"`
	RequiresHuman bool   `json:"requires_human"`
}

// Trace is everything needed to review a file or line
type Trace struct {
	File      string           `json:"file"`
	Line      int              `json:"line,omitempty"`
	Blocks    []BlockInfo      `json:"blocks"`
	Documents []DocInfo        `json:"aligned_documents"`
	Hierarchy []HierarchyEntry `json:"hierarchy"`
	Staleness []Staleness      `json:"staleness_checks"`
}

// AnyStale reports whether some aligned document needs review
func (t *Trace) AnyStale() bool {
	for _, s := range t.Staleness {
		if s.Stale {
			return true
		}
	}
	return false
}

// Locate traces every block of file, or only the block containing line when
// line is positive
func Locate(m *model.AlignmentMap, reader docs.Reader, file string, line int) (*Trace, error) {
	fm, ok := m.Mapping(file)
	if !ok {
		return nil, fmt.Errorf("%s: %w", file, ErrUnmappedFile)
	}

	blocks := fm.Blocks
	if line > 0 {
		b, ok := fm.BlockForLine(line)
		if !ok {
			return nil, fmt.Errorf("%s:%d: %w", fm.File, line, ErrUnmappedLine)
		}
		blocks = []model.Block{*b}
	}

	classifier, err := m.Hierarchy.NewClassifier()
	if err != nil {
		return nil, err
	}
	t := &Trace{
		File:      fm.File,
		Line:      line,
		Blocks:    []BlockInfo{},
		Documents: []DocInfo{},
		Staleness: []Staleness{},
	}
	loader := newLoader(reader)
	seen := make(map[string]bool)

	for _, b := range blocks {
		t.Blocks = append(t.Blocks, BlockInfo{
			Name:        b.Name,
			ID:          b.ID,
			Lines:       b.Lines.String(),
			LastUpdated: b.LastUpdated,
			Comment:     b.LastUpdateComment,
			AlignedWith: model.RefStrings(b.AlignedWith),
		})

		for _, ref := range b.AlignedWith {
			if ref.IsCode() {
				continue
			}
			doc := loader.load(ref.Path)
			human := classifier.Classify(ref.Path) == model.TierHuman

			if !seen[ref.String()] {
				seen[ref.String()] = true
				info := DocInfo{Path: ref.Path, Anchor: ref.Anchor, Exists: doc != nil, RequiresHuman: human}
				if doc != nil {
					info.LastReviewed = doc.LastReviewed
					info.Section = doc.Content
					if ref.Anchor != "" {
						info.Section = ""
						if s, ok := doc.Section(ref.Anchor); ok {
							info.Section = s.Content
						}
					}
				}
				t.Documents = append(t.Documents, info)
			}

			if doc != nil && b.LastUpdated != nil {
				t.Staleness = append(t.Staleness, Staleness{
					Block:         b.Name,
					Document:      ref.Path,
					BlockUpdated:  b.LastUpdated,
					DocReviewed:   doc.LastReviewed,
					Stale:         doc.LastReviewed == nil || doc.LastReviewed.Before(*b.LastUpdated),
					RequiresHuman: human,
				})
			}
		}
	}

	t.Hierarchy = walkHierarchy(m, classifier, t.Documents)
	return t, nil
}

// walkHierarchy follows aligned_with entries of document-side blocks upward
// from the given documents and orders the result identity, design, technical
func walkHierarchy(m *model.AlignmentMap, classifier *model.Classifier, start []DocInfo) []HierarchyEntry {
	queue := make([]string, 0, len(start))
	for _, d := range start {
		queue = append(queue, d.Path)
	}

	visited := make(map[string]bool)
	entries := []HierarchyEntry{}
	for len(queue) > 0 {
		doc := queue[0]
		queue = queue[1:]
		if visited[doc] {
			continue
		}
		visited[doc] = true
		entries = append(entries, HierarchyEntry{
			Document:      doc,
			Level:         LevelOf(doc),
			RequiresHuman: classifier.Classify(doc) == model.TierHuman,
		})

		fm, ok := m.Mapping(doc)
		if !ok {
			continue
		}
		for _, b := range fm.Blocks {
			for _, ref := range b.AlignedWith {
				if !ref.IsCode() && !visited[ref.Path] {
					queue = append(queue, ref.Path)
				}
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := levelOrder[entries[i].Level], levelOrder[entries[j].Level]
		if a != b {
			return a < b
		}
		return entries[i].Document < entries[j].Document
	})
	return entries
}

// loader memoizes document loads; a missing document is nil
type loader struct {
	reader docs.Reader
	cache  map[string]*docs.Document
}

func newLoader(reader docs.Reader) *loader {
	return &loader{reader: reader, cache: make(map[string]*docs.Document)}
}

func (l *loader) load(path string) *docs.Document {
	if doc, ok := l.cache[path]; ok {
		return doc
	}
	doc, err := docs.Load(l.reader, path)
	if err != nil {
		// an unparseable review marker counts as no marker
		doc = nil
		if content, rerr := l.reader.Read(path); rerr == nil {
			doc = &docs.Document{Path: path, Content: content}
		}
	}
	l.cache[path] = doc
	return doc
}
