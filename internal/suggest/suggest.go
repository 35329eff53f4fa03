// Package suggest proposes block boundaries for code the map does not cover yet.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ppiankov/alignmap/internal/locate"
	"github.com/ppiankov/alignmap/internal/model"
)

// CoverageThreshold is the coverage below which a mapped file is still a candidate
const CoverageThreshold = 0.8

// sourceGlob selects the files considered for unmapped-file discovery
const sourceGlob = "**/*.{py,pyi,js,jsx,mjs,cjs,ts,tsx,mts,cts,java,go}"

// Ignorer exempts files from suggestions
type Ignorer interface {
	Ignored(rel string) bool
}

// Source tells how a suggestion was produced
type Source string

const (
	SourceStructural Source = "structural"
	SourceHeuristic  Source = "heuristic"
	SourceWholeFile  Source = "whole_file"
)

// FileSuggestions holds the proposals for one file
type FileSuggestions struct {
	File        string        `json:"file"`
	Source      Source        `json:"source,omitempty"`
	Suggestions []locate.Span `json:"suggestions"`
	Err         error         `json:"-"`
}

// Suggester finds unmapped code
type Suggester struct {
	locator locate.Locator
	ignore  Ignorer
	workers int
	logger  *slog.Logger
}

// New creates a suggester
func New(loc locate.Locator, ignore Ignorer, workers int, logger *slog.Logger) *Suggester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{locator: loc, ignore: ignore, workers: workers, logger: logger}
}

// UnmappedFiles lists source files under root that have no mapping or less
// than CoverageThreshold coverage. Hidden directories, test files and ignored
// files are skipped. The result is sorted.
func (s *Suggester) UnmappedFiles(m *model.AlignmentMap, root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), sourceGlob, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var out []string
	for _, rel := range matches {
		if skipped(rel) || (s.ignore != nil && s.ignore.Ignored(rel)) {
			continue
		}
		fm, ok := m.Mapping(rel)
		if !ok {
			out = append(out, rel)
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			s.logger.Debug("skipping unreadable file", "file", rel, "error", err)
			continue
		}
		if fm.Coverage(countLines(data)) < CoverageThreshold {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}

func skipped(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(path.Base(rel)), "test")
}

// Suggest proposes blocks for files, in the order given. Structural spans are
// preferred; heuristics stand in when the file cannot be parsed, and a file
// with no mapping and no recognizable declarations gets one whole-file block.
func (s *Suggester) Suggest(ctx context.Context, m *model.AlignmentMap, root string, files []string) []FileSuggestions {
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rels = append(rels, relative(root, f))
	}
	located := locate.LocateAll(ctx, s.locator, root, rels, s.workers)

	out := make([]FileSuggestions, 0, len(rels))
	for _, rel := range rels {
		fs := FileSuggestions{File: rel, Source: SourceStructural}
		res := located[rel]
		spans := res.Spans

		if res.Err != nil {
			src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					err = fmt.Errorf("%s: file not found", rel)
				}
				fs.Err = err
				out = append(out, fs)
				continue
			}
			s.logger.Debug("falling back to heuristics", "file", rel, "error", res.Err)
			fs.Source = SourceHeuristic
			spans = locate.Heuristic(rel, src)

			if _, mapped := m.Mapping(rel); len(spans) == 0 && !mapped {
				fs.Source = SourceWholeFile
				spans = []locate.Span{locate.WholeFile(rel, countLines(src))}
			}
		}

		var existing []model.Block
		if fm, ok := m.Mapping(rel); ok {
			existing = fm.Blocks
		}
		fs.Suggestions = pick(spans, existing)
		out = append(out, fs)
	}
	return out
}

// pick keeps spans that overlap neither an existing block nor an earlier pick.
// Spans arrive enclosing-first, so a class wins over its methods unless part
// of the class is already mapped.
func pick(spans []locate.Span, existing []model.Block) []locate.Span {
	taken := make([]model.LineRange, 0, len(existing)+len(spans))
	for _, b := range existing {
		taken = append(taken, b.Lines)
	}

	picked := []locate.Span{}
	for _, s := range spans {
		free := true
		for _, r := range taken {
			if r.Overlaps(s.Lines) {
				free = false
				break
			}
		}
		if free {
			picked = append(picked, s)
			taken = append(taken, s.Lines)
		}
	}
	return picked
}

func relative(root, file string) string {
	if filepath.IsAbs(file) {
		if rel, err := filepath.Rel(root, file); err == nil {
			file = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(file))
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
