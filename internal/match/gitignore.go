package match

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Gitignore matches paths against the gitignore rules of a work tree: every
// .gitignore under the root, each scoped to its own directory, plus
// .git/info/exclude
type Gitignore struct {
	matcher gitignore.Matcher
}

// LoadGitignore reads the ignore files under root; missing files are not an error
func LoadGitignore(root string) (*Gitignore, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("read gitignore rules under %s: %w", root, err)
	}
	return &Gitignore{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ParseGitignore builds a matcher from the content of a root-level ignore file
func ParseGitignore(r io.Reader) (*Gitignore, error) {
	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Gitignore{matcher: gitignore.NewMatcher(patterns)}, nil
}

// Ignored reports whether rel (a file path) is excluded.
// A file inside an ignored directory stays ignored even if a later rule negates it.
func (g *Gitignore) Ignored(rel string) bool {
	if g == nil || g.matcher == nil {
		return false
	}
	parts := strings.Split(Normalize(rel), "/")
	for i := 1; i <= len(parts); i++ {
		if g.matcher.Match(parts[:i], i < len(parts)) {
			return true
		}
	}
	return false
}

// Ignorer combines explicit ignore globs with optional gitignore rules
type Ignorer struct {
	Patterns  *Patterns
	Gitignore *Gitignore
}

// Ignored reports whether rel is exempt from coverage
func (i *Ignorer) Ignored(rel string) bool {
	if i == nil {
		return false
	}
	return i.Patterns.Match(rel) || i.Gitignore.Ignored(rel)
}

// NewIgnorer compiles ignore globs and, when respectGitignore is set, loads
// the gitignore rules under root
func NewIgnorer(root string, globs []string, respectGitignore bool) (*Ignorer, error) {
	patterns, err := Compile(globs)
	if err != nil {
		return nil, fmt.Errorf("settings.ignore: %w", err)
	}
	ig := &Ignorer{Patterns: patterns}
	if respectGitignore {
		if ig.Gitignore, err = LoadGitignore(root); err != nil {
			return nil, err
		}
	}
	return ig, nil
}
