// Package match implements glob and ignore-file matching over project-relative paths.
package match

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Patterns is a validated set of doublestar globs
type Patterns struct {
	globs []string
}

// Compile validates every glob up front
func Compile(globs []string) (*Patterns, error) {
	p := &Patterns{globs: make([]string, 0, len(globs))}
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		g = strings.TrimPrefix(filepath.ToSlash(g), "./")
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid glob %q", g)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// MustCompile is Compile for literal patterns
func MustCompile(globs ...string) *Patterns {
	p, err := Compile(globs)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether rel matches any glob.
// A glob without a slash also matches the base name, and a glob ending in
// "/" matches everything below that directory.
func (p *Patterns) Match(rel string) bool {
	if p == nil {
		return false
	}
	rel = Normalize(rel)
	for _, g := range p.globs {
		if matchGlob(g, rel) {
			return true
		}
	}
	return false
}

// Globs returns the normalized patterns
func (p *Patterns) Globs() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.globs...)
}

// Len returns the number of patterns
func (p *Patterns) Len() int {
	if p == nil {
		return 0
	}
	return len(p.globs)
}

func matchGlob(g, rel string) bool {
	if strings.HasSuffix(g, "/") {
		g += "**"
	}
	if ok, _ := doublestar.Match(g, rel); ok {
		return true
	}
	if !strings.Contains(g, "/") {
		if ok, _ := doublestar.Match(g, path.Base(rel)); ok {
			return true
		}
	}
	return false
}

// Normalize converts a path to the slash-separated, root-relative form used in maps
func Normalize(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return p
	}
	return path.Clean(p)
}
