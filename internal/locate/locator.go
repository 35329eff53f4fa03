// Package locate parses source files into named symbol spans.
//
// Each supported grammar registers a Locator for its file extensions with
// DefaultRegistry. Files with no registered grammar, or that fail to parse,
// yield ErrUnsupported so callers can fall back to Heuristic.
package locate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported signals that structural location is unavailable for a file
var ErrUnsupported = errors.New("structural parsing unsupported")

// Locator finds the symbol spans of one source file
type Locator interface {
	Locate(ctx context.Context, path string, src []byte) ([]Span, error)
}

// LocatorFunc adapts a function to Locator
type LocatorFunc func(ctx context.Context, path string, src []byte) ([]Span, error)

// Locate calls f
func (f LocatorFunc) Locate(ctx context.Context, path string, src []byte) ([]Span, error) {
	return f(ctx, path, src)
}

// Factory builds a fresh Locator; tree-sitter parsers are not shared across goroutines
type Factory func() Locator

// Registry maps file extensions to locator factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory // name -> factory
	extMap    map[string]string  // extension -> name
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		extMap:    make(map[string]string),
	}
}

// DefaultRegistry holds every built-in grammar
var DefaultRegistry = NewRegistry()

// Register adds a factory for extensions. The first registration of an extension wins.
func (r *Registry) Register(name string, extensions []string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// Language returns the grammar name registered for path's extension
func (r *Registry) Language(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.extMap[strings.ToLower(filepath.Ext(path))]
	return name, ok
}

// Supports reports whether path has a registered grammar
func (r *Registry) Supports(path string) bool {
	_, ok := r.Language(path)
	return ok
}

// Extensions lists every registered extension, sorted
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extMap))
	for ext := range r.extMap {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Locate dispatches to the grammar registered for path. Parse failures and
// panics inside a grammar are reported as ErrUnsupported.
func (r *Registry) Locate(ctx context.Context, path string, src []byte) (spans []Span, err error) {
	name, ok := r.Language(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}

	r.mu.RLock()
	factory := r.factories[name]
	r.mu.RUnlock()

	defer func() {
		if rec := recover(); rec != nil {
			spans = nil
			err = fmt.Errorf("%s: %s parser panicked: %v: %w", path, name, rec, ErrUnsupported)
		}
	}()

	spans, err = factory().Locate(ctx, path, src)
	if err != nil {
		if errors.Is(err, ErrUnsupported) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %s: %v: %w", path, name, err, ErrUnsupported)
	}
	Sort(spans)
	return spans, nil
}
