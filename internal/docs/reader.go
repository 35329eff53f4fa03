package docs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotFound is returned when a referenced document does not exist
var ErrNotFound = errors.New("document not found")

// Reader provides document contents by project-relative path
type Reader interface {
	Read(path string) (string, error)
}

// Document is a read document with its review marker resolved
type Document struct {
	Path         string
	Content      string
	LastReviewed *time.Time
}

// Section returns the section at anchor, if any
func (d *Document) Section(anchor string) (*Section, bool) {
	if d == nil {
		return nil, false
	}
	return FindSection(d.Content, anchor)
}

// FSReader reads documents relative to a project root and memoizes them
type FSReader struct {
	root string

	mu    sync.RWMutex
	cache map[string]string
}

// NewFSReader creates a reader rooted at root
func NewFSReader(root string) *FSReader {
	return &FSReader{root: root, cache: make(map[string]string)}
}

// Read returns the content of path; missing files yield ErrNotFound
func (r *FSReader) Read(path string) (string, error) {
	r.mu.RLock()
	content, ok := r.cache[path]
	r.mu.RUnlock()
	if ok {
		return content, nil
	}

	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	r.mu.Lock()
	r.cache[path] = string(data)
	r.mu.Unlock()
	return string(data), nil
}

// Load reads path and resolves its review marker
func Load(r Reader, path string) (*Document, error) {
	content, err := r.Read(path)
	if err != nil {
		return nil, err
	}
	reviewed, err := LastReviewed(content)
	if err != nil {
		return nil, fmt.Errorf("%s: last_reviewed: %w", path, err)
	}
	return &Document{Path: path, Content: content, LastReviewed: reviewed}, nil
}

// MapReader serves documents from memory
type MapReader map[string]string

// Read returns the stored content or ErrNotFound
func (m MapReader) Read(path string) (string, error) {
	content, ok := m[path]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return content, nil
}
