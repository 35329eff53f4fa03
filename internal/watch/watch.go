// Package watch re-runs a handler when files under a project root change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when the configured debounce is zero
const DefaultDebounce = 300 * time.Millisecond

// Ignorer reports whether a slash-separated relative path should be skipped
type Ignorer interface {
	Ignored(rel string) bool
}

// Handler receives the relative paths changed during one quiet period
type Handler func(ctx context.Context, changed []string) error

// Config configures a Watcher
type Config struct {
	Root     string
	Debounce time.Duration
	Ignore   Ignorer
	Logger   *slog.Logger
	// Extra lists relative paths reported even when hidden or ignored
	Extra []string
}

// Watcher batches filesystem events and hands them to a Handler once the
// tree has been quiet for the debounce period
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   Ignorer
	extra    map[string]bool
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a watcher over every non-hidden, non-ignored directory under root
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		ignore:   cfg.Ignore,
		extra:    make(map[string]bool, len(cfg.Extra)),
		logger:   logger,
		fsw:      fsw,
		pending:  make(map[string]struct{}),
	}
	for _, p := range cfg.Extra {
		w.extra[filepath.ToSlash(p)] = true
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying watches
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers batches to h until ctx is cancelled or h fails
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.logger.Debug("change batch", "files", len(changed))
			if err := h(ctx, changed); err != nil {
				return err
			}
		}
	}
}

// handle records one event and reports whether it belongs to the next batch
func (w *Watcher) handle(event fsnotify.Event) bool {
	rel, ok := w.relative(event.Name)
	if !ok {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", rel, "error", err)
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.mu.Unlock()
	w.logger.Debug("file changed", "path", rel, "op", event.Op.String())
	return true
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(out)
	return out
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.extra[rel] {
		return rel, true
	}
	if hidden(rel) {
		return "", false
	}
	if w.ignore != nil && w.ignore.Ignored(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			if _, ok := w.relative(path); !ok {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
