package locate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/alignmap/internal/worker"
)

// FileSpans is the outcome of locating one file
type FileSpans struct {
	Path  string
	Spans []Span
	Err   error
}

// LocateAll reads and parses files under root in parallel, keyed by path
func LocateAll(ctx context.Context, loc Locator, root string, files []string, workers int) map[string]FileSpans {
	process := func(ctx context.Context, rel string) ([]Span, error) {
		src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		return loc.Locate(ctx, rel, src)
	}

	results := worker.NewPool(process, workers).Run(ctx, files)

	out := make(map[string]FileSpans, len(results))
	for _, r := range results {
		out[r.Path] = FileSpans{Path: r.Path, Spans: r.Value, Err: r.Err}
	}
	return out
}
