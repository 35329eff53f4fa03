package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefixIgnorer string

func (p prefixIgnorer) Ignored(rel string) bool {
	return strings.HasPrefix(rel, string(p))
}

func TestWatcher_BatchesChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	w, err := New(Config{Root: root, Debounce: 50 * time.Millisecond, Ignore: prefixIgnorer("vendor/"), Extra: []string{".map.yaml"}})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range changed {
				seen[c] = true
			}
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "lib.py"), []byte("y = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "index"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".map.yaml"), []byte("version: 1\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["src/a.py"] && seen[".map.yaml"]
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, seen["vendor/lib.py"])
	assert.False(t, seen[".git/index"])
}

func TestHidden(t *testing.T) {
	assert.True(t, hidden(".git/config"))
	assert.True(t, hidden("src/.cache/x"))
	assert.False(t, hidden("src/app.py"))
}
