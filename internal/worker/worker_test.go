package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func pathLength(ctx context.Context, path string) (int, error) {
	time.Sleep(2 * time.Millisecond)
	if strings.HasSuffix(path, ".bad") {
		return 0, errors.New("unreadable")
	}
	return len(path), nil
}

func TestPool_Run(t *testing.T) {
	paths := []string{"a.go", "src/b.py", "x.bad", "docs/c.md"}
	results := NewPool(pathLength, 3).Run(context.Background(), paths)

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d is for %s, want %s", i, r.Path, paths[i])
		}
		if r.Path == "x.bad" {
			if r.Err == nil {
				t.Error("expected error for x.bad")
			}
			continue
		}
		if r.Err != nil || r.Value != len(r.Path) {
			t.Errorf("%s: got %d, %v", r.Path, r.Value, r.Err)
		}
	}
	if errs := Errors(results); len(errs) != 1 || errs[0].Path != "x.bad" {
		t.Errorf("unexpected failures: %+v", errs)
	}
}

func TestPool_Empty(t *testing.T) {
	if results := NewPool(pathLength, 2).Run(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	task := func(ctx context.Context, path string) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	}

	paths := make([]string, 40)
	for i := range paths {
		paths[i] = filepath.Join("src", string(rune('a'+i%26))+".py")
	}
	NewPool(task, 4).Run(context.Background(), paths)

	if peak > 4 {
		t.Errorf("expected at most 4 concurrent tasks, saw %d", peak)
	}
}

func TestPool_ZeroWorkersRunsSerially(t *testing.T) {
	p := NewPool(pathLength, 0)
	if p.workers != 1 {
		t.Errorf("expected 1 worker, got %d", p.workers)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	task := func(ctx context.Context, path string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	}
	results := NewPool(task, 2).Run(ctx, []string{"a.py", "b.py", "c.py"})

	if calls != 0 {
		t.Errorf("expected no task to start, got %d", calls)
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", r.Path, r.Err)
		}
	}
}

func TestReadPathsFromFile(t *testing.T) {
	content := `
# changed files
src/a.py
./src/b.py

src/a.py
`
	path := filepath.Join(t.TempDir(), "files.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadPathsFromFile(path)
	if err != nil {
		t.Fatalf("ReadPathsFromFile failed: %v", err)
	}
	if want := []string{"src/a.py", "src/b.py"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("got %v, want %v", paths, want)
	}
}

func TestReadPathsFromFile_Missing(t *testing.T) {
	if _, err := ReadPathsFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
