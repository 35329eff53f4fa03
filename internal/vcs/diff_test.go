package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stagedDiff = `diff --git a/src/a.py b/src/a.py
index 83db48f..bf269f4 100644
--- a/src/a.py
+++ b/src/a.py
@@ -15 +15 @@ class Foo:
-    return 1
+    return 2
@@ -30,0 +31,2 @@ def bar():
+    x = 1
+    y = 2
diff --git a/src/b.py b/src/b.py
index 83db48f..bf269f4 100644
--- a/src/b.py
+++ b/src/b.py
@@ -5,2 +4,0 @@ def baz():
-    old = 1
-    older = 2
diff --git a/src/gone.py b/src/gone.py
deleted file mode 100644
index 83db48f..0000000
--- a/src/gone.py
+++ /dev/null
@@ -1,2 +0,0 @@
-x = 1
-y = 2
`

func TestParseDiff(t *testing.T) {
	files, err := ParseDiff([]byte(stagedDiff))
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, FileDiff{Path: "src/a.py", Lines: []int{15, 31, 32}}, files[0])
	assert.Equal(t, FileDiff{Path: "src/b.py", Lines: []int{4}}, files[1], "pure deletion reports its position")
	assert.Equal(t, "src/gone.py", files[2].Path)
	assert.True(t, files[2].Deleted)
}

func TestParseDiff_Empty(t *testing.T) {
	files, err := ParseDiff(nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".alignment-map.yaml"), []byte("version: 1\n"), 0o644))

	got, err := FindProjectRoot(context.Background(), nested, "", ".alignment-map.yaml")
	require.NoError(t, err)
	want, _ := filepath.Abs(root)
	assert.Equal(t, want, got)

	explicit := filepath.Join(root, "src", "custom.yaml")
	got, err = FindProjectRoot(context.Background(), nested, explicit, ".alignment-map.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(want, "src"), got)
}

// gitRepo initializes a repository in a temp dir; the test is skipped
// without a git binary
func gitRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{
			"-c", "user.name=alignment-map", "-c", "user.email=am@example.com", "-c", "commit.gpgsign=false",
		}, args...)...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init", "-q")
	return root, git
}

func TestGit_IndexAndHEAD(t *testing.T) {
	root, git := gitRepo(t)
	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}
	ctx := context.Background()
	g := NewGit(root)

	write("map.yaml", "committed\n")
	write("a.py", "x = 1\ny = 2\n")
	git("add", ".")
	git("commit", "-q", "-m", "initial")

	write("map.yaml", "staged\n")
	git("add", "map.yaml")
	write("map.yaml", "working tree\n")
	write("a.py", "x = 1\ny = 3\n")
	git("add", "a.py")

	head, err := g.ShowHEAD(ctx, "map.yaml")
	require.NoError(t, err)
	assert.Equal(t, "committed\n", string(head))

	index, err := g.ShowIndex(ctx, "map.yaml")
	require.NoError(t, err)
	assert.Equal(t, "staged\n", string(index))

	_, err = g.ShowIndex(ctx, "untracked.yaml")
	assert.ErrorIs(t, err, ErrNotInIndex)
	_, err = g.ShowHEAD(ctx, "untracked.yaml")
	assert.ErrorIs(t, err, ErrNotInHEAD)

	changes, err := g.StagedChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []FileDiff{
		{Path: "a.py", Lines: []int{2}},
		{Path: "map.yaml", Lines: []int{1}},
	}, changes)

	staged, err := g.IsStaged(ctx, "map.yaml")
	require.NoError(t, err)
	assert.True(t, staged)
}

func TestGit_NestedRoot(t *testing.T) {
	root, git := gitRepo(t)
	sub := filepath.Join(root, "svc")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "map.yaml"), []byte("v1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.py"), []byte("x = 1\n"), 0o644))
	git("add", ".")

	g := NewGit(sub)
	data, err := g.ShowIndex(context.Background(), "map.yaml")
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(data))

	files, err := g.StagedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"map.yaml"}, files, "paths are relative to the root and limited to it")
}
