package suggest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/alignmap/internal/locate"
	"github.com/ppiankov/alignmap/internal/match"
	"github.com/ppiankov/alignmap/internal/model"
)

const appPy = "class Foo:\n    def bar(self):\n        return 1\n\n\ndef helper():\n    return 2\n"

func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/app.py":      appPy,
		"src/mapped.py":   "x = 1\n",
		"src/partial.go":  "package p\n\nfunc A() {}\n\nfunc B() {}\n\nfunc C() {}\n\nfunc D() {}\n",
		"src/app_test.py": "def test_x():\n    pass\n",
		".hidden/a.py":    "x = 1\n",
		"vendor/v.py":     "x = 1\n",
		"notes.rb":        "puts 1\n",
		"broken.go":       "package x\n\nfunc Broken( {\n}\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newSuggester() *Suggester {
	return New(locate.DefaultRegistry, &match.Ignorer{Patterns: match.MustCompile("vendor/**")}, 2, nil)
}

func TestUnmappedFiles(t *testing.T) {
	root := project(t)
	m := model.New()
	require.NoError(t, m.AddBlock("src/mapped.py", model.Block{Name: "all", Lines: model.MustLineRange(1, 1)}))
	require.NoError(t, m.AddBlock("src/partial.go", model.Block{Name: "A function", Lines: model.MustLineRange(3, 3)}))

	files, err := newSuggester().UnmappedFiles(m, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.go", "src/app.py", "src/partial.go"}, files)
}

func names(spans []locate.Span) []string {
	var out []string
	for _, s := range spans {
		out = append(out, s.Name+" "+s.Lines.String())
	}
	return out
}

func TestSuggest_Structural(t *testing.T) {
	root := project(t)

	got := newSuggester().Suggest(context.Background(), model.New(), root, []string{"src/app.py"})
	require.Len(t, got, 1)
	assert.Equal(t, SourceStructural, got[0].Source)
	assert.Equal(t, []string{"Foo class 1-3", "helper function 6-7"}, names(got[0].Suggestions))

	m := model.New()
	require.NoError(t, m.AddBlock("src/app.py", model.Block{Name: "bar method", Lines: model.MustLineRange(2, 3)}))
	got = newSuggester().Suggest(context.Background(), m, root, []string{filepath.Join(root, "src", "app.py")})
	require.Len(t, got, 1)
	assert.Equal(t, "src/app.py", got[0].File)
	assert.Equal(t, []string{"helper function 6-7"}, names(got[0].Suggestions))
}

func TestSuggest_Fallbacks(t *testing.T) {
	root := project(t)
	got := newSuggester().Suggest(context.Background(), model.New(), root, []string{"broken.go", "notes.rb", "missing.py"})
	require.Len(t, got, 3)

	assert.Equal(t, SourceHeuristic, got[0].Source)
	assert.Equal(t, []string{"Broken function 3-4"}, names(got[0].Suggestions))

	assert.Equal(t, SourceWholeFile, got[1].Source)
	assert.Equal(t, []string{"notes file 1-1"}, names(got[1].Suggestions))

	assert.Error(t, got[2].Err)
}
