package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/alignmap/internal/check"
	"github.com/ppiankov/alignmap/internal/model"
)

func TestParseAcks(t *testing.T) {
	acks, err := parseAcks([]string{"docs/IDENTITY.md=alice", " docs/VISION.md = bob "})
	require.NoError(t, err)
	assert.Equal(t, []check.Acknowledgment{
		{Doc: "docs/IDENTITY.md", By: "alice"},
		{Doc: "docs/VISION.md", By: "bob"},
	}, acks)

	for _, bad := range []string{"docs/IDENTITY.md", "docs/IDENTITY.md=", "=alice"} {
		_, err := parseAcks([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		in       string
		wantPath string
		wantLine int
		wantErr  bool
	}{
		{in: "src/a.py", wantPath: "src/a.py"},
		{in: "src/a.py:42", wantPath: "src/a.py", wantLine: 42},
		{in: "C:/src/a.py", wantPath: "C:/src/a.py"},
		{in: "src/a.py:0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, line, err := splitLocation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantLine, line)
		})
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("a")))
	assert.Equal(t, 2, countLines([]byte("a\nb\n")))
	assert.Equal(t, 3, countLines([]byte("a\nb\nc")))
}

func TestDecodeConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.Set("locate.workers", 8)
	v.Set("watch.debounce", "1s")

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Locate.Workers)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, model.DefaultMapFile, cfg.MapFile)

	v.Set("output.color", "sometimes")
	_, err = decodeConfig(v)
	assert.ErrorContains(t, err, "invalid config")
}

// execute runs the root command with fresh flag values
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

const storeSource = `class Store:
    def save(self):
        pass

    def load(self):
        return 1
`

func TestCommands_EndToEnd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ALIGNMENT_MAP_CACHE_ENABLED", "false")
	t.Setenv("ALIGNMENT_MAP_OUTPUT_COLOR", "never")

	root := t.TempDir()
	write := func(rel, content string) string {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	mapPath := write(model.DefaultMapFile, "version: 1\n")
	src := write("src/store.py", storeSource)
	write("docs/DESIGN.md", "---\nlast_reviewed: 2099-01-01\n---\n# Design\n\n## Storage\n\nStore keeps things.\n")

	out, err := execute(t, "update", src, "--mapfile", mapPath,
		"--block", "Store class", "--lines", "1-6", "--aligned-with", "docs/DESIGN.md#storage")
	require.NoError(t, err, out)
	assert.Contains(t, out, `added block "Store class"`)

	m, err := model.Load(mapPath)
	require.NoError(t, err)
	fm, ok := m.Mapping("src/store.py")
	require.True(t, ok)
	require.Len(t, fm.Blocks, 1)
	assert.Equal(t, model.MustLineRange(1, 6), fm.Blocks[0].Lines)

	t.Run("overlap without strategy writes nothing", func(t *testing.T) {
		out, err := execute(t, "update", src, "--mapfile", mapPath, "--block", "load method", "--lines", "5-6")
		var exit *ExitError
		require.True(t, errors.As(err, &exit), "got %v", err)
		assert.Equal(t, 1, exit.Code)
		assert.Contains(t, out, "suggested strategy: --extend")

		after, err := model.Load(mapPath)
		require.NoError(t, err)
		fm, _ := after.Mapping("src/store.py")
		assert.Len(t, fm.Blocks, 1)
	})

	t.Run("trace as json", func(t *testing.T) {
		out, err := execute(t, "trace", src+":2", "--mapfile", mapPath, "--json")
		require.NoError(t, err, out)
		assert.Contains(t, out, `"name": "Store class"`)
		assert.Contains(t, out, `"path": "docs/DESIGN.md"`)
	})

	t.Run("lint on a consistent map", func(t *testing.T) {
		out, err := execute(t, "lint", "--mapfile", mapPath)
		require.NoError(t, err, out)
		assert.Contains(t, out, "alignment map is consistent")
		assert.NoFileExists(t, filepath.Join(root, model.DefaultFixesFile))
	})

	t.Run("fix without proposal", func(t *testing.T) {
		_, err := execute(t, "fix", "--mapfile", mapPath)
		assert.ErrorContains(t, err, "run 'alignment-map lint' first")
	})
}

func TestCheck_StagedMapOnly(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ALIGNMENT_MAP_CACHE_ENABLED", "false")
	t.Setenv("ALIGNMENT_MAP_OUTPUT_COLOR", "never")

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
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	source := func(line15 string) string {
		var b strings.Builder
		for i := 1; i <= 20; i++ {
			if i == 15 {
				b.WriteString(line15 + "\n")
				continue
			}
			fmt.Fprintf(&b, "x%d = %d\n", i, i)
		}
		return b.String()
	}
	mapPath := filepath.Join(root, model.DefaultMapFile)
	saveMap := func(updated time.Time) {
		m := model.New()
		require.NoError(t, m.AddBlock("a.py", model.Block{
			Name:        "Foo",
			Lines:       model.MustLineRange(10, 20),
			LastUpdated: &updated,
			AlignedWith: model.ParseRefs([]string{"docs/X.md"}),
		}))
		require.NoError(t, model.Save(m, mapPath))
	}

	git("init", "-q")
	write("a.py", source("x15 = 15"))
	write("docs/X.md", "---\nlast_reviewed: 2099-01-01\n---\n# X\n")
	saveMap(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	git("add", ".")
	git("commit", "-q", "-m", "initial")

	write("a.py", source("x15 = 150"))
	git("add", "a.py")
	saveMap(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	out, err := execute(t, "check", "--mapfile", mapPath)
	var exit *ExitError
	require.True(t, errors.As(err, &exit), "unstaged map bump must not pass: %v\n%s", err, out)
	assert.Equal(t, 1, exit.Code)
	assert.Contains(t, out, "MAP_NOT_UPDATED a.py [Foo]")

	git("add", model.DefaultMapFile)
	out, err = execute(t, "check", "--mapfile", mapPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 failed")
}
