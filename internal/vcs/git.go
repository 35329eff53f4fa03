// Package vcs reads staged changes and committed file versions from git.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrNotRepository is returned outside a git work tree
	ErrNotRepository = errors.New("not a git repository")

	// ErrNotInHEAD is returned when a path has no committed version
	ErrNotInHEAD = errors.New("path not present in HEAD")

	// ErrNotInIndex is returned when a path is neither tracked nor staged
	ErrNotInIndex = errors.New("path not present in the index")

	// ErrNoProjectRoot is returned when neither a map file nor a git root can be found
	ErrNoProjectRoot = errors.New("no alignment map or git repository found")
)

// Git runs git commands in a work tree
type Git struct {
	Root string
}

// NewGit creates a Git for root
func NewGit(root string) *Git {
	return &Git{Root: root}
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "not a git repository") {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return out, nil
}

// StagedChanges returns the changed lines of every staged file under Root.
// Paths are relative to Root, which need not be the top of the work tree.
func (g *Git) StagedChanges(ctx context.Context) ([]FileDiff, error) {
	out, err := g.run(ctx, "diff", "--cached", "--relative", "--unified=0", "--no-color", "--no-ext-diff")
	if err != nil {
		return nil, err
	}
	return ParseDiff(out)
}

// StagedFiles lists the project-relative paths of staged files
func (g *Git) StagedFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "diff", "--cached", "--relative", "--name-only")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// IsStaged reports whether rel is part of the staged change set
func (g *Git) IsStaged(ctx context.Context, rel string) (bool, error) {
	files, err := g.StagedFiles(ctx)
	if err != nil {
		return false, err
	}
	rel = filepath.ToSlash(rel)
	for _, f := range files {
		if f == rel {
			return true, nil
		}
	}
	return false, nil
}

// ShowHEAD returns the committed content of rel
func (g *Git) ShowHEAD(ctx context.Context, rel string) ([]byte, error) {
	return g.show(ctx, "HEAD", rel, ErrNotInHEAD)
}

// ShowIndex returns the staged content of rel, which is what the next
// commit will contain
func (g *Git) ShowIndex(ctx context.Context, rel string) ([]byte, error) {
	return g.show(ctx, "", rel, ErrNotInIndex)
}

func (g *Git) show(ctx context.Context, rev, rel string, missing error) ([]byte, error) {
	// "./" resolves rel against Root rather than the work tree top
	out, err := g.run(ctx, "show", rev+":./"+filepath.ToSlash(rel))
	if err != nil {
		if errors.Is(err, ErrNotRepository) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", rel, missing)
	}
	return out, nil
}

// Toplevel returns the root of the enclosing work tree
func (g *Git) Toplevel(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// FindProjectRoot resolves the project root: the directory of an explicit
// map file, else the nearest ancestor of start holding mapName, else the git root.
func FindProjectRoot(ctx context.Context, start, mapfile, mapName string) (string, error) {
	if mapfile != "" {
		abs, err := filepath.Abs(mapfile)
		if err != nil {
			return "", err
		}
		return filepath.Dir(abs), nil
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, mapName)); err == nil {
			return d, nil
		}
		if filepath.Dir(d) == d {
			break
		}
	}

	root, err := NewGit(dir).Toplevel(ctx)
	if err != nil {
		return "", ErrNoProjectRoot
	}
	return root, nil
}
