package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alignmap/internal/cache"
	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/locate"
	"github.com/ppiankov/alignmap/internal/match"
	"github.com/ppiankov/alignmap/internal/model"
	"github.com/ppiankov/alignmap/internal/report"
	"github.com/ppiankov/alignmap/internal/vcs"
)

// session is the state shared by commands that operate on a map
type session struct {
	cfg     *model.Config
	logger  *slog.Logger
	out     io.Writer
	printer *report.Printer

	root    string
	mapPath string
	m       *model.AlignmentMap

	locator locate.Locator
	docs    docs.Reader
	ignore  *match.Ignorer
}

// openSession resolves the project root and loads the map
func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Output.Verbose)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := vcs.FindProjectRoot(ctx, cwd, mapFile, filepath.Base(cfg.MapFile))
	if err != nil {
		return nil, fmt.Errorf("%w: run inside a git repository or pass --mapfile", err)
	}
	mapPath := mapFile
	if mapPath == "" {
		mapPath = filepath.Join(root, filepath.Base(cfg.MapFile))
	}
	mapPath, err = filepath.Abs(mapPath)
	if err != nil {
		return nil, err
	}

	m, err := model.Load(mapPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("alignment map loaded", "path", mapPath, "files", len(m.Mappings))

	ignore, err := match.NewIgnorer(root, m.Settings.Ignore, m.Settings.RespectGitignore)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	return &session{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		printer: report.New(out, cfg.Output.Color),
		root:    root,
		mapPath: mapPath,
		m:       m,
		locator: newLocator(cfg, logger),
		docs:    docs.NewFSReader(root),
		ignore:  ignore,
	}, nil
}

// newLocator builds the structural locator with size limits and caching
func newLocator(cfg *model.Config, logger *slog.Logger) locate.Locator {
	var inner locate.Locator = locate.DefaultRegistry
	if limit := cfg.Locate.MaxFileSize; limit > 0 {
		base := inner
		inner = locate.LocatorFunc(func(ctx context.Context, path string, src []byte) ([]locate.Span, error) {
			if int64(len(src)) > limit {
				return nil, fmt.Errorf("%s: larger than %d bytes: %w", path, limit, locate.ErrUnsupported)
			}
			return base.Locate(ctx, path, src)
		})
	}
	return locate.NewCached(inner, cache.New(cfg.Cache), cfg.Cache.DiskTTL, logger)
}

// save writes the map back to where it was loaded from
func (s *session) save() error {
	if err := model.Save(s.m, s.mapPath); err != nil {
		return err
	}
	s.logger.Debug("alignment map saved", "path", s.mapPath)
	return nil
}

// rel converts a user-supplied path to a project-relative one
func (s *session) rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	return match.Normalize(rel), nil
}

// render prints v as JSON when requested, otherwise calls human
func (s *session) render(v interface{}, human func()) error {
	if s.cfg.Output.JSON {
		return report.JSON(s.out, v)
	}
	human()
	return nil
}
