package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/lint"
	"github.com/ppiankov/alignmap/internal/model"
	"github.com/ppiankov/alignmap/internal/watch"
)

var lintWatch bool

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Find map problems and propose fixes",
	Long: `Lint checks that mapped files exist, that block ranges fit their files,
that blocks have not drifted away from the code they name, that blocks do not
overlap, and that every aligned document, anchor and code reference resolves.

Fixable findings are written to a proposal file for review. Nothing in the map
changes until 'alignment-map fix' applies it.

Example:
  alignment-map lint
  alignment-map lint --watch`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

// fixCmd represents the fix command
var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Apply the fix proposal written by lint",
	Long: `Fix applies every auto-fixable entry of the proposal exactly as written.
It refuses when the map changed after the proposal was generated; run lint again.`,
	Args: cobra.NoArgs,
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(fixCmd)

	lintCmd.Flags().BoolVar(&lintWatch, "watch", false, "re-run lint whenever files change")
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	if !lintWatch {
		prop, err := lintOnce(ctx, s)
		if err != nil {
			return err
		}
		if len(prop.Findings) > 0 {
			return errFailed
		}
		return nil
	}

	if _, err := lintOnce(ctx, s); err != nil {
		return err
	}
	mapRel, err := s.rel(s.mapPath)
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Config{
		Root:     s.root,
		Debounce: s.cfg.Watch.Debounce,
		Ignore:   s.ignore,
		Logger:   s.logger,
		Extra:    []string{mapRel},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		s.logger.Info("re-running lint", "changed", len(changed))
		m, err := model.Load(s.mapPath)
		if err != nil {
			// A half-written map is normal while editing
			s.logger.Warn("alignment map does not load", "error", err)
			return nil
		}
		s.m = m
		s.docs = docs.NewFSReader(s.root)
		fmt.Fprintln(s.out)
		_, err = lintOnce(ctx, s)
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// lintOnce plans fixes for the session's map and writes the proposal
func lintOnce(ctx context.Context, s *session) (*lint.Proposal, error) {
	planner := lint.NewPlanner(s.locator, s.docs, s.cfg.Locate.Workers, s.logger)
	prop, err := planner.Plan(ctx, s.m)
	if err != nil {
		return nil, err
	}

	path := ""
	fixesPath := filepath.Join(s.root, s.cfg.FixesFile)
	if len(lint.Fixable(prop.Findings)) > 0 {
		if err := lint.WriteProposal(fixesPath, prop); err != nil {
			return nil, err
		}
		path = s.cfg.FixesFile
	} else if err := os.Remove(fixesPath); err == nil {
		s.logger.Debug("removed outdated proposal", "path", fixesPath)
	}

	if err := s.render(prop, func() { s.printer.Proposal(prop, path) }); err != nil {
		return nil, err
	}
	return prop, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	fixesPath := filepath.Join(s.root, s.cfg.FixesFile)
	prop, err := lint.ReadProposal(fixesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no proposal at %s: run 'alignment-map lint' first", s.cfg.FixesFile)
		}
		return err
	}

	actions, err := lint.Apply(s.m, prop)
	if err != nil {
		if errors.Is(err, lint.ErrStaleProposal) {
			return fmt.Errorf("%w: run 'alignment-map lint' again", err)
		}
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	if err := os.Remove(fixesPath); err != nil {
		s.logger.Warn("could not remove applied proposal", "path", fixesPath, "error", err)
	}

	return s.render(map[string]interface{}{"proposal": prop.ID, "actions": actions}, func() {
		s.printer.Actions(actions)
	})
}
