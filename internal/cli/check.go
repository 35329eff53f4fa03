package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alignmap/internal/check"
	"github.com/ppiankov/alignmap/internal/model"
	"github.com/ppiankov/alignmap/internal/vcs"
)

var (
	checkAcks []string
	checkDiff string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify staged changes against the alignment map",
	Long: `Check classifies every staged change:

  UNMAPPED_FILE     file has no mapping (only with require_complete_coverage)
  UNMAPPED_LINES    changed lines fall outside every block
  MAP_NOT_UPDATED   a changed block's last_updated was not bumped
  STALE_DOC         an aligned document was not reviewed since the change
  HUMAN_ESCALATION  a requires_human document is affected

Any failing outcome exits with status 1. HUMAN_ESCALATION clears only with an
explicit, named acknowledgment.

The map is read from the index, so a map edit only counts once it is staged
along with the code it describes.

Example:
  alignment-map check
  alignment-map check --ack docs/IDENTITY.md=alice
  git diff -U0 main | alignment-map check --diff -`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringArrayVar(&checkAcks, "ack", nil, "acknowledge a requires_human document as DOC=NAME (repeatable)")
	checkCmd.Flags().StringVar(&checkDiff, "diff", "", "read a unified diff from this file (- for stdin) instead of staged changes")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	acks, err := parseAcks(checkAcks)
	if err != nil {
		return err
	}

	git := vcs.NewGit(s.root)
	diffs, err := changedFiles(ctx, git, cmd.InOrStdin())
	if err != nil {
		return err
	}

	mapRel, err := s.rel(s.mapPath)
	if err != nil {
		return err
	}
	current := s.m
	if checkDiff == "" {
		if current, err = stagedMap(ctx, git, s, mapRel); err != nil {
			return err
		}
	}
	in := check.Input{
		Changes:         toChanges(diffs, s),
		Map:             current,
		MapFile:         mapRel,
		Docs:            s.docs,
		Ignore:          s.ignore,
		Acknowledgments: acks,
	}
	in.Baseline, in.MapStaged = baseline(ctx, git, s, mapRel)

	outcomes, err := check.New(s.logger).Check(ctx, in)
	if err != nil {
		return err
	}

	if err := s.render(outcomes, func() { s.printer.Outcomes(outcomes, s.cfg.Output.Verbose) }); err != nil {
		return err
	}
	if len(check.Failed(outcomes)) > 0 {
		return errFailed
	}
	return nil
}

func changedFiles(ctx context.Context, git *vcs.Git, stdin io.Reader) ([]vcs.FileDiff, error) {
	switch checkDiff {
	case "":
		return git.StagedChanges(ctx)
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read diff: %w", err)
		}
		return vcs.ParseDiff(data)
	}
	data, err := os.ReadFile(checkDiff)
	if err != nil {
		return nil, fmt.Errorf("read diff: %w", err)
	}
	return vcs.ParseDiff(data)
}

func toChanges(diffs []vcs.FileDiff, s *session) []check.FileChange {
	changes := make([]check.FileChange, 0, len(diffs))
	for _, d := range diffs {
		if d.Deleted {
			s.logger.Debug("skipping deleted file", "file", d.Path)
			continue
		}
		changes = append(changes, check.FileChange{File: d.Path, Lines: d.Lines})
	}
	return changes
}

// stagedMap returns the map as it will be committed. Edits to the map that
// are not staged belong to a later commit and must not satisfy this one.
func stagedMap(ctx context.Context, git *vcs.Git, s *session, mapRel string) (*model.AlignmentMap, error) {
	data, err := git.ShowIndex(ctx, mapRel)
	if errors.Is(err, vcs.ErrNotInIndex) {
		s.logger.Debug("alignment map not in the index; using working tree", "path", mapRel)
		return s.m, nil
	}
	if err != nil {
		return nil, err
	}
	m, err := model.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("staged %s: %w", mapRel, err)
	}
	if err := m.SetProjectRoot(s.root); err != nil {
		return nil, err
	}
	return m, nil
}

// baseline loads the committed map. Without one, freshness falls back to
// whether the map file itself is staged.
func baseline(ctx context.Context, git *vcs.Git, s *session, mapRel string) (*model.AlignmentMap, bool) {
	data, err := git.ShowHEAD(ctx, mapRel)
	if err == nil {
		m, err := model.Decode(data)
		if err == nil {
			return m, false
		}
		s.logger.Warn("committed alignment map does not parse; using staged state", "error", err)
	} else if !errors.Is(err, vcs.ErrNotInHEAD) {
		s.logger.Debug("no committed alignment map", "error", err)
	}

	staged, err := git.IsStaged(ctx, mapRel)
	if err != nil {
		s.logger.Debug("could not read staged files", "error", err)
	}
	return nil, staged
}

func parseAcks(values []string) ([]check.Acknowledgment, error) {
	acks := make([]check.Acknowledgment, 0, len(values))
	for _, v := range values {
		doc, by, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(doc) == "" || strings.TrimSpace(by) == "" {
			return nil, fmt.Errorf("invalid --ack %q: want DOC=NAME", v)
		}
		acks = append(acks, check.Acknowledgment{Doc: strings.TrimSpace(doc), By: strings.TrimSpace(by)})
	}
	return acks, nil
}
