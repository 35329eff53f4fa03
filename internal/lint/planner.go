package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/drift"
	"github.com/ppiankov/alignmap/internal/locate"
	"github.com/ppiankov/alignmap/internal/model"
)

// Planner runs the lint passes
type Planner struct {
	locator locate.Locator
	docs    docs.Reader
	workers int
	logger  *slog.Logger
}

// NewPlanner creates a planner. A nil reader reads documents from the map's
// project root.
func NewPlanner(loc locate.Locator, reader docs.Reader, workers int, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Planner{locator: loc, docs: reader, workers: workers, logger: logger}
}

// sourceFile is what pass (a) learned about one mapped file
type sourceFile struct {
	missing   bool
	readErr   error
	lineCount int
}

// Plan validates m and returns a proposal. The map is not modified.
func (p *Planner) Plan(ctx context.Context, m *model.AlignmentMap) (*Proposal, error) {
	root, err := m.ProjectRoot()
	if err != nil {
		return nil, err
	}
	digest, err := Digest(m)
	if err != nil {
		return nil, err
	}
	reader := p.docs
	if reader == nil {
		reader = docs.NewFSReader(root)
	}

	var findings []Finding
	findings = append(findings, p.filePass(ctx, m, root)...)
	findings = append(findings, overlapPass(m)...)

	refs, err := p.refPass(ctx, m, reader)
	if err != nil {
		return nil, err
	}
	findings = append(findings, refs...)

	return newProposal(digest, findings), nil
}

// filePass checks that mapped files exist, that blocks fit inside them and
// that blocks still sit where the code is
func (p *Planner) filePass(ctx context.Context, m *model.AlignmentMap, root string) []Finding {
	files := make(map[string]sourceFile, len(m.Mappings))
	var present []string
	for _, fm := range m.Mappings {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(fm.File)))
		switch {
		case errors.Is(err, os.ErrNotExist):
			files[fm.File] = sourceFile{missing: true}
		case err != nil:
			files[fm.File] = sourceFile{readErr: err}
		default:
			files[fm.File] = sourceFile{lineCount: lineCount(string(data))}
			present = append(present, fm.File)
		}
	}

	located := locate.LocateAll(ctx, p.locator, root, present, p.workers)
	resolver := drift.NewResolver(p.locator, m.Settings)

	var findings []Finding
	for _, fm := range m.Mappings {
		sf := files[fm.File]
		switch {
		case sf.missing:
			findings = append(findings, missingFile(m, fm.File))
			continue
		case sf.readErr != nil:
			findings = append(findings, Finding{
				File:        fm.File,
				Issue:       IssueReadError,
				Action:      ActionManual,
				Confidence:  ConfidenceHigh,
				Description: fmt.Sprintf("cannot read file: %v", sf.readErr),
			})
			continue
		}

		fs := located[fm.File]
		if fs.Err != nil {
			p.logger.Debug("drift undetectable", "file", fm.File, "error", fs.Err)
		}
		var drifts []Finding
		for _, b := range fm.Blocks {
			var res *drift.Result
			if fs.Err == nil {
				r := resolver.ResolveSpans(fs.Spans, b)
				res = &r
			}
			if f, ok := p.blockFinding(fm.File, b, sf.lineCount, res); ok {
				drifts = append(drifts, f)
			}
		}
		findings = append(findings, settleMoves(fm, drifts)...)
	}
	return findings
}

func (p *Planner) blockFinding(file string, b model.Block, lines int, res *drift.Result) (Finding, bool) {
	f := Finding{File: file, Block: b.Name, OldLines: b.Lines.String(), Confidence: ConfidenceHigh}

	if b.Lines.End > lines {
		f.Issue = IssueInvalidLines
		f.Action = ActionManual
		f.Description = fmt.Sprintf("block %q ends at line %d but file has %d lines", b.Name, b.Lines.End, lines)
		if res != nil && res.Status == drift.StatusResolved {
			f.Action = ActionUpdateLines
			f.Fixable = true
			f.NewLines = res.Span.Lines.String()
			f.Description += fmt.Sprintf("; %s now spans %s", res.Span.Name, f.NewLines)
		}
		return f, true
	}
	if res == nil {
		return Finding{}, false
	}

	f.Issue = IssueLineDrift
	switch res.Status {
	case drift.StatusResolved:
		f.Action = ActionUpdateLines
		f.Fixable = true
		f.NewLines = res.Span.Lines.String()
		f.Description = fmt.Sprintf("block %q has drifted from %s to %s", b.Name, f.OldLines, f.NewLines)
	case drift.StatusAmbiguous:
		f.Action = ActionManual
		f.Confidence = ConfidenceLow
		f.Description = fmt.Sprintf("block %q matches %d spans equally: %s", b.Name, len(res.Candidates), spanList(res.Candidates))
	case drift.StatusOutOfTolerance:
		f.Action = ActionManual
		f.Confidence = ConfidenceMedium
		f.NewLines = res.Span.Lines.String()
		f.Description = fmt.Sprintf("block %q found at %s, outside the line tolerance of %s", b.Name, f.NewLines, f.OldLines)
	default:
		if res.Status == drift.StatusNotFound {
			p.logger.Debug("block name not found in code", "file", file, "block", b.Name)
		}
		return Finding{}, false
	}
	return f, true
}

// settleMoves demotes drift fixes whose new ranges would overlap blocks of the
// same file after every proposed move is applied
func settleMoves(fm model.FileMapping, findings []Finding) []Finding {
	final := fm.Clone()
	for _, f := range findings {
		if !f.Fixable {
			continue
		}
		r, err := model.ParseLineRange(f.NewLines)
		if err != nil {
			continue
		}
		if b, ok := final.Block(f.Block); ok {
			b.Lines = r
		}
	}

	clash := make(map[string]bool)
	for _, pair := range final.Overlaps() {
		clash[pair.First.Name] = true
		clash[pair.Second.Name] = true
	}
	for i := range findings {
		if findings[i].Fixable && clash[findings[i].Block] {
			findings[i].Fixable = false
			findings[i].Action = ActionManual
			findings[i].Confidence = ConfidenceMedium
			findings[i].Description += "; moving it would overlap another block"
		}
	}
	return findings
}

func missingFile(m *model.AlignmentMap, file string) Finding {
	f := Finding{
		File:        file,
		Issue:       IssueMissingFile,
		Action:      ActionRemoveFile,
		Fixable:     true,
		Confidence:  ConfidenceHigh,
		Description: "file not found: " + file,
	}
	_, orphans, err := m.Clone().RemoveMapping(file)
	if err == nil && len(orphans) > 0 {
		f.Action = ActionManual
		f.Fixable = false
		names := make([]string, 0, len(orphans))
		for _, o := range orphans {
			names = append(names, o.File+" ["+o.Block.Name+"]")
		}
		f.Description += "; still referenced by " + strings.Join(names, ", ")
	}
	return f
}

func overlapPass(m *model.AlignmentMap) []Finding {
	var findings []Finding
	for i := range m.Mappings {
		fm := &m.Mappings[i]
		for _, pair := range fm.Overlaps() {
			desc := fmt.Sprintf("block %q (%s) overlaps %q (%s)",
				pair.Second.Name, pair.Second.Lines, pair.First.Name, pair.First.Lines)
			findings = append(findings, Finding{
				File:        fm.File,
				Block:       pair.Second.Name,
				Issue:       IssueOverlap,
				Action:      ActionManual,
				Confidence:  ConfidenceHigh,
				OldLines:    pair.Second.Lines.String(),
				Description: desc,
			})
		}
	}
	return findings
}

// refPass checks every aligned_with entry. Documents are loaded up front in
// parallel; the findings keep map order.
func (p *Planner) refPass(ctx context.Context, m *model.AlignmentMap, reader docs.Reader) ([]Finding, error) {
	paths := make(map[string]bool)
	for _, fm := range m.Mappings {
		for _, b := range fm.Blocks {
			for _, ref := range b.AlignedWith {
				if !ref.IsCode() {
					paths[ref.Path] = true
				}
			}
		}
	}

	var mu sync.Mutex
	loaded := make(map[string]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := reader.Read(path)
			if err != nil {
				if errors.Is(err, docs.ErrNotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			loaded[path] = content
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load aligned documents: %w", err)
	}

	classifier, err := m.Hierarchy.NewClassifier()
	if err != nil {
		return nil, err
	}
	conflicts := make(map[string]bool)

	var findings []Finding
	for _, fm := range m.Mappings {
		for _, b := range fm.Blocks {
			for _, ref := range b.AlignedWith {
				if !ref.IsCode() && !conflicts[ref.Path] && classifier.MatchesBoth(ref.Path) {
					conflicts[ref.Path] = true
					findings = append(findings, Finding{
						File:        fm.File,
						Block:       b.Name,
						Ref:         ref.String(),
						Issue:       IssueTierConflict,
						Action:      ActionManual,
						Confidence:  ConfidenceHigh,
						Description: fmt.Sprintf("%s matches both requires_human and technical; it is treated as requires_human", ref.Path),
					})
				}
				f := Finding{
					File:       fm.File,
					Block:      b.Name,
					Ref:        ref.String(),
					Action:     ActionRemoveAlignment,
					Confidence: ConfidenceHigh,
				}
				if ref.IsCode() {
					if _, ok := m.BlockByID(ref.BlockID()); !ok {
						f.Issue = IssueUnresolvedCodeRef
						f.Description = fmt.Sprintf("no block has id %q", ref.BlockID())
						findings = append(findings, f)
					}
					continue
				}
				content, ok := loaded[ref.Path]
				if !ok {
					f.Issue = IssueMissingDoc
					f.Description = "aligned document not found: " + ref.Path
					findings = append(findings, f)
					continue
				}
				if ref.Anchor != "" && !docs.HasAnchor(content, ref.Anchor) {
					f.Issue = IssueMissingAnchor
					f.Confidence = ConfidenceMedium
					f.Description = fmt.Sprintf("anchor %q not found in %s", ref.Anchor, ref.Path)
					findings = append(findings, f)
				}
			}
		}
	}
	return findings, nil
}

func spanList(spans []locate.Span) string {
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		parts = append(parts, s.Name+" "+s.Lines.String())
	}
	return strings.Join(parts, ", ")
}

// lineCount counts lines the way editors number them; a trailing newline does
// not start a new line
func lineCount(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
