// Package check classifies changed lines against the alignment map.
//
// The checker is read-only: it never mutates the map. Every violation found
// is reported; nothing short-circuits except MAP_NOT_UPDATED, which skips the
// reference checks of that block.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/match"
	"github.com/ppiankov/alignmap/internal/model"
)

// FileChange is one changed file and its changed line numbers
type FileChange struct {
	File  string
	Lines []int
}

// Ignorer exempts files from coverage
type Ignorer interface {
	Ignored(rel string) bool
}

// Input is everything one check run consumes
type Input struct {
	Changes []FileChange
	Map     *model.AlignmentMap
	// Baseline is the map as last committed; nil when unavailable
	Baseline *model.AlignmentMap
	// MapStaged decides freshness when there is no baseline
	MapStaged bool
	// MapFile is the map's own project-relative path; changes to it are skipped
	MapFile         string
	Docs            docs.Reader
	Ignore          Ignorer
	Acknowledgments []Acknowledgment
}

// Checker runs consistency checks
type Checker struct {
	logger *slog.Logger
}

// New creates a checker
func New(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{logger: logger}
}

type run struct {
	in         Input
	classifier *model.Classifier
	docs       map[string]*loadedDoc
	seen       map[string]bool
	out        []Outcome
	logger     *slog.Logger
}

type loadedDoc struct {
	content  string
	reviewed *time.Time
	missing  bool
	badStamp error
}

// Check classifies every change. Outcomes are ordered by file, then block
// declaration order, then aligned_with order.
func (c *Checker) Check(ctx context.Context, in Input) ([]Outcome, error) {
	if in.Map == nil {
		return nil, errors.New("check: no alignment map")
	}
	if in.Docs == nil {
		return nil, errors.New("check: no document reader")
	}
	classifier, err := in.Map.Hierarchy.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	r := &run{
		in:         in,
		classifier: classifier,
		docs:       make(map[string]*loadedDoc),
		seen:       make(map[string]bool),
		logger:     c.logger,
	}

	for _, change := range mergeChanges(in.Changes) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.checkFile(change); err != nil {
			return nil, err
		}
	}
	return r.out, nil
}

// mergeChanges combines repeated files, sorts and dedupes lines, and orders files by path
func mergeChanges(changes []FileChange) []FileChange {
	byFile := make(map[string]map[int]bool)
	for _, ch := range changes {
		file := match.Normalize(ch.File)
		if byFile[file] == nil {
			byFile[file] = make(map[int]bool)
		}
		for _, l := range ch.Lines {
			byFile[file][l] = true
		}
	}

	out := make([]FileChange, 0, len(byFile))
	for file, set := range byFile {
		lines := make([]int, 0, len(set))
		for l := range set {
			lines = append(lines, l)
		}
		sort.Ints(lines)
		out = append(out, FileChange{File: file, Lines: lines})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

func (r *run) emit(o Outcome) {
	key := strings.Join([]string{o.File, string(o.Result), o.Block, o.Ref}, "\x00")
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.out = append(r.out, o)
}

func (r *run) checkFile(change FileChange) error {
	file := change.File
	if r.in.MapFile != "" && file == match.Normalize(r.in.MapFile) {
		return nil
	}
	if r.in.Ignore != nil && r.in.Ignore.Ignored(file) {
		r.logger.Debug("skipping ignored file", "file", file)
		return nil
	}

	fm, ok := r.in.Map.Mapping(file)
	if !ok {
		if r.in.Map.Settings.RequireCompleteCoverage {
			r.emit(Outcome{
				Result:     ResultUnmappedFile,
				File:       file,
				Lines:      change.Lines,
				Message:    "file not in alignment map: " + file,
				Suggestion: fmt.Sprintf("alignment-map update %s --block <name> --lines 1-<end> --aligned-with <doc>", file),
			})
		} else {
			r.logger.Debug("unmapped file outside complete-coverage mode", "file", file)
		}
		return nil
	}

	r.checkUnmappedLines(fm, change.Lines)

	for i := range fm.Blocks {
		block := fm.Blocks[i]
		if !touches(block, change.Lines) {
			continue
		}
		if !r.bumped(file, block) {
			r.emit(Outcome{
				Result:      ResultMapNotUpdated,
				File:        file,
				Block:       block.Name,
				LastUpdated: block.LastUpdated,
				Message:     fmt.Sprintf("block %q modified but alignment map not updated", block.Name),
				Suggestion:  fmt.Sprintf("alignment-map touch %s --block %q --comment <what changed>", file, block.Name),
			})
			continue
		}
		for _, ref := range block.AlignedWith {
			var err error
			if ref.IsCode() {
				r.checkCodeRef(file, block, ref)
			} else {
				err = r.checkDocRef(file, block, ref)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// checkUnmappedLines groups lines outside every block by their nearest block
func (r *run) checkUnmappedLines(fm *model.FileMapping, lines []int) {
	type group struct {
		nearest *model.Block
		lines   []int
	}
	var groups []*group
	byNearest := make(map[string]*group)

	for _, l := range lines {
		if _, ok := fm.BlockForLine(l); ok {
			continue
		}
		nearest, _ := fm.NearestBlock(l)
		key := ""
		if nearest != nil {
			key = nearest.Name
		}
		g, ok := byNearest[key]
		if !ok {
			g = &group{nearest: nearest}
			byNearest[key] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, l)
	}

	for _, g := range groups {
		o := Outcome{
			Result:  ResultUnmappedLines,
			File:    fm.File,
			Lines:   g.lines,
			Message: fmt.Sprintf("%s not in any mapped block", describeLines(g.lines)),
		}
		if g.nearest != nil {
			nb := g.nearest.Clone()
			o.Block = nb.Name
			o.Nearest = &nb
			o.Suggestion = fmt.Sprintf("extend %q (%s) or add a new block covering line %d", nb.Name, nb.Lines, g.lines[0])
		} else {
			o.Suggestion = fmt.Sprintf("add a new block covering line %d", g.lines[0])
		}
		r.emit(o)
	}
}

func describeLines(lines []int) string {
	if len(lines) == 1 {
		return fmt.Sprintf("line %d", lines[0])
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprint(l))
	}
	return "lines " + strings.Join(parts, ", ")
}

func touches(b model.Block, lines []int) bool {
	for _, l := range lines {
		if b.Lines.Contains(l) {
			return true
		}
	}
	return false
}

// bumped reports whether the block's last_updated changed in this change set
func (r *run) bumped(file string, b model.Block) bool {
	if r.in.Baseline == nil {
		return r.in.MapStaged
	}
	bfm, ok := r.in.Baseline.Mapping(file)
	if !ok {
		return true
	}
	prev, ok := bfm.Block(b.Name)
	if !ok {
		return true
	}
	switch {
	case b.LastUpdated == nil:
		return false
	case prev.LastUpdated == nil:
		return true
	default:
		return !b.LastUpdated.Equal(*prev.LastUpdated)
	}
}

func (r *run) loadDoc(path string) (*loadedDoc, error) {
	if d, ok := r.docs[path]; ok {
		return d, nil
	}
	d := &loadedDoc{}
	content, err := r.in.Docs.Read(path)
	switch {
	case errors.Is(err, docs.ErrNotFound):
		d.missing = true
	case err != nil:
		return nil, err
	default:
		d.content = content
		d.reviewed, d.badStamp = docs.LastReviewed(content)
	}
	r.docs[path] = d
	return d, nil
}

func (r *run) checkDocRef(file string, block model.Block, ref model.Ref) error {
	doc, err := r.loadDoc(ref.Path)
	if err != nil {
		return fmt.Errorf("check %s: %w", ref.Path, err)
	}

	var section *docs.Section
	if ref.Anchor != "" && !doc.missing {
		section, _ = docs.FindSection(doc.content, ref.Anchor)
	}

	reviewed := doc.reviewed
	if reviewed == nil && !doc.missing {
		reviewed = r.reviewedInMap(ref.Path, section)
	}
	required := block.UpdatedAt()

	o := Outcome{
		File:         file,
		Block:        block.Name,
		Ref:          ref.String(),
		Section:      section,
		LastUpdated:  block.LastUpdated,
		LastReviewed: reviewed,
	}

	if reviewed != nil && !reviewed.Before(required) {
		o.Result = ResultOK
		o.Message = "aligned with " + ref.String()
		r.emit(o)
		return nil
	}

	var reason string
	switch {
	case doc.missing:
		reason = "document not found: " + ref.Path
	case doc.badStamp != nil:
		reason = fmt.Sprintf("unreadable last_reviewed in %s: %v", ref.Path, doc.badStamp)
	case reviewed == nil:
		reason = "document has no last_reviewed: " + ref.String()
	default:
		reason = fmt.Sprintf("%s reviewed %s, before block updated %s",
			ref.String(), model.FormatTimestamp(*reviewed), model.FormatTimestamp(required))
	}
	r.emitStale(o, ref.Path, reason)
	return nil
}

// reviewedInMap falls back to last_reviewed recorded on the document's own
// blocks in the map, limited to blocks overlapping the anchored section
func (r *run) reviewedInMap(docPath string, section *docs.Section) *time.Time {
	fm, ok := r.in.Map.Mapping(docPath)
	if !ok {
		return nil
	}
	var latest *time.Time
	for _, b := range fm.Blocks {
		if b.LastReviewed == nil {
			continue
		}
		if section != nil && !b.Lines.Overlaps(section.Lines) {
			continue
		}
		if latest == nil || b.LastReviewed.After(*latest) {
			t := *b.LastReviewed
			latest = &t
		}
	}
	return latest
}

func (r *run) checkCodeRef(file string, block model.Block, ref model.Ref) {
	required := block.UpdatedAt()
	o := Outcome{
		File:        file,
		Block:       block.Name,
		Ref:         ref.String(),
		LastUpdated: block.LastUpdated,
	}

	target, ok := r.in.Map.BlockByID(ref.BlockID())
	if !ok {
		r.emitStale(o, ref.Path, fmt.Sprintf("code reference %s does not resolve to any block id", ref.String()))
		return
	}
	o.Code = &CodeTarget{
		File:        target.File,
		Block:       target.Block.Name,
		Lines:       target.Block.Lines,
		LastUpdated: target.Block.LastUpdated,
		Content:     r.codeContent(target.File, target.Block.Lines),
	}

	if target.Block.LastUpdated != nil && !target.Block.LastUpdated.Before(required) {
		o.Result = ResultOK
		o.Message = "aligned with " + ref.String()
		r.emit(o)
		return
	}

	reason := fmt.Sprintf("%s (%q in %s) has no last_updated", ref.String(), target.Block.Name, target.File)
	if target.Block.LastUpdated != nil {
		reason = fmt.Sprintf("%s (%q in %s) updated %s, before block updated %s",
			ref.String(), target.Block.Name, target.File,
			model.FormatTimestamp(*target.Block.LastUpdated), model.FormatTimestamp(required))
	}
	r.emitStale(o, target.File, reason)
}

// codeContent returns the lines of lines in file, clamped to the file's end
func (r *run) codeContent(file string, lines model.LineRange) string {
	src, err := r.loadDoc(file)
	if err != nil || src.missing {
		r.logger.Debug("code reference target unreadable", "file", file, "error", err)
		return ""
	}
	all := strings.Split(strings.TrimSuffix(src.content, "\n"), "\n")
	if lines.Start > len(all) {
		return ""
	}
	end := min(lines.End, len(all))
	return strings.Join(all[lines.Start-1:end], "\n")
}

// emitStale classifies a stale alignment by the target's review tier
func (r *run) emitStale(o Outcome, targetPath, reason string) {
	tier := r.classifier.Classify(targetPath)
	o.Tier = tier.String()
	o.Message = reason

	if tier == model.TierHuman {
		o.Result = ResultHumanEscalation
		o.Suggestion = "have a human review " + targetPath + " and update last_reviewed"
		if by, ok := r.acknowledged(targetPath, o.Ref); ok {
			o.Acknowledged = true
			o.AcknowledgedBy = by
		}
	} else {
		o.Result = ResultStaleDoc
		o.Suggestion = "review " + targetPath + " and update last_reviewed"
	}
	r.emit(o)
}

func (r *run) acknowledged(targetPath, ref string) (string, bool) {
	for _, ack := range r.in.Acknowledgments {
		if strings.TrimSpace(ack.By) == "" {
			continue
		}
		doc := match.Normalize(ack.Doc)
		if doc == targetPath || doc == ref {
			return ack.By, true
		}
	}
	return "", false
}
