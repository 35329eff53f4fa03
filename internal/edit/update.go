// Package edit implements the map-mutating commands: update with overlap
// strategies, and touch.
package edit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/alignmap/internal/model"
)

// Strategy resolves an overlap between a new block and existing ones
type Strategy string

const (
	StrategyNone    Strategy = ""
	StrategyExtend  Strategy = "extend"
	StrategySplit   Strategy = "split"
	StrategyReplace Strategy = "replace"
)

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyNone, StrategyExtend, StrategySplit, StrategyReplace:
		return Strategy(s), nil
	}
	return StrategyNone, fmt.Errorf("unknown overlap strategy %q", s)
}

// ErrExceedsFile is returned when a range ends past the last line of its file
var ErrExceedsFile = errors.New("line range exceeds file length")

// StrategyRequiredError is returned when an update overlaps existing blocks
// and no strategy was chosen
type StrategyRequiredError struct {
	*model.OverlapError
	Suggested   Strategy
	Explanation string
}

func (e *StrategyRequiredError) Unwrap() error {
	return e.OverlapError
}

// SuggestStrategy picks the likely intent of an overlapping update
func SuggestStrategy(r model.LineRange, overlapping []model.Block) Strategy {
	if len(overlapping) != 1 {
		return StrategyReplace
	}
	existing := overlapping[0].Lines
	switch {
	case existing.ContainsRange(r):
		return StrategyExtend
	case r.ContainsRange(existing):
		return StrategyReplace
	default:
		return StrategySplit
	}
}

// Explain describes why a strategy fits
func Explain(s Strategy, r model.LineRange, overlapping []model.Block) string {
	if len(overlapping) == 0 {
		return ""
	}
	first := overlapping[0].Lines
	switch s {
	case StrategyExtend:
		return fmt.Sprintf("lines %s fall within the existing block %s; this adds detail to an existing section", r, first)
	case StrategySplit:
		return fmt.Sprintf("lines %s partially overlap %s; splitting gives a more granular mapping", r, first)
	case StrategyReplace:
		if len(overlapping) > 1 {
			return fmt.Sprintf("lines %s overlap %d blocks; replacing consolidates them into one mapping", r, len(overlapping))
		}
		return fmt.Sprintf("lines %s completely contain %s; replacing updates the block boundaries", r, first)
	}
	return ""
}

// UpdateRequest adds a block or changes an existing one
type UpdateRequest struct {
	File        string
	Block       string
	ID          string
	Lines       model.LineRange
	AlignedWith []model.Ref
	Comment     *string
	Strategy    Strategy
	// LineCount is the current length of File; zero skips the bounds check
	LineCount int
}

// UpdateResult reports what Update did
type UpdateResult struct {
	Action      string
	Block       string
	Lines       model.LineRange
	AlignedWith []model.Ref
	// Affected names every block written by the operation, in map order
	Affected []string
}

// Update applies req to m. Either the whole request applies or m is unchanged.
func Update(m *model.AlignmentMap, req UpdateRequest) (*UpdateResult, error) {
	if err := req.Lines.Validate(); err != nil {
		return nil, err
	}
	if req.LineCount > 0 && req.Lines.End > req.LineCount {
		return nil, fmt.Errorf("%s: %s with %d lines: %w", req.File, req.Lines, req.LineCount, ErrExceedsFile)
	}

	fm, ok := m.Mapping(req.File)
	if !ok {
		b := newBlock(m, req, "initial mapping")
		if err := m.AddBlock(req.File, b); err != nil {
			return nil, err
		}
		return result("added", b), nil
	}

	if existing, ok := fm.Block(req.Block); ok {
		return updateExisting(m, fm, existing, req)
	}

	overlapping := fm.OverlapsWith(req.Lines)
	if len(overlapping) == 0 {
		b := newBlock(m, req, "added new block")
		if err := m.AddBlock(req.File, b); err != nil {
			return nil, err
		}
		return result("added", b), nil
	}

	switch req.Strategy {
	case StrategyExtend:
		return extend(m, fm.File, req, overlapping[0])
	case StrategySplit:
		return split(m, fm.File, req, overlapping[0])
	case StrategyReplace:
		return replace(m, fm.File, req, overlapping)
	}
	suggested := SuggestStrategy(req.Lines, overlapping)
	return nil, &StrategyRequiredError{
		OverlapError: &model.OverlapError{File: fm.File, Requested: req.Lines, Conflicts: overlapping},
		Suggested:    suggested,
		Explanation:  Explain(suggested, req.Lines, overlapping),
	}
}

// updateExisting moves a block by name and, when refs are given, replaces them
func updateExisting(m *model.AlignmentMap, fm *model.FileMapping, existing *model.Block, req UpdateRequest) (*UpdateResult, error) {
	if err := m.UpdateBlockLines(fm.File, req.Block, req.Lines, req.Comment); err != nil {
		return nil, err
	}
	if len(req.AlignedWith) > 0 {
		existing.AlignedWith = append([]model.Ref(nil), req.AlignedWith...)
	}
	if req.ID != "" {
		existing.ID = req.ID
	}
	return result("updated", *existing), nil
}

func extend(m *model.AlignmentMap, file string, req UpdateRequest, existing model.Block) (*UpdateResult, error) {
	b := existing.Clone()
	b.Lines = existing.Lines.Union(req.Lines)
	b.AlignedWith = mergeRefs(existing.AlignedWith, req.AlignedWith)
	stamp(m, &b, req.Comment, fmt.Sprintf("extended block from %s to %s", existing.Lines, b.Lines))

	if err := m.ReplaceBlocks(file, []string{existing.Name}, []model.Block{b}); err != nil {
		return nil, err
	}
	return result("extended", b), nil
}

func split(m *model.AlignmentMap, file string, req UpdateRequest, existing model.Block) (*UpdateResult, error) {
	fallback := fmt.Sprintf("split from %q", existing.Name)
	added := newBlock(m, req, fallback)
	var parts []model.Block

	// the id stays with the part keeping the original start
	if existing.Lines.Start < req.Lines.Start {
		head := existing.Clone()
		head.Name = existing.Name + " (part 1)"
		head.Lines = model.LineRange{Start: existing.Lines.Start, End: req.Lines.Start - 1}
		stamp(m, &head, req.Comment, fallback)
		parts = append(parts, head)
	} else if added.ID == "" {
		added.ID = existing.ID
	}
	parts = append(parts, added)

	if existing.Lines.End > req.Lines.End {
		tail := existing.Clone()
		tail.Name = existing.Name + " (part 2)"
		tail.ID = ""
		tail.Lines = model.LineRange{Start: req.Lines.End + 1, End: existing.Lines.End}
		stamp(m, &tail, req.Comment, fallback)
		parts = append(parts, tail)
	}

	if err := m.ReplaceBlocks(file, []string{existing.Name}, parts); err != nil {
		return nil, err
	}
	res := result("split", added)
	res.Affected = names(parts)
	return res, nil
}

func replace(m *model.AlignmentMap, file string, req UpdateRequest, overlapping []model.Block) (*UpdateResult, error) {
	replaced := names(overlapping)
	b := newBlock(m, req, fmt.Sprintf("replaced %q", replaced[0]))
	if b.ID == "" && len(overlapping) == 1 {
		b.ID = overlapping[0].ID
	}

	if err := m.ReplaceBlocks(file, replaced, []model.Block{b}); err != nil {
		return nil, err
	}
	return result("replaced", b), nil
}

func newBlock(m *model.AlignmentMap, req UpdateRequest, fallback string) model.Block {
	b := model.Block{
		Name:        req.Block,
		ID:          req.ID,
		Lines:       req.Lines,
		AlignedWith: append([]model.Ref(nil), req.AlignedWith...),
	}
	stamp(m, &b, req.Comment, fallback)
	return b
}

func stamp(m *model.AlignmentMap, b *model.Block, comment *string, fallback string) {
	now := m.Now()
	b.LastUpdated = &now
	b.LastUpdateComment = fallback
	if comment != nil && *comment != "" {
		b.LastUpdateComment = *comment
	}
}

// mergeRefs unions two reference lists, sorted by their text
func mergeRefs(a, b []model.Ref) []model.Ref {
	seen := make(map[string]model.Ref, len(a)+len(b))
	for _, r := range append(append([]model.Ref(nil), a...), b...) {
		seen[r.String()] = r
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.Ref, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

func names(blocks []model.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Name)
	}
	return out
}

func result(action string, b model.Block) *UpdateResult {
	return &UpdateResult{
		Action:      action,
		Block:       b.Name,
		Lines:       b.Lines,
		AlignedWith: b.AlignedWith,
		Affected:    []string{b.Name},
	}
}
