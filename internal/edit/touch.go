package edit

import (
	"context"
	"fmt"

	"github.com/ppiankov/alignmap/internal/drift"
	"github.com/ppiankov/alignmap/internal/model"
)

// TouchResult reports how a touched block moved
type TouchResult struct {
	Block       string
	Old         model.LineRange
	New         model.LineRange
	Drift       drift.Result
	AlignedWith []model.Ref
}

// Moved reports whether the block was relocated
func (r TouchResult) Moved() bool {
	return r.Old != r.New
}

// Touch relocates a block to where its code now lives, when that can be
// resolved unambiguously, and bumps last_updated. Unresolved drift keeps the
// declared lines; the drift result tells the caller why.
func Touch(ctx context.Context, m *model.AlignmentMap, resolver *drift.Resolver, src []byte, file, name string, comment *string) (*TouchResult, error) {
	fm, ok := m.Mapping(file)
	if !ok {
		return nil, fmt.Errorf("%s: %w", file, model.ErrMappingNotFound)
	}
	b, ok := fm.Block(name)
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", fm.File, name, model.ErrBlockNotFound)
	}

	res := resolver.Resolve(ctx, fm.File, src, *b)
	target := b.Lines
	if cur, ok := res.Current(); ok {
		target = cur
	}

	out := &TouchResult{Block: name, Old: b.Lines, New: target, Drift: res}
	if err := m.UpdateBlockLines(fm.File, name, target, comment); err != nil {
		return nil, err
	}
	b, _ = fm.Block(name)
	out.AlignedWith = b.AlignedWith
	return out, nil
}
