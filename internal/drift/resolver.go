// Package drift relocates blocks whose declared line range no longer matches
// the code's current structure.
package drift

import (
	"context"
	"errors"

	"github.com/ppiankov/alignmap/internal/locate"
	"github.com/ppiankov/alignmap/internal/model"
)

// Status is the outcome of resolving one block
type Status string

const (
	StatusUnchanged      Status = "unchanged"
	StatusResolved       Status = "resolved"
	StatusNotFound       Status = "not_found"
	StatusAmbiguous      Status = "ambiguous"
	StatusOutOfTolerance Status = "out_of_tolerance"
	StatusUndetectable   Status = "undetectable"
)

// Result describes where a block currently lives
type Result struct {
	Status   Status
	Block    string
	Declared model.LineRange
	// Span is the matched span for unchanged, resolved and out-of-tolerance results
	Span *locate.Span
	// Candidates holds the tied spans of an ambiguous result
	Candidates []locate.Span
	// Err explains an undetectable result
	Err error
}

// Moved reports whether the block resolved to a different range
func (r Result) Moved() bool {
	return r.Status == StatusResolved && r.Span != nil && r.Span.Lines != r.Declared
}

// Current returns the range the block should have, when known
func (r Result) Current() (model.LineRange, bool) {
	switch r.Status {
	case StatusUnchanged, StatusResolved:
		return r.Span.Lines, true
	}
	return model.LineRange{}, false
}

// Resolver matches block names against located spans
type Resolver struct {
	locator  locate.Locator
	settings model.Settings
}

// NewResolver creates a resolver using the map's tolerance and fuzzy_match settings
func NewResolver(loc locate.Locator, settings model.Settings) *Resolver {
	return &Resolver{locator: loc, settings: settings}
}

// Resolve finds the current location of block in src
func (r *Resolver) Resolve(ctx context.Context, file string, src []byte, block model.Block) Result {
	res := Result{Block: block.Name, Declared: block.Lines}

	spans, err := r.locator.Locate(ctx, file, src)
	if err != nil {
		res.Status = StatusUndetectable
		res.Err = err
		return res
	}
	return r.ResolveSpans(spans, block)
}

// ResolveSpans runs the matching step over already located spans
func (r *Resolver) ResolveSpans(spans []locate.Span, block model.Block) Result {
	res := Result{Block: block.Name, Declared: block.Lines}
	target := TargetName(block.Name)

	if !r.settings.FuzzyMatch {
		return r.exactPosition(res, spans, target)
	}

	want := newTokenSet(target)
	if len(want) == 0 {
		res.Status = StatusNotFound
		return res
	}

	type candidate struct {
		span       locate.Span
		similarity float64
	}
	var inside, outside []candidate
	for _, s := range spans {
		covered, similarity := score(want, newTokenSet(s.Symbol))
		if covered < 1 {
			continue
		}
		c := candidate{span: s, similarity: similarity}
		if abs(s.Lines.Start-block.Lines.Start) <= r.tolerance() {
			inside = append(inside, c)
		} else {
			outside = append(outside, c)
		}
	}

	if len(inside) == 0 {
		if len(outside) == 0 {
			res.Status = StatusNotFound
			return res
		}
		closest := outside[0].span
		for _, c := range outside[1:] {
			if abs(c.span.Lines.Start-block.Lines.Start) < abs(closest.Lines.Start-block.Lines.Start) {
				closest = c.span
			}
		}
		res.Status = StatusOutOfTolerance
		res.Span = &closest
		return res
	}

	best := 0.0
	for _, c := range inside {
		if c.similarity > best {
			best = c.similarity
		}
	}
	var tied []locate.Span
	for _, c := range inside {
		if c.similarity == best {
			tied = append(tied, c.span)
		}
	}

	winner, ok := coarsest(tied)
	if !ok {
		res.Status = StatusAmbiguous
		res.Candidates = tied
		return res
	}
	return settle(res, winner)
}

// exactPosition only accepts a span starting at the declared start with the same name
func (r *Resolver) exactPosition(res Result, spans []locate.Span, target string) Result {
	for _, s := range spans {
		if s.Lines.Start == res.Declared.Start && equalNames(s.Symbol, target) {
			return settle(res, s)
		}
	}
	res.Status = StatusUndetectable
	res.Err = errors.New("fuzzy matching disabled and no span starts at the declared line")
	return res
}

func (r *Resolver) tolerance() int {
	if r.settings.LineTolerance < 0 {
		return 0
	}
	return r.settings.LineTolerance
}

func settle(res Result, s locate.Span) Result {
	res.Span = &s
	if s.Lines == res.Declared {
		res.Status = StatusUnchanged
	} else {
		res.Status = StatusResolved
	}
	return res
}

// coarsest returns the single span that contains every other tied span
func coarsest(spans []locate.Span) (locate.Span, bool) {
	if len(spans) == 1 {
		return spans[0], true
	}
	for i, s := range spans {
		enclosesAll := true
		for j, other := range spans {
			if i != j && (!s.Lines.ContainsRange(other.Lines) || s.Lines == other.Lines) {
				enclosesAll = false
				break
			}
		}
		if enclosesAll {
			return s, true
		}
	}
	return locate.Span{}, false
}

func equalNames(a, b string) bool {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) != len(tb) || len(ta) == 0 {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
