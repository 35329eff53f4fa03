package locate

import (
	"sort"

	"github.com/ppiankov/alignmap/internal/model"
)

// Kind is the syntactic construct a span represents
type Kind string

const (
	KindClass         Kind = "class"
	KindFunction      Kind = "function"
	KindAsyncFunction Kind = "async_function"
	KindMethod        Kind = "method"
	KindInterface     Kind = "interface"
	KindStruct        Kind = "struct"
	KindType          Kind = "type"
	KindEnum          Kind = "enum"
	KindSection       Kind = "section"
	KindFile          Kind = "file"
)

// label is the suffix appended to a symbol to form a block name
func (k Kind) label() string {
	if k == KindAsyncFunction {
		return "async function"
	}
	return string(k)
}

// Confidence grades how a span was found
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // structural parse
	ConfidenceMedium Confidence = "medium" // indentation-aware heuristics
	ConfidenceLow    Confidence = "low"    // declaration regexes
)

// Span is one named syntactic unit of a file
type Span struct {
	// Symbol is the bare identifier or heading text, e.g. "Foo"
	Symbol string `json:"symbol"`
	// Name is the suggested block name, e.g. "Foo class"
	Name       string          `json:"name"`
	Kind       Kind            `json:"kind"`
	Lines      model.LineRange `json:"lines"`
	Confidence Confidence      `json:"confidence"`
}

func newSpan(symbol string, kind Kind, start, end int, conf Confidence) Span {
	if end < start {
		end = start
	}
	return Span{
		Symbol:     symbol,
		Name:       symbol + " " + kind.label(),
		Kind:       kind,
		Lines:      model.LineRange{Start: start, End: end},
		Confidence: conf,
	}
}

// Sort orders spans by start line with enclosing spans before the spans they contain
func Sort(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i].Lines, spans[j].Lines
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End > b.End
	})
}

// Outermost drops spans contained in an earlier span
func Outermost(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if len(out) > 0 && out[len(out)-1].Lines.ContainsRange(s.Lines) {
			continue
		}
		out = append(out, s)
	}
	return out
}
