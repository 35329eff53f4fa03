package locate

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitor turns one node into a span. parents holds the enclosing named nodes,
// innermost last.
type visitor func(n *sitter.Node, src []byte, parents []*sitter.Node) (Span, bool)

// treeSitterLocator walks a tree-sitter syntax tree with a grammar-specific visitor
type treeSitterLocator struct {
	language *sitter.Language
	visit    visitor
	// tolerant grammars accept trees with error nodes
	tolerant bool
}

func (l *treeSitterLocator) Locate(ctx context.Context, path string, src []byte) ([]Span, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(l.language)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() && !l.tolerant {
		return nil, fmt.Errorf("%s: syntax errors: %w", path, ErrUnsupported)
	}

	lines := strings.Split(string(src), "\n")
	var spans []Span
	var walk func(n *sitter.Node, parents []*sitter.Node)
	walk = func(n *sitter.Node, parents []*sitter.Node) {
		if ctx.Err() != nil {
			return
		}
		if span, ok := l.visit(n, src, parents); ok {
			span.Lines.End = trimTrailingBlank(lines, span.Lines.Start, span.Lines.End)
			spans = append(spans, span)
		}
		parents = append(parents, n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i), parents)
		}
	}
	walk(root, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return spans, nil
}

// nodeLines converts a node's zero-based points to 1-based inclusive lines.
// A node ending at column 0 ends on the previous line.
func nodeLines(n *sitter.Node) (int, int) {
	start := int(n.StartPoint().Row) + 1
	end := int(n.EndPoint().Row) + 1
	if n.EndPoint().Column == 0 && n.EndPoint().Row > n.StartPoint().Row {
		end--
	}
	return start, end
}

func trimTrailingBlank(lines []string, start, end int) int {
	for end > start && end <= len(lines) && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return end
}

func fieldText(n *sitter.Node, field string, src []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(src)
}

// hasToken reports whether an anonymous child of n is the keyword tok
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == tok {
			return true
		}
	}
	return false
}

// nearest returns the innermost parent whose type is in types
func nearest(parents []*sitter.Node, types ...string) *sitter.Node {
	for i := len(parents) - 1; i >= 0; i-- {
		for _, t := range types {
			if parents[i].Type() == t {
				return parents[i]
			}
		}
	}
	return nil
}

func spanFor(n *sitter.Node, symbol string, kind Kind) (Span, bool) {
	if symbol == "" {
		return Span{}, false
	}
	start, end := nodeLines(n)
	return newSpan(symbol, kind, start, end, ConfidenceHigh), true
}
