package locate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tree_sitter_markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

func init() {
	DefaultRegistry.Register("markdown", []string{".md", ".markdown", ".mdx"}, func() Locator {
		return &treeSitterLocator{
			language: tree_sitter_markdown.GetLanguage(),
			visit:    visitMarkdown,
			tolerant: true,
		}
	})
}

// visitMarkdown emits one span per section; a section runs until the next
// heading of the same or a higher level, so subsections nest inside it
func visitMarkdown(n *sitter.Node, src []byte, _ []*sitter.Node) (Span, bool) {
	if n.Type() != "section" {
		return Span{}, false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "atx_heading" || child.Type() == "setext_heading" {
			return spanFor(n, headingText(child, src), KindSection)
		}
	}
	return Span{}, false
}

func headingText(heading *sitter.Node, src []byte) string {
	for i := 0; i < int(heading.NamedChildCount()); i++ {
		child := heading.NamedChild(i)
		if child.Type() == "inline" || child.Type() == "paragraph" {
			return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(child.Content(src)), "#"))
		}
	}
	return ""
}
