package locate

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

func init() {
	DefaultRegistry.Register("java", []string{".java"}, func() Locator {
		return &treeSitterLocator{language: java.GetLanguage(), visit: visitJava}
	})
}

func visitJava(n *sitter.Node, src []byte, _ []*sitter.Node) (Span, bool) {
	switch n.Type() {
	case "class_declaration", "record_declaration":
		return spanFor(n, fieldText(n, "name", src), KindClass)
	case "interface_declaration", "annotation_type_declaration":
		return spanFor(n, fieldText(n, "name", src), KindInterface)
	case "enum_declaration":
		return spanFor(n, fieldText(n, "name", src), KindEnum)
	case "method_declaration", "constructor_declaration":
		return spanFor(n, fieldText(n, "name", src), KindMethod)
	}
	return Span{}, false
}
