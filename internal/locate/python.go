package locate

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	DefaultRegistry.Register("python", []string{".py", ".pyi"}, func() Locator {
		return &treeSitterLocator{language: python.GetLanguage(), visit: visitPython}
	})
}

func visitPython(n *sitter.Node, src []byte, parents []*sitter.Node) (Span, bool) {
	switch n.Type() {
	case "class_definition":
		return spanFor(n, fieldText(n, "name", src), KindClass)
	case "function_definition":
		kind := KindFunction
		switch {
		case hasToken(n, "async"):
			kind = KindAsyncFunction
		case isPythonMethod(parents):
			kind = KindMethod
		}
		return spanFor(n, fieldText(n, "name", src), kind)
	}
	return Span{}, false
}

// isPythonMethod reports whether the innermost enclosing definition is a class
func isPythonMethod(parents []*sitter.Node) bool {
	def := nearest(parents, "class_definition", "function_definition")
	return def != nil && def.Type() == "class_definition"
}
