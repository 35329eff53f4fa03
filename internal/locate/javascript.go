package locate

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	DefaultRegistry.Register("javascript", []string{".js", ".jsx", ".mjs", ".cjs"}, func() Locator {
		return &treeSitterLocator{language: javascript.GetLanguage(), visit: visitECMAScript}
	})
	DefaultRegistry.Register("typescript", []string{".ts", ".mts", ".cts"}, func() Locator {
		return &treeSitterLocator{language: typescript.GetLanguage(), visit: visitECMAScript}
	})
	DefaultRegistry.Register("tsx", []string{".tsx"}, func() Locator {
		return &treeSitterLocator{language: tsx.GetLanguage(), visit: visitECMAScript}
	})
}

// visitECMAScript handles the node types shared by the JavaScript and TypeScript grammars
func visitECMAScript(n *sitter.Node, src []byte, parents []*sitter.Node) (Span, bool) {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration":
		return spanFor(n, fieldText(n, "name", src), KindClass)
	case "function_declaration", "generator_function_declaration":
		kind := KindFunction
		if hasToken(n, "async") {
			kind = KindAsyncFunction
		}
		return spanFor(n, fieldText(n, "name", src), kind)
	case "method_definition":
		return spanFor(n, fieldText(n, "name", src), KindMethod)
	case "interface_declaration":
		return spanFor(n, fieldText(n, "name", src), KindInterface)
	case "type_alias_declaration":
		return spanFor(n, fieldText(n, "name", src), KindType)
	case "enum_declaration":
		return spanFor(n, fieldText(n, "name", src), KindEnum)
	case "variable_declarator":
		return visitDeclarator(n, src)
	}
	return Span{}, false
}

// visitDeclarator turns `const foo = () => {}` into a function span covering the whole statement
func visitDeclarator(n *sitter.Node, src []byte) (Span, bool) {
	value := n.ChildByFieldName("value")
	if value == nil {
		return Span{}, false
	}
	kind := KindFunction
	switch value.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		if hasToken(value, "async") {
			kind = KindAsyncFunction
		}
	case "class":
		kind = KindClass
	default:
		return Span{}, false
	}

	name := n.ChildByFieldName("name")
	if name == nil || name.Type() != "identifier" {
		return Span{}, false
	}

	stmt := n
	if parent := n.Parent(); parent != nil && parent.NamedChildCount() == 1 {
		switch parent.Type() {
		case "lexical_declaration", "variable_declaration":
			stmt = parent
		}
	}
	return spanFor(stmt, name.Content(src), kind)
}
