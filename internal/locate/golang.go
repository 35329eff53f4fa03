package locate

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

func init() {
	DefaultRegistry.Register("go", []string{".go"}, func() Locator {
		return LocatorFunc(locateGo)
	})
}

func locateGo(ctx context.Context, path string, src []byte) ([]Span, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	line := func(p token.Pos) int { return fset.Position(p).Line }

	var spans []Span
	for _, decl := range file.Decls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch d := decl.(type) {
		case *ast.FuncDecl:
			symbol, kind := d.Name.Name, KindFunction
			if recv := receiverType(d); recv != "" {
				symbol, kind = recv+"."+d.Name.Name, KindMethod
			}
			spans = append(spans, newSpan(symbol, kind, line(d.Pos()), line(d.End()), ConfidenceHigh))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				kind := KindType
				switch ts.Type.(type) {
				case *ast.StructType:
					kind = KindStruct
				case *ast.InterfaceType:
					kind = KindInterface
				}
				var node ast.Node = ts
				if len(d.Specs) == 1 {
					node = d
				}
				spans = append(spans, newSpan(ts.Name.Name, kind, line(node.Pos()), line(node.End()), ConfidenceHigh))
			}
		}
	}
	return spans, nil
}

// receiverType returns the receiver's base type name, without pointer or type parameters
func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
