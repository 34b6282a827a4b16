package goast

import (
	"go/ast"
	"go/types"

	"github.com/go-park/weaver/pkg/reflection"
)

// importSpecs renders import specs as `"path"` or `name "path"`. Blank
// imports are dropped.
func importSpecs(specs []*ast.ImportSpec) []string {
	var imports []string
	for _, v := range specs {
		if v.Path == nil || len(v.Path.Value) == 0 {
			continue
		}
		if v.Name == nil {
			imports = append(imports, v.Path.Value)
			continue
		}
		if v.Name.Name == "_" {
			continue
		}
		imports = append(imports, v.Name.Name+" "+v.Path.Value)
	}
	return imports
}

// receiverName returns the type name of a method receiver, T or *T.
func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

func visibility(name string) reflection.Visibility {
	if ast.IsExported(name) {
		return reflection.Public
	}
	return reflection.Protected
}

func fieldParams(list *ast.FieldList) []reflection.Param {
	if list == nil {
		return nil
	}
	var params []reflection.Param
	for _, f := range list.List {
		typ := types.ExprString(f.Type)
		if len(f.Names) == 0 {
			params = append(params, reflection.Param{Type: typ})
			continue
		}
		for _, name := range f.Names {
			params = append(params, reflection.Param{Name: name.Name, Type: typ})
		}
	}
	return params
}

func signature(fn *ast.FuncType) reflection.Signature {
	sig := reflection.Signature{
		Params:  fieldParams(fn.Params),
		Results: fieldParams(fn.Results),
	}
	if fn.Params != nil && len(fn.Params.List) > 0 {
		_, sig.Variadic = fn.Params.List[len(fn.Params.List)-1].Type.(*ast.Ellipsis)
	}
	return sig
}

func methodNames(c *reflection.Class) []string {
	names := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		names = append(names, m.Name)
	}
	return names
}
