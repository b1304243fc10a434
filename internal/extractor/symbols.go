package extractor

import (
	"hohparser/internal/pyast"
)

// ExtractSymbols walks the statements of body in declaration order and
// returns the flat lists of classes and functions declared in it.
//
// A class is followed immediately by the classes nested in it. Every function
// lands in the function list: methods carry their class as parent, and a
// function nested inside another function inherits the enclosing argument of
// the call that found the outer function rather than naming the outer
// function. Classes declared inside a function body are not collected, and
// async defs are skipped along with everything inside them.
func ExtractSymbols(body []pyast.Node, enclosing *string) ([]ClassEntity, []FunctionEntity) {
	classes := []ClassEntity{}
	functions := []FunctionEntity{}

	for _, stmt := range body {
		switch n := stmt.(type) {
		case *pyast.ClassDef:
			name := n.Name
			nested, funcs := ExtractSymbols(n.Body, &name)
			classes = append(classes, newClassEntity(n, directMethods(n, funcs)))
			classes = append(classes, nested...)
			functions = append(functions, funcs...)

		case *pyast.FunctionDef:
			if n.Async {
				continue
			}
			_, innerFuncs := ExtractSymbols(n.Body, enclosing)
			functions = append(functions, newFunctionEntity(n, enclosing))
			functions = append(functions, innerFuncs...)
		}
	}
	return classes, functions
}

// directMethods picks, out of everything found while walking a class body,
// the entities for functions declared directly in that body.
func directMethods(cls *pyast.ClassDef, found []FunctionEntity) []FunctionEntity {
	direct := make(map[pyast.Span]bool)
	for _, stmt := range cls.Body {
		if fn, ok := plainDef(stmt); ok {
			direct[spanKey(fn.Span)] = true
		}
	}

	methods := []FunctionEntity{}
	for _, f := range found {
		if direct[pyast.Span{Line: f.Lineno, Column: f.ColOffset}] {
			methods = append(methods, f)
		}
	}
	return methods
}

func spanKey(s pyast.Span) pyast.Span {
	return pyast.Span{Line: s.Line, Column: s.Column}
}

func newClassEntity(n *pyast.ClassDef, methods []FunctionEntity) ClassEntity {
	bases := baseNames(n)
	if bases == nil {
		bases = []string{}
	}
	return ClassEntity{
		Name:      n.Name,
		Lineno:    n.Line,
		ColOffset: n.Column,
		EndLineno: n.EndLine,
		Bases:     bases,
		Methods:   methods,
		Docstring: pyast.Docstring(n.Body),
	}
}

func newFunctionEntity(n *pyast.FunctionDef, parent *string) FunctionEntity {
	return FunctionEntity{
		Name:      n.Name,
		Lineno:    n.Line,
		ColOffset: n.Column,
		EndLineno: n.EndLine,
		Parent:    parent,
		Docstring: pyast.Docstring(n.Body),
	}
}
