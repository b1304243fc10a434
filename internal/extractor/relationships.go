package extractor

import (
	"hohparser/internal/pyast"
)

// classIndex maps a class name to the set of methods declared directly in
// its body. Later declarations of a name replace earlier ones.
type classIndex map[string]map[string]bool

func buildClassIndex(root pyast.Node) classIndex {
	idx := make(classIndex)
	pyast.Inspect(root, func(n pyast.Node) bool {
		if cls, ok := n.(*pyast.ClassDef); ok {
			idx[cls.Name] = methodSet(cls)
		}
		return true
	})
	return idx
}

// plainDef reports n as a function definition unless it is an async def.
// Async functions are not symbols and take no part in method edges.
func plainDef(n pyast.Node) (*pyast.FunctionDef, bool) {
	fn, ok := n.(*pyast.FunctionDef)
	return fn, ok && !fn.Async
}

func methodNames(cls *pyast.ClassDef) []string {
	var names []string
	seen := make(map[string]bool)
	for _, stmt := range cls.Body {
		if fn, ok := plainDef(stmt); ok && !seen[fn.Name] {
			seen[fn.Name] = true
			names = append(names, fn.Name)
		}
	}
	return names
}

func methodSet(cls *pyast.ClassDef) map[string]bool {
	set := make(map[string]bool)
	for _, name := range methodNames(cls) {
		set[name] = true
	}
	return set
}

func baseNames(cls *pyast.ClassDef) []string {
	var bases []string
	for _, b := range cls.Bases {
		if name, ok := b.(*pyast.Name); ok {
			bases = append(bases, name.ID)
		}
	}
	return bases
}

// ExtractRelationships returns the relationship edges of a parsed file in
// traversal order. fileID is used as the source of file-scoped edges and as
// the location of every edge.
func ExtractRelationships(root pyast.Node, fileID string) []RelationshipEdge {
	r := &relationshipWalker{
		fileID:   fileID,
		location: &fileID,
		index:    buildClassIndex(root),
		edges:    []RelationshipEdge{},
	}
	pyast.Inspect(root, r.visit)
	return r.edges
}

type relationshipWalker struct {
	fileID   string
	location *string
	index    classIndex
	edges    []RelationshipEdge
	stack    []pyast.Node
}

func (r *relationshipWalker) emit(source, target string, kind EdgeKind) {
	r.edges = append(r.edges, RelationshipEdge{
		Source:   source,
		Target:   target,
		Type:     kind,
		Location: r.location,
	})
}

func (r *relationshipWalker) visit(n pyast.Node) bool {
	if n == nil {
		r.stack = r.stack[:len(r.stack)-1]
		return false
	}

	switch n := n.(type) {
	case *pyast.Import:
		for _, a := range n.Names {
			r.emit(r.fileID, a.Name, EdgeImports)
		}
	case *pyast.ImportFrom:
		for _, a := range n.Names {
			target := a.Name
			if n.Module != "" {
				target = n.Module + "." + a.Name
			}
			r.emit(r.fileID, target, EdgeFromImports)
		}
	case *pyast.Assign:
		r.composition(n)
		for _, t := range n.Targets {
			r.assigns(t)
		}
	case *pyast.AnnAssign:
		r.assigns(n.Target)
	case *pyast.AugAssign:
		r.assigns(n.Target)
	case *pyast.ClassDef:
		r.classEdges(n)
	case *pyast.Call:
		switch fn := n.Func.(type) {
		case *pyast.Name:
			r.emit(r.fileID, fn.ID, EdgeCalls)
		case *pyast.Attribute:
			r.emit(r.fileID, fn.Attr, EdgeCalls)
		}
	}

	r.stack = append(r.stack, n)
	return true
}

// assigns emits the edge for one assignment target. Attribute chains keep
// only their last component.
func (r *relationshipWalker) assigns(target pyast.Node) {
	switch t := target.(type) {
	case *pyast.Name:
		r.emit(r.fileID, t.ID, EdgeAssigns)
	case *pyast.Attribute:
		r.emit(r.fileID, t.Attr, EdgeAssigns)
	}
}

// composition emits `owner --composes--> K` for every `<receiver>.<attr> =
// K(...)` target, where the receiver is the instance parameter of the
// enclosing method.
func (r *relationshipWalker) composition(n *pyast.Assign) {
	call, ok := n.Value.(*pyast.Call)
	if !ok {
		return
	}
	callee, ok := call.Func.(*pyast.Name)
	if !ok {
		return
	}

	owner, receiver := r.fileID, "self"
	if cls, method := r.enclosingClass(); cls != nil {
		owner = cls.Name
		if method != nil && len(method.ParamNames) > 0 && !isStaticOrClassMethod(method) {
			receiver = method.ParamNames[0]
		}
	}

	for _, t := range n.Targets {
		attr, ok := t.(*pyast.Attribute)
		if !ok {
			continue
		}
		if base, ok := attr.Value.(*pyast.Name); ok && base.ID == receiver {
			r.emit(owner, callee.ID, EdgeComposes)
		}
	}
}

// enclosingClass returns the innermost class on the walk stack and, when the
// walk is inside one of its directly declared methods, that method.
func (r *relationshipWalker) enclosingClass() (*pyast.ClassDef, *pyast.FunctionDef) {
	for i := len(r.stack) - 1; i >= 0; i-- {
		cls, ok := r.stack[i].(*pyast.ClassDef)
		if !ok {
			continue
		}
		if i+1 < len(r.stack) {
			if fn, ok := r.stack[i+1].(*pyast.FunctionDef); ok {
				return cls, fn
			}
		}
		return cls, nil
	}
	return nil, nil
}

func isStaticOrClassMethod(fn *pyast.FunctionDef) bool {
	for _, d := range fn.Decorators {
		if name, ok := d.(*pyast.Name); ok && (name.ID == "staticmethod" || name.ID == "classmethod") {
			return true
		}
	}
	return false
}

func (r *relationshipWalker) classEdges(cls *pyast.ClassDef) {
	bases := baseNames(cls)
	for _, b := range bases {
		r.emit(cls.Name, b, EdgeInherits)
	}

	own := methodNames(cls)
	for _, b := range bases {
		inherited, ok := r.index[b]
		if !ok {
			continue
		}
		for _, m := range own {
			if inherited[m] {
				r.emit(cls.Name+"."+m, b+"."+m, EdgeOverrides)
			}
		}
	}

	for _, stmt := range cls.Body {
		fn, ok := plainDef(stmt)
		if !ok {
			continue
		}
		for _, d := range fn.Decorators {
			if kind, ok := decoratorKind(d); ok {
				r.emit(cls.Name, fn.Name, kind)
			}
		}
	}
}

func decoratorKind(d pyast.Node) (EdgeKind, bool) {
	switch d := d.(type) {
	case *pyast.Name:
		switch d.ID {
		case "property":
			return EdgeProperty, true
		case "staticmethod":
			return EdgeStaticMethod, true
		case "classmethod":
			return EdgeClassMethod, true
		}
	case *pyast.Attribute:
		switch d.Attr {
		case "setter":
			return EdgePropertySetter, true
		case "deleter":
			return EdgePropertyDeleter, true
		}
	}
	return "", false
}
