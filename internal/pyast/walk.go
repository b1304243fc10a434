package pyast

// Children returns the direct child nodes of n in source-field order:
// bases, keywords, body, decorators for a class; parameters, body,
// decorators, return annotation for a function; targets before value for
// assignments; callee before arguments for a call.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch n := n.(type) {
	case *Module:
		add(n.Body...)
	case *ClassDef:
		add(n.Bases...)
		add(n.Keywords...)
		add(n.Body...)
		add(n.Decorators...)
	case *FunctionDef:
		add(n.Params...)
		add(n.Body...)
		add(n.Decorators...)
		add(n.Returns)
	case *Assign:
		add(n.Targets...)
		add(n.Value)
	case *AnnAssign:
		add(n.Target, n.Annotation, n.Value)
	case *AugAssign:
		add(n.Target, n.Value)
	case *Expr:
		add(n.Value)
	case *Call:
		add(n.Func)
		add(n.Args...)
	case *Attribute:
		add(n.Value)
	case *Str:
		add(n.Parts...)
	case *Other:
		add(n.Children...)
	}
	return out
}

// Inspect traverses the tree rooted at n depth-first in pre-order. It calls
// f(node) for each node; if f returns true, Inspect visits the node's
// children and then calls f(nil).
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
	f(nil)
}
