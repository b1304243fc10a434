package pyast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parse parses Python source and lowers it into a *Module. A fresh parser is
// created per call, so Parse is safe for concurrent use. Source that does not
// parse cleanly yields a *SyntaxError and no module.
func Parse(ctx context.Context, src []byte, filename string) (*Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxErrorAt(root, filename)
	}
	if err := checkStructure(root, src, filename); err != nil {
		return nil, err
	}

	l := &lowerer{src: src}
	return &Module{Span: SpanOf(root), Body: l.block(root)}, nil
}

// SpanOf converts a tree-sitter node position. A node whose extent ends at
// column 0 of a later row stops on the previous line.
func SpanOf(n *sitter.Node) Span {
	start, end := n.StartPoint(), n.EndPoint()
	endLine := int(end.Row) + 1
	if end.Column == 0 && end.Row > start.Row {
		endLine = int(end.Row)
	}
	return Span{
		Line:    int(start.Row) + 1,
		Column:  int(start.Column),
		EndLine: &endLine,
	}
}

// defSpan is SpanOf for a class or function definition, except that the end
// line is that of the last code in the body, not of trailing comments.
func defSpan(n *sitter.Node) Span {
	span := SpanOf(n)
	if end := codeEnd(n); end != nil && *end < *span.EndLine {
		span.EndLine = end
	}
	return span
}

// codeEnd returns the end line of the last non-comment token under n.
func codeEnd(n *sitter.Node) *int {
	if n.ChildCount() == 0 {
		return SpanOf(n).EndLine
	}
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		c := n.Child(i)
		if c == nil || isExtra(c) || c.StartByte() == c.EndByte() {
			continue
		}
		if end := codeEnd(c); end != nil {
			return end
		}
	}
	return nil
}

func syntaxErrorAt(root *sitter.Node, filename string) *SyntaxError {
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	msg := "invalid syntax"
	if bad.IsMissing() {
		msg = fmt.Sprintf("expected %q", bad.Type())
	}
	p := bad.StartPoint()
	return &SyntaxError{
		Filename: filename,
		Line:     int(p.Row) + 1,
		Column:   int(p.Column),
		Msg:      msg,
	}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if bad := firstError(c); bad != nil {
			return bad
		}
	}
	return nil
}

type lowerer struct {
	src []byte
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(l.src)
}

// block lowers the statements of a module or block node.
func (l *lowerer) block(n *sitter.Node) []Node {
	if n == nil {
		return nil
	}
	var out []Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if s := l.lower(n.NamedChild(i)); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (l *lowerer) list(n *sitter.Node) []Node {
	return l.block(n)
}

func (l *lowerer) lower(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "comment":
		return nil
	case "expression_statement":
		return l.expressionStatement(n)
	case "assignment":
		return l.assignment(n)
	case "augmented_assignment":
		return l.augAssignment(n)
	case "class_definition":
		return l.classDef(n, nil)
	case "function_definition", "async_function_definition":
		return l.funcDef(n, nil)
	case "decorated_definition":
		return l.decorated(n)
	case "import_statement":
		return l.importStatement(n)
	case "import_from_statement", "future_import_statement":
		return l.importFrom(n)
	case "call":
		return &Call{
			Span: SpanOf(n),
			Func: l.lower(n.ChildByFieldName("function")),
			Args: l.list(n.ChildByFieldName("arguments")),
		}
	case "identifier", "keyword_identifier":
		return &Name{Span: SpanOf(n), ID: l.text(n)}
	case "attribute":
		return &Attribute{
			Span:  SpanOf(n),
			Value: l.lower(n.ChildByFieldName("object")),
			Attr:  l.text(n.ChildByFieldName("attribute")),
		}
	case "string":
		return l.str(n)
	case "concatenated_string":
		return l.concatenated(n)
	case "parenthesized_expression":
		if inner := l.list(n); len(inner) == 1 {
			return inner[0]
		}
	}
	return &Other{Span: SpanOf(n), Kind: n.Type(), Children: l.list(n)}
}

func (l *lowerer) expressionStatement(n *sitter.Node) Node {
	inner := l.list(n)
	if len(inner) != 1 {
		return &Expr{Span: SpanOf(n), Value: &Other{Span: SpanOf(n), Kind: "expression_list", Children: inner}}
	}
	switch inner[0].(type) {
	case *Assign, *AnnAssign, *AugAssign:
		return inner[0]
	}
	return &Expr{Span: SpanOf(n), Value: inner[0]}
}

func (l *lowerer) assignment(n *sitter.Node) Node {
	span := SpanOf(n)
	var targets []Node
	for cur := n; ; {
		targets = append(targets, l.lower(cur.ChildByFieldName("left")))
		right := cur.ChildByFieldName("right")
		if typ := cur.ChildByFieldName("type"); typ != nil && len(targets) == 1 {
			return &AnnAssign{
				Span:       span,
				Target:     targets[0],
				Annotation: l.lower(typ),
				Value:      l.lower(right),
			}
		}
		if right != nil && right.Type() == "assignment" {
			cur = right
			continue
		}
		return &Assign{Span: span, Targets: targets, Value: l.lower(right)}
	}
}

func (l *lowerer) augAssignment(n *sitter.Node) Node {
	return &AugAssign{
		Span:   SpanOf(n),
		Target: l.lower(n.ChildByFieldName("left")),
		Op:     l.text(n.ChildByFieldName("operator")),
		Value:  l.lower(n.ChildByFieldName("right")),
	}
}

func (l *lowerer) decorated(n *sitter.Node) Node {
	var decorators []Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "decorator" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			if d := l.lower(c.NamedChild(j)); d != nil {
				decorators = append(decorators, d)
				break
			}
		}
	}

	def := n.ChildByFieldName("definition")
	if def == nil {
		return &Other{Span: SpanOf(n), Kind: n.Type(), Children: decorators}
	}
	if def.Type() == "class_definition" {
		return l.classDef(def, decorators)
	}
	return l.funcDef(def, decorators)
}

func (l *lowerer) classDef(n *sitter.Node, decorators []Node) *ClassDef {
	cls := &ClassDef{
		Span:       defSpan(n),
		Name:       l.text(n.ChildByFieldName("name")),
		Body:       l.block(n.ChildByFieldName("body")),
		Decorators: decorators,
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range l.list(supers) {
			if o, ok := arg.(*Other); ok && o.Kind == "keyword_argument" {
				cls.Keywords = append(cls.Keywords, arg)
				continue
			}
			cls.Bases = append(cls.Bases, arg)
		}
	}
	return cls
}

func (l *lowerer) funcDef(n *sitter.Node, decorators []Node) *FunctionDef {
	fn := &FunctionDef{
		Span:       defSpan(n),
		Name:       l.text(n.ChildByFieldName("name")),
		Body:       l.block(n.ChildByFieldName("body")),
		Decorators: decorators,
		Returns:    l.lower(n.ChildByFieldName("return_type")),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			fn.Async = true
			break
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() == "comment" {
				continue
			}
			fn.Params = append(fn.Params, l.lower(p))
			if name := l.paramName(p); name != "" {
				fn.ParamNames = append(fn.ParamNames, name)
			}
		}
	}
	return fn
}

func (l *lowerer) paramName(p *sitter.Node) string {
	switch p.Type() {
	case "identifier":
		return l.text(p)
	case "default_parameter", "typed_default_parameter":
		if name := p.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			return l.text(name)
		}
	case "typed_parameter":
		if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == "identifier" {
			return l.text(p.NamedChild(0))
		}
	}
	return ""
}

func (l *lowerer) dotted(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() != "dotted_name" {
		return l.text(n)
	}
	parts := make([]string, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		parts = append(parts, l.text(n.NamedChild(i)))
	}
	return strings.Join(parts, ".")
}

func (l *lowerer) alias(n *sitter.Node) (Alias, bool) {
	switch n.Type() {
	case "dotted_name":
		return Alias{Name: l.dotted(n)}, true
	case "aliased_import":
		return Alias{
			Name:   l.dotted(n.ChildByFieldName("name")),
			AsName: l.text(n.ChildByFieldName("alias")),
		}, true
	case "wildcard_import":
		return Alias{Name: "*"}, true
	}
	return Alias{}, false
}

func (l *lowerer) importStatement(n *sitter.Node) Node {
	imp := &Import{Span: SpanOf(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if a, ok := l.alias(n.NamedChild(i)); ok {
			imp.Names = append(imp.Names, a)
		}
	}
	return imp
}

func (l *lowerer) importFrom(n *sitter.Node) Node {
	imp := &ImportFrom{Span: SpanOf(n)}
	if n.Type() == "future_import_statement" {
		imp.Module = "__future__"
	}
	if mod := n.ChildByFieldName("module_name"); mod != nil {
		switch mod.Type() {
		case "relative_import":
			for i := 0; i < int(mod.NamedChildCount()); i++ {
				c := mod.NamedChild(i)
				switch c.Type() {
				case "import_prefix":
					imp.Level = strings.Count(l.text(c), ".")
				case "dotted_name":
					imp.Module = l.dotted(c)
				}
			}
		default:
			imp.Module = l.dotted(mod)
		}
	}

	// Imported names follow the `import` keyword.
	seenImport := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !seenImport {
			seenImport = c.Type() == "import"
			continue
		}
		if a, ok := l.alias(c); ok {
			imp.Names = append(imp.Names, a)
		}
	}
	return imp
}

func (l *lowerer) str(n *sitter.Node) *Str {
	s := &Str{Span: SpanOf(n)}
	lit := decodeLiteral(l.text(n))
	s.Kind, s.Value = lit.kind, lit.value
	if s.Kind == StrFormatted {
		s.Value = ""
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() != "interpolation" {
				continue
			}
			expr := c.ChildByFieldName("expression")
			if expr == nil && c.NamedChildCount() > 0 {
				expr = c.NamedChild(0)
			}
			if e := l.lower(expr); e != nil {
				s.Parts = append(s.Parts, e)
			}
		}
	}
	return s
}

func (l *lowerer) concatenated(n *sitter.Node) *Str {
	out := &Str{Span: SpanOf(n)}
	var b strings.Builder
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "string" {
			continue
		}
		part := l.str(c)
		switch {
		case part.Kind == StrFormatted:
			out.Kind = StrFormatted
		case part.Kind == StrBytes && out.Kind == StrPlain:
			out.Kind = StrBytes
		}
		b.WriteString(part.Value)
		out.Parts = append(out.Parts, part.Parts...)
	}
	if out.Kind != StrFormatted {
		out.Value = b.String()
	}
	return out
}
