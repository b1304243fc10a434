package pyast

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// checker finds the indentation and statement errors the tree-sitter grammar
// accepts without an ERROR node: suites with no statement, statements that
// are not indented past their header or do not line up with their siblings,
// and Python 2 print/exec statements.
type checker struct {
	src      []byte
	filename string
}

func checkStructure(root *sitter.Node, src []byte, filename string) *SyntaxError {
	c := &checker{src: src, filename: filename}
	return c.visit(root)
}

func (c *checker) visit(n *sitter.Node) *SyntaxError {
	switch n.Type() {
	case "print_statement":
		return c.errAt(n, "Missing parentheses in call to 'print'")
	case "exec_statement":
		return c.errAt(n, "Missing parentheses in call to 'exec'")
	case "module":
		if err := c.aligned(statements(n), 0); err != nil {
			return err
		}
	case "block":
		if err := c.block(n); err != nil {
			return err
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if err := c.visit(n.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) block(n *sitter.Node) *SyntaxError {
	header := n.Parent()
	headerLine := int(n.StartPoint().Row)
	prev := n.PrevSibling()
	for prev != nil && isExtra(prev) {
		prev = prev.PrevSibling()
	}
	if prev != nil && prev.Type() == ":" {
		headerLine = int(prev.StartPoint().Row)
	}

	stmts := statements(n)
	if len(stmts) == 0 {
		return &SyntaxError{
			Filename: c.filename,
			Line:     headerLine + 2,
			Column:   0,
			Msg:      fmt.Sprintf("expected an indented block after line %d", headerLine+1),
		}
	}

	first := stmts[0]
	indent, ok := c.indentOf(first)
	if !ok {
		// Simple statements on the header line; nothing may follow on a new line.
		return c.aligned(stmts, -1)
	}
	if header != nil {
		if base, _ := c.indentOf(header); indent <= base {
			return c.errAt(first, "expected an indented block")
		}
	}
	return c.aligned(stmts, indent)
}

// aligned checks that every statement starting its own line is indented by
// exactly want bytes.
func (c *checker) aligned(stmts []*sitter.Node, want int) *SyntaxError {
	for _, s := range stmts {
		indent, ok := c.indentOf(s)
		if !ok || indent == want {
			continue
		}
		if indent > want {
			return c.errAt(s, "unexpected indent")
		}
		return c.errAt(s, "unindent does not match any outer indentation level")
	}
	return nil
}

// indentOf returns the width of the whitespace before n on its line. ok is
// false when other code precedes n on that line. A byte order mark opening
// the file does not count.
func (c *checker) indentOf(n *sitter.Node) (int, bool) {
	start := int(n.StartByte())
	i := start
	for i > 0 && c.src[i-1] != '\n' {
		switch {
		case c.src[i-1] == ' ' || c.src[i-1] == '\t' || c.src[i-1] == '\f':
			i--
		case i == len(bom) && string(c.src[:i]) == bom:
			return start - i, true
		default:
			return 0, false
		}
	}
	return start - i, true
}

const bom = "\ufeff"

func (c *checker) errAt(n *sitter.Node, msg string) *SyntaxError {
	p := n.StartPoint()
	return &SyntaxError{
		Filename: c.filename,
		Line:     int(p.Row) + 1,
		Column:   int(p.Column),
		Msg:      msg,
	}
}

// statements returns the named children of n that are not comments or line
// continuations.
func statements(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if !isExtra(c) {
			out = append(out, c)
		}
	}
	return out
}

func isExtra(n *sitter.Node) bool {
	switch n.Type() {
	case "comment", "line_continuation":
		return true
	}
	return false
}
