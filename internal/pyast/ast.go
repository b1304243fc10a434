// Package pyast lowers the tree-sitter Python grammar into a small, closed set
// of typed syntax nodes that the extractors can dispatch on with a type switch.
package pyast

// Span locates a node in its source file. Line is 1-based, Column is the
// 0-based byte offset of the node's first token. EndLine is nil when the
// parser could not report an end position.
type Span struct {
	Line    int
	Column  int
	EndLine *int
}

// Position returns the node's span.
func (s Span) Position() Span { return s }

// Node is implemented by every lowered syntax node.
type Node interface {
	Position() Span
	node()
}

// Module is the root of a parsed file.
type Module struct {
	Span
	Body []Node
}

// ClassDef is a class declaration, with its decorators folded in.
type ClassDef struct {
	Span
	Name       string
	Bases      []Node
	Keywords   []Node
	Body       []Node
	Decorators []Node
}

// FunctionDef is a def or async def declaration, with its decorators folded in.
type FunctionDef struct {
	Span
	Name       string
	Async      bool
	ParamNames []string
	Params     []Node
	Body       []Node
	Decorators []Node
	Returns    Node
}

// Alias is one imported name: `a.b as c` gives Name "a.b", AsName "c".
type Alias struct {
	Name   string
	AsName string
}

// Import is `import a, b.c as d`.
type Import struct {
	Span
	Names []Alias
}

// ImportFrom is `from M import ...`. Level counts the leading dots of a
// relative import; Module excludes them and is empty for `from . import x`.
type ImportFrom struct {
	Span
	Module string
	Level  int
	Names  []Alias
}

// Assign is a plain assignment. A chain `a = b = v` is a single Assign with
// two targets.
type Assign struct {
	Span
	Targets []Node
	Value   Node
}

// AnnAssign is `target: annotation [= value]`. Value may be nil.
type AnnAssign struct {
	Span
	Target     Node
	Annotation Node
	Value      Node
}

// AugAssign is `target op= value`.
type AugAssign struct {
	Span
	Target Node
	Op     string
	Value  Node
}

// Expr is an expression used as a statement.
type Expr struct {
	Span
	Value Node
}

// Call is a call expression. Keyword arguments appear in Args as Other nodes.
type Call struct {
	Span
	Func Node
	Args []Node
}

// Name is a bare identifier.
type Name struct {
	Span
	ID string
}

// Attribute is `Value.Attr`.
type Attribute struct {
	Span
	Value Node
	Attr  string
}

// StrKind tells plain, bytes and formatted string literals apart.
type StrKind int

const (
	StrPlain StrKind = iota
	StrBytes
	StrFormatted
)

// Str is a string literal, or an implicit concatenation of several. Value
// holds the decoded text for plain and bytes literals. Parts holds the
// expressions interpolated into an f-string.
type Str struct {
	Span
	Kind  StrKind
	Value string
	Parts []Node
}

// Other stands for every construct the extractors do not inspect directly.
// Kind is the tree-sitter node type and Children its lowered named children.
type Other struct {
	Span
	Kind     string
	Children []Node
}

func (*Module) node()      {}
func (*ClassDef) node()    {}
func (*FunctionDef) node() {}
func (*Import) node()      {}
func (*ImportFrom) node()  {}
func (*Assign) node()      {}
func (*AnnAssign) node()   {}
func (*AugAssign) node()   {}
func (*Expr) node()        {}
func (*Call) node()        {}
func (*Name) node()        {}
func (*Attribute) node()   {}
func (*Str) node()         {}
func (*Other) node()       {}
