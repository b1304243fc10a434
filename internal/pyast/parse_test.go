package pyast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := Parse(context.Background(), []byte(src), "test.py")
	require.NoError(t, err)
	return mod
}

func TestParse_Definitions(t *testing.T) {
	src := `import os

class Base(object, metaclass=Meta):
    """Base doc."""

    @property
    def value(self):
        return self._value

async def fetch(url, timeout: int = 3):
    pass
`
	mod := mustParse(t, src)
	require.Len(t, mod.Body, 3)

	t.Run("Class", func(t *testing.T) {
		cls, ok := mod.Body[1].(*ClassDef)
		require.True(t, ok)
		assert.Equal(t, "Base", cls.Name)
		assert.Equal(t, 3, cls.Line)
		assert.Equal(t, 0, cls.Column)
		require.NotNil(t, cls.EndLine)
		assert.Equal(t, 8, *cls.EndLine)

		require.Len(t, cls.Bases, 1)
		assert.Equal(t, "object", cls.Bases[0].(*Name).ID)
		assert.Len(t, cls.Keywords, 1)

		doc := Docstring(cls.Body)
		require.NotNil(t, doc)
		assert.Equal(t, "Base doc.", *doc)
	})

	t.Run("Decorated Method", func(t *testing.T) {
		cls := mod.Body[1].(*ClassDef)
		fn, ok := cls.Body[1].(*FunctionDef)
		require.True(t, ok)
		assert.Equal(t, "value", fn.Name)
		assert.Equal(t, 7, fn.Line, "span starts at def, not at the decorator")
		assert.Equal(t, 4, fn.Column)
		require.Len(t, fn.Decorators, 1)
		assert.Equal(t, "property", fn.Decorators[0].(*Name).ID)
		assert.Equal(t, []string{"self"}, fn.ParamNames)
	})

	t.Run("Async Function", func(t *testing.T) {
		fn, ok := mod.Body[2].(*FunctionDef)
		require.True(t, ok)
		assert.Equal(t, "fetch", fn.Name)
		assert.True(t, fn.Async)
		assert.Equal(t, []string{"url", "timeout"}, fn.ParamNames)
	})
}

func TestParse_Imports(t *testing.T) {
	src := `import os.path as osp, sys
from collections import OrderedDict as OD, deque
from . import sibling
from ..pkg.mod import thing
from __future__ import annotations
from typing import *
`
	mod := mustParse(t, src)
	require.Len(t, mod.Body, 6)

	imp := mod.Body[0].(*Import)
	assert.Equal(t, []Alias{{Name: "os.path", AsName: "osp"}, {Name: "sys"}}, imp.Names)

	from := mod.Body[1].(*ImportFrom)
	assert.Equal(t, "collections", from.Module)
	assert.Equal(t, 0, from.Level)
	assert.Equal(t, []Alias{{Name: "OrderedDict", AsName: "OD"}, {Name: "deque"}}, from.Names)

	rel := mod.Body[2].(*ImportFrom)
	assert.Equal(t, "", rel.Module)
	assert.Equal(t, 1, rel.Level)
	assert.Equal(t, []Alias{{Name: "sibling"}}, rel.Names)

	rel2 := mod.Body[3].(*ImportFrom)
	assert.Equal(t, "pkg.mod", rel2.Module)
	assert.Equal(t, 2, rel2.Level)

	future := mod.Body[4].(*ImportFrom)
	assert.Equal(t, "__future__", future.Module)
	assert.Equal(t, []Alias{{Name: "annotations"}}, future.Names)

	star := mod.Body[5].(*ImportFrom)
	assert.Equal(t, []Alias{{Name: "*"}}, star.Names)
}

func TestParse_Assignments(t *testing.T) {
	src := `a = b = 1
x: int = 42
y: str
count += 1
self.bar = Bar()
`
	mod := mustParse(t, src)
	require.Len(t, mod.Body, 5)

	chain := mod.Body[0].(*Assign)
	require.Len(t, chain.Targets, 2)
	assert.Equal(t, "a", chain.Targets[0].(*Name).ID)
	assert.Equal(t, "b", chain.Targets[1].(*Name).ID)

	ann := mod.Body[1].(*AnnAssign)
	assert.Equal(t, "x", ann.Target.(*Name).ID)
	assert.NotNil(t, ann.Value)

	bare := mod.Body[2].(*AnnAssign)
	assert.Nil(t, bare.Value)

	aug := mod.Body[3].(*AugAssign)
	assert.Equal(t, "count", aug.Target.(*Name).ID)
	assert.Equal(t, "+=", aug.Op)

	comp := mod.Body[4].(*Assign)
	attr := comp.Targets[0].(*Attribute)
	assert.Equal(t, "bar", attr.Attr)
	assert.Equal(t, "self", attr.Value.(*Name).ID)
	call := comp.Value.(*Call)
	assert.Equal(t, "Bar", call.Func.(*Name).ID)
}

func TestParse_Strings(t *testing.T) {
	src := `"""Module doc."""
x = ("implicit "
     "concat")
y = b"raw bytes"
z = f"{name}!"
`
	mod := mustParse(t, src)

	doc := Docstring(mod.Body)
	require.NotNil(t, doc)
	assert.Equal(t, "Module doc.", *doc)

	concat := mod.Body[1].(*Assign).Value.(*Str)
	assert.Equal(t, StrPlain, concat.Kind)
	assert.Equal(t, "implicit concat", concat.Value)

	assert.Equal(t, StrBytes, mod.Body[2].(*Assign).Value.(*Str).Kind)

	f := mod.Body[3].(*Assign).Value.(*Str)
	assert.Equal(t, StrFormatted, f.Kind)
	require.Len(t, f.Parts, 1)
	assert.Equal(t, "name", f.Parts[0].(*Name).ID)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), []byte("def broken(:\n    pass\n"), "broken.py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))

	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, "broken.py", synErr.Filename)
	assert.Equal(t, 1, synErr.Line)
}

func TestParse_BlockStructure(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"Unterminated Class", "class A:\n", 2},
		{"Unterminated Function", "def f():\n", 2},
		{"Unterminated If", "if x:\n", 2},
		{"Comment Only Body", "def f():\n    # nothing\n", 0},
		{"Body Not Indented", "def f():\nreturn 1\n", 2},
		{"Bad Dedent", "def f():\n    return 1\n  x = 2\n", 3},
		{"Unexpected Indent", "x = 1\n    y = 2\n", 0},
		{"Python 2 Print", "print \"hello\"\n", 1},
		{"Python 2 Exec", "exec \"x=1\"\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := Parse(context.Background(), []byte(tt.src), "bad.py")
			require.Error(t, err)
			assert.Nil(t, mod)

			var synErr *SyntaxError
			require.True(t, errors.As(err, &synErr))
			assert.Equal(t, "bad.py", synErr.Filename)
			if tt.line > 0 {
				assert.Equal(t, tt.line, synErr.Line)
			}
		})
	}
}

func TestParse_ValidBlocks(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"One Line Bodies", "def f(): return 1\nclass A: pass\nif x: a = 1; b = 2\n"},
		{"Stray Comments", "def f():\n# flush left\n    return 1\n        # deep\n"},
		{"Clauses", "try:\n    pass\nexcept E:\n    pass\nelse:\n    pass\nfinally:\n    pass\n"},
		{"Decorated Method", "class A:\n    @property\n    def v(self):\n        return (1 +\n  2)\n"},
		{"Tabs", "if x:\n\tpass\n"},
		{"Comment After Colon", "def f():  # note\n    pass\n"},
		{"Print Call", "print(\"x\")\n"},
		{"Byte Order Mark", "\ufeffimport os\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.src), "ok.py")
			assert.NoError(t, err)
		})
	}
}

func TestParse_DefinitionEndSkipsTrailingComments(t *testing.T) {
	mod := mustParse(t, "class A:\n    def f(self):\n        return 1\n        # c\n\n    # d\n")

	cls := mod.Body[0].(*ClassDef)
	require.NotNil(t, cls.EndLine)
	assert.Equal(t, 3, *cls.EndLine)

	fn := cls.Body[0].(*FunctionDef)
	require.NotNil(t, fn.EndLine)
	assert.Equal(t, 3, *fn.EndLine)
}

func TestParse_Empty(t *testing.T) {
	mod := mustParse(t, "")
	assert.Empty(t, mod.Body)
	assert.Nil(t, Docstring(mod.Body))
}

func TestInspect_PreOrder(t *testing.T) {
	src := `class A:
    def f(self):
        g()
`
	mod := mustParse(t, src)

	var kinds []string
	depth, maxDepth := 0, 0
	Inspect(mod, func(n Node) bool {
		if n == nil {
			depth--
			return false
		}
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		switch n := n.(type) {
		case *ClassDef:
			kinds = append(kinds, "class:"+n.Name)
		case *FunctionDef:
			kinds = append(kinds, "def:"+n.Name)
		case *Call:
			kinds = append(kinds, "call")
		case *Name:
			kinds = append(kinds, "name:"+n.ID)
		}
		return true
	})

	assert.Equal(t, []string{"class:A", "def:f", "name:self", "call", "name:g"}, kinds)
	assert.Equal(t, 0, depth)
}
