package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hohparser/internal/extractor"
)

func analyze(t *testing.T, path, src string) *extractor.SourceUnit {
	t.Helper()
	a, err := extractor.NewAnalyzer("python")
	require.NoError(t, err)
	unit, err := a.AnalyzeText(context.Background(), path, src)
	require.NoError(t, err)
	return unit
}

func TestGraph_AddUnit(t *testing.T) {
	g := NewGraph()

	base := analyze(t, "base.py", "class Base:\n    def run(self):\n        pass\n")
	child := analyze(t, "child.py", `from base import Base

class Child(Base):
    def run(self):
        helper()
`)

	// Insertion order must not matter.
	g.AddUnit(child)
	g.AddUnit(base)

	t.Run("Paths", func(t *testing.T) {
		assert.Equal(t, []string{"base.py", "child.py"}, g.Paths())
	})

	t.Run("Lookup By Name", func(t *testing.T) {
		runs := g.Lookup("run")
		require.Len(t, runs, 2)
		assert.Equal(t, "base.py", runs[0].Path)
		assert.Equal(t, "child.py", runs[1].Path)

		qualified := g.Lookup("Child.run")
		require.Len(t, qualified, 1)
		assert.Equal(t, extractor.KindFunction, qualified[0].Kind)
	})

	t.Run("Dependencies", func(t *testing.T) {
		deps := g.GetDependencies("Child")
		require.Len(t, deps, 1)
		assert.Equal(t, Edge{Source: "Child", Target: "Base", Kind: extractor.EdgeInherits, File: "child.py"}, deps[0])

		overrides := g.GetDependencies("Child.run")
		assert.Empty(t, overrides, "overrides only pair classes declared in the same file")
	})

	t.Run("Dependents", func(t *testing.T) {
		dependents := g.GetDependents("Base")
		require.Len(t, dependents, 1)
		assert.Equal(t, "Child", dependents[0].Source)

		callers := g.GetDependents("helper")
		require.Len(t, callers, 1)
		assert.Equal(t, "child.py", callers[0].Source)
	})

	t.Run("Stats", func(t *testing.T) {
		s := g.Stats()
		assert.Equal(t, 2, s.Files)
		assert.Equal(t, 2, s.Classes)
		assert.Equal(t, 2, s.Functions)
		assert.Equal(t, len(g.Edges), s.Edges)
		assert.Equal(t, 1, s.ByKind[extractor.EdgeInherits])
		assert.Equal(t, 1, s.ByKind[extractor.EdgeFromImports])
		assert.Equal(t, 1, s.ByKind[extractor.EdgeCalls])
	})
}

func TestGraph_ReplaceAndRemove(t *testing.T) {
	g := NewGraph()
	g.AddUnit(analyze(t, "m.py", "import os\n"))
	g.AddUnit(analyze(t, "m.py", "import sys\n"))

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "sys", g.Edges[0].Target)
	assert.Empty(t, g.GetDependents("os"))

	g.RemoveUnit("m.py")
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Paths())
	_, ok := g.Unit("m.py")
	assert.False(t, ok)

	g.RemoveUnit("missing.py")
	assert.Empty(t, g.Symbols)
}

func TestGraph_SymbolsIn(t *testing.T) {
	g := NewGraph()
	g.AddUnit(analyze(t, "m.py", "def top():\n    pass\n\nclass A:\n    def m(self):\n        pass\n"))

	var names []string
	for _, s := range g.SymbolsIn("m.py") {
		names = append(names, s.QualifiedName())
	}
	assert.Equal(t, []string{"A", "top", "A.m"}, names)
	assert.Empty(t, g.SymbolsIn("other.py"))

	g.RemoveUnit("m.py")
	assert.Empty(t, g.SymbolsIn("m.py"))
}
