package storage

import (
	"context"
	"path/filepath"
	"testing"

	"hohparser/internal/extractor"
	"hohparser/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func analyze(t *testing.T, path, src string) *extractor.SourceUnit {
	t.Helper()
	a, err := extractor.NewAnalyzer("python")
	require.NoError(t, err)
	unit, err := a.AnalyzeText(context.Background(), path, src)
	require.NoError(t, err)
	return unit
}

const vehicleSource = `"""Vehicles."""
import os

class Vehicle:
    """A vehicle."""
    def move(self):
        pass

class Car(Vehicle):
    def move(self):
        os.getcwd()
`

func TestSQLiteStore_UnitRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	unit := analyze(t, "vehicles.py", vehicleSource)
	require.NoError(t, store.SaveUnit(ctx, unit))

	t.Run("GetUnit", func(t *testing.T) {
		got, err := store.GetUnit(ctx, "vehicles.py")
		require.NoError(t, err)
		assert.Equal(t, unit, got)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := store.GetUnit(ctx, "nope.py")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Nil Unit", func(t *testing.T) {
		assert.Error(t, store.SaveUnit(ctx, nil))
	})

	t.Run("Replace", func(t *testing.T) {
		replaced := analyze(t, "vehicles.py", "import sys\n")
		require.NoError(t, store.SaveUnit(ctx, replaced))

		got, err := store.GetUnit(ctx, "vehicles.py")
		require.NoError(t, err)
		assert.Empty(t, got.Classes)

		syms, err := store.FindSymbols(ctx, "Vehicle")
		require.NoError(t, err)
		assert.Empty(t, syms)

		edges, err := store.FindEdges(ctx, EdgeQuery{File: "vehicles.py"})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "sys", edges[0].Target)
	})
}

func TestSQLiteStore_DeleteUnitCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUnit(ctx, analyze(t, "vehicles.py", vehicleSource)))
	require.NoError(t, store.SaveUnit(ctx, analyze(t, "other.py", "def run():\n    pass\n")))

	require.NoError(t, store.DeleteUnit(ctx, "vehicles.py"))
	require.NoError(t, store.DeleteUnit(ctx, "never-saved.py"))

	paths, err := store.ListPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.py"}, paths)

	syms, err := store.FindSymbols(ctx, "Car")
	require.NoError(t, err)
	assert.Empty(t, syms)

	edges, err := store.FindEdges(ctx, EdgeQuery{})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestSQLiteStore_FindSymbols(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveUnit(ctx, analyze(t, "vehicles.py", vehicleSource)))

	t.Run("Plain Name", func(t *testing.T) {
		syms, err := store.FindSymbols(ctx, "move")
		require.NoError(t, err)
		require.Len(t, syms, 2)
		assert.Equal(t, "Vehicle", *syms[0].Parent)
		assert.Equal(t, "Car", *syms[1].Parent)
		assert.Equal(t, extractor.KindFunction, syms[0].Kind)
	})

	t.Run("Qualified Name", func(t *testing.T) {
		syms, err := store.FindSymbols(ctx, "Car.move")
		require.NoError(t, err)
		require.Len(t, syms, 1)
		assert.Equal(t, 10, syms[0].Lineno)
		assert.Nil(t, syms[0].Docstring)
	})

	t.Run("Class", func(t *testing.T) {
		syms, err := store.FindSymbols(ctx, "Vehicle")
		require.NoError(t, err)
		require.Len(t, syms, 1)
		assert.Nil(t, syms[0].Parent)
		require.NotNil(t, syms[0].Docstring)
		assert.Equal(t, "A vehicle.", *syms[0].Docstring)
		require.NotNil(t, syms[0].EndLineno)
		assert.Equal(t, 7, *syms[0].EndLineno)
	})
}

func TestSQLiteStore_FindEdges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveUnit(ctx, analyze(t, "vehicles.py", vehicleSource)))

	all, err := store.FindEdges(ctx, EdgeQuery{})
	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{
		{Source: "vehicles.py", Target: "os", Kind: extractor.EdgeImports, File: "vehicles.py"},
		{Source: "Car", Target: "Vehicle", Kind: extractor.EdgeInherits, File: "vehicles.py"},
		{Source: "Car.move", Target: "Vehicle.move", Kind: extractor.EdgeOverrides, File: "vehicles.py"},
		{Source: "vehicles.py", Target: "getcwd", Kind: extractor.EdgeCalls, File: "vehicles.py"},
	}, all)

	byKind, err := store.FindEdges(ctx, EdgeQuery{Kind: extractor.EdgeInherits})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "Car", byKind[0].Source)

	combined, err := store.FindEdges(ctx, EdgeQuery{Source: "vehicles.py", Kind: extractor.EdgeCalls})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "getcwd", combined[0].Target)
}

func TestSQLiteStore_SaveGraph_SnapshotSync(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := analyze(t, "a.py", "import b\n")
	b := analyze(t, "b.py", "def fb():\n    pass\n")
	c := analyze(t, "c.py", "from b import fb\n")

	// Initial snapshot: a, b.
	g1 := graph.NewGraph()
	g1.AddUnits(a, b)
	require.NoError(t, store.SaveGraph(ctx, g1))

	// New snapshot: remove a, add c.
	g2 := graph.NewGraph()
	g2.AddUnits(b, c)
	require.NoError(t, store.SaveGraph(ctx, g2))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"b.py", "c.py"}, loaded.Paths())
	assert.Len(t, loaded.Symbols, 1)
	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, graph.Edge{Source: "c.py", Target: "b.fb", Kind: extractor.EdgeFromImports, File: "c.py"}, loaded.Edges[0])

	stale, err := store.FindEdges(ctx, EdgeQuery{File: "a.py"})
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestSQLiteStore_SaveGraph_EmptySnapshotClearsData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := graph.NewGraph()
	g.AddUnit(analyze(t, "vehicles.py", vehicleSource))
	require.NoError(t, store.SaveGraph(ctx, g))

	require.NoError(t, store.SaveGraph(ctx, graph.NewGraph()))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Symbols)
	assert.Empty(t, loaded.Edges)

	paths, err := store.ListPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
