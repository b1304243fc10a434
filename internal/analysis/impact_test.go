package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hohparser/internal/extractor"
	"hohparser/internal/git"
	"hohparser/internal/graph"
)

func buildGraph(t *testing.T, files map[string]string) *graph.Graph {
	t.Helper()
	a, err := extractor.NewAnalyzer("python")
	require.NoError(t, err)

	g := graph.NewGraph()
	for path, src := range files {
		unit, err := a.AnalyzeText(context.Background(), path, src)
		require.NoError(t, err)
		g.AddUnit(unit)
	}
	return g
}

const baseSource = `class Base:
    def run(self):
        pass

    def stop(self):
        pass
`

const childSource = `from base import Base

class Child(Base):
    def run(self):
        pass

def main():
    Child().run()
`

func TestAnalyzeImpact(t *testing.T) {
	g := buildGraph(t, map[string]string{"base.py": baseSource, "child.py": childSource})
	a := NewAnalyzer(g)

	t.Run("Method Change", func(t *testing.T) {
		report := a.AnalyzeImpact([]git.ChangedFile{{Path: "base.py", ChangedLines: []int{3}}})

		var names []string
		for _, s := range report.DirectlyAffected {
			names = append(names, s.QualifiedName())
		}
		assert.Equal(t, []string{"Base", "Base.run"}, names)

		assert.Contains(t, report.Dependents, graph.Edge{Source: "Child", Target: "Base", Kind: extractor.EdgeInherits, File: "child.py"})
		assert.Contains(t, report.Dependents, graph.Edge{Source: "child.py", Target: "run", Kind: extractor.EdgeCalls, File: "child.py"})
	})

	t.Run("Untouched Lines", func(t *testing.T) {
		report := a.AnalyzeImpact([]git.ChangedFile{{Path: "child.py", ChangedLines: []int{2}}})
		assert.Empty(t, report.DirectlyAffected)
		assert.Empty(t, report.Dependents)
	})

	t.Run("Deleted File", func(t *testing.T) {
		report := a.AnalyzeImpact([]git.ChangedFile{{Path: "base.py", Deleted: true}})
		assert.Empty(t, report.DirectlyAffected)
	})
}
