package analysis

import (
	"hohparser/internal/git"
	"hohparser/internal/graph"
)

// ImpactReport summarizes the symbols touched by a set of changes and the
// relationships that point at them.
type ImpactReport struct {
	DirectlyAffected []*graph.Symbol
	Dependents       []graph.Edge
}

// Analyzer performs impact analysis on the relationship graph.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// AnalyzeImpact finds the symbols whose line range covers a changed line and
// every edge targeting one of them, by plain or qualified name. Deleted files
// contribute nothing since the graph no longer holds them.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) *ImpactReport {
	report := &ImpactReport{
		DirectlyAffected: []*graph.Symbol{},
		Dependents:       []graph.Edge{},
	}

	seenSymbol := make(map[string]bool)
	for _, change := range changes {
		if change.Deleted {
			continue
		}
		for _, sym := range a.g.SymbolsIn(change.Path) {
			if !seenSymbol[sym.ID] && isAffected(sym, change.ChangedLines) {
				seenSymbol[sym.ID] = true
				report.DirectlyAffected = append(report.DirectlyAffected, sym)
			}
		}
	}

	seenEdge := make(map[graph.Edge]bool)
	seenName := make(map[string]bool)
	for _, sym := range report.DirectlyAffected {
		for _, name := range []string{sym.QualifiedName(), sym.Name} {
			if seenName[name] {
				continue
			}
			seenName[name] = true
			for _, e := range a.g.GetDependents(name) {
				if !seenEdge[e] {
					seenEdge[e] = true
					report.Dependents = append(report.Dependents, e)
				}
			}
		}
	}

	return report
}

func isAffected(sym *graph.Symbol, lines []int) bool {
	end := sym.Lineno
	if sym.EndLineno != nil {
		end = *sym.EndLineno
	}
	for _, line := range lines {
		if line >= sym.Lineno && line <= end {
			return true
		}
	}
	return false
}
