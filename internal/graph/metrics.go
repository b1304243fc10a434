package graph

import "hohparser/internal/extractor"

// Stats summarizes the graph contents.
type Stats struct {
	Files     int                        `json:"files"`
	Classes   int                        `json:"classes"`
	Functions int                        `json:"functions"`
	Edges     int                        `json:"edges"`
	ByKind    map[extractor.EdgeKind]int `json:"by_kind"`
}

// KindCounts counts edges per relationship kind.
func (g *Graph) KindCounts() map[extractor.EdgeKind]int {
	counts := make(map[extractor.EdgeKind]int)
	if g == nil {
		return counts
	}
	for _, e := range g.Edges {
		counts[e.Kind]++
	}
	return counts
}

// Stats returns the current totals.
func (g *Graph) Stats() Stats {
	s := Stats{ByKind: g.KindCounts()}
	if g == nil {
		return s
	}
	s.Files = len(g.units)
	s.Edges = len(g.Edges)
	for _, sym := range g.Symbols {
		switch sym.Kind {
		case extractor.KindClass:
			s.Classes++
		case extractor.KindFunction:
			s.Functions++
		}
	}
	return s
}
