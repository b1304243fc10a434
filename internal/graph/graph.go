package graph

import (
	"sort"

	"hohparser/internal/extractor"
)

// Graph aggregates the analysis results of many files. Edges keep their
// name endpoints; nothing is resolved across files.
type Graph struct {
	Symbols map[string]*Symbol
	Edges   []Edge

	units map[string]*extractor.SourceUnit

	// Index for faster lookup: Name -> []ID
	nameIndex map[string][]string
	byPath    map[string][]string
	bySource  map[string][]int
	byTarget  map[string][]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Symbols:   make(map[string]*Symbol),
		Edges:     []Edge{},
		units:     make(map[string]*extractor.SourceUnit),
		nameIndex: make(map[string][]string),
		byPath:    make(map[string][]string),
		bySource:  make(map[string][]int),
		byTarget:  make(map[string][]int),
	}
}

// AddUnit adds or replaces the results for unit.Path.
func (g *Graph) AddUnit(unit *extractor.SourceUnit) {
	g.AddUnits(unit)
}

// AddUnits adds or replaces several units and rebuilds the indexes once.
func (g *Graph) AddUnits(units ...*extractor.SourceUnit) {
	for _, u := range units {
		if u != nil {
			g.units[u.Path] = u
		}
	}
	g.rebuild()
}

// RemoveUnit drops the results for path.
func (g *Graph) RemoveUnit(path string) {
	if _, ok := g.units[path]; !ok {
		return
	}
	delete(g.units, path)
	g.rebuild()
}

// Unit returns the stored unit for path.
func (g *Graph) Unit(path string) (*extractor.SourceUnit, bool) {
	u, ok := g.units[path]
	return u, ok
}

// Paths returns the stored file paths in sorted order.
func (g *Graph) Paths() []string {
	paths := make([]string, 0, len(g.units))
	for p := range g.units {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Units returns the stored units ordered by path.
func (g *Graph) Units() []*extractor.SourceUnit {
	units := make([]*extractor.SourceUnit, 0, len(g.units))
	for _, p := range g.Paths() {
		units = append(units, g.units[p])
	}
	return units
}

// rebuild recomputes symbols, edges and indexes in path order so that the
// graph contents do not depend on insertion order.
func (g *Graph) rebuild() {
	g.Symbols = make(map[string]*Symbol)
	g.Edges = []Edge{}
	g.nameIndex = make(map[string][]string)
	g.byPath = make(map[string][]string)
	g.bySource = make(map[string][]int)
	g.byTarget = make(map[string][]int)

	for _, unit := range g.Units() {
		symbols, edges := FromSourceUnit(unit)
		for _, s := range symbols {
			g.Symbols[s.ID] = s
			g.byPath[s.Path] = append(g.byPath[s.Path], s.ID)
			g.nameIndex[s.Name] = append(g.nameIndex[s.Name], s.ID)
			if q := s.QualifiedName(); q != s.Name {
				g.nameIndex[q] = append(g.nameIndex[q], s.ID)
			}
		}
		for _, e := range edges {
			i := len(g.Edges)
			g.Edges = append(g.Edges, e)
			g.bySource[e.Source] = append(g.bySource[e.Source], i)
			g.byTarget[e.Target] = append(g.byTarget[e.Target], i)
		}
	}
}

// Lookup returns every symbol declared under name, plain or Class.method
// qualified, in path order. Several files may declare the same name.
func (g *Graph) Lookup(name string) []*Symbol {
	var out []*Symbol
	for _, id := range g.nameIndex[name] {
		out = append(out, g.Symbols[id])
	}
	return out
}

// SymbolsIn returns the symbols declared in path, classes first, each in
// declaration order.
func (g *Graph) SymbolsIn(path string) []*Symbol {
	var out []*Symbol
	for _, id := range g.byPath[path] {
		out = append(out, g.Symbols[id])
	}
	return out
}

// GetDependencies returns the edges whose source is name.
func (g *Graph) GetDependencies(name string) []Edge {
	return g.collect(g.bySource[name])
}

// GetDependents returns the edges whose target is name.
func (g *Graph) GetDependents(name string) []Edge {
	return g.collect(g.byTarget[name])
}

func (g *Graph) collect(idx []int) []Edge {
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Edges[i])
	}
	return out
}
