package graph

import "hohparser/internal/extractor"

// FromSourceUnit converts extractor output into graph-domain symbols and
// edges. Classes come first, then functions, each in unit order.
func FromSourceUnit(unit *extractor.SourceUnit) ([]*Symbol, []Edge) {
	if unit == nil {
		return nil, nil
	}

	symbols := make([]*Symbol, 0, len(unit.Classes)+len(unit.Functions))
	for _, c := range unit.Classes {
		symbols = append(symbols, &Symbol{
			ID:        extractor.ClassID(unit.Path, c),
			Path:      unit.Path,
			Kind:      extractor.KindClass,
			Name:      c.Name,
			Lineno:    c.Lineno,
			EndLineno: c.EndLineno,
			Docstring: c.Docstring,
		})
	}
	for _, f := range unit.Functions {
		symbols = append(symbols, &Symbol{
			ID:        extractor.FunctionID(unit.Path, f),
			Path:      unit.Path,
			Kind:      extractor.KindFunction,
			Name:      f.Name,
			Parent:    f.Parent,
			Lineno:    f.Lineno,
			EndLineno: f.EndLineno,
			Docstring: f.Docstring,
		})
	}

	edges := make([]Edge, 0, len(unit.Relationships))
	for _, r := range unit.Relationships {
		file := unit.Path
		if r.Location != nil {
			file = *r.Location
		}
		edges = append(edges, Edge{
			Source: r.Source,
			Target: r.Target,
			Kind:   r.Type,
			File:   file,
		})
	}
	return symbols, edges
}
