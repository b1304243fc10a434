package graph

import "hohparser/internal/extractor"

// Symbol is the graph-domain node payload for one class or function.
// It is intentionally decoupled from extractor entities.
type Symbol struct {
	ID        string  `json:"id"`
	Path      string  `json:"path"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	Parent    *string `json:"parent,omitempty"`
	Lineno    int     `json:"lineno"`
	EndLineno *int    `json:"end_lineno,omitempty"`
	Docstring *string `json:"docstring,omitempty"`
}

// QualifiedName returns Parent.Name for methods and Name otherwise.
func (s *Symbol) QualifiedName() string {
	if s.Parent != nil && *s.Parent != "" {
		return *s.Parent + "." + s.Name
	}
	return s.Name
}

// Edge is a relationship edge tagged with the file it came from. Endpoints
// are names, never symbol IDs.
type Edge struct {
	Source string             `json:"source"`
	Target string             `json:"target"`
	Kind   extractor.EdgeKind `json:"kind"`
	File   string             `json:"file"`
}
