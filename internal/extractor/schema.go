package extractor

import (
	"encoding/json"
	"fmt"
)

// SourceUnit is the analysis result for one Python file: every class and
// function it declares plus the relationships found in it. Units are built
// once per analysis and never mutated afterwards.
type SourceUnit struct {
	Path          string             `json:"path"`
	Classes       []ClassEntity      `json:"classes"`
	Functions     []FunctionEntity   `json:"functions"`
	Relationships []RelationshipEdge `json:"relationships"`
	Docstring     *string            `json:"docstring"`
}

// ClassEntity describes one class declaration.
type ClassEntity struct {
	Name      string           `json:"name"`
	Lineno    int              `json:"lineno"`
	ColOffset int              `json:"col_offset"`
	EndLineno *int             `json:"end_lineno"`
	Bases     []string         `json:"bases"`   // Only bases written as bare names
	Methods   []FunctionEntity `json:"methods"` // Functions declared directly in the class body
	Docstring *string          `json:"docstring"`
}

// FunctionEntity describes one function or method declaration.
type FunctionEntity struct {
	Name      string  `json:"name"`
	Lineno    int     `json:"lineno"`
	ColOffset int     `json:"col_offset"`
	EndLineno *int    `json:"end_lineno"`
	Parent    *string `json:"parent"` // Enclosing class name, nil at module level
	Docstring *string `json:"docstring"`
}

// RelationshipEdge is a directed, unresolved relationship between two names.
type RelationshipEdge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Type     EdgeKind `json:"type"`
	Location *string  `json:"location"`
}

// EdgeKind classifies a RelationshipEdge.
type EdgeKind string

const (
	EdgeDefines         EdgeKind = "defines" // Reserved, never emitted
	EdgeCalls           EdgeKind = "calls"
	EdgeInherits        EdgeKind = "inherits"
	EdgeImports         EdgeKind = "imports"
	EdgeFromImports     EdgeKind = "from-imports"
	EdgeAssigns         EdgeKind = "assigns"
	EdgeOverrides       EdgeKind = "overrides"
	EdgeProperty        EdgeKind = "property"
	EdgePropertySetter  EdgeKind = "property_setter"
	EdgePropertyDeleter EdgeKind = "property_deleter"
	EdgeStaticMethod    EdgeKind = "staticmethod"
	EdgeClassMethod     EdgeKind = "classmethod"
	EdgeComposes        EdgeKind = "composes"
)

// EdgeKinds lists every valid kind.
var EdgeKinds = []EdgeKind{
	EdgeDefines, EdgeCalls, EdgeInherits, EdgeImports, EdgeFromImports,
	EdgeAssigns, EdgeOverrides, EdgeProperty, EdgePropertySetter,
	EdgePropertyDeleter, EdgeStaticMethod, EdgeClassMethod, EdgeComposes,
}

// Valid reports whether k is one of EdgeKinds.
func (k EdgeKind) Valid() bool {
	for _, known := range EdgeKinds {
		if k == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON rejects unknown kinds.
func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := EdgeKind(s)
	if !kind.Valid() {
		return fmt.Errorf("unknown relationship type: %q", s)
	}
	*k = kind
	return nil
}
