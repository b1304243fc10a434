package storage

import (
	"context"
	"errors"

	"hohparser/internal/extractor"
	"hohparser/internal/graph"
)

// ErrNotFound is returned when no results are stored for a path.
var ErrNotFound = errors.New("not found")

// Store persists analysis results.
type Store interface {
	UnitStore
	GraphStore
	Close() error
}

// UnitStore defines operations on the results of single files.
type UnitStore interface {
	// SaveUnit replaces everything stored for unit.Path.
	SaveUnit(ctx context.Context, unit *extractor.SourceUnit) error

	// GetUnit returns the stored unit for path, or ErrNotFound.
	GetUnit(ctx context.Context, path string) (*extractor.SourceUnit, error)

	// DeleteUnit removes everything stored for path.
	DeleteUnit(ctx context.Context, path string) error

	// ListPaths returns every stored path in sorted order.
	ListPaths(ctx context.Context) ([]string, error)
}

// GraphStore defines operations across all stored files.
type GraphStore interface {
	// SaveGraph replaces the stored contents with a snapshot of g.
	SaveGraph(ctx context.Context, g *graph.Graph) error

	// LoadGraph rebuilds a graph from every stored unit.
	LoadGraph(ctx context.Context) (*graph.Graph, error)

	// FindSymbols returns symbols declared under name, plain or qualified.
	FindSymbols(ctx context.Context, name string) ([]*graph.Symbol, error)

	// FindEdges returns the edges matching every non-empty field of q.
	FindEdges(ctx context.Context, q EdgeQuery) ([]graph.Edge, error)
}

// EdgeQuery filters edges. Empty fields match anything.
type EdgeQuery struct {
	Source string
	Target string
	Kind   extractor.EdgeKind
	File   string
}
