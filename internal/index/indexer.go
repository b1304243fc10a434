package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"hohparser/internal/crawler"
	"hohparser/internal/extractor"
	"hohparser/internal/git"
	"hohparser/internal/graph"
	"hohparser/internal/storage"
)

// Indexer orchestrates project scans and graph management.
type Indexer struct {
	crawler *crawler.Crawler
}

// NewIndexer creates a new indexer.
func NewIndexer(c *crawler.Crawler) *Indexer {
	return &Indexer{
		crawler: c,
	}
}

// BuildGraph scans the project root and aggregates every analyzed file.
// Files that fail to analyze are reported in the stats and left out.
func (i *Indexer) BuildGraph(ctx context.Context, root string) (*graph.Graph, crawler.ScanStats, error) {
	var units []*extractor.SourceUnit
	stats, err := i.crawler.ScanProject(ctx, root, func(unit *extractor.SourceUnit) {
		units = append(units, unit)
	})
	if err != nil {
		return nil, stats, fmt.Errorf("scan failed: %w", err)
	}

	g := graph.NewGraph()
	g.AddUnits(units...)
	return g, stats, nil
}

// ApplyChanges re-analyzes changed files into g and drops deleted ones.
// A changed file that no longer analyzes keeps its previous results.
func (i *Indexer) ApplyChanges(ctx context.Context, g *graph.Graph, changes []git.ChangedFile) (crawler.ScanStats, error) {
	var files []string
	for _, c := range changes {
		if c.Deleted {
			g.RemoveUnit(c.Path)
			continue
		}
		files = append(files, c.Path)
	}

	var units []*extractor.SourceUnit
	stats, err := i.crawler.ScanFiles(ctx, files, func(unit *extractor.SourceUnit) {
		units = append(units, unit)
	})
	if err != nil {
		return stats, fmt.Errorf("update failed: %w", err)
	}
	g.AddUnits(units...)
	return stats, nil
}

// SaveSnapshot persists the graph's units to a JSON file.
func SaveSnapshot(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(g.Units()); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// LoadSnapshot loads a graph from a JSON file written by SaveSnapshot.
func LoadSnapshot(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	var units []*extractor.SourceUnit
	if err := json.NewDecoder(f).Decode(&units); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	// Indexes are not serialized; AddUnits rebuilds them.
	g := graph.NewGraph()
	g.AddUnits(units...)
	return g, nil
}

// StoreHandler keeps a unit store in sync with watcher events.
type StoreHandler struct {
	store storage.UnitStore
}

var _ crawler.ChangeHandler = (*StoreHandler)(nil)

func NewStoreHandler(store storage.UnitStore) *StoreHandler {
	return &StoreHandler{store: store}
}

func (h *StoreHandler) UnitChanged(ctx context.Context, unit *extractor.SourceUnit) error {
	return h.store.SaveUnit(ctx, unit)
}

func (h *StoreHandler) UnitRemoved(ctx context.Context, path string) error {
	return h.store.DeleteUnit(ctx, path)
}
