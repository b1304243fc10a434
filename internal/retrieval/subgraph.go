package retrieval

import (
	"sort"

	"hohparser/internal/extractor"
	"hohparser/internal/graph"
)

// Config controls how neighborhoods are extracted.
type Config struct {
	MaxHops      int
	AllowedKinds map[extractor.EdgeKind]bool
}

func DefaultConfig() Config {
	return Config{
		MaxHops:      2,
		AllowedKinds: nil,
	}
}

// Subgraph is the set of names reachable from the seeds within MaxHops,
// following edges in either direction, and the edges walked to reach them.
type Subgraph struct {
	MaxHops int          `json:"max_hops"`
	Seeds   []string     `json:"seeds"`
	Names   []string     `json:"names"`
	Edges   []graph.Edge `json:"edges"`
}

// Extract walks the graph breadth first from seeds. Endpoints are matched
// by name, so a seed like "Car.move" only meets edges that spell it the same
// way.
func Extract(g *graph.Graph, seeds []string, cfg Config) *Subgraph {
	if cfg.MaxHops < 0 {
		cfg.MaxHops = 0
	}
	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		if s != "" {
			seedSet[s] = true
		}
	}
	seedNames := sortedKeys(seedSet)
	if g == nil || len(seedNames) == 0 {
		return &Subgraph{MaxHops: cfg.MaxHops, Seeds: seedNames, Names: seedNames, Edges: []graph.Edge{}}
	}

	adj := make(map[string][]edgeHop)
	for _, e := range g.Edges {
		if !edgeAllowed(e, cfg) {
			continue
		}
		adj[e.Source] = append(adj[e.Source], edgeHop{to: e.Target, edge: e})
		adj[e.Target] = append(adj[e.Target], edgeHop{to: e.Source, edge: e})
	}

	visitedDepth := make(map[string]int, len(seedNames))
	queue := make([]queueItem, 0, len(seedNames))
	for _, name := range seedNames {
		visitedDepth[name] = 0
		queue = append(queue, queueItem{name: name, depth: 0})
	}

	edgeSeen := make(map[graph.Edge]bool)
	edges := make([]graph.Edge, 0)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= cfg.MaxHops {
			continue
		}

		for _, next := range adj[cur.name] {
			if !edgeSeen[next.edge] {
				edgeSeen[next.edge] = true
				edges = append(edges, next.edge)
			}
			if _, seen := visitedDepth[next.to]; !seen {
				visitedDepth[next.to] = cur.depth + 1
				queue = append(queue, queueItem{name: next.to, depth: cur.depth + 1})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.File < b.File
	})

	return &Subgraph{
		MaxHops: cfg.MaxHops,
		Seeds:   seedNames,
		Names:   sortedKeys(visitedDepth),
		Edges:   edges,
	}
}

type queueItem struct {
	name  string
	depth int
}

type edgeHop struct {
	to   string
	edge graph.Edge
}

func edgeAllowed(e graph.Edge, cfg Config) bool {
	if len(cfg.AllowedKinds) == 0 {
		return true
	}
	return cfg.AllowedKinds[e.Kind]
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
