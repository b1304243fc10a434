package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"hohparser/internal/analysis"
	"hohparser/internal/crawler"
	"hohparser/internal/extractor"
	"hohparser/internal/git"
	"hohparser/internal/graph"
	"hohparser/internal/index"
	"hohparser/internal/retrieval"
	"hohparser/internal/schema"
	"hohparser/internal/storage"

	"github.com/spf13/cobra"
)

var (
	validate bool
	compact  bool

	dbPath   string
	snapshot string
	since    string
	workers  int
	ignore   []string
	depth    int
)

func init() {
	parseCmd.Flags().BoolVar(&validate, "validate", false, "Validate the result against the SourceUnit JSON schema")
	parseCmd.Flags().BoolVar(&compact, "compact", false, "Print compact JSON")

	scanCmd.Flags().StringVarP(&dbPath, "db", "d", "", "Write results to this SQLite database instead of stdout")
	scanCmd.Flags().StringVar(&snapshot, "snapshot", "", "Write the project graph to this JSON snapshot file")
	scanCmd.Flags().BoolVar(&compact, "compact", false, "Print compact JSON")
	scanCmd.Flags().StringVar(&since, "since", "", "Only analyze .py files changed relative to this git ref")
	scanCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of files analyzed in parallel (default from config)")
	scanCmd.Flags().StringArrayVar(&ignore, "ignore", nil, "Additional glob of paths to skip (repeatable)")

	watchCmd.Flags().StringVarP(&dbPath, "db", "d", "", "Keep this SQLite database in sync instead of printing results")
	watchCmd.Flags().StringArrayVar(&ignore, "ignore", nil, "Additional glob of paths to skip (repeatable)")

	queryCmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database to query (default from config)")
	queryCmd.Flags().StringVar(&snapshot, "snapshot", "", "Answer from this JSON snapshot instead of the database")
	queryCmd.Flags().BoolVar(&compact, "compact", false, "Print compact JSON")
	queryCmd.Flags().IntVar(&depth, "depth", 0, "Also print names reachable within this many hops")
}

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Analyze one Python file and print its SourceUnit as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAnalyzer()
		if err != nil {
			return err
		}
		unit, err := a.AnalyzeFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if validate {
			if err := schema.ValidateUnit(unit); err != nil {
				return err
			}
		}
		return writeJSON(cmd.OutOrStdout(), unit, compact)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [DIR]",
	Short: "Analyze every Python file under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", root, err)
		}
		if workers <= 0 {
			workers = cfg.Scan.Workers
		}

		a, err := newAnalyzer()
		if err != nil {
			return err
		}
		cr, err := newCrawler(a, workers, ignore)
		if err != nil {
			return err
		}
		idx := index.NewIndexer(cr)
		ctx := cmd.Context()

		var store *storage.SQLiteStore
		if cmd.Flags().Changed("db") {
			store, err = initStore(dbPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()
		}

		logger.Info("scanning directory", "root", absRoot, "workers", workers, "since", since)
		start := time.Now()

		var (
			g     *graph.Graph
			stats crawler.ScanStats
		)
		if since != "" {
			g, stats, err = scanChanged(ctx, idx, store, absRoot)
		} else {
			g, stats, err = idx.BuildGraph(ctx, absRoot)
		}
		if err != nil {
			return err
		}

		for _, f := range stats.Failures {
			logger.Warn("failed to analyze file", "file", f.Path, "error", f.Err)
		}
		s := g.Stats()
		logger.Info("scan complete",
			"files", stats.Files,
			"analyzed", stats.Analyzed,
			"failed", len(stats.Failures),
			"classes", s.Classes,
			"functions", s.Functions,
			"relationships", s.Edges,
			"elapsed", time.Since(start),
		)

		if snapshot != "" {
			if err := index.SaveSnapshot(g, snapshot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d files to %s\n", len(g.Paths()), snapshot)
		}
		if store != nil {
			if err := store.SaveGraph(ctx, g); err != nil {
				return fmt.Errorf("failed to save graph: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d files to %s\n", len(g.Paths()), store.Path())
		}
		if store == nil && snapshot == "" {
			return writeJSON(cmd.OutOrStdout(), g.Units(), compact)
		}
		return nil
	},
}

// scanChanged applies the git changes since the configured ref to the graph
// held by the store, or else by an existing snapshot file. Without either,
// only changed files are analyzed.
func scanChanged(ctx context.Context, idx *index.Indexer, store *storage.SQLiteStore, root string) (*graph.Graph, crawler.ScanStats, error) {
	changes, err := git.GetChangedFiles(ctx, root, since)
	if err != nil {
		return nil, crawler.ScanStats{}, err
	}
	logger.Info("detected changed files", "count", len(changes), "ref", since)

	g := graph.NewGraph()
	switch {
	case store != nil:
		if g, err = store.LoadGraph(ctx); err != nil {
			return nil, crawler.ScanStats{}, fmt.Errorf("failed to load graph: %w", err)
		}
	case snapshot != "":
		if _, statErr := os.Stat(snapshot); statErr == nil {
			if g, err = index.LoadSnapshot(snapshot); err != nil {
				return nil, crawler.ScanStats{}, err
			}
		}
	}
	stats, err := idx.ApplyChanges(ctx, g, changes)
	if err != nil {
		return nil, stats, err
	}

	report := analysis.NewAnalyzer(g).AnalyzeImpact(changes)
	for _, s := range report.DirectlyAffected {
		logger.Debug("symbol changed", "symbol", s.QualifiedName(), "file", s.Path, "line", s.Lineno)
	}
	logger.Info("impact analysis",
		"directly_affected", len(report.DirectlyAffected),
		"dependents", len(report.Dependents),
	)
	return g, stats, nil
}

var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Re-analyze Python files as they change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		a, err := newAnalyzer()
		if err != nil {
			return err
		}
		cr, err := newCrawler(a, cfg.Scan.Workers, ignore)
		if err != nil {
			return err
		}

		var handler crawler.ChangeHandler = &printHandler{cmd: cmd}
		if cmd.Flags().Changed("db") {
			store, err := initStore(dbPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()
			handler = index.NewStoreHandler(store)
		}

		w, err := crawler.NewWatcher(cr, root, handler)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Info("watching for changes", "root", root)
		return w.Run(ctx)
	},
}

// printHandler streams watcher results to stdout as JSON lines.
type printHandler struct {
	cmd *cobra.Command
}

func (h *printHandler) UnitChanged(_ context.Context, unit *extractor.SourceUnit) error {
	return writeJSON(h.cmd.OutOrStdout(), unit, true)
}

func (h *printHandler) UnitRemoved(_ context.Context, path string) error {
	return writeJSON(h.cmd.OutOrStdout(), map[string]string{"removed": path}, true)
}

var queryCmd = &cobra.Command{
	Use:   "query NAME",
	Short: "Look up a symbol and its relationships in the database or a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		type queryResult struct {
			Symbols      []*graph.Symbol     `json:"symbols"`
			Dependencies []graph.Edge        `json:"dependencies"`
			Dependents   []graph.Edge        `json:"dependents"`
			Neighborhood *retrieval.Subgraph `json:"neighborhood,omitempty"`
		}
		name := args[0]

		if snapshot != "" {
			g, err := index.LoadSnapshot(snapshot)
			if err != nil {
				return err
			}
			result := queryResult{
				Symbols:      g.Lookup(name),
				Dependencies: g.GetDependencies(name),
				Dependents:   g.GetDependents(name),
			}
			if depth > 0 {
				result.Neighborhood = retrieval.Extract(g, []string{name}, retrieval.Config{MaxHops: depth})
			}
			return writeJSON(cmd.OutOrStdout(), result, compact)
		}

		store, err := initStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		ctx := cmd.Context()
		symbols, err := store.FindSymbols(ctx, name)
		if err != nil {
			return err
		}
		deps, err := store.FindEdges(ctx, storage.EdgeQuery{Source: name})
		if err != nil {
			return err
		}
		dependents, err := store.FindEdges(ctx, storage.EdgeQuery{Target: name})
		if err != nil {
			return err
		}
		result := queryResult{Symbols: symbols, Dependencies: deps, Dependents: dependents}

		if depth > 0 {
			g, err := store.LoadGraph(ctx)
			if err != nil {
				return fmt.Errorf("failed to load graph: %w", err)
			}
			result.Neighborhood = retrieval.Extract(g, []string{name}, retrieval.Config{MaxHops: depth})
		}
		return writeJSON(cmd.OutOrStdout(), result, compact)
	},
}
