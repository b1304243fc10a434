package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"hohparser/internal/extractor"
)

// DefaultIgnore lists the directory names skipped by default.
var DefaultIgnore = []string{".git", "__pycache__", ".venv", "venv", "node_modules", ".tox"}

// DefaultWorkers is the number of files analyzed in parallel by default.
const DefaultWorkers = 4

// Crawler scans a directory tree for Python files.
type Crawler struct {
	analyzer *extractor.Analyzer
	ignored  []glob.Glob
	workers  int
	logger   *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler) error

// WithIgnore replaces the ignore patterns. Patterns are globs matched
// against both the base name and the slash-separated path relative to the
// scan root.
func WithIgnore(patterns ...string) Option {
	return func(c *Crawler) error {
		compiled, err := compilePatterns(patterns)
		if err != nil {
			return err
		}
		c.ignored = compiled
		return nil
	}
}

// WithWorkers sets the number of parallel analyses. Values < 1 mean 1.
func WithWorkers(n int) Option {
	return func(c *Crawler) error {
		if n < 1 {
			n = 1
		}
		c.workers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(a *extractor.Analyzer, opts ...Option) (*Crawler, error) {
	ignored, err := compilePatterns(DefaultIgnore)
	if err != nil {
		return nil, err
	}
	c := &Crawler{
		analyzer: a,
		ignored:  ignored,
		workers:  DefaultWorkers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Ignored reports whether path, relative to the scan root, matches an
// ignore pattern.
func (c *Crawler) Ignored(rel string) bool {
	return matchAny(c.ignored, rel)
}

func matchAny(patterns []glob.Glob, rel string) bool {
	rel = filepath.ToSlash(rel)
	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, g := range patterns {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

// ListPythonFiles returns every .py file under dir, in lexical walk order.
func ListPythonFiles(dir string) ([]string, error) {
	return walkPython(dir, nil)
}

// ListFiles returns the .py files under root that are not ignored.
func (c *Crawler) ListFiles(root string) ([]string, error) {
	return walkPython(root, c.ignored)
}

func walkPython(root string, ignored []glob.Glob) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && matchAny(ignored, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Failure records a file that could not be analyzed.
type Failure struct {
	Path string
	Err  error
}

// ScanStats summarizes a scan.
type ScanStats struct {
	Files    int
	Analyzed int
	Failures []Failure
}

// ScanProject walks the root directory and analyzes every Python file.
// Units are streamed to onUnit in file order once all workers finish.
func (c *Crawler) ScanProject(ctx context.Context, root string, onUnit func(*extractor.SourceUnit)) (ScanStats, error) {
	files, err := c.ListFiles(root)
	if err != nil {
		return ScanStats{}, fmt.Errorf("failed to list files under %s: %w", root, err)
	}
	return c.ScanFiles(ctx, files, onUnit)
}

// ScanFiles analyzes the given files with a bounded worker pool. A file
// that fails to parse or read is recorded in the stats instead of failing
// the whole scan; only context cancellation aborts it.
func (c *Crawler) ScanFiles(ctx context.Context, files []string, onUnit func(*extractor.SourceUnit)) (ScanStats, error) {
	type result struct {
		unit *extractor.SourceUnit
		err  error
	}
	results := make([]result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			unit, err := c.analyzer.AnalyzeFile(gctx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				c.logger.Warn("skipping file", "file", path, "error", err)
			}
			results[i] = result{unit: unit, err: err}
			return nil
		})
	}

	stats := ScanStats{Files: len(files)}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for i, r := range results {
		if r.err != nil {
			stats.Failures = append(stats.Failures, Failure{Path: files[i], Err: r.err})
			continue
		}
		stats.Analyzed++
		if onUnit != nil {
			onUnit(r.unit)
		}
	}
	return stats, nil
}
