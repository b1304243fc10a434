package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"hohparser/internal/extractor"
)

// DefaultDebounce is the quiet period before a batch of changes is analyzed.
const DefaultDebounce = 300 * time.Millisecond

// ChangeHandler receives the results of a batch of file changes.
type ChangeHandler interface {
	UnitChanged(ctx context.Context, unit *extractor.SourceUnit) error
	UnitRemoved(ctx context.Context, path string) error
}

// Watcher re-analyzes Python files under a root as they change.
type Watcher struct {
	crawler  *Crawler
	root     string
	handler  ChangeHandler
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher over root and registers every directory that
// is not ignored.
func NewWatcher(c *Crawler, root string, h ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		crawler:  c,
		root:     root,
		handler:  h,
		debounce: DefaultDebounce,
		fsw:      fsw,
	}
	if err := w.addDirectories(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce changes the quiet period.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

func (w *Watcher) addDirectories(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(w.root, path); err == nil && rel != "." && w.crawler.Ignored(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) relevant(path string) bool {
	if !strings.HasSuffix(path, ".py") {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if w.crawler.Ignored(dir) {
			return false
		}
	}
	return !w.crawler.Ignored(rel)
}

// Run processes events until ctx is done. It closes the underlying watcher
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectories(event.Name); err != nil {
						w.crawler.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !w.relevant(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			pending = make(map[string]bool)
			sort.Strings(batch)
			if err := w.flush(ctx, batch); err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.crawler.logger.Warn("file watcher error", "error", err)
		}
	}
}

// flush analyzes files that still exist and reports the others as removed.
func (w *Watcher) flush(ctx context.Context, paths []string) error {
	var present []string
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := w.handler.UnitRemoved(ctx, path); err != nil {
				return fmt.Errorf("failed to remove results for %s: %w", path, err)
			}
			continue
		}
		present = append(present, path)
	}

	var handlerErr error
	stats, err := w.crawler.ScanFiles(ctx, present, func(unit *extractor.SourceUnit) {
		if handlerErr == nil {
			handlerErr = w.handler.UnitChanged(ctx, unit)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if handlerErr != nil {
		return fmt.Errorf("failed to store analysis results: %w", handlerErr)
	}
	w.crawler.logger.Info("re-analyzed changed files",
		"files", stats.Files, "analyzed", stats.Analyzed, "failed", len(stats.Failures))
	return nil
}
