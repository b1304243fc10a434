package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hohparser/internal/extractor"
	"hohparser/internal/pyast"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestCrawler(t *testing.T, opts ...Option) *Crawler {
	t.Helper()
	a, err := extractor.NewAnalyzer("python")
	require.NoError(t, err)
	c, err := NewCrawler(a, opts...)
	require.NoError(t, err)
	return c
}

func TestListPythonFiles(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.py"), "")
		writeFile(t, filepath.Join(dir, "b.txt"), "")

		files, err := ListPythonFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.py")}, files)
	})

	t.Run("Recursive", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "sub", "c.py"), "")
		writeFile(t, filepath.Join(dir, "a.py"), "")

		files, err := ListPythonFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.py"),
			filepath.Join(dir, "sub", "c.py"),
		}, files)
	})

	t.Run("Missing Directory", func(t *testing.T) {
		_, err := ListPythonFiles(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}

func TestCrawler_ListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "")
	writeFile(t, filepath.Join(dir, "__pycache__", "app.cpython-312.py"), "")
	writeFile(t, filepath.Join(dir, ".venv", "lib", "site.py"), "")
	writeFile(t, filepath.Join(dir, "tests", "test_app.py"), "")
	writeFile(t, filepath.Join(dir, "pkg", "generated_pb2.py"), "")

	t.Run("Default Ignores", func(t *testing.T) {
		c := newTestCrawler(t)
		files, err := c.ListFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "app.py"),
			filepath.Join(dir, "pkg", "generated_pb2.py"),
			filepath.Join(dir, "tests", "test_app.py"),
		}, files)
	})

	t.Run("Custom Globs", func(t *testing.T) {
		c := newTestCrawler(t, WithIgnore("tests", "*_pb2.py", "__pycache__", ".venv"))
		files, err := c.ListFiles(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "app.py")}, files)
	})

	t.Run("Invalid Pattern", func(t *testing.T) {
		a, err := extractor.NewAnalyzer("python")
		require.NoError(t, err)
		_, err = NewCrawler(a, WithIgnore("[unclosed"))
		assert.Error(t, err)
	})
}

func TestCrawler_ScanProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.py"), "import os\n")
	writeFile(t, filepath.Join(dir, "b.py"), "def broken(:\n")
	writeFile(t, filepath.Join(dir, "pkg", "c.py"), "class C:\n    pass\n")
	writeFile(t, filepath.Join(dir, "pkg", "d.py"), "x = 1\n")

	c := newTestCrawler(t, WithWorkers(3))

	var paths []string
	stats, err := c.ScanProject(context.Background(), dir, func(unit *extractor.SourceUnit) {
		paths = append(paths, unit.Path)
	})
	require.NoError(t, err)

	t.Run("Deterministic Order", func(t *testing.T) {
		assert.Equal(t, []string{
			filepath.Join(dir, "a.py"),
			filepath.Join(dir, "pkg", "c.py"),
			filepath.Join(dir, "pkg", "d.py"),
		}, paths)
	})

	t.Run("Failures Recorded", func(t *testing.T) {
		assert.Equal(t, 4, stats.Files)
		assert.Equal(t, 3, stats.Analyzed)
		require.Len(t, stats.Failures, 1)
		assert.Equal(t, filepath.Join(dir, "b.py"), stats.Failures[0].Path)
		assert.True(t, errors.Is(stats.Failures[0].Err, pyast.ErrSyntax))
	})
}

func TestCrawler_ScanFilesCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.py"), "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCrawler(t)
	_, err := c.ScanFiles(ctx, []string{filepath.Join(dir, "a.py")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
