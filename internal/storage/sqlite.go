package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hohparser/internal/extractor"
	"hohparser/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// Path returns the database file the store was opened on.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS units (
			path TEXT PRIMARY KEY,
			docstring TEXT,
			payload JSON NOT NULL,
			analyzed_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS symbols (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL REFERENCES units(path) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			qualified_name TEXT NOT NULL,
			parent TEXT,
			lineno INTEGER NOT NULL,
			end_lineno INTEGER,
			docstring TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			path TEXT NOT NULL REFERENCES units(path) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			kind TEXT NOT NULL,
			file TEXT NOT NULL,
			PRIMARY KEY (path, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbols(qualified_name);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- UnitStore Implementation ---

func (s *SQLiteStore) SaveUnit(ctx context.Context, unit *extractor.SourceUnit) error {
	if unit == nil {
		return fmt.Errorf("source unit is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveUnitTx(ctx, tx, unit, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func saveUnitTx(ctx context.Context, tx *sql.Tx, unit *extractor.SourceUnit, at time.Time) error {
	payload, err := json.Marshal(unit)
	if err != nil {
		return fmt.Errorf("failed to encode unit %s: %w", unit.Path, err)
	}

	// Deleting the unit row cascades to its symbols and edges.
	if _, err := tx.ExecContext(ctx, `DELETE FROM units WHERE path = ?`, unit.Path); err != nil {
		return fmt.Errorf("failed to clear unit %s: %w", unit.Path, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO units (path, docstring, payload, analyzed_at) VALUES (?, ?, ?, ?)
	`, unit.Path, nullString(unit.Docstring), payload, at); err != nil {
		return fmt.Errorf("failed to save unit %s: %w", unit.Path, err)
	}

	symbols, edges := graph.FromSourceUnit(unit)

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (id, path, kind, name, qualified_name, parent, lineno, end_lineno, docstring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path=excluded.path,
			kind=excluded.kind,
			name=excluded.name,
			qualified_name=excluded.qualified_name,
			parent=excluded.parent,
			lineno=excluded.lineno,
			end_lineno=excluded.end_lineno,
			docstring=excluded.docstring
	`)
	if err != nil {
		return err
	}
	defer symStmt.Close()

	for _, sym := range symbols {
		if _, err := symStmt.ExecContext(ctx, sym.ID, sym.Path, sym.Kind, sym.Name, sym.QualifiedName(),
			nullString(sym.Parent), sym.Lineno, nullInt(sym.EndLineno), nullString(sym.Docstring)); err != nil {
			return fmt.Errorf("failed to save symbol %s: %w", sym.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (path, seq, source, target, kind, file) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for i, e := range edges {
		if _, err := edgeStmt.ExecContext(ctx, unit.Path, i, e.Source, e.Target, string(e.Kind), e.File); err != nil {
			return fmt.Errorf("failed to save edge %d of %s: %w", i, unit.Path, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetUnit(ctx context.Context, path string) (*extractor.SourceUnit, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM units WHERE path = ?`, path).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query unit %s: %w", path, err)
	}

	var unit extractor.SourceUnit
	if err := json.Unmarshal(payload, &unit); err != nil {
		return nil, fmt.Errorf("failed to decode unit %s: %w", path, err)
	}
	return &unit, nil
}

func (s *SQLiteStore) DeleteUnit(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE path = ?`, path)
	return err
}

func (s *SQLiteStore) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM units ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// --- GraphStore Implementation ---

func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Snapshot sync: anything not in g is dropped.
	if _, err := tx.ExecContext(ctx, `DELETE FROM units`); err != nil {
		return err
	}

	at := time.Now().UTC()
	for _, unit := range g.Units() {
		if err := saveUnitTx(ctx, tx, unit, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM units ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []*extractor.SourceUnit
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		var unit extractor.SourceUnit
		if err := json.Unmarshal(payload, &unit); err != nil {
			return nil, fmt.Errorf("failed to decode unit: %w", err)
		}
		units = append(units, &unit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	g := graph.NewGraph()
	g.AddUnits(units...)
	return g, nil
}

func (s *SQLiteStore) FindSymbols(ctx context.Context, name string) ([]*graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, kind, name, parent, lineno, end_lineno, docstring
		FROM symbols WHERE name = ? OR qualified_name = ?
		ORDER BY path, lineno
	`, name, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var out []*graph.Symbol
	for rows.Next() {
		var (
			sym         graph.Symbol
			parent, doc sql.NullString
			endLineno   sql.NullInt64
		)
		if err := rows.Scan(&sym.ID, &sym.Path, &sym.Kind, &sym.Name, &parent, &sym.Lineno, &endLineno, &doc); err != nil {
			return nil, err
		}
		sym.Parent = stringPtr(parent)
		sym.Docstring = stringPtr(doc)
		if endLineno.Valid {
			n := int(endLineno.Int64)
			sym.EndLineno = &n
		}
		out = append(out, &sym)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindEdges(ctx context.Context, q EdgeQuery) ([]graph.Edge, error) {
	var (
		where []string
		args  []any
	)
	for _, f := range []struct {
		col, val string
	}{
		{"source", q.Source},
		{"target", q.Target},
		{"kind", string(q.Kind)},
		{"file", q.File},
	} {
		if f.val != "" {
			where = append(where, f.col+" = ?")
			args = append(args, f.val)
		}
	}

	query := `SELECT source, target, kind, file FROM edges`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY path, seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind, &e.File); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
