// Package store wraps the sqlite seed database attached to generated
// environments. Query text comes from the model; results go back to it as
// row mappings, so no schema is imposed here.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	driver = "sqlite"
	dsnOpt = "?_pragma=busy_timeout(3000)&_pragma=journal_mode(WAL)"
)

// Store is a thin handle over one sqlite database file.
type Store struct {
	db   *sql.DB
	path string
}

// ExecResult is the outcome of one statement or query.
type ExecResult struct {
	Columns      []string
	Rows         []map[string]any
	RowsAffected int64
}

// Open creates the parent directory as needed and opens the database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	db, err := sql.Open(driver, path+dsnOpt)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping db: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Exec runs arbitrary query text. SELECT-shaped statements return rows as
// ordered column/row mappings; everything else reports affected rows.
func (s *Store) Exec(ctx context.Context, query string) (*ExecResult, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store: not open")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("store: empty query")
	}
	if isRowQuery(query) {
		return s.queryRows(ctx, query)
	}
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: exec: %w", err)
	}
	affected, _ := res.RowsAffected()
	return &ExecResult{RowsAffected: affected}, nil
}

func (s *Store) queryRows(ctx context.Context, query string) (*ExecResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: columns: %w", err)
	}
	out := &ExecResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}

func isRowQuery(query string) bool {
	head := strings.ToUpper(query)
	for _, prefix := range []string{"SELECT", "PRAGMA", "WITH", "EXPLAIN"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

func normalizeValue(v any) any {
	if raw, ok := v.([]byte); ok {
		return string(raw)
	}
	return v
}
