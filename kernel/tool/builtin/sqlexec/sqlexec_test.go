package sqlexec

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/store"
)

func TestExecuteSQLWithoutStoreIsStructuredFailure(t *testing.T) {
	env, err := execenv.New(execenv.Config{})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(env)
	if err != nil {
		t.Fatal(err)
	}
	result, err := s.Run(context.Background(), map[string]any{"query": "SELECT 1"})
	if err != nil {
		t.Fatalf("missing store must not error: %v", err)
	}
	if result["success"] != false {
		t.Fatalf("expected failure result, got %v", result)
	}
	if msg, _ := result["error"].(string); !strings.Contains(msg, "no database") {
		t.Fatalf("unexpected error message %v", result["error"])
	}
}

func TestExecuteSQLRoundTrip(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	env, err := execenv.New(execenv.Config{Store: db})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(env)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.Run(ctx, map[string]any{"query": "CREATE TABLE tags (name TEXT)"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Run(ctx, map[string]any{"query": "INSERT INTO tags (name) VALUES ('golang')"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	result, err := s.Run(ctx, map[string]any{"query": "SELECT name FROM tags"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rows, _ := result["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %v", result)
	}
	row, _ := rows[0].(map[string]any)
	if row["name"] != "golang" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestExecuteSQLBadQueryIsStructuredFailure(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	env, _ := execenv.New(execenv.Config{Store: db})
	s, _ := New(env)

	result, err := s.Run(context.Background(), map[string]any{"query": "SELECT FROM WHERE"})
	if err != nil {
		t.Fatalf("bad query must not error: %v", err)
	}
	if result["success"] != false {
		t.Fatalf("expected failure result, got %v", result)
	}
}
