// Package sqlexec provides the execute_sql tool over the environment's store
// handle. An absent handle is a structured failure the model can react to.
package sqlexec

import (
	"context"
	"fmt"

	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/tool"
)

const ToolName = "execute_sql"

// Args is the execute_sql input shape.
type Args struct {
	Query string `json:"query" desc:"SQL statement or query to run against the seed database"`
}

// Result is the execute_sql output shape.
type Result struct {
	Success      bool             `json:"success"`
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int64            `json:"rows_affected"`
	Error        string           `json:"error,omitempty"`
}

// New builds the execute_sql tool.
func New(env *execenv.Environment) (tool.Tool, error) {
	if env == nil {
		return nil, fmt.Errorf("sqlexec: environment is nil")
	}
	return tool.NewFunction(ToolName, "Execute SQL against the environment's seed database.",
		func(ctx context.Context, args Args) (Result, error) {
			db := env.Store()
			if db == nil {
				return Result{Success: false, Error: "no database attached to this environment"}, nil
			}
			res, err := db.Exec(ctx, args.Query)
			if err != nil {
				return Result{Success: false, Error: err.Error()}, nil
			}
			return Result{
				Success:      true,
				Columns:      res.Columns,
				Rows:         res.Rows,
				RowsAffected: res.RowsAffected,
			}, nil
		})
}
