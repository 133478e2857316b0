package tool

import (
	"context"
	"fmt"

	"github.com/arcline/envclone/kernel/model"
)

// Tool is the executable tool contract.
type Tool interface {
	Name() string
	Description() string
	Declaration() model.ToolDefinition
	Run(context.Context, map[string]any) (map[string]any, error)
}

// CompleteKey is the result key marking run completion for the agent loop.
const CompleteKey = "complete"

// IsCompletion reports whether a tool result carries the completion flag.
func IsCompletion(result map[string]any) bool {
	flag, ok := result[CompleteKey].(bool)
	return ok && flag
}

// Dispatcher routes invocations over a fixed, closed catalog of tools.
// It holds no state beyond the catalog itself.
type Dispatcher struct {
	order  []Tool
	byName map[string]Tool
}

// NewDispatcher builds a dispatcher from a tool list. Order is preserved for
// catalog declarations; names must be unique and non-empty.
func NewDispatcher(tools []Tool) (*Dispatcher, error) {
	byName := make(map[string]Tool, len(tools))
	order := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool: empty name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("tool: duplicate tool %q", name)
		}
		byName[name] = t
		order = append(order, t)
	}
	return &Dispatcher{order: order, byName: byName}, nil
}

// Execute runs one invocation by exact name match. An unknown name is an
// error here; callers that must not abort on it wrap the error into an
// error-shaped result instead.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if d == nil {
		return nil, fmt.Errorf("tool: dispatcher is nil")
	}
	t, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("tool: unknown tool %q", name)
	}
	return t.Run(ctx, args)
}

// Lookup returns the named tool when present.
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	if d == nil {
		return nil, false
	}
	t, ok := d.byName[name]
	return t, ok
}

// Tools returns the catalog in declaration order.
func (d *Dispatcher) Tools() []Tool {
	if d == nil {
		return nil
	}
	out := make([]Tool, len(d.order))
	copy(out, d.order)
	return out
}

// Declarations returns model-visible declarations for the catalog.
func (d *Dispatcher) Declarations() []model.ToolDefinition {
	if d == nil {
		return nil
	}
	return Declarations(d.order)
}

// Declarations returns model-visible declarations for tools.
func Declarations(tools []Tool) []model.ToolDefinition {
	decls := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		decls = append(decls, t.Declaration())
	}
	return decls
}
