package agents

import (
	"context"
	"fmt"

	"github.com/arcline/envclone/kernel/agentrun"
	"github.com/arcline/envclone/kernel/apispec"
	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/tool/builtin/fileio"
	"github.com/arcline/envclone/kernel/tool/builtin/signal"
	"github.com/arcline/envclone/kernel/tool/builtin/sqlexec"
	"github.com/arcline/envclone/kernel/transcript"
)

// DefaultGenerationIterations is higher than the loop default: building a
// full environment needs many file writes.
const DefaultGenerationIterations = 100

// GenerationConfig configures one generation run.
type GenerationConfig struct {
	Client        *completion.Client
	Env           *execenv.Environment
	Document      *apispec.Document
	MaxIterations int
	Hooks         agentrun.Hooks
}

// GenerationResult is the typed outcome of generation.
type GenerationResult struct {
	Summary    string
	Files      []string
	Outcome    agentrun.Outcome
	Iterations int
	Transcript *transcript.Transcript
}

// RunGeneration drives the generation agent: it writes a runnable replica of
// the specified API under the environment's output root.
func RunGeneration(ctx context.Context, cfg GenerationConfig) (*GenerationResult, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("agents: generation needs a completion client")
	}
	if cfg.Env == nil {
		return nil, fmt.Errorf("agents: generation needs an execution environment")
	}
	if cfg.Document == nil {
		return nil, fmt.Errorf("agents: generation needs a specification document")
	}

	writeTool, err := fileio.NewWrite(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	readTool, err := fileio.NewRead(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	sqlTool, err := sqlexec.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	completeTool, err := signal.NewCompleteGeneration()
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	dispatcher, err := tool.NewDispatcher([]tool.Tool{writeTool, readTool, sqlTool, completeTool})
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultGenerationIterations
	}
	agent, err := agentrun.New(agentrun.Config{
		Name:            "generation",
		Client:          cfg.Client,
		Dispatcher:      dispatcher,
		SystemDirective: generationDirective,
		MaxIterations:   maxIterations,
		Hooks:           cfg.Hooks,
	})
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	specJSON, err := cfg.Document.JSON()
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	prompt := fmt.Sprintf("Build a local replica of the API described by this specification:\n\n%s", specJSON)
	result, err := agent.Run(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out := &GenerationResult{
		Outcome:    result.Outcome,
		Iterations: result.Iterations,
		Transcript: result.Transcript,
	}
	if summary, ok := result.Signal["summary"].(string); ok && summary != "" {
		out.Summary = summary
	} else {
		out.Summary = result.FinalMessage
	}
	out.Files = stringSlice(result.Signal["files"])
	return out, nil
}

// stringSlice tolerates both []string and the []any produced by a JSON
// round trip.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
