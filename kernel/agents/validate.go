package agents

import (
	"context"
	"fmt"

	"github.com/arcline/envclone/kernel/agentrun"
	"github.com/arcline/envclone/kernel/apispec"
	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/tool/builtin/probe"
	"github.com/arcline/envclone/kernel/tool/builtin/signal"
	"github.com/arcline/envclone/kernel/transcript"
)

// ValidationConfig configures one differential validation run. OriginalEnv
// points at the live target, CloneEnv at the locally running replica.
type ValidationConfig struct {
	Client        *completion.Client
	OriginalEnv   *execenv.Environment
	CloneEnv      *execenv.Environment
	Document      *apispec.Document
	MaxIterations int
	Hooks         agentrun.Hooks
}

// ValidationResult is the typed outcome of validation.
type ValidationResult struct {
	Summary       string
	FidelityScore float64
	Outcome       agentrun.Outcome
	Iterations    int
	Transcript    *transcript.Transcript
}

// RunValidation probes original and clone side by side and reports a
// fidelity score.
func RunValidation(ctx context.Context, cfg ValidationConfig) (*ValidationResult, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("agents: validation needs a completion client")
	}
	if cfg.OriginalEnv == nil || cfg.OriginalEnv.TargetURL() == "" {
		return nil, fmt.Errorf("agents: validation needs the original target url")
	}
	if cfg.CloneEnv == nil || cfg.CloneEnv.TargetURL() == "" {
		return nil, fmt.Errorf("agents: validation needs the clone url")
	}
	if cfg.Document == nil {
		return nil, fmt.Errorf("agents: validation needs a specification document")
	}

	originalTool, err := probe.NewNamed("query_original_api",
		"Send an HTTP request to the original API being cloned.", cfg.OriginalEnv)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	cloneTool, err := probe.NewNamed("query_clone_api",
		"Send an HTTP request to the locally running clone.", cfg.CloneEnv)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	completeTool, err := signal.NewCompleteValidation()
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	dispatcher, err := tool.NewDispatcher([]tool.Tool{originalTool, cloneTool, completeTool})
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	agent, err := agentrun.New(agentrun.Config{
		Name:            "validation",
		Client:          cfg.Client,
		Dispatcher:      dispatcher,
		SystemDirective: validationDirective,
		MaxIterations:   cfg.MaxIterations,
		Hooks:           cfg.Hooks,
	})
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	specJSON, err := cfg.Document.JSON()
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	prompt := fmt.Sprintf(
		"Compare the original API at %s with the clone at %s.\n\nBoth should implement this specification:\n\n%s",
		cfg.OriginalEnv.TargetURL(), cfg.CloneEnv.TargetURL(), specJSON)
	result, err := agent.Run(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out := &ValidationResult{
		Outcome:    result.Outcome,
		Iterations: result.Iterations,
		Transcript: result.Transcript,
	}
	if summary, ok := result.Signal["summary"].(string); ok && summary != "" {
		out.Summary = summary
	} else {
		out.Summary = result.FinalMessage
	}
	if score, ok := result.Signal["fidelity_score"].(float64); ok {
		out.FidelityScore = score
	}
	return out, nil
}
