// Package agents wires the specialized agents: each supplies a fixed system
// directive and tool subset to the generic loop, differing only in prompt
// content and permitted tools.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcline/envclone/kernel/agentrun"
	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/tool/builtin/probe"
	"github.com/arcline/envclone/kernel/tool/builtin/signal"
	"github.com/arcline/envclone/kernel/transcript"
)

// ExplorationConfig configures one exploration run.
type ExplorationConfig struct {
	Client            *completion.Client
	Env               *execenv.Environment
	MaxIterations     int
	StartingEndpoints []string
	// ExtraTools join the catalog, typically from a target's MCP server.
	ExtraTools []tool.Tool
	Hooks      agentrun.Hooks
}

// ExplorationResult is the typed outcome of exploration.
type ExplorationResult struct {
	Summary      string
	Observations []signal.Observation
	Outcome      agentrun.Outcome
	Iterations   int
	Transcript   *transcript.Transcript
}

// RunExploration drives the exploration agent against the target API.
func RunExploration(ctx context.Context, cfg ExplorationConfig) (*ExplorationResult, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("agents: exploration needs a completion client")
	}
	if cfg.Env == nil || cfg.Env.TargetURL() == "" {
		return nil, fmt.Errorf("agents: exploration needs a target url")
	}

	recorder := signal.NewRecorder()
	probeTool, err := probe.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	recordTool, err := signal.NewRecordObservation(recorder)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	completeTool, err := signal.NewCompleteExploration()
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	tools := []tool.Tool{probeTool, recordTool, completeTool}
	tools = append(tools, cfg.ExtraTools...)
	dispatcher, err := tool.NewDispatcher(tools)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	agent, err := agentrun.New(agentrun.Config{
		Name:            "exploration",
		Client:          cfg.Client,
		Dispatcher:      dispatcher,
		SystemDirective: explorationDirective,
		MaxIterations:   cfg.MaxIterations,
		Hooks:           cfg.Hooks,
	})
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	result, err := agent.Run(ctx, explorationPrompt(cfg.Env.TargetURL(), cfg.StartingEndpoints))
	if err != nil {
		return nil, err
	}

	out := &ExplorationResult{
		Observations: recorder.All(),
		Outcome:      result.Outcome,
		Iterations:   result.Iterations,
		Transcript:   result.Transcript,
	}
	if summary, ok := result.Signal["summary"].(string); ok && summary != "" {
		out.Summary = summary
	} else {
		out.Summary = result.FinalMessage
	}
	return out, nil
}

func explorationPrompt(targetURL string, startingEndpoints []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explore the HTTP API at %s and learn its complete surface.", targetURL)
	endpoints := make([]string, 0, len(startingEndpoints))
	for _, ep := range startingEndpoints {
		if strings.TrimSpace(ep) != "" {
			endpoints = append(endpoints, strings.TrimSpace(ep))
		}
	}
	if len(endpoints) > 0 {
		fmt.Fprintf(&b, "\n\nStart with these endpoints: %s.", strings.Join(endpoints, ", "))
	}
	return b.String()
}
