package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arcline/envclone/kernel/agentrun"
	"github.com/arcline/envclone/kernel/apispec"
	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/tool/builtin/signal"
	"github.com/arcline/envclone/kernel/transcript"
)

// SpecificationConfig configures one specification run.
type SpecificationConfig struct {
	Client *completion.Client
	// ExplorationTranscript is the exploration session rendered as
	// role-prefixed text.
	ExplorationTranscript string
	Observations          []signal.Observation
	TargetURL             string
	Hooks                 agentrun.Hooks
}

// SpecificationResult is the typed outcome of specification.
type SpecificationResult struct {
	Document   *apispec.Document
	Outcome    agentrun.Outcome
	Iterations int
	Transcript *transcript.Transcript
}

// RunSpecification turns exploration output into a structured specification.
// The agent is offered no side-effecting tools; a single completion usually
// suffices. A parse failure of the produced JSON is an error and aborts the
// pipeline.
func RunSpecification(ctx context.Context, cfg SpecificationConfig) (*SpecificationResult, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("agents: specification needs a completion client")
	}
	if strings.TrimSpace(cfg.ExplorationTranscript) == "" {
		return nil, fmt.Errorf("agents: specification needs an exploration transcript")
	}

	dispatcher, err := tool.NewDispatcher(nil)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	agent, err := agentrun.New(agentrun.Config{
		Name:            "specification",
		Client:          cfg.Client,
		Dispatcher:      dispatcher,
		SystemDirective: specificationDirective,
		MaxIterations:   3,
		Hooks:           cfg.Hooks,
	})
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	result, err := agent.Run(ctx, specificationPrompt(cfg))
	if err != nil {
		return nil, err
	}
	doc, err := apispec.Parse(result.FinalMessage)
	if err != nil {
		return nil, fmt.Errorf("agents: specification output: %w", err)
	}
	if doc.BaseURL == "" {
		doc.BaseURL = cfg.TargetURL
	}
	return &SpecificationResult{
		Document:   doc,
		Outcome:    result.Outcome,
		Iterations: result.Iterations,
		Transcript: result.Transcript,
	}, nil
}

func specificationPrompt(cfg SpecificationConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce the specification for the API at %s.\n\n", cfg.TargetURL)
	if len(cfg.Observations) > 0 {
		b.WriteString("Recorded observations:\n")
		for _, obs := range cfg.Observations {
			raw, err := json.Marshal(obs)
			if err != nil {
				continue
			}
			b.WriteString("- ")
			b.Write(raw)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Exploration session transcript:\n\n")
	b.WriteString(cfg.ExplorationTranscript)
	return b.String()
}
