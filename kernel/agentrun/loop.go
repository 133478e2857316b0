// Package agentrun drives the model-tool cycle: request a completion,
// execute any tool invocations through the dispatcher, feed the results back
// for a follow-up completion, and repeat until a tool signals completion,
// the model ends its turn, or the iteration budget runs out.
package agentrun

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/model"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/transcript"
)

// DefaultMaxIterations bounds a run unless the agent overrides it.
const DefaultMaxIterations = 50

// Outcome is the terminal state of a run. Exhaustion is distinct from
// completion; callers decide how to treat it.
type Outcome string

const (
	// OutcomeCompleted means a tool signaled completion.
	OutcomeCompleted Outcome = "completed"
	// OutcomeEndOfTurn means the model stopped without pending tool work.
	OutcomeEndOfTurn Outcome = "end_of_turn"
	// OutcomeExhausted means the iteration budget ran out first.
	OutcomeExhausted Outcome = "exhausted"
)

// Hooks receive progress notifications during a run. All fields optional.
type Hooks struct {
	OnIteration  func(n int)
	OnToolResult func(call model.ToolCall, result map[string]any)
	OnAssistant  func(text string)
}

// Config is the immutable per-agent bundle.
type Config struct {
	Name            string
	Client          *completion.Client
	Dispatcher      *tool.Dispatcher
	SystemDirective string
	MaxIterations   int
	Truncation      tool.TruncationPolicy
	Hooks           Hooks
}

// Result reports one finished run.
type Result struct {
	RunID        string
	Outcome      Outcome
	Iterations   int
	FinalMessage string
	// Signal is the payload of the first completion-signaling tool result,
	// nil when the run ended without one.
	Signal     map[string]any
	Transcript *transcript.Transcript
}

// Completed reports whether a completion tool ended the run.
func (r *Result) Completed() bool {
	return r != nil && r.Outcome == OutcomeCompleted
}

// Agent runs the loop with a fixed configuration. Transcript and counters
// are created fresh per Run; the agent itself is reusable.
type Agent struct {
	cfg Config
}

// New validates config and builds an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agentrun: name is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("agentrun: completion client is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("agentrun: dispatcher is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Truncation.MaxTokens <= 0 {
		cfg.Truncation = tool.DefaultTruncationPolicy()
	}
	return &Agent{cfg: cfg}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Run seeds the transcript with the initial prompt and drives the loop to a
// terminal outcome. Completion-service failures are fatal to the run; tool
// failures are captured as error-shaped results and fed back as data.
func (a *Agent) Run(ctx context.Context, initialPrompt string) (*Result, error) {
	if strings.TrimSpace(initialPrompt) == "" {
		return nil, fmt.Errorf("agentrun: %s: initial prompt is empty", a.cfg.Name)
	}

	tr := transcript.New()
	tr.Append(model.RoleUser, initialPrompt)
	catalog := a.cfg.Dispatcher.Declarations()

	result := &Result{
		RunID:      uuid.NewString(),
		Transcript: tr,
	}

	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		result.Iterations = iteration
		if a.cfg.Hooks.OnIteration != nil {
			a.cfg.Hooks.OnIteration(iteration)
		}

		first, err := a.cfg.Client.Complete(ctx, tr, catalog, a.cfg.SystemDirective)
		if err != nil {
			return nil, fmt.Errorf("agentrun: %s: completion: %w", a.cfg.Name, err)
		}

		if len(first.Invocations) == 0 {
			tr.Append(model.RoleAssistant, first.Text)
			a.notifyAssistant(first.Text)
			result.Outcome = OutcomeEndOfTurn
			result.FinalMessage = first.Text
			return result, nil
		}

		results := make([]map[string]any, 0, len(first.Invocations))
		for _, call := range first.Invocations {
			one := a.executeOne(ctx, call)
			if tool.IsCompletion(one) && result.Signal == nil {
				result.Signal = one
			}
			results = append(results, one)
		}

		followup, err := a.cfg.Client.ContinueWithToolResults(ctx, tr, first.Invocations, results, catalog, a.cfg.SystemDirective)
		if err != nil {
			return nil, fmt.Errorf("agentrun: %s: follow-up completion: %w", a.cfg.Name, err)
		}

		merged := mergeText(first.Text, followup.Text)
		tr.Append(model.RoleAssistant, merged)
		a.notifyAssistant(merged)

		if result.Signal != nil {
			result.Outcome = OutcomeCompleted
			result.FinalMessage = merged
			return result, nil
		}
		if len(followup.Invocations) > 0 {
			// Follow-up invocations start the next iteration's cycle.
			continue
		}
		result.Outcome = OutcomeEndOfTurn
		result.FinalMessage = merged
		return result, nil
	}

	result.Outcome = OutcomeExhausted
	result.FinalMessage = lastAssistantText(tr)
	return result, nil
}

// executeOne dispatches a single invocation. Execution errors, including
// unknown tool names, become error-shaped results so one failing call never
// aborts the iteration.
func (a *Agent) executeOne(ctx context.Context, call model.ToolCall) map[string]any {
	result, err := a.cfg.Dispatcher.Execute(ctx, call.Name, call.Args)
	if err != nil {
		result = map[string]any{"error": err.Error()}
	}
	result = tool.TruncateMap(result, a.cfg.Truncation)
	if a.cfg.Hooks.OnToolResult != nil {
		a.cfg.Hooks.OnToolResult(call, result)
	}
	return result
}

func (a *Agent) notifyAssistant(text string) {
	if a.cfg.Hooks.OnAssistant != nil && strings.TrimSpace(text) != "" {
		a.cfg.Hooks.OnAssistant(text)
	}
}

func mergeText(first, second string) string {
	first = strings.TrimSpace(first)
	second = strings.TrimSpace(second)
	switch {
	case first == "":
		return second
	case second == "":
		return first
	default:
		return first + "\n\n" + second
	}
}

func lastAssistantText(tr *transcript.Transcript) string {
	turns := tr.All()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleAssistant {
			return turns[i].Text
		}
	}
	return ""
}
