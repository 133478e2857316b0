package agentrun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/model"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/tool/builtin/probe"
	"github.com/arcline/envclone/kernel/tool/builtin/signal"
)

func newAgent(t *testing.T, llm model.LLM, tools []tool.Tool, maxIterations int) *Agent {
	t.Helper()
	client, err := completion.NewClient(llm)
	if err != nil {
		t.Fatal(err)
	}
	dispatcher, err := tool.NewDispatcher(tools)
	if err != nil {
		t.Fatal(err)
	}
	agent, err := New(Config{
		Name:            "test",
		Client:          client,
		Dispatcher:      dispatcher,
		SystemDirective: "you are testing",
		MaxIterations:   maxIterations,
	})
	if err != nil {
		t.Fatal(err)
	}
	return agent
}

func TestRunTerminatesOnFirstTextOnlyResponse(t *testing.T) {
	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		textResponse("nothing to do", model.StopEndTurn),
	}}
	agent := newAgent(t, llm, nil, 0)

	result, err := agent.Run(context.Background(), "explore")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeEndOfTurn {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if result.Iterations != 1 {
		t.Fatalf("expected exactly 1 iteration, got %d", result.Iterations)
	}
	if result.FinalMessage != "nothing to do" {
		t.Fatalf("unexpected final message %q", result.FinalMessage)
	}
	if result.RunID == "" {
		t.Fatalf("missing run id")
	}
}

func TestRunStopsAtExactlyMaxIterations(t *testing.T) {
	// Always demand more tool work, never signal completion.
	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		toolResponse("more", model.ToolCall{ID: "tu", Name: "noop", Args: map[string]any{}}),
	}}
	noop := staticTool(t, "noop", map[string]any{"ok": true})
	agent := newAgent(t, llm, []tool.Tool{noop}, 7)

	result, err := agent.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeExhausted {
		t.Fatalf("budget exhaustion must be a distinct outcome, got %q", result.Outcome)
	}
	if result.Iterations != 7 {
		t.Fatalf("expected iteration counter 7, got %d", result.Iterations)
	}
	if result.Completed() {
		t.Fatalf("exhausted run must not report completed")
	}
}

func TestRunCompletionSignalEndsRun(t *testing.T) {
	complete, err := signal.NewCompleteExploration()
	if err != nil {
		t.Fatal(err)
	}
	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		toolResponse("wrapping up", model.ToolCall{
			ID:   "tu_1",
			Name: signal.CompleteExplorationName,
			Args: map[string]any{"summary": "found 3 endpoints"},
		}),
		textResponse("all done", model.StopEndTurn),
	}}
	agent := newAgent(t, llm, []tool.Tool{complete}, 0)

	result, err := agent.Run(context.Background(), "explore")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if result.Iterations != 1 {
		t.Fatalf("completion must not consume extra iterations, got %d", result.Iterations)
	}
	if result.Signal["summary"] != "found 3 endpoints" {
		t.Fatalf("signal payload not captured: %v", result.Signal)
	}
	if result.FinalMessage != "wrapping up\n\nall done" {
		t.Fatalf("assistant texts not merged: %q", result.FinalMessage)
	}
}

func TestRunFirstCompletionSignalWins(t *testing.T) {
	complete, err := signal.NewCompleteExploration()
	if err != nil {
		t.Fatal(err)
	}
	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		toolResponse("",
			model.ToolCall{ID: "tu_1", Name: signal.CompleteExplorationName, Args: map[string]any{"summary": "first"}},
			model.ToolCall{ID: "tu_2", Name: signal.CompleteExplorationName, Args: map[string]any{"summary": "second"}},
		),
		textResponse("done", model.StopEndTurn),
	}}
	agent := newAgent(t, llm, []tool.Tool{complete}, 0)

	result, err := agent.Run(context.Background(), "explore")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Signal["summary"] != "first" {
		t.Fatalf("first signal payload must win, got %v", result.Signal)
	}
}

func TestRunUnknownToolBecomesErrorResult(t *testing.T) {
	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		toolResponse("trying", model.ToolCall{ID: "tu_1", Name: "unknown_tool", Args: map[string]any{}}),
		textResponse("noted the failure", model.StopEndTurn),
	}}
	var captured map[string]any
	client, _ := completion.NewClient(llm)
	dispatcher, _ := tool.NewDispatcher(nil)
	agent, err := New(Config{
		Name:       "test",
		Client:     client,
		Dispatcher: dispatcher,
		Hooks: Hooks{OnToolResult: func(call model.ToolCall, result map[string]any) {
			captured = result
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := agent.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("unknown tool must not abort the run: %v", err)
	}
	if result.Outcome != OutcomeEndOfTurn {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if captured == nil || captured["error"] == nil {
		t.Fatalf("expected error-shaped result, got %v", captured)
	}

	// The dispatcher itself still raises when called directly.
	if _, err := dispatcher.Execute(context.Background(), "unknown_tool", nil); err == nil {
		t.Fatalf("direct dispatch must raise on unknown tool")
	}

	// The error result must have been fed back on the follow-up call.
	followup := llm.requests[1]
	last := followup.Messages[len(followup.Messages)-1]
	if last.Role != model.RoleTool || len(last.ToolResponses) != 1 {
		t.Fatalf("unexpected follow-up tail %+v", last)
	}
	if last.ToolResponses[0].ID != "tu_1" {
		t.Fatalf("error result mis-attributed: %+v", last.ToolResponses[0])
	}
}

func TestRunProbeEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	env, err := execenv.New(execenv.Config{TargetURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	probeTool, err := probe.New(env)
	if err != nil {
		t.Fatal(err)
	}

	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		toolResponse("checking health", model.ToolCall{
			ID:   "tu_1",
			Name: probe.ToolName,
			Args: map[string]any{"method": "GET", "path": "/health"},
		}),
		textResponse("the API is healthy", model.StopEndTurn),
	}}

	var captured map[string]any
	client, _ := completion.NewClient(llm)
	dispatcher, _ := tool.NewDispatcher([]tool.Tool{probeTool})
	agent, err := New(Config{
		Name:       "test",
		Client:     client,
		Dispatcher: dispatcher,
		Hooks: Hooks{OnToolResult: func(call model.ToolCall, result map[string]any) {
			captured = result
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := agent.Run(context.Background(), "probe the target")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Outcome != OutcomeEndOfTurn {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if captured["status"] != float64(200) {
		t.Fatalf("expected status 200 in tool result, got %v", captured)
	}
	if captured["success"] != true {
		t.Fatalf("expected success flag, got %v", captured)
	}
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	llm := &scriptedLLM{script: []func(*model.Request) (*model.Response, error){
		textResponse("x", model.StopEndTurn),
	}}
	agent := newAgent(t, llm, nil, 0)
	if _, err := agent.Run(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty prompt rejection")
	}
}

func staticTool(t *testing.T, name string, result map[string]any) tool.Tool {
	t.Helper()
	ft, err := tool.NewFunction(name, name, func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return result, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return ft
}
