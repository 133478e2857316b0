package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/arcline/envclone/kernel/model"
	"github.com/arcline/envclone/kernel/transcript"
)

func seedTranscript(text string) *transcript.Transcript {
	tr := transcript.New()
	tr.Append(model.RoleUser, text)
	return tr
}

func TestCompleteRequiresNonEmptyTranscript(t *testing.T) {
	c, err := NewClient(newTestLLM("", nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Complete(context.Background(), transcript.New(), nil, "sys"); err == nil {
		t.Fatalf("expected empty transcript rejection")
	}
}

func TestCompleteSplitsTextAndInvocations(t *testing.T) {
	llm := newTestLLM("", func(req *model.Request) (*model.Response, error) {
		if req.Messages[0].Role != model.RoleSystem || req.Messages[0].Text != "directive" {
			t.Fatalf("system directive not first message: %+v", req.Messages[0])
		}
		return &model.Response{
			Message: model.Message{
				Role:      model.RoleAssistant,
				Text:      "let me check",
				ToolCalls: []model.ToolCall{{ID: "tu_1", Name: "make_http_request", Args: map[string]any{"path": "/health"}}},
			},
			StopReason: model.StopToolUse,
		}, nil
	})
	c, _ := NewClient(llm)

	result, err := c.Complete(context.Background(), seedTranscript("explore"), nil, "directive")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Text != "let me check" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if len(result.Invocations) != 1 || result.Invocations[0].ID != "tu_1" {
		t.Fatalf("unexpected invocations %+v", result.Invocations)
	}
	if result.StopReason != model.StopToolUse {
		t.Fatalf("unexpected stop reason %q", result.StopReason)
	}
}

func TestContinueWithToolResultsAlignment(t *testing.T) {
	invocations := []model.ToolCall{
		{ID: "tu_1", Name: "a"},
		{ID: "tu_2", Name: "b"},
	}

	var captured *model.Request
	llm := newTestLLM("", func(req *model.Request) (*model.Response, error) {
		captured = req
		return &model.Response{Message: model.Message{Role: model.RoleAssistant, Text: "done"}, StopReason: model.StopEndTurn}, nil
	})
	c, _ := NewClient(llm)
	tr := seedTranscript("go")

	// Misaligned lengths must be rejected before any network call.
	if _, err := c.ContinueWithToolResults(context.Background(), tr, invocations, []map[string]any{{"x": 1}}, nil, "sys"); err == nil {
		t.Fatalf("expected misalignment rejection")
	}
	if captured != nil {
		t.Fatalf("misaligned call must not reach the provider")
	}

	results := []map[string]any{{"r": "one"}, {"r": "two"}}
	if _, err := c.ContinueWithToolResults(context.Background(), tr, invocations, results, nil, "sys"); err != nil {
		t.Fatalf("continue: %v", err)
	}

	// system, user seed, assistant invocations, tool results.
	if len(captured.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(captured.Messages))
	}
	assistant := captured.Messages[2]
	if assistant.Role != model.RoleAssistant || len(assistant.ToolCalls) != 2 {
		t.Fatalf("unexpected assistant turn %+v", assistant)
	}
	toolTurn := captured.Messages[3]
	if toolTurn.Role != model.RoleTool || len(toolTurn.ToolResponses) != 2 {
		t.Fatalf("unexpected tool turn %+v", toolTurn)
	}
	for i, tr := range toolTurn.ToolResponses {
		if tr.ID != invocations[i].ID {
			t.Fatalf("result %d mis-attributed: id %q want %q", i, tr.ID, invocations[i].ID)
		}
		if tr.Result["r"] != results[i]["r"] {
			t.Fatalf("result %d payload mismatch", i)
		}
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	calls := 0
	llm := newTestLLM("", func(req *model.Request) (*model.Response, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("model: http status 429")
		}
		return &model.Response{Message: model.Message{Role: model.RoleAssistant, Text: "recovered"}, StopReason: model.StopEndTurn}, nil
	})
	c, _ := NewClient(llm, WithRetry(3, time.Millisecond))

	result, err := c.Complete(context.Background(), seedTranscript("x"), nil, "")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if result.Text != "recovered" {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	calls := 0
	llm := newTestLLM("", func(req *model.Request) (*model.Response, error) {
		calls++
		return nil, fmt.Errorf("model: http status 500")
	})
	c, _ := NewClient(llm, WithRetry(2, time.Millisecond))

	if _, err := c.Complete(context.Background(), seedTranscript("x"), nil, ""); err == nil {
		t.Fatalf("expected failure after retry budget")
	}
	if calls != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", calls)
	}
}

func TestGenerateNeverRetriesCancellation(t *testing.T) {
	calls := 0
	llm := newTestLLM("", func(req *model.Request) (*model.Response, error) {
		calls++
		return nil, context.Canceled
	})
	c, _ := NewClient(llm, WithRetry(5, time.Millisecond))

	_, err := c.Complete(context.Background(), seedTranscript("x"), nil, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("cancellation must not be retried, got %d calls", calls)
	}
}
