package agents

import (
	"context"

	"github.com/arcline/envclone/kernel/model"
)

// scriptedLLM replays canned responses in order, repeating the last one.
type scriptedLLM struct {
	script   []func(*model.Request) (*model.Response, error)
	requests []*model.Request
	calls    int
}

func (l *scriptedLLM) Name() string { return "scripted" }

func (l *scriptedLLM) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	_ = ctx
	l.requests = append(l.requests, req)
	idx := l.calls
	l.calls++
	if idx >= len(l.script) {
		idx = len(l.script) - 1
	}
	return l.script[idx](req)
}

func textResponse(text string, stop model.StopReason) func(*model.Request) (*model.Response, error) {
	return func(*model.Request) (*model.Response, error) {
		return &model.Response{
			Message:    model.Message{Role: model.RoleAssistant, Text: text},
			StopReason: stop,
		}, nil
	}
}

func toolResponse(text string, calls ...model.ToolCall) func(*model.Request) (*model.Response, error) {
	return func(*model.Request) (*model.Response, error) {
		return &model.Response{
			Message:    model.Message{Role: model.RoleAssistant, Text: text, ToolCalls: calls},
			StopReason: model.StopToolUse,
		}, nil
	}
}
