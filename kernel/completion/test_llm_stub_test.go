package completion

import (
	"context"

	"github.com/arcline/envclone/kernel/model"
)

type testLLM struct {
	name    string
	handler func(*model.Request) (*model.Response, error)
}

func newTestLLM(name string, handler func(*model.Request) (*model.Response, error)) model.LLM {
	if name == "" {
		name = "test-model"
	}
	return &testLLM{name: name, handler: handler}
}

func (l *testLLM) Name() string {
	return l.name
}

func (l *testLLM) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	_ = ctx
	if l.handler == nil {
		return &model.Response{
			Message:    model.Message{Role: model.RoleAssistant, Text: "ok"},
			StopReason: model.StopEndTurn,
		}, nil
	}
	resp, err := l.handler(req)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Model == "" {
		resp.Model = l.name
	}
	if resp != nil && resp.Provider == "" {
		resp.Provider = "test-provider"
	}
	return resp, err
}
