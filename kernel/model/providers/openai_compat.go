package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arcline/envclone/kernel/model"
)

type openAICompatLLM struct {
	name         string
	provider     string
	baseURL      string
	token        string
	client       *http.Client
	maxOutputTok int
	temperature  float64
}

func newOpenAICompat(cfg Config, token string) *openAICompatLLM {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxTok := cfg.MaxOutputTok
	if maxTok <= 0 {
		maxTok = 8192
	}
	return &openAICompatLLM{
		name:         cfg.Model,
		provider:     cfg.Provider,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        token,
		client:       &http.Client{Timeout: timeout},
		maxOutputTok: maxTok,
		temperature:  cfg.Temperature,
	}
}

func (l *openAICompatLLM) Name() string {
	return l.name
}

func (l *openAICompatLLM) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("model: request is nil")
	}
	payload := openAICompatRequest{
		Model:       l.name,
		Messages:    fromKernelMessages(req.Messages),
		Tools:       fromKernelTools(req.Tools),
		MaxTokens:   l.maxOutputTok,
		Temperature: l.temperature,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+l.token)

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var out openAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("model: empty choices")
	}
	choice := out.Choices[0]
	msg, err := toKernelMessage(choice.Message)
	if err != nil {
		return nil, err
	}
	return &model.Response{
		Message:    msg,
		StopReason: toKernelStopReason(choice.FinishReason),
		Model:      out.Model,
		Provider:   l.provider,
		Usage: model.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

type openAICompatRequest struct {
	Model       string                 `json:"model"`
	Messages    []openAICompatMessage  `json:"messages"`
	Tools       []openAICompatToolDecl `json:"tools,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Temperature float64                `json:"temperature"`
}

type openAICompatMessage struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content,omitempty"`
	ToolCalls  []openAICompatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
}

type openAICompatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAICompatToolDecl struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type openAICompatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAICompatMessage `json:"message"`
		FinishReason string              `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func fromKernelTools(tools []model.ToolDefinition) []openAICompatToolDecl {
	out := make([]openAICompatToolDecl, 0, len(tools))
	for _, t := range tools {
		decl := openAICompatToolDecl{Type: "function"}
		decl.Function.Name = t.Name
		decl.Function.Description = t.Description
		decl.Function.Parameters = t.Parameters
		out = append(out, decl)
	}
	return out
}

func fromKernelMessages(messages []model.Message) []openAICompatMessage {
	out := make([]openAICompatMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openAICompatMessage{Role: "system", Content: m.Text})
		case model.RoleUser:
			out = append(out, openAICompatMessage{Role: "user", Content: m.Text})
		case model.RoleAssistant:
			one := openAICompatMessage{Role: "assistant", Content: m.Text}
			for _, call := range m.ToolCalls {
				args, err := json.Marshal(call.Args)
				if err != nil {
					args = []byte("{}")
				}
				tc := openAICompatToolCall{ID: call.ID, Type: "function"}
				tc.Function.Name = call.Name
				tc.Function.Arguments = string(args)
				one.ToolCalls = append(one.ToolCalls, tc)
			}
			out = append(out, one)
		case model.RoleTool:
			for _, tr := range m.ToolResponses {
				raw, _ := json.Marshal(tr.Result)
				out = append(out, openAICompatMessage{
					Role:       "tool",
					Content:    string(raw),
					ToolCallID: tr.ID,
				})
			}
		}
	}
	return out
}

func toKernelMessage(in openAICompatMessage) (model.Message, error) {
	msg := model.Message{Role: model.RoleAssistant, Text: in.Content}
	for _, call := range in.ToolCalls {
		args := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return model.Message{}, fmt.Errorf("model: decode tool call args: %w", err)
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: args,
		})
	}
	return msg, nil
}

func toKernelStopReason(finish string) model.StopReason {
	switch finish {
	case "stop":
		return model.StopEndTurn
	case "tool_calls":
		return model.StopToolUse
	case "length":
		return model.StopMaxTokens
	default:
		return model.StopReason(finish)
	}
}
