package model

import "context"

// Role identifies message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// StopReason is the provider-reported reason a completion ended. Values are
// forwarded opaquely; callers compare against the known constants.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ToolDefinition describes a callable tool offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a model-emitted tool invocation request. ID is the correlation
// id assigned by the completion service; the paired result must echo it.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse is a tool execution result returned to model context.
type ToolResponse struct {
	ID     string
	Name   string
	Result map[string]any
}

// Message is a single turn element in model context.
type Message struct {
	Role          Role
	Text          string
	ToolCalls     []ToolCall
	ToolResponses []ToolResponse
}

// Request is a provider-agnostic completion request.
type Request struct {
	Messages []Message
	Tools    []ToolDefinition
}

// Usage reports model token usage (best-effort).
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-agnostic completion response.
type Response struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
	Model      string
	Provider   string
}

// LLM is the model abstraction used by the kernel. Generate performs one
// blocking round trip to the completion service.
type LLM interface {
	Name() string
	Generate(context.Context, *Request) (*Response, error)
}
