// Package completion wraps round trips to the completion service. It splits
// responses into text plus ordered tool invocations, builds the synthetic
// follow-up exchange carrying tool results, and retries transient transport
// failures with bounded backoff.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcline/envclone/kernel/model"
	"github.com/arcline/envclone/kernel/transcript"
)

// Result is one completion outcome: concatenated text, the ordered tool
// invocations, and the provider stop reason.
type Result struct {
	Text        string
	Invocations []model.ToolCall
	StopReason  model.StopReason
	Usage       model.Usage
}

// Client performs completion requests over one model provider.
type Client struct {
	llm        model.LLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option adjusts client behavior.
type Option func(*Client)

// WithRetry overrides the retry budget and backoff base delay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// NewClient builds a client over one provider.
func NewClient(llm model.LLM, opts ...Option) (*Client, error) {
	if llm == nil {
		return nil, fmt.Errorf("completion: llm is nil")
	}
	c := &Client{
		llm:        llm,
		maxRetries: 3,
		baseDelay:  250 * time.Millisecond,
		maxDelay:   4 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ModelName reports the underlying provider's model name.
func (c *Client) ModelName() string {
	return c.llm.Name()
}

// Complete issues one completion over the transcript.
func (c *Client) Complete(ctx context.Context, tr *transcript.Transcript, catalog []model.ToolDefinition, systemDirective string) (*Result, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, fmt.Errorf("completion: transcript is empty")
	}
	messages := c.baseMessages(tr, systemDirective)
	return c.generate(ctx, &model.Request{Messages: messages, Tools: catalog})
}

// ContinueWithToolResults issues the follow-up completion after tool
// execution. It appends a synthetic assistant turn carrying the invocations
// and a user turn carrying, at the same index, each invocation's result.
// Results must align 1:1 with invocations; misalignment mis-attributes
// results on the service side, so it is rejected here.
func (c *Client) ContinueWithToolResults(
	ctx context.Context,
	tr *transcript.Transcript,
	invocations []model.ToolCall,
	results []map[string]any,
	catalog []model.ToolDefinition,
	systemDirective string,
) (*Result, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, fmt.Errorf("completion: transcript is empty")
	}
	if len(invocations) == 0 {
		return nil, fmt.Errorf("completion: no invocations to continue from")
	}
	if len(results) != len(invocations) {
		return nil, fmt.Errorf("completion: %d results for %d invocations", len(results), len(invocations))
	}

	messages := c.baseMessages(tr, systemDirective)
	messages = append(messages, model.Message{
		Role:      model.RoleAssistant,
		ToolCalls: invocations,
	})
	responses := make([]model.ToolResponse, 0, len(invocations))
	for i, call := range invocations {
		responses = append(responses, model.ToolResponse{
			ID:     call.ID,
			Name:   call.Name,
			Result: results[i],
		})
	}
	messages = append(messages, model.Message{
		Role:          model.RoleTool,
		ToolResponses: responses,
	})
	return c.generate(ctx, &model.Request{Messages: messages, Tools: catalog})
}

func (c *Client) baseMessages(tr *transcript.Transcript, systemDirective string) []model.Message {
	messages := make([]model.Message, 0, tr.Len()+3)
	if systemDirective != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Text: systemDirective})
	}
	return append(messages, tr.Messages()...)
}

func (c *Client) generate(ctx context.Context, req *model.Request) (*Result, error) {
	retries := 0
	for {
		resp, err := c.llm.Generate(ctx, req)
		if err == nil {
			if resp == nil {
				return nil, fmt.Errorf("completion: empty model response")
			}
			return &Result{
				Text:        resp.Message.Text,
				Invocations: resp.Message.ToolCalls,
				StopReason:  resp.StopReason,
				Usage:       resp.Usage,
			}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if retries >= c.maxRetries {
			return nil, fmt.Errorf("completion: request failed after %d retries: %w", c.maxRetries, err)
		}
		timer := time.NewTimer(c.delayForAttempt(retries))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		retries++
	}
}

func (c *Client) delayForAttempt(retry int) time.Duration {
	delay := c.baseDelay
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}
