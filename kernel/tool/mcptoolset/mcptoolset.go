// Package mcptoolset exposes tools from an external MCP server as kernel
// tools. Cloned environments ship an MCP server next to the HTTP API, so
// exploration can use the target's own tools as additional probes.
package mcptoolset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arcline/envclone/kernel/model"
	"github.com/arcline/envclone/kernel/tool"
)

// TransportType is MCP transport type.
type TransportType string

const (
	TransportStdio      TransportType = "stdio"
	TransportStreamable TransportType = "streamable"
)

// ServerConfig configures one MCP server endpoint.
type ServerConfig struct {
	Name string `json:"name"`
	// Prefix namespaces exposed tool names; Name is used when empty.
	Prefix string `json:"prefix,omitempty"`

	Transport TransportType `json:"transport,omitempty"`

	// Stdio transport.
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// Streamable HTTP transport.
	URL string `json:"url,omitempty"`

	// CallTimeout bounds one tool call.
	CallTimeout time.Duration `json:"-"`
}

// Toolset maintains one MCP session and exposes its tools.
type Toolset struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession
}

// New validates config and builds a toolset. No connection is made until
// Tools is called.
func New(cfg ServerConfig) (*Toolset, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("mcptoolset: server name is required")
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	switch cfg.Transport {
	case TransportStdio:
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, fmt.Errorf("mcptoolset: server %q: command is required for stdio transport", name)
		}
	case TransportStreamable:
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("mcptoolset: server %q: url is required for streamable transport", name)
		}
	default:
		return nil, fmt.Errorf("mcptoolset: server %q: unsupported transport %q", name, cfg.Transport)
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = name
	}
	return &Toolset{
		cfg: cfg,
		client: mcp.NewClient(&mcp.Implementation{
			Name:    "envclone",
			Version: "0.1.0",
		}, nil),
	}, nil
}

// Close shuts the session down when one is open.
func (s *Toolset) Close() error {
	if s == nil || s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}

// Tools connects (once) and returns the server's tools as kernel tools, in
// stable name order.
func (s *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	if s == nil {
		return nil, nil
	}
	session, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	byName := map[string]tool.Tool{}
	for mt, iterErr := range session.Tools(ctx, nil) {
		if iterErr != nil {
			return nil, fmt.Errorf("mcptoolset: list tools from %s: %w", s.cfg.Name, iterErr)
		}
		if mt == nil || strings.TrimSpace(mt.Name) == "" {
			continue
		}
		original := strings.TrimSpace(mt.Name)
		exposed := sanitizeName(s.cfg.Prefix) + "__" + sanitizeName(original)
		if _, exists := byName[exposed]; exists {
			return nil, fmt.Errorf("mcptoolset: duplicate exposed tool name %q", exposed)
		}
		byName[exposed] = &mcpTool{
			name:         exposed,
			originalName: original,
			serverName:   s.cfg.Name,
			description:  describeTool(mt.Description, s.cfg.Name, original),
			parameters:   normalizeSchema(mt.InputSchema),
			callTimeout:  s.cfg.CallTimeout,
			connect:      s.connect,
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]tool.Tool, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out, nil
}

func (s *Toolset) connect(ctx context.Context) (*mcp.ClientSession, error) {
	if s.session != nil {
		return s.session, nil
	}
	transport, err := buildTransport(s.cfg)
	if err != nil {
		return nil, err
	}
	session, err := s.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptoolset: connect %s: %w", s.cfg.Name, err)
	}
	s.session = session
	return session, nil
}

func buildTransport(cfg ServerConfig) (mcp.Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		cmd := exec.Command(strings.TrimSpace(cfg.Command), cfg.Args...)
		if len(cfg.Env) > 0 {
			env := os.Environ()
			for k, v := range cfg.Env {
				if strings.TrimSpace(k) == "" {
					continue
				}
				env = append(env, strings.TrimSpace(k)+"="+v)
			}
			cmd.Env = env
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case TransportStreamable:
		return &mcp.StreamableClientTransport{Endpoint: strings.TrimSpace(cfg.URL)}, nil
	default:
		return nil, fmt.Errorf("mcptoolset: unsupported transport %q", cfg.Transport)
	}
}

type mcpTool struct {
	name         string
	originalName string
	serverName   string
	description  string
	parameters   map[string]any
	callTimeout  time.Duration
	connect      func(context.Context) (*mcp.ClientSession, error)
}

func (t *mcpTool) Name() string        { return t.name }
func (t *mcpTool) Description() string { return t.description }

func (t *mcpTool) Declaration() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

func (t *mcpTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	session, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	callCtx := ctx
	cancel := func() {}
	if t.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t.callTimeout)
	}
	defer cancel()

	res, err := session.CallTool(callCtx, &mcp.CallToolParams{
		Name:      t.originalName,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("mcptoolset: call %s/%s: %w", t.serverName, t.originalName, err)
	}
	if res == nil {
		return map[string]any{"ok": true}, nil
	}

	text := extractText(res.Content)
	if res.IsError {
		if strings.TrimSpace(text) == "" {
			text = "mcp tool returned isError=true"
		}
		return nil, fmt.Errorf("mcptoolset: %s/%s: %s", t.serverName, t.originalName, text)
	}

	out := map[string]any{}
	if res.StructuredContent != nil {
		if m, ok := res.StructuredContent.(map[string]any); ok {
			for k, v := range m {
				out[k] = v
			}
		} else {
			out["structured_output"] = res.StructuredContent
		}
	}
	if strings.TrimSpace(text) != "" {
		out["text"] = text
	}
	if len(out) == 0 {
		out["ok"] = true
	}
	return out, nil
}

func extractText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, one := range content {
		if tc, ok := one.(*mcp.TextContent); ok && strings.TrimSpace(tc.Text) != "" {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func describeTool(desc, serverName, originalName string) string {
	desc = strings.TrimSpace(desc)
	prefix := fmt.Sprintf("[MCP:%s/%s]", serverName, originalName)
	if desc == "" {
		return prefix
	}
	return prefix + " " + desc
}

func normalizeSchema(schema any) map[string]any {
	if m, ok := schema.(map[string]any); ok && len(m) > 0 {
		return m
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || len(out) == 0 {
		return map[string]any{"type": "object"}
	}
	return out
}

func sanitizeName(input string) string {
	input = strings.TrimSpace(strings.ToLower(input))
	var b strings.Builder
	prevUnderscore := false
	for _, r := range input {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if ok {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "tool"
	}
	return out
}
