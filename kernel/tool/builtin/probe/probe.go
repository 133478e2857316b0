// Package probe provides the HTTP exploration tool. Responses are returned
// as data for the model to interpret: a non-2xx status is never an error.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/tool"
)

// ToolName is the default probe tool name.
const ToolName = "make_http_request"

const maxBodyBytes = 1 << 20

// Args is the probe input shape.
type Args struct {
	Method  string            `json:"method" desc:"HTTP method, e.g. GET or POST"`
	Path    string            `json:"path" desc:"request path relative to the target base URL"`
	Params  map[string]string `json:"params,omitempty" desc:"query parameters"`
	Headers map[string]string `json:"headers,omitempty" desc:"additional request headers"`
	Body    any               `json:"body,omitempty" desc:"JSON request body"`
}

// Result is the probe output shape.
type Result struct {
	Success bool              `json:"success"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// New builds a probe tool bound to the environment's target URL under the
// default name.
func New(env *execenv.Environment) (tool.Tool, error) {
	return NewNamed(ToolName, "Issue an HTTP request against the target API and return status and body.", env)
}

// NewNamed builds a probe tool with an explicit name, used when two probes
// against different base URLs share one catalog (differential validation).
func NewNamed(name, description string, env *execenv.Environment) (tool.Tool, error) {
	if env == nil {
		return nil, fmt.Errorf("probe: environment is nil")
	}
	if env.TargetURL() == "" {
		return nil, fmt.Errorf("probe: environment has no target url")
	}
	return tool.NewFunction(name, description, func(ctx context.Context, args Args) (Result, error) {
		return run(ctx, env, args)
	})
}

func run(ctx context.Context, env *execenv.Environment, args Args) (Result, error) {
	method := strings.ToUpper(strings.TrimSpace(args.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := args.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if args.Body != nil {
		raw, err := json.Marshal(args.Body)
		if err != nil {
			return Result{}, fmt.Errorf("probe: encode body: %w", err)
		}
		body = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, method, env.TargetURL()+path, body)
	if err != nil {
		return Result{}, fmt.Errorf("probe: build request: %w", err)
	}
	if len(args.Params) > 0 {
		q := url.Values{}
		for k, v := range args.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	if args.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := env.HTTPClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("probe: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("probe: read body: %w", err)
	}

	out := Result{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		Headers: map[string]string{},
	}
	for _, key := range []string{"Content-Type", "Location", "Www-Authenticate"} {
		if v := resp.Header.Get(key); v != "" {
			out.Headers[key] = v
		}
	}
	out.Body = decodeBody(resp.Header.Get("Content-Type"), raw)
	return out, nil
}

func decodeBody(contentType string, raw []byte) any {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}
	if strings.Contains(contentType, "json") {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}
	return text
}
