// Package apispec models the structured API specification produced by the
// specification agent and consumed by the generation agent.
package apispec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the full synthesized specification.
type Document struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	BaseURL     string     `json:"base_url,omitempty"`
	Auth        *Auth      `json:"auth,omitempty"`
	Endpoints   []Endpoint `json:"endpoints"`
	Database    Database   `json:"database"`
}

// Auth describes the authentication scheme observed on the target.
type Auth struct {
	Scheme string `json:"scheme"`
	Header string `json:"header,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Endpoint is one observed route.
type Endpoint struct {
	Method          string         `json:"method"`
	Path            string         `json:"path"`
	Description     string         `json:"description,omitempty"`
	AuthRequired    bool           `json:"auth_required,omitempty"`
	RequestExample  map[string]any `json:"request_example,omitempty"`
	ResponseExample map[string]any `json:"response_example,omitempty"`
	StatusCodes     []int          `json:"status_codes,omitempty"`
}

// Database describes the inferred relational schema.
type Database struct {
	Tables []Table `json:"tables"`
}

// Table is one inferred store table.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column is one table column.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	Nullable   bool   `json:"nullable,omitempty"`
	References string `json:"references,omitempty"`
}

// Parse extracts and decodes the specification JSON from completion text.
// The model often wraps the document in a markdown fence or surrounds it
// with prose; both are tolerated.
func Parse(text string) (*Document, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("apispec: no JSON object found in specification output")
	}
	var doc Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("apispec: decode specification: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the minimum shape the generation agent depends on.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("apispec: document is nil")
	}
	if len(d.Endpoints) == 0 {
		return fmt.Errorf("apispec: specification has no endpoints")
	}
	for i, ep := range d.Endpoints {
		if strings.TrimSpace(ep.Method) == "" || strings.TrimSpace(ep.Path) == "" {
			return fmt.Errorf("apispec: endpoint %d is missing method or path", i)
		}
	}
	for i, table := range d.Database.Tables {
		if strings.TrimSpace(table.Name) == "" {
			return fmt.Errorf("apispec: table %d is missing a name", i)
		}
	}
	return nil
}

// JSON renders the document as indented JSON.
func (d *Document) JSON() (string, error) {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("apispec: encode specification: %w", err)
	}
	return string(raw), nil
}

// extractJSON pulls the first JSON object out of free-form completion text,
// preferring a fenced block when present.
func extractJSON(text string) string {
	if fenced := extractFence(text); fenced != "" {
		return fenced
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func extractFence(text string) string {
	for _, marker := range []string{"```json", "```"} {
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		block := strings.TrimSpace(rest[:end])
		if strings.HasPrefix(block, "{") {
			return block
		}
	}
	return ""
}
