package mcptoolset

import (
	"strings"
	"testing"
)

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		cfg     ServerConfig
		wantErr string
	}{
		{"missing name", ServerConfig{Command: "x"}, "name is required"},
		{"stdio without command", ServerConfig{Name: "a", Transport: TransportStdio}, "command is required"},
		{"streamable without url", ServerConfig{Name: "a", Transport: TransportStreamable}, "url is required"},
		{"bad transport", ServerConfig{Name: "a", Transport: TransportType("tcp")}, "unsupported transport"},
		{"default transport is stdio", ServerConfig{Name: "a"}, "command is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}

	ts, err := New(ServerConfig{Name: "realworld", Command: "python"})
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if ts.cfg.Prefix != "realworld" {
		t.Fatalf("prefix must default to name, got %q", ts.cfg.Prefix)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Get Articles":  "get_articles",
		"realworld-mcp": "realworld_mcp",
		"  ":            "tool",
		"a__b":          "a__b",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeSchema(t *testing.T) {
	out := normalizeSchema(map[string]any{"type": "object", "properties": map[string]any{}})
	if out["type"] != "object" {
		t.Fatalf("map schema must pass through: %v", out)
	}
	out = normalizeSchema(nil)
	if out["type"] != "object" {
		t.Fatalf("nil schema must default to object: %v", out)
	}
}
