package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/arcline/envclone/kernel/tool"
	toolmcp "github.com/arcline/envclone/kernel/tool/mcptoolset"
)

// mcpConfigFile mirrors the common mcpServers JSON layout so configs written
// for other agent tools work unchanged.
type mcpConfigFile struct {
	MCPServers map[string]mcpServerRecord `json:"mcpServers"`
}

type mcpServerRecord struct {
	Prefix      string            `json:"prefix,omitempty"`
	Transport   string            `json:"transport,omitempty"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	URL         string            `json:"url,omitempty"`
	CallTimeout int               `json:"call_timeout_seconds,omitempty"`
}

// loadMCPTools reads the config, connects each server, and returns the
// combined tool list plus a close function for all sessions. An empty path
// means no MCP tools.
func loadMCPTools(ctx context.Context, path string) ([]tool.Tool, func(), error) {
	noop := func() {}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, noop, nil
	}
	configs, err := parseMCPConfig(path)
	if err != nil {
		return nil, noop, err
	}

	var tools []tool.Tool
	var toolsets []*toolmcp.Toolset
	closeAll := func() {
		for _, ts := range toolsets {
			ts.Close()
		}
	}
	for _, cfg := range configs {
		ts, err := toolmcp.New(cfg)
		if err != nil {
			closeAll()
			return nil, noop, fmt.Errorf("mcp config: server %q: %w", cfg.Name, err)
		}
		serverTools, err := ts.Tools(ctx)
		if err != nil {
			closeAll()
			return nil, noop, fmt.Errorf("mcp config: server %q: %w", cfg.Name, err)
		}
		toolsets = append(toolsets, ts)
		tools = append(tools, serverTools...)
	}
	return tools, closeAll, nil
}

func parseMCPConfig(path string) ([]toolmcp.ServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("mcp config: %q does not exist", path)
		}
		return nil, fmt.Errorf("mcp config: read %q: %w", path, err)
	}
	var cfgFile mcpConfigFile
	if err := json.Unmarshal(raw, &cfgFile); err != nil {
		return nil, fmt.Errorf("mcp config: parse %q: %w", path, err)
	}
	if len(cfgFile.MCPServers) == 0 {
		return nil, fmt.Errorf("mcp config: %q declares no servers under \"mcpServers\"", path)
	}

	names := make([]string, 0, len(cfgFile.MCPServers))
	for name := range cfgFile.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]toolmcp.ServerConfig, 0, len(names))
	for _, name := range names {
		record := cfgFile.MCPServers[name]
		cfg := toolmcp.ServerConfig{
			Name:      name,
			Prefix:    record.Prefix,
			Transport: toolmcp.TransportType(strings.ToLower(strings.TrimSpace(record.Transport))),
			Command:   record.Command,
			Args:      record.Args,
			Env:       record.Env,
			URL:       record.URL,
		}
		if cfg.Transport == "" {
			if strings.TrimSpace(record.Command) != "" {
				cfg.Transport = toolmcp.TransportStdio
			} else {
				cfg.Transport = toolmcp.TransportStreamable
			}
		}
		if record.CallTimeout > 0 {
			cfg.CallTimeout = time.Duration(record.CallTimeout) * time.Second
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
