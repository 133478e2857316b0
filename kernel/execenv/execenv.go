// Package execenv holds the shared execution context for one agent run: the
// target API base URL, the output root for generated files, and an optional
// relational store handle. Tools receive it explicitly at construction; there
// is no implicit global.
package execenv

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arcline/envclone/kernel/store"
)

// Environment is the per-run execution context. The struct itself is
// immutable after construction; the store and filesystem it points at are
// shared by reference and their mutations are externally visible.
type Environment struct {
	targetURL  string
	outputRoot string
	db         *store.Store
	httpClient *http.Client
}

// Config configures one environment.
type Config struct {
	TargetURL  string
	OutputRoot string
	Store      *store.Store
	HTTPClient *http.Client
}

// New validates config and builds an environment.
func New(cfg Config) (*Environment, error) {
	target := strings.TrimRight(strings.TrimSpace(cfg.TargetURL), "/")
	if target != "" {
		parsed, err := url.Parse(target)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("execenv: invalid target url %q", cfg.TargetURL)
		}
	}
	root := strings.TrimSpace(cfg.OutputRoot)
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("execenv: resolve output root: %w", err)
		}
		root = abs
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Environment{
		targetURL:  target,
		outputRoot: root,
		db:         cfg.Store,
		httpClient: client,
	}, nil
}

// TargetURL returns the probe base URL, without trailing slash.
func (e *Environment) TargetURL() string {
	return e.targetURL
}

// OutputRoot returns the absolute root for generated files.
func (e *Environment) OutputRoot() string {
	return e.outputRoot
}

// Store returns the attached store handle, nil when none is attached.
func (e *Environment) Store() *store.Store {
	return e.db
}

// HTTPClient returns the shared probe client.
func (e *Environment) HTTPClient() *http.Client {
	return e.httpClient
}

// ResolvePath resolves a caller-supplied relative path against the output
// root and rejects escapes above it.
func (e *Environment) ResolvePath(rel string) (string, error) {
	if e.outputRoot == "" {
		return "", fmt.Errorf("execenv: output root is not configured")
	}
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("execenv: empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("execenv: path must be relative to output root")
	}
	target := filepath.Clean(filepath.Join(e.outputRoot, rel))
	if target != e.outputRoot && !strings.HasPrefix(target, e.outputRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("execenv: path %q escapes output root", rel)
	}
	return target, nil
}
