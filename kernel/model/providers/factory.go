package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/arcline/envclone/kernel/model"
)

// Factory builds model providers from alias configs.
type Factory struct {
	configs map[string]Config
}

// NewFactory returns a factory preloaded with the default alias set.
func NewFactory() *Factory {
	f := &Factory{configs: map[string]Config{}}
	for _, cfg := range defaultConfigs() {
		_ = f.Register(cfg)
	}
	return f
}

// Register adds or overwrites one alias config.
func (f *Factory) Register(cfg Config) error {
	if f == nil {
		return fmt.Errorf("providers: factory is nil")
	}
	alias := strings.ToLower(strings.TrimSpace(cfg.Alias))
	if alias == "" {
		return fmt.Errorf("providers: alias is required")
	}
	if cfg.API != APIAnthropic && cfg.API != APIOpenAICompatible {
		return fmt.Errorf("providers: unsupported api type %q", cfg.API)
	}
	cfg.Alias = alias
	f.configs[alias] = cfg
	return nil
}

// NewByAlias creates a model provider by alias.
func (f *Factory) NewByAlias(alias string) (model.LLM, error) {
	if f == nil {
		return nil, fmt.Errorf("providers: factory is nil")
	}
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return nil, fmt.Errorf("providers: model alias is required")
	}
	cfg, ok := f.configs[alias]
	if !ok {
		return nil, fmt.Errorf("providers: unknown model alias %q", alias)
	}
	token, err := resolveToken(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("providers: alias %q: %w", alias, err)
	}

	switch cfg.API {
	case APIAnthropic:
		return newAnthropic(cfg, token), nil
	case APIOpenAICompatible:
		return newOpenAICompat(cfg, token), nil
	default:
		return nil, fmt.Errorf("providers: unsupported api type %q", cfg.API)
	}
}

// ListModels returns available aliases from current factory.
func (f *Factory) ListModels() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.configs))
	for k := range f.configs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func resolveToken(cfg AuthConfig) (string, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" && cfg.TokenEnv != "" {
		token = strings.TrimSpace(os.Getenv(cfg.TokenEnv))
	}
	if token == "" {
		env := cfg.TokenEnv
		if env == "" {
			env = "credential"
		}
		return "", fmt.Errorf("providers: %s is not set", env)
	}
	return token, nil
}

func defaultConfigs() []Config {
	return []Config{
		{
			Alias:        "anthropic/claude-sonnet",
			Provider:     "anthropic",
			API:          APIAnthropic,
			Model:        "claude-sonnet-4-20250514",
			BaseURL:      "https://api.anthropic.com/v1",
			MaxOutputTok: 8192,
			Auth:         AuthConfig{TokenEnv: "ANTHROPIC_API_KEY"},
		},
		{
			Alias:        "openai/gpt-4o",
			Provider:     "openai",
			API:          APIOpenAICompatible,
			Model:        "gpt-4o",
			BaseURL:      "https://api.openai.com/v1",
			MaxOutputTok: 8192,
			Auth:         AuthConfig{TokenEnv: "OPENAI_API_KEY"},
		},
	}
}
