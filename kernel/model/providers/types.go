package providers

import "time"

// APIType defines protocol dialect used by a model provider.
type APIType string

const (
	APIAnthropic        APIType = "anthropic"
	APIOpenAICompatible APIType = "openai_compatible"
)

// AuthConfig is provider-agnostic auth configuration.
type AuthConfig struct {
	Token    string
	TokenEnv string
}

// Config is a provider-agnostic model alias definition. Sampling parameters
// are fixed per alias, never computed per request.
type Config struct {
	Alias        string
	Provider     string
	API          APIType
	Model        string
	BaseURL      string
	Timeout      time.Duration
	MaxOutputTok int
	Temperature  float64
	Auth         AuthConfig
}
