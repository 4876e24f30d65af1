package llm

import (
	"fmt"
	"time"

	"github.com/abhisek/adaptly/internal/circuit"
)

// Provider names accepted by Config.Provider.
const (
	ProviderNone      = ""
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Credentials select and authenticate one provider.
type Credentials struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint (OpenAI-compatible gateways,
	// test servers). Ignored by Gemini.
	BaseURL string
}

// Config is the refiner's model configuration. The zero Provider
// disables refinement.
type Config struct {
	Provider string

	Anthropic Credentials
	OpenAI    Credentials
	Gemini    Credentials

	Retry   RetryConfig
	Breaker circuit.Config

	// Timeout bounds one refinement, retries included.
	Timeout time.Duration
}

// DefaultConfig returns a disabled Config with provider defaults filled.
func DefaultConfig() Config {
	return Config{
		Anthropic: Credentials{Model: "claude-haiku"},
		OpenAI:    Credentials{Model: "gpt-4o-mini"},
		Gemini:    Credentials{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 200 * time.Millisecond,
			MaxWait:     2 * time.Second,
			Multiplier:  2,
		},
		Breaker: circuit.Config{Threshold: 3, Cooldown: time.Minute},
		Timeout: 4 * time.Second,
	}
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool { return c.Provider != ProviderNone }

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	var creds Credentials
	switch c.Provider {
	case ProviderNone, ProviderMock:
		return nil
	case ProviderAnthropic:
		creds = c.Anthropic
	case ProviderOpenAI:
		creds = c.OpenAI
	case ProviderGemini:
		creds = c.Gemini
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if creds.APIKey == "" {
		return fmt.Errorf("an API key is required for the %s provider", c.Provider)
	}
	return nil
}

// ModelAliases lists the friendly model names each provider resolves.
func ModelAliases() map[string]map[string]string {
	return map[string]map[string]string{
		ProviderAnthropic: anthropicModels,
		ProviderOpenAI:    openaiModels,
		ProviderGemini:    geminiModels,
	}
}

// resolveModel maps a friendly name to a model ID; unknown names pass
// through unchanged.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
