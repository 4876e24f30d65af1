package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/adaptly/internal/circuit"
)

// NewProvider builds the configured provider wrapped as
// caller → breaker → retry → logging → SDK adapter, so every attempt is
// recorded and the breaker sees a whole retried call as one outcome.
// It returns nil, nil when cfg is disabled.
func NewProvider(ctx context.Context, cfg Config, rec Recorder, logger *slog.Logger, clock circuit.Clock) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderMock:
		base = NewMockProvider()
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, rec, logger)
	retried := WithRetry(logged, cfg.Retry)
	return WithBreaker(retried, NewBreaker(cfg.Breaker, clock)), nil
}
