package llm

import (
	"context"

	"github.com/abhisek/adaptly/internal/circuit"
)

// BreakerProvider stops calling an unhealthy provider. Only rate limits
// and outages trip it; a malformed answer from a healthy model does not.
type BreakerProvider struct {
	inner   Provider
	breaker *circuit.Breaker
}

// WithBreaker wraps p. The breaker must have been built with
// BreakerFailure as its failure predicate, see NewBreaker.
func WithBreaker(p Provider, b *circuit.Breaker) *BreakerProvider {
	return &BreakerProvider{inner: p, breaker: b}
}

// NewBreaker builds a breaker that counts provider outages only.
func NewBreaker(cfg circuit.Config, clock circuit.Clock) *circuit.Breaker {
	cfg.IsFailure = BreakerFailure
	return circuit.New("llm", cfg, clock)
}

// BreakerFailure reports whether err should count against the breaker.
func BreakerFailure(err error) bool { return err != nil && isOutage(err) }

func (b *BreakerProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = b.inner.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *BreakerProvider) ModelID() string { return b.inner.ModelID() }
