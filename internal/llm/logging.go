package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/adaptly/internal/store"
)

// Recorder persists one row per model request.
type Recorder interface {
	AppendLLMRequest(ctx context.Context, ev store.LLMRequestEvent) error
}

// LoggingProvider records every request and logs failures.
type LoggingProvider struct {
	inner    Provider
	provider string
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// WithLogging wraps p. A nil recorder only logs.
func WithLogging(p Provider, provider string, rec Recorder, logger *slog.Logger) *LoggingProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, provider: provider, recorder: rec, logger: logger, now: time.Now}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := l.now()
	resp, err := l.inner.Generate(ctx, req)
	latency := l.now().Sub(start)

	ev := store.LLMRequestEvent{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		SessionID:   SessionFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: describeRequest(req),
		CreatedAt:   start.UTC(),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		l.logger.WarnContext(ctx, "llm request failed",
			"provider", l.provider, "model", ev.Model, "purpose", ev.Purpose,
			"latency_ms", ev.LatencyMs, "error", err)
	} else {
		l.logger.DebugContext(ctx, "llm request",
			"provider", l.provider, "model", ev.Model, "purpose", ev.Purpose,
			"latency_ms", ev.LatencyMs, "output_tokens", ev.OutputTokens)
	}

	if l.recorder != nil {
		if rerr := l.recorder.AppendLLMRequest(ctx, ev); rerr != nil {
			l.logger.WarnContext(ctx, "record llm request", "error", rerr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func describeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
