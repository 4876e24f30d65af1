package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

func serve(t *testing.T, status int, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func anthropicAt(url string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(url), option.WithMaxRetries(0))
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func TestAnthropicProvider_StructuredReply(t *testing.T) {
	url := serve(t, http.StatusOK, map[string]any{
		"id":   "msg_test",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": `{"misconception_code":"off_by_one","confidence":0.8}`},
		},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	})

	resp, err := anthropicAt(url).Generate(context.Background(), Request{
		System:    "Pick a code.",
		Messages:  UserMessage("Student answered 13."),
		Schema:    refinementSchema(),
		MaxTokens: 128,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 80 {
		t.Errorf("total tokens = %d, want 80", resp.Usage.TotalTokens)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	errBody := map[string]any{"type": "error", "error": map[string]any{"type": "x", "message": "nope"}}

	_, err := anthropicAt(serve(t, http.StatusTooManyRequests, errBody)).Generate(context.Background(), Request{MaxTokens: 10, Messages: UserMessage("hi")})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Errorf("429: expected ErrRateLimit, got %T %v", err, err)
	}

	_, err = anthropicAt(serve(t, http.StatusInternalServerError, errBody)).Generate(context.Background(), Request{MaxTokens: 10, Messages: UserMessage("hi")})
	var un *ErrProviderUnavailable
	if !errors.As(err, &un) {
		t.Errorf("500: expected ErrProviderUnavailable, got %T %v", err, err)
	}
}

func TestOpenAIProvider_BaseURLAndTruncation(t *testing.T) {
	url := serve(t, http.StatusOK, map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": `{"misconception_code":`},
			"finish_reason": "length",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})

	p, err := NewOpenAIProvider(Credentials{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Generate(context.Background(), Request{Messages: UserMessage("hi"), Schema: refinementSchema(), MaxTokens: 5})
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T %v", err, err)
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		aliases map[string]string
		in      string
		want    string
	}{
		{anthropicModels, "claude-haiku", "claude-haiku-4-5-20251001"},
		{openaiModels, "gpt-4o", "gpt-4o"},
		{geminiModels, "gemini-flash", "gemini-2.0-flash"},
		{geminiModels, "gemini-2.5-pro", "gemini-2.5-pro"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.in, tt.aliases); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGeminiSchema_NullableAndNested(t *testing.T) {
	s := geminiSchema(refinementSchema().Definition)
	if s.Type != genai.TypeObject {
		t.Fatalf("type = %s", s.Type)
	}
	code := s.Properties["misconception_code"]
	if code.Type != genai.TypeString || code.Nullable == nil || !*code.Nullable {
		t.Errorf("misconception_code = %+v", code)
	}
	if s.Properties["confidence"].Type != genai.TypeNumber {
		t.Errorf("confidence type = %s", s.Properties["confidence"].Type)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"disabled", func(c *Config) {}, false},
		{"mock", func(c *Config) { c.Provider = ProviderMock }, false},
		{"anthropic without key", func(c *Config) { c.Provider = ProviderAnthropic }, true},
		{"gemini with key", func(c *Config) { c.Provider = ProviderGemini; c.Gemini.APIKey = "k" }, false},
		{"unknown", func(c *Config) { c.Provider = "openrouter" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider_DisabledIsNil(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig(), nil, discardLogger(), nil)
	if err != nil || p != nil {
		t.Fatalf("NewProvider(disabled) = %v, %v", p, err)
	}
}

func TestNewProvider_MockChain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	p, err := NewProvider(context.Background(), cfg, &memRecorder{}, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*BreakerProvider); !ok {
		t.Errorf("outermost decorator = %T, want *BreakerProvider", p)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}
