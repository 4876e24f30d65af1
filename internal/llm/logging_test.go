package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/adaptly/internal/store"
)

type memRecorder struct {
	mu     sync.Mutex
	events []store.LLMRequestEvent
	err    error
}

func (r *memRecorder) AppendLLMRequest(_ context.Context, ev store.LLMRequestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLogging_RecordsSuccess(t *testing.T) {
	rec := &memRecorder{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"misconception_code":null,"confidence":0.1}`),
		Usage:   newUsage(12, 8),
	})
	p := WithLogging(mock, ProviderMock, rec, discardLogger())

	ctx := WithSession(WithPurpose(context.Background(), "misconception_refine"), "sess-1")
	_, err := p.Generate(ctx, Request{
		System:   "Pick a code.",
		Messages: UserMessage("Student answered 13."),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Purpose != "misconception_refine" || ev.SessionID != "sess-1" {
		t.Errorf("purpose/session = %q/%q", ev.Purpose, ev.SessionID)
	}
	if !ev.Success || ev.InputTokens != 12 || ev.OutputTokens != 8 {
		t.Errorf("event = %+v", ev)
	}
	if !strings.Contains(ev.RequestBody, "[system]\nPick a code.") || !strings.Contains(ev.RequestBody, "[user]\nStudent answered 13.") {
		t.Errorf("request body = %q", ev.RequestBody)
	}
}

func TestLogging_RecordsFailureAndSurvivesRecorderError(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	p := WithLogging(mock, ProviderMock, rec, discardLogger())

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected provider error to pass through, got %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Success || rec.events[0].ErrorMessage == "" {
		t.Errorf("events = %+v", rec.events)
	}
	if rec.events[0].Purpose != "unspecified" {
		t.Errorf("purpose = %q", rec.events[0].Purpose)
	}
}
