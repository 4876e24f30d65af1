package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// LLMRequestEvent captures a single LLM API call.
type LLMRequestEvent struct {
	Provider     string
	Model        string
	Purpose      string
	SessionID    string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
	CreatedAt    time.Time
}

// AppendLLMRequest records an LLM API call event.
func (s *Store) AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		ins := s.sql.Insert(tableLLMRequests).
			Columns("seq", "provider", "model", "purpose", "session_id", "input_tokens", "output_tokens",
				"latency_ms", "success", "error_message", "request_body", "response_body", "created_at").
			Values(seq, ev.Provider, ev.Model, ev.Purpose, ev.SessionID, ev.InputTokens, ev.OutputTokens,
				ev.LatencyMs, ev.Success, ev.ErrorMessage, ev.RequestBody, ev.ResponseBody, ev.CreatedAt.UTC())
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("save LLM request event: %w", err)
		}
		return nil
	})
}

// LLMUsage aggregates LLM calls per provider and model.
type LLMUsage struct {
	Provider     string
	Model        string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
}

// LLMUsageSince summarizes LLM calls made at or after since.
func (s *Store) LLMUsageSince(ctx context.Context, since time.Time) ([]LLMUsage, error) {
	rows, err := queryRows(ctx, s.db, s.sql.Select("provider", "model", "success", "input_tokens", "output_tokens").
		From(s.sql.Table(tableLLMRequests)).
		Where(entsql.GTE("created_at", since.UTC())).
		OrderBy("seq"))
	if err != nil {
		return nil, fmt.Errorf("llm usage: %w", err)
	}
	defer rows.Close()

	var (
		out   []LLMUsage
		index = map[[2]string]int{}
	)
	for rows.Next() {
		var (
			provider, model string
			ok              bool
			in, outTok      int
		)
		if err := rows.Scan(&provider, &model, &ok, &in, &outTok); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		key := [2]string{provider, model}
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, LLMUsage{Provider: provider, Model: model})
		}
		out[i].Requests++
		if !ok {
			out[i].Failures++
		}
		out[i].InputTokens += in
		out[i].OutputTokens += outTok
	}
	return out, rows.Err()
}
