// Package catalog loads the questions of a microskill from a backing store
// and imports authored documents into it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/store"
)

// Source returns a microskill's questions in authored order.
type Source interface {
	Questions(ctx context.Context, microskillID string) ([]*question.Question, error)
}

// Sink stores authored documents, replacing any with the same id.
type Sink interface {
	Put(ctx context.Context, docs []question.Document) error
}

// Static is an in-memory catalog keyed by microskill id.
type Static map[string][]*question.Question

func (s Static) Questions(_ context.Context, microskillID string) ([]*question.Question, error) {
	return s[microskillID], nil
}

// NewStatic indexes qs by microskill.
func NewStatic(qs ...*question.Question) Static {
	s := Static{}
	for _, q := range qs {
		s[q.MicroskillID] = append(s[q.MicroskillID], q)
	}
	return s
}

// QuestionStore is the part of *store.Store the catalog uses.
type QuestionStore interface {
	ListQuestions(ctx context.Context, microskillID string) ([]store.QuestionRecord, error)
	UpsertQuestions(ctx context.Context, recs []store.QuestionRecord) error
}

// StoreSource keeps the catalog in the SQL store.
type StoreSource struct {
	store QuestionStore
}

// NewStoreSource returns a catalog backed by st.
func NewStoreSource(st QuestionStore) *StoreSource {
	return &StoreSource{store: st}
}

func (s *StoreSource) Questions(ctx context.Context, microskillID string) ([]*question.Question, error) {
	recs, err := s.store.ListQuestions(ctx, microskillID)
	if err != nil {
		return nil, err
	}
	out := make([]*question.Question, 0, len(recs))
	for _, r := range recs {
		var doc question.Document
		if err := json.Unmarshal(r.Document, &doc); err != nil {
			return nil, fmt.Errorf("decode question %s: %w", r.ID, err)
		}
		q, err := question.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *StoreSource) Put(ctx context.Context, docs []question.Document) error {
	recs := make([]store.QuestionRecord, 0, len(docs))
	for _, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode question %s: %w", d.ID, err)
		}
		recs = append(recs, store.QuestionRecord{
			ID:           d.ID,
			MicroskillID: d.MicroskillID,
			Type:         string(d.Type),
			Difficulty:   string(question.ParseDifficulty(d.Difficulty)),
			SortOrder:    d.SortOrder,
			Document:     b,
		})
	}
	return s.store.UpsertQuestions(ctx, recs)
}

// Guarded trips a circuit breaker when the underlying source keeps
// failing, so callers fail fast with circuit.ErrOpen instead of waiting on
// an unavailable backend.
type Guarded struct {
	src     Source
	breaker *circuit.Breaker
}

// Guard wraps src with br.
func Guard(src Source, br *circuit.Breaker) *Guarded {
	return &Guarded{src: src, breaker: br}
}

func (g *Guarded) Questions(ctx context.Context, microskillID string) ([]*question.Question, error) {
	var out []*question.Question
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		qs, err := g.src.Questions(ctx, microskillID)
		out = qs
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", microskillID, err)
	}
	return out, nil
}

// Codes returns every misconception code the questions can remediate, in
// first-seen order.
func Codes(qs []*question.Question) []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		if c = strings.TrimSpace(c); c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, q := range qs {
		for _, c := range q.RemediationCodes() {
			add(c)
		}
		for _, o := range q.Options {
			add(o.MisconceptionCode)
		}
		for _, m := range []map[string]string{q.Config.MisconceptionByOption, q.Config.MisconceptionMap} {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				add(m[k])
			}
		}
	}
	return out
}
