package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// QuestionRecord is a stored catalog document.
type QuestionRecord struct {
	ID           string
	MicroskillID string
	Type         string
	Difficulty   string
	SortOrder    int
	Document     json.RawMessage
	UpdatedAt    time.Time
}

// MicroskillSummary counts questions per microskill.
type MicroskillSummary struct {
	MicroskillID string
	Questions    int
}

var questionColumns = []string{"id", "microskill_id", "type", "difficulty", "sort_order", "document", "updated_at"}

// UpsertQuestions inserts or replaces questions by id.
func (s *Store) UpsertQuestions(ctx context.Context, recs []QuestionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	now := s.now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range recs {
			ins := s.sql.Insert(tableQuestions).
				Columns(questionColumns...).
				Values(r.ID, r.MicroskillID, r.Type, r.Difficulty, r.SortOrder, []byte(r.Document), now).
				OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues())
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("upsert question %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// ListQuestions returns a microskill's questions in authored order.
func (s *Store) ListQuestions(ctx context.Context, microskillID string) ([]QuestionRecord, error) {
	sel := s.sql.Select(questionColumns...).
		From(s.sql.Table(tableQuestions)).
		Where(entsql.EQ("microskill_id", microskillID)).
		OrderBy("sort_order", "id")
	rows, err := queryRows(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionRecord
	for rows.Next() {
		var (
			r   QuestionRecord
			doc []byte
		)
		if err := rows.Scan(&r.ID, &r.MicroskillID, &r.Type, &r.Difficulty, &r.SortOrder, &doc, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		r.Document = doc
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMicroskills returns every microskill that has questions.
func (s *Store) ListMicroskills(ctx context.Context) ([]MicroskillSummary, error) {
	sel := s.sql.Select("microskill_id", entsql.Count("*")).
		From(s.sql.Table(tableQuestions)).
		GroupBy("microskill_id").
		OrderBy("microskill_id")
	rows, err := queryRows(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list microskills: %w", err)
	}
	defer rows.Close()

	var out []MicroskillSummary
	for rows.Next() {
		var m MicroskillSummary
		if err := rows.Scan(&m.MicroskillID, &m.Questions); err != nil {
			return nil, fmt.Errorf("scan microskill: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
