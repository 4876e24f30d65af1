package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/session"
)

// AttemptRecord is one graded submission.
type AttemptRecord struct {
	Seq                int64
	SessionID          string
	StudentID          string
	MicroskillID       string
	QuestionID         string
	AttemptID          string
	Correct            bool
	ResponseMs         int
	AttemptsOnQuestion int
	HintUsed           bool
	Difficulty         string
	ConceptTags        []string
	MisconceptionCode  string

	// Payload is the stored envelope, including the response returned to
	// the caller.
	Payload   json.RawMessage
	CreatedAt time.Time
}

// MisconceptionRecord is emitted for wrong answers with a detected code.
type MisconceptionRecord struct {
	Seq          int64
	SessionID    string
	StudentID    string
	MicroskillID string
	QuestionID   string
	Code         string
	Classifier   string
	Confidence   float64
	CreatedAt    time.Time
}

// Commit is everything one submission writes.
type Commit struct {
	Skill         *mastery.SkillState
	Session       *session.State
	Attempt       AttemptRecord
	Misconception *MisconceptionRecord
}

var attemptColumns = []string{
	"seq", "session_id", "student_id", "microskill_id", "question_id", "attempt_id",
	"is_correct", "response_ms", "attempts_on_question", "hint_used", "selected_difficulty",
	"concept_tags", "misconception_code", "correct_payload", "created_at",
}

// CommitAttempt writes skill state, session state, the attempt and any
// misconception event atomically. Skill and Session must carry the Version
// they were read at; a stale version aborts with *ConflictError and nothing
// is written. On success the versions and sequence numbers are updated in
// place.
func (s *Store) CommitAttempt(ctx context.Context, c *Commit) error {
	skill, sess := *c.Skill, *c.Session
	att := c.Attempt
	var mis *MisconceptionRecord
	if c.Misconception != nil {
		m := *c.Misconception
		mis = &m
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.saveSkill(ctx, tx, &skill); err != nil {
			return err
		}
		if err := s.saveSession(ctx, tx, &sess); err != nil {
			return err
		}

		seq, err := s.nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		att.Seq = seq
		if err := s.insertAttempt(ctx, tx, att); err != nil {
			return err
		}

		if mis != nil {
			if mis.Seq, err = s.nextSeq(ctx, tx); err != nil {
				return err
			}
			if err := s.insertMisconception(ctx, tx, *mis); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	*c.Skill, *c.Session = skill, sess
	c.Attempt = att
	if mis != nil {
		c.Misconception = mis
	}
	return nil
}

func (s *Store) insertAttempt(ctx context.Context, q querier, a AttemptRecord) error {
	tags := a.ConceptTags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode concept tags: %w", err)
	}
	ins := s.sql.Insert(tableAttempts).
		Columns(attemptColumns...).
		Values(a.Seq, a.SessionID, a.StudentID, a.MicroskillID, a.QuestionID, a.AttemptID,
			a.Correct, a.ResponseMs, a.AttemptsOnQuestion, a.HintUsed, a.Difficulty,
			tagsJSON, a.MisconceptionCode, []byte(a.Payload), a.CreatedAt.UTC())
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("save attempt event: %w", err)
	}
	return nil
}

func (s *Store) insertMisconception(ctx context.Context, q querier, m MisconceptionRecord) error {
	ins := s.sql.Insert(tableMisconceptions).
		Columns("seq", "session_id", "student_id", "microskill_id", "question_id", "code", "classifier", "confidence", "created_at").
		Values(m.Seq, m.SessionID, m.StudentID, m.MicroskillID, m.QuestionID, m.Code, m.Classifier, m.Confidence, m.CreatedAt.UTC())
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("save misconception event: %w", err)
	}
	return nil
}

func scanAttempt(sc interface{ Scan(...any) error }) (AttemptRecord, error) {
	var (
		a             AttemptRecord
		tags, payload []byte
	)
	err := sc.Scan(&a.Seq, &a.SessionID, &a.StudentID, &a.MicroskillID, &a.QuestionID, &a.AttemptID,
		&a.Correct, &a.ResponseMs, &a.AttemptsOnQuestion, &a.HintUsed, &a.Difficulty,
		&tags, &a.MisconceptionCode, &payload, &a.CreatedAt)
	if err != nil {
		return AttemptRecord{}, err
	}
	if a.ConceptTags, err = decodeIDs(tags); err != nil {
		return AttemptRecord{}, fmt.Errorf("concept_tags: %w", err)
	}
	a.Payload = payload
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// ReplayKey identifies a submission for idempotent replay.
type ReplayKey struct {
	SessionID    string
	StudentID    string
	MicroskillID string
	QuestionID   string
	AttemptID    string
}

// FindAttempt returns the latest attempt stored under key, or ErrNotFound.
func (s *Store) FindAttempt(ctx context.Context, key ReplayKey) (*AttemptRecord, error) {
	sel := s.sql.Select(attemptColumns...).
		From(s.sql.Table(tableAttempts)).
		Where(entsql.And(
			entsql.EQ("session_id", key.SessionID),
			entsql.EQ("question_id", key.QuestionID),
			entsql.EQ("attempt_id", key.AttemptID),
			entsql.EQ("student_id", key.StudentID),
			entsql.EQ("microskill_id", key.MicroskillID),
		)).
		OrderBy(entsql.Desc("seq")).
		Limit(1)
	a, err := scanAttempt(queryRow(ctx, s.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return &a, nil
}

// AttemptFilter selects attempts for one (student, microskill) pair.
type AttemptFilter struct {
	StudentID    string
	MicroskillID string
	From         *time.Time // created_at >= From
	To           *time.Time // created_at <= To
	Limit        int        // 0 = unlimited
}

func (f AttemptFilter) predicate() *entsql.Predicate {
	ps := []*entsql.Predicate{
		entsql.EQ("student_id", f.StudentID),
		entsql.EQ("microskill_id", f.MicroskillID),
	}
	if f.From != nil {
		ps = append(ps, entsql.GTE("created_at", f.From.UTC()))
	}
	if f.To != nil {
		ps = append(ps, entsql.LTE("created_at", f.To.UTC()))
	}
	return entsql.And(ps...)
}

// QueryAttempts returns matching attempts newest first.
func (s *Store) QueryAttempts(ctx context.Context, f AttemptFilter) ([]AttemptRecord, error) {
	sel := s.sql.Select(attemptColumns...).
		From(s.sql.Table(tableAttempts)).
		Where(f.predicate()).
		OrderBy(entsql.Desc("seq"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	rows, err := queryRows(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttemptBounds returns the first and last attempt times for a pair,
// ignoring any date filter. Both are nil when there are none.
func (s *Store) AttemptBounds(ctx context.Context, studentID, microskillID string) (first, last *time.Time, err error) {
	pred := AttemptFilter{StudentID: studentID, MicroskillID: microskillID}.predicate()
	edge := func(order string) (*time.Time, error) {
		sel := s.sql.Select("created_at").
			From(s.sql.Table(tableAttempts)).
			Where(pred).
			OrderBy(order).
			Limit(1)
		var t time.Time
		err := queryRow(ctx, s.db, sel).Scan(&t)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("attempt bounds: %w", err)
		}
		t = t.UTC()
		return &t, nil
	}
	if first, err = edge(entsql.Asc("seq")); err != nil {
		return nil, nil, err
	}
	if last, err = edge(entsql.Desc("seq")); err != nil {
		return nil, nil, err
	}
	return first, last, nil
}

// ListMisconceptions returns misconception events for a pair, newest first.
func (s *Store) ListMisconceptions(ctx context.Context, studentID, microskillID string, limit int) ([]MisconceptionRecord, error) {
	sel := s.sql.Select("seq", "session_id", "student_id", "microskill_id", "question_id", "code", "classifier", "confidence", "created_at").
		From(s.sql.Table(tableMisconceptions)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("microskill_id", microskillID))).
		OrderBy(entsql.Desc("seq"))
	if limit > 0 {
		sel.Limit(limit)
	}
	rows, err := queryRows(ctx, s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list misconceptions: %w", err)
	}
	defer rows.Close()

	var out []MisconceptionRecord
	for rows.Next() {
		var m MisconceptionRecord
		if err := rows.Scan(&m.Seq, &m.SessionID, &m.StudentID, &m.MicroskillID, &m.QuestionID, &m.Code, &m.Classifier, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan misconception: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
