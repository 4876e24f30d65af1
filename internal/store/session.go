package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/session"
)

var sessionColumns = []string{
	"id", "student_id", "microskill_id", "phase", "target_streak", "streak", "miss_streak",
	"asked", "correct", "active_difficulty", "last_question_id", "recent_question_ids",
	"remediation_recent_ids", "remediation_remaining", "active_misconception",
	"completed_at", "created_at", "updated_at", "version",
}

func scanSession(sc interface{ Scan(...any) error }) (session.State, error) {
	var (
		st                  session.State
		phase, difficulty   string
		recent, remediation []byte
		completed           sql.NullTime
	)
	err := sc.Scan(&st.ID, &st.StudentID, &st.MicroskillID, &phase, &st.TargetStreak, &st.Streak, &st.MissStreak,
		&st.Asked, &st.Correct, &difficulty, &st.LastQuestionID, &recent,
		&remediation, &st.RemediationRemaining, &st.ActiveMisconception,
		&completed, &st.CreatedAt, &st.UpdatedAt, &st.Version)
	if err != nil {
		return session.State{}, err
	}
	st.Phase = session.Phase(phase)
	st.ActiveDifficulty = question.ParseDifficulty(difficulty)
	st.CompletedAt = nullTime(completed)
	if st.RecentQuestionIDs, err = decodeIDs(recent); err != nil {
		return session.State{}, fmt.Errorf("recent_question_ids: %w", err)
	}
	if st.RemediationRecentIDs, err = decodeIDs(remediation); err != nil {
		return session.State{}, fmt.Errorf("remediation_recent_ids: %w", err)
	}
	return st, nil
}

// GetSession returns ErrNotFound for an unknown id.
func (s *Store) GetSession(ctx context.Context, id string) (*session.State, error) {
	sel := s.sql.Select(sessionColumns...).
		From(s.sql.Table(tableSessionStates)).
		Where(entsql.EQ("id", id))
	st, err := scanSession(queryRow(ctx, s.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &st, nil
}

// CreateSession stores a new session. It returns a *ConflictError when the
// id is taken.
func (s *Store) CreateSession(ctx context.Context, st *session.State) error {
	if st.Version != 0 {
		return fmt.Errorf("create session %s: already stored at version %d", st.ID, st.Version)
	}
	return s.saveSession(ctx, s.db, st)
}

// saveSession writes st if its Version still matches the stored row and
// bumps st.Version.
func (s *Store) saveSession(ctx context.Context, q querier, st *session.State) error {
	recent, err := encodeIDs(st.RecentQuestionIDs)
	if err != nil {
		return err
	}
	remediation, err := encodeIDs(st.RemediationRecentIDs)
	if err != nil {
		return err
	}

	next := st.Version + 1
	var res sql.Result
	if st.Version == 0 {
		ins := s.sql.Insert(tableSessionStates).
			Columns(sessionColumns...).
			Values(st.ID, st.StudentID, st.MicroskillID, string(st.Phase), st.TargetStreak, st.Streak, st.MissStreak,
				st.Asked, st.Correct, string(st.ActiveDifficulty), st.LastQuestionID, recent,
				remediation, st.RemediationRemaining, st.ActiveMisconception,
				timeArg(st.CompletedAt), st.CreatedAt.UTC(), st.UpdatedAt.UTC(), next).
			OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
		res, err = exec(ctx, q, ins)
	} else {
		upd := s.sql.Update(tableSessionStates).
			Set("phase", string(st.Phase)).
			Set("target_streak", st.TargetStreak).
			Set("streak", st.Streak).
			Set("miss_streak", st.MissStreak).
			Set("asked", st.Asked).
			Set("correct", st.Correct).
			Set("active_difficulty", string(st.ActiveDifficulty)).
			Set("last_question_id", st.LastQuestionID).
			Set("recent_question_ids", recent).
			Set("remediation_recent_ids", remediation).
			Set("remediation_remaining", st.RemediationRemaining).
			Set("active_misconception", st.ActiveMisconception).
			Set("completed_at", timeArg(st.CompletedAt)).
			Set("updated_at", st.UpdatedAt.UTC()).
			Set("version", next).
			Where(entsql.And(entsql.EQ("id", st.ID), entsql.EQ("version", st.Version)))
		res, err = exec(ctx, q, upd)
	}
	if err != nil {
		return fmt.Errorf("save session %s: %w", st.ID, err)
	}
	if err := expectOne(res, tableSessionStates, st.ID, st.Version); err != nil {
		return err
	}
	st.Version = next
	return nil
}

func encodeIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode ids: %w", err)
	}
	return b, nil
}

func decodeIDs(b []byte) ([]string, error) {
	out := []string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
