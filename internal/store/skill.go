package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/question"
)

var skillColumns = []string{
	"student_id", "microskill_id", "mastery", "confidence", "streak", "band",
	"attempts_total", "correct_total", "avg_latency_ms", "status",
	"last_attempt_at", "next_review_at", "updated_at", "version",
}

func skillKey(studentID, microskillID string) string { return studentID + "/" + microskillID }

func scanSkill(sc interface{ Scan(...any) error }) (mastery.SkillState, error) {
	var (
		st           mastery.SkillState
		band, status string
		last, review sql.NullTime
	)
	err := sc.Scan(&st.StudentID, &st.MicroskillID, &st.Mastery, &st.Confidence, &st.Streak, &band,
		&st.AttemptsTotal, &st.CorrectTotal, &st.AvgLatencyMs, &status,
		&last, &review, &st.UpdatedAt, &st.Version)
	if err != nil {
		return mastery.SkillState{}, err
	}
	st.Band = question.ParseDifficulty(band)
	st.Status = mastery.Status(status)
	st.LastAttemptAt = nullTime(last)
	st.NextReviewAt = nullTime(review)
	return st, nil
}

// GetSkillState returns ErrNotFound when the pair has never practised.
func (s *Store) GetSkillState(ctx context.Context, studentID, microskillID string) (*mastery.SkillState, error) {
	return s.getSkill(ctx, s.db, studentID, microskillID)
}

func (s *Store) getSkill(ctx context.Context, q querier, studentID, microskillID string) (*mastery.SkillState, error) {
	sel := s.sql.Select(skillColumns...).
		From(s.sql.Table(tableSkillStates)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("microskill_id", microskillID)))
	st, err := scanSkill(queryRow(ctx, q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get skill state %s: %w", skillKey(studentID, microskillID), err)
	}
	return &st, nil
}

// EnsureSkillState stores st unless the pair already has a row, and
// returns the stored row either way.
func (s *Store) EnsureSkillState(ctx context.Context, st mastery.SkillState) (*mastery.SkillState, error) {
	var out *mastery.SkillState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.getSkill(ctx, tx, st.StudentID, st.MicroskillID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		st.Version = 0
		if err := s.saveSkill(ctx, tx, &st); err != nil {
			return err
		}
		out = &st
		return nil
	})
	return out, err
}

// saveSkill writes st if its Version still matches the stored row (zero
// meaning absent) and bumps st.Version.
func (s *Store) saveSkill(ctx context.Context, q querier, st *mastery.SkillState) error {
	next := st.Version + 1
	var (
		res sql.Result
		err error
	)
	if st.Version == 0 {
		ins := s.sql.Insert(tableSkillStates).
			Columns(skillColumns...).
			Values(st.StudentID, st.MicroskillID, st.Mastery, st.Confidence, st.Streak, string(st.Band),
				st.AttemptsTotal, st.CorrectTotal, st.AvgLatencyMs, string(st.Status),
				timeArg(st.LastAttemptAt), timeArg(st.NextReviewAt), st.UpdatedAt.UTC(), next).
			OnConflict(entsql.ConflictColumns("student_id", "microskill_id"), entsql.DoNothing())
		res, err = exec(ctx, q, ins)
	} else {
		upd := s.sql.Update(tableSkillStates).
			Set("mastery", st.Mastery).
			Set("confidence", st.Confidence).
			Set("streak", st.Streak).
			Set("band", string(st.Band)).
			Set("attempts_total", st.AttemptsTotal).
			Set("correct_total", st.CorrectTotal).
			Set("avg_latency_ms", st.AvgLatencyMs).
			Set("status", string(st.Status)).
			Set("last_attempt_at", timeArg(st.LastAttemptAt)).
			Set("next_review_at", timeArg(st.NextReviewAt)).
			Set("updated_at", st.UpdatedAt.UTC()).
			Set("version", next).
			Where(entsql.And(
				entsql.EQ("student_id", st.StudentID),
				entsql.EQ("microskill_id", st.MicroskillID),
				entsql.EQ("version", st.Version),
			))
		res, err = exec(ctx, q, upd)
	}
	if err != nil {
		return fmt.Errorf("save skill state %s: %w", skillKey(st.StudentID, st.MicroskillID), err)
	}
	if err := expectOne(res, tableSkillStates, skillKey(st.StudentID, st.MicroskillID), st.Version); err != nil {
		return err
	}
	st.Version = next
	return nil
}

// ListSkillStates returns every skill row for a student.
func (s *Store) ListSkillStates(ctx context.Context, studentID string) ([]mastery.SkillState, error) {
	sel := s.sql.Select(skillColumns...).
		From(s.sql.Table(tableSkillStates)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("microskill_id")
	return s.listSkills(ctx, s.db, sel)
}

// DueReviews returns skill rows whose next review is at or before now,
// earliest first.
func (s *Store) DueReviews(ctx context.Context, now time.Time, limit int) ([]mastery.SkillState, error) {
	sel := s.sql.Select(skillColumns...).
		From(s.sql.Table(tableSkillStates)).
		Where(entsql.And(entsql.NotNull("next_review_at"), entsql.LTE("next_review_at", now.UTC()))).
		OrderBy("next_review_at")
	if limit > 0 {
		sel.Limit(limit)
	}
	return s.listSkills(ctx, s.db, sel)
}

func (s *Store) listSkills(ctx context.Context, q querier, sel *entsql.Selector) ([]mastery.SkillState, error) {
	rows, err := queryRows(ctx, q, sel)
	if err != nil {
		return nil, fmt.Errorf("list skill states: %w", err)
	}
	defer rows.Close()

	var out []mastery.SkillState
	for rows.Next() {
		st, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// MergeFunc combines a guest row with the student's row (nil when the
// student has none) into the row to store for the student.
type MergeFunc func(guest mastery.SkillState, user *mastery.SkillState) mastery.SkillState

// MergeSkillStates folds every guest skill row into studentID's rows in one
// transaction and returns how many rows were written. Guest rows are left
// in place.
func (s *Store) MergeSkillStates(ctx context.Context, guestID, studentID string, merge MergeFunc) (int, error) {
	var merged int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sel := s.sql.Select(skillColumns...).
			From(s.sql.Table(tableSkillStates)).
			Where(entsql.EQ("student_id", guestID)).
			OrderBy("microskill_id")
		guests, err := s.listSkills(ctx, tx, sel)
		if err != nil {
			return err
		}
		for _, g := range guests {
			user, err := s.getSkill(ctx, tx, studentID, g.MicroskillID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			next := merge(g, user)
			if err := s.saveSkill(ctx, tx, &next); err != nil {
				return err
			}
			merged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}

func expectOne(res sql.Result, table, key string, version int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", table, key, err)
	}
	if n == 0 {
		return &ConflictError{Table: table, Key: key, Version: version}
	}
	return nil
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
