package engine

import (
	"context"
	"errors"

	"github.com/abhisek/adaptly/internal/analytics"
	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/session"
	"github.com/abhisek/adaptly/internal/store"
)

// ScoreBreakdown reports per-attempt score rows and a summary for one
// (student, microskill) pair. It never writes.
func (e *Engine) ScoreBreakdown(ctx context.Context, q analytics.Query) (*analytics.Report, error) {
	q = q.Normalize()
	if err := errors.Join(required("studentId", q.StudentID), required("microSkillId", q.MicroskillID)); err != nil {
		return nil, firstInvalid(err)
	}
	if q.Phase != "" {
		if _, ok := session.ParsePhase(q.Phase); !ok {
			return nil, &InvalidInputError{Field: "phase", Reason: "unknown phase " + q.Phase}
		}
	}
	w, err := q.Window()
	if err != nil {
		return nil, &InvalidInputError{Field: "date", Reason: "invalid date range", Err: err}
	}

	recs, err := e.store.QueryAttempts(ctx, store.AttemptFilter{
		StudentID:    q.StudentID,
		MicroskillID: q.MicroskillID,
		From:         w.From,
		To:           w.To,
		Limit:        q.FetchLimit(),
	})
	if err != nil {
		return nil, storageErr("query attempts", err)
	}
	attempts := make([]analytics.Attempt, len(recs))
	for i, r := range recs {
		attempts[i] = analytics.Attempt{
			ID:                 r.Seq,
			QuestionID:         r.QuestionID,
			Correct:            r.Correct,
			ResponseMs:         r.ResponseMs,
			AttemptsOnQuestion: r.AttemptsOnQuestion,
			HintUsed:           r.HintUsed,
			Difficulty:         r.Difficulty,
			ConceptTags:        r.ConceptTags,
			MisconceptionCode:  r.MisconceptionCode,
			Payload:            r.Payload,
			CreatedAt:          r.CreatedAt,
		}
	}

	rep, err := analytics.Build(q, attempts, func() (*analytics.Diagnostics, error) {
		first, last, err := e.store.AttemptBounds(ctx, q.StudentID, q.MicroskillID)
		if err != nil {
			return nil, storageErr("attempt bounds", err)
		}
		return analytics.NewDiagnostics(w, first, last), nil
	})
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// MergeResult reports a guest merge.
type MergeResult struct {
	Merged          bool   `json:"merged"`
	Reason          string `json:"reason,omitempty"`
	GuestStudentID  string `json:"guestStudentId"`
	StudentID       string `json:"studentId"`
	MergedSkillRows int    `json:"mergedSkillRows"`
}

// MergeGuest folds every skill state of guestID into studentID in one
// transaction. Guest rows are kept. Merging an id into itself is a no-op.
func (e *Engine) MergeGuest(ctx context.Context, guestID, studentID string) (*MergeResult, error) {
	guestID, studentID = trim(guestID), trim(studentID)
	if err := errors.Join(required("guestStudentId", guestID), required("studentId", studentID)); err != nil {
		return nil, firstInvalid(err)
	}
	res := &MergeResult{GuestStudentID: guestID, StudentID: studentID}
	if guestID == studentID {
		res.Reason = "same_id"
		return res, nil
	}

	now := e.clock()
	n, err := e.store.MergeSkillStates(ctx, guestID, studentID, func(guest mastery.SkillState, user *mastery.SkillState) mastery.SkillState {
		return mastery.Merge(guest, user, studentID, now)
	})
	if err != nil {
		return nil, storageErr("merge skill states", err)
	}
	res.Merged, res.MergedSkillRows = true, n
	e.logger.InfoContext(ctx, "guest merged", "guest_id", guestID, "student_id", studentID, "rows", n)
	return res, nil
}
