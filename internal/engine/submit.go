package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/adaptly/internal/catalog"
	"github.com/abhisek/adaptly/internal/diagnosis"
	"github.com/abhisek/adaptly/internal/events"
	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/selector"
	"github.com/abhisek/adaptly/internal/session"
	"github.com/abhisek/adaptly/internal/smartscore"
	"github.com/abhisek/adaptly/internal/store"
)

// Response sources.
const (
	SourceFresh  = "fresh"
	SourceReplay = "idempotent_replay"
)

// SubmitRequest is one answer. An empty AttemptID gets a generated id and
// cannot be replayed.
type SubmitRequest struct {
	SessionID          string          `json:"sessionId"`
	StudentID          string          `json:"studentId"`
	MicroskillID       string          `json:"microSkillId"`
	QuestionID         string          `json:"questionId"`
	Answer             json.RawMessage `json:"answer"`
	AttemptID          string          `json:"attemptId"`
	ResponseMs         int             `json:"responseMs"`
	HintUsed           bool            `json:"hintUsed"`
	AttemptsOnQuestion int             `json:"attemptsOnQuestion"`
}

// SubmitResult holds the response bytes exactly as first produced, so a
// replay is byte-identical to the original.
type SubmitResult struct {
	Payload json.RawMessage
	Source  string
}

// Replay reports whether the result came from a stored attempt.
func (r *SubmitResult) Replay() bool { return r.Source == SourceReplay }

// SubmitResponse is the shape of SubmitResult.Payload.
type SubmitResponse struct {
	Result        AttemptResult        `json:"result"`
	MasteryUpdate MasteryUpdate        `json:"masteryUpdate"`
	SessionUpdate SessionUpdate        `json:"sessionUpdate"`
	SmartScore    smartscore.Breakdown `json:"smartScore"`
	NextQuestion  *question.Public     `json:"nextQuestion"`
	SelectionMeta SelectionMeta        `json:"selectionMeta"`
}

type AttemptResult struct {
	IsCorrect bool              `json:"isCorrect"`
	Feedback  question.Feedback `json:"feedback"`
}

type MasteryUpdate struct {
	PrevScore      float64             `json:"prevScore"`
	NewScore       float64             `json:"newScore"`
	Confidence     float64             `json:"confidence"`
	DifficultyBand question.Difficulty `json:"difficultyBand"`
	Streak         int                 `json:"streak"`
}

type SessionUpdate struct {
	Phase         session.Phase `json:"phase"`
	CurrentStreak int           `json:"currentStreak"`
	AskedCount    int           `json:"askedCount"`
	CorrectCount  int           `json:"correctCount"`
	Accuracy      float64       `json:"accuracy"`
}

// envelope is the stored attempt payload. The response bytes live under
// idempotency.responsePayload.
type envelope struct {
	CorrectAnswerText string        `json:"correctAnswerText"`
	MasteryUpdate     MasteryUpdate `json:"masteryUpdate"`
	SessionUpdate     SessionUpdate `json:"sessionUpdate"`
	Idempotency       idempotency   `json:"idempotency"`
}

type idempotency struct {
	AttemptID       string          `json:"attemptId"`
	ResponsePayload json.RawMessage `json:"responsePayload"`
}

// SubmitAndNext grades an answer, updates mastery and the session, and
// selects the next question. A repeated (session, student, microskill,
// question, attempt) returns the stored response and writes nothing.
func (e *Engine) SubmitAndNext(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	start := e.now()
	req = normalizeSubmit(req)
	if err := errors.Join(
		required("sessionId", req.SessionID),
		required("studentId", req.StudentID),
		required("microSkillId", req.MicroskillID),
		required("questionId", req.QuestionID),
	); err != nil {
		return nil, firstInvalid(err)
	}

	release, err := e.lockPair(ctx, req.StudentID, req.MicroskillID)
	if err != nil {
		return nil, err
	}
	defer release()

	if req.AttemptID != "" {
		res, err := e.replay(ctx, req)
		if err != nil || res != nil {
			if res != nil {
				e.metrics.Submission(replayCorrect(res.Payload), SourceReplay, e.now().Sub(start))
				e.logger.InfoContext(ctx, "submission",
					"session_id", req.SessionID, "question_id", req.QuestionID, "replay", true)
			}
			return res, err
		}
	} else {
		req.AttemptID = uuid.NewString()
	}

	qs, err := e.questions(ctx, req.MicroskillID)
	if err != nil {
		return nil, err
	}
	q := findQuestion(qs, req.QuestionID)
	if q == nil {
		return nil, &NotFoundError{Kind: "question", ID: req.QuestionID}
	}

	sess, err := e.loadSession(ctx, req.SessionID, req.StudentID, req.MicroskillID)
	if err != nil {
		return nil, err
	}
	if sess.Done() {
		return nil, &StateConflictError{Reason: "session " + sess.ID + " is complete"}
	}
	skill, err := e.store.GetSkillState(ctx, req.StudentID, req.MicroskillID)
	if err != nil {
		if isNotFound(err) {
			return nil, &StateConflictError{Reason: "no skill state for this student and microskill"}
		}
		return nil, storageErr("load skill state", err)
	}

	answer, err := question.DecodeAnswer(q, req.Answer)
	if err != nil {
		return nil, &InvalidInputError{Field: "answer", Reason: "does not match the question type", Err: err}
	}

	now := e.clock()
	correct := question.Grade(q, answer)
	det := e.detector.Detect(ctx, &diagnosis.Input{
		Question:   q,
		Answer:     answer,
		Correct:    correct,
		Candidates: catalog.Codes(qs),
	})
	code := ""
	if det != nil {
		code = det.Code
	}

	upd := mastery.Apply(*skill, mastery.Attempt{
		Correct:            correct,
		ResponseMs:         req.ResponseMs,
		HintUsed:           req.HintUsed,
		AttemptsOnQuestion: req.AttemptsOnQuestion,
	}, now)
	next := upd.State

	step := session.Advance(*sess, session.Outcome{
		QuestionID:        q.ID,
		Correct:           correct,
		MisconceptionCode: code,
		Mastery:           next.Mastery,
		Confidence:        next.Confidence,
		AvgLatencyMs:      next.AvgLatencyMs,
		Difficulty:        next.Band,
	}, now)
	nextSess := step.State
	nextSess.RecentQuestionIDs = selector.PushRecent(sess.RecentQuestionIDs, q.ID, selector.IDs(qs))

	sel := e.selector.Choose(selectionRequest(qs, &nextSess, q.ID))
	score := smartscore.Compute(smartscore.Input{
		Correct:    correct,
		Mastery:    next.Mastery,
		Confidence: next.Confidence,
		Difficulty: q.Difficulty,
		Phase:      nextSess.Phase,
		ResponseMs: req.ResponseMs,
		Streak:     nextSess.Streak,
		MissStreak: nextSess.MissStreak,
	})

	mu := MasteryUpdate{
		PrevScore:      upd.PrevScore,
		NewScore:       next.Mastery,
		Confidence:     next.Confidence,
		DifficultyBand: next.Band,
		Streak:         next.Streak,
	}
	su := SessionUpdate{
		Phase:         nextSess.Phase,
		CurrentStreak: nextSess.Streak,
		AskedCount:    nextSess.Asked,
		CorrectCount:  nextSess.Correct,
		Accuracy:      step.Accuracy,
	}
	meta := SelectionMeta{
		Policy:               e.policy,
		Reason:               sel.Reason,
		Debug:                &sel.Debug,
		Phase:                nextSess.Phase,
		Difficulty:           nextSess.ActiveDifficulty,
		RemediationCode:      step.RemediationCode,
		RemediationRemaining: nextSess.RemediationRemaining,
	}
	payload, err := json.Marshal(SubmitResponse{
		Result:        AttemptResult{IsCorrect: correct, Feedback: question.BuildFeedback(q)},
		MasteryUpdate: mu,
		SessionUpdate: su,
		SmartScore:    score,
		NextQuestion:  e.public(sel.Question),
		SelectionMeta: meta,
	})
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	env, err := json.Marshal(envelope{
		CorrectAnswerText: q.AnswerText,
		MasteryUpdate:     mu,
		SessionUpdate:     su,
		Idempotency:       idempotency{AttemptID: req.AttemptID, ResponsePayload: payload},
	})
	if err != nil {
		return nil, fmt.Errorf("encode attempt payload: %w", err)
	}

	commit := &store.Commit{
		Skill:   &next,
		Session: &nextSess,
		Attempt: store.AttemptRecord{
			SessionID:          req.SessionID,
			StudentID:          req.StudentID,
			MicroskillID:       req.MicroskillID,
			QuestionID:         q.ID,
			AttemptID:          req.AttemptID,
			Correct:            correct,
			ResponseMs:         req.ResponseMs,
			AttemptsOnQuestion: req.AttemptsOnQuestion,
			HintUsed:           req.HintUsed,
			Difficulty:         string(q.Difficulty),
			ConceptTags:        q.ConceptTags(),
			MisconceptionCode:  code,
			Payload:            env,
			CreatedAt:          now,
		},
	}
	if det != nil {
		commit.Misconception = &store.MisconceptionRecord{
			SessionID:    req.SessionID,
			StudentID:    req.StudentID,
			MicroskillID: req.MicroskillID,
			QuestionID:   q.ID,
			Code:         det.Code,
			Classifier:   det.Classifier,
			Confidence:   det.Confidence,
			CreatedAt:    now,
		}
	}
	if err := e.store.CommitAttempt(ctx, commit); err != nil {
		return nil, storageErr("commit attempt", err)
	}

	e.afterCommit(ctx, sess, commit, det, sel.Reason, score.Delta)
	e.metrics.Submission(correct, SourceFresh, e.now().Sub(start))
	e.logger.InfoContext(ctx, "submission",
		"session_id", req.SessionID, "question_id", q.ID, "correct", correct,
		"phase", nextSess.Phase, "reason", sel.Reason, "replay", false)

	return &SubmitResult{Payload: payload, Source: SourceFresh}, nil
}

// replay returns the stored response for req, nil when there is none.
// A failed lookup is a storage error, never a miss.
func (e *Engine) replay(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	rec, err := e.store.FindAttempt(ctx, store.ReplayKey{
		SessionID:    req.SessionID,
		StudentID:    req.StudentID,
		MicroskillID: req.MicroskillID,
		QuestionID:   req.QuestionID,
		AttemptID:    req.AttemptID,
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("idempotency lookup", err)
	}
	var env envelope
	if err := json.Unmarshal(rec.Payload, &env); err != nil || len(env.Idempotency.ResponsePayload) == 0 {
		if err == nil {
			err = errors.New("no stored response")
		}
		return nil, storageErr("decode stored attempt "+req.AttemptID, err)
	}
	return &SubmitResult{Payload: env.Idempotency.ResponsePayload, Source: SourceReplay}, nil
}

func (e *Engine) afterCommit(ctx context.Context, prev *session.State, c *store.Commit, det *diagnosis.Result, reason selector.Reason, delta int) {
	now := c.Attempt.CreatedAt
	sess := c.Session

	e.publish(ctx, events.New(events.TypeAttemptRecorded, now, events.AttemptRecorded{
		Seq:          c.Attempt.Seq,
		SessionID:    sess.ID,
		StudentID:    sess.StudentID,
		MicroskillID: sess.MicroskillID,
		QuestionID:   c.Attempt.QuestionID,
		Correct:      c.Attempt.Correct,
		Phase:        string(sess.Phase),
		Mastery:      c.Skill.Mastery,
		Delta:        delta,
	}))
	if det != nil {
		e.metrics.Misconception(det.Classifier)
		e.publish(ctx, events.New(events.TypeMisconceptionDetected, now, events.MisconceptionDetected{
			SessionID:    sess.ID,
			StudentID:    sess.StudentID,
			MicroskillID: sess.MicroskillID,
			QuestionID:   c.Attempt.QuestionID,
			Code:         det.Code,
			Classifier:   det.Classifier,
			Confidence:   det.Confidence,
		}))
	}
	if sess.Done() && !prev.Done() {
		e.publish(ctx, events.New(events.TypeSessionCompleted, now, events.SessionCompleted{
			SessionID:    sess.ID,
			StudentID:    sess.StudentID,
			MicroskillID: sess.MicroskillID,
			Asked:        sess.Asked,
			Accuracy:     sess.Accuracy(),
		}))
	}
	e.metrics.Selection(string(reason))
	e.metrics.PhaseTransition(string(prev.Phase), string(sess.Phase))
}

func normalizeSubmit(req SubmitRequest) SubmitRequest {
	req.SessionID = trim(req.SessionID)
	req.StudentID = trim(req.StudentID)
	req.MicroskillID = trim(req.MicroskillID)
	req.QuestionID = trim(req.QuestionID)
	req.AttemptID = trim(req.AttemptID)
	req.ResponseMs = max(req.ResponseMs, 0)
	req.AttemptsOnQuestion = max(req.AttemptsOnQuestion, 1)
	return req
}

func findQuestion(qs []*question.Question, id string) *question.Question {
	for _, q := range qs {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func replayCorrect(payload json.RawMessage) bool {
	var v struct {
		Result struct {
			IsCorrect bool `json:"isCorrect"`
		} `json:"result"`
	}
	_ = json.Unmarshal(payload, &v)
	return v.Result.IsCorrect
}
