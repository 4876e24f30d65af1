package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/selector"
	"github.com/abhisek/adaptly/internal/session"
	"github.com/abhisek/adaptly/internal/store"
)

// StartRequest opens or resumes a session. An empty SessionID creates a
// new session with a generated id.
type StartRequest struct {
	StudentID    string `json:"studentId"`
	MicroskillID string `json:"microSkillId"`
	SessionID    string `json:"sessionId,omitempty"`
}

// MasterySummary is the learner's standing on the microskill.
type MasterySummary struct {
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Status     mastery.Status `json:"status"`
}

type StartResponse struct {
	SessionID        string              `json:"sessionId"`
	Phase            session.Phase       `json:"phase"`
	ActiveDifficulty question.Difficulty `json:"activeDifficulty"`
	PolicyVersion    string              `json:"policyVersion"`
	Mastery          MasterySummary      `json:"mastery"`
	Resumed          bool                `json:"resumed"`
}

// StartSession creates the skill state with defaults when absent, then
// reuses the named session or creates a new one at the learner's band.
func (e *Engine) StartSession(ctx context.Context, req StartRequest) (*StartResponse, error) {
	req.StudentID, req.MicroskillID, req.SessionID = trim(req.StudentID), trim(req.MicroskillID), trim(req.SessionID)
	if err := errors.Join(required("studentId", req.StudentID), required("microSkillId", req.MicroskillID)); err != nil {
		return nil, firstInvalid(err)
	}

	release, err := e.lockPair(ctx, req.StudentID, req.MicroskillID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := e.clock()
	skill, err := e.store.EnsureSkillState(ctx, mastery.NewSkillState(req.StudentID, req.MicroskillID, now))
	if err != nil {
		return nil, storageErr("ensure skill state", err)
	}

	resp := &StartResponse{
		PolicyVersion: e.policy,
		Mastery:       MasterySummary{Score: skill.Mastery, Confidence: skill.Confidence, Status: skill.Status},
	}

	if req.SessionID != "" {
		st, err := e.store.GetSession(ctx, req.SessionID)
		switch {
		case err == nil:
			if st.StudentID != req.StudentID || st.MicroskillID != req.MicroskillID {
				return nil, &StateConflictError{Reason: "session " + req.SessionID + " belongs to another student or microskill"}
			}
			resp.SessionID, resp.Phase, resp.ActiveDifficulty, resp.Resumed = st.ID, st.Phase, st.ActiveDifficulty, true
			return resp, nil
		case !isNotFound(err):
			return nil, storageErr("load session", err)
		}
	}

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	st := session.New(id, req.StudentID, req.MicroskillID, skill.Band, e.targetStreak, now)
	if err := e.store.CreateSession(ctx, &st); err != nil {
		return nil, storageErr("create session", err)
	}
	e.logger.InfoContext(ctx, "session started",
		"session_id", st.ID, "student_id", st.StudentID, "microskill_id", st.MicroskillID,
		"difficulty", st.ActiveDifficulty)

	resp.SessionID, resp.Phase, resp.ActiveDifficulty = st.ID, st.Phase, st.ActiveDifficulty
	return resp, nil
}

// NextRequest fetches the question to show for a session.
type NextRequest struct {
	SessionID    string `json:"sessionId"`
	StudentID    string `json:"studentId"`
	MicroskillID string `json:"microSkillId"`
}

// NextResponse carries a nil Question when the session is complete or the
// microskill has no questions.
type NextResponse struct {
	Question      *question.Public `json:"question"`
	SelectionMeta SelectionMeta    `json:"selectionMeta"`
}

// NextQuestion selects a question for the session without changing any
// state: the target band is the session's, the last answered question is
// excluded, and an active remediation is honored.
func (e *Engine) NextQuestion(ctx context.Context, req NextRequest) (*NextResponse, error) {
	req.SessionID, req.StudentID, req.MicroskillID = trim(req.SessionID), trim(req.StudentID), trim(req.MicroskillID)
	if err := errors.Join(
		required("sessionId", req.SessionID),
		required("studentId", req.StudentID),
		required("microSkillId", req.MicroskillID),
	); err != nil {
		return nil, firstInvalid(err)
	}

	st, err := e.loadSession(ctx, req.SessionID, req.StudentID, req.MicroskillID)
	if err != nil {
		return nil, err
	}

	meta := SelectionMeta{
		Policy:               e.policy,
		Phase:                st.Phase,
		Difficulty:           st.ActiveDifficulty,
		RemediationRemaining: st.RemediationRemaining,
	}
	if st.InRemediation() {
		meta.RemediationCode = st.ActiveMisconception
	}
	if st.Done() {
		meta.Reason = selector.ReasonSessionComplete
		return &NextResponse{SelectionMeta: meta}, nil
	}

	qs, err := e.questions(ctx, req.MicroskillID)
	if err != nil {
		return nil, err
	}
	res := e.selector.Choose(selectionRequest(qs, st, st.LastQuestionID))
	meta.Reason = res.Reason
	meta.Debug = &res.Debug
	if res.Question != nil {
		meta.ConceptTags = res.Question.ConceptTags()
	}
	e.metrics.Selection(string(res.Reason))

	return &NextResponse{Question: e.public(res.Question), SelectionMeta: meta}, nil
}

// SelectionMeta explains how the next question was chosen.
type SelectionMeta struct {
	Policy               string              `json:"policy"`
	Reason               selector.Reason     `json:"reason"`
	Debug                *selector.Debug     `json:"debug"`
	Phase                session.Phase       `json:"phase"`
	Difficulty           question.Difficulty `json:"difficulty"`
	RemediationCode      string              `json:"remediationCode,omitempty"`
	RemediationRemaining int                 `json:"remediationRemaining"`
	ConceptTags          []string            `json:"conceptTags,omitempty"`
}

func selectionRequest(qs []*question.Question, st *session.State, exclude string) selector.Request {
	req := selector.Request{
		Questions:         qs,
		Target:            st.ActiveDifficulty,
		Recent:            st.RecentQuestionIDs,
		RemediationRecent: st.RemediationRecentIDs,
		Exclude:           exclude,
	}
	if st.InRemediation() {
		req.Remediation = &selector.Remediation{Code: st.ActiveMisconception, Remaining: st.RemediationRemaining}
	}
	return req
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// firstInvalid unwraps a joined validation error to its first
// *InvalidInputError.
func firstInvalid(err error) error {
	var inv *InvalidInputError
	if errors.As(err, &inv) {
		return inv
	}
	return err
}
