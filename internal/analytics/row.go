package analytics

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/session"
	"github.com/abhisek/adaptly/internal/smartscore"
)

const (
	defaultMastery    = 0.5
	defaultConfidence = 0.4
)

// Attempt is a stored attempt event.
type Attempt struct {
	ID                 int64
	QuestionID         string
	Correct            bool
	ResponseMs         int
	AttemptsOnQuestion int
	HintUsed           bool
	Difficulty         string
	ConceptTags        []string
	MisconceptionCode  string

	// Payload is the stored correct-payload envelope.
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Row is one attempt in a score breakdown.
type Row struct {
	ID             int64         `json:"id"`
	QuestionID     string        `json:"questionId"`
	CreatedAt      time.Time     `json:"createdAt"`
	IsCorrect      bool          `json:"isCorrect"`
	IsAdaptive     bool          `json:"isAdaptive"`
	EstimatedDelta int           `json:"estimatedDelta"`
	SelectionMeta  SelectionMeta `json:"selectionMeta"`
	Factors        Factors       `json:"factors"`
}

// SelectionMeta is how the attempt's next question was chosen.
type SelectionMeta struct {
	Reason               string `json:"reason,omitempty"`
	Policy               string `json:"policy,omitempty"`
	RemediationCode      string `json:"remediationCode,omitempty"`
	RemediationRemaining int    `json:"remediationRemaining"`
}

// Factors are the inputs that shaped the attempt's score.
type Factors struct {
	Phase              string   `json:"phase"`
	Difficulty         string   `json:"difficulty"`
	MasteryScore       float64  `json:"masteryScore"`
	Confidence         float64  `json:"confidence"`
	ResponseMs         int      `json:"responseMs"`
	AttemptsOnQuestion int      `json:"attemptsOnQuestion"`
	HintUsed           bool     `json:"hintUsed"`
	ConceptTags        []string `json:"conceptTags"`
	MisconceptionCode  string   `json:"misconceptionCode,omitempty"`
}

// payloadView is the subset of the stored envelope analytics reads.
type payloadView struct {
	MasteryUpdate struct {
		NewScore   *float64 `json:"newScore"`
		Confidence *float64 `json:"confidence"`
	} `json:"masteryUpdate"`
	SessionUpdate struct {
		Phase string `json:"phase"`
	} `json:"sessionUpdate"`
	Idempotency struct {
		ResponsePayload struct {
			SmartScore *struct {
				Delta *int `json:"delta"`
			} `json:"smartScore"`
			SelectionMeta SelectionMeta `json:"selectionMeta"`
		} `json:"responsePayload"`
	} `json:"idempotency"`
}

// Project maps a stored attempt to a Row. Missing payload fields take
// defaults; a missing SmartScore is re-estimated from the factors.
func Project(a Attempt) Row {
	var p payloadView
	if len(a.Payload) > 0 {
		// An unreadable payload leaves every field at its default.
		_ = json.Unmarshal(a.Payload, &p)
	}

	phase := strings.TrimSpace(p.SessionUpdate.Phase)
	if phase == "" {
		phase = string(session.PhaseCore)
	}
	difficulty := strings.TrimSpace(a.Difficulty)
	if difficulty == "" {
		difficulty = string(question.Easy)
	}
	mastery, confidence := defaultMastery, defaultConfidence
	if v := p.MasteryUpdate.NewScore; v != nil {
		mastery = *v
	}
	if v := p.MasteryUpdate.Confidence; v != nil {
		confidence = *v
	}
	attempts := a.AttemptsOnQuestion
	if attempts <= 0 {
		attempts = 1
	}
	tags := a.ConceptTags
	if tags == nil {
		tags = []string{}
	}

	stored := p.Idempotency.ResponsePayload
	var delta int
	if stored.SmartScore != nil && stored.SmartScore.Delta != nil {
		delta = *stored.SmartScore.Delta
	} else {
		delta = smartscore.Estimate(a.Correct, mastery, confidence,
			question.ParseDifficulty(difficulty), session.Phase(phase), a.ResponseMs)
	}

	return Row{
		ID:             a.ID,
		QuestionID:     a.QuestionID,
		CreatedAt:      a.CreatedAt,
		IsCorrect:      a.Correct,
		IsAdaptive:     true,
		EstimatedDelta: delta,
		SelectionMeta:  stored.SelectionMeta,
		Factors: Factors{
			Phase:              phase,
			Difficulty:         difficulty,
			MasteryScore:       mastery,
			Confidence:         confidence,
			ResponseMs:         a.ResponseMs,
			AttemptsOnQuestion: attempts,
			HintUsed:           a.HintUsed,
			ConceptTags:        tags,
			MisconceptionCode:  strings.TrimSpace(a.MisconceptionCode),
		},
	}
}
