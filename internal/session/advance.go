package session

import (
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

// Outcome is what the session controller needs to know about one
// answered question. Mastery, Confidence and AvgLatencyMs are the
// learner's values after the mastery update.
type Outcome struct {
	QuestionID        string
	Correct           bool
	MisconceptionCode string

	Mastery      float64
	Confidence   float64
	AvgLatencyMs int

	// Difficulty is the learner's band after the mastery update; it
	// becomes the session's active difficulty.
	Difficulty question.Difficulty
}

// Step is the result of advancing a session by one answer.
type Step struct {
	State State

	// RulePhase is the phase from the transition rules alone, before the
	// remediation override.
	RulePhase Phase
	Accuracy  float64

	// RemediationCode is the code the answer was remediating or opened,
	// reported even on the answer that closes remediation.
	RemediationCode string
}

const doneLatencyMs = 9000

// Advance applies o to prev. The returned state keeps prev's Version.
// RecentQuestionIDs is left for the caller, which knows the catalog.
func Advance(prev State, o Outcome, now time.Time) Step {
	next := prev
	next.Asked = prev.Asked + 1
	if o.Correct {
		next.Correct = prev.Correct + 1
		next.Streak = prev.Streak + 1
		next.MissStreak = 0
	} else {
		next.Streak = 0
		next.MissStreak = prev.MissStreak + 1
	}
	if next.TargetStreak <= 0 {
		next.TargetStreak = DefaultTargetStreak
	}
	next.ActiveDifficulty = o.Difficulty
	next.LastQuestionID = o.QuestionID
	acc := next.Accuracy()

	// Remediation bookkeeping.
	code := prev.ActiveMisconception
	remaining := max(prev.RemediationRemaining-1, 0)
	if !o.Correct {
		code = o.MisconceptionCode
		remaining = 0
		if code != "" {
			remaining = RemediationLength
		}
	}

	rule := rulePhase(prev.Phase, next, o, acc, remaining)

	next.Phase = rule
	next.RemediationRemaining = remaining
	next.ActiveMisconception = ""
	if remaining > 0 {
		next.Phase = PhaseRecovery
		next.ActiveMisconception = code
		next.RemediationRecentIDs = pushBounded(prev.RemediationRecentIDs, o.QuestionID, RemediationHistoryCap)
	}
	if next.Phase == PhaseDone && next.CompletedAt == nil {
		at := now
		next.CompletedAt = &at
	}
	next.UpdatedAt = now

	return Step{State: next, RulePhase: rule, Accuracy: acc, RemediationCode: code}
}

// rulePhase evaluates the transition rules in order; later rules win.
// Recovery entry is evaluated after core→challenge, so a wrong answer
// with a detected misconception always lands in recovery.
func rulePhase(prior Phase, next State, o Outcome, acc float64, remaining int) Phase {
	phase := prior
	if prior == PhaseWarmup && next.Asked >= 3 {
		phase = PhaseCore
	}
	if prior == PhaseCore && next.Streak >= 3 && acc >= 0.6 {
		phase = PhaseChallenge
	}
	if prior == PhaseChallenge && !o.Correct {
		phase = PhaseRecovery
	}
	if !o.Correct && o.MisconceptionCode != "" {
		phase = PhaseRecovery
	}
	if prior == PhaseRecovery && next.Streak >= 2 {
		phase = PhaseCore
	}

	if (phase == PhaseCore || phase == PhaseChallenge) && remaining == 0 && stable(next, o, acc) {
		phase = PhaseDone
	}
	return phase
}

func stable(next State, o Outcome, acc float64) bool {
	return next.Streak >= next.TargetStreak &&
		acc >= 0.8 &&
		o.Mastery >= 0.85 &&
		o.Confidence >= 0.65 &&
		o.AvgLatencyMs <= doneLatencyMs &&
		o.Difficulty == question.Hard
}

func pushBounded(ids []string, id string, limit int) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	out = append(out, id)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
