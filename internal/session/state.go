// Package session runs the per-session pedagogical state machine:
// warmup → core → challenge, detours through recovery after mistakes,
// and done once the learner is stable on hard questions.
package session

import (
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

// Phase is the pedagogical stage of a session.
type Phase string

const (
	PhaseWarmup    Phase = "warmup"
	PhaseCore      Phase = "core"
	PhaseChallenge Phase = "challenge"
	PhaseRecovery  Phase = "recovery"
	PhaseDone      Phase = "done"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{PhaseWarmup, PhaseCore, PhaseChallenge, PhaseRecovery, PhaseDone}

// ParsePhase reports whether s names a phase.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range Phases {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

const (
	DefaultTargetStreak = 5

	// RemediationLength is how many answers a remediation lasts after a
	// wrong answer.
	RemediationLength = 2

	// RemediationHistoryCap bounds RemediationRecentIDs.
	RemediationHistoryCap = 10
)

// State is one practice session.
type State struct {
	ID           string
	StudentID    string
	MicroskillID string

	Phase        Phase
	TargetStreak int
	Streak       int
	MissStreak   int
	Asked        int
	Correct      int

	ActiveDifficulty question.Difficulty
	LastQuestionID   string

	// RecentQuestionIDs is the anti-repetition cycle buffer.
	RecentQuestionIDs []string

	// RemediationRecentIDs are questions already served while in recovery.
	RemediationRecentIDs []string

	RemediationRemaining int
	ActiveMisconception  string

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Version is the optimistic-concurrency counter; zero means unsaved.
	Version int64
}

// New returns a warmup session at the learner's current band.
func New(id, studentID, microskillID string, band question.Difficulty, targetStreak int, now time.Time) State {
	if targetStreak <= 0 {
		targetStreak = DefaultTargetStreak
	}
	return State{
		ID:                   id,
		StudentID:            studentID,
		MicroskillID:         microskillID,
		Phase:                PhaseWarmup,
		TargetStreak:         targetStreak,
		ActiveDifficulty:     band,
		RecentQuestionIDs:    []string{},
		RemediationRecentIDs: []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Accuracy is correct/asked, zero before any answer.
func (s State) Accuracy() float64 {
	if s.Asked == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Asked)
}

// Done reports whether the session is terminal.
func (s State) Done() bool { return s.Phase == PhaseDone }

// InRemediation reports whether a remediation sequence is active.
func (s State) InRemediation() bool {
	return s.RemediationRemaining > 0 && s.ActiveMisconception != ""
}
