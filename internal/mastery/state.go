// Package mastery maintains a learner's per-microskill estimate: mastery
// score, confidence, streak, difficulty band, and review schedule.
package mastery

import (
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

// Status is the coarse proficiency label.
type Status string

const (
	StatusLearning   Status = "learning"
	StatusProficient Status = "proficient"
)

// Bounds and defaults.
const (
	DefaultMastery    = 0.2
	DefaultConfidence = 0.1

	MinMastery    = 0.01
	MaxMastery    = 0.99
	MinConfidence = 0.05
	MaxConfidence = 0.99

	ProficientMastery    = 0.85
	ProficientConfidence = 0.6
)

// SkillState is the per-(student, microskill) record.
type SkillState struct {
	StudentID    string
	MicroskillID string

	Mastery    float64
	Confidence float64
	Streak     int
	Band       question.Difficulty

	AttemptsTotal int
	CorrectTotal  int
	AvgLatencyMs  int
	Status        Status

	LastAttemptAt *time.Time
	NextReviewAt  *time.Time
	UpdatedAt     time.Time

	// Version is the optimistic-concurrency counter. Zero means the row
	// has never been stored.
	Version int64
}

// NewSkillState returns the initial state for a pair that has never
// practised.
func NewSkillState(studentID, microskillID string, now time.Time) SkillState {
	review := now.Add(reviewInterval(DefaultMastery))
	return SkillState{
		StudentID:    studentID,
		MicroskillID: microskillID,
		Mastery:      DefaultMastery,
		Confidence:   DefaultConfidence,
		Band:         question.Easy,
		Status:       StatusLearning,
		NextReviewAt: &review,
		UpdatedAt:    now,
	}
}

// Accuracy is correct/attempts, zero before any attempt.
func (s SkillState) Accuracy() float64 {
	if s.AttemptsTotal == 0 {
		return 0
	}
	return float64(s.CorrectTotal) / float64(s.AttemptsTotal)
}

// DueForReview reports whether the next review time has passed.
func (s SkillState) DueForReview(now time.Time) bool {
	return s.NextReviewAt != nil && !now.Before(*s.NextReviewAt)
}

func statusFor(mastery, confidence float64) Status {
	if mastery >= ProficientMastery && confidence >= ProficientConfidence {
		return StatusProficient
	}
	return StatusLearning
}

func reviewInterval(mastery float64) time.Duration {
	switch {
	case mastery >= 0.85:
		return 72 * time.Hour
	case mastery >= 0.6:
		return 24 * time.Hour
	default:
		return 8 * time.Hour
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
