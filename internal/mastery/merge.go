package mastery

import (
	"math"
	"time"
)

// Merge folds a guest's state for one microskill into the student's.
// A nil user means the student has no row yet; the guest row is adopted.
func Merge(guest SkillState, user *SkillState, studentID string, now time.Time) SkillState {
	if user == nil {
		out := guest
		out.StudentID = studentID
		out.UpdatedAt = now
		out.Version = 0
		return out
	}

	out := *user
	out.StudentID = studentID

	total := guest.AttemptsTotal + user.AttemptsTotal
	out.AttemptsTotal = total
	out.CorrectTotal = guest.CorrectTotal + user.CorrectTotal
	if total > 0 {
		sum := float64(guest.AvgLatencyMs)*float64(guest.AttemptsTotal) +
			float64(user.AvgLatencyMs)*float64(user.AttemptsTotal)
		out.AvgLatencyMs = int(math.Round(sum / float64(total)))
	} else {
		out.AvgLatencyMs = 0
	}

	out.Mastery = max(guest.Mastery, user.Mastery)
	out.Confidence = max(guest.Confidence, user.Confidence)
	out.Streak = max(guest.Streak, user.Streak)
	if guest.Mastery > user.Mastery {
		out.Band = guest.Band
	}

	out.LastAttemptAt = latest(guest.LastAttemptAt, user.LastAttemptAt)
	out.NextReviewAt = earliest(guest.NextReviewAt, user.NextReviewAt)

	out.Status = StatusLearning
	if guest.Status == StatusProficient || user.Status == StatusProficient {
		out.Status = StatusProficient
	}
	out.UpdatedAt = now
	return out
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil || a.After(*b):
		return a
	default:
		return b
	}
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil || a.Before(*b):
		return a
	default:
		return b
	}
}
