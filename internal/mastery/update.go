package mastery

import (
	"math"
	"time"
)

// Attempt is one graded answer as seen by the updater.
type Attempt struct {
	Correct            bool
	ResponseMs         int
	HintUsed           bool
	AttemptsOnQuestion int
}

// Update is the result of applying one attempt.
type Update struct {
	PrevScore float64
	State     SkillState

	// BandShift is -1, 0 or +1.
	BandShift     int
	StatusChanged bool
}

// Apply folds a into prev. It never mutates prev, and the returned state
// keeps prev's Version so the store can compare-and-swap on it.
func Apply(prev SkillState, a Attempt, now time.Time) Update {
	next := prev

	delta := -0.06
	if a.Correct {
		delta = 0.05
	}
	switch {
	case a.ResponseMs > 0 && a.ResponseMs <= 6000:
		delta += 0.01
	case a.ResponseMs > 12000:
		delta -= 0.01
	}
	if a.HintUsed {
		delta -= 0.02
	}
	if a.AttemptsOnQuestion > 1 {
		delta -= 0.01
	}

	next.Mastery = clamp(prev.Mastery+delta, MinMastery, MaxMastery)
	next.Confidence = clamp(prev.Confidence+0.03, MinConfidence, MaxConfidence)

	if a.Correct {
		next.Streak = prev.Streak + 1
		next.CorrectTotal = prev.CorrectTotal + 1
	} else {
		next.Streak = 0
	}
	next.AttemptsTotal = prev.AttemptsTotal + 1

	latency := max(a.ResponseMs, 0)
	if prev.AttemptsTotal > 0 {
		sum := float64(prev.AvgLatencyMs)*float64(prev.AttemptsTotal) + float64(latency)
		next.AvgLatencyMs = int(math.Round(sum / float64(next.AttemptsTotal)))
	} else {
		next.AvgLatencyMs = latency
	}

	shift := 0
	if next.Streak >= 5 && next.Mastery > 0.75 {
		shift = 1
	}
	if !a.Correct && next.Mastery < 0.35 {
		shift = -1
	}
	next.Band = prev.Band.Shift(shift)

	review := now.Add(reviewInterval(next.Mastery))
	next.NextReviewAt = &review
	last := now
	next.LastAttemptAt = &last
	next.UpdatedAt = now
	next.Status = statusFor(next.Mastery, next.Confidence)

	return Update{
		PrevScore:     prev.Mastery,
		State:         next,
		BandShift:     next.Band.Index() - prev.Band.Index(),
		StatusChanged: next.Status != prev.Status,
	}
}
