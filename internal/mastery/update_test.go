package mastery

import (
	"math"
	"testing"
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fresh() SkillState { return NewSkillState("stu", "ms", t0) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewSkillState_Defaults(t *testing.T) {
	s := fresh()
	if s.Mastery != 0.2 || s.Confidence != 0.1 || s.Band != question.Easy || s.Status != StatusLearning {
		t.Errorf("defaults = %+v", s)
	}
	if s.NextReviewAt == nil || !s.NextReviewAt.Equal(t0.Add(8*time.Hour)) {
		t.Errorf("next review = %v, want +8h", s.NextReviewAt)
	}
}

func TestApply_Deltas(t *testing.T) {
	tests := []struct {
		name    string
		attempt Attempt
		want    float64
	}{
		{"correct no timing", Attempt{Correct: true}, 0.25},
		{"correct fast", Attempt{Correct: true, ResponseMs: 6000}, 0.26},
		{"correct slow", Attempt{Correct: true, ResponseMs: 12001}, 0.24},
		{"correct between", Attempt{Correct: true, ResponseMs: 9000}, 0.25},
		{"wrong fast", Attempt{ResponseMs: 3000}, 0.15},
		{"wrong slow", Attempt{ResponseMs: 20000}, 0.13},
		{"hint", Attempt{Correct: true, ResponseMs: 3000, HintUsed: true}, 0.24},
		{"retry", Attempt{Correct: true, ResponseMs: 3000, AttemptsOnQuestion: 2}, 0.25},
		{"first attempt", Attempt{Correct: true, AttemptsOnQuestion: 1}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Apply(fresh(), tt.attempt, t0)
			if !approx(u.State.Mastery, tt.want) {
				t.Errorf("mastery = %v, want %v", u.State.Mastery, tt.want)
			}
			if u.PrevScore != 0.2 {
				t.Errorf("prev score = %v", u.PrevScore)
			}
			if !approx(u.State.Confidence, 0.13) {
				t.Errorf("confidence = %v, want 0.13", u.State.Confidence)
			}
		})
	}
}

func TestApply_BoundsOverLongRuns(t *testing.T) {
	for _, correct := range []bool{true, false} {
		s := fresh()
		for i := range 1000 {
			u := Apply(s, Attempt{Correct: correct, ResponseMs: 2000}, t0)
			s = u.State
			if s.Mastery < MinMastery || s.Mastery > MaxMastery {
				t.Fatalf("correct=%v step %d: mastery %v out of bounds", correct, i, s.Mastery)
			}
			if s.Confidence < MinConfidence || s.Confidence > MaxConfidence {
				t.Fatalf("correct=%v step %d: confidence %v out of bounds", correct, i, s.Confidence)
			}
			if u.BandShift < -1 || u.BandShift > 1 {
				t.Fatalf("band moved %d steps", u.BandShift)
			}
		}
		if s.AttemptsTotal != 1000 {
			t.Errorf("attempts = %d", s.AttemptsTotal)
		}
	}
}

func TestApply_BandEscalatesOneStepAtATime(t *testing.T) {
	s := fresh()
	s.Mastery = 0.8
	var bands []question.Difficulty
	for range 8 {
		u := Apply(s, Attempt{Correct: true, ResponseMs: 3000}, t0)
		s = u.State
		bands = append(bands, s.Band)
	}
	// Streak reaches 5 on the fifth answer.
	want := []question.Difficulty{question.Easy, question.Easy, question.Easy, question.Easy, question.Medium, question.Hard, question.Hard, question.Hard}
	for i := range want {
		if bands[i] != want[i] {
			t.Fatalf("bands = %v, want %v", bands, want)
		}
	}
}

func TestApply_BandDropsOnWrongAtLowMastery(t *testing.T) {
	s := fresh()
	s.Band = question.Hard
	s.Mastery = 0.36
	u := Apply(s, Attempt{ResponseMs: 3000}, t0)
	if u.State.Band != question.Medium || u.BandShift != -1 {
		t.Errorf("band = %s shift %d", u.State.Band, u.BandShift)
	}

	s.Mastery = 0.5
	if u := Apply(s, Attempt{ResponseMs: 3000}, t0); u.State.Band != question.Hard {
		t.Errorf("band dropped at mastery 0.45: %s", u.State.Band)
	}
}

func TestApply_StreakLatencyAndReview(t *testing.T) {
	s := fresh()
	s = Apply(s, Attempt{Correct: true, ResponseMs: 1000}, t0).State
	s = Apply(s, Attempt{Correct: true, ResponseMs: 2001}, t0).State
	if s.Streak != 2 || s.AvgLatencyMs != 1501 {
		t.Errorf("streak=%d avg=%d", s.Streak, s.AvgLatencyMs)
	}
	s = Apply(s, Attempt{ResponseMs: 3000}, t0).State
	if s.Streak != 0 || s.CorrectTotal != 2 || s.AttemptsTotal != 3 {
		t.Errorf("after wrong: %+v", s)
	}
	if s.AvgLatencyMs != 2001 {
		t.Errorf("avg = %d, want 2001", s.AvgLatencyMs)
	}

	s.Mastery = 0.84
	s = Apply(s, Attempt{Correct: true, ResponseMs: 3000}, t0).State
	if !s.NextReviewAt.Equal(t0.Add(72 * time.Hour)) {
		t.Errorf("next review = %v, want +72h", s.NextReviewAt)
	}
	if s.LastAttemptAt == nil || !s.LastAttemptAt.Equal(t0) {
		t.Errorf("last attempt = %v", s.LastAttemptAt)
	}
}

func TestApply_Proficiency(t *testing.T) {
	s := fresh()
	s.Mastery, s.Confidence = 0.84, 0.58
	u := Apply(s, Attempt{Correct: true, ResponseMs: 3000}, t0)
	if u.State.Status != StatusProficient || !u.StatusChanged {
		t.Errorf("status = %s changed=%v", u.State.Status, u.StatusChanged)
	}
}

func TestApply_DoesNotMutatePrev(t *testing.T) {
	s := fresh()
	s.Version = 4
	u := Apply(s, Attempt{Correct: true}, t0)
	if s.AttemptsTotal != 0 || s.Mastery != 0.2 {
		t.Errorf("prev mutated: %+v", s)
	}
	if u.State.Version != 4 {
		t.Errorf("version = %d, want 4", u.State.Version)
	}
}
