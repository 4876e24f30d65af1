package mastery

import (
	"testing"
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

func ptr(t time.Time) *time.Time { return &t }

func TestMerge_AdoptsGuestWhenUserMissing(t *testing.T) {
	guest := fresh()
	guest.StudentID = "guest"
	guest.Version = 3
	out := Merge(guest, nil, "user", t0)
	if out.StudentID != "user" || out.Version != 0 || out.Mastery != guest.Mastery {
		t.Errorf("merged = %+v", out)
	}
}

func TestMerge_Combines(t *testing.T) {
	guest := SkillState{
		StudentID: "guest", MicroskillID: "ms",
		Mastery: 0.7, Confidence: 0.3, Streak: 4, Band: question.Medium,
		AttemptsTotal: 10, CorrectTotal: 7, AvgLatencyMs: 3000, Status: StatusLearning,
		LastAttemptAt: ptr(t0.Add(2 * time.Hour)), NextReviewAt: ptr(t0.Add(30 * time.Hour)),
	}
	user := SkillState{
		StudentID: "user", MicroskillID: "ms",
		Mastery: 0.5, Confidence: 0.6, Streak: 1, Band: question.Easy,
		AttemptsTotal: 30, CorrectTotal: 15, AvgLatencyMs: 5000, Status: StatusProficient,
		LastAttemptAt: ptr(t0), NextReviewAt: ptr(t0.Add(8 * time.Hour)),
		Version: 9,
	}

	out := Merge(guest, &user, "user", t0)

	if out.AttemptsTotal != 40 || out.CorrectTotal != 22 {
		t.Errorf("totals = %d/%d", out.CorrectTotal, out.AttemptsTotal)
	}
	if out.AvgLatencyMs != 4500 {
		t.Errorf("avg latency = %d, want 4500", out.AvgLatencyMs)
	}
	if out.Mastery != 0.7 || out.Confidence != 0.6 || out.Streak != 4 {
		t.Errorf("max fields = %v %v %d", out.Mastery, out.Confidence, out.Streak)
	}
	if out.Band != question.Medium {
		t.Errorf("band = %s, want guest's medium", out.Band)
	}
	if !out.LastAttemptAt.Equal(t0.Add(2*time.Hour)) || !out.NextReviewAt.Equal(t0.Add(8*time.Hour)) {
		t.Errorf("times = %v %v", out.LastAttemptAt, out.NextReviewAt)
	}
	if out.Status != StatusProficient {
		t.Errorf("status = %s", out.Status)
	}
	if out.Version != 9 {
		t.Errorf("version = %d, want user's 9", out.Version)
	}
}
