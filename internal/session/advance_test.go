package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newState() State { return New("s1", "stu", "ms", question.Easy, 0, t0) }

// strong is an outcome that satisfies every done criterion except streak
// and accuracy, which depend on the session.
func strong(qid string) Outcome {
	return Outcome{QuestionID: qid, Correct: true, Mastery: 0.9, Confidence: 0.7, AvgLatencyMs: 4000, Difficulty: question.Hard}
}

func wrong(qid, code string) Outcome {
	return Outcome{QuestionID: qid, MisconceptionCode: code, Mastery: 0.3, Confidence: 0.3, Difficulty: question.Easy}
}

func right(qid string) Outcome {
	return Outcome{QuestionID: qid, Correct: true, Mastery: 0.4, Confidence: 0.3, Difficulty: question.Easy}
}

func TestNew_Defaults(t *testing.T) {
	s := newState()
	if s.Phase != PhaseWarmup || s.TargetStreak != 5 || s.ActiveDifficulty != question.Easy {
		t.Errorf("new = %+v", s)
	}
}

func TestAdvance_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		prior State
		out   Outcome
		want  Phase
	}{
		{"warmup stays before 3", State{Phase: PhaseWarmup, Asked: 1}, right("q"), PhaseWarmup},
		{"warmup to core at 3", State{Phase: PhaseWarmup, Asked: 2}, right("q"), PhaseCore},
		{"core to challenge", State{Phase: PhaseCore, Asked: 4, Correct: 3, Streak: 2}, right("q"), PhaseChallenge},
		{"core stays at low accuracy", State{Phase: PhaseCore, Asked: 9, Correct: 4, Streak: 2}, right("q"), PhaseCore},
		{"challenge wrong without code", State{Phase: PhaseChallenge, Asked: 5, Correct: 5, Streak: 5}, wrong("q", ""), PhaseRecovery},
		{"core wrong without code stays", State{Phase: PhaseCore, Asked: 5, Correct: 3}, wrong("q", ""), PhaseCore},
		{"wrong with code from warmup", State{Phase: PhaseWarmup}, wrong("q", "off_by_one"), PhaseRecovery},
		{"recovery exits after two", State{Phase: PhaseRecovery, Asked: 6, Correct: 4, Streak: 1}, right("q"), PhaseCore},
		{"recovery holds after one", State{Phase: PhaseRecovery, Asked: 6, Correct: 4}, right("q"), PhaseRecovery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prior.TargetStreak = 5
			step := Advance(tt.prior, tt.out, t0)
			if step.RulePhase != tt.want {
				t.Errorf("rule phase = %s, want %s", step.RulePhase, tt.want)
			}
		})
	}
}

func TestAdvance_Remediation(t *testing.T) {
	s := newState()

	step := Advance(s, wrong("q1", "off_by_one"), t0)
	s = step.State
	if s.Phase != PhaseRecovery || s.RemediationRemaining != 2 || s.ActiveMisconception != "off_by_one" {
		t.Fatalf("after wrong: %+v", s)
	}
	if len(s.RemediationRecentIDs) != 1 || s.RemediationRecentIDs[0] != "q1" {
		t.Errorf("remediation recent = %v", s.RemediationRecentIDs)
	}
	if s.MissStreak != 1 {
		t.Errorf("miss streak = %d", s.MissStreak)
	}

	step = Advance(s, right("q2"), t0)
	s = step.State
	if s.Phase != PhaseRecovery || s.RemediationRemaining != 1 || step.RemediationCode != "off_by_one" {
		t.Fatalf("after first correct: %+v code=%q", s, step.RemediationCode)
	}

	step = Advance(s, right("q3"), t0)
	s = step.State
	if s.RemediationRemaining != 0 || s.ActiveMisconception != "" {
		t.Fatalf("after second correct: %+v", s)
	}
	if step.RemediationCode != "off_by_one" {
		t.Errorf("closing answer should report code, got %q", step.RemediationCode)
	}
	if s.Phase == PhaseRecovery {
		t.Errorf("still in recovery after remediation cleared")
	}
	if len(s.RemediationRecentIDs) != 2 {
		t.Errorf("remediation recent = %v, want q1,q2", s.RemediationRecentIDs)
	}

	step = Advance(s, right("q4"), t0)
	if step.RemediationCode != "" {
		t.Errorf("code lingered after remediation: %q", step.RemediationCode)
	}
}

func TestAdvance_RecoveryBlocksDone(t *testing.T) {
	s := State{ID: "s", Phase: PhaseChallenge, TargetStreak: 5, Asked: 20, Correct: 19, Streak: 9}

	s = Advance(s, Outcome{QuestionID: "w", MisconceptionCode: "x", Mastery: 0.9, Confidence: 0.9, Difficulty: question.Hard}, t0).State
	for i := range 6 {
		if s.Phase == PhaseDone && s.RemediationRemaining > 0 {
			t.Fatalf("step %d: done while remediation remaining", i)
		}
		s = Advance(s, strong(fmt.Sprintf("q%d", i)), t0).State
	}
}

func TestAdvance_Done(t *testing.T) {
	s := State{ID: "s", Phase: PhaseChallenge, TargetStreak: 5, Asked: 9, Correct: 8, Streak: 4}
	step := Advance(s, strong("q"), t0)
	if step.State.Phase != PhaseDone {
		t.Fatalf("phase = %s, want done", step.State.Phase)
	}
	if step.State.CompletedAt == nil || !step.State.CompletedAt.Equal(t0) {
		t.Errorf("completed at = %v", step.State.CompletedAt)
	}

	notHard := strong("q")
	notHard.Difficulty = question.Medium
	if got := Advance(s, notHard, t0).State.Phase; got == PhaseDone {
		t.Errorf("done below hard difficulty")
	}

	slow := strong("q")
	slow.AvgLatencyMs = 9001
	if got := Advance(s, slow, t0).State.Phase; got == PhaseDone {
		t.Errorf("done above latency bound")
	}

	warm := s
	warm.Phase = PhaseWarmup
	warm.Asked = 1
	if got := Advance(warm, strong("q"), t0).State.Phase; got == PhaseDone {
		t.Errorf("done straight from warmup")
	}
}

func TestAdvance_RemediationHistoryBounded(t *testing.T) {
	s := newState()
	for i := range 15 {
		s = Advance(s, wrong(fmt.Sprintf("q%d", i), "x"), t0).State
	}
	if len(s.RemediationRecentIDs) != RemediationHistoryCap {
		t.Fatalf("len = %d", len(s.RemediationRecentIDs))
	}
	if s.RemediationRecentIDs[0] != "q5" || s.RemediationRecentIDs[9] != "q14" {
		t.Errorf("history = %v", s.RemediationRecentIDs)
	}
}

func TestAdvance_CountersAndVersion(t *testing.T) {
	s := newState()
	s.Version = 7
	step := Advance(s, right("q1"), t0.Add(time.Minute))
	got := step.State
	if got.Asked != 1 || got.Correct != 1 || got.Streak != 1 || got.LastQuestionID != "q1" {
		t.Errorf("counters = %+v", got)
	}
	if got.Version != 7 || !got.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("version=%d updated=%v", got.Version, got.UpdatedAt)
	}
	if step.Accuracy != 1 {
		t.Errorf("accuracy = %v", step.Accuracy)
	}
	if s.Asked != 0 {
		t.Errorf("prev mutated")
	}
}
