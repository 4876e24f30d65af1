package selector

import (
	"fmt"
	"slices"
	"testing"

	"github.com/abhisek/adaptly/internal/question"
)

func q(id string, d question.Difficulty, codes ...string) *question.Question {
	qq := &question.Question{ID: id, Type: question.TypeMCQ, Difficulty: d}
	qq.Config.MisconceptionCodes = codes
	return qq
}

func catalog() []*question.Question {
	return []*question.Question{
		q("e1", question.Easy),
		q("e2", question.Easy),
		q("e3", question.Easy, "place_value"),
		q("m1", question.Medium),
		q("m2", question.Medium, "place_value"),
		q("h1", question.Hard),
	}
}

func TestChoose_NeverReturnsExcluded(t *testing.T) {
	s := NewSeeded(1)
	qs := catalog()
	for i := 0; i < 200; i++ {
		res := s.Choose(Request{Questions: qs, Target: question.Easy, Exclude: "e1"})
		if res.Question == nil {
			t.Fatalf("iteration %d: no question", i)
		}
		if res.Question.ID == "e1" {
			t.Fatalf("iteration %d: returned excluded question", i)
		}
	}
}

func TestChoose_OnlyExcludedQuestion(t *testing.T) {
	s := NewSeeded(1)
	res := s.Choose(Request{Questions: []*question.Question{q("e1", question.Easy)}, Exclude: "e1"})
	if res.Question != nil || res.Reason != ReasonNoQuestions {
		t.Fatalf("got %v/%s, want nil/no_questions", res.Question, res.Reason)
	}

	res = s.Choose(Request{})
	if res.Reason != ReasonNoQuestions {
		t.Errorf("empty catalog reason = %s", res.Reason)
	}
}

func TestChoose_Relaxation(t *testing.T) {
	tests := []struct {
		name   string
		recent []string
		target question.Difficulty
		want   Reason
		ids    []string
	}{
		{"same band unseen", nil, question.Easy, ReasonDifficultyMatch, []string{"e1", "e2", "e3"}},
		{"band exhausted uses adjacent", []string{"e1", "e2", "e3"}, question.Easy, ReasonAdjacentBand, []string{"m1", "m2"}},
		{"adjacent exhausted uses anything unseen", []string{"e1", "e2", "e3", "m1", "m2"}, question.Easy, ReasonFallbackAny, []string{"h1"}},
		{"all seen repeats in band", []string{"e1", "e2", "e3", "m1", "m2", "h1"}, question.Easy, ReasonDifficultyRecent, []string{"e2", "e3"}},
		{"hard adjacent is medium", []string{"h1"}, question.Hard, ReasonAdjacentBand, []string{"m1", "m2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeeded(7)
			for i := 0; i < 50; i++ {
				res := s.Choose(Request{Questions: catalog(), Target: tt.target, Recent: tt.recent, Exclude: "e1"})
				if res.Reason != tt.want {
					t.Fatalf("reason = %s, want %s", res.Reason, tt.want)
				}
				if !slices.Contains(tt.ids, res.Question.ID) {
					t.Fatalf("picked %s, want one of %v", res.Question.ID, tt.ids)
				}
			}
		})
	}
}

func TestChoose_FallbackRepeat(t *testing.T) {
	qs := []*question.Question{q("e1", question.Easy), q("h1", question.Hard)}
	res := NewSeeded(3).Choose(Request{Questions: qs, Target: question.Easy, Recent: []string{"e1", "h1"}, Exclude: "e1"})
	if res.Reason != ReasonFallbackRepeat || res.Question.ID != "h1" {
		t.Errorf("got %s/%s, want h1/fallback_repeat", res.Question.ID, res.Reason)
	}
}

func TestChoose_Remediation(t *testing.T) {
	s := NewSeeded(11)
	rem := &Remediation{Code: "place_value", Remaining: 2}

	res := s.Choose(Request{Questions: catalog(), Target: question.Easy, Remediation: rem})
	if res.Reason != ReasonRemediation || res.Question.ID != "e3" {
		t.Fatalf("got %s/%s, want e3 in band first", res.Question.ID, res.Reason)
	}

	res = s.Choose(Request{Questions: catalog(), Target: question.Easy, Remediation: rem, RemediationRecent: []string{"e3"}})
	if res.Reason != ReasonRemediation || res.Question.ID != "m2" {
		t.Fatalf("got %s/%s, want m2 out of band", res.Question.ID, res.Reason)
	}

	res = s.Choose(Request{Questions: catalog(), Target: question.Easy, Remediation: rem, RemediationRecent: []string{"e3", "m2"}, Exclude: "m2"})
	if res.Reason != ReasonRemediationRepeat || res.Question.ID != "e3" {
		t.Fatalf("got %s/%s, want e3 repeated", res.Question.ID, res.Reason)
	}
}

func TestChoose_RemediationInactive(t *testing.T) {
	s := NewSeeded(5)
	for _, rem := range []*Remediation{nil, {Code: "place_value"}, {Code: " ", Remaining: 2}} {
		res := s.Choose(Request{Questions: catalog(), Target: question.Hard, Remediation: rem})
		if res.Reason != ReasonDifficultyMatch || res.Question.ID != "h1" {
			t.Errorf("remediation %+v: got %s/%s", rem, res.Question.ID, res.Reason)
		}
	}
}

func TestChoose_UnknownCodeFallsThrough(t *testing.T) {
	res := NewSeeded(5).Choose(Request{Questions: catalog(), Target: question.Hard, Remediation: &Remediation{Code: "nope", Remaining: 1}})
	if res.Reason != ReasonDifficultyMatch {
		t.Errorf("reason = %s", res.Reason)
	}
}

func TestChoose_Debug(t *testing.T) {
	res := NewSeeded(1).Choose(Request{Questions: catalog(), Target: question.Medium, Recent: []string{"e1", "m1"}, Exclude: "e2"})
	want := Debug{
		TotalQuestions:       6,
		UnseenQuestions:      3,
		PoolQuestions:        3,
		SameDifficultyInPool: 1,
		TargetDifficulty:     question.Medium,
		RecentCount:          3,
	}
	if res.Debug != want {
		t.Errorf("debug = %+v, want %+v", res.Debug, want)
	}
}

func TestChoose_NoRepeatWithinCycle(t *testing.T) {
	s := NewSeeded(42)
	qs := catalog()
	ids := IDs(qs)

	var recent []string
	last := ""
	seen := map[string]bool{}
	for i := 0; i < len(qs)-1; i++ {
		res := s.Choose(Request{Questions: qs, Target: question.Easy, Recent: recent, Exclude: last})
		if seen[res.Question.ID] {
			t.Fatalf("step %d: repeated %s within cycle (recent %v)", i, res.Question.ID, recent)
		}
		seen[res.Question.ID] = true
		recent = PushRecent(recent, res.Question.ID, ids)
		last = res.Question.ID
	}
}

func TestChoose_Deterministic(t *testing.T) {
	var a, b []string
	for i := 0; i < 20; i++ {
		a = append(a, NewSeeded(9).Choose(Request{Questions: catalog(), Target: question.Easy}).Question.ID)
		b = append(b, NewSeeded(9).Choose(Request{Questions: catalog(), Target: question.Easy}).Question.ID)
	}
	if !slices.Equal(a, b) {
		t.Errorf("same seed diverged: %v vs %v", a, b)
	}
}

func TestPushRecent(t *testing.T) {
	avail := []string{"a", "b", "c"}
	tests := []struct {
		prev []string
		id   string
		want []string
	}{
		{nil, "a", []string{"a"}},
		{[]string{"a"}, "b", []string{"a", "b"}},
		{[]string{"a", "a", "gone"}, "b", []string{"a", "b"}},
		{[]string{"a", "b"}, "a", []string{"a", "b"}},
		{[]string{"a", "b"}, "c", []string{}},
		{[]string{"a"}, "zzz", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v+%s", tt.prev, tt.id), func(t *testing.T) {
			got := PushRecent(tt.prev, tt.id, avail)
			if !slices.Equal(got, tt.want) {
				t.Errorf("PushRecent = %v, want %v", got, tt.want)
			}
		})
	}

	if got := PushRecent([]string{"a"}, "a", nil); len(got) != 0 {
		t.Errorf("empty catalog = %v", got)
	}
}
