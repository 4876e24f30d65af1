package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Submission(true, "fresh", 20*time.Millisecond)
	m.Submission(true, "fresh", 10*time.Millisecond)
	m.Submission(false, "idempotent_replay", time.Millisecond)
	m.Selection("difficulty_match")
	m.PhaseTransition("warmup", "core")
	m.PhaseTransition("core", "core")
	m.ReviewsDue(3)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("true", "fresh")); got != 2 {
		t.Errorf("fresh correct = %v", got)
	}
	if got := testutil.ToFloat64(m.phaseTransitions.WithLabelValues("core", "core")); got != 0 {
		t.Errorf("self transition counted: %v", got)
	}
	if got := testutil.ToFloat64(m.reviewsDue); got != 3 {
		t.Errorf("reviews due = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"adaptly_submissions_total", "adaptly_question_selections_total", "adaptly_submit_duration_seconds_bucket"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Submission(true, "fresh", time.Second)
	m.Selection("x")
	m.Misconception("rules")
	m.PhaseTransition("a", "b")
	m.BreakerOpen("llm", true)
	m.ReviewsDue(1)
}
