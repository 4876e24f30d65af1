// Package report renders engine responses for the terminal.
package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptly/internal/analytics"
	"github.com/abhisek/adaptly/internal/engine"
	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/ui/components"
	"github.com/abhisek/adaptly/internal/ui/theme"
)

// Width is the rendered width of bars.
const Width = 40

func field(label, value string) string {
	return theme.Label.Render(label) + value
}

func card(title string, lines ...string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, append([]string{theme.Title.Render(title)}, lines...)...)
	return theme.Card.Render(body)
}

// Start renders a started or resumed session.
func Start(r *engine.StartResponse) string {
	title := "Session started"
	if r.Resumed {
		title = "Session resumed"
	}
	return card(title,
		field("Session", theme.Value.Render(r.SessionID)),
		field("Phase", theme.Phase(string(r.Phase)).Render(string(r.Phase))),
		field("Difficulty", theme.Value.Render(string(r.ActiveDifficulty))),
		field("Policy", theme.Value.Render(r.PolicyVersion)),
		field("Status", theme.Value.Render(string(r.Mastery.Status))),
		components.NewProgressBar("Mastery", r.Mastery.Score, true, Width).View(),
		components.NewProgressBar("Confidence", r.Mastery.Confidence, true, Width).View(),
	)
}

// Question renders a served question and how it was chosen.
func Question(q *question.Public, meta engine.SelectionMeta) string {
	if q == nil {
		return card("No question",
			field("Reason", theme.Hint.Render(string(meta.Reason))),
			field("Phase", theme.Phase(string(meta.Phase)).Render(string(meta.Phase))),
		)
	}

	lines := []string{
		field("Question", theme.Value.Render(q.ID)),
		field("Type", theme.Value.Render(string(q.Type))),
		field("Difficulty", theme.Value.Render(string(q.Difficulty))),
		field("Reason", theme.Hint.Render(string(meta.Reason))),
		field("Phase", theme.Phase(string(meta.Phase)).Render(string(meta.Phase))),
	}
	if meta.RemediationCode != "" {
		lines = append(lines, field("Remediating",
			theme.Warning.Render(fmt.Sprintf("%s (%d left)", meta.RemediationCode, meta.RemediationRemaining))))
	}
	if text := strings.TrimSpace(q.QuestionText); text != "" {
		lines = append(lines, "", theme.Value.Render(text))
	}
	for i, opt := range q.Options {
		lines = append(lines, theme.Value.Render(fmt.Sprintf("  %d) %s", i, opt.Label)))
	}
	return card("Next question", lines...)
}

// Submit renders a graded attempt. replay marks a stored response.
func Submit(r engine.SubmitResponse, replay bool) string {
	verdict := theme.Incorrect.Render("Incorrect")
	if r.Result.IsCorrect {
		verdict = theme.Correct.Render("Correct")
	}
	if replay {
		verdict += theme.Hint.Render("  (replayed)")
	}

	delta := r.SmartScore.Delta
	lines := []string{
		verdict,
		field("SmartScore", theme.Signed(delta).Render(fmt.Sprintf("%+d", delta))),
		field("Mastery", theme.Value.Render(fmt.Sprintf("%.2f → %.2f", r.MasteryUpdate.PrevScore, r.MasteryUpdate.NewScore))),
		field("Difficulty", theme.Value.Render(string(r.MasteryUpdate.DifficultyBand))),
		field("Phase", theme.Phase(string(r.SessionUpdate.Phase)).Render(string(r.SessionUpdate.Phase))),
		field("Streak", theme.Value.Render(fmt.Sprintf("%d", r.SessionUpdate.CurrentStreak))),
		components.NewProgressBar("Accuracy", r.SessionUpdate.Accuracy, true, Width).View(),
	}
	if !r.Result.IsCorrect && r.Result.Feedback.CorrectAnswerDisplay != "" {
		lines = append(lines, field("Answer", theme.Value.Render(r.Result.Feedback.CorrectAnswerDisplay)))
	}
	if s := strings.TrimSpace(r.Result.Feedback.Solution); s != "" {
		lines = append(lines, theme.Hint.Render(s))
	}

	out := card("Result", lines...)
	if r.NextQuestion != nil || r.SelectionMeta.Reason != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, Question(r.NextQuestion, r.SelectionMeta))
	}
	return out
}

// Breakdown renders a score-breakdown report.
func Breakdown(r *analytics.Report) string {
	head := card("Score breakdown",
		field("Student", theme.Value.Render(r.StudentID)),
		field("Microskill", theme.Value.Render(r.MicroskillID)),
		field("Attempts", theme.Value.Render(fmt.Sprintf("%d", r.Count))),
	)
	if r.Count == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, head, diagnostics(r.Diagnostics))
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, summary(r.Summary), rows(r.Rows))
}

func diagnostics(d *analytics.Diagnostics) string {
	if d == nil || !d.HasAnyRows {
		return theme.Hint.Render("No attempts recorded yet.")
	}
	lines := []string{}
	if d.DateFilteredOut {
		lines = append(lines, theme.Warning.Render("All attempts fall outside the date range."))
	}
	if d.FirstAttemptAt != nil {
		lines = append(lines, field("First attempt", theme.Value.Render(d.FirstAttemptAt.Format("2006-01-02 15:04"))))
	}
	if d.LastAttemptAt != nil {
		lines = append(lines, field("Last attempt", theme.Value.Render(d.LastAttemptAt.Format("2006-01-02 15:04"))))
	}
	return card("Diagnostics", lines...)
}

func summary(s analytics.Summary) string {
	var lines []string
	for _, p := range []string{"warmup", "core", "challenge", "recovery", "done"} {
		if n := s.PhaseCounts[p]; n > 0 {
			lines = append(lines, field(p, theme.Phase(p).Render(fmt.Sprintf("%d", n))))
		}
	}
	for _, m := range s.TopMisconceptions {
		lines = append(lines, field("  "+m.Code, theme.Incorrect.Render(fmt.Sprintf("%d", m.Count))))
	}
	f := s.RecoveryFunnel
	lines = append(lines,
		field("Recovery entries", theme.Value.Render(fmt.Sprintf("%d", f.Entries))),
		field("Successful exits", theme.Correct.Render(fmt.Sprintf("%d", f.SuccessfulExits))),
		field("Unresolved", theme.Incorrect.Render(fmt.Sprintf("%d", f.Unresolved))),
		field("Avg attempts/exit", theme.Value.Render(fmt.Sprintf("%.2f", f.AvgAttemptsToExit))),
		field("Remediation hits", theme.Value.Render(fmt.Sprintf("%d / %d", s.RemediationHits, s.RemediationHits+s.RemediationMisses))),
	)
	return card("Summary", lines...)
}

func rows(rs []analytics.Row) string {
	lines := make([]string, 0, len(rs))
	for _, r := range rs {
		mark := theme.Incorrect.Render("✗")
		if r.IsCorrect {
			mark = theme.Correct.Render("✓")
		}
		line := fmt.Sprintf("%s %s %-12s %s %-6s %s",
			theme.Hint.Render(r.CreatedAt.Format("01-02 15:04")),
			mark,
			r.QuestionID,
			theme.Phase(r.Factors.Phase).Render(fmt.Sprintf("%-9s", r.Factors.Phase)),
			r.Factors.Difficulty,
			theme.Signed(r.EstimatedDelta).Render(fmt.Sprintf("%+d", r.EstimatedDelta)),
		)
		if r.Factors.MisconceptionCode != "" {
			line += " " + theme.Warning.Render(r.Factors.MisconceptionCode)
		}
		lines = append(lines, line)
	}
	return card("Attempts", lines...)
}
