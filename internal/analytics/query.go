// Package analytics turns stored attempts into score-breakdown rows and a
// summary of phases, misconceptions and recovery.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit = 30
	MaxLimit     = 200

	// MinFetch is the number of attempts read before the phase filter
	// is applied.
	MinFetch = 120
)

const dayLayout = "2006-01-02"

// Query selects attempts for one (student, microskill) pair.
type Query struct {
	StudentID    string `json:"studentId"`
	MicroskillID string `json:"microSkillId"`
	Limit        int    `json:"limit,omitempty"`

	// DateFrom and DateTo are inclusive UTC calendar days.
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
	Phase    string `json:"phase,omitempty"`
}

// Window is the resolved time range of a Query. Nil bounds are open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Filtered reports whether either bound is set.
func (w Window) Filtered() bool { return w.From != nil || w.To != nil }

// Normalize trims identifiers, clamps the limit and lowercases the phase.
func (q Query) Normalize() Query {
	q.StudentID = strings.TrimSpace(q.StudentID)
	q.MicroskillID = strings.TrimSpace(q.MicroskillID)
	q.DateFrom = strings.TrimSpace(q.DateFrom)
	q.DateTo = strings.TrimSpace(q.DateTo)
	q.Phase = strings.ToLower(strings.TrimSpace(q.Phase))
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	return q
}

// FetchLimit is how many rows to read from storage.
func (q Query) FetchLimit() int { return max(MinFetch, q.Limit) }

// Window parses the date bounds: DateFrom from the start of its day and
// DateTo through the last millisecond of its day.
func (q Query) Window() (Window, error) {
	var w Window
	if q.DateFrom != "" {
		from, err := time.ParseInLocation(dayLayout, q.DateFrom, time.UTC)
		if err != nil {
			return Window{}, fmt.Errorf("dateFrom %q: want YYYY-MM-DD", q.DateFrom)
		}
		w.From = &from
	}
	if q.DateTo != "" {
		day, err := time.ParseInLocation(dayLayout, q.DateTo, time.UTC)
		if err != nil {
			return Window{}, fmt.Errorf("dateTo %q: want YYYY-MM-DD", q.DateTo)
		}
		to := day.Add(24*time.Hour - time.Millisecond)
		w.To = &to
	}
	return w, nil
}
