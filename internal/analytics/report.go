package analytics

import "time"

// Report is a score breakdown.
type Report struct {
	StudentID    string       `json:"studentId"`
	MicroskillID string       `json:"microSkillId"`
	Count        int          `json:"count"`
	Summary      Summary      `json:"summary"`
	Diagnostics  *Diagnostics `json:"diagnostics"`
	Rows         []Row        `json:"rows"`
}

// Diagnostics explains an empty report.
type Diagnostics struct {
	HasAnyRows      bool       `json:"hasAnyRows"`
	DateFilteredOut bool       `json:"dateFilteredOut"`
	FirstAttemptAt  *time.Time `json:"firstAttemptAt"`
	LastAttemptAt   *time.Time `json:"lastAttemptAt"`
}

// Build projects attempts (newest first, already date-bounded), applies
// the phase filter and limit, and summarizes the result. When no rows
// remain, diagnostics is called to explain why.
func Build(q Query, attempts []Attempt, diagnostics func() (*Diagnostics, error)) (Report, error) {
	rows := make([]Row, 0, len(attempts))
	for _, a := range attempts {
		r := Project(a)
		if q.Phase != "" && r.Factors.Phase != q.Phase {
			continue
		}
		rows = append(rows, r)
	}
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	rep := Report{
		StudentID:    q.StudentID,
		MicroskillID: q.MicroskillID,
		Count:        len(rows),
		Summary:      Summarize(rows),
		Rows:         rows,
	}
	if len(rows) == 0 && diagnostics != nil {
		d, err := diagnostics()
		if err != nil {
			return Report{}, err
		}
		rep.Diagnostics = d
	}
	return rep, nil
}

// NewDiagnostics reports the first and last attempt ever recorded.
func NewDiagnostics(w Window, first, last *time.Time) *Diagnostics {
	has := first != nil || last != nil
	return &Diagnostics{
		HasAnyRows:      has,
		DateFilteredOut: has && w.Filtered(),
		FirstAttemptAt:  first,
		LastAttemptAt:   last,
	}
}
