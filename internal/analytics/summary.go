package analytics

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/abhisek/adaptly/internal/selector"
	"github.com/abhisek/adaptly/internal/session"
)

// TopMisconceptions is how many codes the summary ranks.
const TopMisconceptions = 6

// Summary aggregates a list of rows.
type Summary struct {
	PhaseCounts       map[string]int       `json:"phaseCounts"`
	TopMisconceptions []MisconceptionCount `json:"topMisconceptions"`
	RecoveryFunnel    Funnel               `json:"recoveryFunnel"`
	RemediationHits   int                  `json:"remediationHits"`
	RemediationMisses int                  `json:"remediationMisses"`

	// PolicyMajors counts rows per policy name and major version,
	// e.g. "misconception@v2".
	PolicyMajors map[string]int `json:"policyMajors"`
}

// MisconceptionCount is one ranked code.
type MisconceptionCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Funnel describes recovery runs.
type Funnel struct {
	Entries           int     `json:"entries"`
	SuccessfulExits   int     `json:"successfulExits"`
	Unresolved        int     `json:"unresolved"`
	AvgAttemptsToExit float64 `json:"avgAttemptsToExit"`
}

// Summarize aggregates rows ordered newest first.
func Summarize(rows []Row) Summary {
	s := Summary{
		PhaseCounts:       map[string]int{},
		TopMisconceptions: []MisconceptionCount{},
		PolicyMajors:      map[string]int{},
	}

	counts := map[string]int{}
	var order []string
	phases := make([]string, len(rows))
	for i, r := range rows {
		phase := r.Factors.Phase
		if phase == "" {
			phase = string(session.PhaseCore)
		}
		s.PhaseCounts[phase]++
		// Funnel replays chronologically.
		phases[len(rows)-1-i] = phase

		if code := strings.TrimSpace(r.Factors.MisconceptionCode); code != "" {
			if counts[code] == 0 {
				order = append(order, code)
			}
			counts[code]++
		}

		switch selector.Reason(r.SelectionMeta.Reason) {
		case selector.ReasonRemediation, selector.ReasonRemediationRepeat:
			s.RemediationHits++
		default:
			if strings.TrimSpace(r.SelectionMeta.RemediationCode) != "" {
				s.RemediationMisses++
			}
		}

		if key := policyMajor(r.SelectionMeta.Policy); key != "" {
			s.PolicyMajors[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	for _, code := range order[:min(len(order), TopMisconceptions)] {
		s.TopMisconceptions = append(s.TopMisconceptions, MisconceptionCount{Code: code, Count: counts[code]})
	}

	s.RecoveryFunnel = RecoveryFunnel(phases)
	return s
}

// RecoveryFunnel replays phases oldest first. Each maximal run of recovery
// is an entry; a run followed by any other phase is an exit, and a run
// still open at the end is unresolved.
func RecoveryFunnel(phases []string) Funnel {
	var (
		f        Funnel
		open     bool
		run      int
		attempts []int
	)
	for _, p := range phases {
		if p == string(session.PhaseRecovery) {
			if !open {
				open = true
				f.Entries++
				run = 0
			}
			run++
			continue
		}
		if open {
			f.SuccessfulExits++
			attempts = append(attempts, max(1, run))
			open = false
		}
	}
	if open {
		f.Unresolved = 1
	}
	if len(attempts) > 0 {
		var total int
		for _, n := range attempts {
			total += n
		}
		f.AvgAttemptsToExit = math.Round(float64(total)/float64(len(attempts))*100) / 100
	}
	return f
}

// policyMajor maps "name@v2.1.0" to "name@v2". Policies without a valid
// semver suffix are grouped under their name with "@unknown".
func policyMajor(policy string) string {
	policy = strings.TrimSpace(policy)
	if policy == "" {
		return ""
	}
	name, version, _ := strings.Cut(policy, "@")
	if major := semver.Major(version); major != "" {
		return name + "@" + major
	}
	return name + "@unknown"
}
