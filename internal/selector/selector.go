// Package selector picks the next question for a session.
package selector

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/adaptly/internal/question"
)

// Reason says which rule produced a selection. Anything other than
// ReasonRemediation and ReasonDifficultyMatch is a degraded pick.
type Reason string

const (
	ReasonRemediation       Reason = "misconception_remediation"
	ReasonRemediationRepeat Reason = "misconception_remediation_repeat"
	ReasonDifficultyMatch   Reason = "difficulty_match"
	ReasonAdjacentBand      Reason = "adjacent_band"
	ReasonFallbackAny       Reason = "fallback_any"
	ReasonDifficultyRecent  Reason = "difficulty_match_recent"
	ReasonFallbackRepeat    Reason = "fallback_repeat"
	ReasonNoQuestions       Reason = "no_questions"
	ReasonSessionComplete   Reason = "session_complete"
)

// Remediation asks for questions tagged with Code.
type Remediation struct {
	Code      string
	Remaining int
}

func (r *Remediation) active() bool {
	return r != nil && strings.TrimSpace(r.Code) != "" && r.Remaining > 0
}

// Request is the selection input.
type Request struct {
	Questions         []*question.Question
	Target            question.Difficulty
	Recent            []string
	RemediationRecent []string

	// Exclude is never returned.
	Exclude     string
	Remediation *Remediation
}

// Debug describes the candidate pool.
type Debug struct {
	TotalQuestions       int                 `json:"totalQuestions"`
	UnseenQuestions      int                 `json:"unseenQuestions"`
	PoolQuestions        int                 `json:"poolQuestions"`
	SameDifficultyInPool int                 `json:"sameDifficultyInPool"`
	TargetDifficulty     question.Difficulty `json:"targetDifficulty"`
	RecentCount          int                 `json:"recentCount"`
}

// Result is a selection. Question is nil only for ReasonNoQuestions.
type Result struct {
	Question *question.Question
	Reason   Reason
	Debug    Debug
}

// Selector breaks ties uniformly at random. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Selector drawing from rnd, or from a time-seeded PCG
// when rnd is nil.
func New(rnd *rand.Rand) *Selector {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Selector{rnd: rnd}
}

// NewSeeded returns a deterministic Selector.
func NewSeeded(seed uint64) *Selector {
	return New(rand.New(rand.NewPCG(seed, seed)))
}

func (s *Selector) pick(qs []*question.Question) *question.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return qs[s.rnd.IntN(len(qs))]
}

// Choose applies the selection policy. Unseen questions are exhausted
// across every band before a recently asked one is repeated.
func (s *Selector) Choose(req Request) Result {
	target := req.Target
	if target == "" {
		target = question.Easy
	}

	recent := toSet(req.Recent)
	if req.Exclude != "" {
		recent[req.Exclude] = struct{}{}
	}
	remRecent := toSet(req.RemediationRecent)

	notExcluded := filter(req.Questions, func(q *question.Question) bool { return q.ID != req.Exclude })
	unseen := filter(req.Questions, func(q *question.Question) bool { _, seen := recent[q.ID]; return !seen })
	pool := unseen
	if len(pool) == 0 {
		pool = notExcluded
	}
	inBand := func(q *question.Question) bool { return q.Difficulty == target }

	debug := Debug{
		TotalQuestions:       len(req.Questions),
		UnseenQuestions:      len(unseen),
		PoolQuestions:        len(pool),
		SameDifficultyInPool: len(filter(pool, inBand)),
		TargetDifficulty:     target,
		RecentCount:          len(recent),
	}
	result := func(qs []*question.Question, r Reason) Result {
		return Result{Question: s.pick(qs), Reason: r, Debug: debug}
	}

	if len(notExcluded) == 0 {
		return Result{Reason: ReasonNoQuestions, Debug: debug}
	}

	if rem := req.Remediation; rem.active() {
		tagged := filter(notExcluded, func(q *question.Question) bool { return q.Remediates(rem.Code) })
		fresh := filter(tagged, func(q *question.Question) bool { _, used := remRecent[q.ID]; return !used })
		if len(fresh) > 0 {
			return result(prefer(prefer(fresh, func(q *question.Question) bool { _, seen := recent[q.ID]; return !seen }), inBand), ReasonRemediation)
		}
		if len(tagged) > 0 {
			return result(prefer(tagged, inBand), ReasonRemediationRepeat)
		}
	}

	if c := filter(unseen, inBand); len(c) > 0 {
		return result(c, ReasonDifficultyMatch)
	}
	if c := filter(unseen, func(q *question.Question) bool { return q.Difficulty.Distance(target) == 1 }); len(c) > 0 {
		return result(c, ReasonAdjacentBand)
	}
	if len(unseen) > 0 {
		return result(unseen, ReasonFallbackAny)
	}
	if c := filter(notExcluded, inBand); len(c) > 0 {
		return result(c, ReasonDifficultyRecent)
	}
	return result(notExcluded, ReasonFallbackRepeat)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids)+1)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func filter(qs []*question.Question, keep func(*question.Question) bool) []*question.Question {
	var out []*question.Question
	for _, q := range qs {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

// prefer narrows qs to those matching keep, unless none do.
func prefer(qs []*question.Question, keep func(*question.Question) bool) []*question.Question {
	if narrowed := filter(qs, keep); len(narrowed) > 0 {
		return narrowed
	}
	return qs
}
