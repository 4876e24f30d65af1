// Package smartscore computes the signed score delta shown to a learner
// after each answer.
package smartscore

import (
	"math"

	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/session"
)

const (
	defaultMastery    = 0.5
	defaultConfidence = 0.4

	maxStreakBoost = 1.35
)

// Mode is whether the delta is a gain or a loss.
type Mode string

const (
	ModeGain Mode = "gain"
	ModeLoss Mode = "loss"
)

// Input is one graded answer. Mastery and Confidence are the values after
// the mastery update. Non-finite values fall back to defaults.
type Input struct {
	Correct    bool
	Mastery    float64
	Confidence float64
	Difficulty question.Difficulty
	Phase      session.Phase
	ResponseMs int
	Streak     int
	MissStreak int
}

// Details explains how Delta was reached.
type Details struct {
	MasteryScore         float64             `json:"masteryScore"`
	Confidence           float64             `json:"confidence"`
	DifficultyWeight     float64             `json:"difficultyWeight"`
	PhaseWeight          float64             `json:"phaseWeight"`
	FastGuessPenalty     float64             `json:"fastGuessPenalty"`
	LowConfidencePenalty float64             `json:"lowConfidencePenalty"`
	ResponseMs           int                 `json:"responseMs"`
	Phase                session.Phase       `json:"phase"`
	Difficulty           question.Difficulty `json:"difficulty"`
	Mode                 Mode                `json:"mode"`
	Base                 float64             `json:"base"`

	// gain only
	StreakBoost *float64 `json:"streakBoost,omitempty"`

	// loss only
	PhaseLossWeight      *float64 `json:"phaseLossWeight,omitempty"`
	DifficultyLossWeight *float64 `json:"difficultyLossWeight,omitempty"`
	MissStreak           *int     `json:"missStreak,omitempty"`
}

// Breakdown is a delta and its derivation.
type Breakdown struct {
	Delta   int     `json:"delta"`
	Details Details `json:"details"`
}

// DifficultyWeight scales deltas by question band.
func DifficultyWeight(d question.Difficulty) float64 {
	switch d {
	case question.Medium:
		return 1.2
	case question.Hard:
		return 1.45
	default:
		return 1.0
	}
}

// PhaseWeight scales gains by session phase.
func PhaseWeight(p session.Phase) float64 {
	switch p {
	case session.PhaseWarmup:
		return 0.95
	case session.PhaseChallenge:
		return 1.2
	case session.PhaseRecovery:
		return 0.85
	default:
		return 1.0
	}
}

// Compute returns the delta for in. Correct answers gain at least 1,
// wrong answers lose at least 2.
func Compute(in Input) Breakdown {
	m := safe(in.Mastery, defaultMastery)
	c := safe(in.Confidence, defaultConfidence)
	ms := max(1, in.ResponseMs)
	phase := in.Phase
	if phase == "" {
		phase = session.PhaseCore
	}
	diff := in.Difficulty
	if diff == "" {
		diff = question.Easy
	}

	dw := DifficultyWeight(diff)
	pw := PhaseWeight(phase)

	var fast float64
	switch {
	case ms < 1200:
		fast = 2.2
	case ms < 2200:
		fast = 1.2
	}
	var lowConf float64
	if c < 0.35 {
		lowConf = 0.6
	}

	d := Details{
		MasteryScore:         m,
		Confidence:           c,
		DifficultyWeight:     dw,
		PhaseWeight:          pw,
		FastGuessPenalty:     fast,
		LowConfidencePenalty: lowConf,
		ResponseMs:           ms,
		Phase:                phase,
		Difficulty:           diff,
	}

	if in.Correct {
		base := 2.6 + m*2.8 + c*1.6
		boost := math.Min(maxStreakBoost, 1+float64(max(0, in.Streak))*0.06)
		d.Mode, d.Base, d.StreakBoost = ModeGain, base, &boost
		return Breakdown{Delta: round(math.Max(1, base*dw*pw*boost-fast-lowConf)), Details: d}
	}

	miss := max(0, in.MissStreak)
	base := 3.8 + float64(miss)*0.8
	plw := 1.0
	if phase == session.PhaseRecovery {
		plw = 0.8
	}
	dlw := 0.85 + (dw-1)*0.5
	d.Mode, d.Base = ModeLoss, base
	d.PhaseLossWeight, d.DifficultyLossWeight, d.MissStreak = &plw, &dlw, &miss
	return Breakdown{Delta: -round(math.Max(2, base*plw*dlw+fast)), Details: d}
}

// Estimate reconstructs a delta for a stored attempt that has none,
// without streak context.
func Estimate(correct bool, mastery, confidence float64, d question.Difficulty, p session.Phase, responseMs int) int {
	return Compute(Input{
		Correct:    correct,
		Mastery:    mastery,
		Confidence: confidence,
		Difficulty: d,
		Phase:      p,
		ResponseMs: responseMs,
	}).Delta
}

func safe(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return math.Max(0, math.Min(1, v))
}

// round rounds half up.
func round(v float64) int { return int(math.Floor(v + 0.5)) }
