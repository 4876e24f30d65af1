package diagnosis

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/adaptly/internal/llm"
)

// Detector names the misconception behind a wrong answer. Rules run
// first; when they only reach the generic fallback and a refiner is
// configured, the refiner gets one bounded attempt to be more specific.
type Detector struct {
	classifiers []Classifier
	refiner     *Refiner
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithRefiner enables model refinement through p, bounded by timeout.
// A nil provider leaves refinement off.
func WithRefiner(p llm.Provider, timeout time.Duration) Option {
	return func(d *Detector) {
		if p == nil {
			return
		}
		d.refiner = NewRefiner(p, DefaultRefinerConfig())
		d.timeout = timeout
	}
}

// WithLogger sets the logger for refinement failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{classifiers: DefaultClassifiers(), logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect returns nil for a correct answer and a Result with a non-empty
// code otherwise.
func (d *Detector) Detect(ctx context.Context, in *Input) *Result {
	if in.Correct {
		return nil
	}

	if code, name := RunClassifiers(d.classifiers, in); code != "" {
		return &Result{Code: code, Classifier: name, Confidence: 1}
	}

	generic := &Result{
		Code:       GenericCode(in.Question.Type),
		Classifier: "fallback",
		Generic:    true,
		Confidence: 1,
	}
	if d.refiner == nil || len(in.Candidates) == 0 {
		return generic
	}

	rctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	refined, err := d.refiner.Refine(rctx, in)
	if err != nil {
		d.logger.WarnContext(ctx, "misconception refinement failed",
			"question_id", in.Question.ID, "error", err)
		return generic
	}
	if refined == nil {
		return generic
	}
	return refined
}
