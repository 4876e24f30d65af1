// Package metrics holds the Prometheus collectors the engine reports to.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	submissions      *prometheus.CounterVec
	selections       *prometheus.CounterVec
	misconceptions   *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	submitDuration   *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
	reviewsDue       prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptly_submissions_total",
				Help: "Submissions by correctness and source (fresh or idempotent_replay)",
			},
			[]string{"correct", "source"},
		),
		selections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptly_question_selections_total",
				Help: "Next-question selections by reason",
			},
			[]string{"reason"},
		),
		misconceptions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptly_misconceptions_total",
				Help: "Detected misconceptions by classifier",
			},
			[]string{"classifier"},
		),
		phaseTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adaptly_phase_transitions_total",
				Help: "Session phase changes",
			},
			[]string{"from", "to"},
		),
		submitDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adaptly_submit_duration_seconds",
				Help:    "Time spent processing a submission",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		breakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "adaptly_circuit_open",
				Help: "1 while the named circuit breaker is open",
			},
			[]string{"name"},
		),
		reviewsDue: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "adaptly_reviews_due",
				Help: "Skill states due for review at the last sweep",
			},
		),
	}
}

// Registry returns the registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Submission records one SubmitAndNext call.
func (m *Metrics) Submission(correct bool, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(strconv.FormatBool(correct), source).Inc()
	m.submitDuration.WithLabelValues(source).Observe(d.Seconds())
}

// Selection records why a question was chosen.
func (m *Metrics) Selection(reason string) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(reason).Inc()
}

// Misconception records a detected misconception.
func (m *Metrics) Misconception(classifier string) {
	if m == nil {
		return
	}
	m.misconceptions.WithLabelValues(classifier).Inc()
}

// PhaseTransition records a phase change; unchanged phases are ignored.
func (m *Metrics) PhaseTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.phaseTransitions.WithLabelValues(from, to).Inc()
}

// BreakerOpen sets whether the named breaker is open.
func (m *Metrics) BreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

// ReviewsDue sets the due-review gauge.
func (m *Metrics) ReviewsDue(n int) {
	if m == nil {
		return
	}
	m.reviewsDue.Set(float64(n))
}
