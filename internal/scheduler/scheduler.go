// Package scheduler runs the periodic review sweep: skill states whose
// next review time has passed are published as review.due events.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/events"
	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/metrics"
)

// DefaultBatch bounds one sweep.
const DefaultBatch = 500

// ReviewSource lists due skill states. *store.Store implements it.
type ReviewSource interface {
	DueReviews(ctx context.Context, now time.Time, limit int) ([]mastery.SkillState, error)
}

// Scheduler owns the gocron scheduler and the sweep it runs.
type Scheduler struct {
	cron      *gocron.Scheduler
	source    ReviewSource
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	batch     int
	breakers  []*circuit.Breaker
}

func New(source ReviewSource, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:      cron,
		source:    source,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		batch:     DefaultBatch,
	}
}

// Start runs Sweep every interval in the background, starting now.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	_, err := s.cron.Every(interval).Do(func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.WarnContext(ctx, "review sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule review sweep: %w", err)
	}
	s.cron.StartAsync()
	return nil
}

// WatchBreakers exports the open state of each breaker every interval.
// Call it before Start.
func (s *Scheduler) WatchBreakers(interval time.Duration, breakers ...*circuit.Breaker) error {
	s.breakers = append(s.breakers, breakers...)
	if _, err := s.cron.Every(interval).Do(s.ReportBreakers); err != nil {
		return fmt.Errorf("schedule breaker watch: %w", err)
	}
	return nil
}

// ReportBreakers records the current state of every watched breaker.
func (s *Scheduler) ReportBreakers() {
	for _, b := range s.breakers {
		s.metrics.BreakerOpen(b.Name(), b.State() == circuit.StateOpen)
	}
}

// Stop halts the scheduler and waits for a running sweep.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Sweep publishes one review.due event per due skill state and returns
// how many were due.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.source.DueReviews(ctx, now, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list due reviews: %w", err)
	}
	for _, st := range due {
		dueAt := now
		if st.NextReviewAt != nil {
			dueAt = st.NextReviewAt.UTC()
		}
		ev := events.New(events.TypeReviewDue, now, events.ReviewDue{
			StudentID:    st.StudentID,
			MicroskillID: st.MicroskillID,
			Mastery:      st.Mastery,
			DueAt:        dueAt,
		})
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "publish review due",
				"student_id", st.StudentID, "microskill_id", st.MicroskillID, "error", err)
		}
	}
	s.metrics.ReviewsDue(len(due))
	s.logger.DebugContext(ctx, "review sweep", "due", len(due))
	return len(due), nil
}
