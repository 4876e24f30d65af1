// Package engine runs the adaptive practice loop: it starts sessions,
// grades submissions, updates mastery and session phase, and picks the
// next question. Every submission for a (student, microskill) pair is
// serialized and committed in one transaction.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/adaptly/internal/catalog"
	"github.com/abhisek/adaptly/internal/diagnosis"
	"github.com/abhisek/adaptly/internal/events"
	"github.com/abhisek/adaptly/internal/lock"
	"github.com/abhisek/adaptly/internal/mastery"
	"github.com/abhisek/adaptly/internal/metrics"
	"github.com/abhisek/adaptly/internal/question"
	"github.com/abhisek/adaptly/internal/selector"
	"github.com/abhisek/adaptly/internal/session"
	"github.com/abhisek/adaptly/internal/store"
)

// DefaultPolicy labels selections when Options.Policy is empty.
const DefaultPolicy = "misconception@v2.0.0"

// Store is the persistence the engine needs. *store.Store implements it.
type Store interface {
	GetSkillState(ctx context.Context, studentID, microskillID string) (*mastery.SkillState, error)
	EnsureSkillState(ctx context.Context, st mastery.SkillState) (*mastery.SkillState, error)
	GetSession(ctx context.Context, id string) (*session.State, error)
	CreateSession(ctx context.Context, st *session.State) error
	FindAttempt(ctx context.Context, key store.ReplayKey) (*store.AttemptRecord, error)
	CommitAttempt(ctx context.Context, c *store.Commit) error
	QueryAttempts(ctx context.Context, f store.AttemptFilter) ([]store.AttemptRecord, error)
	AttemptBounds(ctx context.Context, studentID, microskillID string) (first, last *time.Time, err error)
	MergeSkillStates(ctx context.Context, guestID, studentID string, merge store.MergeFunc) (int, error)
}

// Options wires an Engine. Store and Catalog are required.
type Options struct {
	Store   Store
	Catalog catalog.Source

	// Detector defaults to the rule-based chain without a refiner.
	Detector *diagnosis.Detector

	// Locker defaults to an in-process lock.
	Locker    lock.Locker
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// Now and Rand make the engine deterministic under test.
	Now  func() time.Time
	Rand *rand.Rand

	Policy       string
	TargetStreak int
}

// Engine is safe for concurrent use.
type Engine struct {
	store     Store
	catalog   catalog.Source
	detector  *diagnosis.Detector
	locker    lock.Locker
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	selector  *selector.Selector

	rndMu sync.Mutex
	rnd   *rand.Rand

	policy       string
	targetStreak int
}

func New(opts Options) *Engine {
	e := &Engine{
		store:        opts.Store,
		catalog:      opts.Catalog,
		detector:     opts.Detector,
		locker:       opts.Locker,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
		rnd:          opts.Rand,
		policy:       opts.Policy,
		targetStreak: opts.TargetStreak,
	}
	if e.detector == nil {
		e.detector = diagnosis.NewDetector()
	}
	if e.locker == nil {
		e.locker = lock.NewLocal()
	}
	if e.publisher == nil {
		e.publisher = events.Noop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.rnd == nil {
		seed := uint64(time.Now().UnixNano())
		e.rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	e.selector = selector.New(rand.New(rand.NewPCG(e.rnd.Uint64(), e.rnd.Uint64())))
	if e.policy == "" {
		e.policy = DefaultPolicy
	}
	if e.targetStreak <= 0 {
		e.targetStreak = session.DefaultTargetStreak
	}
	return e
}

// Policy returns the selection policy label.
func (e *Engine) Policy() string { return e.policy }

func (e *Engine) clock() time.Time { return e.now().UTC() }

func (e *Engine) public(q *question.Question) *question.Public {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	return question.ToPublic(q, e.rnd)
}

// lockPair serializes work on one (student, microskill) pair.
func (e *Engine) lockPair(ctx context.Context, studentID, microskillID string) (func(), error) {
	release, err := e.locker.Lock(ctx, lock.Key(studentID, microskillID))
	if err != nil {
		return nil, storageErr("acquire lock", err)
	}
	return release, nil
}

func (e *Engine) questions(ctx context.Context, microskillID string) ([]*question.Question, error) {
	qs, err := e.catalog.Questions(ctx, microskillID)
	if err != nil {
		return nil, storageErr("load catalog", err)
	}
	return qs, nil
}

// loadSession returns the session if it belongs to the pair.
func (e *Engine) loadSession(ctx context.Context, id, studentID, microskillID string) (*session.State, error) {
	st, err := e.store.GetSession(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, &StateConflictError{Reason: "session " + id + " does not exist"}
		}
		return nil, storageErr("load session", err)
	}
	if st.StudentID != studentID || st.MicroskillID != microskillID {
		return nil, &StateConflictError{Reason: "session " + id + " belongs to another student or microskill"}
	}
	return st, nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "publish event", "type", ev.Type, "event_id", ev.ID, "error", err)
	}
}

func trim(s string) string { return strings.TrimSpace(s) }
