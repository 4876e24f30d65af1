// Package circuit guards calls to external collaborators. After a run of
// consecutive failures the breaker opens for a cooldown window and
// rejects calls without attempting them; after the window one trial call
// is let through to decide whether to close again.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// ErrOpen is matched by every error returned for a rejected call.
var ErrOpen = errors.New("circuit open")

// OpenError reports a call rejected by an open breaker.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: circuit open (retry after %s)", e.Name, e.RetryAfter.Round(time.Millisecond))
}

func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// State is the breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config tunes a breaker.
type Config struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	Threshold int

	// Cooldown is how long the breaker stays open. Default: 30s.
	Cooldown time.Duration

	// IsFailure decides which errors count. Default: any error except
	// context cancellation.
	IsFailure func(error) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Threshold: 5, Cooldown: 30 * time.Second}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name  string
	cfg   Config
	clock Clock

	mu        sync.Mutex
	failures  int
	openUntil time.Time
	trial     bool // a half-open trial call is in flight
}

// New creates a closed breaker. A nil clock uses SystemClock.
func New(name string, cfg Config, clock Clock) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Breaker{name: name, cfg: cfg, clock: clock}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Name returns the collaborator name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(b.clock.Now())
}

func (b *Breaker) stateLocked(now time.Time) State {
	switch {
	case b.openUntil.IsZero():
		return StateClosed
	case now.Before(b.openUntil):
		return StateOpen
	default:
		return StateHalfOpen
	}
}

// Allow reserves a call. It returns an *OpenError while the breaker is
// open, or while a half-open trial is already in flight.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	switch b.stateLocked(now) {
	case StateOpen:
		return &OpenError{Name: b.name, RetryAfter: b.openUntil.Sub(now)}
	case StateHalfOpen:
		if b.trial {
			return &OpenError{Name: b.name, RetryAfter: b.cfg.Cooldown}
		}
		b.trial = true
	}
	return nil
}

// Record reports the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasTrial := b.trial
	b.trial = false

	if !b.cfg.IsFailure(err) {
		b.failures = 0
		b.openUntil = time.Time{}
		return
	}

	b.failures++
	if wasTrial || b.failures >= b.cfg.Threshold {
		b.openUntil = b.clock.Now().Add(b.cfg.Cooldown)
	}
}

// Do runs fn through the breaker.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.Record(err)
	return err
}
