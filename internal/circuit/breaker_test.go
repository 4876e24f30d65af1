package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := New("store", Config{Threshold: 3, Cooldown: 10 * time.Second}, clock)
	ctx := context.Background()

	for i := range 3 {
		if err := b.Do(ctx, fail); !errors.Is(err, errDown) {
			t.Fatalf("call %d: err = %v, want errDown", i, err)
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	calls := 0
	err := b.Do(ctx, func(context.Context) error { calls++; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if calls != 0 {
		t.Errorf("open breaker ran the call")
	}
	var open *OpenError
	if !errors.As(err, &open) || open.RetryAfter != 10*time.Second {
		t.Errorf("open error = %+v", open)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := New("store", Config{Threshold: 2, Cooldown: time.Second}, clock)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, ok)
	_ = b.Do(ctx, fail)
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := New("llm", Config{Threshold: 1, Cooldown: 5 * time.Second}, clock)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	clock.Advance(5 * time.Second)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", got)
	}

	// Trial fails: open for another cooldown.
	if err := b.Do(ctx, fail); !errors.Is(err, errDown) {
		t.Fatalf("trial err = %v", err)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	clock.Advance(5 * time.Second)
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("trial err = %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestBreaker_SingleTrialInFlight(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := New("llm", Config{Threshold: 1, Cooldown: time.Second}, clock)
	_ = b.Do(context.Background(), fail)
	clock.Advance(time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("first trial rejected: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("second trial err = %v, want ErrOpen", err)
	}
	b.Record(nil)
	if err := b.Allow(); err != nil {
		t.Errorf("closed breaker rejected: %v", err)
	}
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	b := New("store", Config{Threshold: 1}, &fakeClock{now: time.Unix(0, 0)})
	_ = b.Do(context.Background(), func(context.Context) error { return context.Canceled })
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}
