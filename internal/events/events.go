// Package events publishes engine events after their state is committed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type is an event routing key.
type Type string

const (
	TypeAttemptRecorded       Type = "attempt.recorded"
	TypeMisconceptionDetected Type = "misconception.detected"
	TypeSessionCompleted      Type = "session.completed"
	TypeReviewDue             Type = "review.due"
)

// Event is the published envelope.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// New wraps data in an envelope with a fresh id.
func New(t Type, at time.Time, data any) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC(), Data: data}
}

// AttemptRecorded is published for every fresh submission.
type AttemptRecorded struct {
	Seq          int64   `json:"seq"`
	SessionID    string  `json:"sessionId"`
	StudentID    string  `json:"studentId"`
	MicroskillID string  `json:"microSkillId"`
	QuestionID   string  `json:"questionId"`
	Correct      bool    `json:"isCorrect"`
	Phase        string  `json:"phase"`
	Mastery      float64 `json:"mastery"`
	Delta        int     `json:"smartScoreDelta"`
}

// MisconceptionDetected is published for wrong answers with a code.
type MisconceptionDetected struct {
	SessionID    string  `json:"sessionId"`
	StudentID    string  `json:"studentId"`
	MicroskillID string  `json:"microSkillId"`
	QuestionID   string  `json:"questionId"`
	Code         string  `json:"code"`
	Classifier   string  `json:"classifier"`
	Confidence   float64 `json:"confidence"`
}

// SessionCompleted is published when a session reaches done.
type SessionCompleted struct {
	SessionID    string  `json:"sessionId"`
	StudentID    string  `json:"studentId"`
	MicroskillID string  `json:"microSkillId"`
	Asked        int     `json:"askedCount"`
	Accuracy     float64 `json:"accuracy"`
}

// ReviewDue is published by the review sweep.
type ReviewDue struct {
	StudentID    string    `json:"studentId"`
	MicroskillID string    `json:"microSkillId"`
	Mastery      float64   `json:"mastery"`
	DueAt        time.Time `json:"dueAt"`
}

// Publisher delivers events. Publish failures never undo committed state;
// callers log them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Memory keeps published events, for tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// Fail makes subsequent publishes return err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of what was published.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// OfType returns published events of type t.
func (m *Memory) OfType(t Type) []Event {
	var out []Event
	for _, ev := range m.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
