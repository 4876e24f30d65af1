package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestPublishing(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	ev := New(TypeMisconceptionDetected, at, MisconceptionDetected{SessionID: "s", Code: "off_by_one", Confidence: 1})

	msg, err := publishing(ev)
	if err != nil {
		t.Fatal(err)
	}
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp091.Persistent {
		t.Errorf("headers = %q/%d", msg.ContentType, msg.DeliveryMode)
	}
	if msg.MessageId != ev.ID || msg.Type != "misconception.detected" {
		t.Errorf("id/type = %s/%s", msg.MessageId, msg.Type)
	}
	if !msg.Timestamp.Equal(at) || msg.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v", msg.Timestamp)
	}

	var back struct {
		Type Type `json:"type"`
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg.Body, &back); err != nil {
		t.Fatal(err)
	}
	if back.Type != TypeMisconceptionDetected || back.Data.Code != "off_by_one" {
		t.Errorf("body = %s", msg.Body)
	}
}

func TestMemory(t *testing.T) {
	m := &Memory{}
	ctx := context.Background()
	_ = m.Publish(ctx, New(TypeAttemptRecorded, time.Now(), nil))
	_ = m.Publish(ctx, New(TypeReviewDue, time.Now(), nil))

	if got := len(m.OfType(TypeAttemptRecorded)); got != 1 {
		t.Errorf("attempts = %d", got)
	}

	boom := errors.New("down")
	m.Fail(boom)
	if err := m.Publish(ctx, New(TypeAttemptRecorded, time.Now(), nil)); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if got := len(m.Events()); got != 2 {
		t.Errorf("events = %d", got)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a, b := New(TypeReviewDue, time.Now(), nil), New(TypeReviewDue, time.Now(), nil)
	if a.ID == b.ID || a.ID == "" {
		t.Errorf("ids = %q, %q", a.ID, b.ID)
	}
}
