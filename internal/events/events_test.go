package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/segmentio/kafka-go"
)

func TestHubSubscribePublishAndUnsubscribeIdempotent(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch := h.Subscribe(1)
	if err := h.Publish(context.Background(), domain.RequestEvent{Type: domain.EventRequestCreated, RequestID: 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != domain.EventRequestCreated || evt.RequestID != 7 {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	if h.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch := h.Subscribe(1)
	defer h.Unsubscribe(ch)

	ctx := context.Background()
	_ = h.Publish(ctx, domain.RequestEvent{RequestID: 1})
	_ = h.Publish(ctx, domain.RequestEvent{RequestID: 2})

	if got := (<-ch).RequestID; got != 1 {
		t.Fatalf("expected first event to be kept, got %d", got)
	}
	select {
	case evt := <-ch:
		t.Fatalf("expected second event to be dropped, got %+v", evt)
	default:
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), domain.RequestEvent{
		Type:      domain.EventRequestStatusChanged,
		RequestID: 42,
		Status:    domain.StatusApproved,
		At:        at,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "42" {
		t.Fatalf("expected key 42, got %q", msg.Key)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["status"] != "Approved" || decoded["requestId"] != float64(42) {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != domain.EventRequestStatusChanged {
		t.Fatalf("expected event-type header, got %+v", msg.Headers)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("expected writer closed")
	}
}

func TestNewKafkaPublisherValidatesConfig(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{" "}, Topic: "t"}); err == nil {
		t.Fatal("expected brokers error")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Fatal("expected topic error")
	}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "access-requests"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = p.Close()

	var nilPublisher *KafkaPublisher
	if err := nilPublisher.Publish(context.Background(), domain.RequestEvent{}); err == nil {
		t.Fatal("expected error from nil publisher")
	}
}

func TestMultiContinuesPastFailures(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(4)
	defer hub.Unsubscribe(ch)
	broken := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}

	err := Multi{broken, nil, hub}.Publish(context.Background(), domain.RequestEvent{RequestID: 3})
	if err == nil {
		t.Fatal("expected joined error")
	}
	select {
	case evt := <-ch:
		if evt.RequestID != 3 {
			t.Fatalf("unexpected event %+v", evt)
		}
	default:
		t.Fatal("hub should still receive the event")
	}
}
