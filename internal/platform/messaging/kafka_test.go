package messaging

import (
	"context"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/ports"
)

func TestPublishDeliversToTopicSubscribers(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	err = bus.Subscribe(ctx, "election.audit", "audit-sink", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(ctx, "election.notification", ports.EventEnvelope{EventID: "evt-other"}); err != nil {
		t.Fatalf("publish other topic: %v", err)
	}
	if err := bus.Publish(ctx, "election.audit", ports.EventEnvelope{EventID: "evt-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "evt-1" {
			t.Fatalf("expected evt-1, got %s", event.EventID)
		}
	case <-time.After(time.Second):
		t.Fatalf("event was not delivered")
	}
}

func TestNewKafkaRequiresBroker(t *testing.T) {
	if _, err := NewKafka([]string{" ", ""}, nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestPublishRejectsCancelledContext(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Publish(ctx, "election.audit", ports.EventEnvelope{EventID: "evt-1"}); err == nil {
		t.Fatalf("expected cancelled context error")
	}
}
