package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/adapters/memory"
	"orgnet/contexts/governance/election-engine/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestNotifyWithoutRecipientsIsNoop(t *testing.T) {
	store := memory.NewStore(nil)
	notifier := OutboxNotifier{Outbox: store, IDGen: store}
	if err := notifier.Notify(context.Background(), ports.Notification{Kind: "ballot_available", ElectionID: "election-1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no outbox rows, got %d", len(pending))
	}
}

func TestNotifyRequiresKind(t *testing.T) {
	store := memory.NewStore(nil)
	notifier := OutboxNotifier{Outbox: store, IDGen: store}
	if err := notifier.Notify(context.Background(), ports.Notification{Recipients: []string{"member-1"}}); err == nil {
		t.Fatalf("expected missing kind to fail")
	}
}

func TestNotifyQueuesNotificationEnvelope(t *testing.T) {
	store := memory.NewStore(nil)
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	notifier := OutboxNotifier{Outbox: store, IDGen: store, Clock: fixedClock{now: now}}

	err := notifier.Notify(context.Background(), ports.Notification{
		Kind:       "ballot_available",
		ElectionID: "election-1",
		Recipients: []string{"member-1", "member-2"},
		Subject:    "Board election is open",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(pending))
	}
	row := pending[0]
	if row.EventType != "notification.ballot_available" || row.PartitionKey != "election-1" {
		t.Fatalf("unexpected outbox row %+v", row)
	}

	var envelope ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data notificationData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Recipients) != 2 || !data.RequestedAt.Equal(now) || data.Subject != "Board election is open" {
		t.Fatalf("unexpected notification data %+v", data)
	}
}
