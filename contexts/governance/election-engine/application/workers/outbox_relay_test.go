package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/adapters/memory"
	"orgnet/contexts/governance/election-engine/application/commands"
	"orgnet/contexts/governance/election-engine/domain/entities"
	"orgnet/contexts/governance/election-engine/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type publishedEvent struct {
	topic string
	event ports.EventEnvelope
}

type fakePublisher struct {
	published []publishedEvent
	failOn    string
}

func (p *fakePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failOn != "" && event.EventID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, publishedEvent{topic: topic, event: event})
	return nil
}

var now = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func appendEnvelope(t *testing.T, store *memory.Store, eventID string, eventType string) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    now,
		SchemaVersion: 1,
		PartitionKey:  "election-1",
		Data:          []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("append outbox: %v", err)
	}
}

func TestOutboxRelayRoutesByEventType(t *testing.T) {
	store := memory.NewStore(nil)
	appendEnvelope(t, store, "evt-1", "election.opened")
	appendEnvelope(t, store, "evt-2", "notification.ballot_available")

	publisher := &fakePublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: fixedClock{now: now}}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected two published events, got %d", len(publisher.published))
	}
	if publisher.published[0].topic != DefaultAuditTopic || publisher.published[1].topic != DefaultNotificationTopic {
		t.Fatalf("unexpected topics %q and %q", publisher.published[0].topic, publisher.published[1].topic)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending", len(pending))
	}
}

func TestOutboxRelayHonoursConfiguredTopics(t *testing.T) {
	store := memory.NewStore(nil)
	appendEnvelope(t, store, "evt-1", "election.closed")
	appendEnvelope(t, store, "evt-2", "notification.election_closed")

	publisher := &fakePublisher{}
	relay := OutboxRelay{
		Outbox:            store,
		Publisher:         publisher,
		AuditTopic:        "org.audit",
		NotificationTopic: "org.notify",
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if publisher.published[0].topic != "org.audit" || publisher.published[1].topic != "org.notify" {
		t.Fatalf("unexpected topics %+v", publisher.published)
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	store := memory.NewStore(nil)
	appendEnvelope(t, store, "evt-1", "election.opened")
	appendEnvelope(t, store, "evt-2", "election.vote_cast")
	appendEnvelope(t, store, "evt-3", "election.closed")

	publisher := &fakePublisher{failOn: "evt-2"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].OutboxID != "evt-2" || pending[1].OutboxID != "evt-3" {
		t.Fatalf("expected evt-2 and evt-3 to stay pending in order, got %+v", pending)
	}

	publisher.failOn = ""
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(publisher.published) != 3 || publisher.published[1].event.EventID != "evt-2" {
		t.Fatalf("expected retry to publish remaining rows in order, got %+v", publisher.published)
	}
}

func TestOutboxRelayNoopOnEmptyOutbox(t *testing.T) {
	publisher := &fakePublisher{}
	relay := OutboxRelay{Outbox: memory.NewStore(nil), Publisher: publisher}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestElectionCloserClosesExpiredElections(t *testing.T) {
	store := memory.NewStore([]entities.Election{
		{
			ElectionID:       "expired",
			OrganizationID:   "org-1",
			Title:            "Expired",
			VotingMethod:     entities.VotingMethodSimpleMajority,
			VictoryCondition: entities.VictoryConditionMostVotes,
			Status:           entities.ElectionStatusOpen,
			StartDate:        now.Add(-48 * time.Hour),
			EndDate:          now.Add(-time.Hour),
		},
		{
			ElectionID:       "running",
			OrganizationID:   "org-1",
			Title:            "Running",
			VotingMethod:     entities.VotingMethodSimpleMajority,
			VictoryCondition: entities.VictoryConditionMostVotes,
			Status:           entities.ElectionStatusOpen,
			StartDate:        now.Add(-time.Hour),
			EndDate:          now.Add(time.Hour),
		},
	})
	closer := ElectionCloser{
		Lifecycle: commands.LifecycleUseCase{
			Elections:  store,
			Candidates: store,
			Salts:      store,
			Ledger:     store,
			Directory:  store,
			Clock:      fixedClock{now: now},
			IDGen:      store,
		},
		BatchSize: 10,
	}
	if err := closer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	expired, err := store.GetElection(context.Background(), "expired")
	if err != nil {
		t.Fatalf("get expired: %v", err)
	}
	if expired.Status != entities.ElectionStatusClosed {
		t.Fatalf("expected expired election closed, got %s", expired.Status)
	}
	running, err := store.GetElection(context.Background(), "running")
	if err != nil {
		t.Fatalf("get running: %v", err)
	}
	if running.Status != entities.ElectionStatusOpen {
		t.Fatalf("expected running election to stay open, got %s", running.Status)
	}

	if err := closer.RunOnce(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
}
