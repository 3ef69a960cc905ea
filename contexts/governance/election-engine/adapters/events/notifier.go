package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"orgnet/contexts/governance/election-engine/ports"
)

const defaultNotifyTimeout = 2 * time.Second

// OutboxNotifier queues member notifications as outbox records. The relay
// worker hands them to the notification topic.
type OutboxNotifier struct {
	Outbox  ports.OutboxWriter
	IDGen   ports.IDGenerator
	Clock   ports.Clock
	Timeout time.Duration
	Logger  *slog.Logger
}

type notificationData struct {
	Kind        string            `json:"kind"`
	ElectionID  string            `json:"election_id"`
	Recipients  []string          `json:"recipients"`
	CC          []string          `json:"cc,omitempty"`
	Subject     string            `json:"subject"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
}

func (n OutboxNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	kind := strings.TrimSpace(notification.Kind)
	if kind == "" {
		return errors.New("notification kind is required")
	}
	if len(notification.Recipients) == 0 {
		return nil
	}
	if n.Outbox == nil || n.IDGen == nil {
		return errors.New("notifier is not configured")
	}

	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestedAt := notification.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = n.now()
	}
	payload, err := json.Marshal(notificationData{
		Kind:        kind,
		ElectionID:  notification.ElectionID,
		Recipients:  notification.Recipients,
		CC:          notification.CC,
		Subject:     notification.Subject,
		Attributes:  notification.Attributes,
		RequestedAt: requestedAt.UTC(),
	})
	if err != nil {
		return err
	}
	eventID, err := n.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope := ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "notification." + kind,
		OccurredAt:       requestedAt.UTC(),
		SourceService:    "election-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     notification.ElectionID,
		Data:             payload,
	}
	if err := n.Outbox.AppendOutbox(ctx, envelope); err != nil {
		return err
	}

	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("election notification queued",
		"event", "election_notification_queued",
		"module", "governance/election-engine",
		"layer", "adapter",
		"election_id", notification.ElectionID,
		"kind", kind,
		"recipients", len(notification.Recipients),
	)
	return nil
}

func (n OutboxNotifier) now() time.Time {
	if n.Clock == nil {
		return time.Now().UTC()
	}
	return n.Clock.Now().UTC()
}

var _ ports.Notifier = OutboxNotifier{}
