package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"
)

// SystemActorID is recorded for transitions performed by workers.
const SystemActorID = "system"

var officerRoles = []string{"election_officer", "admin"}

// requireOfficer checks that the actor may administer elections of the
// organization.
func requireOfficer(
	ctx context.Context,
	directory ports.MembershipDirectory,
	logger *slog.Logger,
	organizationID string,
	actorID string,
) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" || actorID == SystemActorID {
		return domainerrors.ErrForbidden
	}
	roles, err := directory.MemberRoles(ctx, organizationID, actorID)
	if err != nil {
		application.ResolveLogger(logger).Error("officer role lookup failed",
			"event", "election_officer_lookup_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"organization_id", organizationID,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return err
	}
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		for _, allowed := range officerRoles {
			if role == allowed {
				return nil
			}
		}
	}
	return domainerrors.ErrForbidden
}

func loadElection(ctx context.Context, elections ports.ElectionRepository, electionID string) (entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return elections.GetElection(ctx, electionID)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

// notify hands a notification to the channel without letting delivery
// failures reach the caller.
func notify(ctx context.Context, notifier ports.Notifier, logger *slog.Logger, notification ports.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, notification); err != nil {
		application.ResolveLogger(logger).Warn("election notification dropped",
			"event", "election_notification_dropped",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", notification.ElectionID,
			"kind", notification.Kind,
			"error", err.Error(),
		)
	}
}

func normalizeIDs(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	items := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		items = append(items, value)
	}
	return items
}
