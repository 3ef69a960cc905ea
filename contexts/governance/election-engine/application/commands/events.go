package commands

import (
	"context"
	"encoding/json"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	"orgnet/contexts/governance/election-engine/ports"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeRejected  = "rejected"
)

func newElectionEnvelope(
	eventID string,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Audit events are partitioned by election so one election's history
	// stays ordered for the audit sink.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "election-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     electionID,
		Data:             payload,
	}, nil
}

// auditEnvelope builds the audit record every state change carries. Actor,
// timestamp and outcome are always present.
func auditEnvelope(
	ctx context.Context,
	idGen ports.IDGenerator,
	eventType string,
	electionID string,
	actorID string,
	outcome string,
	occurredAt time.Time,
	metadata map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	data := map[string]any{
		"election_id": electionID,
		"actor_id":    actorID,
		"outcome":     outcome,
		"occurred_at": occurredAt.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range metadata {
		data[key] = value
	}
	return newElectionEnvelope(eventID, eventType, electionID, occurredAt, data)
}

func electionSnapshot(election entities.Election) map[string]any {
	return map[string]any{
		"title":                       election.Title,
		"organization_id":             election.OrganizationID,
		"positions":                   election.Positions,
		"voting_method":               string(election.VotingMethod),
		"victory_condition":           string(election.VictoryCondition),
		"runoff_type":                 string(election.RunoffType),
		"anonymous":                   election.Anonymous,
		"status":                      string(election.Status),
		"start_date":                  election.StartDate.UTC().Format(time.RFC3339),
		"end_date":                    election.EndDate.UTC().Format(time.RFC3339),
		"results_visible_immediately": election.ResultsVisibleImmediately,
		"eligible_voter_count":        len(election.EligibleVoters),
	}
}
