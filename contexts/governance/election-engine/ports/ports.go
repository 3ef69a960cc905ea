package ports

import (
	"context"
	"encoding/json"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
)

// Every mutating repository method persists its audit envelope in the same
// transaction as the state change.

type ElectionRepository interface {
	CreateElection(ctx context.Context, election entities.Election, salt *entities.ElectionSalt, audit EventEnvelope) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	// UpdateElection fails with ErrInvalidStateTransition when the stored
	// status no longer equals expected.
	UpdateElection(ctx context.Context, election entities.Election, expected entities.ElectionStatus, audit EventEnvelope) error
	// RollbackElection hard-deletes every vote of a CLOSED election and
	// returns it to DRAFT. It reports the number of deleted vote rows.
	RollbackElection(ctx context.Context, electionID string, updatedAt time.Time, audit EventEnvelope) (int, error)
	ListElectionsEndedBefore(ctx context.Context, status entities.ElectionStatus, before time.Time, limit int) ([]entities.Election, error)
	ListElectionsByStatus(ctx context.Context, organizationID string, status entities.ElectionStatus) ([]entities.Election, error)
}

type CandidateRepository interface {
	CreateCandidate(ctx context.Context, candidate entities.Candidate, audit EventEnvelope) error
	UpdateCandidate(ctx context.Context, candidate entities.Candidate, audit EventEnvelope) error
	GetCandidate(ctx context.Context, candidateID string) (entities.Candidate, error)
	ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error)
}

type SaltVault interface {
	GetSalt(ctx context.Context, electionID string) (entities.ElectionSalt, error)
	// DestroySalt wipes the key of a CLOSED election. It is not reversible.
	DestroySalt(ctx context.Context, electionID string, destroyedAt time.Time, audit EventEnvelope) error
}

type BallotLedger interface {
	// AppendBallot inserts every row of one ballot atomically. A storage
	// uniqueness violation surfaces as ErrAlreadyVoted and a revoked proxy
	// authorization as ErrRevokedAuthorization.
	AppendBallot(ctx context.Context, ballot Ballot, audit EventEnvelope) error
	HasVoted(ctx context.Context, electionID string, position string, key entities.VoterKey) (bool, error)
	GetVote(ctx context.Context, voteID string) (entities.Vote, error)
	// VoidBallot soft-deletes every live row of the ballot.
	VoidBallot(ctx context.Context, electionID string, ballotID string, deletedAt time.Time, deletedBy string, reason string, audit EventEnvelope) (int, error)
	ListContestVotes(ctx context.Context, electionID string, position string) ([]entities.Vote, error)
	CountContestVotes(ctx context.Context, electionID string, position string) (int, error)
	CountContestBallots(ctx context.Context, electionID string, position string) (ballots int, proxyBallots int, err error)
}

type DelegationRepository interface {
	GetVoterOverride(ctx context.Context, electionID string, userID string) (entities.VoterOverride, bool, error)
	// SaveVoterOverrides skips users that already hold an override and
	// reports how many were created.
	SaveVoterOverrides(ctx context.Context, overrides []entities.VoterOverride, audit EventEnvelope) (int, error)
	DeleteVoterOverride(ctx context.Context, electionID string, userID string, audit EventEnvelope) error
	// CreateProxyAuthorization rejects chains (ErrProxyChainForbidden) and a
	// second active authorization for the same delegating user (ErrConflict).
	CreateProxyAuthorization(ctx context.Context, authorization entities.ProxyAuthorization, audit EventEnvelope) error
	GetProxyAuthorization(ctx context.Context, authorizationID string) (entities.ProxyAuthorization, error)
	ListProxyAuthorizations(ctx context.Context, electionID string, organizationID string) ([]entities.ProxyAuthorization, error)
	// RevokeProxyAuthorization fails with ErrAuthorizationConsumed when a
	// live proxy vote exists for any of uses.
	RevokeProxyAuthorization(ctx context.Context, authorizationID string, uses []ProxyUse, revokedAt time.Time, revokedBy string, audit EventEnvelope) (entities.ProxyAuthorization, error)
}

// Ballot is the unit of one cast request. AuthorizationID is set for proxy
// ballots and is re-checked for revocation inside the insert transaction.
type Ballot struct {
	ElectionID      string
	Position        string
	AuthorizationID string
	Votes           []entities.Vote
}

// ProxyUse is a ledger key a proxy authorization may have voted under.
type ProxyUse struct {
	ElectionID string
	Key        entities.VoterKey
}

// MembershipDirectory is the organization membership and role collaborator.
type MembershipDirectory interface {
	IsActiveMember(ctx context.Context, organizationID string, userID string) (bool, error)
	MemberRoles(ctx context.Context, organizationID string, userID string) ([]string, error)
	VotingPolicy(ctx context.Context, organizationID string, userID string) (entities.TierVotingPolicy, error)
}

// AttendanceSource reports meeting attendance as a percentage in [0, 100].
type AttendanceSource interface {
	AttendancePercentage(ctx context.Context, organizationID string, userID string, from time.Time, to time.Time) (float64, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// Notifier delivers member notifications. Callers never wait on delivery.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type Notification struct {
	Kind        string
	ElectionID  string
	Recipients  []string
	CC          []string
	Subject     string
	Attributes  map[string]string
	RequestedAt time.Time
}

// Metrics records engine counters. A nil Metrics is a no-op.
type Metrics interface {
	VoteCast(kind string)
	VoteRejected(reason string)
	ElectionTransition(to entities.ElectionStatus)
	ConsistencyFailure()
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
