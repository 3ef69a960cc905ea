package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-process implementation of every election port. All
// writes happen under one mutex, which is what makes the ledger
// uniqueness check and the insert a single step.
type Store struct {
	mu sync.RWMutex

	elections   map[string]entities.Election
	salts       map[string]entities.ElectionSalt
	candidates  map[string]entities.Candidate
	votes       map[string]entities.Vote
	overrides   map[string]entities.VoterOverride
	proxies     map[string]entities.ProxyAuthorization
	outbox      map[string]outboxRecord
	outboxOrder []string

	members    map[string]bool
	roles      map[string][]string
	policies   map[string]entities.TierVotingPolicy
	attendance map[string]float64

	now func() time.Time
}

var (
	_ ports.ElectionRepository   = (*Store)(nil)
	_ ports.CandidateRepository  = (*Store)(nil)
	_ ports.SaltVault            = (*Store)(nil)
	_ ports.BallotLedger         = (*Store)(nil)
	_ ports.DelegationRepository = (*Store)(nil)
	_ ports.MembershipDirectory  = (*Store)(nil)
	_ ports.AttendanceSource     = (*Store)(nil)
	_ ports.OutboxWriter         = (*Store)(nil)
	_ ports.OutboxRepository     = (*Store)(nil)
	_ ports.Clock                = (*Store)(nil)
	_ ports.IDGenerator          = (*Store)(nil)
)

func NewStore(seed []entities.Election) *Store {
	elections := make(map[string]entities.Election, len(seed))
	for _, election := range seed {
		elections[election.ElectionID] = cloneElection(election)
	}
	return &Store{
		elections:  elections,
		salts:      make(map[string]entities.ElectionSalt),
		candidates: make(map[string]entities.Candidate),
		votes:      make(map[string]entities.Vote),
		overrides:  make(map[string]entities.VoterOverride),
		proxies:    make(map[string]entities.ProxyAuthorization),
		outbox:     make(map[string]outboxRecord),
		members:    make(map[string]bool),
		roles:      make(map[string][]string),
		policies:   make(map[string]entities.TierVotingPolicy),
		attendance: make(map[string]float64),
	}
}

func memberKey(organizationID string, userID string) string {
	return strings.TrimSpace(organizationID) + "|" + strings.TrimSpace(userID)
}

func overrideKey(electionID string, userID string) string {
	return strings.TrimSpace(electionID) + "|" + strings.TrimSpace(userID)
}

func (s *Store) SetMember(organizationID string, userID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey(organizationID, userID)] = active
}

func (s *Store) SetRoles(organizationID string, userID string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[memberKey(organizationID, userID)] = append([]string(nil), roles...)
}

func (s *Store) SetTierPolicy(organizationID string, userID string, policy entities.TierVotingPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[memberKey(organizationID, userID)] = policy
}

func (s *Store) SetAttendance(organizationID string, userID string, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[memberKey(organizationID, userID)] = percent
}

// SetClock replaces the store clock; nil restores wall time.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateElection(
	_ context.Context,
	election entities.Election,
	salt *entities.ElectionSalt,
	audit ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := strings.TrimSpace(election.ElectionID)
	if _, exists := s.elections[electionID]; exists {
		return domainerrors.ErrConflict
	}
	if election.Anonymous && salt == nil {
		return fmt.Errorf("%w: anonymous election requires a salt", domainerrors.ErrValidation)
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	s.elections[electionID] = cloneElection(election)
	if salt != nil {
		s.salts[electionID] = entities.ElectionSalt{
			ElectionID: electionID,
			Salt:       append([]byte(nil), salt.Salt...),
			CreatedAt:  salt.CreatedAt.UTC(),
		}
	}
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return cloneElection(election), nil
}

func (s *Store) UpdateElection(
	_ context.Context,
	election entities.Election,
	expected entities.ElectionStatus,
	audit ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := strings.TrimSpace(election.ElectionID)
	current, ok := s.elections[electionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if current.Status != expected {
		return fmt.Errorf("%w: election is %s", domainerrors.ErrInvalidStateTransition, current.Status)
	}
	if current.Anonymous != election.Anonymous {
		return fmt.Errorf("%w: anonymous flag is immutable", domainerrors.ErrValidation)
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	next := cloneElection(election)
	next.SaltDestroyedAt = current.SaltDestroyedAt
	next.CreatedAt = current.CreatedAt
	next.CreatedBy = current.CreatedBy
	s.elections[electionID] = next
	return nil
}

func (s *Store) RollbackElection(
	_ context.Context,
	electionID string,
	updatedAt time.Time,
	audit ports.EventEnvelope,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID = strings.TrimSpace(electionID)
	election, ok := s.elections[electionID]
	if !ok {
		return 0, domainerrors.ErrElectionNotFound
	}
	if election.Status != entities.ElectionStatusClosed {
		return 0, fmt.Errorf("%w: only closed elections can be rolled back", domainerrors.ErrInvalidStateTransition)
	}
	if election.SaltDestroyedAt != nil {
		return 0, fmt.Errorf("%w: anonymity salt was destroyed", domainerrors.ErrInvalidStateTransition)
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return 0, err
	}

	deleted := 0
	for voteID, vote := range s.votes {
		if vote.ElectionID != electionID {
			continue
		}
		delete(s.votes, voteID)
		deleted++
	}
	election.Status = entities.ElectionStatusDraft
	election.OpenedAt = nil
	election.ClosedAt = nil
	election.ClosingLedgerRows = nil
	election.UpdatedAt = updatedAt.UTC()
	s.elections[electionID] = election
	return deleted, nil
}

func (s *Store) ListElectionsEndedBefore(
	_ context.Context,
	status entities.ElectionStatus,
	before time.Time,
	limit int,
) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Election, 0)
	for _, election := range s.elections {
		if election.Status != status || !election.EndDate.UTC().Before(before.UTC()) {
			continue
		}
		items = append(items, cloneElection(election))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].EndDate.Equal(items[j].EndDate) {
			return items[i].ElectionID < items[j].ElectionID
		}
		return items[i].EndDate.Before(items[j].EndDate)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListElectionsByStatus(
	_ context.Context,
	organizationID string,
	status entities.ElectionStatus,
) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	organizationID = strings.TrimSpace(organizationID)
	items := make([]entities.Election, 0)
	for _, election := range s.elections {
		if election.OrganizationID != organizationID || election.Status != status {
			continue
		}
		items = append(items, cloneElection(election))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ElectionID < items[j].ElectionID
	})
	return items, nil
}

func (s *Store) CreateCandidate(_ context.Context, candidate entities.Candidate, audit ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[candidate.ElectionID]; !ok {
		return domainerrors.ErrElectionNotFound
	}
	if _, exists := s.candidates[candidate.CandidateID]; exists {
		return domainerrors.ErrConflict
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	s.candidates[candidate.CandidateID] = candidate
	return nil
}

func (s *Store) UpdateCandidate(_ context.Context, candidate entities.Candidate, audit ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.candidates[candidate.CandidateID]; !ok {
		return domainerrors.ErrCandidateNotFound
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	s.candidates[candidate.CandidateID] = candidate
	return nil
}

func (s *Store) GetCandidate(_ context.Context, candidateID string) (entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidate, ok := s.candidates[strings.TrimSpace(candidateID)]
	if !ok {
		return entities.Candidate{}, domainerrors.ErrCandidateNotFound
	}
	return candidate, nil
}

func (s *Store) ListCandidates(_ context.Context, electionID string) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	electionID = strings.TrimSpace(electionID)
	items := make([]entities.Candidate, 0)
	for _, candidate := range s.candidates {
		if candidate.ElectionID == electionID {
			items = append(items, candidate)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CandidateID < items[j].CandidateID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) GetSalt(_ context.Context, electionID string) (entities.ElectionSalt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	salt, ok := s.salts[strings.TrimSpace(electionID)]
	if !ok {
		return entities.ElectionSalt{}, domainerrors.ErrSaltDestroyed
	}
	salt.Salt = append([]byte(nil), salt.Salt...)
	return salt, nil
}

func (s *Store) DestroySalt(_ context.Context, electionID string, destroyedAt time.Time, audit ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID = strings.TrimSpace(electionID)
	election, ok := s.elections[electionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if election.Status != entities.ElectionStatusClosed {
		return fmt.Errorf("%w: salt may only be destroyed after close", domainerrors.ErrInvalidStateTransition)
	}
	salt, ok := s.salts[electionID]
	if !ok || salt.Destroyed() {
		return domainerrors.ErrSaltDestroyed
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	at := destroyedAt.UTC()
	for i := range salt.Salt {
		salt.Salt[i] = 0
	}
	salt.Salt = nil
	salt.DestroyedAt = &at
	s.salts[electionID] = salt
	election.SaltDestroyedAt = &at
	election.UpdatedAt = at
	s.elections[electionID] = election
	return nil
}

func (s *Store) AppendBallot(_ context.Context, ballot ports.Ballot, audit ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[strings.TrimSpace(ballot.ElectionID)]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if election.Status != entities.ElectionStatusOpen {
		return domainerrors.NotEligible(domainerrors.ReasonElectionNotOpen)
	}
	if err := services.ValidateBallotRows(election, ballot.Position, ballot.Votes); err != nil {
		return err
	}
	if ballot.AuthorizationID != "" {
		authorization, ok := s.proxies[ballot.AuthorizationID]
		if !ok {
			return domainerrors.ErrAuthorizationNotFound
		}
		if authorization.Revoked {
			return domainerrors.ErrRevokedAuthorization
		}
	}

	for _, row := range ballot.Votes {
		for _, existing := range s.votes {
			if existing.Deleted() || existing.ElectionID != row.ElectionID || existing.Position != row.Position {
				continue
			}
			if existing.Key() != row.Key() {
				continue
			}
			if existing.Rank == row.Rank || existing.CandidateID == row.CandidateID {
				return domainerrors.ErrAlreadyVoted
			}
		}
	}

	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	for _, row := range ballot.Votes {
		s.votes[row.VoteID] = row
	}
	return nil
}

func (s *Store) HasVoted(_ context.Context, electionID string, position string, key entities.VoterKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, vote := range s.votes {
		if vote.Deleted() || vote.ElectionID != electionID || vote.Position != position {
			continue
		}
		if vote.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetVote(_ context.Context, voteID string) (entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[strings.TrimSpace(voteID)]
	if !ok {
		return entities.Vote{}, domainerrors.ErrVoteNotFound
	}
	return vote, nil
}

func (s *Store) VoidBallot(
	_ context.Context,
	electionID string,
	ballotID string,
	deletedAt time.Time,
	deletedBy string,
	reason string,
	audit ports.EventEnvelope,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[electionID]
	if !ok {
		return 0, domainerrors.ErrElectionNotFound
	}
	if election.Status != entities.ElectionStatusOpen {
		return 0, fmt.Errorf("%w: ballots can only be voided while open", domainerrors.ErrInvalidStateTransition)
	}
	rows := make([]string, 0)
	for voteID, vote := range s.votes {
		if vote.ElectionID == electionID && vote.BallotID == ballotID && !vote.Deleted() {
			rows = append(rows, voteID)
		}
	}
	if len(rows) == 0 {
		return 0, domainerrors.ErrVoteNotFound
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return 0, err
	}
	at := deletedAt.UTC()
	for _, voteID := range rows {
		vote := s.votes[voteID]
		vote.DeletedAt = &at
		vote.DeletedBy = deletedBy
		vote.DeletionReason = reason
		s.votes[voteID] = vote
	}
	return len(rows), nil
}

func (s *Store) ListContestVotes(_ context.Context, electionID string, position string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.Deleted() || vote.ElectionID != electionID || vote.Position != position {
			continue
		}
		items = append(items, vote)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].BallotID == items[j].BallotID {
			return items[i].Rank < items[j].Rank
		}
		return items[i].BallotID < items[j].BallotID
	})
	return items, nil
}

func (s *Store) CountContestVotes(_ context.Context, electionID string, position string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, vote := range s.votes {
		if !vote.Deleted() && vote.ElectionID == electionID && vote.Position == position {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountContestBallots(_ context.Context, electionID string, position string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballots := make(map[string]bool)
	for _, vote := range s.votes {
		if vote.Deleted() || vote.ElectionID != electionID || vote.Position != position {
			continue
		}
		ballots[vote.BallotID] = ballots[vote.BallotID] || vote.IsProxyVote
	}
	proxies := 0
	for _, proxy := range ballots {
		if proxy {
			proxies++
		}
	}
	return len(ballots), proxies, nil
}

func (s *Store) GetVoterOverride(_ context.Context, electionID string, userID string) (entities.VoterOverride, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	override, ok := s.overrides[overrideKey(electionID, userID)]
	return override, ok, nil
}

func (s *Store) SaveVoterOverrides(
	_ context.Context,
	overrides []entities.VoterOverride,
	audit ports.EventEnvelope,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendOutboxLocked(audit); err != nil {
		return 0, err
	}
	created := 0
	for _, override := range overrides {
		key := overrideKey(override.ElectionID, override.UserID)
		if _, exists := s.overrides[key]; exists {
			continue
		}
		s.overrides[key] = override
		created++
	}
	return created, nil
}

func (s *Store) DeleteVoterOverride(_ context.Context, electionID string, userID string, audit ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := overrideKey(electionID, userID)
	if _, ok := s.overrides[key]; !ok {
		return domainerrors.ErrOverrideNotFound
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	delete(s.overrides, key)
	return nil
}

func (s *Store) CreateProxyAuthorization(
	_ context.Context,
	authorization entities.ProxyAuthorization,
	audit ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.proxies[authorization.AuthorizationID]; exists {
		return domainerrors.ErrConflict
	}
	active := make([]entities.ProxyAuthorization, 0)
	for _, other := range s.proxies {
		if !other.Revoked {
			active = append(active, other)
		}
	}
	if err := services.CheckDelegation(authorization, active); err != nil {
		return err
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return err
	}
	s.proxies[authorization.AuthorizationID] = authorization
	return nil
}

func (s *Store) GetProxyAuthorization(_ context.Context, authorizationID string) (entities.ProxyAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	authorization, ok := s.proxies[strings.TrimSpace(authorizationID)]
	if !ok {
		return entities.ProxyAuthorization{}, domainerrors.ErrAuthorizationNotFound
	}
	return authorization, nil
}

func (s *Store) ListProxyAuthorizations(
	_ context.Context,
	electionID string,
	organizationID string,
) ([]entities.ProxyAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.ProxyAuthorization, 0)
	for _, authorization := range s.proxies {
		if authorization.ElectionID == electionID ||
			(authorization.ProxyType == entities.ProxyTypeStanding && authorization.OrganizationID == organizationID) {
			items = append(items, authorization)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].AuthorizationID < items[j].AuthorizationID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) RevokeProxyAuthorization(
	_ context.Context,
	authorizationID string,
	uses []ports.ProxyUse,
	revokedAt time.Time,
	revokedBy string,
	audit ports.EventEnvelope,
) (entities.ProxyAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authorization, ok := s.proxies[strings.TrimSpace(authorizationID)]
	if !ok {
		return entities.ProxyAuthorization{}, domainerrors.ErrAuthorizationNotFound
	}
	if authorization.Revoked {
		return entities.ProxyAuthorization{}, domainerrors.ErrRevokedAuthorization
	}
	for _, use := range uses {
		for _, vote := range s.votes {
			if vote.Deleted() || !vote.IsProxyVote || vote.ElectionID != use.ElectionID {
				continue
			}
			if vote.Key() == use.Key {
				return entities.ProxyAuthorization{}, domainerrors.ErrAuthorizationConsumed
			}
		}
	}
	if err := s.appendOutboxLocked(audit); err != nil {
		return entities.ProxyAuthorization{}, err
	}
	at := revokedAt.UTC()
	authorization.Revoked = true
	authorization.RevokedAt = &at
	authorization.RevokedBy = revokedBy
	s.proxies[authorization.AuthorizationID] = authorization
	return authorization, nil
}

func (s *Store) IsActiveMember(_ context.Context, organizationID string, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[memberKey(organizationID, userID)], nil
}

func (s *Store) MemberRoles(_ context.Context, organizationID string, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.roles[memberKey(organizationID, userID)]...), nil
}

func (s *Store) VotingPolicy(_ context.Context, organizationID string, userID string) (entities.TierVotingPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies[memberKey(organizationID, userID)], nil
}

func (s *Store) AttendancePercentage(
	_ context.Context,
	organizationID string,
	userID string,
	_ time.Time,
	_ time.Time,
) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attendance[memberKey(organizationID, userID)], nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOutboxLocked(envelope)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	s.outboxOrder = append(s.outboxOrder, outboxID)
	return nil
}

// ListPendingOutbox returns unpublished rows in insertion order.
func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, outboxID := range s.outboxOrder {
		row := s.outbox[outboxID]
		if row.published {
			continue
		}
		items = append(items, row.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	now := s.now
	s.mu.RUnlock()
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneElection(election entities.Election) entities.Election {
	election.Positions = append([]string(nil), election.Positions...)
	election.EligibleVoters = append([]string(nil), election.EligibleVoters...)
	if election.PositionRoles != nil {
		roles := make(map[string][]string, len(election.PositionRoles))
		for position, items := range election.PositionRoles {
			roles[position] = append([]string(nil), items...)
		}
		election.PositionRoles = roles
	}
	if election.ClosingLedgerRows != nil {
		rows := make(map[string]int, len(election.ClosingLedgerRows))
		for contest, count := range election.ClosingLedgerRows {
			rows[contest] = count
		}
		election.ClosingLedgerRows = rows
	}
	return election
}
