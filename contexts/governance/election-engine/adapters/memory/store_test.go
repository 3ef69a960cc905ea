package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"
)

var now = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func openStore(method entities.VotingMethod) *Store {
	return NewStore([]entities.Election{{
		ElectionID:       "election-1",
		OrganizationID:   "org-1",
		VotingMethod:     method,
		VictoryCondition: entities.VictoryConditionMostVotes,
		Status:           entities.ElectionStatusOpen,
		StartDate:        now.Add(-time.Hour),
		EndDate:          now.Add(time.Hour),
	}})
}

func directBallot(ballotID string, voterID string, candidates ...string) ports.Ballot {
	ballot := ports.Ballot{ElectionID: "election-1"}
	for i, candidateID := range candidates {
		ballot.Votes = append(ballot.Votes, entities.Vote{
			VoteID:      ballotID + "-" + candidateID,
			BallotID:    ballotID,
			ElectionID:  "election-1",
			CandidateID: candidateID,
			Rank:        i + 1,
			VoterID:     voterID,
			VotedAt:     now,
		})
	}
	return ballot
}

func TestAppendBallotRejectsSecondBallot(t *testing.T) {
	store := openStore(entities.VotingMethodSimpleMajority)
	ctx := context.Background()

	if err := store.AppendBallot(ctx, directBallot("b1", "voter-1", "a"), ports.EventEnvelope{}); err != nil {
		t.Fatalf("first ballot: %v", err)
	}
	err := store.AppendBallot(ctx, directBallot("b2", "voter-1", "b"), ports.EventEnvelope{})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	voted, err := store.HasVoted(ctx, "election-1", "", entities.DirectKey("voter-1"))
	if err != nil || !voted {
		t.Fatalf("expected voter recorded, got %v %v", voted, err)
	}
}

func TestAppendBallotStoresRankedRowsTogether(t *testing.T) {
	store := openStore(entities.VotingMethodRankedChoice)
	ctx := context.Background()

	if err := store.AppendBallot(ctx, directBallot("b1", "voter-1", "a", "b", "c"), ports.EventEnvelope{}); err != nil {
		t.Fatalf("ranked ballot: %v", err)
	}
	rows, err := store.CountContestVotes(ctx, "election-1", "")
	if err != nil || rows != 3 {
		t.Fatalf("expected three rows, got %d %v", rows, err)
	}
	ballots, proxies, err := store.CountContestBallots(ctx, "election-1", "")
	if err != nil || ballots != 1 || proxies != 0 {
		t.Fatalf("expected one direct ballot, got %d/%d %v", ballots, proxies, err)
	}
}

func TestVoidBallotFreesTheVoter(t *testing.T) {
	store := openStore(entities.VotingMethodSimpleMajority)
	ctx := context.Background()

	if err := store.AppendBallot(ctx, directBallot("b1", "voter-1", "a"), ports.EventEnvelope{}); err != nil {
		t.Fatalf("ballot: %v", err)
	}
	voided, err := store.VoidBallot(ctx, "election-1", "b1", now, "officer-1", "duplicate registration", ports.EventEnvelope{})
	if err != nil || voided != 1 {
		t.Fatalf("void: %d %v", voided, err)
	}
	if _, err := store.VoidBallot(ctx, "election-1", "b1", now, "officer-1", "again", ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected second void to find nothing, got %v", err)
	}
	vote, err := store.GetVote(ctx, "b1-a")
	if err != nil || !vote.Deleted() || vote.DeletionReason != "duplicate registration" {
		t.Fatalf("expected soft-deleted row, got %+v %v", vote, err)
	}
	if err := store.AppendBallot(ctx, directBallot("b2", "voter-1", "b"), ports.EventEnvelope{}); err != nil {
		t.Fatalf("recast after void: %v", err)
	}
	rows, _ := store.ListContestVotes(ctx, "election-1", "")
	if len(rows) != 1 || rows[0].CandidateID != "b" {
		t.Fatalf("expected only the recast row to be live, got %+v", rows)
	}
}

func TestRollbackHardDeletesEveryVote(t *testing.T) {
	store := openStore(entities.VotingMethodSimpleMajority)
	ctx := context.Background()
	_ = store.AppendBallot(ctx, directBallot("b1", "voter-1", "a"), ports.EventEnvelope{})
	_ = store.AppendBallot(ctx, directBallot("b2", "voter-2", "a"), ports.EventEnvelope{})
	_, _ = store.VoidBallot(ctx, "election-1", "b2", now, "officer-1", "error", ports.EventEnvelope{})

	if _, err := store.RollbackElection(ctx, "election-1", now, ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected rollback of open election to fail, got %v", err)
	}

	election, _ := store.GetElection(ctx, "election-1")
	election.Status = entities.ElectionStatusClosed
	if err := store.UpdateElection(ctx, election, entities.ElectionStatusOpen, ports.EventEnvelope{}); err != nil {
		t.Fatalf("close: %v", err)
	}
	deleted, err := store.RollbackElection(ctx, "election-1", now, ports.EventEnvelope{})
	if err != nil || deleted != 2 {
		t.Fatalf("expected both rows deleted, got %d %v", deleted, err)
	}
	if _, err := store.GetVote(ctx, "b2-a"); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected voided row removed too, got %v", err)
	}
	rolledBack, _ := store.GetElection(ctx, "election-1")
	if rolledBack.Status != entities.ElectionStatusDraft {
		t.Fatalf("expected draft after rollback, got %s", rolledBack.Status)
	}
}

func TestUpdateElectionChecksExpectedStatus(t *testing.T) {
	store := openStore(entities.VotingMethodSimpleMajority)
	ctx := context.Background()
	election, _ := store.GetElection(ctx, "election-1")

	if err := store.UpdateElection(ctx, election, entities.ElectionStatusDraft, ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected stale status to fail, got %v", err)
	}
	election.Anonymous = true
	if err := store.UpdateElection(ctx, election, entities.ElectionStatusOpen, ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected anonymous flag change to fail, got %v", err)
	}
}

func TestRevokeBlockedByLiveProxyVote(t *testing.T) {
	store := openStore(entities.VotingMethodSimpleMajority)
	ctx := context.Background()
	authorization := entities.ProxyAuthorization{
		AuthorizationID:  "auth-1",
		ElectionID:       "election-1",
		OrganizationID:   "org-1",
		DelegatingUserID: "alice",
		ProxyUserID:      "bob",
		ProxyType:        entities.ProxyTypeSingleElection,
	}
	if err := store.CreateProxyAuthorization(ctx, authorization, ports.EventEnvelope{}); err != nil {
		t.Fatalf("create authorization: %v", err)
	}
	chained := authorization
	chained.AuthorizationID = "auth-2"
	chained.DelegatingUserID = "bob"
	chained.ProxyUserID = "carol"
	if err := store.CreateProxyAuthorization(ctx, chained, ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrProxyChainForbidden) {
		t.Fatalf("expected chain to be refused, got %v", err)
	}

	ballot := directBallot("b1", "alice", "a")
	ballot.AuthorizationID = "auth-1"
	ballot.Votes[0].IsProxyVote = true
	ballot.Votes[0].ProxyVoterID = "bob"
	ballot.Votes[0].ProxyDelegatingUserID = "alice"
	ballot.Votes[0].ProxyAuthorizationID = "auth-1"
	if err := store.AppendBallot(ctx, ballot, ports.EventEnvelope{}); err != nil {
		t.Fatalf("proxy ballot: %v", err)
	}

	uses := []ports.ProxyUse{{ElectionID: "election-1", Key: entities.DirectKey("alice")}}
	if _, err := store.RevokeProxyAuthorization(ctx, "auth-1", uses, now, "alice", ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrAuthorizationConsumed) {
		t.Fatalf("expected consumed authorization, got %v", err)
	}
	if _, err := store.VoidBallot(ctx, "election-1", "b1", now, "officer-1", "proxy withdrawn", ports.EventEnvelope{}); err != nil {
		t.Fatalf("void proxy ballot: %v", err)
	}
	revoked, err := store.RevokeProxyAuthorization(ctx, "auth-1", uses, now, "alice", ports.EventEnvelope{})
	if err != nil || !revoked.Revoked {
		t.Fatalf("expected revocation after void, got %+v %v", revoked, err)
	}

	again := directBallot("b2", "alice", "a")
	again.AuthorizationID = "auth-1"
	again.Votes[0].IsProxyVote = true
	if err := store.AppendBallot(ctx, again, ports.EventEnvelope{}); !errors.Is(err, domainerrors.ErrRevokedAuthorization) {
		t.Fatalf("expected revoked authorization to block the insert, got %v", err)
	}
}

func TestAppendOutboxIsIdempotentPerEventID(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	envelope := ports.EventEnvelope{EventID: "evt-1", EventType: "election.opened", OccurredAt: now, Data: []byte(`{"a":1}`)}

	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("replay: %v", err)
	}
	envelope.Data = []byte(`{"a":2}`)
	if err := store.AppendOutbox(ctx, envelope); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflicting payload to fail, got %v", err)
	}
	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d", len(pending))
	}
	if err := store.MarkOutboxPublished(ctx, "evt-1", now); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	pending, _ = store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
}

func TestStoreClockOverride(t *testing.T) {
	store := NewStore(nil)
	store.SetClock(func() time.Time { return now })
	if !store.Now().Equal(now) {
		t.Fatalf("expected fixed clock, got %s", store.Now())
	}
	store.SetClock(nil)
	if store.Now().Equal(now) {
		t.Fatalf("expected wall clock after reset")
	}
}
