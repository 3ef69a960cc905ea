package commands

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"

	"golang.org/x/sync/errgroup"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var notEligible *domainerrors.NotEligibleError
	if !errors.As(err, &notEligible) {
		t.Fatalf("expected not eligible error, got %v", err)
	}
	return notEligible.Reason
}

func TestCastVoteRecordsBallotAndRejectsSecondAttempt(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	seeded := h.openElection(t, nil)
	ctx := context.Background()

	result, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "alpha")},
		IPAddress:    "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if len(result.Votes) != 1 || result.Votes[0].VoterID != "voter-1" || result.Votes[0].IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected ballot %+v", result.Votes)
	}

	_, err = h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "beta")},
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if h.metrics.cast["direct"] != 1 || h.metrics.rejected["already_voted"] != 1 {
		t.Fatalf("unexpected metrics cast=%v rejected=%v", h.metrics.cast, h.metrics.rejected)
	}
}

func TestConcurrentCastsRecordExactlyOneBallot(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	seeded := h.openElection(t, nil)
	candidateID := seeded.candidate("", "alpha")

	var succeeded, duplicates atomic.Int32
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 25; i++ {
		group.Go(func() error {
			_, err := h.ballots.CastVote(ctx, CastVoteCommand{
				ElectionID:   seeded.election.ElectionID,
				VoterID:      "voter-1",
				CandidateIDs: []string{candidateID},
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domainerrors.ErrAlreadyVoted):
				duplicates.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("unexpected cast error: %v", err)
	}
	if succeeded.Load() != 1 || duplicates.Load() != 24 {
		t.Fatalf("expected one success and 24 duplicates, got %d/%d", succeeded.Load(), duplicates.Load())
	}
	count, _ := h.store.CountContestVotes(context.Background(), seeded.election.ElectionID, entities.AtLargeContest)
	if count != 1 {
		t.Fatalf("expected one stored vote, got %d", count)
	}
}

func TestAnonymousBallotStoresOnlyHashedKey(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	seeded := h.openElection(t, func(cmd *CreateElectionCommand) { cmd.Anonymous = true })
	ctx := context.Background()

	result, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "alpha")},
		IPAddress:    "10.0.0.1",
		UserAgent:    "browser",
	})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	vote := result.Votes[0]
	if vote.VoterID != "" || vote.VoterHash == "" {
		t.Fatalf("expected hashed key only, got %+v", vote)
	}
	if vote.IPAddress != "" || vote.UserAgent != "" {
		t.Fatalf("expected request metadata to be dropped, got %+v", vote)
	}
	if !vote.VotedAt.Equal(h.clock.now.Truncate(24 * time.Hour)) {
		t.Fatalf("expected day precision timestamp, got %s", vote.VotedAt)
	}

	_, err = h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "beta")},
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected duplicate anonymous vote to be refused, got %v", err)
	}
}

func TestCastVoteEligibilityReasons(t *testing.T) {
	h := newHarness(t)
	seeded := h.openElection(t, nil)
	ctx := context.Background()
	cast := func(electionID string, voterID string, candidateID string) error {
		_, err := h.ballots.CastVote(ctx, CastVoteCommand{
			ElectionID:   electionID,
			VoterID:      voterID,
			CandidateIDs: []string{candidateID},
		})
		return err
	}

	if reason := reasonOf(t, cast(seeded.election.ElectionID, "stranger", seeded.candidate("", "alpha"))); reason != domainerrors.ReasonNotActiveMember {
		t.Fatalf("expected not_active_member, got %s", reason)
	}

	anonymous := h.openElection(t, func(cmd *CreateElectionCommand) { cmd.Anonymous = true })
	if reason := reasonOf(t, cast(anonymous.election.ElectionID, "stranger", anonymous.candidate("", "alpha"))); reason != domainerrors.ReasonNotEligible {
		t.Fatalf("expected anonymous election to hide the membership reason, got %s", reason)
	}

	listed := h.openElection(t, func(cmd *CreateElectionCommand) { cmd.EligibleVoters = []string{"voter-1"} })
	if reason := reasonOf(t, cast(listed.election.ElectionID, "voter-2", listed.candidate("", "alpha"))); reason != domainerrors.ReasonNotOnVoterList {
		t.Fatalf("expected not_on_voter_list, got %s", reason)
	}
	if err := cast(listed.election.ElectionID, "voter-1", listed.candidate("", "alpha")); err != nil {
		t.Fatalf("expected listed voter to vote without membership, got %v", err)
	}

	draft := h.draftElection(t, nil)
	h.store.SetMember(testOrg, "voter-1", true)
	if reason := reasonOf(t, cast(draft.election.ElectionID, "voter-1", draft.candidate("", "alpha"))); reason != domainerrors.ReasonElectionNotOpen {
		t.Fatalf("expected election_not_open, got %s", reason)
	}

	late := h.at(h.clock.now.Add(48 * time.Hour))
	if reason := reasonOf(t, func() error {
		_, err := late.ballots.CastVote(ctx, CastVoteCommand{
			ElectionID:   seeded.election.ElectionID,
			VoterID:      "voter-1",
			CandidateIDs: []string{seeded.candidate("", "alpha")},
		})
		return err
	}()); reason != domainerrors.ReasonOutsideVotingWindow {
		t.Fatalf("expected outside_voting_window, got %s", reason)
	}
}

func TestCastVoteEnforcesPositionRoles(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	h.store.SetMember(testOrg, "voter-2", true)
	h.store.SetRoles(testOrg, "voter-2", "Board")
	seeded := h.openElection(t, func(cmd *CreateElectionCommand) {
		cmd.Positions = []string{"chair", "treasurer"}
		cmd.PositionRoles = map[string][]string{"chair": {"board"}}
	})
	ctx := context.Background()

	_, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		Position:     "chair",
		CandidateIDs: []string{seeded.candidate("chair", "alpha")},
	})
	if reason := reasonOf(t, err); reason != domainerrors.ReasonRoleRestricted {
		t.Fatalf("expected role_restricted, got %s", reason)
	}
	if _, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		Position:     "treasurer",
		CandidateIDs: []string{seeded.candidate("treasurer", "alpha")},
	}); err != nil {
		t.Fatalf("expected unrestricted position to accept the vote, got %v", err)
	}
	if _, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-2",
		Position:     "chair",
		CandidateIDs: []string{seeded.candidate("chair", "alpha")},
	}); err != nil {
		t.Fatalf("expected board member to vote for chair, got %v", err)
	}

	_, err = h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-2",
		Position:     "treasurer",
		CandidateIDs: []string{seeded.candidate("chair", "beta")},
	})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected cross-position candidate to be rejected, got %v", err)
	}
}

func TestAttendanceGateHonoursOverride(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	h.store.SetTierPolicy(testOrg, "voter-1", entities.TierVotingPolicy{
		Tier:                 "associate",
		RequiresAttendance:   true,
		MinAttendancePercent: 50,
	})
	h.store.SetAttendance(testOrg, "voter-1", 20)
	seeded := h.openElection(t, nil)
	ctx := context.Background()
	cmd := CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "alpha")},
	}

	_, err := h.ballots.CastVote(ctx, cmd)
	if reason := reasonOf(t, err); reason != domainerrors.ReasonAttendanceTooLow {
		t.Fatalf("expected attendance rejection, got %s", reason)
	}

	if _, err := h.delegations.GrantOverride(ctx, GrantOverrideCommand{
		ActorID:    testOfficer,
		ElectionID: seeded.election.ElectionID,
		UserID:     "voter-1",
		Reason:     "medical leave",
	}); err != nil {
		t.Fatalf("grant override: %v", err)
	}
	result, err := h.ballots.CastVote(ctx, cmd)
	if err != nil {
		t.Fatalf("expected override to admit the voter, got %v", err)
	}
	if !result.OverrideApplied || !result.Votes[0].OverrideApplied {
		t.Fatalf("expected override flag on ballot, got %+v", result)
	}
}

func TestRankedBallotStoresOneRowPerPreference(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	seeded := h.openElection(t, func(cmd *CreateElectionCommand) {
		cmd.VotingMethod = string(entities.VotingMethodRankedChoice)
		cmd.VictoryCondition = string(entities.VictoryConditionMajority)
	}, "alpha", "beta", "gamma")

	result, err := h.ballots.CastVote(context.Background(), CastVoteCommand{
		ElectionID: seeded.election.ElectionID,
		VoterID:    "voter-1",
		CandidateIDs: []string{
			seeded.candidate("", "gamma"),
			seeded.candidate("", "alpha"),
		},
	})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if len(result.Votes) != 2 {
		t.Fatalf("expected two rows, got %d", len(result.Votes))
	}
	for i, vote := range result.Votes {
		if vote.Rank != i+1 || vote.BallotID != result.BallotID {
			t.Fatalf("unexpected row %d: %+v", i, vote)
		}
	}
	ballots, _, _ := h.store.CountContestBallots(context.Background(), seeded.election.ElectionID, entities.AtLargeContest)
	if ballots != 1 {
		t.Fatalf("expected one ballot, got %d", ballots)
	}
}

func TestVoidBallotAllowsCorrectedBallot(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	seeded := h.openElection(t, nil)
	ctx := context.Background()

	first, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "alpha")},
	})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}

	if _, err := h.ballots.VoidBallot(ctx, VoidBallotCommand{
		ActorID:    testOfficer,
		ElectionID: seeded.election.ElectionID,
		VoteID:     first.Votes[0].VoteID,
	}); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected reason to be required, got %v", err)
	}
	if _, err := h.ballots.VoidBallot(ctx, VoidBallotCommand{
		ActorID:    "voter-1",
		ElectionID: seeded.election.ElectionID,
		VoteID:     first.Votes[0].VoteID,
		Reason:     "wrong candidate",
	}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected non-officer to be forbidden, got %v", err)
	}

	voided, err := h.ballots.VoidBallot(ctx, VoidBallotCommand{
		ActorID:    testOfficer,
		ElectionID: seeded.election.ElectionID,
		VoteID:     first.Votes[0].VoteID,
		Reason:     "wrong candidate",
	})
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.VoidedVotes != 1 || voided.BallotID != first.BallotID {
		t.Fatalf("unexpected void result %+v", voided)
	}

	if _, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "voter-1",
		CandidateIDs: []string{seeded.candidate("", "beta")},
	}); err != nil {
		t.Fatalf("expected corrected ballot to be accepted, got %v", err)
	}
	votes, _ := h.store.ListContestVotes(ctx, seeded.election.ElectionID, entities.AtLargeContest)
	if len(votes) != 1 || votes[0].CandidateID != seeded.candidate("", "beta") {
		t.Fatalf("expected only the corrected vote to be live, got %+v", votes)
	}
}

func TestCastVoteValidatesSelection(t *testing.T) {
	h := newHarness(t)
	h.store.SetMember(testOrg, "voter-1", true)
	seeded := h.openElection(t, nil)
	ctx := context.Background()

	cases := map[string][]string{
		"no candidates":      nil,
		"two on single vote": {seeded.candidate("", "alpha"), seeded.candidate("", "beta")},
		"unknown candidate":  {"missing"},
	}
	for name, ids := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.ballots.CastVote(ctx, CastVoteCommand{
				ElectionID:   seeded.election.ElectionID,
				VoterID:      "voter-1",
				CandidateIDs: ids,
			})
			if !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if got := h.metrics.rejected["invalid_ballot"]; got != len(cases) {
		t.Fatalf("expected %d invalid ballot rejections, got %d", len(cases), got)
	}
}

func TestRejectedCastWritesAuditRecord(t *testing.T) {
	h := newHarness(t)
	seeded := h.openElection(t, nil)
	ctx := context.Background()
	before, _ := h.store.ListPendingOutbox(ctx, 1000)

	_, err := h.ballots.CastVote(ctx, CastVoteCommand{
		ElectionID:   seeded.election.ElectionID,
		VoterID:      "stranger",
		CandidateIDs: []string{seeded.candidate("", "alpha")},
	})
	if err == nil {
		t.Fatalf("expected rejection")
	}
	after, _ := h.store.ListPendingOutbox(ctx, 1000)
	if len(after) != len(before)+1 {
		t.Fatalf("expected one rejection audit row, got %d new rows", len(after)-len(before))
	}
	if last := after[len(after)-1]; last.EventType != "election.vote_rejected" {
		t.Fatalf("expected vote_rejected audit, got %s", last.EventType)
	}
}
