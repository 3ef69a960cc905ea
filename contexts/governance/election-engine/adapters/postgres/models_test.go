package postgresadapter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateWriteErrorMapsVoteIndexes(t *testing.T) {
	for _, constraint := range []string{constraintVoterRank, constraintHashRank, constraintVoterCandidate, constraintHashCandidate} {
		err := fmt.Errorf("insert vote: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
		if got := translateWriteError(err); !errors.Is(got, domainerrors.ErrAlreadyVoted) {
			t.Fatalf("expected %s violation to map to already voted, got %v", constraint, got)
		}
	}

	other := &pgconn.PgError{Code: "23505", ConstraintName: "proxy_authorizations_pkey"}
	if got := translateWriteError(other); !errors.Is(got, domainerrors.ErrConflict) {
		t.Fatalf("expected other unique violation to map to conflict, got %v", got)
	}
	if got := translateWriteError(&pgconn.PgError{Code: "23503"}); !errors.Is(got, domainerrors.ErrValidation) {
		t.Fatalf("expected foreign key violation to map to validation, got %v", got)
	}

	plain := errors.New("connection reset")
	if got := translateWriteError(plain); got != plain {
		t.Fatalf("expected non-postgres error unchanged, got %v", got)
	}
}

func TestElectionModelRoundTrip(t *testing.T) {
	opened := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	election := entities.Election{
		ElectionID:       "election-1",
		OrganizationID:   "org-1",
		Title:            "Board",
		Positions:        []string{"chair", "treasurer"},
		PositionRoles:    map[string][]string{"chair": {"board"}},
		VotingMethod:     entities.VotingMethodRankedChoice,
		VictoryCondition: entities.VictoryConditionMajority,
		RunoffType:       entities.RunoffTypeEliminateLowest,
		Anonymous:        true,
		StartDate:        opened,
		EndDate:          opened.Add(24 * time.Hour),
		Status:           entities.ElectionStatusOpen,
		OpenedAt:         &opened,
	}

	model, err := electionModelFromEntity(election)
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	restored, err := model.toEntity()
	if err != nil {
		t.Fatalf("to entity: %v", err)
	}
	if len(restored.Positions) != 2 || restored.PositionRoles["chair"][0] != "board" {
		t.Fatalf("unexpected restored contests %+v", restored)
	}
	if restored.EligibleVoters != nil {
		t.Fatalf("expected empty voter list to restore as nil, got %v", restored.EligibleVoters)
	}
	if restored.StartDate.Location() != time.UTC || !restored.OpenedAt.Equal(opened) {
		t.Fatalf("expected UTC timestamps, got %s and %v", restored.StartDate, restored.OpenedAt)
	}
	if model.ClosingLedgerRows != nil || restored.ClosingLedgerRows != nil {
		t.Fatalf("expected no close snapshot before close, got %s", model.ClosingLedgerRows)
	}

	election.Status = entities.ElectionStatusClosed
	election.ClosingLedgerRows = map[string]int{"chair": 12, "treasurer": 0}
	model, err = electionModelFromEntity(election)
	if err != nil {
		t.Fatalf("to model after close: %v", err)
	}
	restored, err = model.toEntity()
	if err != nil {
		t.Fatalf("to entity after close: %v", err)
	}
	if restored.ClosingLedgerRows["chair"] != 12 || len(restored.ClosingLedgerRows) != 2 {
		t.Fatalf("unexpected close snapshot %v", restored.ClosingLedgerRows)
	}
}

func TestVoteModelKeepsMissingKeyNull(t *testing.T) {
	model := voteModelFromEntity(entities.Vote{
		VoteID:      "vote-1",
		BallotID:    "ballot-1",
		ElectionID:  "election-1",
		CandidateID: "a",
		Rank:        1,
		VoterHash:   "abc123",
	})
	if model.VoterID != nil {
		t.Fatalf("expected voter_id to be NULL for anonymous rows")
	}
	if model.VoterHash == nil || *model.VoterHash != "abc123" {
		t.Fatalf("expected voter_hash to be stored")
	}
	if got := model.toEntity().Key(); got != entities.HashedKey("abc123") {
		t.Fatalf("unexpected restored key %+v", got)
	}
}
