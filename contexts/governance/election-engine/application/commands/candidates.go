package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"
)

type AddCandidateCommand struct {
	ActorID            string
	ElectionID         string
	DisplayName        string
	Position           string
	UserID             string
	IsWriteIn          bool
	AcceptedNomination bool
}

type AcceptNominationCommand struct {
	ActorID     string
	ElectionID  string
	CandidateID string
}

// CandidateUseCase manages the ballot line-up while an election is DRAFT.
type CandidateUseCase struct {
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
	Directory  ports.MembershipDirectory
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// AddCandidate registers a candidate. Nominations of members start
// unaccepted; entries without a member (ballot measures, write-ins) may be
// marked accepted by the officer directly.
func (uc CandidateUseCase) AddCandidate(ctx context.Context, cmd AddCandidateCommand) (entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return entities.Candidate{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return entities.Candidate{}, err
	}
	if election.Status != entities.ElectionStatusDraft {
		return entities.Candidate{}, fmt.Errorf("%w: candidates can only be added while draft", domainerrors.ErrInvalidStateTransition)
	}

	name := strings.TrimSpace(cmd.DisplayName)
	position := strings.TrimSpace(cmd.Position)
	if name == "" {
		return entities.Candidate{}, fmt.Errorf("%w: display_name is required", domainerrors.ErrValidation)
	}
	if !election.HasPosition(position) {
		return entities.Candidate{}, fmt.Errorf("%w: position %q is not part of the election", domainerrors.ErrValidation, position)
	}

	now := resolveNow(uc.Clock)
	candidateID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Candidate{}, err
	}
	userID := strings.TrimSpace(cmd.UserID)
	candidate := entities.Candidate{
		CandidateID:        candidateID,
		ElectionID:         election.ElectionID,
		DisplayName:        name,
		Position:           position,
		UserID:             userID,
		IsWriteIn:          cmd.IsWriteIn,
		AcceptedNomination: cmd.AcceptedNomination && userID == "",
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	audit, err := auditEnvelope(ctx, uc.IDGen, "election.candidate_added", election.ElectionID, strings.TrimSpace(cmd.ActorID),
		outcomeSucceeded, now, map[string]any{
			"candidate_id":        candidate.CandidateID,
			"display_name":        candidate.DisplayName,
			"position":            candidate.Position,
			"is_write_in":         candidate.IsWriteIn,
			"accepted_nomination": candidate.AcceptedNomination,
		})
	if err != nil {
		return entities.Candidate{}, err
	}
	if err := uc.Candidates.CreateCandidate(ctx, candidate, audit); err != nil {
		return entities.Candidate{}, err
	}

	logger.Info("election candidate added",
		"event", "election_candidate_added",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"candidate_id", candidate.CandidateID,
		"position", candidate.Position,
	)
	return candidate, nil
}

// AcceptNomination is performed by the nominated member or an officer.
func (uc CandidateUseCase) AcceptNomination(ctx context.Context, cmd AcceptNominationCommand) (entities.Candidate, error) {
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return entities.Candidate{}, err
	}
	candidate, err := uc.Candidates.GetCandidate(ctx, strings.TrimSpace(cmd.CandidateID))
	if err != nil {
		return entities.Candidate{}, err
	}
	if candidate.ElectionID != election.ElectionID {
		return entities.Candidate{}, domainerrors.ErrCandidateNotFound
	}

	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" || actorID != candidate.UserID {
		if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, actorID); err != nil {
			return entities.Candidate{}, err
		}
	}
	if election.Status != entities.ElectionStatusDraft {
		return entities.Candidate{}, fmt.Errorf("%w: nominations can only be accepted while draft", domainerrors.ErrInvalidStateTransition)
	}
	if candidate.AcceptedNomination {
		return candidate, nil
	}

	now := resolveNow(uc.Clock)
	candidate.AcceptedNomination = true
	candidate.UpdatedAt = now
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.nomination_accepted", election.ElectionID, actorID,
		outcomeSucceeded, now, map[string]any{
			"candidate_id": candidate.CandidateID,
			"position":     candidate.Position,
		})
	if err != nil {
		return entities.Candidate{}, err
	}
	if err := uc.Candidates.UpdateCandidate(ctx, candidate, audit); err != nil {
		return entities.Candidate{}, err
	}
	return candidate, nil
}
