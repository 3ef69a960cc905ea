package queries

import (
	"context"

	"orgnet/contexts/governance/election-engine/domain/entities"
	"orgnet/contexts/governance/election-engine/ports"
)

type ElectionDetail struct {
	Election   entities.Election
	Candidates []entities.Candidate
}

type GetElectionUseCase struct {
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
}

func (uc GetElectionUseCase) Execute(ctx context.Context, electionID string) (ElectionDetail, error) {
	election, err := loadElection(ctx, uc.Elections, electionID)
	if err != nil {
		return ElectionDetail{}, err
	}
	candidates, err := uc.Candidates.ListCandidates(ctx, election.ElectionID)
	if err != nil {
		return ElectionDetail{}, err
	}
	return ElectionDetail{Election: election, Candidates: candidates}, nil
}
