package queries

import (
	"context"
	"fmt"
	"math"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"
)

// BallotStatsUseCase reports turnout. It never exposes per-candidate
// counts, so it stays available while voting is open.
type BallotStatsUseCase struct {
	Elections ports.ElectionRepository
	Ledger    ports.BallotLedger
	Clock     ports.Clock
}

func (uc BallotStatsUseCase) Stats(ctx context.Context, electionID string) (entities.BallotStats, error) {
	election, err := loadElection(ctx, uc.Elections, electionID)
	if err != nil {
		return entities.BallotStats{}, err
	}
	if election.Status == entities.ElectionStatusDraft {
		return entities.BallotStats{}, fmt.Errorf("%w: election has not opened", domainerrors.ErrInvalidStateTransition)
	}

	stats := entities.BallotStats{
		ElectionID:     election.ElectionID,
		Status:         election.Status,
		EligibleVoters: len(election.EligibleVoters),
		GeneratedAt:    resolveNow(uc.Clock),
	}
	maxBallots := 0
	for _, contest := range election.Contests() {
		ballots, proxyBallots, err := uc.Ledger.CountContestBallots(ctx, election.ElectionID, contest)
		if err != nil {
			return entities.BallotStats{}, err
		}
		stats.Contests = append(stats.Contests, entities.ContestTurnout{
			Position:     contest,
			BallotsCast:  ballots,
			ProxyBallots: proxyBallots,
		})
		if ballots > maxBallots {
			maxBallots = ballots
		}
	}
	// Turnout is only defined against an explicit voter list.
	if stats.EligibleVoters > 0 {
		stats.TurnoutPercent = math.Round(float64(maxBallots)/float64(stats.EligibleVoters)*10000) / 100
	}
	return stats, nil
}
