package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"
)

// ResultsUseCase tallies closed elections behind the disclosure gate.
type ResultsUseCase struct {
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
	Ledger     ports.BallotLedger
	Metrics    ports.Metrics
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (uc ResultsUseCase) Results(ctx context.Context, electionID string) (entities.ElectionResults, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, electionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	now := resolveNow(uc.Clock)
	if !election.DisclosesResults(now) {
		return entities.ElectionResults{}, domainerrors.ErrResultsNotAvailable
	}

	candidates, err := uc.Candidates.ListCandidates(ctx, election.ElectionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	rules := services.RulesFor(election)
	results := entities.ElectionResults{
		ElectionID: election.ElectionID,
		Status:     election.Status,
		TalliedAt:  now,
		Contests:   make([]entities.ContestResult, 0, len(election.Contests())),
	}
	for _, contest := range election.Contests() {
		votes, err := uc.Ledger.ListContestVotes(ctx, election.ElectionID, contest)
		if err != nil {
			return entities.ElectionResults{}, err
		}
		result := services.TallyContest(rules, contest, candidates, votes)
		if err := uc.checkLedger(ctx, logger, election, contest, result); err != nil {
			return entities.ElectionResults{}, err
		}
		results.Contests = append(results.Contests, result)
	}

	logger.Info("election tallied",
		"event", "election_tallied",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"contest_count", len(results.Contests),
	)
	return results, nil
}

// checkLedger compares what the tally accounted for with the live ledger
// counts and with the row counts recorded at close.
func (uc ResultsUseCase) checkLedger(
	ctx context.Context,
	logger *slog.Logger,
	election entities.Election,
	contest string,
	result entities.ContestResult,
) error {
	rows, err := uc.Ledger.CountContestVotes(ctx, election.ElectionID, contest)
	if err != nil {
		return err
	}
	ballots, _, err := uc.Ledger.CountContestBallots(ctx, election.ElectionID, contest)
	if err != nil {
		return err
	}
	accounting := services.Accounting(result)
	consistent := accounting.Rows == rows && accounting.Ballots == ballots
	closingRows, recorded := -1, election.ClosingLedgerRows != nil
	if recorded {
		count, ok := election.ClosingLedgerRows[contest]
		if ok {
			closingRows = count
		}
		consistent = consistent && closingRows == rows
	}
	if consistent {
		return nil
	}

	logger.Error("ballot ledger consistency check failed",
		"event", "election_tally_consistency_failed",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"position", contest,
		"ledger_rows", rows,
		"ledger_ballots", ballots,
		"tallied_rows", accounting.Rows,
		"tallied_ballots", accounting.Ballots,
		"closing_rows", closingRows,
	)
	if uc.Metrics != nil {
		uc.Metrics.ConsistencyFailure()
	}
	return domainerrors.ErrConsistencyCheckFailed
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
