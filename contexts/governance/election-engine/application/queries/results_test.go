package queries

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/adapters/memory"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type countingMetrics struct {
	consistency int
}

func (m *countingMetrics) VoteCast(string)                            {}
func (m *countingMetrics) VoteRejected(string)                        {}
func (m *countingMetrics) ElectionTransition(entities.ElectionStatus) {}
func (m *countingMetrics) ConsistencyFailure()                        { m.consistency++ }

var now = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

// seedStore returns a store holding one OPEN election with candidates a and
// b, plus the given number of direct ballots for each.
func seedStore(t *testing.T, mutate func(*entities.Election), ballots map[string]int) (*memory.Store, entities.Election) {
	t.Helper()
	ctx := context.Background()
	election := entities.Election{
		ElectionID:       "election-1",
		OrganizationID:   "org-1",
		Title:            "Board",
		VotingMethod:     entities.VotingMethodSimpleMajority,
		VictoryCondition: entities.VictoryConditionMostVotes,
		RunoffType:       entities.RunoffTypeEliminateLowest,
		Status:           entities.ElectionStatusOpen,
		StartDate:        now.Add(-2 * time.Hour),
		EndDate:          now.Add(time.Hour),
	}
	if mutate != nil {
		mutate(&election)
	}
	store := memory.NewStore([]entities.Election{election})
	for _, id := range []string{"a", "b"} {
		candidate := entities.Candidate{
			CandidateID:        id,
			ElectionID:         election.ElectionID,
			DisplayName:        "Candidate " + id,
			AcceptedNomination: true,
		}
		if err := store.CreateCandidate(ctx, candidate, ports.EventEnvelope{}); err != nil {
			t.Fatalf("create candidate: %v", err)
		}
	}
	voter := 0
	for candidateID, count := range ballots {
		for i := 0; i < count; i++ {
			voter++
			ballotID := fmt.Sprintf("ballot-%d", voter)
			ballot := ports.Ballot{
				ElectionID: election.ElectionID,
				Votes: []entities.Vote{{
					VoteID:      "vote-" + ballotID,
					BallotID:    ballotID,
					ElectionID:  election.ElectionID,
					CandidateID: candidateID,
					Rank:        1,
					VoterID:     fmt.Sprintf("voter-%d", voter),
					VotedAt:     now.Add(-time.Hour),
				}},
			}
			if err := store.AppendBallot(ctx, ballot, ports.EventEnvelope{}); err != nil {
				t.Fatalf("append ballot: %v", err)
			}
		}
	}
	return store, election
}

func closeElection(t *testing.T, store *memory.Store, election entities.Election) entities.Election {
	t.Helper()
	closedAt := now
	rows, err := store.CountContestVotes(context.Background(), election.ElectionID, entities.AtLargeContest)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	election.Status = entities.ElectionStatusClosed
	election.ClosedAt = &closedAt
	election.ClosingLedgerRows = map[string]int{entities.AtLargeContest: rows}
	if err := store.UpdateElection(context.Background(), election, entities.ElectionStatusOpen, ports.EventEnvelope{}); err != nil {
		t.Fatalf("close election: %v", err)
	}
	return election
}

func TestResultsWithheldUntilDisclosure(t *testing.T) {
	store, election := seedStore(t, nil, map[string]int{"a": 3, "b": 1})
	uc := ResultsUseCase{Elections: store, Candidates: store, Ledger: store, Clock: fixedClock{now: now}}

	if _, err := uc.Results(context.Background(), election.ElectionID); !errors.Is(err, domainerrors.ErrResultsNotAvailable) {
		t.Fatalf("expected results withheld while open, got %v", err)
	}

	closeElection(t, store, election)
	if _, err := uc.Results(context.Background(), election.ElectionID); !errors.Is(err, domainerrors.ErrResultsNotAvailable) {
		t.Fatalf("expected results withheld before end date, got %v", err)
	}

	later := ResultsUseCase{Elections: store, Candidates: store, Ledger: store, Clock: fixedClock{now: now.Add(2 * time.Hour)}}
	results, err := later.Results(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("results after end date: %v", err)
	}
	if len(results.Contests) != 1 {
		t.Fatalf("expected one at-large contest, got %d", len(results.Contests))
	}
	contest := results.Contests[0]
	if contest.WinnerID != "a" || contest.TotalBallots != 4 {
		t.Fatalf("unexpected contest result %+v", contest)
	}
}

func TestResultsVisibleImmediatelyAfterClose(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.ResultsVisibleImmediately = true
	}, map[string]int{"a": 1, "b": 2})
	closeElection(t, store, election)

	uc := ResultsUseCase{Elections: store, Candidates: store, Ledger: store, Clock: fixedClock{now: now}}
	results, err := uc.Results(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Status != entities.ElectionStatusClosed || results.Contests[0].WinnerID != "b" {
		t.Fatalf("unexpected results %+v", results)
	}
}

// driftingLedger reports one more live row than it lists.
type driftingLedger struct {
	ports.BallotLedger
}

func (l driftingLedger) CountContestVotes(ctx context.Context, electionID string, position string) (int, error) {
	count, err := l.BallotLedger.CountContestVotes(ctx, electionID, position)
	return count + 1, err
}

func TestResultsFailClosedOnLedgerDrift(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.ResultsVisibleImmediately = true
	}, map[string]int{"a": 2})
	closeElection(t, store, election)

	metrics := &countingMetrics{}
	uc := ResultsUseCase{
		Elections:  store,
		Candidates: store,
		Ledger:     driftingLedger{BallotLedger: store},
		Metrics:    metrics,
		Clock:      fixedClock{now: now},
	}
	if _, err := uc.Results(context.Background(), election.ElectionID); !errors.Is(err, domainerrors.ErrConsistencyCheckFailed) {
		t.Fatalf("expected consistency failure, got %v", err)
	}
	if metrics.consistency != 1 {
		t.Fatalf("expected consistency metric, got %d", metrics.consistency)
	}
}

// phantomBallotLedger reports one more ballot than the rows it lists.
type phantomBallotLedger struct {
	ports.BallotLedger
}

func (l phantomBallotLedger) CountContestBallots(ctx context.Context, electionID string, position string) (int, int, error) {
	ballots, proxies, err := l.BallotLedger.CountContestBallots(ctx, electionID, position)
	return ballots + 1, proxies, err
}

func TestResultsFailClosedOnBallotCountMismatch(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.ResultsVisibleImmediately = true
	}, map[string]int{"a": 2, "b": 1})
	closeElection(t, store, election)

	metrics := &countingMetrics{}
	uc := ResultsUseCase{
		Elections:  store,
		Candidates: store,
		Ledger:     phantomBallotLedger{BallotLedger: store},
		Metrics:    metrics,
		Clock:      fixedClock{now: now},
	}
	if _, err := uc.Results(context.Background(), election.ElectionID); !errors.Is(err, domainerrors.ErrConsistencyCheckFailed) {
		t.Fatalf("expected consistency failure, got %v", err)
	}
	if metrics.consistency != 1 {
		t.Fatalf("expected consistency metric, got %d", metrics.consistency)
	}
}

func TestResultsFailClosedWhenLedgerChangedAfterClose(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.ResultsVisibleImmediately = true
	}, map[string]int{"a": 2, "b": 1})
	closed := closeElection(t, store, election)

	uc := ResultsUseCase{Elections: store, Candidates: store, Ledger: store, Clock: fixedClock{now: now}}
	if _, err := uc.Results(context.Background(), election.ElectionID); err != nil {
		t.Fatalf("results with matching close snapshot: %v", err)
	}

	// The close recorded one more row than the ledger now holds.
	closed.ClosingLedgerRows = map[string]int{entities.AtLargeContest: 4}
	if err := store.UpdateElection(context.Background(), closed, entities.ElectionStatusClosed, ports.EventEnvelope{}); err != nil {
		t.Fatalf("rewrite snapshot: %v", err)
	}
	metrics := &countingMetrics{}
	uc.Metrics = metrics
	if _, err := uc.Results(context.Background(), closed.ElectionID); !errors.Is(err, domainerrors.ErrConsistencyCheckFailed) {
		t.Fatalf("expected drift from close snapshot to fail, got %v", err)
	}
	if metrics.consistency != 1 {
		t.Fatalf("expected consistency metric, got %d", metrics.consistency)
	}
}

func TestResultsSkipCloseSnapshotWhenNoneRecorded(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.ResultsVisibleImmediately = true
	}, map[string]int{"a": 1})
	closed := closeElection(t, store, election)
	closed.ClosingLedgerRows = nil
	if err := store.UpdateElection(context.Background(), closed, entities.ElectionStatusClosed, ports.EventEnvelope{}); err != nil {
		t.Fatalf("clear snapshot: %v", err)
	}

	uc := ResultsUseCase{Elections: store, Candidates: store, Ledger: store, Clock: fixedClock{now: now}}
	if _, err := uc.Results(context.Background(), election.ElectionID); err != nil {
		t.Fatalf("expected results without a close snapshot, got %v", err)
	}
}

func TestResultsUnknownElection(t *testing.T) {
	store := memory.NewStore(nil)
	uc := ResultsUseCase{Elections: store, Candidates: store, Ledger: store}
	if _, err := uc.Results(context.Background(), "  "); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found for blank id, got %v", err)
	}
	if _, err := uc.Results(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBallotStatsTurnout(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.EligibleVoters = []string{"voter-1", "voter-2", "voter-3"}
	}, map[string]int{"a": 1, "b": 1})

	stats, err := BallotStatsUseCase{Elections: store, Ledger: store, Clock: fixedClock{now: now}}.Stats(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.EligibleVoters != 3 || len(stats.Contests) != 1 || stats.Contests[0].BallotsCast != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.TurnoutPercent != 66.67 {
		t.Fatalf("expected turnout rounded to 66.67, got %v", stats.TurnoutPercent)
	}
	if !stats.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated at %s, got %s", now, stats.GeneratedAt)
	}
}

func TestBallotStatsRequiresOpenedElection(t *testing.T) {
	store, election := seedStore(t, func(e *entities.Election) {
		e.Status = entities.ElectionStatusDraft
	}, nil)

	_, err := BallotStatsUseCase{Elections: store, Ledger: store}.Stats(context.Background(), election.ElectionID)
	if !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition for draft election, got %v", err)
	}
}

func TestGetElectionIncludesCandidates(t *testing.T) {
	store, election := seedStore(t, nil, nil)
	detail, err := GetElectionUseCase{Elections: store, Candidates: store}.Execute(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("get election: %v", err)
	}
	if detail.Election.Title != "Board" || len(detail.Candidates) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}
}
