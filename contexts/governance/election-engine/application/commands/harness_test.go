package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"orgnet/contexts/governance/election-engine/adapters/memory"
	"orgnet/contexts/governance/election-engine/application/eligibility"
	"orgnet/contexts/governance/election-engine/domain/entities"
)

const (
	testOrg     = "org-1"
	testOfficer = "officer-1"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type recordingMetrics struct {
	mu          sync.Mutex
	cast        map[string]int
	rejected    map[string]int
	transitions map[entities.ElectionStatus]int
	consistency int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		cast:        make(map[string]int),
		rejected:    make(map[string]int),
		transitions: make(map[entities.ElectionStatus]int),
	}
}

func (m *recordingMetrics) VoteCast(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cast[kind]++
}

func (m *recordingMetrics) VoteRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) ElectionTransition(to entities.ElectionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[to]++
}

func (m *recordingMetrics) ConsistencyFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consistency++
}

type harness struct {
	store       *memory.Store
	clock       fixedClock
	metrics     *recordingMetrics
	lifecycle   LifecycleUseCase
	candidates  CandidateUseCase
	ballots     BallotUseCase
	delegations DelegationUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore(nil)
	store.SetRoles(testOrg, testOfficer, "election_officer")
	return newHarnessAt(store, fixedClock{now: time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)})
}

func newHarnessAt(store *memory.Store, clock fixedClock) *harness {
	metrics := newRecordingMetrics()
	return &harness{
		store:   store,
		clock:   clock,
		metrics: metrics,
		lifecycle: LifecycleUseCase{
			Elections:  store,
			Candidates: store,
			Salts:      store,
			Ledger:     store,
			Directory:  store,
			Metrics:    metrics,
			Clock:      clock,
			IDGen:      store,
		},
		candidates: CandidateUseCase{
			Elections:  store,
			Candidates: store,
			Directory:  store,
			Clock:      clock,
			IDGen:      store,
		},
		ballots: BallotUseCase{
			Elections:   store,
			Candidates:  store,
			Salts:       store,
			Ledger:      store,
			Delegations: store,
			Directory:   store,
			Eligibility: eligibility.Evaluator{
				Directory:   store,
				Attendance:  store,
				Delegations: store,
				Ledger:      store,
				Clock:       clock,
			},
			Outbox:  store,
			Metrics: metrics,
			Clock:   clock,
			IDGen:   store,
		},
		delegations: DelegationUseCase{
			Elections:   store,
			Salts:       store,
			Delegations: store,
			Directory:   store,
			Clock:       clock,
			IDGen:       store,
		},
	}
}

// at returns a harness over the same store with the clock moved.
func (h *harness) at(now time.Time) *harness {
	return newHarnessAt(h.store, fixedClock{now: now})
}

func (h *harness) createCommand() CreateElectionCommand {
	return CreateElectionCommand{
		ActorID:          testOfficer,
		OrganizationID:   testOrg,
		Title:            "Board election",
		VotingMethod:     string(entities.VotingMethodSimpleMajority),
		VictoryCondition: string(entities.VictoryConditionMostVotes),
		StartDate:        h.clock.now.Add(-time.Hour),
		EndDate:          h.clock.now.Add(24 * time.Hour),
	}
}

type seededElection struct {
	election   entities.Election
	candidates map[string]string
}

// draftElection creates a DRAFT election with accepted candidates per
// contest, keyed by display name.
func (h *harness) draftElection(t *testing.T, mutate func(*CreateElectionCommand), names ...string) seededElection {
	t.Helper()
	ctx := context.Background()
	cmd := h.createCommand()
	if mutate != nil {
		mutate(&cmd)
	}
	election, err := h.lifecycle.CreateElection(ctx, cmd)
	if err != nil {
		t.Fatalf("create election: %v", err)
	}
	if len(names) == 0 {
		names = []string{"alpha", "beta"}
	}
	seeded := seededElection{election: election, candidates: make(map[string]string)}
	for _, contest := range election.Contests() {
		for _, name := range names {
			candidate, err := h.candidates.AddCandidate(ctx, AddCandidateCommand{
				ActorID:            testOfficer,
				ElectionID:         election.ElectionID,
				DisplayName:        name,
				Position:           contest,
				AcceptedNomination: true,
			})
			if err != nil {
				t.Fatalf("add candidate %s: %v", name, err)
			}
			seeded.candidates[contest+"/"+name] = candidate.CandidateID
		}
	}
	return seeded
}

func (h *harness) openElection(t *testing.T, mutate func(*CreateElectionCommand), names ...string) seededElection {
	t.Helper()
	seeded := h.draftElection(t, mutate, names...)
	opened, err := h.lifecycle.OpenElection(context.Background(), TransitionCommand{
		ActorID:    testOfficer,
		ElectionID: seeded.election.ElectionID,
	})
	if err != nil {
		t.Fatalf("open election: %v", err)
	}
	seeded.election = opened
	return seeded
}

func (s seededElection) candidate(position string, name string) string {
	return s.candidates[position+"/"+name]
}
