package services

import (
	"math"
	"sort"
	"strings"

	"orgnet/contexts/governance/election-engine/domain/entities"
)

const fractionEpsilon = 1e-9

// TallyRules is the election configuration the tally depends on.
type TallyRules struct {
	Method        entities.VotingMethod
	Condition     entities.VictoryCondition
	Runoff        entities.RunoffType
	Supermajority float64
	Threshold     float64
}

func RulesFor(election entities.Election) TallyRules {
	return TallyRules{
		Method:        election.VotingMethod,
		Condition:     election.VictoryCondition,
		Runoff:        election.RunoffType,
		Supermajority: election.ResolvedSupermajority(),
		Threshold:     election.VictoryThreshold,
	}
}

// effectiveCondition forces the supermajority fraction for the
// supermajority method regardless of the configured condition.
func (r TallyRules) effectiveCondition() entities.VictoryCondition {
	if r.Method == entities.VotingMethodSupermajority {
		return entities.VictoryConditionSupermajority
	}
	return r.Condition
}

// meets reports whether votes out of base satisfies condition. most_votes
// is treated as a majority of base, which is only consulted by runoff rounds.
func (r TallyRules) meets(condition entities.VictoryCondition, votes int, base int) bool {
	if base <= 0 || votes <= 0 {
		return false
	}
	switch condition {
	case entities.VictoryConditionSupermajority:
		return float64(votes)+fractionEpsilon >= r.Supermajority*float64(base)
	case entities.VictoryConditionThreshold:
		return float64(votes)+fractionEpsilon >= r.Threshold*float64(base)
	default:
		return votes*2 > base
	}
}

// TallyContest computes one contest. Votes must already be filtered to the
// contest and exclude soft-deleted rows. Output order is deterministic.
func TallyContest(
	rules TallyRules,
	position string,
	candidates []entities.Candidate,
	votes []entities.Vote,
) entities.ContestResult {
	result := entities.ContestResult{
		Position:         position,
		VotingMethod:     rules.Method,
		VictoryCondition: rules.effectiveCondition(),
		TotalVotes:       len(votes),
	}

	names := make(map[string]string, len(candidates))
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Position) != position {
			continue
		}
		names[candidate.CandidateID] = candidate.DisplayName
	}
	for _, vote := range votes {
		if _, ok := names[vote.CandidateID]; !ok {
			names[vote.CandidateID] = ""
		}
	}

	ballots := groupBallots(votes)
	result.TotalBallots = len(ballots)

	if rules.Method == entities.VotingMethodRankedChoice {
		tallyInstantRunoff(rules, &result, names, ballots)
		return result
	}
	tallyCounted(rules, &result, names, votes)
	return result
}

func tallyCounted(
	rules TallyRules,
	result *entities.ContestResult,
	names map[string]string,
	votes []entities.Vote,
) {
	counts := make(map[string]int, len(names))
	for id := range names {
		counts[id] = 0
	}
	for _, vote := range votes {
		counts[vote.CandidateID]++
	}
	standings := rankStandings(counts)
	result.Candidates = candidateTallies(standings, names, result.TotalBallots)
	if len(standings) == 0 || standings[0].votes == 0 {
		return
	}

	top := standings[0]
	tied := len(standings) > 1 && standings[1].votes == top.votes
	condition := rules.effectiveCondition()

	if condition == entities.VictoryConditionMostVotes {
		if tied {
			result.Tie = true
			result.RunoffRequired = true
			result.RunoffCandidates = idsWithVotes(standings, top.votes)
			return
		}
		result.WinnerID = top.id
		return
	}

	if !tied && rules.meets(condition, top.votes, result.TotalBallots) {
		result.WinnerID = top.id
		return
	}
	result.Tie = tied
	result.RunoffRequired = true
	result.RunoffCandidates = runoffField(rules.Runoff, standings)
}

func tallyInstantRunoff(
	rules TallyRules,
	result *entities.ContestResult,
	names map[string]string,
	ballots [][]string,
) {
	continuing := make(map[string]bool, len(names))
	for id := range names {
		continuing[id] = true
	}
	condition := rules.effectiveCondition()
	var history []map[string]int

	for round := 1; len(continuing) > 0; round++ {
		counts := make(map[string]int, len(continuing))
		for id := range continuing {
			counts[id] = 0
		}
		exhausted := 0
		for _, ballot := range ballots {
			choice := ""
			for _, id := range ballot {
				if continuing[id] {
					choice = id
					break
				}
			}
			if choice == "" {
				exhausted++
				continue
			}
			counts[choice]++
		}
		active := len(ballots) - exhausted
		standings := rankStandings(counts)
		record := entities.TallyRound{
			Round:     round,
			Counts:    counts,
			Active:    active,
			Exhausted: exhausted,
		}
		result.Candidates = candidateTallies(standings, names, active)

		if active == 0 {
			result.Rounds = append(result.Rounds, record)
			return
		}

		top := standings[0]
		tied := len(standings) > 1 && standings[1].votes == top.votes
		if !tied && rules.meets(condition, top.votes, active) {
			result.WinnerID = top.id
			result.Rounds = append(result.Rounds, record)
			return
		}
		if len(standings) <= 2 {
			result.Tie = tied
			result.RunoffRequired = true
			result.RunoffCandidates = idsOf(standings)
			result.Rounds = append(result.Rounds, record)
			return
		}

		// top_two keeps the two leaders of round 1. A tie for second place
		// is broken by ascending candidate id, the order of rankStandings.
		var eliminated []string
		if rules.Runoff == entities.RunoffTypeTopTwo && round == 1 {
			for _, item := range standings[2:] {
				eliminated = append(eliminated, item.id)
			}
		} else {
			eliminated = []string{lowestCandidate(standings, history)}
		}
		for _, id := range eliminated {
			delete(continuing, id)
		}
		record.Eliminated = eliminated
		result.Rounds = append(result.Rounds, record)
		history = append(history, counts)
	}
}

// ContestAccounting is what a contest tally consumed from the ledger.
type ContestAccounting struct {
	Rows    int
	Ballots int
}

// Accounting derives the rows and ballots a result accounts for from its
// own counts. Counted methods sum candidate votes; ranked choice sums the
// first round's counts plus its exhausted ballots.
func Accounting(result entities.ContestResult) ContestAccounting {
	if result.VotingMethod == entities.VotingMethodRankedChoice {
		accounting := ContestAccounting{Rows: result.TotalVotes}
		if len(result.Rounds) == 0 {
			return accounting
		}
		first := result.Rounds[0]
		accounting.Ballots = first.Exhausted
		for _, count := range first.Counts {
			accounting.Ballots += count
		}
		return accounting
	}
	accounting := ContestAccounting{Ballots: result.TotalBallots}
	for _, candidate := range result.Candidates {
		accounting.Rows += candidate.Votes
	}
	return accounting
}

// lowestCandidate picks the candidate to eliminate. Ties on the current
// count fall back to earlier rounds, most recent first, then to the
// lexicographically greatest id.
func lowestCandidate(standings []standing, history []map[string]int) string {
	lowest := standings[len(standings)-1].votes
	var tied []string
	for _, item := range standings {
		if item.votes == lowest {
			tied = append(tied, item.id)
		}
	}
	for i := len(history) - 1; i >= 0 && len(tied) > 1; i-- {
		minimum := math.MaxInt
		for _, id := range tied {
			if history[i][id] < minimum {
				minimum = history[i][id]
			}
		}
		var next []string
		for _, id := range tied {
			if history[i][id] == minimum {
				next = append(next, id)
			}
		}
		tied = next
	}
	sort.Strings(tied)
	return tied[len(tied)-1]
}

// groupBallots orders each voter's rows by rank. Ballots are returned in
// voter-key order so downstream counting never depends on map iteration.
func groupBallots(votes []entities.Vote) [][]string {
	rows := make(map[string][]entities.Vote)
	for _, vote := range votes {
		key := vote.Key().String()
		rows[key] = append(rows[key], vote)
	}
	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ballots := make([][]string, 0, len(keys))
	for _, key := range keys {
		items := rows[key]
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Rank == items[j].Rank {
				return items[i].CandidateID < items[j].CandidateID
			}
			return items[i].Rank < items[j].Rank
		})
		seen := make(map[string]bool, len(items))
		ballot := make([]string, 0, len(items))
		for _, item := range items {
			if seen[item.CandidateID] {
				continue
			}
			seen[item.CandidateID] = true
			ballot = append(ballot, item.CandidateID)
		}
		ballots = append(ballots, ballot)
	}
	return ballots
}

type standing struct {
	id    string
	votes int
}

func rankStandings(counts map[string]int) []standing {
	items := make([]standing, 0, len(counts))
	for id, votes := range counts {
		items = append(items, standing{id: id, votes: votes})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].votes == items[j].votes {
			return items[i].id < items[j].id
		}
		return items[i].votes > items[j].votes
	})
	return items
}

func candidateTallies(standings []standing, names map[string]string, base int) []entities.CandidateTally {
	items := make([]entities.CandidateTally, 0, len(standings))
	for _, item := range standings {
		items = append(items, entities.CandidateTally{
			CandidateID: item.id,
			DisplayName: names[item.id],
			Votes:       item.votes,
			Percentage:  percentage(item.votes, base),
		})
	}
	return items
}

func runoffField(runoff entities.RunoffType, standings []standing) []string {
	if len(standings) <= 2 {
		return idsOf(standings)
	}
	if runoff == entities.RunoffTypeEliminateLowest {
		lowest := standings[len(standings)-1].votes
		var ids []string
		for _, item := range standings {
			if item.votes > lowest {
				ids = append(ids, item.id)
			}
		}
		if len(ids) == 0 {
			return idsOf(standings)
		}
		return ids
	}
	return idsWithVotes(standings, standings[1].votes)
}

// idsWithVotes returns every candidate with at least minimum votes.
func idsWithVotes(standings []standing, minimum int) []string {
	var ids []string
	for _, item := range standings {
		if item.votes >= minimum {
			ids = append(ids, item.id)
		}
	}
	return ids
}

func idsOf(standings []standing) []string {
	ids := make([]string, 0, len(standings))
	for _, item := range standings {
		ids = append(ids, item.id)
	}
	return ids
}

func percentage(votes int, base int) float64 {
	if base <= 0 {
		return 0
	}
	return math.Round(float64(votes)*10000/float64(base)) / 100
}
