package entities

import "time"

type CandidateTally struct {
	CandidateID string
	DisplayName string
	Votes       int
	Percentage  float64
}

// TallyRound is one instant-runoff round.
type TallyRound struct {
	Round      int
	Counts     map[string]int
	Active     int
	Exhausted  int
	Eliminated []string
}

type ContestResult struct {
	Position         string
	VotingMethod     VotingMethod
	VictoryCondition VictoryCondition
	TotalBallots     int
	TotalVotes       int
	Candidates       []CandidateTally
	Rounds           []TallyRound
	WinnerID         string
	Tie              bool
	RunoffRequired   bool
	RunoffCandidates []string
}

type ElectionResults struct {
	ElectionID string
	Status     ElectionStatus
	TalliedAt  time.Time
	Contests   []ContestResult
}

type ContestTurnout struct {
	Position     string
	BallotsCast  int
	ProxyBallots int
}

// BallotStats carries turnout only, never per-candidate counts.
type BallotStats struct {
	ElectionID     string
	Status         ElectionStatus
	EligibleVoters int
	Contests       []ContestTurnout
	TurnoutPercent float64
	GeneratedAt    time.Time
}
