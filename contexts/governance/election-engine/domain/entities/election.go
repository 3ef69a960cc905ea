package entities

import (
	"strings"
	"time"
)

type ElectionStatus string

const (
	ElectionStatusDraft  ElectionStatus = "draft"
	ElectionStatusOpen   ElectionStatus = "open"
	ElectionStatusClosed ElectionStatus = "closed"
)

type VotingMethod string

const (
	VotingMethodSimpleMajority VotingMethod = "simple_majority"
	VotingMethodRankedChoice   VotingMethod = "ranked_choice"
	VotingMethodApproval       VotingMethod = "approval"
	VotingMethodSupermajority  VotingMethod = "supermajority"
)

type VictoryCondition string

const (
	VictoryConditionMostVotes     VictoryCondition = "most_votes"
	VictoryConditionMajority      VictoryCondition = "majority"
	VictoryConditionSupermajority VictoryCondition = "supermajority"
	VictoryConditionThreshold     VictoryCondition = "threshold"
)

type RunoffType string

const (
	RunoffTypeTopTwo          RunoffType = "top_two"
	RunoffTypeEliminateLowest RunoffType = "eliminate_lowest"
)

// DefaultSupermajorityThreshold is applied when an election does not
// configure its own fraction.
const DefaultSupermajorityThreshold = 2.0 / 3.0

// AtLargeContest is the storage value of the position for elections
// without named positions.
const AtLargeContest = ""

func ParseElectionStatus(raw string) (ElectionStatus, bool) {
	value := ElectionStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case ElectionStatusDraft, ElectionStatusOpen, ElectionStatusClosed:
		return value, true
	default:
		return "", false
	}
}

func ParseVotingMethod(raw string) (VotingMethod, bool) {
	value := VotingMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case VotingMethodSimpleMajority, VotingMethodRankedChoice, VotingMethodApproval, VotingMethodSupermajority:
		return value, true
	default:
		return "", false
	}
}

func ParseVictoryCondition(raw string) (VictoryCondition, bool) {
	value := VictoryCondition(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case VictoryConditionMostVotes, VictoryConditionMajority, VictoryConditionSupermajority, VictoryConditionThreshold:
		return value, true
	default:
		return "", false
	}
}

func ParseRunoffType(raw string) (RunoffType, bool) {
	value := RunoffType(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case RunoffTypeTopTwo, RunoffTypeEliminateLowest:
		return value, true
	default:
		return "", false
	}
}

// AllowsMultipleRows reports whether one ballot may be stored as several
// vote rows for the same voter and contest.
func (m VotingMethod) AllowsMultipleRows() bool {
	return m == VotingMethodApproval || m == VotingMethodRankedChoice
}

type Election struct {
	ElectionID                string
	OrganizationID            string
	Title                     string
	Description               string
	Positions                 []string
	PositionRoles             map[string][]string
	VotingMethod              VotingMethod
	VictoryCondition          VictoryCondition
	RunoffType                RunoffType
	SupermajorityThreshold    float64
	VictoryThreshold          float64
	MaxSelections             int
	Anonymous                 bool
	EligibleVoters            []string
	StartDate                 time.Time
	EndDate                   time.Time
	Status                    ElectionStatus
	ResultsVisibleImmediately bool
	SaltDestroyedAt           *time.Time
	CreatedBy                 string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
	OpenedAt                  *time.Time
	ClosedAt                  *time.Time
	// ClosingLedgerRows holds the live vote rows per contest counted when
	// the election closed. Nil for elections that never closed.
	ClosingLedgerRows map[string]int
}

// ElectionSalt is the per-election HMAC key for anonymous voter hashes.
// A destroyed salt keeps its row with an empty key.
type ElectionSalt struct {
	ElectionID  string
	Salt        []byte
	CreatedAt   time.Time
	DestroyedAt *time.Time
}

func (s ElectionSalt) Destroyed() bool {
	return s.DestroyedAt != nil || len(s.Salt) == 0
}

// Contests lists the contest keys of the election in ballot order.
func (e Election) Contests() []string {
	if len(e.Positions) == 0 {
		return []string{AtLargeContest}
	}
	return append([]string(nil), e.Positions...)
}

func (e Election) HasPosition(position string) bool {
	position = strings.TrimSpace(position)
	if len(e.Positions) == 0 {
		return position == AtLargeContest
	}
	for _, item := range e.Positions {
		if item == position {
			return true
		}
	}
	return false
}

func (e Election) RolesForPosition(position string) []string {
	if e.PositionRoles == nil {
		return nil
	}
	return e.PositionRoles[strings.TrimSpace(position)]
}

func (e Election) IsEligibleListed(userID string) bool {
	userID = strings.TrimSpace(userID)
	for _, item := range e.EligibleVoters {
		if strings.TrimSpace(item) == userID {
			return true
		}
	}
	return false
}

// WithinVotingWindow reports whether now lies in [StartDate, EndDate].
func (e Election) WithinVotingWindow(now time.Time) bool {
	now = now.UTC()
	return !now.Before(e.StartDate.UTC()) && !now.After(e.EndDate.UTC())
}

// DisclosesResults is the disclosure gate for tallies.
func (e Election) DisclosesResults(now time.Time) bool {
	if e.Status != ElectionStatusClosed {
		return false
	}
	return e.ResultsVisibleImmediately || now.UTC().After(e.EndDate.UTC())
}

// ResolvedSupermajority returns the configured fraction or the default.
func (e Election) ResolvedSupermajority() float64 {
	if e.SupermajorityThreshold <= 0 {
		return DefaultSupermajorityThreshold
	}
	return e.SupermajorityThreshold
}
