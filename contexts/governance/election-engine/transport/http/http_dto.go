package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type CreateElectionRequest struct {
	OrganizationID            string              `json:"organization_id"`
	Title                     string              `json:"title"`
	Description               string              `json:"description"`
	Positions                 []string            `json:"positions"`
	PositionRoles             map[string][]string `json:"position_roles,omitempty"`
	VotingMethod              string              `json:"voting_method"`
	VictoryCondition          string              `json:"victory_condition"`
	RunoffType                string              `json:"runoff_type,omitempty"`
	SupermajorityThreshold    float64             `json:"supermajority_threshold,omitempty"`
	VictoryThreshold          float64             `json:"victory_threshold,omitempty"`
	MaxSelections             int                 `json:"max_selections,omitempty"`
	Anonymous                 bool                `json:"anonymous"`
	EligibleVoters            []string            `json:"eligible_voters,omitempty"`
	StartDate                 time.Time           `json:"start_date"`
	EndDate                   time.Time           `json:"end_date"`
	ResultsVisibleImmediately bool                `json:"results_visible_immediately"`
}

// UpdateElectionRequest is a JSON merge patch: omitted fields stay as they are.
type UpdateElectionRequest struct {
	Title                     *string              `json:"title,omitempty"`
	Description               *string              `json:"description,omitempty"`
	Positions                 *[]string            `json:"positions,omitempty"`
	PositionRoles             *map[string][]string `json:"position_roles,omitempty"`
	VotingMethod              *string              `json:"voting_method,omitempty"`
	VictoryCondition          *string              `json:"victory_condition,omitempty"`
	RunoffType                *string              `json:"runoff_type,omitempty"`
	SupermajorityThreshold    *float64             `json:"supermajority_threshold,omitempty"`
	VictoryThreshold          *float64             `json:"victory_threshold,omitempty"`
	MaxSelections             *int                 `json:"max_selections,omitempty"`
	Anonymous                 *bool                `json:"anonymous,omitempty"`
	EligibleVoters            *[]string            `json:"eligible_voters,omitempty"`
	StartDate                 *time.Time           `json:"start_date,omitempty"`
	EndDate                   *time.Time           `json:"end_date,omitempty"`
	ResultsVisibleImmediately *bool                `json:"results_visible_immediately,omitempty"`
}

type ElectionResponse struct {
	ElectionID                string              `json:"election_id"`
	OrganizationID            string              `json:"organization_id"`
	Title                     string              `json:"title"`
	Description               string              `json:"description"`
	Positions                 []string            `json:"positions"`
	PositionRoles             map[string][]string `json:"position_roles,omitempty"`
	VotingMethod              string              `json:"voting_method"`
	VictoryCondition          string              `json:"victory_condition"`
	RunoffType                string              `json:"runoff_type"`
	SupermajorityThreshold    float64             `json:"supermajority_threshold"`
	VictoryThreshold          float64             `json:"victory_threshold,omitempty"`
	MaxSelections             int                 `json:"max_selections,omitempty"`
	Anonymous                 bool                `json:"anonymous"`
	EligibleVoterCount        int                 `json:"eligible_voter_count"`
	StartDate                 time.Time           `json:"start_date"`
	EndDate                   time.Time           `json:"end_date"`
	Status                    string              `json:"status"`
	ResultsVisibleImmediately bool                `json:"results_visible_immediately"`
	SaltDestroyed             bool                `json:"salt_destroyed"`
	CreatedBy                 string              `json:"created_by"`
	CreatedAt                 time.Time           `json:"created_at"`
	UpdatedAt                 time.Time           `json:"updated_at"`
	OpenedAt                  *time.Time          `json:"opened_at,omitempty"`
	ClosedAt                  *time.Time          `json:"closed_at,omitempty"`
	Candidates                []CandidateResponse `json:"candidates,omitempty"`
}

type RollbackResponse struct {
	Election     ElectionResponse `json:"election"`
	DeletedVotes int              `json:"deleted_votes"`
}

type AddCandidateRequest struct {
	DisplayName        string `json:"display_name"`
	Position           string `json:"position,omitempty"`
	UserID             string `json:"user_id,omitempty"`
	IsWriteIn          bool   `json:"is_write_in"`
	AcceptedNomination bool   `json:"accepted_nomination"`
}

type CandidateResponse struct {
	CandidateID        string    `json:"candidate_id"`
	ElectionID         string    `json:"election_id"`
	DisplayName        string    `json:"display_name"`
	Position           string    `json:"position,omitempty"`
	UserID             string    `json:"user_id,omitempty"`
	AcceptedNomination bool      `json:"accepted_nomination"`
	IsWriteIn          bool      `json:"is_write_in"`
	CreatedAt          time.Time `json:"created_at"`
}

type CastVoteRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
	Position     string   `json:"position,omitempty"`
}

type CastProxyVoteRequest struct {
	AuthorizationID string   `json:"authorization_id"`
	CandidateIDs    []string `json:"candidate_ids"`
	Position        string   `json:"position,omitempty"`
}

// CastVoteResponse never echoes the voter identity, so anonymous receipts
// carry only the ballot id.
type CastVoteResponse struct {
	BallotID        string    `json:"ballot_id"`
	ElectionID      string    `json:"election_id"`
	Position        string    `json:"position,omitempty"`
	VoteIDs         []string  `json:"vote_ids"`
	IsProxyVote     bool      `json:"is_proxy_vote"`
	OverrideApplied bool      `json:"override_applied"`
	VotedAt         time.Time `json:"voted_at"`
}

type VoidBallotRequest struct {
	Reason string `json:"reason"`
}

type VoidBallotResponse struct {
	BallotID    string `json:"ballot_id"`
	VoidedVotes int    `json:"voided_votes"`
}

type GrantOverrideRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type GrantOverridesBulkRequest struct {
	UserIDs []string `json:"user_ids"`
	Reason  string   `json:"reason"`
}

type OverrideResponse struct {
	ElectionID string    `json:"election_id"`
	UserID     string    `json:"user_id"`
	Reason     string    `json:"reason"`
	GrantedBy  string    `json:"granted_by"`
	GrantedAt  time.Time `json:"granted_at"`
}

type BulkOverrideResponse struct {
	Requested int `json:"requested"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}

type CreateProxyAuthorizationRequest struct {
	DelegatingUserID string `json:"delegating_user_id"`
	ProxyUserID      string `json:"proxy_user_id"`
	ProxyType        string `json:"proxy_type,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

type ProxyAuthorizationResponse struct {
	AuthorizationID  string     `json:"authorization_id"`
	ElectionID       string     `json:"election_id"`
	OrganizationID   string     `json:"organization_id"`
	DelegatingUserID string     `json:"delegating_user_id"`
	ProxyUserID      string     `json:"proxy_user_id"`
	ProxyType        string     `json:"proxy_type"`
	Reason           string     `json:"reason,omitempty"`
	GrantedBy        string     `json:"granted_by"`
	CreatedAt        time.Time  `json:"created_at"`
	Revoked          bool       `json:"revoked"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
}

type ProxyAuthorizationListResponse struct {
	Items []ProxyAuthorizationResponse `json:"items"`
}

type CandidateTallyResponse struct {
	CandidateID string  `json:"candidate_id"`
	DisplayName string  `json:"display_name"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

type TallyRoundResponse struct {
	Round      int            `json:"round"`
	Counts     map[string]int `json:"counts"`
	Active     int            `json:"active_ballots"`
	Exhausted  int            `json:"exhausted_ballots"`
	Eliminated []string       `json:"eliminated,omitempty"`
}

type ContestResultResponse struct {
	Position         string                   `json:"position,omitempty"`
	VotingMethod     string                   `json:"voting_method"`
	VictoryCondition string                   `json:"victory_condition"`
	TotalBallots     int                      `json:"total_ballots"`
	TotalVotes       int                      `json:"total_votes"`
	Candidates       []CandidateTallyResponse `json:"candidates"`
	Rounds           []TallyRoundResponse     `json:"rounds,omitempty"`
	WinnerID         string                   `json:"winner_id,omitempty"`
	Tie              bool                     `json:"tie"`
	RunoffRequired   bool                     `json:"runoff_required"`
	RunoffCandidates []string                 `json:"runoff_candidates,omitempty"`
}

type ElectionResultsResponse struct {
	ElectionID string                  `json:"election_id"`
	Status     string                  `json:"status"`
	TalliedAt  time.Time               `json:"tallied_at"`
	Contests   []ContestResultResponse `json:"contests"`
}

type ContestTurnoutResponse struct {
	Position     string `json:"position,omitempty"`
	BallotsCast  int    `json:"ballots_cast"`
	ProxyBallots int    `json:"proxy_ballots"`
}

type BallotStatsResponse struct {
	ElectionID     string                   `json:"election_id"`
	Status         string                   `json:"status"`
	EligibleVoters int                      `json:"eligible_voters,omitempty"`
	Contests       []ContestTurnoutResponse `json:"contests"`
	TurnoutPercent float64                  `json:"turnout_percent,omitempty"`
	GeneratedAt    time.Time                `json:"generated_at"`
}
