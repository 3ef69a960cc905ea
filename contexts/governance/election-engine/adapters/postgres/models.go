package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
)

type electionModel struct {
	ElectionID                string     `gorm:"column:election_id;primaryKey"`
	OrganizationID            string     `gorm:"column:organization_id"`
	Title                     string     `gorm:"column:title"`
	Description               string     `gorm:"column:description"`
	Positions                 []byte     `gorm:"column:positions"`
	PositionRoles             []byte     `gorm:"column:position_roles"`
	VotingMethod              string     `gorm:"column:voting_method"`
	VictoryCondition          string     `gorm:"column:victory_condition"`
	RunoffType                string     `gorm:"column:runoff_type"`
	SupermajorityThreshold    float64    `gorm:"column:supermajority_threshold"`
	VictoryThreshold          float64    `gorm:"column:victory_threshold"`
	MaxSelections             int        `gorm:"column:max_selections"`
	Anonymous                 bool       `gorm:"column:anonymous"`
	EligibleVoters            []byte     `gorm:"column:eligible_voters"`
	StartDate                 time.Time  `gorm:"column:start_date"`
	EndDate                   time.Time  `gorm:"column:end_date"`
	Status                    string     `gorm:"column:status"`
	ResultsVisibleImmediately bool       `gorm:"column:results_visible_immediately"`
	SaltDestroyedAt           *time.Time `gorm:"column:salt_destroyed_at"`
	CreatedBy                 string     `gorm:"column:created_by"`
	CreatedAt                 time.Time  `gorm:"column:created_at"`
	UpdatedAt                 time.Time  `gorm:"column:updated_at"`
	OpenedAt                  *time.Time `gorm:"column:opened_at"`
	ClosedAt                  *time.Time `gorm:"column:closed_at"`
	ClosingLedgerRows         []byte     `gorm:"column:closing_ledger_rows"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) (electionModel, error) {
	positions, err := json.Marshal(nonNilStrings(election.Positions))
	if err != nil {
		return electionModel{}, err
	}
	roles := election.PositionRoles
	if roles == nil {
		roles = map[string][]string{}
	}
	positionRoles, err := json.Marshal(roles)
	if err != nil {
		return electionModel{}, err
	}
	eligible, err := json.Marshal(nonNilStrings(election.EligibleVoters))
	if err != nil {
		return electionModel{}, err
	}
	var closingRows []byte
	if election.ClosingLedgerRows != nil {
		closingRows, err = json.Marshal(election.ClosingLedgerRows)
		if err != nil {
			return electionModel{}, err
		}
	}
	return electionModel{
		ElectionID:                strings.TrimSpace(election.ElectionID),
		OrganizationID:            strings.TrimSpace(election.OrganizationID),
		Title:                     election.Title,
		Description:               election.Description,
		Positions:                 positions,
		PositionRoles:             positionRoles,
		VotingMethod:              string(election.VotingMethod),
		VictoryCondition:          string(election.VictoryCondition),
		RunoffType:                string(election.RunoffType),
		SupermajorityThreshold:    election.SupermajorityThreshold,
		VictoryThreshold:          election.VictoryThreshold,
		MaxSelections:             election.MaxSelections,
		Anonymous:                 election.Anonymous,
		EligibleVoters:            eligible,
		StartDate:                 election.StartDate.UTC(),
		EndDate:                   election.EndDate.UTC(),
		Status:                    string(election.Status),
		ResultsVisibleImmediately: election.ResultsVisibleImmediately,
		SaltDestroyedAt:           normalizeOptionalTime(election.SaltDestroyedAt),
		CreatedBy:                 election.CreatedBy,
		CreatedAt:                 election.CreatedAt.UTC(),
		UpdatedAt:                 election.UpdatedAt.UTC(),
		OpenedAt:                  normalizeOptionalTime(election.OpenedAt),
		ClosedAt:                  normalizeOptionalTime(election.ClosedAt),
		ClosingLedgerRows:         closingRows,
	}, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	election := entities.Election{
		ElectionID:                m.ElectionID,
		OrganizationID:            m.OrganizationID,
		Title:                     m.Title,
		Description:               m.Description,
		VotingMethod:              entities.VotingMethod(m.VotingMethod),
		VictoryCondition:          entities.VictoryCondition(m.VictoryCondition),
		RunoffType:                entities.RunoffType(m.RunoffType),
		SupermajorityThreshold:    m.SupermajorityThreshold,
		VictoryThreshold:          m.VictoryThreshold,
		MaxSelections:             m.MaxSelections,
		Anonymous:                 m.Anonymous,
		StartDate:                 m.StartDate.UTC(),
		EndDate:                   m.EndDate.UTC(),
		Status:                    entities.ElectionStatus(m.Status),
		ResultsVisibleImmediately: m.ResultsVisibleImmediately,
		SaltDestroyedAt:           normalizeOptionalTime(m.SaltDestroyedAt),
		CreatedBy:                 m.CreatedBy,
		CreatedAt:                 m.CreatedAt.UTC(),
		UpdatedAt:                 m.UpdatedAt.UTC(),
		OpenedAt:                  normalizeOptionalTime(m.OpenedAt),
		ClosedAt:                  normalizeOptionalTime(m.ClosedAt),
	}
	if len(m.Positions) > 0 {
		if err := json.Unmarshal(m.Positions, &election.Positions); err != nil {
			return entities.Election{}, err
		}
	}
	if len(m.PositionRoles) > 0 {
		if err := json.Unmarshal(m.PositionRoles, &election.PositionRoles); err != nil {
			return entities.Election{}, err
		}
	}
	if len(m.EligibleVoters) > 0 {
		if err := json.Unmarshal(m.EligibleVoters, &election.EligibleVoters); err != nil {
			return entities.Election{}, err
		}
	}
	if len(m.ClosingLedgerRows) > 0 {
		if err := json.Unmarshal(m.ClosingLedgerRows, &election.ClosingLedgerRows); err != nil {
			return entities.Election{}, err
		}
	}
	if len(election.Positions) == 0 {
		election.Positions = nil
	}
	if len(election.PositionRoles) == 0 {
		election.PositionRoles = nil
	}
	if len(election.EligibleVoters) == 0 {
		election.EligibleVoters = nil
	}
	return election, nil
}

type saltModel struct {
	ElectionID  string     `gorm:"column:election_id;primaryKey"`
	Salt        []byte     `gorm:"column:salt"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	DestroyedAt *time.Time `gorm:"column:destroyed_at"`
}

func (saltModel) TableName() string {
	return "election_salts"
}

type candidateModel struct {
	CandidateID        string    `gorm:"column:candidate_id;primaryKey"`
	ElectionID         string    `gorm:"column:election_id"`
	DisplayName        string    `gorm:"column:display_name"`
	Position           string    `gorm:"column:position"`
	UserID             *string   `gorm:"column:user_id"`
	AcceptedNomination bool      `gorm:"column:accepted_nomination"`
	IsWriteIn          bool      `gorm:"column:is_write_in"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (candidateModel) TableName() string {
	return "election_candidates"
}

func candidateModelFromEntity(candidate entities.Candidate) candidateModel {
	return candidateModel{
		CandidateID:        strings.TrimSpace(candidate.CandidateID),
		ElectionID:         strings.TrimSpace(candidate.ElectionID),
		DisplayName:        candidate.DisplayName,
		Position:           candidate.Position,
		UserID:             optionalString(candidate.UserID),
		AcceptedNomination: candidate.AcceptedNomination,
		IsWriteIn:          candidate.IsWriteIn,
		CreatedAt:          candidate.CreatedAt.UTC(),
		UpdatedAt:          candidate.UpdatedAt.UTC(),
	}
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		CandidateID:        m.CandidateID,
		ElectionID:         m.ElectionID,
		DisplayName:        m.DisplayName,
		Position:           m.Position,
		UserID:             derefString(m.UserID),
		AcceptedNomination: m.AcceptedNomination,
		IsWriteIn:          m.IsWriteIn,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

// voteModel keeps nullable identity columns as pointers so the partial
// unique indexes and the one-key CHECK see real NULLs.
type voteModel struct {
	VoteID                string     `gorm:"column:vote_id;primaryKey"`
	BallotID              string     `gorm:"column:ballot_id"`
	ElectionID            string     `gorm:"column:election_id"`
	CandidateID           string     `gorm:"column:candidate_id"`
	Position              string     `gorm:"column:position"`
	Rank                  int        `gorm:"column:rank"`
	VoterID               *string    `gorm:"column:voter_id"`
	VoterHash             *string    `gorm:"column:voter_hash"`
	VotedAt               time.Time  `gorm:"column:voted_at"`
	IsProxyVote           bool       `gorm:"column:is_proxy_vote"`
	ProxyVoterID          *string    `gorm:"column:proxy_voter_id"`
	ProxyDelegatingUserID *string    `gorm:"column:proxy_delegating_user_id"`
	ProxyAuthorizationID  *string    `gorm:"column:proxy_authorization_id"`
	OverrideApplied       bool       `gorm:"column:override_applied"`
	IPAddress             string     `gorm:"column:ip_address"`
	UserAgent             string     `gorm:"column:user_agent"`
	DeletedAt             *time.Time `gorm:"column:deleted_at"`
	DeletedBy             *string    `gorm:"column:deleted_by"`
	DeletionReason        *string    `gorm:"column:deletion_reason"`
}

func (voteModel) TableName() string {
	return "election_votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		VoteID:                strings.TrimSpace(vote.VoteID),
		BallotID:              strings.TrimSpace(vote.BallotID),
		ElectionID:            strings.TrimSpace(vote.ElectionID),
		CandidateID:           strings.TrimSpace(vote.CandidateID),
		Position:              vote.Position,
		Rank:                  vote.Rank,
		VoterID:               optionalString(vote.VoterID),
		VoterHash:             optionalString(vote.VoterHash),
		VotedAt:               vote.VotedAt.UTC(),
		IsProxyVote:           vote.IsProxyVote,
		ProxyVoterID:          optionalString(vote.ProxyVoterID),
		ProxyDelegatingUserID: optionalString(vote.ProxyDelegatingUserID),
		ProxyAuthorizationID:  optionalString(vote.ProxyAuthorizationID),
		OverrideApplied:       vote.OverrideApplied,
		IPAddress:             vote.IPAddress,
		UserAgent:             vote.UserAgent,
		DeletedAt:             normalizeOptionalTime(vote.DeletedAt),
		DeletedBy:             optionalString(vote.DeletedBy),
		DeletionReason:        optionalString(vote.DeletionReason),
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:                m.VoteID,
		BallotID:              m.BallotID,
		ElectionID:            m.ElectionID,
		CandidateID:           m.CandidateID,
		Position:              m.Position,
		Rank:                  m.Rank,
		VoterID:               derefString(m.VoterID),
		VoterHash:             derefString(m.VoterHash),
		VotedAt:               m.VotedAt.UTC(),
		IsProxyVote:           m.IsProxyVote,
		ProxyVoterID:          derefString(m.ProxyVoterID),
		ProxyDelegatingUserID: derefString(m.ProxyDelegatingUserID),
		ProxyAuthorizationID:  derefString(m.ProxyAuthorizationID),
		OverrideApplied:       m.OverrideApplied,
		IPAddress:             m.IPAddress,
		UserAgent:             m.UserAgent,
		DeletedAt:             normalizeOptionalTime(m.DeletedAt),
		DeletedBy:             derefString(m.DeletedBy),
		DeletionReason:        derefString(m.DeletionReason),
	}
}

type overrideModel struct {
	ElectionID string    `gorm:"column:election_id;primaryKey"`
	UserID     string    `gorm:"column:user_id;primaryKey"`
	Reason     string    `gorm:"column:reason"`
	GrantedBy  string    `gorm:"column:granted_by"`
	GrantedAt  time.Time `gorm:"column:granted_at"`
}

func (overrideModel) TableName() string {
	return "election_voter_overrides"
}

func (m overrideModel) toEntity() entities.VoterOverride {
	return entities.VoterOverride{
		ElectionID: m.ElectionID,
		UserID:     m.UserID,
		Reason:     m.Reason,
		GrantedBy:  m.GrantedBy,
		GrantedAt:  m.GrantedAt.UTC(),
	}
}

type proxyAuthorizationModel struct {
	AuthorizationID  string     `gorm:"column:authorization_id;primaryKey"`
	ElectionID       string     `gorm:"column:election_id"`
	OrganizationID   string     `gorm:"column:organization_id"`
	DelegatingUserID string     `gorm:"column:delegating_user_id"`
	ProxyUserID      string     `gorm:"column:proxy_user_id"`
	ProxyType        string     `gorm:"column:proxy_type"`
	Reason           string     `gorm:"column:reason"`
	GrantedBy        string     `gorm:"column:granted_by"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	Revoked          bool       `gorm:"column:revoked"`
	RevokedAt        *time.Time `gorm:"column:revoked_at"`
	RevokedBy        *string    `gorm:"column:revoked_by"`
}

func (proxyAuthorizationModel) TableName() string {
	return "election_proxy_authorizations"
}

func proxyModelFromEntity(authorization entities.ProxyAuthorization) proxyAuthorizationModel {
	return proxyAuthorizationModel{
		AuthorizationID:  strings.TrimSpace(authorization.AuthorizationID),
		ElectionID:       strings.TrimSpace(authorization.ElectionID),
		OrganizationID:   strings.TrimSpace(authorization.OrganizationID),
		DelegatingUserID: strings.TrimSpace(authorization.DelegatingUserID),
		ProxyUserID:      strings.TrimSpace(authorization.ProxyUserID),
		ProxyType:        string(authorization.ProxyType),
		Reason:           authorization.Reason,
		GrantedBy:        authorization.GrantedBy,
		CreatedAt:        authorization.CreatedAt.UTC(),
		Revoked:          authorization.Revoked,
		RevokedAt:        normalizeOptionalTime(authorization.RevokedAt),
		RevokedBy:        optionalString(authorization.RevokedBy),
	}
}

func (m proxyAuthorizationModel) toEntity() entities.ProxyAuthorization {
	return entities.ProxyAuthorization{
		AuthorizationID:  m.AuthorizationID,
		ElectionID:       m.ElectionID,
		OrganizationID:   m.OrganizationID,
		DelegatingUserID: m.DelegatingUserID,
		ProxyUserID:      m.ProxyUserID,
		ProxyType:        entities.ProxyType(m.ProxyType),
		Reason:           m.Reason,
		GrantedBy:        m.GrantedBy,
		CreatedAt:        m.CreatedAt.UTC(),
		Revoked:          m.Revoked,
		RevokedAt:        normalizeOptionalTime(m.RevokedAt),
		RevokedBy:        derefString(m.RevokedBy),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}

type memberModel struct {
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	UserID         string `gorm:"column:user_id;primaryKey"`
	Status         string `gorm:"column:status"`
	Tier           string `gorm:"column:tier"`
}

func (memberModel) TableName() string {
	return "organization_members"
}

type memberRoleModel struct {
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	UserID         string `gorm:"column:user_id;primaryKey"`
	Role           string `gorm:"column:role;primaryKey"`
}

func (memberRoleModel) TableName() string {
	return "member_roles"
}

type membershipTierModel struct {
	OrganizationID       string  `gorm:"column:organization_id;primaryKey"`
	Tier                 string  `gorm:"column:tier;primaryKey"`
	RequiresAttendance   bool    `gorm:"column:requires_attendance"`
	MinAttendancePercent float64 `gorm:"column:min_attendance_percent"`
	LookbackDays         int     `gorm:"column:lookback_days"`
}

func (membershipTierModel) TableName() string {
	return "membership_tiers"
}

type attendanceModel struct {
	OrganizationID string    `gorm:"column:organization_id;primaryKey"`
	UserID         string    `gorm:"column:user_id;primaryKey"`
	MeetingID      string    `gorm:"column:meeting_id;primaryKey"`
	MeetingAt      time.Time `gorm:"column:meeting_at"`
	Attended       bool      `gorm:"column:attended"`
}

func (attendanceModel) TableName() string {
	return "meeting_attendance"
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
