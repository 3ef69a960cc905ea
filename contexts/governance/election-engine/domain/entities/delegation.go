package entities

import (
	"strings"
	"time"
)

type ProxyType string

const (
	ProxyTypeSingleElection ProxyType = "single_election"
	ProxyTypeStanding       ProxyType = "standing"
)

func ParseProxyType(raw string) (ProxyType, bool) {
	value := ProxyType(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case ProxyTypeSingleElection, ProxyTypeStanding:
		return value, true
	default:
		return "", false
	}
}

// VoterOverride bypasses the tier/attendance gate only.
type VoterOverride struct {
	ElectionID string
	UserID     string
	Reason     string
	GrantedBy  string
	GrantedAt  time.Time
}

type ProxyAuthorization struct {
	AuthorizationID  string
	ElectionID       string
	OrganizationID   string
	DelegatingUserID string
	ProxyUserID      string
	ProxyType        ProxyType
	Reason           string
	GrantedBy        string
	CreatedAt        time.Time
	Revoked          bool
	RevokedAt        *time.Time
	RevokedBy        string
}

// Covers reports whether the authorization applies to the election.
func (a ProxyAuthorization) Covers(election Election) bool {
	if a.ProxyType == ProxyTypeStanding {
		return a.OrganizationID != "" && a.OrganizationID == election.OrganizationID
	}
	return a.ElectionID == election.ElectionID
}

// SharesScope reports whether two authorizations could both apply to one
// election, which is what delegation chains are checked against.
func (a ProxyAuthorization) SharesScope(other ProxyAuthorization) bool {
	if a.OrganizationID != "" && a.OrganizationID != other.OrganizationID {
		return false
	}
	if a.ProxyType == ProxyTypeStanding || other.ProxyType == ProxyTypeStanding {
		return true
	}
	return a.ElectionID == other.ElectionID
}

// TierVotingPolicy is the membership-tier rule set applied by the
// attendance gate.
type TierVotingPolicy struct {
	Tier                 string
	RequiresAttendance   bool
	MinAttendancePercent float64
	LookbackDays         int
}
