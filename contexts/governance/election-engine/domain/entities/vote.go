package entities

import (
	"strings"
	"time"
)

// VoterKey is the storage identity of a ballot: exactly one of the two
// fields is set.
type VoterKey struct {
	VoterID   string
	VoterHash string
}

func DirectKey(voterID string) VoterKey {
	return VoterKey{VoterID: strings.TrimSpace(voterID)}
}

func HashedKey(voterHash string) VoterKey {
	return VoterKey{VoterHash: strings.TrimSpace(voterHash)}
}

func (k VoterKey) Valid() bool {
	return (k.VoterID == "") != (k.VoterHash == "")
}

func (k VoterKey) Anonymous() bool {
	return k.VoterHash != ""
}

// String is stable across both key kinds and never collides between them.
func (k VoterKey) String() string {
	if k.VoterHash != "" {
		return "h:" + k.VoterHash
	}
	return "u:" + k.VoterID
}

type Vote struct {
	VoteID                string
	BallotID              string
	ElectionID            string
	CandidateID           string
	Position              string
	Rank                  int
	VoterID               string
	VoterHash             string
	VotedAt               time.Time
	IsProxyVote           bool
	ProxyVoterID          string
	ProxyDelegatingUserID string
	ProxyAuthorizationID  string
	OverrideApplied       bool
	IPAddress             string
	UserAgent             string
	DeletedAt             *time.Time
	DeletedBy             string
	DeletionReason        string
}

func (v Vote) Key() VoterKey {
	return VoterKey{VoterID: v.VoterID, VoterHash: v.VoterHash}
}

func (v Vote) Deleted() bool {
	return v.DeletedAt != nil
}
