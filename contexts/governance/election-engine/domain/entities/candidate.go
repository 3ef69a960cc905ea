package entities

import "time"

type Candidate struct {
	CandidateID        string
	ElectionID         string
	DisplayName        string
	Position           string
	UserID             string
	AcceptedNomination bool
	IsWriteIn          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Votable reports whether ballots may target the candidate.
func (c Candidate) Votable() bool {
	return c.IsWriteIn || c.AcceptedNomination
}
