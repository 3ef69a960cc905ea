package errors

import "errors"

var (
	ErrValidation             = errors.New("invalid election input")
	ErrNotEligible            = errors.New("voter is not eligible")
	ErrAlreadyVoted           = errors.New("voter has already voted in this contest")
	ErrInvalidStateTransition = errors.New("invalid election state transition")
	ErrRevokedAuthorization   = errors.New("proxy authorization is revoked")
	ErrElectionNotFound       = errors.New("election not found")
	ErrCandidateNotFound      = errors.New("candidate not found")
	ErrVoteNotFound           = errors.New("vote not found")
	ErrAuthorizationNotFound  = errors.New("proxy authorization not found")
	ErrOverrideNotFound       = errors.New("voter override not found")
	ErrAuthorizationConsumed  = errors.New("proxy authorization already used by a recorded vote")
	ErrProxyChainForbidden    = errors.New("proxy delegation chains are not allowed")
	ErrResultsNotAvailable    = errors.New("election results are not available yet")
	ErrSaltDestroyed          = errors.New("election anonymity salt was destroyed")
	ErrForbidden              = errors.New("actor is not allowed to manage this election")
	ErrConflict               = errors.New("election conflict")
	ErrConsistencyCheckFailed = errors.New("ballot ledger consistency check failed")
)

// Eligibility failure reasons.
const (
	ReasonElectionNotOpen     = "election_not_open"
	ReasonOutsideVotingWindow = "outside_voting_window"
	ReasonNotOnVoterList      = "not_on_voter_list"
	ReasonNotActiveMember     = "not_active_member"
	ReasonRoleRestricted      = "role_restricted"
	ReasonAttendanceTooLow    = "attendance_below_threshold"
	ReasonProxyNotAuthorized  = "proxy_not_authorized"
	ReasonNotEligible         = "not_eligible"
)

// NotEligibleError carries the failing eligibility step.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return ErrNotEligible.Error() + ": " + e.Reason
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

func NotEligible(reason string) error {
	return &NotEligibleError{Reason: reason}
}

// PublicReason hides membership lookups on anonymous elections so a caller
// cannot tell an unknown voter from an ineligible one.
func PublicReason(reason string, anonymous bool) string {
	if !anonymous {
		return reason
	}
	switch reason {
	case ReasonNotOnVoterList, ReasonNotActiveMember, ReasonRoleRestricted:
		return ReasonNotEligible
	default:
		return reason
	}
}
