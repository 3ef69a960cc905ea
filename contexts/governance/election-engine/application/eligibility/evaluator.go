package eligibility

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"
)

// DefaultLookbackDays applies when a tier requires attendance but does not
// configure a window.
const DefaultLookbackDays = 90

// Request identifies the voter whose eligibility is evaluated. For proxy
// ballots VoterID is the delegating user.
type Request struct {
	Election entities.Election
	VoterID  string
	Position string
	Key      entities.VoterKey
}

type Decision struct {
	OverrideApplied   bool
	AttendanceChecked bool
	AttendancePercent float64
}

// Evaluator runs the eligibility steps in order and stops at the first
// failure. Overrides only ever skip the attendance step.
type Evaluator struct {
	Directory   ports.MembershipDirectory
	Attendance  ports.AttendanceSource
	Delegations ports.DelegationRepository
	Ledger      ports.BallotLedger
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (e Evaluator) Evaluate(ctx context.Context, req Request) (Decision, error) {
	election := req.Election
	voterID := strings.TrimSpace(req.VoterID)
	position := strings.TrimSpace(req.Position)
	now := e.now()

	if election.Status != entities.ElectionStatusOpen {
		return Decision{}, e.reject(req, domainerrors.ReasonElectionNotOpen)
	}
	if !election.WithinVotingWindow(now) {
		return Decision{}, e.reject(req, domainerrors.ReasonOutsideVotingWindow)
	}

	if len(election.EligibleVoters) > 0 {
		if !election.IsEligibleListed(voterID) {
			return Decision{}, e.reject(req, domainerrors.ReasonNotOnVoterList)
		}
	} else {
		active, err := e.Directory.IsActiveMember(ctx, election.OrganizationID, voterID)
		if err != nil {
			return Decision{}, e.lookupFailed(req, "membership", err)
		}
		if !active {
			return Decision{}, e.reject(req, domainerrors.ReasonNotActiveMember)
		}
	}

	if len(election.Positions) > 0 && position != "" {
		if required := election.RolesForPosition(position); len(required) > 0 {
			roles, err := e.Directory.MemberRoles(ctx, election.OrganizationID, voterID)
			if err != nil {
				return Decision{}, e.lookupFailed(req, "roles", err)
			}
			if !hasAnyRole(roles, required) {
				return Decision{}, e.reject(req, domainerrors.ReasonRoleRestricted)
			}
		}
	}

	voted, err := e.Ledger.HasVoted(ctx, election.ElectionID, position, req.Key)
	if err != nil {
		return Decision{}, e.lookupFailed(req, "ledger", err)
	}
	if voted {
		return Decision{}, domainerrors.ErrAlreadyVoted
	}

	policy, err := e.Directory.VotingPolicy(ctx, election.OrganizationID, voterID)
	if err != nil {
		return Decision{}, e.lookupFailed(req, "tier_policy", err)
	}
	if !policy.RequiresAttendance {
		return Decision{}, nil
	}

	_, overridden, err := e.Delegations.GetVoterOverride(ctx, election.ElectionID, voterID)
	if err != nil {
		return Decision{}, e.lookupFailed(req, "override", err)
	}
	if overridden {
		return Decision{OverrideApplied: true}, nil
	}

	lookback := policy.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	from := now.Add(-time.Duration(lookback) * 24 * time.Hour)
	percent, err := e.Attendance.AttendancePercentage(ctx, election.OrganizationID, voterID, from, now)
	if err != nil {
		return Decision{}, e.lookupFailed(req, "attendance", err)
	}
	decision := Decision{AttendanceChecked: true, AttendancePercent: percent}
	if percent < policy.MinAttendancePercent {
		return decision, e.reject(req, domainerrors.ReasonAttendanceTooLow)
	}
	return decision, nil
}

func (e Evaluator) reject(req Request, reason string) error {
	logger := application.ResolveLogger(e.Logger)
	attrs := []any{
		"event", "election_eligibility_rejected",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", req.Election.ElectionID,
		"position", req.Position,
		"reason", reason,
	}
	if !req.Election.Anonymous {
		attrs = append(attrs, "voter_id", strings.TrimSpace(req.VoterID))
	}
	logger.Info("voter failed eligibility", attrs...)
	return domainerrors.NotEligible(domainerrors.PublicReason(reason, req.Election.Anonymous))
}

func (e Evaluator) lookupFailed(req Request, source string, err error) error {
	logger := application.ResolveLogger(e.Logger)
	logger.Error("eligibility lookup failed",
		"event", "election_eligibility_lookup_failed",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", req.Election.ElectionID,
		"source", source,
		"error", err.Error(),
	)
	return err
}

func (e Evaluator) now() time.Time {
	if e.Clock == nil {
		return time.Now().UTC()
	}
	return e.Clock.Now().UTC()
}

func hasAnyRole(roles []string, required []string) bool {
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		for _, want := range required {
			if role == strings.ToLower(strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}
