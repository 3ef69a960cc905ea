package services

import (
	"fmt"
	"strings"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
)

// ValidateElection checks the configuration invariants of an election that
// do not depend on its candidates.
func ValidateElection(election entities.Election) error {
	if strings.TrimSpace(election.OrganizationID) == "" {
		return invalid("organization_id is required")
	}
	if strings.TrimSpace(election.Title) == "" {
		return invalid("title is required")
	}
	if _, ok := entities.ParseVotingMethod(string(election.VotingMethod)); !ok {
		return invalid("unsupported voting_method %q", election.VotingMethod)
	}
	if _, ok := entities.ParseVictoryCondition(string(election.VictoryCondition)); !ok {
		return invalid("unsupported victory_condition %q", election.VictoryCondition)
	}
	if _, ok := entities.ParseRunoffType(string(election.RunoffType)); !ok {
		return invalid("unsupported runoff_type %q", election.RunoffType)
	}

	seen := make(map[string]struct{}, len(election.Positions))
	for _, position := range election.Positions {
		if strings.TrimSpace(position) == "" || position != strings.TrimSpace(position) {
			return invalid("positions must be non-empty trimmed names")
		}
		if _, ok := seen[position]; ok {
			return invalid("position %q is listed twice", position)
		}
		seen[position] = struct{}{}
	}
	for position := range election.PositionRoles {
		if _, ok := seen[position]; !ok {
			return invalid("role restriction targets unknown position %q", position)
		}
	}

	if election.StartDate.IsZero() || election.EndDate.IsZero() {
		return invalid("start_date and end_date are required")
	}
	if !election.EndDate.After(election.StartDate) {
		return invalid("end_date must be after start_date")
	}

	if election.SupermajorityThreshold != 0 &&
		(election.SupermajorityThreshold <= 0.5 || election.SupermajorityThreshold > 1) {
		return invalid("supermajority_threshold must be in (0.5, 1]")
	}
	if election.VictoryCondition == entities.VictoryConditionThreshold &&
		(election.VictoryThreshold <= 0 || election.VictoryThreshold > 1) {
		return invalid("victory_threshold must be in (0, 1] for the threshold condition")
	}
	if election.MaxSelections < 0 {
		return invalid("max_selections must not be negative")
	}
	return nil
}

// ValidateSelection checks the shape of a ballot for the election's method.
func ValidateSelection(method entities.VotingMethod, maxSelections int, candidateIDs []string) error {
	if len(candidateIDs) == 0 {
		return invalid("at least one candidate is required")
	}
	seen := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		if _, ok := seen[id]; ok {
			return invalid("candidate %q appears twice on the ballot", id)
		}
		seen[id] = struct{}{}
	}
	if !method.AllowsMultipleRows() && len(candidateIDs) != 1 {
		return invalid("%s ballots select exactly one candidate", method)
	}
	if method == entities.VotingMethodApproval && maxSelections > 0 && len(candidateIDs) > maxSelections {
		return invalid("at most %d candidates may be approved", maxSelections)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domainerrors.ErrValidation}, args...)...)
}
