package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"
)

type CreateElectionCommand struct {
	ActorID                   string
	OrganizationID            string
	Title                     string
	Description               string
	Positions                 []string
	PositionRoles             map[string][]string
	VotingMethod              string
	VictoryCondition          string
	RunoffType                string
	SupermajorityThreshold    float64
	VictoryThreshold          float64
	MaxSelections             int
	Anonymous                 bool
	EligibleVoters            []string
	StartDate                 time.Time
	EndDate                   time.Time
	ResultsVisibleImmediately bool
}

// UpdateElectionCommand is a patch: nil fields are left untouched.
type UpdateElectionCommand struct {
	ActorID                   string
	ElectionID                string
	Title                     *string
	Description               *string
	Positions                 *[]string
	PositionRoles             *map[string][]string
	VotingMethod              *string
	VictoryCondition          *string
	RunoffType                *string
	SupermajorityThreshold    *float64
	VictoryThreshold          *float64
	MaxSelections             *int
	Anonymous                 *bool
	EligibleVoters            *[]string
	StartDate                 *time.Time
	EndDate                   *time.Time
	ResultsVisibleImmediately *bool
}

type TransitionCommand struct {
	ActorID    string
	ElectionID string
}

type RollbackResult struct {
	Election     entities.Election
	DeletedVotes int
}

// LifecycleUseCase owns the DRAFT -> OPEN -> CLOSED state machine, the
// CLOSED -> DRAFT rollback and the per-state mutation rules.
type LifecycleUseCase struct {
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
	Salts      ports.SaltVault
	Ledger     ports.BallotLedger
	Directory  ports.MembershipDirectory
	Notifier   ports.Notifier
	Metrics    ports.Metrics
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc LifecycleUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, strings.TrimSpace(cmd.OrganizationID), cmd.ActorID); err != nil {
		return entities.Election{}, err
	}

	election, err := electionFromCreate(cmd)
	if err != nil {
		logger.Warn("election create validation failed",
			"event", "election_create_validation_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"organization_id", strings.TrimSpace(cmd.OrganizationID),
			"error", err.Error(),
		)
		return entities.Election{}, err
	}

	now := resolveNow(uc.Clock)
	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Election{}, err
	}
	election.ElectionID = electionID
	election.Status = entities.ElectionStatusDraft
	election.CreatedBy = strings.TrimSpace(cmd.ActorID)
	election.CreatedAt = now
	election.UpdatedAt = now

	var salt *entities.ElectionSalt
	if election.Anonymous {
		key, err := services.GenerateSalt()
		if err != nil {
			return entities.Election{}, err
		}
		salt = &entities.ElectionSalt{
			ElectionID: electionID,
			Salt:       key,
			CreatedAt:  now,
		}
	}

	audit, err := auditEnvelope(ctx, uc.IDGen, "election.created", electionID, election.CreatedBy, outcomeSucceeded, now,
		electionSnapshot(election))
	if err != nil {
		return entities.Election{}, err
	}
	if err := uc.Elections.CreateElection(ctx, election, salt, audit); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election created",
		"event", "election_created",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", electionID,
		"organization_id", election.OrganizationID,
		"voting_method", string(election.VotingMethod),
		"anonymous", election.Anonymous,
	)
	return election, nil
}

func (uc LifecycleUseCase) UpdateElection(ctx context.Context, cmd UpdateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return entities.Election{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return entities.Election{}, err
	}

	current := election.Status
	var changed []string
	switch current {
	case entities.ElectionStatusDraft:
		election, changed, err = uc.applyDraftPatch(ctx, election, cmd)
	case entities.ElectionStatusOpen:
		election, changed, err = applyOpenPatch(election, cmd)
	case entities.ElectionStatusClosed:
		election, changed, err = applyClosedPatch(election, cmd)
	default:
		err = fmt.Errorf("%w: unknown status %q", domainerrors.ErrInvalidStateTransition, current)
	}
	if err != nil {
		logger.Warn("election update rejected",
			"event", "election_update_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"status", string(current),
			"error", err.Error(),
		)
		return entities.Election{}, err
	}
	if len(changed) == 0 {
		return election, nil
	}

	now := resolveNow(uc.Clock)
	election.UpdatedAt = now
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.updated", election.ElectionID, strings.TrimSpace(cmd.ActorID),
		outcomeSucceeded, now, map[string]any{
			"status":         string(current),
			"changed_fields": changed,
			"end_date":       election.EndDate.UTC().Format(time.RFC3339),
		})
	if err != nil {
		return entities.Election{}, err
	}
	if err := uc.Elections.UpdateElection(ctx, election, current, audit); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election updated",
		"event", "election_updated",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"status", string(current),
		"changed_fields", strings.Join(changed, ","),
	)
	return election, nil
}

func (uc LifecycleUseCase) OpenElection(ctx context.Context, cmd TransitionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return entities.Election{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return entities.Election{}, err
	}
	if election.Status != entities.ElectionStatusDraft {
		return entities.Election{}, invalidTransition(election.Status, entities.ElectionStatusOpen)
	}

	candidates, err := uc.Candidates.ListCandidates(ctx, election.ElectionID)
	if err != nil {
		return entities.Election{}, err
	}
	votable := make(map[string]int)
	for _, candidate := range candidates {
		if candidate.Votable() {
			votable[candidate.Position]++
		}
	}
	for _, contest := range election.Contests() {
		if votable[contest] == 0 {
			logger.Warn("election open blocked by empty contest",
				"event", "election_open_empty_contest",
				"module", "governance/election-engine",
				"layer", "application",
				"election_id", election.ElectionID,
				"position", contest,
			)
			return entities.Election{}, fmt.Errorf("%w: contest %q has no accepted or write-in candidates",
				domainerrors.ErrInvalidStateTransition, contest)
		}
	}
	if election.Anonymous {
		salt, err := uc.Salts.GetSalt(ctx, election.ElectionID)
		if err != nil {
			return entities.Election{}, err
		}
		if salt.Destroyed() {
			return entities.Election{}, domainerrors.ErrSaltDestroyed
		}
	}

	now := resolveNow(uc.Clock)
	election.Status = entities.ElectionStatusOpen
	election.OpenedAt = &now
	election.UpdatedAt = now
	if err := uc.transition(ctx, election, entities.ElectionStatusDraft, "election.opened", cmd.ActorID, now, nil); err != nil {
		return entities.Election{}, err
	}

	notify(ctx, uc.Notifier, uc.Logger, ports.Notification{
		Kind:       "ballot_available",
		ElectionID: election.ElectionID,
		Recipients: append([]string(nil), election.EligibleVoters...),
		Subject:    election.Title,
		Attributes: map[string]string{
			"organization_id": election.OrganizationID,
			"end_date":        election.EndDate.UTC().Format(time.RFC3339),
		},
		RequestedAt: now,
	})
	return election, nil
}

func (uc LifecycleUseCase) CloseElection(ctx context.Context, cmd TransitionCommand) (entities.Election, error) {
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return entities.Election{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return entities.Election{}, err
	}
	return uc.closeElection(ctx, election, strings.TrimSpace(cmd.ActorID))
}

// CloseExpiredElections closes OPEN elections whose end_date has passed and
// reports how many were closed. A failing election does not stop the sweep;
// the failures are returned joined.
func (uc LifecycleUseCase) CloseExpiredElections(ctx context.Context, limit int) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	if limit <= 0 {
		limit = 50
	}
	now := resolveNow(uc.Clock)
	expired, err := uc.Elections.ListElectionsEndedBefore(ctx, entities.ElectionStatusOpen, now, limit)
	if err != nil {
		return 0, err
	}
	closed := 0
	var failures []error
	for _, election := range expired {
		if _, err := uc.closeElection(ctx, election, SystemActorID); err != nil {
			if errors.Is(err, domainerrors.ErrInvalidStateTransition) {
				continue
			}
			logger.Error("expired election close failed",
				"event", "election_auto_close_failed",
				"module", "governance/election-engine",
				"layer", "application",
				"election_id", election.ElectionID,
				"error", err.Error(),
			)
			failures = append(failures, fmt.Errorf("close election %s: %w", election.ElectionID, err))
			continue
		}
		closed++
	}
	return closed, errors.Join(failures...)
}

func (uc LifecycleUseCase) closeElection(ctx context.Context, election entities.Election, actorID string) (entities.Election, error) {
	if election.Status != entities.ElectionStatusOpen {
		return entities.Election{}, invalidTransition(election.Status, entities.ElectionStatusClosed)
	}

	ledgerRows := make(map[string]int)
	for _, contest := range election.Contests() {
		count, err := uc.Ledger.CountContestVotes(ctx, election.ElectionID, contest)
		if err != nil {
			return entities.Election{}, err
		}
		ledgerRows[contest] = count
	}

	now := resolveNow(uc.Clock)
	election.Status = entities.ElectionStatusClosed
	election.ClosedAt = &now
	election.UpdatedAt = now
	election.ClosingLedgerRows = ledgerRows
	if err := uc.transition(ctx, election, entities.ElectionStatusOpen, "election.closed", actorID, now, map[string]any{
		"ledger_rows": ledgerRows,
	}); err != nil {
		return entities.Election{}, err
	}
	return election, nil
}

// RollbackElection discards every vote of a CLOSED election and returns it
// to DRAFT. It is refused once the anonymity salt was destroyed.
func (uc LifecycleUseCase) RollbackElection(ctx context.Context, cmd TransitionCommand) (RollbackResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return RollbackResult{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return RollbackResult{}, err
	}
	if election.Status != entities.ElectionStatusClosed {
		return RollbackResult{}, invalidTransition(election.Status, entities.ElectionStatusDraft)
	}
	if election.Anonymous && election.SaltDestroyedAt != nil {
		return RollbackResult{}, fmt.Errorf("%w: anonymity salt was destroyed", domainerrors.ErrInvalidStateTransition)
	}

	now := resolveNow(uc.Clock)
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.rolled_back", election.ElectionID, strings.TrimSpace(cmd.ActorID),
		outcomeSucceeded, now, map[string]any{
			"from_status": string(entities.ElectionStatusClosed),
			"to_status":   string(entities.ElectionStatusDraft),
		})
	if err != nil {
		return RollbackResult{}, err
	}
	deleted, err := uc.Elections.RollbackElection(ctx, election.ElectionID, now, audit)
	if err != nil {
		return RollbackResult{}, err
	}

	election.Status = entities.ElectionStatusDraft
	election.OpenedAt = nil
	election.ClosedAt = nil
	election.ClosingLedgerRows = nil
	election.UpdatedAt = now
	uc.observeTransition(entities.ElectionStatusDraft)
	logger.Warn("election rolled back",
		"event", "election_rolled_back",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"deleted_votes", deleted,
	)
	return RollbackResult{Election: election, DeletedVotes: deleted}, nil
}

// DestroySalt irreversibly removes the anonymity key of a CLOSED anonymous
// election so ballots can no longer be linked to voters.
func (uc LifecycleUseCase) DestroySalt(ctx context.Context, cmd TransitionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return entities.Election{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return entities.Election{}, err
	}
	if !election.Anonymous {
		return entities.Election{}, fmt.Errorf("%w: election is not anonymous", domainerrors.ErrValidation)
	}
	if election.Status != entities.ElectionStatusClosed {
		return entities.Election{}, fmt.Errorf("%w: salt may only be destroyed after close", domainerrors.ErrInvalidStateTransition)
	}
	if election.SaltDestroyedAt != nil {
		return entities.Election{}, domainerrors.ErrSaltDestroyed
	}

	now := resolveNow(uc.Clock)
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.salt_destroyed", election.ElectionID, strings.TrimSpace(cmd.ActorID),
		outcomeSucceeded, now, nil)
	if err != nil {
		return entities.Election{}, err
	}
	if err := uc.Salts.DestroySalt(ctx, election.ElectionID, now, audit); err != nil {
		return entities.Election{}, err
	}
	election.SaltDestroyedAt = &now
	election.UpdatedAt = now

	logger.Warn("election anonymity salt destroyed",
		"event", "election_salt_destroyed",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return election, nil
}

func (uc LifecycleUseCase) transition(
	ctx context.Context,
	election entities.Election,
	from entities.ElectionStatus,
	eventType string,
	actorID string,
	now time.Time,
	metadata map[string]any,
) error {
	logger := application.ResolveLogger(uc.Logger)
	data := map[string]any{
		"from_status": string(from),
		"to_status":   string(election.Status),
	}
	for key, value := range metadata {
		data[key] = value
	}
	audit, err := auditEnvelope(ctx, uc.IDGen, eventType, election.ElectionID, strings.TrimSpace(actorID), outcomeSucceeded, now, data)
	if err != nil {
		return err
	}
	if err := uc.Elections.UpdateElection(ctx, election, from, audit); err != nil {
		return err
	}
	uc.observeTransition(election.Status)
	logger.Info("election transitioned",
		"event", "election_transitioned",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"from_status", string(from),
		"to_status", string(election.Status),
		"actor_id", strings.TrimSpace(actorID),
	)
	return nil
}

func (uc LifecycleUseCase) observeTransition(to entities.ElectionStatus) {
	if uc.Metrics != nil {
		uc.Metrics.ElectionTransition(to)
	}
}

func (uc LifecycleUseCase) applyDraftPatch(
	ctx context.Context,
	election entities.Election,
	cmd UpdateElectionCommand,
) (entities.Election, []string, error) {
	var changed []string
	if cmd.Anonymous != nil && *cmd.Anonymous != election.Anonymous {
		return election, nil, fmt.Errorf("%w: anonymous cannot change after creation", domainerrors.ErrValidation)
	}
	if cmd.Title != nil {
		election.Title = strings.TrimSpace(*cmd.Title)
		changed = append(changed, "title")
	}
	if cmd.Description != nil {
		election.Description = strings.TrimSpace(*cmd.Description)
		changed = append(changed, "description")
	}
	if cmd.Positions != nil {
		election.Positions = normalizePositions(*cmd.Positions)
		changed = append(changed, "positions")
	}
	if cmd.PositionRoles != nil {
		election.PositionRoles = normalizePositionRoles(*cmd.PositionRoles)
		changed = append(changed, "position_roles")
	}
	if cmd.VotingMethod != nil {
		method, ok := entities.ParseVotingMethod(*cmd.VotingMethod)
		if !ok {
			return election, nil, fmt.Errorf("%w: unsupported voting_method %q", domainerrors.ErrValidation, *cmd.VotingMethod)
		}
		election.VotingMethod = method
		changed = append(changed, "voting_method")
	}
	if cmd.VictoryCondition != nil {
		condition, ok := entities.ParseVictoryCondition(*cmd.VictoryCondition)
		if !ok {
			return election, nil, fmt.Errorf("%w: unsupported victory_condition %q", domainerrors.ErrValidation, *cmd.VictoryCondition)
		}
		election.VictoryCondition = condition
		changed = append(changed, "victory_condition")
	}
	if cmd.RunoffType != nil {
		runoff, ok := entities.ParseRunoffType(*cmd.RunoffType)
		if !ok {
			return election, nil, fmt.Errorf("%w: unsupported runoff_type %q", domainerrors.ErrValidation, *cmd.RunoffType)
		}
		election.RunoffType = runoff
		changed = append(changed, "runoff_type")
	}
	if cmd.SupermajorityThreshold != nil {
		election.SupermajorityThreshold = *cmd.SupermajorityThreshold
		changed = append(changed, "supermajority_threshold")
	}
	if cmd.VictoryThreshold != nil {
		election.VictoryThreshold = *cmd.VictoryThreshold
		changed = append(changed, "victory_threshold")
	}
	if cmd.MaxSelections != nil {
		election.MaxSelections = *cmd.MaxSelections
		changed = append(changed, "max_selections")
	}
	if cmd.EligibleVoters != nil {
		election.EligibleVoters = normalizeIDs(*cmd.EligibleVoters)
		changed = append(changed, "eligible_voters")
	}
	if cmd.StartDate != nil {
		election.StartDate = cmd.StartDate.UTC()
		changed = append(changed, "start_date")
	}
	if cmd.EndDate != nil {
		election.EndDate = cmd.EndDate.UTC()
		changed = append(changed, "end_date")
	}
	if cmd.ResultsVisibleImmediately != nil {
		election.ResultsVisibleImmediately = *cmd.ResultsVisibleImmediately
		changed = append(changed, "results_visible_immediately")
	}
	if err := services.ValidateElection(election); err != nil {
		return election, nil, err
	}

	if cmd.Positions != nil {
		candidates, err := uc.Candidates.ListCandidates(ctx, election.ElectionID)
		if err != nil {
			return election, nil, err
		}
		for _, candidate := range candidates {
			if !election.HasPosition(candidate.Position) {
				return election, nil, fmt.Errorf("%w: candidate %s targets removed position %q",
					domainerrors.ErrValidation, candidate.CandidateID, candidate.Position)
			}
		}
	}
	return election, changed, nil
}

// applyOpenPatch accepts an end_date extension only.
func applyOpenPatch(election entities.Election, cmd UpdateElectionCommand) (entities.Election, []string, error) {
	if field := firstLockedField(election, cmd, "end_date"); field != "" {
		return election, nil, fmt.Errorf("%w: %s cannot change while the election is open",
			domainerrors.ErrInvalidStateTransition, field)
	}
	if cmd.EndDate == nil {
		return election, nil, nil
	}
	extended := cmd.EndDate.UTC()
	if extended.Before(election.StartDate) {
		return election, nil, fmt.Errorf("%w: end_date cannot precede start_date", domainerrors.ErrValidation)
	}
	if !extended.After(election.EndDate) {
		return election, nil, fmt.Errorf("%w: end_date may only be extended while open", domainerrors.ErrValidation)
	}
	election.EndDate = extended
	return election, []string{"end_date"}, nil
}

// applyClosedPatch accepts the disclosure flag only.
func applyClosedPatch(election entities.Election, cmd UpdateElectionCommand) (entities.Election, []string, error) {
	if field := firstLockedField(election, cmd, "results_visible_immediately"); field != "" {
		return election, nil, fmt.Errorf("%w: %s cannot change after close",
			domainerrors.ErrInvalidStateTransition, field)
	}
	if cmd.ResultsVisibleImmediately == nil || *cmd.ResultsVisibleImmediately == election.ResultsVisibleImmediately {
		return election, nil, nil
	}
	election.ResultsVisibleImmediately = *cmd.ResultsVisibleImmediately
	return election, []string{"results_visible_immediately"}, nil
}

// firstLockedField names the first patched field, other than allowed, whose
// value differs from the stored election.
func firstLockedField(election entities.Election, cmd UpdateElectionCommand, allowed string) string {
	checks := []struct {
		name    string
		changed bool
	}{
		{"title", cmd.Title != nil && strings.TrimSpace(*cmd.Title) != election.Title},
		{"description", cmd.Description != nil && strings.TrimSpace(*cmd.Description) != election.Description},
		{"positions", cmd.Positions != nil && !equalStrings(normalizePositions(*cmd.Positions), election.Positions)},
		{"position_roles", cmd.PositionRoles != nil && !equalPositionRoles(normalizePositionRoles(*cmd.PositionRoles), election.PositionRoles)},
		{"voting_method", cmd.VotingMethod != nil && normalizeEnum(*cmd.VotingMethod) != string(election.VotingMethod)},
		{"victory_condition", cmd.VictoryCondition != nil && normalizeEnum(*cmd.VictoryCondition) != string(election.VictoryCondition)},
		{"runoff_type", cmd.RunoffType != nil && normalizeEnum(*cmd.RunoffType) != string(election.RunoffType)},
		{"supermajority_threshold", cmd.SupermajorityThreshold != nil && *cmd.SupermajorityThreshold != election.SupermajorityThreshold},
		{"victory_threshold", cmd.VictoryThreshold != nil && *cmd.VictoryThreshold != election.VictoryThreshold},
		{"max_selections", cmd.MaxSelections != nil && *cmd.MaxSelections != election.MaxSelections},
		{"anonymous", cmd.Anonymous != nil && *cmd.Anonymous != election.Anonymous},
		{"eligible_voters", cmd.EligibleVoters != nil && !equalStrings(normalizeIDs(*cmd.EligibleVoters), election.EligibleVoters)},
		{"start_date", cmd.StartDate != nil && !cmd.StartDate.Equal(election.StartDate)},
		{"end_date", cmd.EndDate != nil && !cmd.EndDate.Equal(election.EndDate)},
		{"results_visible_immediately", cmd.ResultsVisibleImmediately != nil &&
			*cmd.ResultsVisibleImmediately != election.ResultsVisibleImmediately},
	}
	for _, check := range checks {
		if check.changed && check.name != allowed {
			return check.name
		}
	}
	return ""
}

func electionFromCreate(cmd CreateElectionCommand) (entities.Election, error) {
	method, ok := entities.ParseVotingMethod(cmd.VotingMethod)
	if !ok {
		return entities.Election{}, fmt.Errorf("%w: unsupported voting_method %q", domainerrors.ErrValidation, cmd.VotingMethod)
	}
	conditionRaw := cmd.VictoryCondition
	if strings.TrimSpace(conditionRaw) == "" {
		conditionRaw = string(entities.VictoryConditionMostVotes)
	}
	condition, ok := entities.ParseVictoryCondition(conditionRaw)
	if !ok {
		return entities.Election{}, fmt.Errorf("%w: unsupported victory_condition %q", domainerrors.ErrValidation, cmd.VictoryCondition)
	}
	runoffRaw := cmd.RunoffType
	if strings.TrimSpace(runoffRaw) == "" {
		runoffRaw = string(entities.RunoffTypeEliminateLowest)
	}
	runoff, ok := entities.ParseRunoffType(runoffRaw)
	if !ok {
		return entities.Election{}, fmt.Errorf("%w: unsupported runoff_type %q", domainerrors.ErrValidation, cmd.RunoffType)
	}

	election := entities.Election{
		OrganizationID:            strings.TrimSpace(cmd.OrganizationID),
		Title:                     strings.TrimSpace(cmd.Title),
		Description:               strings.TrimSpace(cmd.Description),
		Positions:                 normalizePositions(cmd.Positions),
		PositionRoles:             normalizePositionRoles(cmd.PositionRoles),
		VotingMethod:              method,
		VictoryCondition:          condition,
		RunoffType:                runoff,
		SupermajorityThreshold:    cmd.SupermajorityThreshold,
		VictoryThreshold:          cmd.VictoryThreshold,
		MaxSelections:             cmd.MaxSelections,
		Anonymous:                 cmd.Anonymous,
		EligibleVoters:            normalizeIDs(cmd.EligibleVoters),
		StartDate:                 cmd.StartDate.UTC(),
		EndDate:                   cmd.EndDate.UTC(),
		ResultsVisibleImmediately: cmd.ResultsVisibleImmediately,
	}
	if err := services.ValidateElection(election); err != nil {
		return entities.Election{}, err
	}
	return election, nil
}

func invalidTransition(from entities.ElectionStatus, to entities.ElectionStatus) error {
	return fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidStateTransition, from, to)
}

func normalizePositions(values []string) []string {
	items := make([]string, 0, len(values))
	for _, value := range values {
		items = append(items, strings.TrimSpace(value))
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

func normalizePositionRoles(values map[string][]string) map[string][]string {
	if len(values) == 0 {
		return nil
	}
	items := make(map[string][]string, len(values))
	for position, roles := range values {
		roles = normalizeIDs(roles)
		if len(roles) == 0 {
			continue
		}
		items[strings.TrimSpace(position)] = roles
	}
	return items
}

// normalizeEnum matches the normalization of the entities Parse functions.
func normalizeEnum(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func equalPositionRoles(left map[string][]string, right map[string][]string) bool {
	if len(left) != len(right) {
		return false
	}
	for position, roles := range left {
		other, ok := right[position]
		if !ok || !equalStrings(roles, other) {
			return false
		}
	}
	return true
}

func equalStrings(left []string, right []string) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}
