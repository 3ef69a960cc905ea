package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"
)

// MaxBulkOverrides bounds one bulk override request.
const MaxBulkOverrides = 1000

type GrantOverrideCommand struct {
	ActorID    string
	ElectionID string
	UserID     string
	Reason     string
}

type GrantOverridesBulkCommand struct {
	ActorID    string
	ElectionID string
	UserIDs    []string
	Reason     string
}

type BulkOverrideResult struct {
	Requested int
	Created   int
	Skipped   int
}

type RevokeOverrideCommand struct {
	ActorID    string
	ElectionID string
	UserID     string
}

type CreateProxyAuthorizationCommand struct {
	ActorID          string
	ElectionID       string
	DelegatingUserID string
	ProxyUserID      string
	ProxyType        string
	Reason           string
}

type RevokeProxyAuthorizationCommand struct {
	ActorID         string
	ElectionID      string
	AuthorizationID string
}

// DelegationUseCase manages voter overrides and proxy authorizations.
// Both are accepted only before an election closes.
type DelegationUseCase struct {
	Elections   ports.ElectionRepository
	Salts       ports.SaltVault
	Delegations ports.DelegationRepository
	Directory   ports.MembershipDirectory
	Notifier    ports.Notifier
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc DelegationUseCase) GrantOverride(ctx context.Context, cmd GrantOverrideCommand) (entities.VoterOverride, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return entities.VoterOverride{}, fmt.Errorf("%w: user_id is required", domainerrors.ErrValidation)
	}
	result, overrides, err := uc.grantOverrides(ctx, cmd.ActorID, cmd.ElectionID, []string{userID}, cmd.Reason)
	if err != nil {
		return entities.VoterOverride{}, err
	}
	if result.Created == 0 {
		return entities.VoterOverride{}, fmt.Errorf("%w: override already granted", domainerrors.ErrConflict)
	}
	return overrides[0], nil
}

// GrantOverridesBulk grants the same override to many users. Users that
// already hold one are skipped.
func (uc DelegationUseCase) GrantOverridesBulk(ctx context.Context, cmd GrantOverridesBulkCommand) (BulkOverrideResult, error) {
	userIDs := normalizeIDs(cmd.UserIDs)
	if len(userIDs) == 0 {
		return BulkOverrideResult{}, fmt.Errorf("%w: user_ids is required", domainerrors.ErrValidation)
	}
	if len(userIDs) > MaxBulkOverrides {
		return BulkOverrideResult{}, fmt.Errorf("%w: at most %d users per request", domainerrors.ErrValidation, MaxBulkOverrides)
	}
	result, _, err := uc.grantOverrides(ctx, cmd.ActorID, cmd.ElectionID, userIDs, cmd.Reason)
	return result, err
}

func (uc DelegationUseCase) grantOverrides(
	ctx context.Context,
	actorID string,
	electionID string,
	userIDs []string,
	reason string,
) (BulkOverrideResult, []entities.VoterOverride, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := uc.managedElection(ctx, actorID, electionID)
	if err != nil {
		return BulkOverrideResult{}, nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return BulkOverrideResult{}, nil, fmt.Errorf("%w: reason is required", domainerrors.ErrValidation)
	}

	now := resolveNow(uc.Clock)
	actorID = strings.TrimSpace(actorID)
	overrides := make([]entities.VoterOverride, 0, len(userIDs))
	for _, userID := range userIDs {
		overrides = append(overrides, entities.VoterOverride{
			ElectionID: election.ElectionID,
			UserID:     userID,
			Reason:     reason,
			GrantedBy:  actorID,
			GrantedAt:  now,
		})
	}
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.voter_overrides_granted", election.ElectionID, actorID,
		outcomeSucceeded, now, map[string]any{
			"user_ids": userIDs,
			"reason":   reason,
		})
	if err != nil {
		return BulkOverrideResult{}, nil, err
	}
	created, err := uc.Delegations.SaveVoterOverrides(ctx, overrides, audit)
	if err != nil {
		return BulkOverrideResult{}, nil, err
	}

	logger.Info("election voter overrides granted",
		"event", "election_voter_overrides_granted",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"actor_id", actorID,
		"requested", len(userIDs),
		"created", created,
	)
	return BulkOverrideResult{
		Requested: len(userIDs),
		Created:   created,
		Skipped:   len(userIDs) - created,
	}, overrides, nil
}

func (uc DelegationUseCase) RevokeOverride(ctx context.Context, cmd RevokeOverrideCommand) error {
	election, err := uc.managedElection(ctx, cmd.ActorID, cmd.ElectionID)
	if err != nil {
		return err
	}
	userID := strings.TrimSpace(cmd.UserID)
	now := resolveNow(uc.Clock)
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.voter_override_revoked", election.ElectionID, strings.TrimSpace(cmd.ActorID),
		outcomeSucceeded, now, map[string]any{"user_id": userID})
	if err != nil {
		return err
	}
	return uc.Delegations.DeleteVoterOverride(ctx, election.ElectionID, userID, audit)
}

func (uc DelegationUseCase) CreateProxyAuthorization(
	ctx context.Context,
	cmd CreateProxyAuthorizationCommand,
) (entities.ProxyAuthorization, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := uc.managedElection(ctx, cmd.ActorID, cmd.ElectionID)
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}

	delegating := strings.TrimSpace(cmd.DelegatingUserID)
	proxy := strings.TrimSpace(cmd.ProxyUserID)
	if delegating == "" || proxy == "" {
		return entities.ProxyAuthorization{}, fmt.Errorf("%w: delegating_user_id and proxy_user_id are required", domainerrors.ErrValidation)
	}
	if delegating == proxy {
		return entities.ProxyAuthorization{}, fmt.Errorf("%w: a user cannot be their own proxy", domainerrors.ErrValidation)
	}
	proxyTypeRaw := cmd.ProxyType
	if strings.TrimSpace(proxyTypeRaw) == "" {
		proxyTypeRaw = string(entities.ProxyTypeSingleElection)
	}
	proxyType, ok := entities.ParseProxyType(proxyTypeRaw)
	if !ok {
		return entities.ProxyAuthorization{}, fmt.Errorf("%w: unsupported proxy_type %q", domainerrors.ErrValidation, cmd.ProxyType)
	}

	now := resolveNow(uc.Clock)
	authorizationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}
	authorization := entities.ProxyAuthorization{
		AuthorizationID:  authorizationID,
		ElectionID:       election.ElectionID,
		OrganizationID:   election.OrganizationID,
		DelegatingUserID: delegating,
		ProxyUserID:      proxy,
		ProxyType:        proxyType,
		Reason:           strings.TrimSpace(cmd.Reason),
		GrantedBy:        strings.TrimSpace(cmd.ActorID),
		CreatedAt:        now,
	}
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.proxy_authorized", election.ElectionID, authorization.GrantedBy,
		outcomeSucceeded, now, map[string]any{
			"authorization_id":   authorization.AuthorizationID,
			"delegating_user_id": delegating,
			"proxy_user_id":      proxy,
			"proxy_type":         string(proxyType),
			"reason":             authorization.Reason,
		})
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}
	if err := uc.Delegations.CreateProxyAuthorization(ctx, authorization, audit); err != nil {
		logger.Warn("proxy authorization rejected",
			"event", "election_proxy_authorization_rejected",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"delegating_user_id", delegating,
			"proxy_user_id", proxy,
			"error", err.Error(),
		)
		return entities.ProxyAuthorization{}, err
	}

	notify(ctx, uc.Notifier, uc.Logger, ports.Notification{
		Kind:       "proxy_granted",
		ElectionID: election.ElectionID,
		Recipients: []string{proxy},
		CC:         []string{delegating},
		Subject:    election.Title,
		Attributes: map[string]string{
			"authorization_id": authorization.AuthorizationID,
			"proxy_type":       string(proxyType),
		},
		RequestedAt: now,
	})
	logger.Info("proxy authorization created",
		"event", "election_proxy_authorization_created",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"authorization_id", authorization.AuthorizationID,
		"proxy_type", string(proxyType),
	)
	return authorization, nil
}

// RevokeProxyAuthorization refuses authorizations that already produced a
// live ballot in an open election; that ballot must be voided first.
func (uc DelegationUseCase) RevokeProxyAuthorization(
	ctx context.Context,
	cmd RevokeProxyAuthorizationCommand,
) (entities.ProxyAuthorization, error) {
	election, err := uc.managedElection(ctx, cmd.ActorID, cmd.ElectionID)
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}
	authorization, err := uc.Delegations.GetProxyAuthorization(ctx, strings.TrimSpace(cmd.AuthorizationID))
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}
	if !authorization.Covers(election) {
		return entities.ProxyAuthorization{}, domainerrors.ErrAuthorizationNotFound
	}
	if authorization.Revoked {
		return entities.ProxyAuthorization{}, domainerrors.ErrRevokedAuthorization
	}

	uses, err := uc.proxyUses(ctx, election, authorization)
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}
	now := resolveNow(uc.Clock)
	actorID := strings.TrimSpace(cmd.ActorID)
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.proxy_revoked", election.ElectionID, actorID,
		outcomeSucceeded, now, map[string]any{
			"authorization_id": authorization.AuthorizationID,
		})
	if err != nil {
		return entities.ProxyAuthorization{}, err
	}
	return uc.Delegations.RevokeProxyAuthorization(ctx, authorization.AuthorizationID, uses, now, actorID, audit)
}

func (uc DelegationUseCase) ListProxyAuthorizations(
	ctx context.Context,
	actorID string,
	electionID string,
) ([]entities.ProxyAuthorization, error) {
	election, err := loadElection(ctx, uc.Elections, electionID)
	if err != nil {
		return nil, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, actorID); err != nil {
		return nil, err
	}
	return uc.Delegations.ListProxyAuthorizations(ctx, election.ElectionID, election.OrganizationID)
}

// proxyUses lists the ledger keys under which the authorization could have
// voted in currently open elections.
func (uc DelegationUseCase) proxyUses(
	ctx context.Context,
	election entities.Election,
	authorization entities.ProxyAuthorization,
) ([]ports.ProxyUse, error) {
	targets := []entities.Election{election}
	if authorization.ProxyType == entities.ProxyTypeStanding {
		open, err := uc.Elections.ListElectionsByStatus(ctx, authorization.OrganizationID, entities.ElectionStatusOpen)
		if err != nil {
			return nil, err
		}
		targets = open
	}

	uses := make([]ports.ProxyUse, 0, len(targets))
	for _, target := range targets {
		if target.Status != entities.ElectionStatusOpen {
			continue
		}
		key := entities.DirectKey(authorization.DelegatingUserID)
		if target.Anonymous {
			salt, err := uc.Salts.GetSalt(ctx, target.ElectionID)
			if err != nil {
				return nil, err
			}
			if salt.Destroyed() {
				continue
			}
			hash, err := services.VoterHash(salt.Salt, authorization.DelegatingUserID, target.ElectionID)
			if err != nil {
				return nil, err
			}
			key = entities.HashedKey(hash)
		}
		uses = append(uses, ports.ProxyUse{ElectionID: target.ElectionID, Key: key})
	}
	return uses, nil
}

func (uc DelegationUseCase) managedElection(ctx context.Context, actorID string, electionID string) (entities.Election, error) {
	election, err := loadElection(ctx, uc.Elections, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, actorID); err != nil {
		return entities.Election{}, err
	}
	if election.Status == entities.ElectionStatusClosed {
		return entities.Election{}, fmt.Errorf("%w: delegations cannot change after close", domainerrors.ErrInvalidStateTransition)
	}
	return election, nil
}
