package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetVoterOverride(ctx context.Context, electionID string, userID string) (entities.VoterOverride, bool, error) {
	var row overrideModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoterOverride{}, false, nil
		}
		return entities.VoterOverride{}, false, r.logError("election_repo_get_override_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveVoterOverrides(
	ctx context.Context,
	overrides []entities.VoterOverride,
	audit ports.EventEnvelope,
) (int, error) {
	if len(overrides) == 0 {
		return 0, nil
	}
	rows := make([]overrideModel, 0, len(overrides))
	for _, override := range overrides {
		rows = append(rows, overrideModel{
			ElectionID: strings.TrimSpace(override.ElectionID),
			UserID:     strings.TrimSpace(override.UserID),
			Reason:     override.Reason,
			GrantedBy:  override.GrantedBy,
			GrantedAt:  override.GrantedAt.UTC(),
		})
	}
	created := 0
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "election_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&rows)
		if result.Error != nil {
			return translateWriteError(result.Error)
		}
		created = int(result.RowsAffected)
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return 0, err
		}
		return 0, r.logError("election_repo_save_overrides_failed", err,
			"election_id", rows[0].ElectionID,
			"requested", len(rows),
		)
	}
	return created, nil
}

func (r *Repository) DeleteVoterOverride(ctx context.Context, electionID string, userID string, audit ports.EventEnvelope) error {
	electionID = strings.TrimSpace(electionID)
	userID = strings.TrimSpace(userID)
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		result := tx.Where("election_id = ?", electionID).
			Where("user_id = ?", userID).
			Delete(&overrideModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrOverrideNotFound
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_delete_override_failed", err, "election_id", electionID)
	}
	return nil
}

// CreateProxyAuthorization serializes chain checks per organization with a
// transaction-scoped advisory lock, so two grants that would form a chain
// cannot both pass.
func (r *Repository) CreateProxyAuthorization(
	ctx context.Context,
	authorization entities.ProxyAuthorization,
	audit ports.EventEnvelope,
) error {
	row := proxyModelFromEntity(authorization)
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", row.OrganizationID).Error; err != nil {
			return err
		}
		var activeRows []proxyAuthorizationModel
		if err := tx.Where("organization_id = ?", row.OrganizationID).
			Where("NOT revoked").
			Where("delegating_user_id IN ? OR proxy_user_id IN ?",
				[]string{row.DelegatingUserID, row.ProxyUserID},
				[]string{row.DelegatingUserID, row.ProxyUserID},
			).
			Find(&activeRows).Error; err != nil {
			return err
		}
		active := make([]entities.ProxyAuthorization, 0, len(activeRows))
		for _, other := range activeRows {
			active = append(active, other.toEntity())
		}
		if err := services.CheckDelegation(row.toEntity(), active); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return translateWriteError(err)
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_create_proxy_failed", err,
			"authorization_id", row.AuthorizationID,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

func (r *Repository) GetProxyAuthorization(ctx context.Context, authorizationID string) (entities.ProxyAuthorization, error) {
	var row proxyAuthorizationModel
	err := r.db.WithContext(ctx).
		Where("authorization_id = ?", strings.TrimSpace(authorizationID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ProxyAuthorization{}, domainerrors.ErrAuthorizationNotFound
		}
		return entities.ProxyAuthorization{}, r.logError("election_repo_get_proxy_failed", err,
			"authorization_id", strings.TrimSpace(authorizationID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProxyAuthorizations(
	ctx context.Context,
	electionID string,
	organizationID string,
) ([]entities.ProxyAuthorization, error) {
	var rows []proxyAuthorizationModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ? OR (proxy_type = ? AND organization_id = ?)",
			strings.TrimSpace(electionID),
			string(entities.ProxyTypeStanding),
			strings.TrimSpace(organizationID),
		).
		Order("created_at ASC, authorization_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_proxies_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.ProxyAuthorization, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// RevokeProxyAuthorization takes the row lock that AppendBallot shares, so a
// proxy cast either commits before the consumed check or sees the revocation.
func (r *Repository) RevokeProxyAuthorization(
	ctx context.Context,
	authorizationID string,
	uses []ports.ProxyUse,
	revokedAt time.Time,
	revokedBy string,
	audit ports.EventEnvelope,
) (entities.ProxyAuthorization, error) {
	authorizationID = strings.TrimSpace(authorizationID)
	var revoked entities.ProxyAuthorization
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		var row proxyAuthorizationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("authorization_id = ?", authorizationID).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrAuthorizationNotFound
			}
			return err
		}
		if row.Revoked {
			return domainerrors.ErrRevokedAuthorization
		}
		for _, use := range uses {
			query := tx.Model(&voteModel{}).
				Where("election_id = ?", strings.TrimSpace(use.ElectionID)).
				Where("is_proxy_vote").
				Where("deleted_at IS NULL")
			if use.Key.Anonymous() {
				query = query.Where("voter_hash = ?", use.Key.VoterHash)
			} else {
				query = query.Where("voter_id = ?", use.Key.VoterID)
			}
			var count int64
			if err := query.Limit(1).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return domainerrors.ErrAuthorizationConsumed
			}
		}
		at := revokedAt.UTC()
		by := strings.TrimSpace(revokedBy)
		if err := tx.Model(&proxyAuthorizationModel{}).
			Where("authorization_id = ?", authorizationID).
			Updates(map[string]any{
				"revoked":    true,
				"revoked_at": at,
				"revoked_by": by,
			}).Error; err != nil {
			return err
		}
		row.Revoked = true
		row.RevokedAt = &at
		row.RevokedBy = &by
		revoked = row.toEntity()
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return entities.ProxyAuthorization{}, err
		}
		return entities.ProxyAuthorization{}, r.logError("election_repo_revoke_proxy_failed", err,
			"authorization_id", authorizationID,
		)
	}
	return revoked, nil
}
