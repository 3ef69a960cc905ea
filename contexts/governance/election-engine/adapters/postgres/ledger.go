package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendBallot holds a share lock on the election row so a concurrent close
// waits for in-flight casts. The partial unique indexes decide races between
// two casts by the same voter key.
func (r *Repository) AppendBallot(ctx context.Context, ballot ports.Ballot, audit ports.EventEnvelope) error {
	electionID := strings.TrimSpace(ballot.ElectionID)
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		row, err := lockElection(tx, electionID, "SHARE")
		if err != nil {
			return err
		}
		if row.Status != string(entities.ElectionStatusOpen) {
			return domainerrors.NotEligible(domainerrors.ReasonElectionNotOpen)
		}
		election, err := row.toEntity()
		if err != nil {
			return err
		}
		if err := services.ValidateBallotRows(election, ballot.Position, ballot.Votes); err != nil {
			return err
		}
		if authorizationID := strings.TrimSpace(ballot.AuthorizationID); authorizationID != "" {
			var authorization proxyAuthorizationModel
			err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
				Select("authorization_id", "revoked").
				Where("authorization_id = ?", authorizationID).
				First(&authorization).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domainerrors.ErrAuthorizationNotFound
				}
				return err
			}
			if authorization.Revoked {
				return domainerrors.ErrRevokedAuthorization
			}
		}

		rows := make([]voteModel, 0, len(ballot.Votes))
		for _, vote := range ballot.Votes {
			rows = append(rows, voteModelFromEntity(vote))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return translateWriteError(err)
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_append_ballot_failed", err,
			"election_id", electionID,
			"position", ballot.Position,
			"rows", len(ballot.Votes),
		)
	}
	return nil
}

func (r *Repository) HasVoted(ctx context.Context, electionID string, position string, key entities.VoterKey) (bool, error) {
	if !key.Valid() {
		return false, fmt.Errorf("%w: voter key must carry exactly one identity", domainerrors.ErrValidation)
	}
	query := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("position = ?", position).
		Where("deleted_at IS NULL")
	if key.Anonymous() {
		query = query.Where("voter_hash = ?", key.VoterHash)
	} else {
		query = query.Where("voter_id = ?", key.VoterID)
	}
	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, r.logError("election_repo_has_voted_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position", position,
		)
	}
	return count > 0, nil
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (entities.Vote, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, domainerrors.ErrVoteNotFound
		}
		return entities.Vote{}, r.logError("election_repo_get_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity(), nil
}

func (r *Repository) VoidBallot(
	ctx context.Context,
	electionID string,
	ballotID string,
	deletedAt time.Time,
	deletedBy string,
	reason string,
	audit ports.EventEnvelope,
) (int, error) {
	electionID = strings.TrimSpace(electionID)
	ballotID = strings.TrimSpace(ballotID)
	voided := 0
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		current, err := lockElection(tx, electionID, "SHARE")
		if err != nil {
			return err
		}
		if current.Status != string(entities.ElectionStatusOpen) {
			return fmt.Errorf("%w: ballots can only be voided while open", domainerrors.ErrInvalidStateTransition)
		}
		result := tx.Model(&voteModel{}).
			Where("election_id = ?", electionID).
			Where("ballot_id = ?", ballotID).
			Where("deleted_at IS NULL").
			Updates(map[string]any{
				"deleted_at":      deletedAt.UTC(),
				"deleted_by":      strings.TrimSpace(deletedBy),
				"deletion_reason": strings.TrimSpace(reason),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrVoteNotFound
		}
		voided = int(result.RowsAffected)
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return 0, err
		}
		return 0, r.logError("election_repo_void_ballot_failed", err,
			"election_id", electionID,
			"ballot_id", ballotID,
		)
	}
	return voided, nil
}

func (r *Repository) ListContestVotes(ctx context.Context, electionID string, position string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.contestVotes(ctx, electionID, position).
		Order("ballot_id ASC, rank ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_contest_votes_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position", position,
		)
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountContestVotes(ctx context.Context, electionID string, position string) (int, error) {
	var count int64
	if err := r.contestVotes(ctx, electionID, position).Count(&count).Error; err != nil {
		return 0, r.logError("election_repo_count_contest_votes_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position", position,
		)
	}
	return int(count), nil
}

func (r *Repository) CountContestBallots(ctx context.Context, electionID string, position string) (int, int, error) {
	var counts struct {
		Ballots      int64
		ProxyBallots int64
	}
	err := r.contestVotes(ctx, electionID, position).
		Select("COUNT(DISTINCT ballot_id) AS ballots, " +
			"COUNT(DISTINCT ballot_id) FILTER (WHERE is_proxy_vote) AS proxy_ballots").
		Scan(&counts).
		Error
	if err != nil {
		return 0, 0, r.logError("election_repo_count_contest_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position", position,
		)
	}
	return int(counts.Ballots), int(counts.ProxyBallots), nil
}

func (r *Repository) contestVotes(ctx context.Context, electionID string, position string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("position = ?", position).
		Where("deleted_at IS NULL")
}
