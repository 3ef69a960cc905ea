package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository implements the election, candidate, salt, ledger, delegation
// and outbox ports on Postgres. Every mutation runs in one transaction
// together with its audit outbox row.
type Repository struct {
	db               *gorm.DB
	logger           *slog.Logger
	statementTimeout time.Duration
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WithStatementTimeout bounds every statement of a write transaction.
func (r *Repository) WithStatementTimeout(timeout time.Duration) *Repository {
	r.statementTimeout = timeout
	return r
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.statementTimeout > 0 {
			// SET does not take bind parameters.
			statement := fmt.Sprintf("SET LOCAL statement_timeout = %d", r.statementTimeout.Milliseconds())
			if err := tx.Exec(statement).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

func (r *Repository) CreateElection(
	ctx context.Context,
	election entities.Election,
	salt *entities.ElectionSalt,
	audit ports.EventEnvelope,
) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return r.logError("election_repo_create_encode_failed", err, "election_id", election.ElectionID)
	}
	err = r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if salt != nil {
			saltRow := saltModel{
				ElectionID: row.ElectionID,
				Salt:       append([]byte(nil), salt.Salt...),
				CreatedAt:  salt.CreatedAt.UTC(),
			}
			if err := tx.Create(&saltRow).Error; err != nil {
				return err
			}
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("election_repo_create_failed", err, "election_id", row.ElectionID)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("election_repo_get_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	election, err := row.toEntity()
	if err != nil {
		return entities.Election{}, r.logError("election_repo_decode_failed", err, "election_id", row.ElectionID)
	}
	return election, nil
}

func (r *Repository) UpdateElection(
	ctx context.Context,
	election entities.Election,
	expected entities.ElectionStatus,
	audit ports.EventEnvelope,
) error {
	next, err := electionModelFromEntity(election)
	if err != nil {
		return r.logError("election_repo_update_encode_failed", err, "election_id", election.ElectionID)
	}
	err = r.inTx(ctx, func(tx *gorm.DB) error {
		current, err := lockElection(tx, next.ElectionID, "UPDATE")
		if err != nil {
			return err
		}
		if current.Status != string(expected) {
			return fmt.Errorf("%w: election is %s", domainerrors.ErrInvalidStateTransition, current.Status)
		}
		if current.Anonymous != next.Anonymous {
			return fmt.Errorf("%w: anonymous flag is immutable", domainerrors.ErrValidation)
		}
		if err := tx.Model(&electionModel{}).
			Where("election_id = ?", next.ElectionID).
			Updates(map[string]any{
				"title":                       next.Title,
				"description":                 next.Description,
				"positions":                   next.Positions,
				"position_roles":              next.PositionRoles,
				"voting_method":               next.VotingMethod,
				"victory_condition":           next.VictoryCondition,
				"runoff_type":                 next.RunoffType,
				"supermajority_threshold":     next.SupermajorityThreshold,
				"victory_threshold":           next.VictoryThreshold,
				"max_selections":              next.MaxSelections,
				"eligible_voters":             next.EligibleVoters,
				"start_date":                  next.StartDate,
				"end_date":                    next.EndDate,
				"status":                      next.Status,
				"results_visible_immediately": next.ResultsVisibleImmediately,
				"updated_at":                  next.UpdatedAt,
				"opened_at":                   next.OpenedAt,
				"closed_at":                   next.ClosedAt,
				"closing_ledger_rows":         next.ClosingLedgerRows,
			}).Error; err != nil {
			return err
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_update_failed", err,
			"election_id", next.ElectionID,
			"expected_status", string(expected),
		)
	}
	return nil
}

func (r *Repository) RollbackElection(
	ctx context.Context,
	electionID string,
	updatedAt time.Time,
	audit ports.EventEnvelope,
) (int, error) {
	electionID = strings.TrimSpace(electionID)
	deleted := 0
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		current, err := lockElection(tx, electionID, "UPDATE")
		if err != nil {
			return err
		}
		if current.Status != string(entities.ElectionStatusClosed) {
			return fmt.Errorf("%w: only closed elections can be rolled back", domainerrors.ErrInvalidStateTransition)
		}
		if current.SaltDestroyedAt != nil {
			return fmt.Errorf("%w: anonymity salt was destroyed", domainerrors.ErrInvalidStateTransition)
		}
		result := tx.Where("election_id = ?", electionID).Delete(&voteModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = int(result.RowsAffected)
		if err := tx.Model(&electionModel{}).
			Where("election_id = ?", electionID).
			Updates(map[string]any{
				"status":              string(entities.ElectionStatusDraft),
				"opened_at":           nil,
				"closed_at":           nil,
				"closing_ledger_rows": nil,
				"updated_at":          updatedAt.UTC(),
			}).Error; err != nil {
			return err
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return 0, err
		}
		return 0, r.logError("election_repo_rollback_failed", err, "election_id", electionID)
	}
	return deleted, nil
}

func (r *Repository) ListElectionsEndedBefore(
	ctx context.Context,
	status entities.ElectionStatus,
	before time.Time,
	limit int,
) ([]entities.Election, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Where("end_date < ?", before.UTC()).
		Order("end_date ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_ended_failed", err, "status", string(status))
	}
	return r.toElections(rows)
}

func (r *Repository) ListElectionsByStatus(
	ctx context.Context,
	organizationID string,
	status entities.ElectionStatus,
) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		Where("status = ?", string(status)).
		Order("election_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_by_status_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
			"status", string(status),
		)
	}
	return r.toElections(rows)
}

func (r *Repository) toElections(rows []electionModel) ([]entities.Election, error) {
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		election, err := row.toEntity()
		if err != nil {
			return nil, r.logError("election_repo_decode_failed", err, "election_id", row.ElectionID)
		}
		items = append(items, election)
	}
	return items, nil
}

func (r *Repository) CreateCandidate(ctx context.Context, candidate entities.Candidate, audit ports.EventEnvelope) error {
	row := candidateModelFromEntity(candidate)
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return domainerrors.ErrElectionNotFound
		case isUniqueViolation(err):
			return domainerrors.ErrConflict
		}
		return r.logError("election_repo_create_candidate_failed", err,
			"candidate_id", row.CandidateID,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

func (r *Repository) UpdateCandidate(ctx context.Context, candidate entities.Candidate, audit ports.EventEnvelope) error {
	row := candidateModelFromEntity(candidate)
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&candidateModel{}).
			Where("candidate_id = ?", row.CandidateID).
			Updates(map[string]any{
				"display_name":        row.DisplayName,
				"position":            row.Position,
				"user_id":             row.UserID,
				"accepted_nomination": row.AcceptedNomination,
				"is_write_in":         row.IsWriteIn,
				"updated_at":          row.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrCandidateNotFound
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_update_candidate_failed", err, "candidate_id", row.CandidateID)
	}
	return nil
}

func (r *Repository) GetCandidate(ctx context.Context, candidateID string) (entities.Candidate, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", strings.TrimSpace(candidateID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, domainerrors.ErrCandidateNotFound
		}
		return entities.Candidate{}, r.logError("election_repo_get_candidate_failed", err,
			"candidate_id", strings.TrimSpace(candidateID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("created_at ASC, candidate_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_candidates_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetSalt(ctx context.Context, electionID string) (entities.ElectionSalt, error) {
	var row saltModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ElectionSalt{}, domainerrors.ErrSaltDestroyed
		}
		return entities.ElectionSalt{}, r.logError("election_repo_get_salt_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return entities.ElectionSalt{
		ElectionID:  row.ElectionID,
		Salt:        append([]byte(nil), row.Salt...),
		CreatedAt:   row.CreatedAt.UTC(),
		DestroyedAt: normalizeOptionalTime(row.DestroyedAt),
	}, nil
}

func (r *Repository) DestroySalt(ctx context.Context, electionID string, destroyedAt time.Time, audit ports.EventEnvelope) error {
	electionID = strings.TrimSpace(electionID)
	at := destroyedAt.UTC()
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		current, err := lockElection(tx, electionID, "UPDATE")
		if err != nil {
			return err
		}
		if current.Status != string(entities.ElectionStatusClosed) {
			return fmt.Errorf("%w: salt may only be destroyed after close", domainerrors.ErrInvalidStateTransition)
		}
		result := tx.Model(&saltModel{}).
			Where("election_id = ?", electionID).
			Where("destroyed_at IS NULL").
			Updates(map[string]any{
				"salt":         nil,
				"destroyed_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrSaltDestroyed
		}
		if err := tx.Model(&electionModel{}).
			Where("election_id = ?", electionID).
			Updates(map[string]any{
				"salt_destroyed_at": at,
				"updated_at":        at,
			}).Error; err != nil {
			return err
		}
		return appendOutboxTx(tx, audit)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_destroy_salt_failed", err, "election_id", electionID)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if err := appendOutboxTx(r.db.WithContext(ctx), envelope); err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("election_repo_append_outbox_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("election_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// appendOutboxTx writes the audit row inside the caller's transaction. A
// replayed event id is accepted only with an identical payload.
func appendOutboxTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return create.Error
	}
	if create.RowsAffected > 0 {
		return nil
	}
	var existing outboxModel
	if err := tx.Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return err
	}
	if string(existing.Payload) != string(row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func lockElection(tx *gorm.DB, electionID string, strength string) (electionModel, error) {
	var row electionModel
	err := tx.Clauses(clause.Locking{Strength: strength}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return electionModel{}, domainerrors.ErrElectionNotFound
		}
		return electionModel{}, err
	}
	return row, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

// translateWriteError maps constraint violations to domain errors. Vote
// index violations mean the voter already holds a ballot in the contest.
func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case constraintVoterRank, constraintHashRank, constraintVoterCandidate, constraintHashCandidate:
			return domainerrors.ErrAlreadyVoted
		}
		return domainerrors.ErrConflict
	case "23503":
		return fmt.Errorf("%w: referenced record does not exist", domainerrors.ErrValidation)
	case "23514":
		return fmt.Errorf("%w: row violates a check constraint", domainerrors.ErrValidation)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isDomainError reports errors the repository raised itself inside a
// transaction; they travel upward without an adapter log line.
func isDomainError(err error) bool {
	for _, target := range []error{
		domainerrors.ErrValidation,
		domainerrors.ErrNotEligible,
		domainerrors.ErrAlreadyVoted,
		domainerrors.ErrInvalidStateTransition,
		domainerrors.ErrRevokedAuthorization,
		domainerrors.ErrElectionNotFound,
		domainerrors.ErrCandidateNotFound,
		domainerrors.ErrVoteNotFound,
		domainerrors.ErrAuthorizationNotFound,
		domainerrors.ErrOverrideNotFound,
		domainerrors.ErrAuthorizationConsumed,
		domainerrors.ErrProxyChainForbidden,
		domainerrors.ErrSaltDestroyed,
		domainerrors.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.CandidateRepository = (*Repository)(nil)
var _ ports.SaltVault = (*Repository)(nil)
var _ ports.BallotLedger = (*Repository)(nil)
var _ ports.DelegationRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
