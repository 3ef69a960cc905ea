package postgresadapter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Constraint names the repository translates into domain errors.
const (
	constraintVoterRank      = "ux_election_votes_voter_rank"
	constraintHashRank       = "ux_election_votes_hash_rank"
	constraintVoterCandidate = "ux_election_votes_voter_candidate"
	constraintHashCandidate  = "ux_election_votes_hash_candidate"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS elections (
		election_id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		positions JSONB NOT NULL DEFAULT '[]',
		position_roles JSONB NOT NULL DEFAULT '{}',
		voting_method TEXT NOT NULL,
		victory_condition TEXT NOT NULL,
		runoff_type TEXT NOT NULL,
		supermajority_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
		victory_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_selections INTEGER NOT NULL DEFAULT 0,
		anonymous BOOLEAN NOT NULL DEFAULT FALSE,
		eligible_voters JSONB NOT NULL DEFAULT '[]',
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('draft', 'open', 'closed')),
		results_visible_immediately BOOLEAN NOT NULL DEFAULT FALSE,
		salt_destroyed_at TIMESTAMPTZ,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		opened_at TIMESTAMPTZ,
		closed_at TIMESTAMPTZ,
		closing_ledger_rows JSONB,
		CHECK (end_date > start_date)
	)`,
	`ALTER TABLE elections ADD COLUMN IF NOT EXISTS closing_ledger_rows JSONB`,
	`CREATE INDEX IF NOT EXISTS ix_elections_status_end ON elections (status, end_date)`,
	`CREATE INDEX IF NOT EXISTS ix_elections_org_status ON elections (organization_id, status)`,
	`CREATE TABLE IF NOT EXISTS election_salts (
		election_id TEXT PRIMARY KEY REFERENCES elections (election_id) ON DELETE CASCADE,
		salt BYTEA,
		created_at TIMESTAMPTZ NOT NULL,
		destroyed_at TIMESTAMPTZ,
		CHECK ((destroyed_at IS NULL) = (salt IS NOT NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS election_candidates (
		candidate_id TEXT PRIMARY KEY,
		election_id TEXT NOT NULL REFERENCES elections (election_id) ON DELETE CASCADE,
		display_name TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		user_id TEXT,
		accepted_nomination BOOLEAN NOT NULL DEFAULT FALSE,
		is_write_in BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_election_candidates_election ON election_candidates (election_id)`,
	`CREATE TABLE IF NOT EXISTS election_votes (
		vote_id TEXT PRIMARY KEY,
		ballot_id TEXT NOT NULL,
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		candidate_id TEXT NOT NULL REFERENCES election_candidates (candidate_id),
		position TEXT NOT NULL DEFAULT '',
		rank INTEGER NOT NULL CHECK (rank >= 1),
		voter_id TEXT,
		voter_hash TEXT,
		voted_at TIMESTAMPTZ NOT NULL,
		is_proxy_vote BOOLEAN NOT NULL DEFAULT FALSE,
		proxy_voter_id TEXT,
		proxy_delegating_user_id TEXT,
		proxy_authorization_id TEXT,
		override_applied BOOLEAN NOT NULL DEFAULT FALSE,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		deleted_at TIMESTAMPTZ,
		deleted_by TEXT,
		deletion_reason TEXT,
		CHECK ((voter_id IS NULL) <> (voter_hash IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintVoterRank + `
		ON election_votes (election_id, position, voter_id, rank)
		WHERE voter_id IS NOT NULL AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintHashRank + `
		ON election_votes (election_id, position, voter_hash, rank)
		WHERE voter_hash IS NOT NULL AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintVoterCandidate + `
		ON election_votes (election_id, position, voter_id, candidate_id)
		WHERE voter_id IS NOT NULL AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintHashCandidate + `
		ON election_votes (election_id, position, voter_hash, candidate_id)
		WHERE voter_hash IS NOT NULL AND deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS ix_election_votes_contest ON election_votes (election_id, position) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS ix_election_votes_ballot ON election_votes (ballot_id)`,
	`CREATE TABLE IF NOT EXISTS election_voter_overrides (
		election_id TEXT NOT NULL REFERENCES elections (election_id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		granted_by TEXT NOT NULL,
		granted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (election_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS election_proxy_authorizations (
		authorization_id TEXT PRIMARY KEY,
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		organization_id TEXT NOT NULL,
		delegating_user_id TEXT NOT NULL,
		proxy_user_id TEXT NOT NULL,
		proxy_type TEXT NOT NULL CHECK (proxy_type IN ('single_election', 'standing')),
		reason TEXT NOT NULL DEFAULT '',
		granted_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ,
		revoked_by TEXT,
		CHECK (delegating_user_id <> proxy_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_election_proxy_org_active ON election_proxy_authorizations (organization_id) WHERE NOT revoked`,
	`CREATE TABLE IF NOT EXISTS election_outbox (
		outbox_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		payload BYTEA NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS ix_election_outbox_pending ON election_outbox (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS organization_members (
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (organization_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS member_roles (
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		PRIMARY KEY (organization_id, user_id, role)
	)`,
	`CREATE TABLE IF NOT EXISTS membership_tiers (
		organization_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		requires_attendance BOOLEAN NOT NULL DEFAULT FALSE,
		min_attendance_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		lookback_days INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (organization_id, tier)
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_attendance (
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		meeting_id TEXT NOT NULL,
		meeting_at TIMESTAMPTZ NOT NULL,
		attended BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (organization_id, user_id, meeting_id)
	)`,
}

// Migrate creates the election tables and indexes. Every statement is
// idempotent, so it is safe to run on each start.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, statement := range schemaStatements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("election schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
