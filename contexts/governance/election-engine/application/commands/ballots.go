package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/application/eligibility"
	"orgnet/contexts/governance/election-engine/domain/entities"
	domainerrors "orgnet/contexts/governance/election-engine/domain/errors"
	"orgnet/contexts/governance/election-engine/domain/services"
	"orgnet/contexts/governance/election-engine/ports"
)

type CastVoteCommand struct {
	ElectionID   string
	VoterID      string
	CandidateIDs []string
	Position     string
	IPAddress    string
	UserAgent    string
}

type CastProxyVoteCommand struct {
	ElectionID      string
	ProxyUserID     string
	AuthorizationID string
	CandidateIDs    []string
	Position        string
	IPAddress       string
	UserAgent       string
}

type VoidBallotCommand struct {
	ActorID    string
	ElectionID string
	VoteID     string
	Reason     string
}

type CastVoteResult struct {
	BallotID        string
	ElectionID      string
	Position        string
	Votes           []entities.Vote
	IsProxyVote     bool
	OverrideApplied bool
	VotedAt         time.Time
}

type VoidBallotResult struct {
	BallotID    string
	VoidedVotes int
}

// BallotUseCase casts direct and proxy ballots and voids ballots for
// correction. The ledger's storage constraint is the final word on
// uniqueness; the eligibility pre-check only fails fast.
type BallotUseCase struct {
	Elections   ports.ElectionRepository
	Candidates  ports.CandidateRepository
	Salts       ports.SaltVault
	Ledger      ports.BallotLedger
	Delegations ports.DelegationRepository
	Directory   ports.MembershipDirectory
	Eligibility eligibility.Evaluator
	Outbox      ports.OutboxWriter
	Metrics     ports.Metrics
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

type ballotRequest struct {
	election      entities.Election
	voterID       string
	submittedBy   string
	candidateIDs  []string
	position      string
	authorization *entities.ProxyAuthorization
	ipAddress     string
	userAgent     string
}

func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	voterID := strings.TrimSpace(cmd.VoterID)
	if voterID == "" {
		return CastVoteResult{}, fmt.Errorf("%w: voter id is required", domainerrors.ErrValidation)
	}
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	return uc.castBallot(ctx, ballotRequest{
		election:     election,
		voterID:      voterID,
		submittedBy:  voterID,
		candidateIDs: normalizeIDs(cmd.CandidateIDs),
		position:     strings.TrimSpace(cmd.Position),
		ipAddress:    strings.TrimSpace(cmd.IPAddress),
		userAgent:    strings.TrimSpace(cmd.UserAgent),
	})
}

// CastProxyVote records a ballot for the delegating user of the
// authorization. Eligibility and uniqueness are evaluated for that user.
func (uc BallotUseCase) CastProxyVote(ctx context.Context, cmd CastProxyVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	proxyUserID := strings.TrimSpace(cmd.ProxyUserID)
	authorizationID := strings.TrimSpace(cmd.AuthorizationID)
	if proxyUserID == "" || authorizationID == "" {
		return CastVoteResult{}, fmt.Errorf("%w: proxy user and authorization are required", domainerrors.ErrValidation)
	}

	authorization, err := uc.Delegations.GetProxyAuthorization(ctx, authorizationID)
	if err != nil {
		return CastVoteResult{}, err
	}
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	refused := ballotRequest{
		election:      election,
		voterID:       authorization.DelegatingUserID,
		submittedBy:   proxyUserID,
		position:      strings.TrimSpace(cmd.Position),
		authorization: &authorization,
	}
	if authorization.Revoked {
		return CastVoteResult{}, uc.rejected(ctx, refused, domainerrors.ErrRevokedAuthorization)
	}
	if authorization.ProxyUserID != proxyUserID || !authorization.Covers(election) {
		logger.Warn("proxy vote submitted without matching authorization",
			"event", "election_proxy_vote_unauthorized",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"authorization_id", authorizationID,
			"proxy_user_id", proxyUserID,
		)
		return CastVoteResult{}, uc.rejected(ctx, refused, domainerrors.NotEligible(domainerrors.ReasonProxyNotAuthorized))
	}

	return uc.castBallot(ctx, ballotRequest{
		election:      election,
		voterID:       authorization.DelegatingUserID,
		submittedBy:   proxyUserID,
		candidateIDs:  normalizeIDs(cmd.CandidateIDs),
		position:      strings.TrimSpace(cmd.Position),
		authorization: &authorization,
		ipAddress:     strings.TrimSpace(cmd.IPAddress),
		userAgent:     strings.TrimSpace(cmd.UserAgent),
	})
}

func (uc BallotUseCase) castBallot(ctx context.Context, req ballotRequest) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	election := req.election

	if election.Status != entities.ElectionStatusOpen {
		return CastVoteResult{}, uc.rejected(ctx, req, domainerrors.NotEligible(domainerrors.ReasonElectionNotOpen))
	}
	if err := uc.validateBallot(ctx, req); err != nil {
		return CastVoteResult{}, uc.rejected(ctx, req, err)
	}

	key, err := uc.voterKey(ctx, election, req.voterID)
	if err != nil {
		return CastVoteResult{}, err
	}
	decision, err := uc.Eligibility.Evaluate(ctx, eligibility.Request{
		Election: election,
		VoterID:  req.voterID,
		Position: req.position,
		Key:      key,
	})
	if err != nil {
		if isUserFacing(err) {
			return CastVoteResult{}, uc.rejected(ctx, req, err)
		}
		return CastVoteResult{}, err
	}

	now := resolveNow(uc.Clock)
	votedAt, ipAddress, userAgent := now, req.ipAddress, req.userAgent
	if election.Anonymous {
		// Day precision keeps vote rows from lining up with audit timestamps.
		votedAt = now.Truncate(24 * time.Hour)
		ipAddress, userAgent = "", ""
	}
	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}
	votes := make([]entities.Vote, 0, len(req.candidateIDs))
	for i, candidateID := range req.candidateIDs {
		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return CastVoteResult{}, err
		}
		vote := entities.Vote{
			VoteID:          voteID,
			BallotID:        ballotID,
			ElectionID:      election.ElectionID,
			CandidateID:     candidateID,
			Position:        req.position,
			Rank:            i + 1,
			VoterID:         key.VoterID,
			VoterHash:       key.VoterHash,
			VotedAt:         votedAt,
			OverrideApplied: decision.OverrideApplied,
			IPAddress:       ipAddress,
			UserAgent:       userAgent,
		}
		if req.authorization != nil {
			vote.IsProxyVote = true
			// Anonymous ballots keep only the proxy flag; the proxy and
			// delegating identities would re-link the ballot to the voter.
			if !election.Anonymous {
				vote.ProxyVoterID = req.submittedBy
				vote.ProxyDelegatingUserID = req.voterID
				vote.ProxyAuthorizationID = req.authorization.AuthorizationID
			}
		}
		votes = append(votes, vote)
	}

	audit, err := auditEnvelope(ctx, uc.IDGen, "election.vote_cast", election.ElectionID, req.submittedBy,
		outcomeSucceeded, now, castAuditData(req, ballotID, votes, decision.OverrideApplied))
	if err != nil {
		return CastVoteResult{}, err
	}

	ballot := ports.Ballot{
		ElectionID: election.ElectionID,
		Position:   req.position,
		Votes:      votes,
	}
	if req.authorization != nil {
		ballot.AuthorizationID = req.authorization.AuthorizationID
	}
	if err := uc.Ledger.AppendBallot(ctx, ballot, audit); err != nil {
		if isUserFacing(err) {
			return CastVoteResult{}, uc.rejected(ctx, req, err)
		}
		return CastVoteResult{}, err
	}

	kind := "direct"
	if req.authorization != nil {
		kind = "proxy"
	}
	if uc.Metrics != nil {
		uc.Metrics.VoteCast(kind)
	}
	attrs := []any{
		"event", "election_vote_cast",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"position", req.position,
		"kind", kind,
		"override_applied", decision.OverrideApplied,
	}
	if !election.Anonymous {
		attrs = append(attrs, "ballot_id", ballotID, "voter_id", req.voterID)
	}
	logger.Info("election vote cast", attrs...)

	return CastVoteResult{
		BallotID:        ballotID,
		ElectionID:      election.ElectionID,
		Position:        req.position,
		Votes:           votes,
		IsProxyVote:     req.authorization != nil,
		OverrideApplied: decision.OverrideApplied,
		VotedAt:         votedAt,
	}, nil
}

// VoidBallot soft-deletes every row of the ballot the vote belongs to so a
// corrected ballot can be cast. Only possible while the election is OPEN.
func (uc BallotUseCase) VoidBallot(ctx context.Context, cmd VoidBallotCommand) (VoidBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := loadElection(ctx, uc.Elections, cmd.ElectionID)
	if err != nil {
		return VoidBallotResult{}, err
	}
	if err := requireOfficer(ctx, uc.Directory, uc.Logger, election.OrganizationID, cmd.ActorID); err != nil {
		return VoidBallotResult{}, err
	}
	if election.Status != entities.ElectionStatusOpen {
		return VoidBallotResult{}, fmt.Errorf("%w: ballots can only be voided while open", domainerrors.ErrInvalidStateTransition)
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return VoidBallotResult{}, fmt.Errorf("%w: a correction reason is required", domainerrors.ErrValidation)
	}

	vote, err := uc.Ledger.GetVote(ctx, strings.TrimSpace(cmd.VoteID))
	if err != nil {
		return VoidBallotResult{}, err
	}
	if vote.ElectionID != election.ElectionID || vote.Deleted() {
		return VoidBallotResult{}, domainerrors.ErrVoteNotFound
	}

	now := resolveNow(uc.Clock)
	actorID := strings.TrimSpace(cmd.ActorID)
	audit, err := auditEnvelope(ctx, uc.IDGen, "election.ballot_voided", election.ElectionID, actorID,
		outcomeSucceeded, now, map[string]any{
			"ballot_id": vote.BallotID,
			"position":  vote.Position,
			"reason":    reason,
		})
	if err != nil {
		return VoidBallotResult{}, err
	}
	voided, err := uc.Ledger.VoidBallot(ctx, election.ElectionID, vote.BallotID, now, actorID, reason, audit)
	if err != nil {
		return VoidBallotResult{}, err
	}

	logger.Warn("election ballot voided",
		"event", "election_ballot_voided",
		"module", "governance/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"ballot_id", vote.BallotID,
		"actor_id", actorID,
		"voided_votes", voided,
	)
	return VoidBallotResult{BallotID: vote.BallotID, VoidedVotes: voided}, nil
}

func (uc BallotUseCase) validateBallot(ctx context.Context, req ballotRequest) error {
	election := req.election
	if len(election.Positions) > 0 && req.position == "" {
		return fmt.Errorf("%w: position is required", domainerrors.ErrValidation)
	}
	if !election.HasPosition(req.position) {
		return fmt.Errorf("%w: position %q is not part of the election", domainerrors.ErrValidation, req.position)
	}
	if err := services.ValidateSelection(election.VotingMethod, election.MaxSelections, req.candidateIDs); err != nil {
		return err
	}
	for _, candidateID := range req.candidateIDs {
		candidate, err := uc.Candidates.GetCandidate(ctx, candidateID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrCandidateNotFound) {
				return fmt.Errorf("%w: candidate %s is not on the ballot", domainerrors.ErrValidation, candidateID)
			}
			return err
		}
		if candidate.ElectionID != election.ElectionID {
			return fmt.Errorf("%w: candidate %s is not on the ballot", domainerrors.ErrValidation, candidateID)
		}
		if !candidate.Votable() {
			return fmt.Errorf("%w: candidate %s has not accepted the nomination", domainerrors.ErrValidation, candidateID)
		}
		if candidate.Position != req.position {
			return fmt.Errorf("%w: candidate %s does not stand for position %q", domainerrors.ErrValidation, candidateID, req.position)
		}
	}
	return nil
}

// voterKey derives the ledger identity: the hashed key on anonymous
// elections, the plain user id otherwise.
func (uc BallotUseCase) voterKey(ctx context.Context, election entities.Election, voterID string) (entities.VoterKey, error) {
	if !election.Anonymous {
		return entities.DirectKey(voterID), nil
	}
	salt, err := uc.Salts.GetSalt(ctx, election.ElectionID)
	if err != nil {
		return entities.VoterKey{}, err
	}
	if salt.Destroyed() {
		return entities.VoterKey{}, domainerrors.ErrSaltDestroyed
	}
	hash, err := services.VoterHash(salt.Salt, voterID, election.ElectionID)
	if err != nil {
		return entities.VoterKey{}, err
	}
	return entities.HashedKey(hash), nil
}

// rejected records a refused cast attempt and returns err unchanged. The
// audit write is best-effort because nothing was committed.
func (uc BallotUseCase) rejected(ctx context.Context, req ballotRequest, err error) error {
	reason := rejectionReason(err)
	uc.observeRejection(reason)
	if uc.Outbox == nil {
		return err
	}
	now := resolveNow(uc.Clock)
	data := map[string]any{
		"position": req.position,
		"reason":   reason,
		"proxy":    req.authorization != nil,
	}
	audit, buildErr := auditEnvelope(ctx, uc.IDGen, "election.vote_rejected", req.election.ElectionID, req.submittedBy,
		outcomeRejected, now, data)
	if buildErr == nil {
		buildErr = uc.Outbox.AppendOutbox(ctx, audit)
	}
	if buildErr != nil {
		application.ResolveLogger(uc.Logger).Warn("vote rejection audit failed",
			"event", "election_vote_rejection_audit_failed",
			"module", "governance/election-engine",
			"layer", "application",
			"election_id", req.election.ElectionID,
			"error", buildErr.Error(),
		)
	}
	return err
}

func (uc BallotUseCase) observeRejection(reason string) {
	if uc.Metrics != nil {
		uc.Metrics.VoteRejected(reason)
	}
}

func castAuditData(req ballotRequest, ballotID string, votes []entities.Vote, overrideApplied bool) map[string]any {
	data := map[string]any{
		"position":         req.position,
		"proxy":            req.authorization != nil,
		"override_applied": overrideApplied,
		"row_count":        len(votes),
	}
	if req.election.Anonymous {
		return data
	}
	candidates := make([]string, 0, len(votes))
	for _, vote := range votes {
		candidates = append(candidates, vote.CandidateID)
	}
	data["ballot_id"] = ballotID
	data["voter_id"] = req.voterID
	data["candidate_ids"] = candidates
	if req.authorization != nil {
		data["authorization_id"] = req.authorization.AuthorizationID
		data["delegating_user_id"] = req.voterID
	}
	return data
}

func isUserFacing(err error) bool {
	return errors.Is(err, domainerrors.ErrNotEligible) ||
		errors.Is(err, domainerrors.ErrAlreadyVoted) ||
		errors.Is(err, domainerrors.ErrValidation) ||
		errors.Is(err, domainerrors.ErrRevokedAuthorization)
}

func rejectionReason(err error) string {
	var notEligible *domainerrors.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		return notEligible.Reason
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domainerrors.ErrRevokedAuthorization):
		return "revoked_authorization"
	case errors.Is(err, domainerrors.ErrValidation):
		return "invalid_ballot"
	default:
		return "internal"
	}
}
