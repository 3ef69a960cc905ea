package httpadapter

import (
	"context"
	"log/slog"

	"orgnet/contexts/governance/election-engine/application/commands"
	"orgnet/contexts/governance/election-engine/application/queries"
	"orgnet/contexts/governance/election-engine/domain/entities"
	httptransport "orgnet/contexts/governance/election-engine/transport/http"
)

type Handler struct {
	Lifecycle   commands.LifecycleUseCase
	Candidates  commands.CandidateUseCase
	Ballots     commands.BallotUseCase
	Delegations commands.DelegationUseCase
	Elections   queries.GetElectionUseCase
	Results     queries.ResultsUseCase
	BallotStats queries.BallotStatsUseCase
	Logger      *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	actorID string,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.CreateElection(ctx, commands.CreateElectionCommand{
		ActorID:                   actorID,
		OrganizationID:            req.OrganizationID,
		Title:                     req.Title,
		Description:               req.Description,
		Positions:                 req.Positions,
		PositionRoles:             req.PositionRoles,
		VotingMethod:              req.VotingMethod,
		VictoryCondition:          req.VictoryCondition,
		RunoffType:                req.RunoffType,
		SupermajorityThreshold:    req.SupermajorityThreshold,
		VictoryThreshold:          req.VictoryThreshold,
		MaxSelections:             req.MaxSelections,
		Anonymous:                 req.Anonymous,
		EligibleVoters:            req.EligibleVoters,
		StartDate:                 req.StartDate,
		EndDate:                   req.EndDate,
		ResultsVisibleImmediately: req.ResultsVisibleImmediately,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election, nil), nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	detail, err := h.Elections.Execute(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(detail.Election, detail.Candidates), nil
}

func (h Handler) UpdateElectionHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	req httptransport.UpdateElectionRequest,
) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.UpdateElection(ctx, commands.UpdateElectionCommand{
		ActorID:                   actorID,
		ElectionID:                electionID,
		Title:                     req.Title,
		Description:               req.Description,
		Positions:                 req.Positions,
		PositionRoles:             req.PositionRoles,
		VotingMethod:              req.VotingMethod,
		VictoryCondition:          req.VictoryCondition,
		RunoffType:                req.RunoffType,
		SupermajorityThreshold:    req.SupermajorityThreshold,
		VictoryThreshold:          req.VictoryThreshold,
		MaxSelections:             req.MaxSelections,
		Anonymous:                 req.Anonymous,
		EligibleVoters:            req.EligibleVoters,
		StartDate:                 req.StartDate,
		EndDate:                   req.EndDate,
		ResultsVisibleImmediately: req.ResultsVisibleImmediately,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election, nil), nil
}

func (h Handler) OpenElectionHandler(ctx context.Context, actorID string, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.OpenElection(ctx, commands.TransitionCommand{ActorID: actorID, ElectionID: electionID})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election, nil), nil
}

func (h Handler) CloseElectionHandler(ctx context.Context, actorID string, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.CloseElection(ctx, commands.TransitionCommand{ActorID: actorID, ElectionID: electionID})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election, nil), nil
}

func (h Handler) RollbackElectionHandler(ctx context.Context, actorID string, electionID string) (httptransport.RollbackResponse, error) {
	result, err := h.Lifecycle.RollbackElection(ctx, commands.TransitionCommand{ActorID: actorID, ElectionID: electionID})
	if err != nil {
		return httptransport.RollbackResponse{}, err
	}
	return httptransport.RollbackResponse{
		Election:     mapElection(result.Election, nil),
		DeletedVotes: result.DeletedVotes,
	}, nil
}

func (h Handler) DestroySaltHandler(ctx context.Context, actorID string, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.DestroySalt(ctx, commands.TransitionCommand{ActorID: actorID, ElectionID: electionID})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election, nil), nil
}

func (h Handler) AddCandidateHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	req httptransport.AddCandidateRequest,
) (httptransport.CandidateResponse, error) {
	candidate, err := h.Candidates.AddCandidate(ctx, commands.AddCandidateCommand{
		ActorID:            actorID,
		ElectionID:         electionID,
		DisplayName:        req.DisplayName,
		Position:           req.Position,
		UserID:             req.UserID,
		IsWriteIn:          req.IsWriteIn,
		AcceptedNomination: req.AcceptedNomination,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

func (h Handler) AcceptNominationHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	candidateID string,
) (httptransport.CandidateResponse, error) {
	candidate, err := h.Candidates.AcceptNomination(ctx, commands.AcceptNominationCommand{
		ActorID:     actorID,
		ElectionID:  electionID,
		CandidateID: candidateID,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	voterID string,
	electionID string,
	ipAddress string,
	userAgent string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		ElectionID:   electionID,
		VoterID:      voterID,
		CandidateIDs: req.CandidateIDs,
		Position:     req.Position,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return mapCastResult(result), nil
}

func (h Handler) CastProxyVoteHandler(
	ctx context.Context,
	proxyUserID string,
	electionID string,
	ipAddress string,
	userAgent string,
	req httptransport.CastProxyVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Ballots.CastProxyVote(ctx, commands.CastProxyVoteCommand{
		ElectionID:      electionID,
		ProxyUserID:     proxyUserID,
		AuthorizationID: req.AuthorizationID,
		CandidateIDs:    req.CandidateIDs,
		Position:        req.Position,
		IPAddress:       ipAddress,
		UserAgent:       userAgent,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return mapCastResult(result), nil
}

func (h Handler) VoidBallotHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	voteID string,
	req httptransport.VoidBallotRequest,
) (httptransport.VoidBallotResponse, error) {
	result, err := h.Ballots.VoidBallot(ctx, commands.VoidBallotCommand{
		ActorID:    actorID,
		ElectionID: electionID,
		VoteID:     voteID,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.VoidBallotResponse{}, err
	}
	return httptransport.VoidBallotResponse{
		BallotID:    result.BallotID,
		VoidedVotes: result.VoidedVotes,
	}, nil
}

func (h Handler) GrantOverrideHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	req httptransport.GrantOverrideRequest,
) (httptransport.OverrideResponse, error) {
	override, err := h.Delegations.GrantOverride(ctx, commands.GrantOverrideCommand{
		ActorID:    actorID,
		ElectionID: electionID,
		UserID:     req.UserID,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.OverrideResponse{}, err
	}
	return httptransport.OverrideResponse{
		ElectionID: override.ElectionID,
		UserID:     override.UserID,
		Reason:     override.Reason,
		GrantedBy:  override.GrantedBy,
		GrantedAt:  override.GrantedAt,
	}, nil
}

func (h Handler) GrantOverridesBulkHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	req httptransport.GrantOverridesBulkRequest,
) (httptransport.BulkOverrideResponse, error) {
	result, err := h.Delegations.GrantOverridesBulk(ctx, commands.GrantOverridesBulkCommand{
		ActorID:    actorID,
		ElectionID: electionID,
		UserIDs:    req.UserIDs,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.BulkOverrideResponse{}, err
	}
	return httptransport.BulkOverrideResponse{
		Requested: result.Requested,
		Created:   result.Created,
		Skipped:   result.Skipped,
	}, nil
}

func (h Handler) RevokeOverrideHandler(ctx context.Context, actorID string, electionID string, userID string) error {
	return h.Delegations.RevokeOverride(ctx, commands.RevokeOverrideCommand{
		ActorID:    actorID,
		ElectionID: electionID,
		UserID:     userID,
	})
}

func (h Handler) CreateProxyAuthorizationHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	req httptransport.CreateProxyAuthorizationRequest,
) (httptransport.ProxyAuthorizationResponse, error) {
	authorization, err := h.Delegations.CreateProxyAuthorization(ctx, commands.CreateProxyAuthorizationCommand{
		ActorID:          actorID,
		ElectionID:       electionID,
		DelegatingUserID: req.DelegatingUserID,
		ProxyUserID:      req.ProxyUserID,
		ProxyType:        req.ProxyType,
		Reason:           req.Reason,
	})
	if err != nil {
		return httptransport.ProxyAuthorizationResponse{}, err
	}
	return mapAuthorization(authorization), nil
}

func (h Handler) ListProxyAuthorizationsHandler(
	ctx context.Context,
	actorID string,
	electionID string,
) (httptransport.ProxyAuthorizationListResponse, error) {
	items, err := h.Delegations.ListProxyAuthorizations(ctx, actorID, electionID)
	if err != nil {
		return httptransport.ProxyAuthorizationListResponse{}, err
	}
	resp := httptransport.ProxyAuthorizationListResponse{
		Items: make([]httptransport.ProxyAuthorizationResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapAuthorization(item))
	}
	return resp, nil
}

func (h Handler) RevokeProxyAuthorizationHandler(
	ctx context.Context,
	actorID string,
	electionID string,
	authorizationID string,
) (httptransport.ProxyAuthorizationResponse, error) {
	authorization, err := h.Delegations.RevokeProxyAuthorization(ctx, commands.RevokeProxyAuthorizationCommand{
		ActorID:         actorID,
		ElectionID:      electionID,
		AuthorizationID: authorizationID,
	})
	if err != nil {
		return httptransport.ProxyAuthorizationResponse{}, err
	}
	return mapAuthorization(authorization), nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID string) (httptransport.ElectionResultsResponse, error) {
	results, err := h.Results.Results(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResultsResponse{}, err
	}
	resp := httptransport.ElectionResultsResponse{
		ElectionID: results.ElectionID,
		Status:     string(results.Status),
		TalliedAt:  results.TalliedAt,
		Contests:   make([]httptransport.ContestResultResponse, 0, len(results.Contests)),
	}
	for _, contest := range results.Contests {
		resp.Contests = append(resp.Contests, mapContest(contest))
	}
	return resp, nil
}

func (h Handler) BallotStatsHandler(ctx context.Context, electionID string) (httptransport.BallotStatsResponse, error) {
	stats, err := h.BallotStats.Stats(ctx, electionID)
	if err != nil {
		return httptransport.BallotStatsResponse{}, err
	}
	resp := httptransport.BallotStatsResponse{
		ElectionID:     stats.ElectionID,
		Status:         string(stats.Status),
		EligibleVoters: stats.EligibleVoters,
		Contests:       make([]httptransport.ContestTurnoutResponse, 0, len(stats.Contests)),
		TurnoutPercent: stats.TurnoutPercent,
		GeneratedAt:    stats.GeneratedAt,
	}
	for _, contest := range stats.Contests {
		resp.Contests = append(resp.Contests, httptransport.ContestTurnoutResponse{
			Position:     contest.Position,
			BallotsCast:  contest.BallotsCast,
			ProxyBallots: contest.ProxyBallots,
		})
	}
	return resp, nil
}

// mapElection reports the voter list by size only.
func mapElection(election entities.Election, candidates []entities.Candidate) httptransport.ElectionResponse {
	resp := httptransport.ElectionResponse{
		ElectionID:                election.ElectionID,
		OrganizationID:            election.OrganizationID,
		Title:                     election.Title,
		Description:               election.Description,
		Positions:                 append([]string{}, election.Positions...),
		PositionRoles:             election.PositionRoles,
		VotingMethod:              string(election.VotingMethod),
		VictoryCondition:          string(election.VictoryCondition),
		RunoffType:                string(election.RunoffType),
		SupermajorityThreshold:    election.SupermajorityThreshold,
		VictoryThreshold:          election.VictoryThreshold,
		MaxSelections:             election.MaxSelections,
		Anonymous:                 election.Anonymous,
		EligibleVoterCount:        len(election.EligibleVoters),
		StartDate:                 election.StartDate,
		EndDate:                   election.EndDate,
		Status:                    string(election.Status),
		ResultsVisibleImmediately: election.ResultsVisibleImmediately,
		SaltDestroyed:             election.SaltDestroyedAt != nil,
		CreatedBy:                 election.CreatedBy,
		CreatedAt:                 election.CreatedAt,
		UpdatedAt:                 election.UpdatedAt,
		OpenedAt:                  election.OpenedAt,
		ClosedAt:                  election.ClosedAt,
	}
	for _, candidate := range candidates {
		resp.Candidates = append(resp.Candidates, mapCandidate(candidate))
	}
	return resp
}

func mapCandidate(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		CandidateID:        candidate.CandidateID,
		ElectionID:         candidate.ElectionID,
		DisplayName:        candidate.DisplayName,
		Position:           candidate.Position,
		UserID:             candidate.UserID,
		AcceptedNomination: candidate.AcceptedNomination,
		IsWriteIn:          candidate.IsWriteIn,
		CreatedAt:          candidate.CreatedAt,
	}
}

func mapCastResult(result commands.CastVoteResult) httptransport.CastVoteResponse {
	voteIDs := make([]string, 0, len(result.Votes))
	for _, vote := range result.Votes {
		voteIDs = append(voteIDs, vote.VoteID)
	}
	return httptransport.CastVoteResponse{
		BallotID:        result.BallotID,
		ElectionID:      result.ElectionID,
		Position:        result.Position,
		VoteIDs:         voteIDs,
		IsProxyVote:     result.IsProxyVote,
		OverrideApplied: result.OverrideApplied,
		VotedAt:         result.VotedAt,
	}
}

func mapAuthorization(authorization entities.ProxyAuthorization) httptransport.ProxyAuthorizationResponse {
	return httptransport.ProxyAuthorizationResponse{
		AuthorizationID:  authorization.AuthorizationID,
		ElectionID:       authorization.ElectionID,
		OrganizationID:   authorization.OrganizationID,
		DelegatingUserID: authorization.DelegatingUserID,
		ProxyUserID:      authorization.ProxyUserID,
		ProxyType:        string(authorization.ProxyType),
		Reason:           authorization.Reason,
		GrantedBy:        authorization.GrantedBy,
		CreatedAt:        authorization.CreatedAt,
		Revoked:          authorization.Revoked,
		RevokedAt:        authorization.RevokedAt,
		RevokedBy:        authorization.RevokedBy,
	}
}

func mapContest(contest entities.ContestResult) httptransport.ContestResultResponse {
	resp := httptransport.ContestResultResponse{
		Position:         contest.Position,
		VotingMethod:     string(contest.VotingMethod),
		VictoryCondition: string(contest.VictoryCondition),
		TotalBallots:     contest.TotalBallots,
		TotalVotes:       contest.TotalVotes,
		Candidates:       make([]httptransport.CandidateTallyResponse, 0, len(contest.Candidates)),
		WinnerID:         contest.WinnerID,
		Tie:              contest.Tie,
		RunoffRequired:   contest.RunoffRequired,
		RunoffCandidates: contest.RunoffCandidates,
	}
	for _, tally := range contest.Candidates {
		resp.Candidates = append(resp.Candidates, httptransport.CandidateTallyResponse{
			CandidateID: tally.CandidateID,
			DisplayName: tally.DisplayName,
			Votes:       tally.Votes,
			Percentage:  tally.Percentage,
		})
	}
	for _, round := range contest.Rounds {
		resp.Rounds = append(resp.Rounds, httptransport.TallyRoundResponse{
			Round:      round.Round,
			Counts:     round.Counts,
			Active:     round.Active,
			Exhausted:  round.Exhausted,
			Eliminated: round.Eliminated,
		})
	}
	return resp
}
