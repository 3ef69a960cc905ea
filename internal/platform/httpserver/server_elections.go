package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	electionerrors "orgnet/contexts/governance/election-engine/domain/errors"
	electionhttp "orgnet/contexts/governance/election-engine/transport/http"
)

const maxElectionBodyBytes = 1 << 20

func writeElectionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, electionhttp.ErrorResponse{Code: code, Message: message})
}

// writeElectionDomainError maps engine errors to HTTP status codes. Storage
// errors never reach the body.
func writeElectionDomainError(w http.ResponseWriter, err error) {
	var notEligible *electionerrors.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		writeJSON(w, http.StatusForbidden, electionhttp.ErrorResponse{
			Code:    "not_eligible",
			Message: electionerrors.ErrNotEligible.Error(),
			Reason:  notEligible.Reason,
		})
	case errors.Is(err, electionerrors.ErrValidation):
		writeElectionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, electionerrors.ErrForbidden):
		writeElectionError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, electionerrors.ErrElectionNotFound),
		errors.Is(err, electionerrors.ErrCandidateNotFound),
		errors.Is(err, electionerrors.ErrVoteNotFound),
		errors.Is(err, electionerrors.ErrAuthorizationNotFound),
		errors.Is(err, electionerrors.ErrOverrideNotFound):
		writeElectionError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, electionerrors.ErrAlreadyVoted):
		writeElectionError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, electionerrors.ErrInvalidStateTransition),
		errors.Is(err, electionerrors.ErrSaltDestroyed):
		writeElectionError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, electionerrors.ErrRevokedAuthorization):
		writeElectionError(w, http.StatusConflict, "authorization_revoked", err.Error())
	case errors.Is(err, electionerrors.ErrAuthorizationConsumed):
		writeElectionError(w, http.StatusConflict, "authorization_consumed", err.Error())
	case errors.Is(err, electionerrors.ErrProxyChainForbidden):
		writeElectionError(w, http.StatusConflict, "proxy_chain_forbidden", err.Error())
	case errors.Is(err, electionerrors.ErrConflict):
		writeElectionError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, electionerrors.ErrResultsNotAvailable):
		writeElectionError(w, http.StatusLocked, "results_not_available", err.Error())
	default:
		writeElectionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireElectionUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

// decodeElectionBody accepts an empty body when optional is set, for
// endpoints whose payload has only optional fields.
func decodeElectionBody(w http.ResponseWriter, r *http.Request, target any, optional bool) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxElectionBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.CreateElectionRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.CreateElectionHandler(r.Context(), actorID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.GetElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateElection(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.UpdateElectionRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.UpdateElectionHandler(r.Context(), actorID, r.PathValue("election_id"), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenElection(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.OpenElectionHandler(r.Context(), actorID, r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseElection(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.CloseElectionHandler(r.Context(), actorID, r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRollbackElection(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.RollbackElectionHandler(r.Context(), actorID, r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDestroySalt(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.DestroySaltHandler(r.Context(), actorID, r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.AddCandidateRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.AddCandidateHandler(r.Context(), actorID, r.PathValue("election_id"), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAcceptNomination(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.AcceptNominationHandler(
		r.Context(),
		actorID,
		r.PathValue("election_id"),
		r.PathValue("candidate_id"),
	)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.CastVoteRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.CastVoteHandler(
		r.Context(),
		voterID,
		r.PathValue("election_id"),
		resolveClientIP(r),
		r.UserAgent(),
		req,
	)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastProxyVote(w http.ResponseWriter, r *http.Request) {
	proxyUserID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.CastProxyVoteRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.CastProxyVoteHandler(
		r.Context(),
		proxyUserID,
		r.PathValue("election_id"),
		resolveClientIP(r),
		r.UserAgent(),
		req,
	)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVoidBallot(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.VoidBallotRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.VoidBallotHandler(
		r.Context(),
		actorID,
		r.PathValue("election_id"),
		r.PathValue("vote_id"),
		req,
	)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGrantOverride(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.GrantOverrideRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.GrantOverrideHandler(r.Context(), actorID, r.PathValue("election_id"), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGrantOverridesBulk(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.GrantOverridesBulkRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.GrantOverridesBulkHandler(r.Context(), actorID, r.PathValue("election_id"), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeOverride(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	err := s.elections.Handler.RevokeOverrideHandler(
		r.Context(),
		actorID,
		r.PathValue("election_id"),
		r.PathValue("user_id"),
	)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateProxyAuthorization(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.CreateProxyAuthorizationRequest
	if !decodeElectionBody(w, r, &req, false) {
		return
	}
	resp, err := s.elections.Handler.CreateProxyAuthorizationHandler(r.Context(), actorID, r.PathValue("election_id"), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProxyAuthorizations(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.ListProxyAuthorizationsHandler(r.Context(), actorID, r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeProxyAuthorization(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireElectionUser(w, r)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.RevokeProxyAuthorizationHandler(
		r.Context(),
		actorID,
		r.PathValue("election_id"),
		r.PathValue("authorization_id"),
	)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ResultsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.BallotStatsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
