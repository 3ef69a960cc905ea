package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	electionengine "orgnet/contexts/governance/election-engine"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "orgnet/internal/platform/httpserver/docs"
)

const electionsPrefix = "/api/elections/v1"

// HealthCheck reports whether the process dependencies are reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	mux       *http.ServeMux
	http      *http.Server
	logger    *slog.Logger
	addr      string
	elections electionengine.Module
	metrics   http.Handler
	health    HealthCheck
}

type Options struct {
	Addr    string
	Metrics http.Handler
	Health  HealthCheck
	Logger  *slog.Logger
}

func New(elections electionengine.Module, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		elections: elections,
		metrics:   opts.Metrics,
		health:    opts.Health,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("POST "+electionsPrefix+"/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET "+electionsPrefix+"/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("PATCH "+electionsPrefix+"/elections/{election_id}", s.handleUpdateElection)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/open", s.handleOpenElection)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/close", s.handleCloseElection)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/rollback", s.handleRollbackElection)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/salt/destroy", s.handleDestroySalt)

	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/candidates", s.handleAddCandidate)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/candidates/{candidate_id}/accept", s.handleAcceptNomination)

	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("DELETE "+electionsPrefix+"/elections/{election_id}/votes/{vote_id}", s.handleVoidBallot)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/proxy-votes", s.handleCastProxyVote)

	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/voter-overrides", s.handleGrantOverride)
	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/voter-overrides/bulk", s.handleGrantOverridesBulk)
	s.mux.HandleFunc("DELETE "+electionsPrefix+"/elections/{election_id}/voter-overrides/{user_id}", s.handleRevokeOverride)

	s.mux.HandleFunc("POST "+electionsPrefix+"/elections/{election_id}/proxy-authorizations", s.handleCreateProxyAuthorization)
	s.mux.HandleFunc("GET "+electionsPrefix+"/elections/{election_id}/proxy-authorizations", s.handleListProxyAuthorizations)
	s.mux.HandleFunc("DELETE "+electionsPrefix+"/elections/{election_id}/proxy-authorizations/{authorization_id}", s.handleRevokeProxyAuthorization)

	s.mux.HandleFunc("GET "+electionsPrefix+"/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET "+electionsPrefix+"/elections/{election_id}/ballot-stats", s.handleBallotStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("health check failed",
				"event", "http_health_check_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"error", err.Error(),
			)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveClientIP prefers the first X-Forwarded-For hop set by the edge
// proxy and falls back to the socket peer.
func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
