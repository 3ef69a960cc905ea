package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	electionengine "orgnet/contexts/governance/election-engine"
	"orgnet/contexts/governance/election-engine/adapters/memory"
	electionhttp "orgnet/contexts/governance/election-engine/transport/http"
)

const (
	testOrg     = "org-1"
	testOfficer = "officer-1"
	testVoter   = "voter-1"
)

func newTestServer() (*Server, *memory.Store) {
	module := electionengine.NewInMemoryModule(nil, nil)
	module.Store.SetRoles(testOrg, testOfficer, "election_officer")
	module.Store.SetMember(testOrg, testOfficer, true)
	module.Store.SetMember(testOrg, testVoter, true)
	return New(module, Options{}), module.Store
}

func doJSON(t *testing.T, server *Server, method string, path string, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		payload = encoded
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

// openTestElection creates and opens an at-large election with one
// accepted candidate and returns the election and candidate ids.
func openTestElection(t *testing.T, server *Server) (string, string) {
	t.Helper()
	now := time.Now().UTC()
	rr := doJSON(t, server, http.MethodPost, electionsPrefix+"/elections", testOfficer, electionhttp.CreateElectionRequest{
		OrganizationID:   testOrg,
		Title:            "Board election",
		VotingMethod:     "simple_majority",
		VictoryCondition: "most_votes",
		StartDate:        now.Add(-time.Hour),
		EndDate:          now.Add(24 * time.Hour),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 on create, got %d body=%s", rr.Code, rr.Body.String())
	}
	var election electionhttp.ElectionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &election); err != nil {
		t.Fatalf("decode election: %v", err)
	}
	if election.Status != "draft" {
		t.Fatalf("expected draft election, got %s", election.Status)
	}

	rr = doJSON(t, server, http.MethodPost, electionsPrefix+"/elections/"+election.ElectionID+"/candidates", testOfficer, electionhttp.AddCandidateRequest{
		DisplayName:        "Alpha",
		AcceptedNomination: true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 on candidate, got %d body=%s", rr.Code, rr.Body.String())
	}
	var candidate electionhttp.CandidateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &candidate); err != nil {
		t.Fatalf("decode candidate: %v", err)
	}

	rr = doJSON(t, server, http.MethodPost, electionsPrefix+"/elections/"+election.ElectionID+"/open", testOfficer, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on open, got %d body=%s", rr.Code, rr.Body.String())
	}
	return election.ElectionID, candidate.CandidateID
}

func TestElectionsRequireUserHeader(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodPost, electionsPrefix+"/elections", "", electionhttp.CreateElectionRequest{Title: "x"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestElectionsRejectUnknownFields(t *testing.T) {
	server, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, electionsPrefix+"/elections", bytes.NewReader([]byte(`{"title":"x","unexpected":true}`)))
	req.Header.Set("X-User-Id", testOfficer)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestElectionsCreateRequiresOfficer(t *testing.T) {
	server, _ := newTestServer()
	now := time.Now().UTC()
	rr := doJSON(t, server, http.MethodPost, electionsPrefix+"/elections", testVoter, electionhttp.CreateElectionRequest{
		OrganizationID: testOrg,
		Title:          "Board election",
		VotingMethod:   "simple_majority",
		StartDate:      now,
		EndDate:        now.Add(time.Hour),
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestElectionsDuplicateVoteConflicts(t *testing.T) {
	server, _ := newTestServer()
	electionID, candidateID := openTestElection(t, server)
	path := electionsPrefix + "/elections/" + electionID + "/votes"
	body := electionhttp.CastVoteRequest{CandidateIDs: []string{candidateID}}

	rr := doJSON(t, server, http.MethodPost, path, testVoter, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first vote, got %d body=%s", rr.Code, rr.Body.String())
	}
	var receipt electionhttp.CastVoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.BallotID == "" || len(receipt.VoteIDs) != 1 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	rr = doJSON(t, server, http.MethodPost, path, testVoter, body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second vote, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure electionhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if failure.Code != "already_voted" {
		t.Fatalf("expected already_voted, got %s", failure.Code)
	}
}

func TestElectionsIneligibleVoterGetsReason(t *testing.T) {
	server, _ := newTestServer()
	electionID, candidateID := openTestElection(t, server)
	rr := doJSON(t, server, http.MethodPost, electionsPrefix+"/elections/"+electionID+"/votes", "stranger", electionhttp.CastVoteRequest{
		CandidateIDs: []string{candidateID},
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure electionhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if failure.Code != "not_eligible" || failure.Reason != "not_active_member" {
		t.Fatalf("unexpected error body %+v", failure)
	}
}

func TestElectionsResultsLockedWhileOpen(t *testing.T) {
	server, _ := newTestServer()
	electionID, _ := openTestElection(t, server)

	rr := doJSON(t, server, http.MethodGet, electionsPrefix+"/elections/"+electionID+"/results", testVoter, nil)
	if rr.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, electionsPrefix+"/elections/"+electionID+"/ballot-stats", testVoter, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected ballot stats while open, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestElectionsUnknownElectionNotFound(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, electionsPrefix+"/elections/missing", testVoter, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealthReportsDependencyFailure(t *testing.T) {
	module := electionengine.NewInMemoryModule(nil, nil)
	healthy := New(module, Options{})
	rr := doJSON(t, healthy, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	failing := New(module, Options{Health: func(context.Context) error { return errors.New("db down") }})
	rr = doJSON(t, failing, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestResolveClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	if got := resolveClientIP(req); got != "10.0.0.5" {
		t.Fatalf("expected socket peer, got %s", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := resolveClientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %s", got)
	}
}
