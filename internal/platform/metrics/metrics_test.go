package metrics

import (
	"testing"

	"orgnet/contexts/governance/election-engine/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestElectionMetricsCountByLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewElectionMetrics(registry)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	m.VoteCast("direct")
	m.VoteCast("direct")
	m.VoteCast("proxy")
	m.VoteRejected("already_voted")
	m.VoteRejected("")
	m.ElectionTransition(entities.ElectionStatusClosed)
	m.ConsistencyFailure()

	if got := testutil.ToFloat64(m.votesCast.WithLabelValues("direct")); got != 2 {
		t.Fatalf("expected 2 direct votes, got %v", got)
	}
	if got := testutil.ToFloat64(m.votesCast.WithLabelValues("proxy")); got != 1 {
		t.Fatalf("expected 1 proxy vote, got %v", got)
	}
	if got := testutil.ToFloat64(m.voteRejections.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty reason to count as unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("closed")); got != 1 {
		t.Fatalf("expected 1 close transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.consistencyFailures); got != 1 {
		t.Fatalf("expected 1 consistency failure, got %v", got)
	}
}

func TestNewElectionMetricsRejectsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewElectionMetrics(registry); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewElectionMetrics(registry); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
