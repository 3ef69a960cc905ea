package metrics

import (
	"strings"

	"orgnet/contexts/governance/election-engine/domain/entities"
	"orgnet/contexts/governance/election-engine/ports"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orgnet"

// ElectionMetrics carries the election engine counters. Labels never hold
// election, voter or candidate ids.
type ElectionMetrics struct {
	votesCast           *prometheus.CounterVec
	voteRejections      *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	consistencyFailures prometheus.Counter
}

func NewElectionMetrics(registerer prometheus.Registerer) (*ElectionMetrics, error) {
	m := &ElectionMetrics{
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "election",
			Name:      "votes_cast_total",
			Help:      "Ballots recorded in the ledger, by kind.",
		}, []string{"kind"}),
		voteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "election",
			Name:      "vote_rejections_total",
			Help:      "Cast attempts rejected, by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "election",
			Name:      "transitions_total",
			Help:      "Election state transitions, by target status.",
		}, []string{"to"}),
		consistencyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "election",
			Name:      "tally_consistency_failures_total",
			Help:      "Tallies aborted because ledger reads disagreed.",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{
		m.votesCast,
		m.voteRejections,
		m.transitions,
		m.consistencyFailures,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ElectionMetrics) VoteCast(kind string) {
	m.votesCast.WithLabelValues(label(kind)).Inc()
}

func (m *ElectionMetrics) VoteRejected(reason string) {
	m.voteRejections.WithLabelValues(label(reason)).Inc()
}

func (m *ElectionMetrics) ElectionTransition(to entities.ElectionStatus) {
	m.transitions.WithLabelValues(label(string(to))).Inc()
}

func (m *ElectionMetrics) ConsistencyFailure() {
	m.consistencyFailures.Inc()
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

var _ ports.Metrics = (*ElectionMetrics)(nil)
