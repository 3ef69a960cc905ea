package electionengine

import (
	"log/slog"

	"orgnet/contexts/governance/election-engine/adapters/events"
	httpadapter "orgnet/contexts/governance/election-engine/adapters/http"
	"orgnet/contexts/governance/election-engine/adapters/memory"
	"orgnet/contexts/governance/election-engine/application/commands"
	"orgnet/contexts/governance/election-engine/application/eligibility"
	"orgnet/contexts/governance/election-engine/application/queries"
	"orgnet/contexts/governance/election-engine/application/workers"
	"orgnet/contexts/governance/election-engine/domain/entities"
	"orgnet/contexts/governance/election-engine/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Closer      workers.ElectionCloser
	Store       *memory.Store
}

type Dependencies struct {
	Elections   ports.ElectionRepository
	Candidates  ports.CandidateRepository
	Salts       ports.SaltVault
	Ledger      ports.BallotLedger
	Delegations ports.DelegationRepository
	Directory   ports.MembershipDirectory
	Attendance  ports.AttendanceSource
	Outbox      ports.OutboxWriter
	OutboxRead  ports.OutboxRepository
	Publisher   ports.EventPublisher
	Notifier    ports.Notifier
	Metrics     ports.Metrics
	Clock       ports.Clock
	IDGen       ports.IDGenerator

	OutboxBatchSize   int
	CloseBatchSize    int
	AuditTopic        string
	NotificationTopic string
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	notifier := deps.Notifier
	if notifier == nil && deps.Outbox != nil {
		notifier = events.OutboxNotifier{
			Outbox: deps.Outbox,
			IDGen:  deps.IDGen,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		}
	}

	lifecycle := commands.LifecycleUseCase{
		Elections:  deps.Elections,
		Candidates: deps.Candidates,
		Salts:      deps.Salts,
		Ledger:     deps.Ledger,
		Directory:  deps.Directory,
		Notifier:   notifier,
		Metrics:    deps.Metrics,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	evaluator := eligibility.Evaluator{
		Directory:   deps.Directory,
		Attendance:  deps.Attendance,
		Delegations: deps.Delegations,
		Ledger:      deps.Ledger,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: lifecycle,
			Candidates: commands.CandidateUseCase{
				Elections:  deps.Elections,
				Candidates: deps.Candidates,
				Directory:  deps.Directory,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			Ballots: commands.BallotUseCase{
				Elections:   deps.Elections,
				Candidates:  deps.Candidates,
				Salts:       deps.Salts,
				Ledger:      deps.Ledger,
				Delegations: deps.Delegations,
				Directory:   deps.Directory,
				Eligibility: evaluator,
				Outbox:      deps.Outbox,
				Metrics:     deps.Metrics,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Delegations: commands.DelegationUseCase{
				Elections:   deps.Elections,
				Salts:       deps.Salts,
				Delegations: deps.Delegations,
				Directory:   deps.Directory,
				Notifier:    notifier,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Elections: queries.GetElectionUseCase{
				Elections:  deps.Elections,
				Candidates: deps.Candidates,
			},
			Results: queries.ResultsUseCase{
				Elections:  deps.Elections,
				Candidates: deps.Candidates,
				Ledger:     deps.Ledger,
				Metrics:    deps.Metrics,
				Clock:      deps.Clock,
				Logger:     deps.Logger,
			},
			BallotStats: queries.BallotStatsUseCase{
				Elections: deps.Elections,
				Ledger:    deps.Ledger,
				Clock:     deps.Clock,
			},
			Logger: deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:            deps.OutboxRead,
			Publisher:         deps.Publisher,
			Clock:             deps.Clock,
			BatchSize:         deps.OutboxBatchSize,
			AuditTopic:        deps.AuditTopic,
			NotificationTopic: deps.NotificationTopic,
			Logger:            deps.Logger,
		},
		Closer: workers.ElectionCloser{
			Lifecycle: lifecycle,
			BatchSize: deps.CloseBatchSize,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Tests seed
// membership through the store's setters.
func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Elections:   store,
		Candidates:  store,
		Salts:       store,
		Ledger:      store,
		Delegations: store,
		Directory:   store,
		Attendance:  store,
		Outbox:      store,
		OutboxRead:  store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
