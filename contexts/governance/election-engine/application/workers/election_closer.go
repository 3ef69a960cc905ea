package workers

import (
	"context"
	"log/slog"

	application "orgnet/contexts/governance/election-engine/application"
	"orgnet/contexts/governance/election-engine/application/commands"
)

// ElectionCloser sweeps open elections that crossed end_date.
type ElectionCloser struct {
	Lifecycle commands.LifecycleUseCase
	BatchSize int
	Logger    *slog.Logger
}

func (j ElectionCloser) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	closed, err := j.Lifecycle.CloseExpiredElections(ctx, limit)
	if err != nil {
		logger.Error("election auto close sweep failed",
			"event", "election_auto_close_sweep_failed",
			"module", "governance/election-engine",
			"layer", "worker",
			"closed_count", closed,
			"error", err.Error(),
		)
		return err
	}
	if closed > 0 {
		logger.Info("election auto close sweep completed",
			"event", "election_auto_close_sweep_completed",
			"module", "governance/election-engine",
			"layer", "worker",
			"closed_count", closed,
		)
	}
	return nil
}
