package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	electionengine "orgnet/contexts/governance/election-engine"
	postgresadapter "orgnet/contexts/governance/election-engine/adapters/postgres"
	"orgnet/internal/platform/config"
	"orgnet/internal/platform/db"
	"orgnet/internal/platform/httpserver"
	"orgnet/internal/platform/messaging"
	"orgnet/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	module       electionengine.Module
	autoClose    bool
	outboxPump   bool
	pollInterval time.Duration
	logger       *slog.Logger
}

type runtime struct {
	cfg      config.Config
	postgres *db.Postgres
	registry *prometheus.Registry
	module   electionengine.Module
	logger   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	rt, err := buildRuntime("api")
	if err != nil {
		return nil, err
	}
	server := httpserver.New(rt.module, httpserver.Options{
		Addr:    normalizeAddr(rt.cfg.HTTPPort),
		Metrics: promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{Registry: rt.registry}),
		Health:  rt.postgres.Ping,
		Logger:  rt.logger,
	})
	return &APIApp{
		server:   server,
		postgres: rt.postgres,
		logger:   rt.logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	rt, err := buildRuntime("worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		postgres:     rt.postgres,
		module:       rt.module,
		autoClose:    rt.cfg.EnableElectionAutoClose,
		outboxPump:   rt.cfg.EnableElectionOutboxPump,
		pollInterval: rt.cfg.WorkerPollInterval,
		logger:       rt.logger,
	}, nil
}

func buildRuntime(process string) (runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return runtime{}, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", process)
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return runtime{}, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN, db.Options{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		return runtime{}, err
	}
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := postgresadapter.Migrate(ctx, pg.DB)
		cancel()
		if err != nil {
			_ = pg.Close()
			return runtime{}, err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	electionMetrics, err := metrics.NewElectionMetrics(registry)
	if err != nil {
		_ = pg.Close()
		return runtime{}, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return runtime{}, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger).WithStatementTimeout(cfg.DBStatementTimeout)
	directory := postgresadapter.NewDirectory(pg.DB, logger, cfg.RoleCacheTTL)
	module := electionengine.NewModule(electionengine.Dependencies{
		Elections:         repo,
		Candidates:        repo,
		Salts:             repo,
		Ledger:            repo,
		Delegations:       repo,
		Directory:         directory,
		Attendance:        directory,
		Outbox:            repo,
		OutboxRead:        repo,
		Publisher:         kafka,
		Metrics:           electionMetrics,
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		OutboxBatchSize:   cfg.OutboxBatchSize,
		AuditTopic:        cfg.ElectionAuditTopic,
		NotificationTopic: cfg.ElectionNotificationTopic,
		Logger:            logger,
	})
	return runtime{
		cfg:      cfg,
		postgres: pg,
		registry: registry,
		module:   module,
		logger:   logger,
	}, nil
}

// Run serves until ctx ends, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run drives the outbox relay and the auto-close sweep on independent
// tickers until ctx ends.
func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"auto_close", w.autoClose,
		"outbox_pump", w.outboxPump,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if w.outboxPump {
		group.Go(func() error {
			return poll(groupCtx, w.pollInterval, w.module.OutboxRelay.RunOnce)
		})
	}
	if w.autoClose {
		group.Go(func() error {
			return poll(groupCtx, w.pollInterval, w.module.Closer.RunOnce)
		})
	}
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// poll keeps going after a failed cycle; runOnce logs its own errors and the
// next tick retries.
func poll(ctx context.Context, interval time.Duration, runOnce func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		_ = runOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
