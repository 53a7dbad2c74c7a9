package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	votingsession "pitchday/contexts/live-contest/voting-session"
	postgresadapter "pitchday/contexts/live-contest/voting-session/adapters/postgres"
	"pitchday/contexts/live-contest/voting-session/application/commands"
	"pitchday/contexts/live-contest/voting-session/application/workers"
	"pitchday/contexts/live-contest/voting-session/domain/entities"
	"pitchday/contexts/live-contest/voting-session/ports"
	"pitchday/internal/platform/config"
	"pitchday/internal/platform/db"
	"pitchday/internal/platform/httpserver"
	"pitchday/internal/platform/messaging"
	"pitchday/internal/platform/retry"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const topicPrefix = "voting."

type APIApp struct {
	server       *httpserver.Server
	postgres     *db.Postgres
	timers       *workers.TimerManager
	relay        *relayLoop
	resumeTimers bool
	logger       *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	bus      *messaging.Bus
	redis    *messaging.RedisPublisher
	relay    *relayLoop
	logger   *slog.Logger
}

// relayLoop drains the session outbox on a fixed interval.
type relayLoop struct {
	relay        workers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgresadapter.EnsureSchema(ctx, pg.DB); err != nil {
		_ = pg.Close()
		return nil, err
	}

	var publisher ports.EventPublisher
	if cfg.EnableOutboxRelay {
		bus := messaging.NewBus(0, logger)
		subscribeAudit(bus, logger)
		publisher = bus
	}

	module := buildModule(cfg, pg, publisher, logger)
	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort), httpserver.Options{
		JWTSecret:     cfg.AdminJWTSecret,
		Health:        pg.Ping,
		EnableSwagger: cfg.EnableSwagger,
	})

	app := &APIApp{
		server:       server,
		postgres:     pg,
		timers:       module.Timers,
		resumeTimers: cfg.EnableTimerResume,
		logger:       logger,
	}
	if cfg.EnableOutboxRelay {
		app.relay = &relayLoop{relay: module.Relay, pollInterval: cfg.OutboxPoll, logger: logger}
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(0, logger)
	subscribeAudit(bus, logger)
	targets := []ports.EventPublisher{bus}

	var redisPublisher *messaging.RedisPublisher
	if cfg.RedisAddr != "" {
		redisPublisher, err = messaging.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		targets = append(targets, redisPublisher)
	}

	module := buildModule(cfg, pg, messaging.Fanout{Targets: targets}, logger)
	return &WorkerApp{
		postgres: pg,
		bus:      bus,
		redis:    redisPublisher,
		relay:    &relayLoop{relay: module.Relay, pollInterval: cfg.OutboxPoll, logger: logger},
		logger:   logger,
	}, nil
}

func buildModule(cfg config.Config, pg *db.Postgres, publisher ports.EventPublisher, logger *slog.Logger) votingsession.Module {
	repo := postgresadapter.NewRepository(pg.DB, logger)
	return votingsession.NewModule(votingsession.Dependencies{
		Sessions:      repo,
		Presentations: repo,
		Teams:         repo,
		Votes:         repo,
		Outbox:        repo,
		OutboxReader:  repo,
		Publisher:     publisher,
		Retrier: retry.New(3, 50*time.Millisecond, func(err error) bool {
			return errors.Is(err, ports.ErrTransient)
		}, logger),
		Clock: postgresadapter.SystemClock{},
		IDGen: postgresadapter.UUIDGenerator{},
		Durations: entities.Durations{
			PitchSeconds:  cfg.DefaultPitchSeconds,
			VotingSeconds: cfg.DefaultVotingSeconds,
			BreakSeconds:  cfg.BreakSeconds,
		},
		MaxDownvotes: entities.MaxDownvotesPerSession,
		TickInterval: cfg.TimerTick,
		TopicPrefix:  topicPrefix,
		Logger:       logger,
	})
}

// subscribeAudit records final standings and admin actions in the process
// log as they leave the outbox.
func subscribeAudit(bus *messaging.Bus, logger *slog.Logger) {
	audit := func(_ context.Context, event ports.EventEnvelope) error {
		logger.Info("voting session event relayed",
			"event", "voting_session_audit",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"session_id", event.PartitionKey,
			"data", string(event.Data),
		)
		return nil
	}
	for _, eventType := range []string{
		commands.EventSessionCreated,
		commands.EventSessionStarted,
		commands.EventSessionEnded,
		commands.EventSessionFinalized,
		commands.EventSessionVotesReset,
		commands.EventSessionTimerUpdated,
	} {
		bus.Subscribe(context.Background(), topicPrefix+eventType, audit)
	}
}

// Run serves HTTP until ctx is cancelled. Timers persisted by a previous
// process are resumed before the listener opens.
func (a *APIApp) Run(ctx context.Context) error {
	if a.resumeTimers {
		resumed, err := a.timers.ResumeOnStartup(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("phase timers resumed",
			"event", "bootstrap_timers_resumed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"resumed_count", resumed,
		)
	}
	if a.relay != nil {
		go a.relay.run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

// Close stops phase timers before the database handle goes away so no tick
// writes against a closed pool.
func (a *APIApp) Close() error {
	if a.timers != nil {
		a.timers.Shutdown()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.relay.pollInterval.String(),
	)
	w.relay.run(ctx)
	return nil
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.redis != nil {
		errs = append(errs, w.redis.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

// run keeps relaying after a failed batch; the relay already logged it and
// the unpublished row stays pending for the next cycle.
func (l *relayLoop) run(ctx context.Context) {
	interval := l.pollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := l.relay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_relay_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return
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
