// Package app wires configuration into running components and owns their
// lifecycle: the HTTP server, audit alert delivery, background sweeps and
// policy hot reload all run under one errgroup.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"sanctum/internal/behavior"
	behaviormemory "sanctum/internal/behavior/store/memory"
	behaviorredis "sanctum/internal/behavior/store/redis"
	"sanctum/internal/dlp"
	"sanctum/internal/encryption"
	"sanctum/internal/pipeline"
	"sanctum/internal/platform/config"
	"sanctum/internal/platform/httpserver"
	platformredis "sanctum/internal/platform/redis"
	"sanctum/internal/policy"
	"sanctum/internal/ratelimit"
	"sanctum/internal/session"
	sessionmemory "sanctum/internal/session/store/memory"
	sessionredis "sanctum/internal/session/store/redis"
	httptransport "sanctum/internal/transport/http"
	"sanctum/internal/vault"
	vaultbadger "sanctum/internal/vault/store/badger"
	vaultmemory "sanctum/internal/vault/store/memory"
	vaultpostgres "sanctum/internal/vault/store/postgres"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/platform/audit/alert"
	auditmemory "sanctum/pkg/platform/audit/store/memory"
	auditpostgres "sanctum/pkg/platform/audit/store/postgres"
	"sanctum/pkg/platform/worker"
)

// sessionRetentionFactor keeps Redis session keys around past idle expiry so
// a late request is told EXPIRED rather than NOT_FOUND.
const sessionRetentionFactor = 4

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	Handler http.Handler

	auditLog *audit.Log
	workers  []*worker.Periodic
	reloader *policy.Reloader
	closers  []func() error
}

// Build constructs every component from cfg. On error, whatever was already
// opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *App, err error) {
	built := &App{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = built.Close()
		}
	}()
	a = built
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var checks []httptransport.RouterOption

	auditStore, check, err := a.openAuditStore(ctx)
	if err != nil {
		return nil, err
	}
	if check != nil {
		checks = append(checks, httptransport.WithHealthCheck("audit_store", check))
	}
	alerter, err := a.buildAlerter(ctx)
	if err != nil {
		return nil, err
	}
	auditOpts := []audit.Option{
		audit.WithLogger(logger),
		audit.WithMetrics(audit.NewMetrics(a.registry)),
		audit.WithAlertTimeout(cfg.Alerts.Timeout),
	}
	if alerter != nil {
		auditOpts = append(auditOpts, audit.WithAlerter(alerter))
	}
	a.auditLog, err = audit.New(auditStore, auditOpts...)
	if err != nil {
		return nil, err
	}
	if alerter != nil {
		checks = append(checks, httptransport.WithHealthCheck("alert_queue", a.auditLog.AlertQueueHealth))
	}

	policies := policy.New(
		policy.WithAuditLogger(a.auditLog),
		policy.WithLogger(logger),
		policy.WithMetrics(policy.NewMetrics(a.registry)),
	)
	if err := a.loadPolicies(policies); err != nil {
		return nil, err
	}

	engine, err := a.buildEngine()
	if err != nil {
		return nil, err
	}

	redisClient, err := platformredis.New(ctx, cfg.Storage.RedisURL)
	if err != nil {
		return nil, err
	}
	var sessionStore session.Store = sessionmemory.NewInMemoryStore()
	var profileStore behavior.Store = behaviormemory.NewInMemoryStore(behavior.DefaultConfig().IdleTTL)
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
		checks = append(checks, httptransport.WithHealthCheck("redis", redisClient.Health))
		sessionStore = sessionredis.NewRedis(redisClient.Client, cfg.Session.RotationInterval*sessionRetentionFactor)
		profileStore = behaviorredis.NewRedis(redisClient.Client, behavior.DefaultConfig().IdleTTL)
	}

	sessions, err := session.New(sessionStore, session.Config{
		RotationInterval: cfg.Session.RotationInterval,
		TokenTTL:         cfg.Session.TokenTTL,
		MaxConcurrent:    cfg.Session.MaxConcurrent,
		ScoreThreshold:   cfg.Session.ScoreThreshold,
		SigningKey:       []byte(cfg.Session.SigningKey),
	},
		session.WithAuditLogger(a.auditLog),
		session.WithLogger(logger),
		session.WithMetrics(session.NewMetrics(a.registry)),
	)
	if err != nil {
		return nil, err
	}

	behaviorCfg := behavior.DefaultConfig()
	behaviorCfg.BurstThreshold = cfg.Behavior.BurstThreshold
	behaviorCfg.BurstWindow = cfg.Behavior.BurstWindow
	behaviorCfg.WindowStart = cfg.Behavior.OffHoursEnd
	behaviorCfg.WindowEnd = cfg.Behavior.OffHoursStart
	behaviorCfg.Location = cfg.Location()
	analyzer, err := behavior.New(profileStore, behaviorCfg,
		behavior.WithAuditLogger(a.auditLog),
		behavior.WithLogger(logger),
		behavior.WithMetrics(behavior.NewMetrics(a.registry)),
	)
	if err != nil {
		return nil, err
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RPS = cfg.Pipeline.RateLimitRPS
	limitCfg.Burst = cfg.Pipeline.RateLimitBurst
	limiter, err := ratelimit.New(limitCfg, ratelimit.WithMetrics(ratelimit.NewMetrics(a.registry)))
	if err != nil {
		return nil, err
	}

	scanner := dlp.New(dlp.WithMetrics(dlp.NewMetrics(a.registry)))

	recordStore, check, err := a.openRecordStore(ctx)
	if err != nil {
		return nil, err
	}
	if check != nil {
		checks = append(checks, httptransport.WithHealthCheck("record_store", check))
	}
	records, err := vault.New(recordStore, engine, policies,
		vault.WithAuditLogger(a.auditLog),
		vault.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	guard, err := pipeline.New(sessions, limiter, analyzer, scanner, policies, a.auditLog,
		pipeline.WithDLPCeiling(cfg.Pipeline.DLPCeiling),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipeline.NewMetrics(a.registry)),
	)
	if err != nil {
		return nil, err
	}

	a.Handler = httptransport.NewRouter(logger, []httptransport.Registrar{
		httptransport.NewSessionHandler(sessions, logger),
		httptransport.NewRecordHandler(records, guard, logger),
		httptransport.NewDLPHandler(scanner, guard, logger),
	}, append(checks, httptransport.WithMetricsGatherer(a.registry))...)

	a.workers = []*worker.Periodic{
		worker.NewPeriodic("session-sweep", cfg.SweepInterval, sessions.Sweep, logger),
		worker.NewPeriodic("profile-sweep", cfg.SweepInterval, analyzer.Sweep, logger),
		worker.NewPeriodic("ratelimit-sweep", cfg.SweepInterval, limiter.Sweep, logger),
		worker.NewPeriodic("record-retention", cfg.SweepInterval, records.Sweep, logger),
	}
	return a, nil
}

// Run serves until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpserver.Run(ctx, httpserver.New(a.cfg.Addr, a.Handler), a.logger)
	})
	g.Go(func() error { return ignoreCancel(a.auditLog.Run(ctx)) })
	for _, w := range a.workers {
		g.Go(func() error { return ignoreCancel(w.Run(ctx)) })
	}
	if a.reloader != nil {
		g.Go(func() error { return ignoreCancel(a.reloader.Run(ctx)) })
	}
	return g.Wait()
}

// Close releases stores and key material in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openAuditStore(ctx context.Context) (audit.Store, httptransport.HealthCheck, error) {
	if a.cfg.Storage.AuditDatabaseURL == "" {
		a.logger.Warn("audit events are kept in memory; set SANCTUM_AUDIT_DATABASE_URL to persist them")
		return auditmemory.NewInMemoryStore(), nil, nil
	}
	db, err := sql.Open("postgres", a.cfg.Storage.AuditDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping audit database: %w", err)
	}
	store := auditpostgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return store, db.PingContext, nil
}

func (a *App) buildAlerter(ctx context.Context) (audit.Alerter, error) {
	var sinks alert.Fanout
	if a.cfg.Alerts.WebhookURL != "" {
		sinks = append(sinks, alert.NewWebhook(a.cfg.Alerts.WebhookURL))
	}
	if len(a.cfg.Alerts.KafkaBrokers) > 0 {
		client, err := alert.NewKafkaClient(ctx, a.cfg.Alerts.KafkaBrokers, a.cfg.Alerts.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		sinks = append(sinks, alert.NewKafka(client, a.cfg.Alerts.KafkaTopic))
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (a *App) loadPolicies(engine *policy.Engine) error {
	path := a.cfg.Policy.File
	if path == "" {
		return engine.Replace(policy.DefaultRules())
	}
	hash, err := engine.Load(path)
	if err != nil {
		return fmt.Errorf("load policy file: %w", err)
	}
	a.logger.Info("policy loaded", "path", path, "hash", hash)

	a.reloader, err = policy.NewReloader(engine, path, policy.WithReloadLogger(a.logger))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, a.reloader.Close)
	return nil
}

func (a *App) buildEngine() (*encryption.Engine, error) {
	opts := []encryption.Option{
		encryption.WithAlgorithm(encryption.Algorithm(a.cfg.Crypto.Cipher)),
		encryption.WithKeyVersion(a.cfg.Crypto.KeyVersion),
		encryption.WithAuditLogger(a.auditLog),
		encryption.WithLogger(a.logger),
		encryption.WithMetrics(encryption.NewMetrics(a.registry)),
	}
	for version, secret := range a.cfg.Crypto.PreviousSecrets {
		opts = append(opts, encryption.WithPreviousKey(version, []byte(secret)))
	}
	engine, err := encryption.New([]byte(a.cfg.Crypto.MasterSecret), opts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { engine.Close(); return nil })
	return engine, nil
}

func (a *App) openRecordStore(ctx context.Context) (vault.Store, httptransport.HealthCheck, error) {
	switch a.cfg.Storage.RecordStore {
	case config.RecordStorePostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Storage.RecordDatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open record database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("ping record database: %w", err)
		}
		store := vaultpostgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate record database: %w", err)
		}
		return store, pool.Ping, nil
	case config.RecordStoreBadger:
		db, err := vaultbadger.Open(a.cfg.Storage.BadgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return vaultbadger.New(db), nil, nil
	default:
		return vaultmemory.NewInMemoryStore(), nil, nil
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
