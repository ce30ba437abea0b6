// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/AccelByte/extend-casino-retention/internal/bootstrap"
	"github.com/AccelByte/extend-casino-retention/internal/config"
	"github.com/AccelByte/extend-casino-retention/internal/server"
	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/feedback"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/monitor"
	"github.com/AccelByte/extend-casino-retention/pkg/observer"
	"github.com/AccelByte/extend-casino-retention/pkg/oracle"
	"github.com/AccelByte/extend-casino-retention/pkg/pipeline"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/service"
	"github.com/AccelByte/extend-casino-retention/pkg/service/mock"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
	"github.com/AccelByte/extend-casino-retention/pkg/simulation"
	"github.com/AccelByte/extend-casino-retention/pkg/state"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const corpusKey = "retention:corpus"

// contactSeedOffset keeps the preference draws apart from the population draws.
const contactSeedOffset = 7919

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	store             *state.Store
	health            *state.HealthChecker
	stream            *observer.Stream
	scheduler         *simulation.Scheduler
	manager           *pipeline.Manager
	book              *intervention.Book
	arena             *actor.Arena
	shutdownTelemetry func(context.Context) error
}

// backends are the stores selected by STORE_BACKEND.
type backends struct {
	windows    signal.WindowStore
	compliance complianceStore
	corpus     similarity.Store
}

type complianceStore interface {
	intervention.ComplianceStore
	Enroll(ctx context.Context, st intervention.ComplianceState) error
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Redis (compliance state, bet windows, similarity corpus)
// 2. SQLite (players, flags, interventions, outcome statistics)
// 3. Pipeline config (YAML configuration)
// 4. Collaborators (stores, oracle, delivery, observer stream)
// 5. Population and warm-up corpus
// 6. Pipeline stages (signal → monitor → ... → analyzer)
// 7. Scheduler
// 8. Servers (gRPC health, metrics)
// 9. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}
	m := metrics.New()

	// ============================================================
	// Step 1: Initialize Redis
	// ============================================================
	if cfg.StoreBackend == "redis" {
		if err := app.initRedis(ctx); err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
	}

	// ============================================================
	// Step 2: Open the relational store
	// ============================================================
	store, err := state.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	app.store = store
	var healthClient redis.UniversalClient
	if app.redisClient != nil {
		healthClient = app.redisClient
	}
	app.health = state.NewHealthChecker(healthClient, store)

	// ============================================================
	// Step 3: Load pipeline configuration
	// ============================================================
	pipelineConfig, err := pipeline.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config from %s: %w", cfg.ConfigPath, err)
	}
	logrus.Infof("loaded pipeline configuration from %s", cfg.ConfigPath)
	pipelineConfig.Predictor.Timeout = cfg.SimilarityTimeout

	// ============================================================
	// Step 4: Initialize collaborators
	// ============================================================
	b := app.initBackends()
	oc := app.initOracle(m)
	deliverer := mock.NewDeliverer(cfg.DeliveryFailureRate, cfg.SimSeed)

	app.stream = observer.NewStream(cfg.ObserverBuffer)
	app.stream.OnDrop(m.ObserverDropped.Inc)

	// ============================================================
	// Step 5: Population and warm-up
	// ============================================================
	start, err := cfg.Start(time.Now())
	if err != nil {
		return nil, err
	}
	if err := app.initPopulation(ctx, pipelineConfig, b.compliance, start); err != nil {
		return nil, fmt.Errorf("failed to init population: %w", err)
	}
	app.initContactPreferences(deliverer)

	gen := simulation.NewGenerator(simulation.DefaultGeneratorConfig())
	if err := app.warmup(ctx, gen, b.corpus, start); err != nil {
		return nil, fmt.Errorf("failed to warm up corpus: %w", err)
	}

	stats := intervention.NewOutcomeStats()
	saved, err := store.LoadOutcomeStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcome stats: %w", err)
	}
	for key, tally := range saved {
		stats.Set(key, tally)
	}

	// ============================================================
	// Step 6: Bootstrap pipeline components
	// ============================================================
	// Signal Processor → Monitor → Predictor → Designer → Validator
	// → Action Executor → Analyzer → Pipeline Manager
	// ============================================================
	processor := bootstrap.InitSignalProcessor(b.windows, pipelineConfig.Predictor.Window)

	ruleEngine, ruleRegistry, err := bootstrap.InitRuleEngine(pipelineConfig,
		rule.NewRuleDependencies().WithOracle(oc).WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("failed to init rule engine: %w", err)
	}
	mon := monitor.New(ruleEngine, store, m)

	stages := bootstrap.InitStages(pipelineConfig, bootstrap.StageDeps{
		Oracle:     oc,
		Corpus:     b.corpus,
		Compliance: b.compliance,
		Stats:      stats,
		Metrics:    m,
	})

	actionExecutor, actionRegistry, err := bootstrap.InitActionExecutor(pipelineConfig,
		service.NewDependencies().WithDeliverer(deliverer), m)
	if err != nil {
		return nil, fmt.Errorf("failed to init action executor: %w", err)
	}

	app.book = intervention.NewBook()
	delays := simulation.NewDelayQueue()
	analyzer := feedback.New(pipelineConfig.Analyzer, feedback.Dependencies{
		Arena:     app.arena,
		Book:      app.book,
		Corpus:    b.corpus,
		Stats:     stats,
		Store:     store,
		Publisher: app.stream,
		Metrics:   m,
	})

	app.manager, err = bootstrap.InitPipeline(pipeline.Components{
		Processor: processor,
		Monitor:   mon,
		Predictor: stages.Predictor,
		Designer:  stages.Designer,
		Validator: stages.Validator,
		Executor:  actionExecutor,
		Analyzer:  analyzer,
		Delays:    delays,
		Book:      app.book,
		Store:     store,
		Publisher: app.stream,
		Metrics:   m,
	}, pipelineConfig)
	if err != nil {
		return nil, err
	}

	if err := pipeline.ValidateWiring(ruleRegistry, actionRegistry, pipelineConfig); err != nil {
		return nil, fmt.Errorf("pipeline wiring validation failed: %w", err)
	}
	logrus.Info("pipeline wiring validation passed")

	// ============================================================
	// Step 7: Scheduler
	// ============================================================
	app.scheduler = simulation.NewScheduler(simulation.Config{
		Tick:       cfg.SimTick,
		Interval:   cfg.SimTickInterval,
		Duration:   cfg.SimDuration,
		Workers:    cfg.SimWorkers,
		StatsEvery: 60,
	}, common.NewManualClock(start), app.arena, gen, delays, app.manager, app.stream, m)

	// ============================================================
	// Step 8: Setup servers
	// ============================================================
	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics", m)
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	// ============================================================
	// Step 9: Setup telemetry
	// ============================================================
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, server.TelemetryOptions{
			ServiceName:    cfg.ServiceName,
			Environment:    cfg.Environment,
			ZipkinEndpoint: cfg.ZipkinEndpoint,
			Seed:           cfg.SimSeed,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initRedis initializes the Redis client, retrying the first ping with backoff.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(a.cfg.RedisRetryDelayMs) * time.Millisecond
	maxRetries := backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		maxRetries,
	)

	if err != nil {
		_ = client.Close()
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

func (a *App) initBackends() backends {
	if a.redisClient == nil {
		logrus.WithField("backend", "memory").Info("using in-process stores")
		return backends{
			windows:    signal.NewMemoryWindowStore(),
			compliance: service.NewMemoryComplianceStore(),
			corpus:     similarity.NewMemoryStore(),
		}
	}
	logrus.WithField("backend", "redis").Info("using Redis stores")
	return backends{
		windows:    service.NewRedisWindowStore(a.redisClient),
		compliance: service.NewRedisComplianceStore(a.redisClient, service.RedisComplianceStoreConfig{}),
		corpus:     similarity.NewRedisStore(a.redisClient, corpusKey),
	}
}

func (a *App) initOracle(m *metrics.Metrics) oracle.Client {
	var c oracle.Client
	if a.cfg.OracleURL == "" {
		logrus.Info("no ORACLE_URL configured, using rule-based oracle")
		c = oracle.NewRuleBasedClient()
	} else {
		logrus.WithField("url", a.cfg.OracleURL).Info("using HTTP oracle")
		c = oracle.NewHTTPClient(a.cfg.OracleURL, a.cfg.OracleRPS)
	}
	return oracle.WithTimeout(c, a.cfg.OracleTimeout, m)
}

// initPopulation draws the actors, records them and enrolls their compliance state.
func (a *App) initPopulation(ctx context.Context, pipelineConfig *pipeline.Config, compliance complianceStore, start time.Time) error {
	arena, excluded := actor.Populate(actor.PopulationConfig{
		Size:          a.cfg.SimActors,
		Seed:          a.cfg.SimSeed,
		Jurisdictions: pipelineConfig.JurisdictionNames(),
		ExcludedShare: a.cfg.SimExcludedShare,
	}, start)
	a.arena = arena

	if err := a.store.RecordPlayers(ctx, arena.All(), start); err != nil {
		return err
	}

	isExcluded := make(map[int]bool, len(excluded))
	for _, id := range excluded {
		isExcluded[id] = true
	}
	for _, act := range arena.All() {
		if err := compliance.Enroll(ctx, intervention.ComplianceState{
			ActorID:      act.ID,
			Jurisdiction: act.Jurisdiction,
			Excluded:     isExcluded[act.ID],
		}); err != nil {
			return fmt.Errorf("enroll actor %d: %w", act.ID, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"actors":   arena.Len(),
		"excluded": len(excluded),
	}).Info("population drawn")
	return nil
}

// initContactPreferences draws every player's contact preferences from the
// run seed and hands them to the delivery channel.
func (a *App) initContactPreferences(deliverer *mock.Deliverer) {
	r := rand.New(rand.NewSource(a.cfg.SimSeed + contactSeedOffset))
	unreachable := 0
	for _, act := range a.arena.All() {
		p := service.GeneratePreferences(act.ID, r, a.cfg.SimOptOutShare)
		if !p.Reachable() {
			unreachable++
		}
		deliverer.SetPreferences(p)
	}
	logrus.WithField("unreachable", unreachable).Info("contact preferences drawn")
}

// warmup seeds an empty corpus. A corpus kept in Redis from an earlier run is reused.
func (a *App) warmup(ctx context.Context, gen *simulation.Generator, corpus similarity.Store, start time.Time) error {
	if a.cfg.WarmupActors == 0 {
		return nil
	}
	n, err := corpus.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logrus.WithField("records", n).Info("similarity corpus already populated, skipping warm-up")
		return nil
	}

	cfg := simulation.DefaultWarmupConfig()
	cfg.Actors = a.cfg.WarmupActors
	cfg.Seed = a.cfg.SimSeed
	cfg.Horizon = a.cfg.WarmupHorizon
	// warm-up players live before the run starts
	cfg.Start = start.Add(-cfg.Horizon)
	cfg.Workers = a.cfg.SimWorkers
	_, err = simulation.Warmup(ctx, cfg, gen, corpus)
	return err
}
