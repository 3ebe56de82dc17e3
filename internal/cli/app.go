package cli

import (
	"context"
	"fmt"

	"niena/internal/ai"
	"niena/internal/cache"
	"niena/internal/config"
	"niena/internal/errors"
	"niena/internal/jobsearch"
	"niena/internal/observability"
	"niena/internal/pipeline"
	"niena/internal/repository"
	"niena/internal/scheduler"
	"niena/internal/server"
	"niena/internal/service"

	"github.com/redis/go-redis/v9"
)

// app holds the long-lived components shared by serve, worker and ingest
type app struct {
	cfg    *config.Config
	logger *errors.Logger

	store   *repository.Store
	redis   *redis.Client
	jobs    *cache.JobCache
	ai      *ai.Service
	om      *observability.ObservabilityManager
	metrics *observability.Metrics
	runner  *pipeline.Runner

	accounts *service.Accounts
	billing  *service.BillingService
}

// newApp connects to Postgres, Redis (when enabled) and the AI providers and
// starts the observability stack. Close releases everything newApp opened.
func newApp(ctx context.Context, cfg *config.Config, logger *errors.Logger) (_ *app, err error) {
	if err := cfg.RequireAIKey(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	om, err := observability.NewObservabilityManager(observability.FromConfig(cfg, Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	a.om = om
	a.metrics = om.Metrics()

	pool, err := repository.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.store = repository.NewStore(pool)
	logger.Info("Connected to Postgres", "max_conns", pool.Config().MaxConns)

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, pool, logger); err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.jobs = cache.NewJobCache(client, cfg.Redis.MatchTTL, cfg.Redis.SearchTTL)
		logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	} else {
		logger.Warn("Redis disabled, job caching and distributed locks are off")
	}

	aiService, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	aiService.SetObserver(a.metrics)
	a.ai = aiService

	a.accounts = service.NewAccounts(a.store.Users, cfg.Credits.InitialFree, logger)
	a.accounts.SetRecorder(a.metrics)
	a.billing = service.NewBillingService(a.accounts, a.store.Users, a.store.Transactions, cfg, logger)

	return a, nil
}

// jobCache returns the cache as the service interface, nil when Redis is off
func (a *app) jobCache() service.JobCache {
	if a.jobs == nil {
		return nil
	}
	return a.jobs
}

// startRunner creates and starts the background workflow pool
func (a *app) startRunner() *pipeline.Runner {
	a.runner = pipeline.NewRunner(a.cfg.Pipeline, a.logger)
	a.runner.Start()
	return a.runner
}

// services assembles the HTTP-facing services on top of a started runner
func (a *app) services() server.Services {
	cfg, logger, store := a.cfg, a.logger, a.store

	resumeFlow := pipeline.NewResumeWorkflow(a.ai, a.ai, store.Resumes, store.Users, logger)
	resumeFlow.SetRecorder(a.metrics)
	tailorFlow := pipeline.NewTailorWorkflow(a.ai, store.Resumes, store.Tailored, store.Users, logger)
	tailorFlow.SetRecorder(a.metrics)
	if a.jobs != nil {
		resumeFlow.SetCache(a.jobs)
	}

	svcs := server.Services{
		Resumes:    service.NewResumeService(a.accounts, store.Resumes, a.jobCache(), a.runner, resumeFlow, cfg.Credits, logger),
		Tailor:     service.NewTailorService(a.accounts, store.Resumes, store.Tailored, store.Jobs, a.runner, tailorFlow, cfg.Credits, logger),
		Jobs:       service.NewMatchService(store.Resumes, store.Jobs, a.jobCache(), logger),
		Interviews: service.NewInterviewService(a.accounts, store.Interviews, store.Resumes, a.ai, cfg.Credits, logger),
		Billing:    a.billing,
		Community:  service.NewCommunityService(a.accounts, store.Announcements, store.Recruiters, logger),
		Database:   store,
		Models:     a.ai,
		Stats: map[string]func() map[string]any{
			"database": store.Stats,
			"pipeline": a.runner.Stats,
		},
	}
	if a.redis != nil {
		svcs.Cache = redisPinger{a.redis}
	}
	return svcs
}

// ingestor builds the job ingestion pipeline
func (a *app) ingestor() *pipeline.Ingestor {
	ing := pipeline.NewIngestor(jobsearch.NewClient(a.cfg.JobSearch), a.ai, a.ai, a.store.Jobs,
		a.cfg.Pipeline.IngestConcurrency, a.logger)
	ing.SetRecorder(a.metrics)
	if a.jobs != nil {
		ing.SetCache(a.jobs)
	}
	return ing
}

// scheduler registers the periodic jobs. With Redis the runs are guarded by a
// distributed lock, otherwise by an in-process one.
func (a *app) scheduler() (*scheduler.Scheduler, error) {
	var locker scheduler.Locker
	if a.redis != nil {
		locker = cache.NewLocker(a.redis)
	}

	sc := a.cfg.Scheduler
	s := scheduler.New(sc, locker, a.logger)

	ingest := scheduler.NewIngestJob(a.ingestor(), a.cfg.JobSearch.Queries, a.cfg.JobSearch.Pages, a.logger)
	if err := s.Add(sc.IngestSpec, ingest, sc.IngestTimeout); err != nil {
		return nil, err
	}
	expiry := scheduler.NewPlanExpiryJob(a.billing, sc.ExpiryBatchSize, a.logger)
	if err := s.Add(sc.PlanExpirySpec, expiry, 0); err != nil {
		return nil, err
	}
	if sc.StaleAfter > 0 && sc.StaleSweepSpec != "" {
		sweeper := pipeline.NewStaleSweeper(a.store.Resumes, a.store.Tailored, sc.StaleAfter, sc.ExpiryBatchSize, a.logger)
		if err := s.Add(sc.StaleSweepSpec, scheduler.NewStaleSweepJob(sweeper, a.logger), 0); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// stopScheduler waits for running jobs up to the shutdown timeout
func (a *app) stopScheduler(ctx context.Context, s *scheduler.Scheduler) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Pipeline.ShutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Close drains the runner and releases connections, logging failures
func (a *app) Close(ctx context.Context) {
	if a.runner != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Pipeline.ShutdownTimeout)
		if err := a.runner.Shutdown(shutdownCtx); err != nil {
			a.logger.LogError(err, "Workflow runner did not drain")
		}
		cancel()
	}
	if a.ai != nil {
		if err := a.ai.Close(); err != nil {
			a.logger.LogError(err, "Failed to close AI providers")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.LogError(err, "Failed to close Redis client")
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.om != nil {
		if err := a.om.Shutdown(ctx); err != nil {
			a.logger.LogError(err, "Failed to shut down observability")
		}
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return errors.NewStorageError(errors.ErrCodeCache, "ping redis", err)
	}
	return nil
}
