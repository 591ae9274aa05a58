package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"news_ingest/internal/cache"
	"news_ingest/internal/config"
	"news_ingest/internal/domain"
	"news_ingest/internal/job"
	"news_ingest/internal/metrics"
	"news_ingest/internal/orchestrator"
	"news_ingest/internal/queue"
	"news_ingest/internal/service"
	"news_ingest/internal/source"
	"news_ingest/internal/source/guardian"
	"news_ingest/internal/source/newsapi"
	"news_ingest/internal/source/nytimes"
	"news_ingest/internal/storage/kv"
	"news_ingest/internal/storage/postgres"
	"news_ingest/internal/syncstatus"
)

// app opens shared resources on first use and closes them after the
// command finished.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger

	db       *sqlx.DB
	kv       kv.Store
	broker   *queue.RabbitMQ
	registry *prometheus.Registry
	metrics  *metrics.Collector

	closers []func() error
}

func (a *app) load() error {
	a.logger = setupLogger("info")

	cfg, err := config.Load(a.configPath)
	if err != nil {
		a.logger.Error("failed to load config", "error", err)
		return err
	}
	a.cfg = cfg
	a.logger = setupLogger(cfg.LogLevel)
	return nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) database(ctx context.Context) (*sqlx.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", a.cfg.Database.DSN())
	if err != nil {
		a.logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.logger.Info("connected to database")

	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

func (a *app) store(ctx context.Context) (kv.Store, error) {
	if a.kv != nil {
		return a.kv, nil
	}

	opts := kv.Options{BoltPath: a.cfg.Storage.BoltPath}
	if a.cfg.Storage.Backend == "" || a.cfg.Storage.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Address,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		opts.Redis = client
	}

	store, err := kv.NewStore(a.cfg.Storage.Backend, opts)
	if err != nil {
		if opts.Redis != nil {
			_ = opts.Redis.Close()
		}
		return nil, err
	}

	a.kv = store
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) queue() (*queue.RabbitMQ, error) {
	if a.broker != nil {
		return a.broker, nil
	}

	broker, err := queue.NewRabbitMQ(queue.Config{
		URL:         a.cfg.RabbitMQ.URL,
		Exchange:    a.cfg.RabbitMQ.Exchange,
		QueuePrefix: a.cfg.RabbitMQ.QueuePrefix,
	}, domain.Providers(), a.logger)
	if err != nil {
		a.logger.Error("failed to connect to rabbitmq", "error", err)
		return nil, err
	}

	a.broker = broker
	a.closers = append(a.closers, broker.Close)
	return broker, nil
}

func (a *app) collector() (*metrics.Collector, *prometheus.Registry) {
	if a.metrics == nil {
		a.registry = prometheus.NewRegistry()
		a.metrics = metrics.NewCollector(a.registry)
	}
	return a.metrics, a.registry
}

func (a *app) statusStore(ctx context.Context) (*syncstatus.Store, error) {
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	return syncstatus.NewStore(store, a.cfg.Status.TTL), nil
}

func (a *app) categoryService(ctx context.Context) (*service.CategoryService, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}

	return service.NewCategoryService(
		postgres.NewCategoryStore(db),
		cache.New(store, ""),
		a.cfg.Cache.TTL,
		a.logger,
	), nil
}

// runner wires persistence into a job runner.
func (a *app) runner(ctx context.Context) (*job.Runner, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}

	c := cache.New(store, "")
	categories := service.NewCategoryService(postgres.NewCategoryStore(db), c, a.cfg.Cache.TTL, a.logger)
	entities := service.NewEntityService(
		categories,
		postgres.NewAuthorStore(db),
		postgres.NewSourceStore(db),
		c,
		a.cfg.Cache.TTL,
		a.logger,
	)
	persistence := service.NewPersistenceService(
		entities,
		postgres.NewNewsStore(db),
		postgres.NewTransactionManager(db),
		a.logger,
	)

	collector, _ := a.collector()
	jobCfg := a.cfg.Sync.Job

	return job.NewRunner(
		persistence,
		syncstatus.NewStore(store, a.cfg.Status.TTL),
		collector,
		job.Config{MaxAttempts: jobCfg.MaxAttempts, Backoff: jobCfg.Backoff, Timeout: jobCfg.Timeout},
		a.logger,
	), nil
}

func (a *app) providers(ctx context.Context) *source.Registry {
	p := a.cfg.Providers

	var sourcesCache cache.ReadWriter
	if store, err := a.store(ctx); err == nil {
		sourcesCache = cache.New(store, "")
	} else {
		a.logger.Warn("sources catalogue cache unavailable", "error", err)
	}

	return source.NewRegistry(
		newsapi.New(newsapi.Config{
			BaseURL:     p.NewsAPI.BaseURL,
			APIKey:      p.NewsAPI.APIKey,
			Domains:     p.NewsAPI.Domains,
			SourcesTTL:  p.NewsAPI.SourcesTTL,
			Timeout:     p.NewsAPI.Timeout,
			MaxAttempts: p.NewsAPI.Retry.MaxAttempts,
			RetryWait:   p.NewsAPI.Retry.Wait,
		}, sourcesCache, a.logger),
		guardian.New(guardian.Config{
			BaseURL:     p.Guardian.BaseURL,
			APIKey:      p.Guardian.APIKey,
			Timeout:     p.Guardian.Timeout,
			MaxAttempts: p.Guardian.Retry.MaxAttempts,
			RetryWait:   p.Guardian.Retry.Wait,
		}, a.logger),
		nytimes.New(nytimes.Config{
			BaseURL:     p.NYTimes.BaseURL,
			APIKey:      p.NYTimes.APIKey,
			Timeout:     p.NYTimes.Timeout,
			MaxAttempts: p.NYTimes.Retry.MaxAttempts,
			RetryWait:   p.NYTimes.Retry.Wait,
		}, a.logger),
	)
}

// orchestrator builds an orchestrator for the given mode. Dry runs touch
// neither the queue nor the database.
func (a *app) orchestrator(ctx context.Context, p orchestrator.Params) (*orchestrator.Orchestrator, error) {
	collector, _ := a.collector()
	cfg := orchestrator.Config{
		Registry:       a.providers(ctx),
		Metrics:        collector,
		InterPageDelay: a.cfg.Sync.InterPageDelay,
		Logger:         a.logger,
	}

	switch {
	case p.DryRun:
	case p.Immediate:
		runner, err := a.runner(ctx)
		if err != nil {
			return nil, err
		}
		cfg.Runner = runner
	default:
		broker, err := a.queue()
		if err != nil {
			return nil, err
		}
		status, err := a.statusStore(ctx)
		if err != nil {
			return nil, err
		}
		cfg.Dispatcher = broker
		cfg.Status = status
	}

	return orchestrator.New(cfg), nil
}
