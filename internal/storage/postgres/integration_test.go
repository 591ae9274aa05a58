//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"news_ingest/internal/cache"
	"news_ingest/internal/database"
	"news_ingest/internal/domain"
	"news_ingest/internal/job"
	"news_ingest/internal/normalize"
	"news_ingest/internal/service"
	"news_ingest/internal/source/newsapi"
	"news_ingest/internal/storage/kv"
	"news_ingest/internal/syncstatus"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	logger    *slog.Logger
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(database.RunMigrations(connStr))
	s.Require().NoError(database.RunMigrations(connStr))

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, "TRUNCATE news, news_authors, news_sources, news_categories RESTART IDENTITY CASCADE")
	s.Require().NoError(err)
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

type pipeline struct {
	categories  *service.CategoryService
	entities    *service.EntityService
	persistence *service.PersistenceService
	status      *syncstatus.Store
}

func (s *PostgresIntegrationSuite) newPipeline() pipeline {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	store := kv.NewRedisStore(client)
	c := cache.New(store, "")

	categories := service.NewCategoryService(NewCategoryStore(s.db), c, time.Hour, s.logger)
	entities := service.NewEntityService(categories, NewAuthorStore(s.db), NewSourceStore(s.db), c, time.Hour, s.logger)

	return pipeline{
		categories:  categories,
		entities:    entities,
		persistence: service.NewPersistenceService(entities, NewNewsStore(s.db), NewTransactionManager(s.db), s.logger),
		status:      syncstatus.NewStore(store, time.Hour),
	}
}

func (s *PostgresIntegrationSuite) countNews() int {
	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM news"))
	return count
}

func (s *PostgresIntegrationSuite) TestEndToEnd_PageToSyncStatus() {
	p := s.newPipeline()

	items := newsapi.TransformBatch([]newsapi.Article{
		{Title: "A", URL: "http://x/1"},
		{Title: "B"},
	}, nil)
	s.Require().Len(items, 1)

	runner := job.NewRunner(p.persistence, p.status, nil, job.Config{MaxAttempts: 3, Backoff: time.Millisecond, Timeout: 30 * time.Second}, s.logger)
	j := job.Job{SessionID: "session-e2e", Provider: domain.ProviderNewsAPI, BatchNumber: 1, Items: items}

	out := runner.Run(s.ctx, j)
	s.Require().Equal(domain.SyncCompleted, out.State)
	s.Equal(domain.BatchStats{Created: 1}, out.Stats)

	count, err := NewNewsStore(s.db).CountByUniqueID(s.ctx, normalize.UniqueID("newsapi", "http://x/1"))
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Equal(1, s.countNews())

	status, err := p.status.Get(s.ctx, j.Key())
	s.Require().NoError(err)
	s.Equal(domain.SyncCompleted, status.Status)
	s.Require().NotNil(status.Data.Created)
	s.Equal(1, *status.Data.Created)

	news, err := NewNewsStore(s.db).GetByUniqueID(s.ctx, items[0].UniqueID)
	s.Require().NoError(err)
	general, err := NewCategoryStore(s.db).FindBySlug(s.ctx, "general")
	s.Require().NoError(err)
	s.Equal(general.ID, news.CategoryID)
	s.Nil(news.AuthorID)
}

func (s *PostgresIntegrationSuite) TestPersistence_IdempotentAndChangeDetection() {
	p := s.newPipeline()
	desc := "Original description"
	item := domain.NewsItem{
		UniqueID:     "guardian_abc",
		Title:        "Original",
		Description:  &desc,
		CategoryName: strPtr("World news"),
		AuthorName:   strPtr("Jane Doe"),
		SourceName:   strPtr("The Guardian"),
		SourceDomain: strPtr("theguardian.com"),
		Provider:     domain.ProviderGuardian,
		SourceURL:    "https://www.theguardian.com/abc",
	}

	stats, err := p.persistence.SaveBatch(s.ctx, []domain.NewsItem{item})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Created: 1}, stats)

	stats, err = p.persistence.SaveBatch(s.ctx, []domain.NewsItem{item})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Skipped: 1}, stats)
	s.Equal(1, s.countNews())

	item.Title = "Changed"
	stats, err = p.persistence.SaveBatch(s.ctx, []domain.NewsItem{item})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Updated: 1}, stats)

	news, err := NewNewsStore(s.db).GetByUniqueID(s.ctx, item.UniqueID)
	s.Require().NoError(err)
	s.Equal("Changed", news.Title)
	s.Require().NotNil(news.Description)
	s.Equal(desc, *news.Description)
	s.Equal(1, s.countNews())
}

func (s *PostgresIntegrationSuite) TestPersistence_FailedItemKeepsSiblings() {
	p := s.newPipeline()
	items := []domain.NewsItem{
		{UniqueID: "nytimes_1", Title: "First", Provider: domain.ProviderNYTimes, SourceURL: "https://nytimes.com/1"},
		{UniqueID: "nytimes_2", Title: "Second", Provider: domain.ProviderNYTimes, SourceURL: ""},
		{UniqueID: "nytimes_3", Title: "Third", Provider: domain.ProviderNYTimes, SourceURL: "https://nytimes.com/3"},
	}
	_, err := s.db.ExecContext(s.ctx, "ALTER TABLE news ADD CONSTRAINT news_source_url_not_blank CHECK (source_url <> '')")
	s.Require().NoError(err)
	defer func() {
		_, _ = s.db.ExecContext(s.ctx, "ALTER TABLE news DROP CONSTRAINT news_source_url_not_blank")
	}()

	stats, err := p.persistence.SaveBatch(s.ctx, items)
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Created: 2, Errors: 1}, stats)
	s.Equal(2, s.countNews())
}

func (s *PostgresIntegrationSuite) TestAuthorStore_SlugCollision() {
	store := NewAuthorStore(s.db)

	first, err := store.Create(s.ctx, "John Doe")
	s.Require().NoError(err)
	second, err := store.Create(s.ctx, "John Doe")
	s.Require().NoError(err)

	s.Equal("john-doe", first.Slug)
	s.Equal("john-doe-1", second.Slug)
	s.NotEqual(first.ID, second.ID)
}

func (s *PostgresIntegrationSuite) TestEntities_AuthorLengthThreshold() {
	p := s.newPipeline()

	id, err := p.entities.ResolveAuthorID(s.ctx, strPtr("Al"))
	s.Require().NoError(err)
	s.NotNil(id)

	id, err = p.entities.ResolveAuthorID(s.ctx, strPtr(" A "))
	s.Require().NoError(err)
	s.Nil(id)

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM news_authors"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestCategories_FallbackAndAliases() {
	p := s.newPipeline()

	general, err := p.entities.ResolveCategoryID(s.ctx, nil)
	s.Require().NoError(err)
	unknown, err := p.entities.ResolveCategoryID(s.ctx, strPtr("Quantum Gardening"))
	s.Require().NoError(err)
	s.Equal(general, unknown)

	created, updated, err := p.categories.Seed(s.ctx)
	s.Require().NoError(err)
	s.Positive(created)
	s.Equal(1, updated)

	tech, err := p.categories.Find(s.ctx, "Technology")
	s.Require().NoError(err)
	_, err = p.categories.AddAlias(s.ctx, tech, "Gadgets")
	s.Require().NoError(err)

	for _, label := range []string{"gadgets", "GADGETS", " Gadgets "} {
		c, err := p.categories.Resolve(s.ctx, strPtr(label))
		s.Require().NoError(err)
		s.Equal(tech.ID, c.ID, label)
	}

	created, updated, err = p.categories.Seed(s.ctx)
	s.Require().NoError(err)
	s.Zero(created)
	s.Positive(updated)
}

func (s *PostgresIntegrationSuite) TestSources_ConcurrentFindOrCreate() {
	store := NewSourceStore(s.db)

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := store.FindOrCreateByDomain(s.ctx, "bbc.co.uk", domain.ProviderNewsAPI)
			if err == nil {
				ids[i] = src.ID
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	s.NoError(errors.Join(errs...))
	for _, id := range ids {
		s.Equal(ids[0], id)
	}

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM news_sources"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	categories := NewCategoryStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := categories.Create(ctx, &domain.Category{Name: "Rolled Back", Slug: "rolled-back", Color: "#000000", IsActive: true, Aliases: []string{}}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.ErrorIs(err, context.Canceled)

	_, err = categories.FindBySlug(s.ctx, "rolled-back")
	s.ErrorIs(err, domain.ErrNotFound)
}

func strPtr(v string) *string {
	return &v
}
