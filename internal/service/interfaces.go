package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_ingest/internal/domain"
)

type CategoryStore interface {
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	FindByAlias(ctx context.Context, alias string) (*domain.Category, error)
	FindOrCreate(ctx context.Context, c *domain.Category) (*domain.Category, error)
	Create(ctx context.Context, c *domain.Category) (*domain.Category, error)
	Seed(ctx context.Context, c *domain.Category) (bool, error)
	AddAlias(ctx context.Context, categoryID int64, alias string) (bool, error)
	MaxSortOrder(ctx context.Context) (int, error)
	ListWithCounts(ctx context.Context) ([]domain.CategoryCount, error)
}

type AuthorStore interface {
	FindOrCreateByName(ctx context.Context, name string) (*domain.Author, error)
}

type SourceStore interface {
	FindOrCreateByDomain(ctx context.Context, domainName string, provider domain.Provider) (*domain.Source, error)
	FindOrCreateByName(ctx context.Context, name string, provider domain.Provider) (*domain.Source, error)
}

type NewsStore interface {
	GetByUniqueID(ctx context.Context, uniqueID string) (*domain.News, error)
	Insert(ctx context.Context, n *domain.News) (bool, error)
	Update(ctx context.Context, n *domain.News) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithSavepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type CategoryResolver interface {
	Resolve(ctx context.Context, name *string) (*domain.Category, error)
	Default(ctx context.Context) (*domain.Category, error)
}

type EntityResolver interface {
	ResolveCategoryID(ctx context.Context, name *string) (int64, error)
	ResolveAuthorID(ctx context.Context, name *string) (*int64, error)
	ResolveSourceID(ctx context.Context, provider domain.Provider, name, domainName *string) (int64, error)
}
