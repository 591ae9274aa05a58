package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"news_ingest/internal/cache"
	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

const (
	DefaultCacheTTL = time.Hour

	defaultCategoryKey = "category:default"
)

// DefaultCategory is returned for every label that matches nothing.
func DefaultCategory() *domain.Category {
	description := "General news articles"
	return &domain.Category{
		Name:        "General",
		Slug:        "general",
		Description: &description,
		Color:       "#6B7280",
		IsActive:    true,
		SortOrder:   999,
		Aliases:     []string{"general", "misc", "other", "news"},
	}
}

func categoryKey(label string) string {
	return "category:" + domain.NormalizeAlias(label)
}

type CategoryService struct {
	categories CategoryStore
	cache      Cache
	ttl        time.Duration
	logger     *slog.Logger
}

func NewCategoryService(categories CategoryStore, c Cache, ttl time.Duration, logger *slog.Logger) *CategoryService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CategoryService{
		categories: categories,
		cache:      c,
		ttl:        ttl,
		logger:     logger.With("component", "categories"),
	}
}

// Resolve maps a free-text label to a category and never returns nil
// without an error: blank or unknown labels yield the default category.
func (s *CategoryService) Resolve(ctx context.Context, name *string) (*domain.Category, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return s.Default(ctx)
	}
	label := *name

	return cache.Remember(ctx, s.cache, categoryKey(label), s.ttl, func(ctx context.Context) (*domain.Category, error) {
		category, err := s.lookup(ctx, label)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("category not found, using default", "search_term", label)
			return s.Default(ctx)
		}
		if err != nil {
			return nil, err
		}
		s.logger.Debug("found category", "search_term", label, "category", category.Name)
		return category, nil
	})
}

// Find is Resolve without the default fallback.
func (s *CategoryService) Find(ctx context.Context, term string) (*domain.Category, error) {
	if strings.TrimSpace(term) == "" {
		return nil, domain.ErrNotFound
	}
	return s.lookup(ctx, term)
}

// lookup tries the exact name, then the slug, then the alias set.
func (s *CategoryService) lookup(ctx context.Context, label string) (*domain.Category, error) {
	trimmed := strings.TrimSpace(label)

	category, err := s.categories.FindByName(ctx, trimmed)
	if !errors.Is(err, domain.ErrNotFound) {
		return category, wrapLookup("name", err)
	}

	if slug := normalize.Slug(trimmed); slug != "" {
		category, err = s.categories.FindBySlug(ctx, slug)
		if !errors.Is(err, domain.ErrNotFound) {
			return category, wrapLookup("slug", err)
		}
	}

	category, err = s.categories.FindByAlias(ctx, domain.NormalizeAlias(trimmed))
	if !errors.Is(err, domain.ErrNotFound) {
		return category, wrapLookup("alias", err)
	}

	return nil, domain.ErrNotFound
}

func wrapLookup(by string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("find category by %s: %w", by, err)
}

// Default returns the "General" category, creating it on first use.
func (s *CategoryService) Default(ctx context.Context) (*domain.Category, error) {
	return cache.Remember(ctx, s.cache, defaultCategoryKey, s.ttl, func(ctx context.Context) (*domain.Category, error) {
		category, err := s.categories.FindOrCreate(ctx, DefaultCategory())
		if err != nil {
			return nil, fmt.Errorf("default category: %w", err)
		}
		return category, nil
	})
}

// AddAlias adds the normalized alias to category unless already present
// and reports whether it was added.
func (s *CategoryService) AddAlias(ctx context.Context, category *domain.Category, alias string) (bool, error) {
	normalized := domain.NormalizeAlias(alias)
	if normalized == "" {
		return false, fmt.Errorf("alias must not be empty")
	}
	if category.HasAlias(normalized) {
		return false, nil
	}

	added, err := s.categories.AddAlias(ctx, category.ID, normalized)
	if err != nil {
		return false, err
	}
	if added {
		category.Aliases = append(category.Aliases, normalized)
	}

	s.invalidate(ctx, category, normalized)
	return added, nil
}

func (s *CategoryService) invalidate(ctx context.Context, category *domain.Category, extra ...string) {
	keys := []string{categoryKey(category.Name), categoryKey(category.Slug)}
	for _, a := range category.Aliases {
		keys = append(keys, categoryKey(a))
	}
	for _, e := range extra {
		keys = append(keys, categoryKey(e))
	}
	if category.Slug == DefaultCategory().Slug {
		keys = append(keys, defaultCategoryKey)
	}

	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate category cache", "category", category.Name, "error", err)
	}
}
