package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"news_ingest/internal/cache"
	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

// minAuthorNameLength is measured in runes after trimming.
const minAuthorNameLength = 2

// DefaultSourceName names the synthetic source used when an item carries
// neither a source name nor a domain.
func DefaultSourceName(provider domain.Provider) string {
	switch provider {
	case domain.ProviderNewsAPI:
		return "NewsAPI"
	case domain.ProviderGuardian:
		return "The Guardian"
	case domain.ProviderNYTimes:
		return "The New York Times"
	default:
		return normalize.Capitalize(string(provider))
	}
}

type EntityService struct {
	categories CategoryResolver
	authors    AuthorStore
	sources    SourceStore
	cache      Cache
	ttl        time.Duration
	logger     *slog.Logger
}

func NewEntityService(
	categories CategoryResolver,
	authors AuthorStore,
	sources SourceStore,
	c Cache,
	ttl time.Duration,
	logger *slog.Logger,
) *EntityService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &EntityService{
		categories: categories,
		authors:    authors,
		sources:    sources,
		cache:      c,
		ttl:        ttl,
		logger:     logger.With("component", "entities"),
	}
}

// ResolveCategoryID always yields an id unless the store fails.
func (s *EntityService) ResolveCategoryID(ctx context.Context, name *string) (int64, error) {
	category, err := s.categories.Resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	return category.ID, nil
}

// ResolveAuthorID returns nil for names shorter than two characters.
func (s *EntityService) ResolveAuthorID(ctx context.Context, name *string) (*int64, error) {
	if name == nil || utf8.RuneCountInString(strings.TrimSpace(*name)) < minAuthorNameLength {
		return nil, nil
	}

	cleaned := normalize.CleanAuthorName(*name)
	if utf8.RuneCountInString(cleaned) < minAuthorNameLength {
		return nil, nil
	}

	id, err := cache.Remember(ctx, s.cache, "author:"+domain.NormalizeAlias(*name), s.ttl, func(ctx context.Context) (int64, error) {
		author, err := s.authors.FindOrCreateByName(ctx, cleaned)
		if err != nil {
			return 0, fmt.Errorf("resolve author %q: %w", cleaned, err)
		}
		return author.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ResolveSourceID prefers the domain over the name and falls back to the
// provider's default source when both are blank.
func (s *EntityService) ResolveSourceID(ctx context.Context, provider domain.Provider, name, domainName *string) (int64, error) {
	sourceName := trimmed(name)
	sourceDomain := strings.ToLower(trimmed(domainName))

	if sourceName == "" && sourceDomain == "" {
		return s.defaultSourceID(ctx, provider)
	}

	keyPart := sourceDomain
	if keyPart == "" {
		keyPart = strings.ToLower(sourceName)
	}
	key := fmt.Sprintf("source:%s:%s", provider, keyPart)

	return cache.Remember(ctx, s.cache, key, s.ttl, func(ctx context.Context) (int64, error) {
		var (
			src *domain.Source
			err error
		)
		if sourceDomain != "" {
			src, err = s.sources.FindOrCreateByDomain(ctx, sourceDomain, provider)
		} else {
			src, err = s.sources.FindOrCreateByName(ctx, sourceName, provider)
		}
		if err != nil {
			return 0, fmt.Errorf("resolve source %s: %w", keyPart, err)
		}
		return src.ID, nil
	})
}

func (s *EntityService) defaultSourceID(ctx context.Context, provider domain.Provider) (int64, error) {
	return cache.Remember(ctx, s.cache, "source:default:"+string(provider), s.ttl, func(ctx context.Context) (int64, error) {
		src, err := s.sources.FindOrCreateByName(ctx, DefaultSourceName(provider), provider)
		if err != nil {
			return 0, fmt.Errorf("resolve default source for %s: %w", provider, err)
		}
		return src.ID, nil
	})
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
