package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

const sourceColumns = `id, name, slug, domain, provider, website_url, language, is_active, created_at, updated_at`

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) FindByDomain(ctx context.Context, domainName string, provider domain.Provider) (*domain.Source, error) {
	return s.findOne(ctx, `SELECT `+sourceColumns+` FROM news_sources WHERE domain = $1 AND provider = $2`, domainName, provider)
}

func (s *SourceStore) FindBySlug(ctx context.Context, slug string, provider domain.Provider) (*domain.Source, error) {
	return s.findOne(ctx, `SELECT `+sourceColumns+` FROM news_sources WHERE slug = $1 AND provider = $2`, slug, provider)
}

func (s *SourceStore) findOne(ctx context.Context, query string, args ...any) (*domain.Source, error) {
	var src domain.Source
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &src, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// insert ignores conflicts on either unique key; the caller re-reads.
func (s *SourceStore) insert(ctx context.Context, src *domain.Source) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO news_sources (name, slug, domain, provider, website_url, language)
		VALUES ($1, $2, $3, $4, $5, 'en')
		ON CONFLICT DO NOTHING`,
		src.Name, src.Slug, src.Domain, src.Provider, src.WebsiteURL,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// FindOrCreateByDomain keys on (domain, provider). A new row is named after
// the domain; when that name's slug is already taken for the provider the
// existing row is returned.
func (s *SourceStore) FindOrCreateByDomain(ctx context.Context, domainName string, provider domain.Provider) (*domain.Source, error) {
	name := normalize.SourceNameFromDomain(domainName)
	website := "https://" + domainName
	src := &domain.Source{
		Name:       name,
		Slug:       normalize.Slug(name),
		Domain:     domainName,
		Provider:   provider,
		WebsiteURL: &website,
	}

	if err := s.insert(ctx, src); err != nil {
		return nil, err
	}

	found, err := s.FindByDomain(ctx, domainName, provider)
	if errors.Is(err, domain.ErrNotFound) {
		found, err = s.FindBySlug(ctx, src.Slug, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("find source by domain %s: %w", domainName, err)
	}
	return found, nil
}

// FindOrCreateByName keys on (slug(name), provider), deriving the domain
// from the name for new rows.
func (s *SourceStore) FindOrCreateByName(ctx context.Context, name string, provider domain.Provider) (*domain.Source, error) {
	src := &domain.Source{
		Name:     name,
		Slug:     normalize.Slug(name),
		Domain:   normalize.DomainFromSourceName(name),
		Provider: provider,
	}

	if err := s.insert(ctx, src); err != nil {
		return nil, err
	}

	found, err := s.FindBySlug(ctx, src.Slug, provider)
	if errors.Is(err, domain.ErrNotFound) {
		found, err = s.FindByDomain(ctx, src.Domain, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("find source by name %s: %w", name, err)
	}
	return found, nil
}
