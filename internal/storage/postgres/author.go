package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

const authorColumns = `id, name, slug, email, bio, is_verified, created_at, updated_at`

// maxSlugSuffix bounds the collision loop of author slugs.
const maxSlugSuffix = 1000

var ErrSlugExhausted = errors.New("no free slug")

type AuthorStore struct {
	db *sqlx.DB
}

func NewAuthorStore(db *sqlx.DB) *AuthorStore {
	return &AuthorStore{db: db}
}

func (s *AuthorStore) FindBySlug(ctx context.Context, slug string) (*domain.Author, error) {
	var author domain.Author
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &author,
		`SELECT `+authorColumns+` FROM news_authors WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// insert returns sql.ErrNoRows when the slug is already taken.
func (s *AuthorStore) insert(ctx context.Context, name, slug string) (*domain.Author, error) {
	var author domain.Author
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &author, `
		INSERT INTO news_authors (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO NOTHING
		RETURNING `+authorColumns,
		name, slug,
	)
	return &author, err
}

// Create always stores a new author, suffixing the slug of name with -1,
// -2, ... until a free one is found.
func (s *AuthorStore) Create(ctx context.Context, name string) (*domain.Author, error) {
	base := normalize.Slug(name)

	for n := 0; n <= maxSlugSuffix; n++ {
		author, err := s.insert(ctx, name, normalize.SuffixedSlug(base, n))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert author: %w", err)
		}
		return author, nil
	}

	return nil, fmt.Errorf("author %q: %w", name, ErrSlugExhausted)
}

// FindOrCreateByName returns the author stored under the slug of name, or
// under the first suffixed slug whose row carries the same name, ignoring
// case. A slug held by a different name moves the search to the next suffix.
// Concurrent calls for one name settle on a single row through the slug
// constraint.
func (s *AuthorStore) FindOrCreateByName(ctx context.Context, name string) (*domain.Author, error) {
	base := normalize.Slug(name)

	for n := 0; n <= maxSlugSuffix; n++ {
		slug := normalize.SuffixedSlug(base, n)

		author, err := s.insert(ctx, name, slug)
		if err == nil {
			return author, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("insert author: %w", err)
		}

		existing, err := s.FindBySlug(ctx, slug)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find author: %w", err)
		}
		if strings.EqualFold(existing.Name, name) {
			return existing, nil
		}
	}

	return nil, fmt.Errorf("author %q: %w", name, ErrSlugExhausted)
}
