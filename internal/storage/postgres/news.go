package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"news_ingest/internal/domain"
)

const newsColumns = `id, unique_id, title, description, category_id, author_id, source_id, provider, source_url, published_at, created_at, updated_at`

type NewsStore struct {
	db *sqlx.DB
}

func NewNewsStore(db *sqlx.DB) *NewsStore {
	return &NewsStore{db: db}
}

// GetByUniqueID returns nil without error when no row exists.
func (s *NewsStore) GetByUniqueID(ctx context.Context, uniqueID string) (*domain.News, error) {
	var n domain.News
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n,
		`SELECT `+newsColumns+` FROM news WHERE unique_id = $1`, uniqueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get news %s: %w", uniqueID, err)
	}
	return &n, nil
}

// Insert stores n unless its unique id exists. On success n receives the
// generated id and timestamps; inserted is false on conflict.
func (s *NewsStore) Insert(ctx context.Context, n *domain.News) (bool, error) {
	query := `
		INSERT INTO news (
			unique_id, title, description, category_id, author_id, source_id,
			provider, source_url, published_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (unique_id) DO NOTHING
		RETURNING id, created_at, updated_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		n.UniqueID,
		n.Title,
		n.Description,
		n.CategoryID,
		n.AuthorID,
		n.SourceID,
		n.Provider,
		n.SourceURL,
		n.PublishedAt,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert news: %w", err)
	}
	return true, nil
}

// Update rewrites the tracked fields of the row with n.ID.
func (s *NewsStore) Update(ctx context.Context, n *domain.News) error {
	query := `
		UPDATE news SET
			title = $2,
			description = $3,
			category_id = $4,
			author_id = $5,
			source_id = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		n.ID,
		n.Title,
		n.Description,
		n.CategoryID,
		n.AuthorID,
		n.SourceID,
	).Scan(&n.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update news: %w", err)
	}
	return nil
}

func (s *NewsStore) CountByUniqueID(ctx context.Context, uniqueID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count, `SELECT COUNT(*) FROM news WHERE unique_id = $1`, uniqueID)
	return count, err
}
