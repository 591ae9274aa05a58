package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_ingest/internal/domain"
)

const categoryColumns = `id, name, slug, description, color, is_active, sort_order, aliases, created_at, updated_at`

type categoryRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Slug        string         `db:"slug"`
	Description *string        `db:"description"`
	Color       string         `db:"color"`
	IsActive    bool           `db:"is_active"`
	SortOrder   int            `db:"sort_order"`
	Aliases     pq.StringArray `db:"aliases"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r categoryRow) toDomain() *domain.Category {
	return &domain.Category{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Color:       r.Color,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
		Aliases:     []string(r.Aliases),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	return s.findOne(ctx, `SELECT `+categoryColumns+` FROM news_categories WHERE name = $1`, name)
}

func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return s.findOne(ctx, `SELECT `+categoryColumns+` FROM news_categories WHERE slug = $1`, slug)
}

// FindByAlias expects an already normalized alias.
func (s *CategoryStore) FindByAlias(ctx context.Context, alias string) (*domain.Category, error) {
	return s.findOne(ctx,
		`SELECT `+categoryColumns+` FROM news_categories WHERE $1 = ANY(aliases) ORDER BY sort_order, id LIMIT 1`,
		alias,
	)
}

func (s *CategoryStore) findOne(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var row categoryRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// FindOrCreate inserts c unless a category with the same slug exists and
// returns the stored row either way.
func (s *CategoryStore) FindOrCreate(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO news_categories (name, slug, description, color, is_active, sort_order, aliases)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO NOTHING
		RETURNING ` + categoryColumns

	var row categoryRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query,
		c.Name, c.Slug, c.Description, c.Color, c.IsActive, c.SortOrder, pq.Array(c.Aliases),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s.FindBySlug(ctx, c.Slug)
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return row.toDomain(), nil
}

// Create fails on a name or slug conflict.
func (s *CategoryStore) Create(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO news_categories (name, slug, description, color, is_active, sort_order, aliases)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + categoryColumns

	var row categoryRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query,
		c.Name, c.Slug, c.Description, c.Color, c.IsActive, c.SortOrder, pq.Array(c.Aliases),
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return row.toDomain(), nil
}

// Seed inserts c or, when its slug exists, refreshes description, color and
// sort order and merges the aliases. It reports whether a row was inserted.
func (s *CategoryStore) Seed(ctx context.Context, c *domain.Category) (bool, error) {
	query := `
		INSERT INTO news_categories (name, slug, description, color, is_active, sort_order, aliases)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET
			description = EXCLUDED.description,
			color = EXCLUDED.color,
			sort_order = EXCLUDED.sort_order,
			aliases = ARRAY(
				SELECT DISTINCT a FROM unnest(news_categories.aliases || EXCLUDED.aliases) AS a ORDER BY a
			),
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &inserted, query,
		c.Name, c.Slug, c.Description, c.Color, c.SortOrder, pq.Array(c.Aliases),
	)
	if err != nil {
		return false, fmt.Errorf("seed category %s: %w", c.Slug, err)
	}
	return inserted, nil
}

// AddAlias appends alias when absent and reports whether the row changed.
func (s *CategoryStore) AddAlias(ctx context.Context, categoryID int64, alias string) (bool, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		UPDATE news_categories
		SET aliases = array_append(aliases, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(aliases))`,
		categoryID, alias,
	)
	if err != nil {
		return false, fmt.Errorf("add alias: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *CategoryStore) MaxSortOrder(ctx context.Context) (int, error) {
	var maxOrder int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &maxOrder, `SELECT COALESCE(MAX(sort_order), 0) FROM news_categories`)
	return maxOrder, err
}

// ListWithCounts orders by sort order then name.
func (s *CategoryStore) ListWithCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.description, c.color, c.is_active, c.sort_order, c.aliases,
			c.created_at, c.updated_at, COUNT(n.id) AS news_count
		FROM news_categories c
		LEFT JOIN news n ON n.category_id = c.id
		GROUP BY c.id
		ORDER BY c.sort_order, c.name`

	var rows []struct {
		categoryRow
		NewsCount int64 `db:"news_count"`
	}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	result := make([]domain.CategoryCount, 0, len(rows))
	for _, r := range rows {
		result = append(result, domain.CategoryCount{Category: *r.toDomain(), NewsCount: r.NewsCount})
	}
	return result, nil
}
