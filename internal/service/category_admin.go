package service

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

var ErrCategoryExists = errors.New("category already exists")

var categoryPalette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EC4899", "#EF4444",
	"#8B5CF6", "#6366F1", "#06B6D4", "#84CC16", "#F97316",
}

// PaletteColor picks a stable color for a category name.
func PaletteColor(name string) string {
	sum := crc32.ChecksumIEEE([]byte(strings.ToLower(name)))
	return categoryPalette[sum%uint32(len(categoryPalette))]
}

// uniqueAliases normalizes aliases and drops blanks and duplicates,
// keeping first occurrence order.
func uniqueAliases(aliases []string) []string {
	seen := make(map[string]struct{}, len(aliases))
	result := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = domain.NormalizeAlias(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		result = append(result, a)
	}
	return result
}

// Create adds a category after the current highest sort order. An empty
// color is picked from the palette. The lowercased name is always an alias.
func (s *CategoryService) Create(ctx context.Context, name, color string, aliases []string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	slug := normalize.Slug(name)

	for _, find := range []func() (*domain.Category, error){
		func() (*domain.Category, error) { return s.categories.FindByName(ctx, name) },
		func() (*domain.Category, error) { return s.categories.FindBySlug(ctx, slug) },
	} {
		existing, err := find()
		if err == nil {
			return existing, fmt.Errorf("%q (id %d): %w", name, existing.ID, ErrCategoryExists)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	maxOrder, err := s.categories.MaxSortOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("max sort order: %w", err)
	}
	if color == "" {
		color = PaletteColor(name)
	}

	category, err := s.categories.Create(ctx, &domain.Category{
		Name:      name,
		Slug:      slug,
		Color:     color,
		IsActive:  true,
		SortOrder: maxOrder + 1,
		Aliases:   uniqueAliases(append([]string{name}, aliases...)),
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, category)
	s.logger.Info("created category", "id", category.ID, "name", category.Name)
	return category, nil
}

// AddAliasByName finds the category by name, slug or alias and adds alias.
func (s *CategoryService) AddAliasByName(ctx context.Context, name, alias string) (*domain.Category, bool, error) {
	category, err := s.Find(ctx, name)
	if err != nil {
		return nil, false, err
	}
	added, err := s.AddAlias(ctx, category, alias)
	return category, added, err
}

func (s *CategoryService) List(ctx context.Context) ([]domain.CategoryCount, error) {
	return s.categories.ListWithCounts(ctx)
}

// Seed loads SeedCategories, merging aliases into existing rows. It returns
// the number of created and updated categories.
func (s *CategoryService) Seed(ctx context.Context) (created, updated int, err error) {
	for _, c := range SeedCategories() {
		inserted, err := s.categories.Seed(ctx, c)
		if err != nil {
			return created, updated, err
		}
		if inserted {
			created++
		} else {
			updated++
		}
		s.invalidate(ctx, c)
	}

	s.logger.Info("categories seeded", "created", created, "updated", updated)
	return created, updated, nil
}

type seedCategory struct {
	name        string
	description string
	color       string
	sortOrder   int
	aliases     []string
}

var seedCategories = []seedCategory{
	{"Technology", "Technology and innovation news", "#3B82F6", 1,
		[]string{"technology", "tech", "automobiles", "sci-tech", "computing", "digital", "ai", "artificial-intelligence"}},
	{"Business", "Business and economic news", "#10B981", 2,
		[]string{"business", "realestate", "money", "economy", "finance", "financial", "markets", "economics"}},
	{"Sports", "Sports and athletics news", "#F59E0B", 3,
		[]string{"sports", "sport", "athletics", "games"}},
	{"Entertainment", "Entertainment and celebrity news", "#EC4899", 4,
		[]string{"entertainment", "culture", "film", "music", "books", "artanddesign", "arts", "movies", "theater", "fashion", "celebrity", "multimedia"}},
	{"Health", "Health and medical news", "#EF4444", 5,
		[]string{"health", "well", "medical", "medicine", "wellness", "healthcare"}},
	{"Science", "Science and research news", "#8B5CF6", 6,
		[]string{"science", "environment", "climate", "research", "nature", "space"}},
	{"Politics", "Political news and analysis", "#6366F1", 7,
		[]string{"politics", "upshot", "government", "policy", "election", "political"}},
	{"World", "International news", "#06B6D4", 8,
		[]string{"world", "uk-news", "us-news", "australia-news", "us", "international", "global", "foreign"}},
	{"Opinion", "Opinion pieces and editorials", "#84CC16", 9,
		[]string{"opinion", "sundayreview", "commentisfree", "editorial", "commentary", "analysis"}},
	{"Lifestyle", "Lifestyle and general interest", "#F97316", 10,
		[]string{"lifeandstyle", "food", "travel", "style", "lifestyle", "fashion", "home", "living"}},
	{"General", "General news articles", "#6B7280", 999,
		[]string{"general", "magazine", "insider", "obituaries", "misc", "other", "news"}},
}

// SeedCategories returns fresh copies of the built-in categories.
func SeedCategories() []*domain.Category {
	result := make([]*domain.Category, 0, len(seedCategories))
	for _, sc := range seedCategories {
		description := sc.description
		result = append(result, &domain.Category{
			Name:        sc.name,
			Slug:        normalize.Slug(sc.name),
			Description: &description,
			Color:       sc.color,
			IsActive:    true,
			SortOrder:   sc.sortOrder,
			Aliases:     uniqueAliases(sc.aliases),
		})
	}
	return result
}
