package newsapi

import (
	"strings"

	"news_ingest/internal/normalize"
)

var categoryAliases = map[string]string{
	"General":                "News",
	"Sci-tech":               "Technology",
	"Sci-Tech":               "Technology",
	"Tech":                   "Technology",
	"Sci-and-tech":           "Technology",
	"Science-and-technology": "Technology",
	"Biz":                    "Business",
}

// SourceCategories maps a catalogue source id to its category name.
type SourceCategories map[string]string

// NewSourceCategories keeps sources that have both an id and a category.
func NewSourceCategories(sources []SourceInfo) SourceCategories {
	m := make(SourceCategories, len(sources))
	for _, s := range sources {
		category := NormalizeCategory(s.Category)
		if s.ID == "" || category == "" {
			continue
		}
		m[s.ID] = category
	}
	return m
}

// Lookup returns nil for unknown or empty source ids.
func (m SourceCategories) Lookup(sourceID string) *string {
	if sourceID == "" {
		return nil
	}
	if category, ok := m[sourceID]; ok {
		return &category
	}
	return nil
}

// NormalizeCategory title-cases the catalogue category and folds the
// known abbreviations.
func NormalizeCategory(category string) string {
	normalized := normalize.TitleWords(strings.ToLower(strings.TrimSpace(category)))
	if alias, ok := categoryAliases[normalized]; ok {
		return alias
	}
	return normalized
}
