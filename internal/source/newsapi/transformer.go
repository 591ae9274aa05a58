package newsapi

import (
	"strings"

	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

// ToCanonical requires a title and a url. The category comes from the
// sources catalogue and is nil when the article's source is not listed.
func ToCanonical(a Article, categories SourceCategories) (domain.NewsItem, bool) {
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.URL) == "" {
		return domain.NewsItem{}, false
	}

	return domain.NewsItem{
		UniqueID:     normalize.UniqueID(string(domain.ProviderNewsAPI), a.URL),
		Title:        normalize.CleanTitle(a.Title),
		Description:  normalize.StringPtr(normalize.CleanDescription(a.Description)),
		CategoryName: categories.Lookup(a.Source.ID),
		AuthorName:   normalize.StringPtr(normalize.StripEmails(a.Author)),
		SourceName:   normalize.StringPtr(a.Source.Name),
		SourceDomain: normalize.StringPtr(normalize.ExtractDomain(a.URL)),
		Provider:     domain.ProviderNewsAPI,
		SourceURL:    a.URL,
		PublishedAt:  normalize.ParseTime(a.PublishedAt),
	}, true
}

func TransformBatch(articles []Article, categories SourceCategories) []domain.NewsItem {
	items := make([]domain.NewsItem, 0, len(articles))
	for _, a := range articles {
		if item, ok := ToCanonical(a, categories); ok {
			items = append(items, item)
		}
	}
	return items
}
