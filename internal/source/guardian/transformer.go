package guardian

import (
	"strings"

	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

const (
	sourceName   = "The Guardian"
	sourceDomain = "theguardian.com"
)

// ToCanonical requires a web title and a web url.
func ToCanonical(a Article) (domain.NewsItem, bool) {
	if strings.TrimSpace(a.WebTitle) == "" || strings.TrimSpace(a.WebURL) == "" {
		return domain.NewsItem{}, false
	}

	naturalKey := a.ID
	if naturalKey == "" {
		naturalKey = a.WebURL
	}

	title := a.WebTitle
	var description, author *string
	if f := a.Fields; f != nil {
		if f.Headline != "" {
			title = f.Headline
		}
		description = normalize.StringPtr(f.TrailText)
		if description == nil {
			description = normalize.StringPtr(f.Standfirst)
		}
		author = normalize.StringPtr(normalize.StripByPrefix(f.Byline))
	}

	name, domainName := sourceName, sourceDomain
	return domain.NewsItem{
		UniqueID:     normalize.UniqueID(string(domain.ProviderGuardian), naturalKey),
		Title:        title,
		Description:  description,
		CategoryName: normalize.StringPtr(a.SectionName),
		AuthorName:   author,
		SourceName:   &name,
		SourceDomain: &domainName,
		Provider:     domain.ProviderGuardian,
		SourceURL:    a.WebURL,
		PublishedAt:  normalize.ParseTime(a.WebPublicationDate),
	}, true
}

// TransformBatch keeps input order and drops articles ToCanonical rejects.
func TransformBatch(articles []Article) []domain.NewsItem {
	items := make([]domain.NewsItem, 0, len(articles))
	for _, a := range articles {
		if item, ok := ToCanonical(a); ok {
			items = append(items, item)
		}
	}
	return items
}
