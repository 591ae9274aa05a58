package nytimes

import (
	"strings"

	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
)

const (
	sourceName   = "The New York Times"
	sourceDomain = "nytimes.com"
)

// ToCanonical requires a main headline and a web url.
func ToCanonical(a Article) (domain.NewsItem, bool) {
	if strings.TrimSpace(a.Headline.Main) == "" || strings.TrimSpace(a.WebURL) == "" {
		return domain.NewsItem{}, false
	}

	naturalKey := a.ID
	if naturalKey == "" {
		naturalKey = a.WebURL
	}

	name, domainName := sourceName, sourceDomain
	return domain.NewsItem{
		UniqueID:     normalize.UniqueID(string(domain.ProviderNYTimes), naturalKey),
		Title:        a.Headline.Main,
		Description:  firstNonBlank(a.Abstract, a.LeadParagraph, a.Snippet),
		CategoryName: normalize.StringPtr(a.SectionName),
		AuthorName:   author(a.Byline),
		SourceName:   &name,
		SourceDomain: &domainName,
		Provider:     domain.ProviderNYTimes,
		SourceURL:    a.WebURL,
		PublishedAt:  normalize.ParseTime(a.PubDate),
	}, true
}

// author joins up to three people when the byline lists them, otherwise
// cleans the original byline text.
func author(b Byline) *string {
	if len(b.Person) > 0 {
		names := make([]string, 0, len(b.Person))
		for _, p := range b.Person {
			names = append(names, strings.TrimSpace(p.Firstname+" "+p.Lastname))
		}
		return normalize.StringPtr(normalize.JoinNames(names))
	}
	return normalize.StringPtr(normalize.StripByPrefix(strings.TrimSpace(b.Original)))
}

func firstNonBlank(values ...string) *string {
	for _, v := range values {
		if p := normalize.StringPtr(v); p != nil {
			return p
		}
	}
	return nil
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
