package domain

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Provider identifies one of the external news APIs.
type Provider string

const (
	ProviderNewsAPI  Provider = "newsapi"
	ProviderGuardian Provider = "guardian"
	ProviderNYTimes  Provider = "nytimes"
)

// Providers lists the known providers in sync order.
func Providers() []Provider {
	return []Provider{ProviderNewsAPI, ProviderGuardian, ProviderNYTimes}
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderNewsAPI, ProviderGuardian, ProviderNYTimes:
		return true
	}
	return false
}

// NewsItem is the provider-agnostic form of one article before persistence.
// Transformers only build it when both Title and SourceURL are non-empty.
type NewsItem struct {
	UniqueID     string     `json:"unique_id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	CategoryName *string    `json:"category_name,omitempty"`
	AuthorName   *string    `json:"author_name,omitempty"`
	SourceName   *string    `json:"source_name,omitempty"`
	SourceDomain *string    `json:"source_domain,omitempty"`
	Provider     Provider   `json:"provider"`
	SourceURL    string     `json:"source_url"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

type News struct {
	ID          int64      `db:"id"`
	UniqueID    string     `db:"unique_id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	CategoryID  int64      `db:"category_id"`
	AuthorID    *int64     `db:"author_id"`
	SourceID    int64      `db:"source_id"`
	Provider    Provider   `db:"provider"`
	SourceURL   string     `db:"source_url"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// ToNews maps the item onto a News row with resolved entity ids.
func (i NewsItem) ToNews(categoryID int64, authorID *int64, sourceID int64) *News {
	return &News{
		UniqueID:    i.UniqueID,
		Title:       i.Title,
		Description: i.Description,
		CategoryID:  categoryID,
		AuthorID:    authorID,
		SourceID:    sourceID,
		Provider:    i.Provider,
		SourceURL:   i.SourceURL,
		PublishedAt: i.PublishedAt,
	}
}

// ContentChanged reports whether the tracked fields of n differ from the
// incoming values.
func (n *News) ContentChanged(incoming *News) bool {
	return n.Title != incoming.Title ||
		!equalStringPtr(n.Description, incoming.Description) ||
		n.CategoryID != incoming.CategoryID ||
		!equalInt64Ptr(n.AuthorID, incoming.AuthorID) ||
		n.SourceID != incoming.SourceID
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
