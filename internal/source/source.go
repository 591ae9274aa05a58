// Package source holds what the provider adapters share: the page request,
// the adapter contract, the HTTP client and the registry.
package source

import (
	"context"
	"time"

	"news_ingest/internal/domain"
)

type PageRequest struct {
	Page     int
	PageSize int
	Window   domain.DateWindow
}

// Provider fetches one page of canonical items. Failures are logged by the
// implementation and surface as an empty page.
type Provider interface {
	ProviderName() domain.Provider
	FetchPage(ctx context.Context, req PageRequest) []domain.NewsItem
}

// DefaultWindow covers the whole day before now, in now's location.
func DefaultWindow(now time.Time) domain.DateWindow {
	y, m, d := now.AddDate(0, 0, -1).Date()
	return domain.DateWindow{
		From: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		To:   time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), now.Location()),
	}
}

// Normalize clamps the page to 1 and fills a zero window with DefaultWindow.
func (r PageRequest) Normalize(now time.Time) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Window.IsZero() {
		r.Window = DefaultWindow(now)
	}
	return r
}
