package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"news_ingest/internal/domain"
	"news_ingest/internal/source"
)

const (
	MaxTotalRecords = 1000
	MaxPerPage      = 100

	DefaultTotalRecords = 50
	DefaultPerPage      = 10
)

var ErrInvalidParams = errors.New("invalid sync parameters")

// Params describes one sync session. From and To are calendar days; a nil
// bound defaults to yesterday.
type Params struct {
	Provider     domain.Provider
	TotalRecords int
	PerPage      int
	From         *time.Time
	To           *time.Time
	UseYesterday bool
	DryRun       bool
	Immediate    bool
}

func (p Params) Validate() error {
	if p.TotalRecords < 1 || p.TotalRecords > MaxTotalRecords {
		return fmt.Errorf("%w: records must be between 1 and %d, got %d", ErrInvalidParams, MaxTotalRecords, p.TotalRecords)
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		return fmt.Errorf("%w: per-page must be between 1 and %d, got %d", ErrInvalidParams, MaxPerPage, p.PerPage)
	}
	if p.Provider != "" && !p.Provider.Valid() {
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidParams, p.Provider)
	}
	return nil
}

// PageCount is ceil(TotalRecords / PerPage).
func (p Params) PageCount() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.TotalRecords + p.PerPage - 1) / p.PerPage
}

// Window expands the requested days to [start of From, end of To] in now's
// location.
func (p Params) Window(now time.Time) (domain.DateWindow, error) {
	yesterday := source.DefaultWindow(now)
	if p.UseYesterday || (p.From == nil && p.To == nil) {
		return yesterday, nil
	}

	w := yesterday
	if p.From != nil {
		w.From = startOfDay(*p.From, now.Location())
	}
	if p.To != nil {
		w.To = endOfDay(*p.To, now.Location())
	}
	if w.From.After(w.To) {
		return domain.DateWindow{}, fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidParams, w.From.Format(time.DateOnly), w.To.Format(time.DateOnly))
	}
	return w, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}
