package domain

import (
	"strings"
	"time"
)

// BatchStats holds per-batch persistence outcomes.
type BatchStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (s *BatchStats) Add(o BatchStats) {
	s.Created += o.Created
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}

type SyncState string

const (
	SyncPending           SyncState = "pending"
	SyncCompleted         SyncState = "completed"
	SyncFailed            SyncState = "failed"
	SyncFailedPermanently SyncState = "failed_permanently"
)

func (s SyncState) IsFailure() bool {
	return s == SyncFailed || s == SyncFailedPermanently
}

// StatusData is the payload attached to a SyncStatus. Stats are set on
// completion; Error and Attempts on failure.
type StatusData struct {
	Created  *int   `json:"created,omitempty"`
	Updated  *int   `json:"updated,omitempty"`
	Skipped  *int   `json:"skipped,omitempty"`
	Errors   *int   `json:"errors,omitempty"`
	Items    int    `json:"items,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

func StatsData(stats BatchStats) StatusData {
	return StatusData{
		Created: &stats.Created,
		Updated: &stats.Updated,
		Skipped: &stats.Skipped,
		Errors:  &stats.Errors,
	}
}

// SyncStatus is the ephemeral record of one batch job's latest transition.
type SyncStatus struct {
	Status    SyncState  `json:"status"`
	Data      StatusData `json:"data"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BatchKey addresses one batch of one provider within a sync session.
type BatchKey struct {
	SessionID   string
	Provider    Provider
	BatchNumber int
}

// DateWindow bounds the publication dates requested from a provider.
type DateWindow struct {
	From time.Time
	To   time.Time
}

func (w DateWindow) IsZero() bool {
	return w.From.IsZero() || w.To.IsZero()
}

// NormalizeAlias lowercases and trims a category alias or lookup key.
func NormalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
