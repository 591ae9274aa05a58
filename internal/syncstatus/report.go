package syncstatus

import (
	"context"
	"errors"
	"sort"

	"news_ingest/internal/domain"
)

const DefaultMaxBatches = 20

type BatchReport struct {
	BatchNumber int
	Status      domain.SyncStatus
}

// ProviderReport aggregates the batches found for one provider.
type ProviderReport struct {
	Provider  domain.Provider
	Batches   []BatchReport
	Completed int
	Failed    int
	Pending   int
	Items     int
}

type SessionReport struct {
	SessionID string
	Providers []ProviderReport
}

func (r SessionReport) Empty() bool {
	return len(r.Providers) == 0
}

type Reporter struct {
	store      *Store
	maxBatches int
}

func NewReporter(store *Store, maxBatches int) *Reporter {
	if maxBatches <= 0 {
		maxBatches = DefaultMaxBatches
	}
	return &Reporter{store: store, maxBatches: maxBatches}
}

// Session scans batches 1..maxBatches of every known provider.
func (r *Reporter) Session(ctx context.Context, sessionID string) (SessionReport, error) {
	report := SessionReport{SessionID: sessionID}

	for _, provider := range domain.Providers() {
		pr := ProviderReport{Provider: provider}

		for batch := 1; batch <= r.maxBatches; batch++ {
			status, err := r.store.Get(ctx, domain.BatchKey{SessionID: sessionID, Provider: provider, BatchNumber: batch})
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return report, err
			}
			pr.add(batch, *status)
		}

		if len(pr.Batches) > 0 {
			sort.Slice(pr.Batches, func(i, j int) bool { return pr.Batches[i].BatchNumber < pr.Batches[j].BatchNumber })
			report.Providers = append(report.Providers, pr)
		}
	}

	return report, nil
}

func (p *ProviderReport) add(batch int, status domain.SyncStatus) {
	p.Batches = append(p.Batches, BatchReport{BatchNumber: batch, Status: status})

	switch {
	case status.Status == domain.SyncCompleted:
		p.Completed++
	case status.Status.IsFailure():
		p.Failed++
	default:
		p.Pending++
	}

	if status.Data.Created != nil {
		p.Items += *status.Data.Created
	}
	if status.Data.Updated != nil {
		p.Items += *status.Data.Updated
	}
}
