// Package orchestrator paginates providers for one sync session and turns
// every non-empty page into a batch job.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"news_ingest/internal/domain"
	"news_ingest/internal/job"
	"news_ingest/internal/metrics"
	"news_ingest/internal/source"
)

const DefaultInterPageDelay = time.Second

// Dispatcher hands a job to the workers.
type Dispatcher interface {
	Dispatch(ctx context.Context, j job.Job) error
}

// Runner executes a job in the calling goroutine.
type Runner interface {
	Run(ctx context.Context, j job.Job) job.Outcome
}

type Config struct {
	Registry       *source.Registry
	Dispatcher     Dispatcher
	Runner         Runner
	Status         job.StatusWriter
	Metrics        metrics.Recorder
	InterPageDelay time.Duration
	Logger         *slog.Logger
}

type Orchestrator struct {
	registry       *source.Registry
	dispatcher     Dispatcher
	runner         Runner
	status         job.StatusWriter
	metrics        metrics.Recorder
	interPageDelay time.Duration
	logger         *slog.Logger
	now            func() time.Time
	newSessionID   func() string
}

func New(cfg Config) *Orchestrator {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.InterPageDelay <= 0 {
		cfg.InterPageDelay = DefaultInterPageDelay
	}
	return &Orchestrator{
		registry:       cfg.Registry,
		dispatcher:     cfg.Dispatcher,
		runner:         cfg.Runner,
		status:         cfg.Status,
		metrics:        cfg.Metrics,
		interPageDelay: cfg.InterPageDelay,
		logger:         cfg.Logger,
		now:            time.Now,
		newSessionID:   uuid.NewString,
	}
}

// ProviderReport counts what one provider produced in a session. Stats is
// only filled for immediate runs.
type ProviderReport struct {
	Provider       domain.Provider
	PagesFetched   int
	ItemsFetched   int
	JobsDispatched int
	Stats          domain.BatchStats
	Errors         []string
}

type Report struct {
	SessionID string
	Window    domain.DateWindow
	PageCount int
	PerPage   int
	DryRun    bool
	Immediate bool
	Providers []ProviderReport
}

func (r *Report) TotalItems() int {
	var n int
	for _, p := range r.Providers {
		n += p.ItemsFetched
	}
	return n
}

func (r *Report) TotalJobs() int {
	var n int
	for _, p := range r.Providers {
		n += p.JobsDispatched
	}
	return n
}

// Sync validates p and walks every selected provider in turn. Page level
// failures are collected in the report; only invalid parameters and a
// missing dispatcher are returned as errors.
func (o *Orchestrator) Sync(ctx context.Context, p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	window, err := p.Window(o.now())
	if err != nil {
		return nil, err
	}
	providers, err := o.selectProviders(p.Provider)
	if err != nil {
		return nil, err
	}
	if !p.DryRun {
		if p.Immediate && o.runner == nil {
			return nil, fmt.Errorf("immediate sync requested without a job runner")
		}
		if !p.Immediate && o.dispatcher == nil {
			return nil, fmt.Errorf("queued sync requested without a dispatcher")
		}
	}

	report := &Report{
		SessionID: o.newSessionID(),
		Window:    window,
		PageCount: p.PageCount(),
		PerPage:   p.PerPage,
		DryRun:    p.DryRun,
		Immediate: p.Immediate,
	}

	o.logger.Info("starting sync session",
		"session_id", report.SessionID,
		"providers", len(providers),
		"pages", report.PageCount,
		"per_page", p.PerPage,
		"from", window.From,
		"to", window.To,
		"dry_run", p.DryRun,
		"immediate", p.Immediate,
	)

	for _, provider := range providers {
		if ctx.Err() != nil {
			break
		}
		report.Providers = append(report.Providers, o.syncProvider(ctx, provider, report, p))
	}

	o.logger.Info("sync session finished",
		"session_id", report.SessionID,
		"items_fetched", report.TotalItems(),
		"jobs_dispatched", report.TotalJobs(),
	)

	return report, nil
}

func (o *Orchestrator) selectProviders(name domain.Provider) ([]source.Provider, error) {
	if name != "" {
		p, err := o.registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return []source.Provider{p}, nil
	}

	names := o.registry.Names()
	providers := make([]source.Provider, 0, len(names))
	for _, n := range names {
		p, err := o.registry.Get(n)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// syncProvider fetches pages in order until the page count is reached or a
// page comes back empty.
func (o *Orchestrator) syncProvider(ctx context.Context, provider source.Provider, report *Report, p Params) ProviderReport {
	name := provider.ProviderName()
	pr := ProviderReport{Provider: name}
	logger := o.logger.With("provider", name, "session_id", report.SessionID)

	limiter := rate.NewLimiter(rate.Every(o.interPageDelay), 1)

	for page := 1; page <= report.PageCount; page++ {
		if err := limiter.Wait(ctx); err != nil {
			pr.Errors = append(pr.Errors, fmt.Sprintf("page %d: %v", page, err))
			break
		}

		items := provider.FetchPage(ctx, source.PageRequest{
			Page:     page,
			PageSize: p.PerPage,
			Window:   report.Window,
		})
		o.metrics.RecordPage(name, len(items))

		if len(items) == 0 {
			logger.Info("no more items available", "page", page)
			break
		}

		pr.PagesFetched++
		pr.ItemsFetched += len(items)
		logger.Info("fetched page", "page", page, "pages", report.PageCount, "items", len(items))

		if p.DryRun {
			logger.Info("dry run, not dispatching", "page", page, "items", len(items))
			continue
		}

		j := job.Job{
			SessionID:   report.SessionID,
			Provider:    name,
			BatchNumber: page,
			Items:       items,
		}

		if err := o.runOrDispatch(ctx, j, p.Immediate, &pr); err != nil {
			logger.Error("failed to process page", "page", page, "error", err)
			pr.Errors = append(pr.Errors, fmt.Sprintf("page %d: %v", page, err))
			continue
		}
		pr.JobsDispatched++
	}

	return pr
}

func (o *Orchestrator) runOrDispatch(ctx context.Context, j job.Job, immediate bool, pr *ProviderReport) error {
	if immediate {
		out := o.runner.Run(ctx, j)
		if out.State != domain.SyncCompleted {
			return fmt.Errorf("job %s after %d attempts: %w", out.State, out.Attempts, out.Err)
		}
		pr.Stats.Add(out.Stats)
		return nil
	}

	// Pending must land before publishing; a worker may finish first.
	o.putStatus(ctx, j, domain.SyncPending, domain.StatusData{Items: len(j.Items)})

	if err := o.dispatcher.Dispatch(ctx, j); err != nil {
		o.putStatus(ctx, j, domain.SyncFailed, domain.StatusData{Error: err.Error()})
		return err
	}
	return nil
}

func (o *Orchestrator) putStatus(ctx context.Context, j job.Job, state domain.SyncState, data domain.StatusData) {
	if o.status == nil {
		return
	}
	if err := o.status.Put(ctx, j.Key(), state, data); err != nil {
		o.logger.Warn("failed to update sync status",
			"session_id", j.SessionID,
			"provider", j.Provider,
			"batch_number", j.BatchNumber,
			"status", state,
			"error", err,
		)
	}
}
