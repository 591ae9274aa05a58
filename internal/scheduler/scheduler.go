package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_ingest/internal/orchestrator"
)

// Syncer starts one sync session.
type Syncer interface {
	Sync(ctx context.Context, p orchestrator.Params) (*orchestrator.Report, error)
}

// Scheduler syncs yesterday's news right away and then on every interval
// until its context ends.
type Scheduler struct {
	syncer   Syncer
	params   orchestrator.Params
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, params orchestrator.Params, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	params.UseYesterday = true
	params.From, params.To = nil, nil
	return &Scheduler{
		syncer:   syncer,
		params:   params,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	syncCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		syncCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.syncer.Sync(syncCtx, s.params)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}

	s.logger.Info("scheduled sync dispatched",
		"session_id", report.SessionID,
		"items_fetched", report.TotalItems(),
		"jobs_dispatched", report.TotalJobs(),
	)
}
