// Package job executes one batch of canonical items against the persistence
// engine with a bounded number of attempts and records every transition in
// the sync status store.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news_ingest/internal/domain"
	"news_ingest/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 30 * time.Second
	DefaultTimeout     = 300 * time.Second

	statusWriteTimeout = 5 * time.Second
)

// Job is one page of one provider within a sync session. It is also the
// queue message body.
type Job struct {
	SessionID   string            `json:"session_id"`
	Provider    domain.Provider   `json:"provider"`
	BatchNumber int               `json:"batch_number"`
	Items       []domain.NewsItem `json:"items"`
}

func (j Job) Key() domain.BatchKey {
	return domain.BatchKey{
		SessionID:   j.SessionID,
		Provider:    j.Provider,
		BatchNumber: j.BatchNumber,
	}
}

type Persister interface {
	SaveBatch(ctx context.Context, items []domain.NewsItem) (domain.BatchStats, error)
}

type StatusWriter interface {
	Put(ctx context.Context, k domain.BatchKey, state domain.SyncState, data domain.StatusData) error
}

type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Outcome is the final result of Run. State is completed or
// failed_permanently, or failed when ctx ended before the attempt budget
// was used up.
type Outcome struct {
	State    domain.SyncState
	Stats    domain.BatchStats
	Attempts int
	Err      error
}

type Runner struct {
	persister Persister
	status    StatusWriter
	metrics   metrics.Recorder
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

func NewRunner(persister Persister, status StatusWriter, recorder metrics.Recorder, cfg Config, logger *slog.Logger) *Runner {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Runner{
		persister: persister,
		status:    status,
		metrics:   recorder,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// Run attempts the job until it succeeds or the attempt budget is spent,
// waiting Backoff between attempts. Only one attempt runs at a time.
func (r *Runner) Run(ctx context.Context, j Job) Outcome {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		stats, err := r.Attempt(ctx, j, attempt)
		if err == nil {
			return Outcome{State: domain.SyncCompleted, Stats: stats, Attempts: attempt}
		}
		lastErr = err

		if ctx.Err() != nil {
			return Outcome{State: domain.SyncFailed, Attempts: attempt, Err: lastErr}
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, r.cfg.Backoff); err != nil {
			return Outcome{State: domain.SyncFailed, Attempts: attempt, Err: lastErr}
		}
	}

	r.Fail(ctx, j, r.cfg.MaxAttempts, lastErr)
	return Outcome{State: domain.SyncFailedPermanently, Attempts: r.cfg.MaxAttempts, Err: lastErr}
}

// Attempt runs the persistence engine once under the per-attempt timeout
// and writes completed or failed.
func (r *Runner) Attempt(ctx context.Context, j Job, attempt int) (domain.BatchStats, error) {
	logger := r.logger.With(
		"session_id", j.SessionID,
		"provider", j.Provider,
		"batch_number", j.BatchNumber,
		"attempt", attempt,
	)
	logger.Info("starting sync job", "items", len(j.Items))

	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := r.now()
	stats, err := r.persister.SaveBatch(attemptCtx, j.Items)
	duration := r.now().Sub(start)

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("attempt timed out after %s: %w", r.cfg.Timeout, err)
	}

	if err != nil {
		logger.Error("sync job failed", "error", err, "duration", duration)
		r.metrics.RecordJob(j.Provider, domain.SyncFailed, duration)
		r.writeStatus(ctx, j, domain.SyncFailed, domain.StatusData{Error: err.Error(), Attempts: attempt})
		return domain.BatchStats{}, err
	}

	logger.Info("sync job completed",
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", duration,
	)
	r.metrics.RecordJob(j.Provider, domain.SyncCompleted, duration)
	r.metrics.RecordBatch(j.Provider, stats)
	r.writeStatus(ctx, j, domain.SyncCompleted, domain.StatsData(stats))

	return stats, nil
}

// Fail records the terminal state after the last attempt.
func (r *Runner) Fail(ctx context.Context, j Job, attempts int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	r.logger.Error("sync job failed permanently",
		"session_id", j.SessionID,
		"provider", j.Provider,
		"batch_number", j.BatchNumber,
		"attempts", attempts,
		"error", msg,
	)
	r.metrics.RecordJob(j.Provider, domain.SyncFailedPermanently, 0)
	r.writeStatus(ctx, j, domain.SyncFailedPermanently, domain.StatusData{Error: msg, Attempts: attempts})
}

// writeStatus never fails the job. It outlives ctx cancellation so a
// timed-out attempt can still record why it failed.
func (r *Runner) writeStatus(ctx context.Context, j Job, state domain.SyncState, data domain.StatusData) {
	if r.status == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err := r.status.Put(writeCtx, j.Key(), state, data); err != nil {
		r.logger.Warn("failed to update sync status",
			"session_id", j.SessionID,
			"provider", j.Provider,
			"batch_number", j.BatchNumber,
			"status", state,
			"error", err,
		)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
