package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"news_ingest/internal/domain"
	"news_ingest/internal/metrics"
)

func newWorkerCommand(a *app) *cobra.Command {
	var (
		providers []string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume sync jobs from the provider queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			selected, err := parseProviders(providers)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = a.cfg.Sync.WorkersPerProvider
			}

			runner, err := a.runner(ctx)
			if err != nil {
				return err
			}
			broker, err := a.queue()
			if err != nil {
				return err
			}
			_, registry := a.collector()

			srv := &http.Server{
				Addr:              a.cfg.Metrics.Addr,
				Handler:           metrics.Handler(registry),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("serving metrics", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				a.logger.Info("starting workers", "providers", selected, "workers_per_provider", workers)
				return broker.Consume(gctx, selected, workers, runner)
			})

			err = g.Wait()
			a.logger.Info("workers stopped")
			return err
		},
	}

	cmd.Flags().StringSliceVar(&providers, "provider", nil, "consume only these providers' queues")
	cmd.Flags().IntVar(&workers, "workers", 0, "workers per provider (defaults to sync.workers_per_provider)")

	return cmd
}

func parseProviders(names []string) ([]domain.Provider, error) {
	if len(names) == 0 {
		return domain.Providers(), nil
	}

	providers := make([]domain.Provider, 0, len(names))
	for _, n := range names {
		p := domain.Provider(strings.ToLower(strings.TrimSpace(n)))
		if !p.Valid() {
			return nil, errors.New("unknown provider " + n)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
