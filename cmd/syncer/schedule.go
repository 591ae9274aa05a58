package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"news_ingest/internal/orchestrator"
	"news_ingest/internal/scheduler"
)

func newScheduleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Sync yesterday's news on the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := orchestrator.Params{
				TotalRecords: a.cfg.Sync.DefaultRecords,
				PerPage:      a.cfg.Sync.DefaultPerPage,
				UseYesterday: true,
			}
			if err := params.Validate(); err != nil {
				return err
			}

			orch, err := a.orchestrator(cmd.Context(), params)
			if err != nil {
				return err
			}

			sched := scheduler.NewScheduler(orch, params, a.cfg.Sync.Interval, a.cfg.Sync.Interval, a.logger)

			if err := sched.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("scheduler error", "error", err)
				return err
			}
			return nil
		},
	}
}
