package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"news_ingest/internal/syncstatus"
)

func newStatusCommand(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the batch status of a sync session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.statusStore(cmd.Context())
			if err != nil {
				return err
			}

			report, err := syncstatus.NewReporter(store, a.cfg.Status.MaxBatches).Session(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if report.Empty() {
				fmt.Printf("No batches found for session %s. Status records expire after %s.\n", args[0], a.cfg.Status.TTL)
				return nil
			}

			printSessionReport(report, verbose)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every batch")

	return cmd
}

func printSessionReport(r syncstatus.SessionReport, verbose bool) {
	fmt.Printf("Session ID: %s\n", r.SessionID)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Provider", "Batches", "Completed", "Failed", "Pending", "Items"})

	var completed, failed, pending, items int
	for _, p := range r.Providers {
		t.AppendRow(table.Row{p.Provider, len(p.Batches), p.Completed, p.Failed, p.Pending, p.Items})
		completed += p.Completed
		failed += p.Failed
		pending += p.Pending
		items += p.Items
	}
	t.AppendFooter(table.Row{"Total", "", completed, failed, pending, items})
	t.Render()

	if !verbose {
		return
	}

	b := table.NewWriter()
	b.SetOutputMirror(os.Stdout)
	b.SetStyle(table.StyleLight)
	b.AppendHeader(table.Row{"Provider", "Batch", "Status", "Updated", "Detail"})
	for _, p := range r.Providers {
		for _, batch := range p.Batches {
			detail := batch.Status.Data.Error
			if detail == "" && batch.Status.Data.Created != nil {
				detail = fmt.Sprintf("created %d, updated %d, skipped %d, errors %d",
					deref(batch.Status.Data.Created), deref(batch.Status.Data.Updated),
					deref(batch.Status.Data.Skipped), deref(batch.Status.Data.Errors))
			}
			b.AppendRow(table.Row{p.Provider, batch.BatchNumber, batch.Status.Status, batch.Status.UpdatedAt.Format("15:04:05"), detail})
		}
	}
	b.Render()
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
