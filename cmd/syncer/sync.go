package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"news_ingest/internal/config"
	"news_ingest/internal/domain"
	"news_ingest/internal/orchestrator"
)

func newSyncCommand(a *app) *cobra.Command {
	var (
		provider string
		from     string
		to       string
		p        orchestrator.Params
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch news from the providers and dispatch sync jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Provider = domain.Provider(strings.ToLower(strings.TrimSpace(provider)))
			applySyncDefaults(cmd.Flags(), &p, a.cfg.Sync)

			var err error
			if p.From, err = parseDay(from); err != nil {
				return err
			}
			if p.To, err = parseDay(to); err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}

			orch, err := a.orchestrator(cmd.Context(), p)
			if err != nil {
				return err
			}

			report, err := orch.Sync(cmd.Context(), p)
			if err != nil {
				return err
			}

			printSyncReport(report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&provider, "provider", "", "sync a single provider (newsapi, guardian, nytimes)")
	flags.IntVar(&p.TotalRecords, "records", orchestrator.DefaultTotalRecords, "total number of records to sync (default from sync.default_records)")
	flags.IntVar(&p.PerPage, "per-page", orchestrator.DefaultPerPage, "records per page and batch (default from sync.default_per_page)")
	flags.StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	flags.StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	flags.BoolVar(&p.UseYesterday, "yesterday", false, "sync yesterday only")
	flags.BoolVar(&p.DryRun, "dry-run", false, "fetch pages without dispatching jobs")
	flags.BoolVar(&p.Immediate, "immediate", false, "run jobs in this process instead of queueing them")

	return cmd
}

// applySyncDefaults fills the page settings the user left unset from config.
func applySyncDefaults(flags *pflag.FlagSet, p *orchestrator.Params, cfg config.SyncConfig) {
	if !flags.Changed("records") && cfg.DefaultRecords > 0 {
		p.TotalRecords = cfg.DefaultRecords
	}
	if !flags.Changed("per-page") && cfg.DefaultPerPage > 0 {
		p.PerPage = cfg.DefaultPerPage
	}
}

func parseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD", orchestrator.ErrInvalidParams, s)
	}
	return &t, nil
}

func printSyncReport(r *orchestrator.Report) {
	fmt.Printf("Session ID: %s\n", r.SessionID)
	fmt.Printf("Date range: %s to %s\n", r.Window.From.Format(time.DateOnly), r.Window.To.Format(time.DateOnly))
	fmt.Printf("Batches per provider: %d of %d records\n", r.PageCount, r.PerPage)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Provider", "Pages", "Items", "Jobs", "Errors"}
	if r.Immediate {
		header = append(header, "Created", "Updated", "Skipped", "Failed items")
	}
	t.AppendHeader(header)

	for _, p := range r.Providers {
		row := table.Row{p.Provider, p.PagesFetched, p.ItemsFetched, p.JobsDispatched, len(p.Errors)}
		if r.Immediate {
			row = append(row, p.Stats.Created, p.Stats.Updated, p.Stats.Skipped, p.Stats.Errors)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"Total", "", r.TotalItems(), r.TotalJobs()})
	t.Render()

	for _, p := range r.Providers {
		for _, e := range p.Errors {
			fmt.Printf("%s: %s\n", p.Provider, e)
		}
	}

	switch {
	case r.DryRun:
		fmt.Println("Dry run: no jobs were dispatched.")
	case !r.Immediate:
		fmt.Printf("Check progress with: syncer status %s\n", r.SessionID)
	}
}
