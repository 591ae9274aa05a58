// Package metrics exposes the sync pipeline's Prometheus counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"news_ingest/internal/domain"
)

// Recorder is what the job runner and the orchestrator report to.
type Recorder interface {
	RecordJob(provider domain.Provider, state domain.SyncState, duration time.Duration)
	RecordBatch(provider domain.Provider, stats domain.BatchStats)
	RecordPage(provider domain.Provider, items int)
}

type Collector struct {
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	items       *prometheus.CounterVec
	fetched     *prometheus.CounterVec
	emptyPages  *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "news_ingest_jobs_total",
			Help: "Batch job attempts by provider and resulting state.",
		}, []string{"provider", "state"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "news_ingest_job_duration_seconds",
			Help:    "Duration of batch job attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "news_ingest_items_total",
			Help: "Persisted items by provider and outcome.",
		}, []string{"provider", "outcome"}),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "news_ingest_fetched_items_total",
			Help: "Canonical items returned by provider pages.",
		}, []string{"provider"}),
		emptyPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "news_ingest_empty_pages_total",
			Help: "Provider pages that returned no items.",
		}, []string{"provider"}),
	}

	reg.MustRegister(c.jobs, c.jobDuration, c.items, c.fetched, c.emptyPages)

	return c
}

func (c *Collector) RecordJob(provider domain.Provider, state domain.SyncState, duration time.Duration) {
	c.jobs.WithLabelValues(string(provider), string(state)).Inc()
	c.jobDuration.WithLabelValues(string(provider)).Observe(duration.Seconds())
}

func (c *Collector) RecordBatch(provider domain.Provider, stats domain.BatchStats) {
	p := string(provider)
	c.items.WithLabelValues(p, "created").Add(float64(stats.Created))
	c.items.WithLabelValues(p, "updated").Add(float64(stats.Updated))
	c.items.WithLabelValues(p, "skipped").Add(float64(stats.Skipped))
	c.items.WithLabelValues(p, "errors").Add(float64(stats.Errors))
}

func (c *Collector) RecordPage(provider domain.Provider, items int) {
	if items == 0 {
		c.emptyPages.WithLabelValues(string(provider)).Inc()
		return
	}
	c.fetched.WithLabelValues(string(provider)).Add(float64(items))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordJob(domain.Provider, domain.SyncState, time.Duration) {}
func (Nop) RecordBatch(domain.Provider, domain.BatchStats)             {}
func (Nop) RecordPage(domain.Provider, int)                            {}

// Handler serves /metrics for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
