package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/domain"
)

func TestCollector_RecordJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordJob(domain.ProviderGuardian, domain.SyncCompleted, time.Second)
	c.RecordJob(domain.ProviderGuardian, domain.SyncFailed, time.Second)
	c.RecordJob(domain.ProviderGuardian, domain.SyncCompleted, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobs.WithLabelValues("guardian", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobs.WithLabelValues("guardian", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.jobDuration))
}

func TestCollector_RecordBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBatch(domain.ProviderNYTimes, domain.BatchStats{Created: 3, Updated: 1, Skipped: 5, Errors: 2})
	c.RecordBatch(domain.ProviderNYTimes, domain.BatchStats{Created: 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(c.items.WithLabelValues("nytimes", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.items.WithLabelValues("nytimes", "updated")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.items.WithLabelValues("nytimes", "skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.items.WithLabelValues("nytimes", "errors")))
}

func TestCollector_RecordPage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPage(domain.ProviderNewsAPI, 10)
	c.RecordPage(domain.ProviderNewsAPI, 0)
	c.RecordPage(domain.ProviderNewsAPI, 4)

	assert.Equal(t, 14.0, testutil.ToFloat64(c.fetched.WithLabelValues("newsapi")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emptyPages.WithLabelValues("newsapi")))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPage(domain.ProviderGuardian, 7)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `news_ingest_fetched_items_total{provider="guardian"} 7`))
}
