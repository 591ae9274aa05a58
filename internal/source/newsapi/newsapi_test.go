package newsapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/cache"
	"news_ingest/internal/domain"
	"news_ingest/internal/normalize"
	"news_ingest/internal/source"
	"news_ingest/internal/storage/kv"
)

const everythingBody = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {
      "source": {"id": "techcrunch", "name": "TechCrunch"},
      "author": "Jane Doe (jane@techcrunch.com)",
      "title": "Startup raises round - TechCrunch",
      "description": "  A startup raised money...  ",
      "url": "https://www.techcrunch.com/2025/06/06/startup",
      "publishedAt": "2025-06-06T10:15:00Z"
    },
    {
      "source": {"id": null, "name": "Some Blog"},
      "author": null,
      "title": "Unlisted outlet",
      "description": null,
      "url": "https://blog.example.org/post",
      "publishedAt": "2025-06-06T11:00:00Z"
    },
    {
      "source": {"id": "bbc-news", "name": "BBC News"},
      "title": "[Removed]",
      "url": ""
    }
  ]
}`

const sourcesBody = `{
  "status": "ok",
  "sources": [
    {"id": "techcrunch", "name": "TechCrunch", "category": "technology"},
    {"id": "bbc-news", "name": "BBC News", "category": "general"},
    {"id": "no-category", "name": "No Category", "category": ""}
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	store, err := kv.OpenBolt(filepath.Join(t.TempDir(), "kv.db"), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return cache.New(store, "")
}

func newTestClient(url string, c cache.ReadWriter) *Client {
	client := New(Config{
		BaseURL:     url,
		APIKey:      "test-key",
		Domains:     []string{"techcrunch.com", "bbc.co.uk"},
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		RetryWait:   5 * time.Millisecond,
	}, c, testLogger())
	client.now = func() time.Time { return time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC) }
	return client
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"general":                "News",
		" technology ":           "Technology",
		"sci-tech":               "Technology",
		"TECH":                   "Technology",
		"science-and-technology": "Technology",
		"biz":                    "Business",
		"sports":                 "Sports",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCategory(in), in)
	}
}

func TestNewSourceCategories(t *testing.T) {
	m := NewSourceCategories([]SourceInfo{
		{ID: "bbc-news", Category: "general"},
		{ID: "", Category: "business"},
		{ID: "empty", Category: " "},
	})

	assert.Len(t, m, 1)
	assert.Equal(t, "News", *m.Lookup("bbc-news"))
	assert.Nil(t, m.Lookup("empty"))
	assert.Nil(t, m.Lookup(""))
}

func TestToCanonical(t *testing.T) {
	url := "https://www.reuters.com/world/story"
	item, ok := ToCanonical(Article{
		Source:      ArticleSource{ID: "reuters", Name: "Reuters"},
		Author:      "John Roe (john@reuters.com)",
		Title:       "Markets rally - Reuters",
		Description: "Stocks climbed...",
		URL:         url,
		PublishedAt: "2025-06-06T10:15:00Z",
	}, SourceCategories{"reuters": "Business"})
	require.True(t, ok)

	assert.Equal(t, normalize.UniqueID("newsapi", url), item.UniqueID)
	assert.Equal(t, "Markets rally", item.Title)
	assert.Equal(t, "Stocks climbed", *item.Description)
	assert.Equal(t, "Business", *item.CategoryName)
	assert.Equal(t, "John Roe", *item.AuthorName)
	assert.Equal(t, "Reuters", *item.SourceName)
	assert.Equal(t, "reuters.com", *item.SourceDomain)
	assert.Equal(t, domain.ProviderNewsAPI, item.Provider)
	require.NotNil(t, item.PublishedAt)
}

func TestTransformBatch_DropsIncomplete(t *testing.T) {
	items := TransformBatch([]Article{
		{Title: "First", URL: "https://a.com/1"},
		{Title: "", URL: "https://a.com/2"},
		{Title: "Third", URL: " "},
		{Title: "Fourth", URL: "https://a.com/4"},
	}, nil)

	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, "Fourth", items[1].Title)
	assert.Nil(t, items[0].CategoryName)
}

func TestClient_FetchPage(t *testing.T) {
	var sourcesCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("apiKey"))

		switch r.URL.Path {
		case sourcesPath:
			sourcesCalls.Add(1)
			assert.Equal(t, "en", q.Get("language"))
			_, _ = w.Write([]byte(sourcesBody))
		case everythingPath:
			assert.Equal(t, "2", q.Get("page"))
			assert.Equal(t, "25", q.Get("pageSize"))
			assert.Equal(t, "publishedAt", q.Get("sortBy"))
			assert.Equal(t, "en", q.Get("language"))
			assert.Equal(t, "*", q.Get("q"))
			assert.Equal(t, "techcrunch.com,bbc.co.uk", q.Get("domains"))
			assert.Equal(t, "2025-06-06T00:00:00Z", q.Get("from"))
			assert.Equal(t, "2025-06-06T23:59:59Z", q.Get("to"))
			_, _ = w.Write([]byte(everythingBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, newTestCache(t))
	req := source.PageRequest{Page: 2, PageSize: 25}

	items := client.FetchPage(context.Background(), req)
	require.Len(t, items, 2)
	assert.Equal(t, "Startup raises round", items[0].Title)
	assert.Equal(t, "Technology", *items[0].CategoryName)
	assert.Equal(t, "Jane Doe", *items[0].AuthorName)
	assert.Equal(t, "techcrunch.com", *items[0].SourceDomain)
	assert.Nil(t, items[1].CategoryName)
	assert.Nil(t, items[1].AuthorName)
	assert.Nil(t, items[1].Description)

	_ = client.FetchPage(context.Background(), req)
	assert.Equal(t, int32(1), sourcesCalls.Load())
}

func TestClient_SourcesCachedAcrossClients(t *testing.T) {
	var sourcesCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sourcesCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sourcesBody))
	}))
	defer srv.Close()

	shared := newTestCache(t)

	first := newTestClient(srv.URL, shared).SourceCategories(context.Background())
	second := newTestClient(srv.URL, shared).SourceCategories(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, "News", second["bbc-news"])
	assert.Equal(t, int32(1), sourcesCalls.Load())
}

func TestClient_SourcesFailureIsRetried(t *testing.T) {
	var sourcesCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if sourcesCalls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"status": "error", "code": "apiKeyInvalid", "message": "Your API key is invalid."}`))
			return
		}
		_, _ = w.Write([]byte(sourcesBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, newTestCache(t))

	assert.Empty(t, client.SourceCategories(context.Background()))
	assert.Len(t, client.SourceCategories(context.Background()), 2)
	assert.Equal(t, int32(2), sourcesCalls.Load())
}

func TestClient_FetchPage_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "error", "code": "rateLimited", "message": "Too many requests"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, nil)

	_, err := client.fetch(context.Background(), source.PageRequest{Page: 1}.Normalize(client.now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rateLimited")

	assert.Empty(t, client.FetchPage(context.Background(), source.PageRequest{Page: 1}))
}

func TestClient_FetchPage_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	items := newTestClient(srv.URL, nil).FetchPage(context.Background(), source.PageRequest{Page: 1})

	assert.Empty(t, items)
	assert.Equal(t, int32(3), calls.Load())
}
