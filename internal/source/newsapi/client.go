package newsapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"news_ingest/internal/cache"
	"news_ingest/internal/domain"
	"news_ingest/internal/source"
)

const (
	everythingPath = "/everything"
	sourcesPath    = "/sources"

	SourcesCacheKey   = "newsapi_sources"
	DefaultSourcesTTL = 24 * time.Hour
)

type Config struct {
	BaseURL     string
	APIKey      string
	Domains     []string
	SourcesTTL  time.Duration
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
}

// Client implements source.Provider for the /everything endpoint. The
// sources catalogue is loaded on the first fetch and kept for the life of
// the client once a load succeeds.
type Client struct {
	http       *resty.Client
	apiKey     string
	domains    []string
	cache      cache.ReadWriter
	sourcesTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu         sync.Mutex
	categories SourceCategories
}

// New builds a client. A nil cache makes every process load the catalogue
// from the API.
func New(cfg Config, c cache.ReadWriter, logger *slog.Logger) *Client {
	ttl := cfg.SourcesTTL
	if ttl <= 0 {
		ttl = DefaultSourcesTTL
	}

	return &Client{
		http: source.NewHTTPClient(source.HTTPConfig{
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			RetryWait:   cfg.RetryWait,
		}),
		apiKey:     cfg.APIKey,
		domains:    cfg.Domains,
		cache:      c,
		sourcesTTL: ttl,
		now:        time.Now,
		logger:     logger.With("provider", domain.ProviderNewsAPI),
	}
}

func (c *Client) ProviderName() domain.Provider {
	return domain.ProviderNewsAPI
}

func (c *Client) FetchPage(ctx context.Context, req source.PageRequest) []domain.NewsItem {
	articles := c.FetchRaw(ctx, req)
	if len(articles) == 0 {
		return nil
	}
	return TransformBatch(articles, c.SourceCategories(ctx))
}

// FetchRaw returns the raw articles of one page, or nil after logging.
func (c *Client) FetchRaw(ctx context.Context, req source.PageRequest) []Article {
	req = req.Normalize(c.now())

	articles, err := c.fetch(ctx, req)
	if err != nil {
		c.logger.Error("failed to fetch page",
			"page", req.Page,
			"from", req.Window.From,
			"to", req.Window.To,
			"error", err,
		)
		return nil
	}

	c.logger.Debug("fetched page", "page", req.Page, "articles", len(articles))
	return articles
}

func (c *Client) fetch(ctx context.Context, req source.PageRequest) ([]Article, error) {
	params := map[string]string{
		"apiKey":   c.apiKey,
		"page":     strconv.Itoa(req.Page),
		"sortBy":   "publishedAt",
		"language": "en",
		"from":     req.Window.From.UTC().Format(time.RFC3339),
		"to":       req.Window.To.UTC().Format(time.RFC3339),
		"q":        "*",
	}
	if req.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(req.PageSize)
	}
	if len(c.domains) > 0 {
		params["domains"] = strings.Join(c.domains, ",")
	}

	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(everythingPath)
	if err != nil {
		return nil, fmt.Errorf("request everything: %w", err)
	}

	var body EverythingResponse
	if err := source.DecodeJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, apiError(body.Code, body.Message)
	}

	return body.Articles, nil
}

// SourceCategories returns the catalogue mapping. A failed load yields an
// empty mapping and is retried on the next call.
func (c *Client) SourceCategories(ctx context.Context) SourceCategories {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.categories != nil {
		return c.categories
	}

	sources, err := c.loadSources(ctx)
	if err != nil {
		c.logger.Error("failed to load sources catalogue", "error", err)
		return SourceCategories{}
	}

	c.categories = NewSourceCategories(sources)
	c.logger.Info("sources catalogue loaded",
		"sources", len(sources),
		"mapped", len(c.categories),
	)
	return c.categories
}

func (c *Client) loadSources(ctx context.Context) ([]SourceInfo, error) {
	if c.cache == nil {
		return c.fetchSources(ctx)
	}
	return cache.Remember(ctx, c.cache, SourcesCacheKey, c.sourcesTTL, c.fetchSources)
}

func (c *Client) fetchSources(ctx context.Context) ([]SourceInfo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apiKey":   c.apiKey,
			"language": "en",
		}).
		Get(sourcesPath)
	if err != nil {
		return nil, fmt.Errorf("request sources: %w", err)
	}

	var body SourcesResponse
	if err := source.DecodeJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, apiError(body.Code, body.Message)
	}

	return body.Sources, nil
}

func apiError(code, message string) error {
	if message == "" {
		message = "unknown error"
	}
	if code != "" {
		return errors.New("newsapi error " + code + ": " + message)
	}
	return errors.New("newsapi error: " + message)
}
