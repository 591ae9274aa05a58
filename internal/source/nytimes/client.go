package nytimes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"news_ingest/internal/domain"
	"news_ingest/internal/source"
)

const (
	searchPath = "/search/v2/articlesearch.json"
	dateLayout = "20060102"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
}

// Client implements source.Provider for the article search API. The API
// pages by ten and ignores the requested page size.
type Client struct {
	http   *resty.Client
	apiKey string
	now    func() time.Time
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http: source.NewHTTPClient(source.HTTPConfig{
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			RetryWait:   cfg.RetryWait,
		}),
		apiKey: cfg.APIKey,
		now:    time.Now,
		logger: logger.With("provider", domain.ProviderNYTimes),
	}
}

func (c *Client) ProviderName() domain.Provider {
	return domain.ProviderNYTimes
}

func (c *Client) FetchPage(ctx context.Context, req source.PageRequest) []domain.NewsItem {
	return TransformBatch(c.FetchRaw(ctx, req))
}

// FetchRaw returns the raw docs of one page, or nil after logging.
func (c *Client) FetchRaw(ctx context.Context, req source.PageRequest) []Article {
	req = req.Normalize(c.now())

	docs, err := c.fetch(ctx, req)
	if err != nil {
		c.logger.Error("failed to fetch page",
			"page", req.Page,
			"begin_date", req.Window.From.Format(dateLayout),
			"end_date", req.Window.To.Format(dateLayout),
			"error", err,
		)
		return nil
	}

	c.logger.Debug("fetched page", "page", req.Page, "articles", len(docs))
	return docs
}

func (c *Client) fetch(ctx context.Context, req source.PageRequest) ([]Article, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api-key":    c.apiKey,
			"page":       strconv.Itoa(req.Page - 1),
			"sort":       "newest",
			"begin_date": req.Window.From.Format(dateLayout),
			"end_date":   req.Window.To.Format(dateLayout),
		}).
		Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("request article search: %w", err)
	}

	var body SearchResponse
	if err := source.DecodeJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Fault != nil {
		return nil, errors.New("nytimes api fault: " + orUnknown(body.Fault.FaultString))
	}
	if body.Status != "" && body.Status != "OK" {
		return nil, errors.New("nytimes api status " + body.Status + ": " + orUnknown(body.Message))
	}

	return body.Response.Docs, nil
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
