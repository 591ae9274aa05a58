package guardian

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
	searchPath = "/search"
	dateLayout = "2006-01-02"
	showFields = "headline,trailText,byline,standfirst"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
}

// Client implements source.Provider for the Guardian content API.
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
		logger: logger.With("provider", domain.ProviderGuardian),
	}
}

func (c *Client) ProviderName() domain.Provider {
	return domain.ProviderGuardian
}

func (c *Client) FetchPage(ctx context.Context, req source.PageRequest) []domain.NewsItem {
	return TransformBatch(c.FetchRaw(ctx, req))
}

// FetchRaw returns the raw results of one page, or nil after logging.
func (c *Client) FetchRaw(ctx context.Context, req source.PageRequest) []Article {
	req = req.Normalize(c.now())

	articles, err := c.fetch(ctx, req)
	if err != nil {
		c.logger.Error("failed to fetch page",
			"page", req.Page,
			"from", req.Window.From.Format(dateLayout),
			"to", req.Window.To.Format(dateLayout),
			"error", err,
		)
		return nil
	}

	c.logger.Debug("fetched page", "page", req.Page, "articles", len(articles))
	return articles
}

func (c *Client) fetch(ctx context.Context, req source.PageRequest) ([]Article, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api-key":     c.apiKey,
			"page":        strconv.Itoa(req.Page),
			"page-size":   strconv.Itoa(req.PageSize),
			"from-date":   req.Window.From.Format(dateLayout),
			"to-date":     req.Window.To.Format(dateLayout),
			"show-fields": showFields,
			"order-by":    "newest",
		}).
		Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("request search: %w", err)
	}

	var body SearchResponse
	if err := source.DecodeJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Response.Status == "error" {
		msg := body.Response.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, errors.New("guardian api error: " + msg)
	}

	return body.Response.Results, nil
}
