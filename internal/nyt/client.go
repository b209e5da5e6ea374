package nyt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bilgisen/nytrelay/internal/cache"
	"github.com/bilgisen/nytrelay/internal/config"
	"github.com/bilgisen/nytrelay/internal/logger"
	"github.com/bilgisen/nytrelay/internal/metrics"
	"github.com/bilgisen/nytrelay/internal/utils"
	"github.com/go-resty/resty/v2"
)

const (
	opTopStories    = "topstories"
	opArticleSearch = "articlesearch"

	topStoriesPath    = "/topstories/v2/{category}.json"
	articleSearchPath = "/search/v2/articlesearch.json"

	// maxLoggedBody caps how much of an upstream error body goes into logs.
	maxLoggedBody = 512
)

// Client talks to the NYT top stories and article search APIs.
type Client struct {
	client   *resty.Client
	cfg      *config.Config
	cache    cache.Cache
	cacheTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCache makes the client reuse successful response bodies for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// NewClient builds a client for the API described by cfg. It fails with
// ErrMissingCredential when no API key is set.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.NYTAPIKey) == "" {
		return nil, ErrMissingCredential
	}

	c := &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.NYTBaseURL, "/")).
			SetTimeout(cfg.UpstreamTimeout).
			SetHeader("Accept", "application/json").
			SetQueryParam("api-key", cfg.NYTAPIKey).
			SetLogger(logger.RestyLogger{}),
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchTopStories returns the raw top stories body for category.
func (c *Client) FetchTopStories(ctx context.Context, category string) ([]byte, error) {
	if !c.cfg.IsValidSection(category) {
		return nil, &Error{
			Kind:     KindInvalidCategory,
			Op:       opTopStories,
			Category: category,
			Detail: fmt.Sprintf("Invalid category '%s'. Must be one of: %s",
				category, strings.Join(c.cfg.ValidSections, ", ")),
		}
	}

	key := "topstories:" + category
	if body, ok := c.cached(ctx, opTopStories, key); ok {
		return body, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("category", category).
		Get(topStoriesPath)
	if err != nil {
		return nil, c.transportError(opTopStories, category, err)
	}

	if !resp.IsSuccess() {
		switch resp.StatusCode() {
		case http.StatusTooManyRequests:
			metrics.UpstreamRequestsTotal.WithLabelValues(opTopStories, metrics.OutcomeRateLimited).Inc()
			return nil, &Error{
				Kind:       KindRateLimited,
				Op:         opTopStories,
				Category:   category,
				StatusCode: resp.StatusCode(),
				Detail:     rateLimitedDetail,
			}
		case http.StatusNotFound:
			metrics.UpstreamRequestsTotal.WithLabelValues(opTopStories, metrics.OutcomeNotFound).Inc()
			return nil, &Error{
				Kind:       KindInvalidCategory,
				Op:         opTopStories,
				Category:   category,
				StatusCode: resp.StatusCode(),
				Detail:     fmt.Sprintf("Invalid category '%s': NYT API returned 404 Not Found.", category),
			}
		default:
			return nil, c.statusError(opTopStories, category, resp)
		}
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(opTopStories, metrics.OutcomeOK).Inc()
	body := resp.Body()
	c.store(ctx, key, body)
	return body, nil
}

// FetchArticleSearch returns the raw article search body. Empty dates are
// left out of the upstream query.
func (c *Client) FetchArticleSearch(ctx context.Context, q, beginDate, endDate string) ([]byte, error) {
	params := map[string]string{"q": q}
	if beginDate != "" {
		params["begin_date"] = beginDate
	}
	if endDate != "" {
		params["end_date"] = endDate
	}

	key := "articlesearch:" + utils.HashParts(q, beginDate, endDate)
	if body, ok := c.cached(ctx, opArticleSearch, key); ok {
		return body, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(articleSearchPath)
	if err != nil {
		return nil, c.transportError(opArticleSearch, "", err)
	}

	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusTooManyRequests {
			metrics.UpstreamRequestsTotal.WithLabelValues(opArticleSearch, metrics.OutcomeRateLimited).Inc()
			return nil, &Error{
				Kind:       KindRateLimited,
				Op:         opArticleSearch,
				StatusCode: resp.StatusCode(),
				Detail:     rateLimitedDetail,
			}
		}
		return nil, c.statusError(opArticleSearch, "", resp)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(opArticleSearch, metrics.OutcomeOK).Inc()
	body := resp.Body()
	c.store(ctx, key, body)
	return body, nil
}

func (c *Client) statusError(op, category string, resp *resty.Response) error {
	metrics.UpstreamRequestsTotal.WithLabelValues(op, metrics.OutcomeHTTPError).Inc()

	body := resp.String()
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}
	logger.Get().Error().
		Str("op", op).
		Str("category", category).
		Int("status", resp.StatusCode()).
		Str("body", body).
		Msg("NYT API returned an error status")

	return &Error{
		Kind:       KindUpstream,
		Op:         op,
		Category:   category,
		StatusCode: resp.StatusCode(),
		Err:        fmt.Errorf("unexpected status %s", resp.Status()),
	}
}

func (c *Client) transportError(op, category string, err error) error {
	metrics.UpstreamRequestsTotal.WithLabelValues(op, metrics.OutcomeTransport).Inc()

	logger.Get().Error().
		Err(err).
		Str("op", op).
		Str("category", category).
		Msg("NYT API request failed")

	return &Error{
		Kind:     KindUpstream,
		Op:       op,
		Category: category,
		Err:      err,
	}
}

func (c *Client) cached(ctx context.Context, op, key string) ([]byte, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Get().Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return nil, false
	}
	if ok {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, metrics.OutcomeCached).Inc()
	}
	return body, ok
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		logger.Get().Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
